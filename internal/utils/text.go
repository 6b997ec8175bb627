package utils

import (
	"strings"
	"unicode/utf8"
)

// Unknown 未识别字段的占位值
const Unknown = "unknown"

// Truncate 截断过长的文本，超出部分以"..."结尾
func Truncate(text string, limit int) string {
	if utf8.RuneCountInString(text) <= limit {
		return text
	}

	runes := []rune(text)
	return string(runes[:limit]) + "..."
}

// OrUnknown 去掉首尾空白，空值返回 Unknown
func OrUnknown(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return Unknown
	}
	return value
}

// IsUnknown 判断字段是否为未识别占位值
func IsUnknown(value string) bool {
	return value == Unknown
}

// ContainsAnyFold 不区分大小写判断 text 是否包含任一关键字，返回第一个命中的关键字
func ContainsAnyFold(text string, keywords []string) (string, bool) {
	lower := strings.ToLower(text)
	for _, keyword := range keywords {
		if keyword == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(keyword)) {
			return keyword, true
		}
	}
	return "", false
}
