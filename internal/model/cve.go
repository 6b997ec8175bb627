package model

import "strings"

// Severity CVE严重等级
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// Vulnerability 单条CVE记录，构造后不再修改
type Vulnerability struct {
	ID          string   `json:"id" bson:"id"`
	CVSSScore   float64  `json:"cvssScore" bson:"cvssScore"`
	Severity    Severity `json:"severity" bson:"severity"`
	Description string   `json:"description" bson:"description"`
}

// ParseSeverity 解析NVD返回的严重等级，无法识别时按分数推导
func ParseSeverity(raw string, score float64) Severity {
	switch Severity(strings.ToUpper(strings.TrimSpace(raw))) {
	case SeverityLow:
		return SeverityLow
	case SeverityMedium:
		return SeverityMedium
	case SeverityHigh:
		return SeverityHigh
	case SeverityCritical:
		return SeverityCritical
	}
	return SeverityFromScore(score)
}

// SeverityFromScore 按CVSS v3分段规则由分数推导严重等级
func SeverityFromScore(score float64) Severity {
	switch {
	case score >= 9.0:
		return SeverityCritical
	case score >= 7.0:
		return SeverityHigh
	case score >= 4.0:
		return SeverityMedium
	default:
		return SeverityLow
	}
}
