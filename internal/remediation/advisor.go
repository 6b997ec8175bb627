package remediation

import (
	"strings"

	"ansas/internal/model"
)

// Advisor 根据产品名查找修复建议，纯查表，不会失败
type Advisor struct {
	kb KnowledgeBase
}

func NewAdvisor(kb KnowledgeBase) *Advisor {
	if kb.Default.Action == "" {
		kb.Default = DefaultAdvisory
	}
	return &Advisor{kb: kb}
}

// Advise 不区分大小写的子串匹配，第一个命中的关键字生效
func (a *Advisor) Advise(product string) model.Advisory {
	lower := strings.ToLower(product)
	for _, entry := range a.kb.Entries {
		if entry.Keyword != "" && strings.Contains(lower, strings.ToLower(entry.Keyword)) {
			return entry.Advisory
		}
	}
	return a.kb.Default
}

// Keywords 知识库中的关键字，按匹配顺序
func (a *Advisor) Keywords() []string {
	keywords := make([]string, 0, len(a.kb.Entries))
	for _, entry := range a.kb.Entries {
		keywords = append(keywords, entry.Keyword)
	}
	return keywords
}
