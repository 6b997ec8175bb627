package cvedb

import (
	"fmt"

	"github.com/tidwall/gjson"

	"ansas/internal/model"
)

const (
	MaxDescriptionLength = 200
	NoDescription        = "No description available."
	DescriptionEllipsis  = "..."
)

// Score 从某个CVSS版本中提取出的分数和严重等级
type Score struct {
	Version  string
	Value    float64
	Severity model.Severity
}

// ScoreStrategy 尝试从 metrics 中提取某一版本的CVSS评分，不存在时返回 false
type ScoreStrategy func(metrics gjson.Result) (Score, bool)

// cvssSchema 描述NVD 2.0 metrics 下一个CVSS版本的字段位置
type cvssSchema struct {
	version      string
	metricKey    string
	severityPath string
}

// 按从新到旧排列，第一个存在的版本生效，不做合并或平均
var cvssSchemas = []cvssSchema{
	{version: "3.1", metricKey: "cvssMetricV31", severityPath: "cvssData.baseSeverity"},
	{version: "3.0", metricKey: "cvssMetricV30", severityPath: "cvssData.baseSeverity"},
	// v2 的 baseSeverity 与 cvssData 同级
	{version: "2.0", metricKey: "cvssMetricV2", severityPath: "baseSeverity"},
}

func (s cvssSchema) strategy() ScoreStrategy {
	return func(metrics gjson.Result) (Score, bool) {
		entry := metrics.Get(s.metricKey + ".0")
		if !entry.Exists() {
			return Score{}, false
		}

		value := entry.Get("cvssData.baseScore").Float()
		return Score{
			Version:  s.version,
			Value:    value,
			Severity: model.ParseSeverity(entry.Get(s.severityPath).String(), value),
		}, true
	}
}

// DefaultScoreStrategies v3.1 → v3.0 → v2.0
func DefaultScoreStrategies() []ScoreStrategy {
	strategies := make([]ScoreStrategy, 0, len(cvssSchemas))
	for _, schema := range cvssSchemas {
		strategies = append(strategies, schema.strategy())
	}
	return strategies
}

// ResolveScore 依次尝试各策略，全部缺失时返回 0.0 / LOW
func ResolveScore(metrics gjson.Result, strategies []ScoreStrategy) Score {
	for _, strategy := range strategies {
		if score, ok := strategy(metrics); ok {
			return score
		}
	}
	return Score{Value: 0.0, Severity: model.SeverityLow}
}

// ParseResponse 解析NVD响应中的漏洞列表，最多保留 limit 条
func ParseResponse(body []byte, limit int, strategies []ScoreStrategy) ([]model.Vulnerability, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("解析JSON失败: 响应不是合法的JSON")
	}

	vulns := []model.Vulnerability{}
	gjson.GetBytes(body, "vulnerabilities").ForEach(func(_, item gjson.Result) bool {
		if limit > 0 && len(vulns) >= limit {
			return false
		}
		vulns = append(vulns, convertNVDToVulnerability(item.Get("cve"), strategies))
		return true
	})

	return vulns, nil
}

// convertNVDToVulnerability 将单条 cve 记录转换为内部模型
func convertNVDToVulnerability(cve gjson.Result, strategies []ScoreStrategy) model.Vulnerability {
	id := cve.Get("id").String()
	if id == "" {
		id = "Unknown"
	}

	score := ResolveScore(cve.Get("metrics"), strategies)

	return model.Vulnerability{
		ID:          id,
		CVSSScore:   score.Value,
		Severity:    score.Severity,
		Description: clipDescription(englishDescription(cve)),
	}
}

// clipDescription 保留前200个字符并总是追加省略号，与报告中的展示格式一致
func clipDescription(text string) string {
	runes := []rune(text)
	if len(runes) > MaxDescriptionLength {
		runes = runes[:MaxDescriptionLength]
	}
	return string(runes) + DescriptionEllipsis
}

// englishDescription 取第一条英文描述
func englishDescription(cve gjson.Result) string {
	description := cve.Get(`descriptions.#(lang=="en").value`)
	if !description.Exists() || description.String() == "" {
		return NoDescription
	}
	return description.String()
}
