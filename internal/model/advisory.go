package model

// Advisory 针对某个产品的修复建议，值类型
type Advisory struct {
	Action        string `json:"action" bson:"action" yaml:"action"`
	Steps         string `json:"steps" bson:"steps" yaml:"steps"`
	RiskMitigated string `json:"riskMitigated" bson:"riskMitigated" yaml:"risk_mitigated"`
	SeverityLabel string `json:"severityLabel" bson:"severityLabel" yaml:"severity_label"`
}
