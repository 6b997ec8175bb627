package model

// Status 合规状态
type Status string

const (
	StatusCompliant    Status = "Compliant"
	StatusNonCompliant Status = "Non-Compliant"
)

// RiskLevel 聚合风险等级，High > Medium > Low
type RiskLevel string

const (
	RiskLow    RiskLevel = "Low"
	RiskMedium RiskLevel = "Medium"
	RiskHigh   RiskLevel = "High"
)

var riskRank = map[RiskLevel]int{
	RiskLow:    0,
	RiskMedium: 1,
	RiskHigh:   2,
}

// Rank 风险等级的序数
func (r RiskLevel) Rank() int {
	return riskRank[r]
}

// Max 返回两者中较高的风险等级
func (r RiskLevel) Max(other RiskLevel) RiskLevel {
	if other.Rank() > r.Rank() {
		return other
	}
	return r
}

// ComplianceViolation 一条规则命中记录
type ComplianceViolation struct {
	AssetAddress string `json:"assetAddress" bson:"assetAddress"`
	Section      string `json:"section" bson:"section"`
	Provision    string `json:"provision" bson:"provision"`
	Finding      string `json:"finding" bson:"finding"`
	Mandate      string `json:"mandate" bson:"mandate"`
}

// ComplianceSummary 整个扫描的合规评估结果，Violations 按资产/服务/漏洞的输入顺序排列
type ComplianceSummary struct {
	Status     Status                `json:"status" bson:"status"`
	RiskLevel  RiskLevel             `json:"riskLevel" bson:"riskLevel"`
	Violations []ComplianceViolation `json:"violations" bson:"violations"`
}
