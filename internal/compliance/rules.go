package compliance

import "ansas/internal/model"

// Provision 一条法律条款
type Provision struct {
	Section   string
	Provision string
	Mandate   string
}

// Kenya Data Protection Act 2019
var (
	// Section41 技术措施：高危CVE说明技术防护失效
	Section41 = Provision{
		Section:   "Section 41",
		Provision: "Security of Personal Data",
		Mandate:   "Controllers must implement appropriate technical measures to prevent unauthorized access.",
	}

	// Section41Encryption 加密要求：明文协议
	Section41Encryption = Provision{
		Section:   "Section 41(2)(a)",
		Provision: "Pseudonymisation and Encryption",
		Mandate:   "Mandates encryption of personal data to mitigate risks of data breaches.",
	}
)

// DefaultCVSSThreshold 高危漏洞的CVSS阈值
const DefaultCVSSThreshold = 7.0

// DefaultCleartextProtocols 明文协议关键字
var DefaultCleartextProtocols = []string{"telnet", "ftp", "http", "mysql", "postgresql", "vnc"}

// RuleSet 评估器使用的规则数据
type RuleSet struct {
	// TechnicalMeasures 每个 CVSS >= CVSSThreshold 的漏洞触发一次
	TechnicalMeasures Provision
	CVSSThreshold     float64
	TechnicalRisk     model.RiskLevel

	// Encryption 产品名包含任一明文协议关键字时触发一次
	Encryption         Provision
	CleartextProtocols []string
	EncryptionRisk     model.RiskLevel
}

// DefaultRuleSet 内置规则
func DefaultRuleSet() RuleSet {
	protocols := make([]string, len(DefaultCleartextProtocols))
	copy(protocols, DefaultCleartextProtocols)

	return RuleSet{
		TechnicalMeasures:  Section41,
		CVSSThreshold:      DefaultCVSSThreshold,
		TechnicalRisk:      model.RiskHigh,
		Encryption:         Section41Encryption,
		CleartextProtocols: protocols,
		EncryptionRisk:     model.RiskMedium,
	}
}
