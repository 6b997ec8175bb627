package compliance

import (
	"fmt"
	"strings"

	"ansas/internal/model"
	"ansas/internal/utils"
)

// Evaluator 将扫描结果映射到数据保护法条款，纯函数，结果只取决于输入顺序
type Evaluator struct {
	rules RuleSet
}

func NewEvaluator(rules RuleSet) *Evaluator {
	return &Evaluator{rules: rules}
}

// summaryBuilder 评估过程中的累积状态，风险等级只升不降
type summaryBuilder struct {
	summary model.ComplianceSummary
}

func (b *summaryBuilder) record(v model.ComplianceViolation, risk model.RiskLevel) {
	b.summary.Status = model.StatusNonCompliant
	b.summary.RiskLevel = b.summary.RiskLevel.Max(risk)
	b.summary.Violations = append(b.summary.Violations, v)
}

// Evaluate 依次遍历资产、服务、漏洞，输出有序的违规记录和聚合风险
func (e *Evaluator) Evaluate(assets []model.Asset) model.ComplianceSummary {
	b := &summaryBuilder{
		summary: model.ComplianceSummary{
			Status:     model.StatusCompliant,
			RiskLevel:  model.RiskLow,
			Violations: []model.ComplianceViolation{},
		},
	}

	for _, asset := range assets {
		for _, svc := range asset.Services {
			e.checkTechnicalMeasures(b, asset, svc)
			e.checkEncryption(b, asset, svc)
		}
	}

	return b.summary
}

// 每个高危漏洞一条违规
func (e *Evaluator) checkTechnicalMeasures(b *summaryBuilder, asset model.Asset, svc model.Service) {
	for _, vuln := range svc.Vulnerabilities {
		if vuln.CVSSScore < e.rules.CVSSThreshold {
			continue
		}
		b.record(newViolation(asset, e.rules.TechnicalMeasures,
			fmt.Sprintf("Critical vulnerability %s on port %d", vuln.ID, svc.Port)),
			e.rules.TechnicalRisk)
	}
}

// 明文协议，每个服务最多一条
func (e *Evaluator) checkEncryption(b *summaryBuilder, asset model.Asset, svc model.Service) {
	if _, hit := utils.ContainsAnyFold(svc.Product, e.rules.CleartextProtocols); !hit {
		return
	}
	b.record(newViolation(asset, e.rules.Encryption,
		fmt.Sprintf("Unencrypted protocol '%s' detected on port %d", strings.ToLower(svc.Product), svc.Port)),
		e.rules.EncryptionRisk)
}

func newViolation(asset model.Asset, p Provision, finding string) model.ComplianceViolation {
	return model.ComplianceViolation{
		AssetAddress: asset.Address,
		Section:      p.Section,
		Provision:    p.Provision,
		Finding:      finding,
		Mandate:      p.Mandate,
	}
}
