package pipeline

import (
	"context"
	"io"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"ansas/internal/compliance"
	"ansas/internal/cvedb"
	"ansas/internal/model"
	"ansas/internal/remediation"
	"ansas/internal/scan"
	"ansas/internal/utils"
)

const DefaultWorkers = 4

// Advisor 修复建议查询
type Advisor interface {
	Advise(product string) model.Advisory
}

// Evaluator 合规评估
type Evaluator interface {
	Evaluate(assets []model.Asset) model.ComplianceSummary
}

// Options 编排器依赖
type Options struct {
	Intel     cvedb.Intelligence
	Limiter   cvedb.Limiter
	Advisor   Advisor
	Evaluator Evaluator
	Workers   int
}

// Orchestrator 依次执行解析、情报查询、修复建议和合规评估
type Orchestrator struct {
	intel     cvedb.Intelligence
	limiter   cvedb.Limiter
	advisor   Advisor
	evaluator Evaluator
	workers   int
	logger    *utils.Logger
}

func NewOrchestrator(opts Options) *Orchestrator {
	o := &Orchestrator{
		intel:     opts.Intel,
		limiter:   opts.Limiter,
		advisor:   opts.Advisor,
		evaluator: opts.Evaluator,
		workers:   opts.Workers,
		logger:    utils.NewLogger("pipeline"),
	}

	if o.advisor == nil {
		o.advisor = remediation.NewAdvisor(remediation.DefaultKnowledgeBase())
	}
	if o.evaluator == nil {
		o.evaluator = compliance.NewEvaluator(compliance.DefaultRuleSet())
	}
	if o.workers <= 0 {
		o.workers = DefaultWorkers
	}

	return o
}

// Run 解析扫描报告并生成完整的分析结果
// 只有解析失败会中断，单个服务的情报查询失败只会让该服务的漏洞列表为空
func (o *Orchestrator) Run(ctx context.Context, raw io.Reader) (*model.EnrichedResult, error) {
	assets, err := scan.Normalize(raw)
	if err != nil {
		return nil, err
	}
	return o.Enrich(ctx, assets), nil
}

// RunFile 分析扫描报告文件
func (o *Orchestrator) RunFile(ctx context.Context, path string) (*model.EnrichedResult, error) {
	assets, err := scan.NormalizeFile(path)
	if err != nil {
		return nil, err
	}
	return o.Enrich(ctx, assets), nil
}

// Enrich 对已解析的资产执行情报查询、修复建议和合规评估，返回新的资产副本
func (o *Orchestrator) Enrich(ctx context.Context, assets []model.Asset) *model.EnrichedResult {
	startTime := time.Now()

	intel := o.lookupAll(ctx, distinctKeys(assets))

	enriched := make([]model.Asset, 0, len(assets))
	totalVulns := 0
	for _, asset := range assets {
		out := model.Asset{
			Address:   asset.Address,
			Hostnames: append([]string{}, asset.Hostnames...),
			Services:  make([]model.Service, 0, len(asset.Services)),
		}

		for _, svc := range asset.Services {
			svc.Vulnerabilities = []model.Vulnerability{}
			if svc.Identified() {
				key := cvedb.LookupKey{Product: svc.Product, Version: svc.Version}
				svc.Vulnerabilities = append(svc.Vulnerabilities, intel[key]...)
			}
			svc.VulnCount = len(svc.Vulnerabilities)
			// 即使没有CVE也要附加修复建议，明文协议仍会被合规规则标记
			svc.Remediation = o.advisor.Advise(svc.Product)

			totalVulns += svc.VulnCount
			out.Services = append(out.Services, svc)
		}

		enriched = append(enriched, out)
	}

	// 所有服务完成后才进行合规评估
	summary := o.evaluator.Evaluate(enriched)

	o.logger.Info("分析完成: %d 个资产, %d 个CVE, %d 条违规, 风险等级 %s, 耗时 %v",
		len(enriched), totalVulns, len(summary.Violations), summary.RiskLevel, time.Since(startTime))

	return &model.EnrichedResult{
		AnalyzedAt: startTime,
		Duration:   time.Since(startTime).String(),
		Assets:     enriched,
		Compliance: summary,
	}
}

// distinctKeys 收集需要查询的 (产品, 版本)，跳过 unknown，保持首次出现的顺序
func distinctKeys(assets []model.Asset) []cvedb.LookupKey {
	seen := make(map[cvedb.LookupKey]bool)
	var keys []cvedb.LookupKey

	for _, asset := range assets {
		for _, svc := range asset.Services {
			if !svc.Identified() {
				continue
			}
			key := cvedb.LookupKey{Product: svc.Product, Version: svc.Version}
			if seen[key] {
				continue
			}
			seen[key] = true
			keys = append(keys, key)
		}
	}

	return keys
}

// lookupAll 用有界的工作池并发查询，所有调用共享同一个限速器
func (o *Orchestrator) lookupAll(ctx context.Context, keys []cvedb.LookupKey) map[cvedb.LookupKey][]model.Vulnerability {
	results := make(map[cvedb.LookupKey][]model.Vulnerability, len(keys))
	if len(keys) == 0 || o.intel == nil {
		return results
	}

	var mu sync.Mutex
	g := new(errgroup.Group)
	g.SetLimit(o.workers)

	for _, key := range keys {
		key := key
		g.Go(func() error {
			result := o.intel.Lookup(ctx, key.Product, key.Version)
			if result.RateLimited {
				o.backoff()
			}

			mu.Lock()
			results[key] = result.Vulnerabilities
			mu.Unlock()
			return nil
		})
	}

	// 查询失败不会返回错误，这里只作为汇合点
	g.Wait()

	o.logger.Debug("完成 %d 个 (产品, 版本) 的情报查询", len(keys))
	return results
}

// backoff 收到限流信号后放宽后续请求的间隔
func (o *Orchestrator) backoff() {
	widener, ok := o.limiter.(cvedb.Widener)
	if !ok {
		return
	}
	interval := widener.Widen()
	o.logger.Warn("NVD返回限流信号，请求间隔调整为 %v", interval)
}
