package cli

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"ansas/internal/model"
	"ansas/internal/utils"
)

const (
	FormatText = "text"
	FormatJSON = "json"
	FormatCSV  = "csv"
)

var (
	Yellow = color.New(color.FgYellow).SprintFunc()
	Red    = color.New(color.FgRed).SprintFunc()
	Green  = color.New(color.FgGreen).SprintFunc()
	Pink   = color.New(color.FgMagenta).SprintFunc()
)

type OutputFormatter struct {
	format string
}

func NewOutputFormatter(format string) *OutputFormatter {
	return &OutputFormatter{format: strings.ToLower(format)}
}

// ValidFormat 检查输出格式
func ValidFormat(format string) bool {
	switch strings.ToLower(format) {
	case FormatText, FormatJSON, FormatCSV:
		return true
	}
	return false
}

// PrintResult 输出分析结果，outputFile 不为空时写入文件
func (of *OutputFormatter) PrintResult(w io.Writer, result *model.EnrichedResult, outputFile string) error {
	if outputFile == "" {
		return of.WriteResult(w, result)
	}

	f, err := os.Create(outputFile)
	if err != nil {
		return fmt.Errorf("创建输出文件失败: %w", err)
	}
	defer f.Close()

	// 写文件时不输出颜色控制符
	noColor := color.NoColor
	color.NoColor = true
	defer func() { color.NoColor = noColor }()

	if err := of.WriteResult(f, result); err != nil {
		return err
	}
	return f.Close()
}

func (of *OutputFormatter) WriteResult(w io.Writer, result *model.EnrichedResult) error {
	switch of.format {
	case FormatJSON:
		return writeJSON(w, result)
	case FormatCSV:
		return of.formatCSV(w, result)
	default:
		return of.formatText(w, result)
	}
}

// PrintHistory 输出历史记录列表
func (of *OutputFormatter) PrintHistory(w io.Writer, records []model.ScanRecord) error {
	switch of.format {
	case FormatJSON:
		return writeJSON(w, records)
	case FormatCSV:
		writer := csv.NewWriter(w)
		writer.Write([]string{"scan_id", "filename", "analyzed_at", "assets", "status", "risk_level"})
		for _, r := range records {
			writer.Write([]string{
				r.ScanID, r.Filename, r.AnalyzedAt.Local().Format("2006-01-02 15:04"),
				strconv.Itoa(r.AssetCount), string(r.Status), string(r.RiskLevel),
			})
		}
		writer.Flush()
		return writer.Error()
	}

	if len(records) == 0 {
		fmt.Fprintln(w, "暂无历史记录")
		return nil
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Scan ID", "File", "Analyzed At", "Assets", "Status", "Risk"})
	for _, r := range records {
		table.Append([]string{
			r.ScanID, r.Filename, r.AnalyzedAt.Local().Format("2006-01-02 15:04"),
			strconv.Itoa(r.AssetCount), judgeStatus(r.Status), judgeRisk(r.RiskLevel),
		})
	}
	table.Render()
	return nil
}

func writeJSON(w io.Writer, v interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// formatText 终端表格报告
func (of *OutputFormatter) formatText(w io.Writer, result *model.EnrichedResult) error {
	fmt.Fprintf(w, "\n📡 ANSAS 网络资产安全分析报告\n")
	fmt.Fprintln(w, strings.Repeat("═", 60))

	if result.ScanID != "" {
		fmt.Fprintf(w, "扫描ID: %s\n", result.ScanID)
	}
	if result.Filename != "" {
		fmt.Fprintf(w, "文件: %s\n", result.Filename)
	}
	fmt.Fprintf(w, "时间: %s (耗时 %s)\n", result.AnalyzedAt.Local().Format("2006-01-02 15:04:05"), result.Duration)

	if len(result.Assets) == 0 {
		fmt.Fprintln(w, "\n❌ 未发现任何主机")
		return nil
	}

	critical, high, medium, low, total := 0, 0, 0, 0, 0
	for _, asset := range result.Assets {
		for _, svc := range asset.Services {
			for _, v := range svc.Vulnerabilities {
				total++
				switch v.Severity {
				case model.SeverityCritical:
					critical++
				case model.SeverityHigh:
					high++
				case model.SeverityMedium:
					medium++
				default:
					low++
				}
			}
		}
	}

	fmt.Fprintf(w, "\nDetected %s vulnerabilities | Critical: %s High: %s Medium: %s Low: %s\n\n",
		Yellow(total), Red(critical), Pink(high), Yellow(medium), Green(low))

	// 服务列表
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Host", "Port", "Service", "Product / Version", "CVEs", "Top CVSS", "Remediation"})
	table.SetRowLine(true)
	table.SetAutoWrapText(false)
	table.SetAutoMergeCellsByColumnIndex([]int{0})
	for _, asset := range result.Assets {
		host := asset.Address
		if len(asset.Hostnames) > 0 {
			host = fmt.Sprintf("%s\n(%s)", asset.Address, strings.Join(asset.Hostnames, ", "))
		}
		if len(asset.Services) == 0 {
			table.Append([]string{host, "-", "-", "-", "0", "-", "-"})
			continue
		}
		for _, svc := range asset.Services {
			top := topVulnerability(svc.Vulnerabilities)
			score := "-"
			if top != nil {
				score = fmt.Sprintf("%.1f", top.CVSSScore)
			}
			table.Append([]string{
				host,
				fmt.Sprintf("%d/%s", svc.Port, svc.Transport),
				svc.Name,
				fmt.Sprintf("%s / %s", svc.Product, svc.Version),
				strconv.Itoa(svc.VulnCount),
				score,
				svc.Remediation.Action,
			})
		}
	}
	table.Render()

	if total > 0 {
		fmt.Fprintf(w, "\n⚠️  CVE详情:\n")
		table = tablewriter.NewWriter(w)
		table.SetHeader([]string{"Host", "Port", "CVEID", "Score", "Level", "Description"})
		table.SetRowLine(true)
		table.SetAutoMergeCellsByColumnIndex([]int{0, 1})
		for _, asset := range result.Assets {
			for _, svc := range asset.Services {
				for _, v := range svc.Vulnerabilities {
					table.Append([]string{
						asset.Address, strconv.Itoa(svc.Port), v.ID,
						fmt.Sprintf("%.1f", v.CVSSScore), judgeSeverity(v.Severity),
						utils.Truncate(v.Description, 100),
					})
				}
			}
		}
		table.Render()
	} else {
		fmt.Fprintln(w, "\n✅ 未发现已知CVE漏洞")
	}

	summary := result.Compliance
	fmt.Fprintf(w, "\n📋 合规评估: %s | 风险等级: %s | 违规: %d\n",
		judgeStatus(summary.Status), judgeRisk(summary.RiskLevel), len(summary.Violations))

	if len(summary.Violations) > 0 {
		table = tablewriter.NewWriter(w)
		table.SetHeader([]string{"Host", "Section", "Provision", "Finding"})
		table.SetRowLine(true)
		for _, v := range summary.Violations {
			table.Append([]string{v.AssetAddress, v.Section, v.Provision, v.Finding})
		}
		table.Render()
	}

	fmt.Fprintln(w, "\n"+strings.Repeat("═", 60))
	return nil
}

// formatCSV 每个服务一行
func (of *OutputFormatter) formatCSV(w io.Writer, result *model.EnrichedResult) error {
	writer := csv.NewWriter(w)

	writer.Write([]string{"address", "port", "transport", "service", "product", "version",
		"vuln_count", "top_cve", "top_score", "remediation", "severity_label"})

	for _, asset := range result.Assets {
		for _, svc := range asset.Services {
			topCVE, topScore := "", ""
			if top := topVulnerability(svc.Vulnerabilities); top != nil {
				topCVE = top.ID
				topScore = fmt.Sprintf("%.1f", top.CVSSScore)
			}

			writer.Write([]string{
				asset.Address,
				strconv.Itoa(svc.Port),
				string(svc.Transport),
				svc.Name,
				svc.Product,
				svc.Version,
				strconv.Itoa(svc.VulnCount),
				topCVE,
				topScore,
				svc.Remediation.Action,
				svc.Remediation.SeverityLabel,
			})
		}
	}

	writer.Flush()
	return writer.Error()
}

// topVulnerability 最高分的CVE，分数相同时取先出现的
func topVulnerability(vulns []model.Vulnerability) *model.Vulnerability {
	var top *model.Vulnerability
	for i := range vulns {
		if top == nil || vulns[i].CVSSScore > top.CVSSScore {
			top = &vulns[i]
		}
	}
	return top
}

func judgeSeverity(severity model.Severity) string {
	switch severity {
	case model.SeverityCritical:
		return Red("critical")
	case model.SeverityHigh:
		return Pink("high")
	case model.SeverityMedium:
		return Yellow("medium")
	default:
		return Green("low")
	}
}

func judgeRisk(risk model.RiskLevel) string {
	switch risk {
	case model.RiskHigh:
		return Red(string(risk))
	case model.RiskMedium:
		return Yellow(string(risk))
	default:
		return Green(string(risk))
	}
}

func judgeStatus(status model.Status) string {
	if status == model.StatusNonCompliant {
		return Red(string(status))
	}
	return Green(string(status))
}
