package model

import (
	"time"

	"ansas/internal/utils"
)

// Transport 端口传输协议
type Transport string

const (
	TransportTCP   Transport = "tcp"
	TransportUDP   Transport = "udp"
	TransportOther Transport = "other"
)

// ParseTransport 将扫描报告中的protocol属性映射为 Transport
func ParseTransport(protocol string) Transport {
	switch Transport(protocol) {
	case TransportTCP:
		return TransportTCP
	case TransportUDP:
		return TransportUDP
	default:
		return TransportOther
	}
}

// Asset 一个被扫描的网络端点，以 Address 为标识
type Asset struct {
	Address   string    `json:"address" bson:"address"`
	Hostnames []string  `json:"hostnames" bson:"hostnames"`
	Services  []Service `json:"services" bson:"services"`
}

// Service 资产上的一个开放端口
type Service struct {
	Port            int             `json:"port" bson:"port"`
	Transport       Transport       `json:"transport" bson:"transport"`
	Name            string          `json:"name" bson:"name"`
	Product         string          `json:"product" bson:"product"`
	Version         string          `json:"version" bson:"version"`
	Vulnerabilities []Vulnerability `json:"vulnerabilities" bson:"vulnerabilities"`
	VulnCount       int             `json:"vulnCount" bson:"vulnCount"`
	Remediation     Advisory        `json:"remediation" bson:"remediation"`
}

// Identified 产品和版本均已识别时才会查询漏洞情报
func (s Service) Identified() bool {
	return !utils.IsUnknown(s.Product) && !utils.IsUnknown(s.Version)
}

// EnrichedResult 一次分析的完整输出
type EnrichedResult struct {
	ScanID     string            `json:"scanId,omitempty" bson:"_id,omitempty"`
	Owner      string            `json:"owner,omitempty" bson:"user,omitempty"`
	Filename   string            `json:"filename,omitempty" bson:"filename,omitempty"`
	AnalyzedAt time.Time         `json:"analyzedAt" bson:"upload_date"`
	Duration   string            `json:"duration,omitempty" bson:"duration,omitempty"`
	Assets     []Asset           `json:"assets" bson:"scan_data"`
	Compliance ComplianceSummary `json:"compliance" bson:"compliance_findings"`
}

// ScanRecord 历史记录列表中的摘要信息
type ScanRecord struct {
	ScanID     string    `json:"scanId" bson:"_id"`
	Owner      string    `json:"owner" bson:"user"`
	Filename   string    `json:"filename" bson:"filename"`
	AnalyzedAt time.Time `json:"analyzedAt" bson:"upload_date"`
	AssetCount int       `json:"assetCount" bson:"asset_count"`
	Status     Status    `json:"status" bson:"status"`
	RiskLevel  RiskLevel `json:"riskLevel" bson:"risk_level"`
}

// Summarize 生成历史记录摘要
func (r *EnrichedResult) Summarize() ScanRecord {
	return ScanRecord{
		ScanID:     r.ScanID,
		Owner:      r.Owner,
		Filename:   r.Filename,
		AnalyzedAt: r.AnalyzedAt,
		AssetCount: len(r.Assets),
		Status:     r.Compliance.Status,
		RiskLevel:  r.Compliance.RiskLevel,
	}
}
