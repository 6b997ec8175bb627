package remediation

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"ansas/internal/model"
)

// Entry 知识库中的一条记录：产品关键字 → 修复建议
type Entry struct {
	Keyword  string         `yaml:"keyword"`
	Advisory model.Advisory `yaml:"advisory"`
}

// KnowledgeBase 有序的知识库，排在前面的关键字优先匹配
type KnowledgeBase struct {
	Entries []Entry        `yaml:"entries"`
	Default model.Advisory `yaml:"default"`
}

// DefaultAdvisory 没有匹配到任何关键字时的通用建议
var DefaultAdvisory = model.Advisory{
	Action:        "Standard Patching & Updates",
	Steps:         "1. Check vendor website for the latest stable security patch. 2. Apply via package manager (apt/yum).",
	RiskMitigated: "Reduces attack surface by closing known CVEs.",
	SeverityLabel: "Standard",
}

// DefaultKnowledgeBase 内置知识库
func DefaultKnowledgeBase() KnowledgeBase {
	return KnowledgeBase{
		Entries: []Entry{
			{
				Keyword: "ftp",
				Advisory: model.Advisory{
					Action:        "Disable Anonymous FTP & Switch to SFTP",
					Steps:         "1. Edit /etc/vsftpd.conf: Set 'anonymous_enable=NO'. 2. Install OpenSSH-server to use SFTP on port 22.",
					RiskMitigated: "Prevents unauthenticated data exfiltration over cleartext.",
					SeverityLabel: "High",
				},
			},
			{
				Keyword: "telnet",
				Advisory: model.Advisory{
					Action:        "Decommission Telnet Immediately",
					Steps:         "1. Run 'sudo systemctl stop telnet'. 2. Enable SSH as a secure alternative.",
					RiskMitigated: "Eliminates cleartext credential sniffing.",
					SeverityLabel: "Critical",
				},
			},
			{
				Keyword: "http",
				Advisory: model.Advisory{
					Action:        "Enforce HTTPS (TLS 1.3)",
					Steps:         "1. Install an SSL certificate (Let's Encrypt). 2. Update Web Server config to redirect port 80 to 443.",
					RiskMitigated: "Secures data in transit against MITM attacks.",
					SeverityLabel: "Medium",
				},
			},
			{
				Keyword: "mysql",
				Advisory: model.Advisory{
					Action:        "Harden Database Access",
					Steps:         "1. Run 'mysql_secure_installation'. 2. Bind MySQL to localhost only. 3. Disable the root remote login.",
					RiskMitigated: "Prevents unauthorized remote database brute-forcing.",
					SeverityLabel: "High",
				},
			},
		},
		Default: DefaultAdvisory,
	}
}

// LoadKnowledgeBase 从YAML文件读取知识库，文件中的顺序即匹配顺序
func LoadKnowledgeBase(path string) (KnowledgeBase, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return KnowledgeBase{}, fmt.Errorf("读取知识库失败: %w", err)
	}

	var kb KnowledgeBase
	if err := yaml.Unmarshal(data, &kb); err != nil {
		return KnowledgeBase{}, fmt.Errorf("解析知识库 %s 失败: %w", path, err)
	}

	for i, entry := range kb.Entries {
		if strings.TrimSpace(entry.Keyword) == "" {
			return KnowledgeBase{}, fmt.Errorf("知识库第 %d 条记录缺少 keyword", i+1)
		}
		kb.Entries[i].Keyword = strings.ToLower(strings.TrimSpace(entry.Keyword))
	}
	if kb.Default.Action == "" {
		kb.Default = DefaultAdvisory
	}

	return kb, nil
}
