package scan

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"ansas/internal/model"
)

const sampleScan = `<?xml version="1.0"?>
<nmaprun scanner="nmap">
	<host>
		<address addr="192.168.1.10" addrtype="ipv4"/>
		<hostnames>
			<hostname name="web01.local" type="PTR"/>
			<hostname name="web01" type="user"/>
		</hostnames>
		<ports>
			<port protocol="tcp" portid="80">
				<state state="open" reason="syn-ack" reason_ttl="0"/>
				<service name="http" product="Apache httpd" version="2.4.41" method="probed" conf="10"/>
			</port>
			<port protocol="tcp" portid="22">
				<state state="open" reason="syn-ack" reason_ttl="0"/>
				<service name="ssh" product="OpenSSH" version="7.6p1" method="probed" conf="10"/>
			</port>
			<port protocol="tcp" portid="25">
				<state state="closed" reason="reset" reason_ttl="0"/>
				<service name="smtp"/>
			</port>
			<port protocol="udp" portid="161">
				<state state="filtered" reason="no-response" reason_ttl="0"/>
			</port>
			<port protocol="udp" portid="53">
				<state state="open" reason="udp-response" reason_ttl="0"/>
			</port>
		</ports>
	</host>
	<host>
		<status state="up"/>
		<ports>
			<port protocol="tcp" portid="443">
				<state state="open"/>
			</port>
		</ports>
	</host>
	<host>
		<address addr="10.0.0.5" addrtype="ipv4"/>
		<ports>
			<port protocol="sctp" portid="23">
				<state state="open"/>
				<service name="telnet" product="telnet"/>
			</port>
		</ports>
	</host>
</nmaprun>`

func TestNormalize(t *testing.T) {
	assets, err := Normalize(strings.NewReader(sampleScan))
	if err != nil {
		t.Fatalf("Normalize 失败: %v", err)
	}

	// 缺少地址的主机被静默丢弃
	if len(assets) != 2 {
		t.Fatalf("期望2个资产, 实际得到 %d", len(assets))
	}

	first := assets[0]
	if first.Address != "192.168.1.10" {
		t.Errorf("期望地址为 192.168.1.10, 实际得到 %s", first.Address)
	}
	if len(first.Hostnames) != 2 || first.Hostnames[0] != "web01.local" || first.Hostnames[1] != "web01" {
		t.Errorf("主机名顺序不正确: %v", first.Hostnames)
	}

	if len(first.Services) != 3 {
		t.Fatalf("期望3个开放端口, 实际得到 %d", len(first.Services))
	}

	http := first.Services[0]
	if http.Port != 80 || http.Transport != model.TransportTCP {
		t.Errorf("端口解析错误: %+v", http)
	}
	if http.Product != "Apache httpd" || http.Version != "2.4.41" || http.Name != "http" {
		t.Errorf("服务信息解析错误: %+v", http)
	}

	dns := first.Services[2]
	if dns.Port != 53 || dns.Transport != model.TransportUDP {
		t.Errorf("UDP端口解析错误: %+v", dns)
	}
	if dns.Name != "unknown" || dns.Product != "unknown" || dns.Version != "unknown" {
		t.Errorf("缺少service时应填充unknown, 实际得到 %+v", dns)
	}
	if dns.Vulnerabilities == nil || len(dns.Vulnerabilities) != 0 {
		t.Errorf("漏洞列表应为空切片")
	}

	telnet := assets[1].Services[0]
	if telnet.Transport != model.TransportOther {
		t.Errorf("期望传输协议为 other, 实际得到 %s", telnet.Transport)
	}
	if telnet.Product != "telnet" || telnet.Version != "unknown" {
		t.Errorf("缺失的属性应降级为unknown: %+v", telnet)
	}
	if len(assets[1].Hostnames) != 0 {
		t.Errorf("期望主机名为空, 实际得到 %v", assets[1].Hostnames)
	}
}

func TestNormalizeDropsNonOpenPorts(t *testing.T) {
	assets, err := Normalize(strings.NewReader(sampleScan))
	if err != nil {
		t.Fatalf("Normalize 失败: %v", err)
	}

	for _, asset := range assets {
		for _, svc := range asset.Services {
			if svc.Port == 25 || svc.Port == 161 {
				t.Errorf("非开放端口 %d 不应出现在结果中", svc.Port)
			}
		}
	}
}

func TestNormalizeMalformed(t *testing.T) {
	cases := map[string]string{
		"截断文档":      `<nmaprun><host><address addr="10.0.0.1"/><ports>`,
		"标签不匹配":     `<nmaprun><host></port></nmaprun>`,
		"空文档":       "   ",
		"纯文本":       "this is not xml",
		"根元素后有截断主机": `<nmaprun><host><address addr="10.0.0.9"/></host></nmaprun><host><address addr="10.0.0.10"`,
		"根元素后有多余元素": `<nmaprun></nmaprun><extra/>`,
		"根元素后有文本":   "<nmaprun></nmaprun>trailing",
	}

	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			assets, err := Normalize(strings.NewReader(raw))
			if err == nil {
				t.Fatalf("期望返回错误")
			}
			var parseErr *ParseError
			if !errors.As(err, &parseErr) {
				t.Errorf("期望 *ParseError, 实际得到 %T", err)
			}
			if assets != nil {
				t.Errorf("解析失败时不应返回部分资产")
			}
		})
	}
}

func TestNormalizeTrailingComment(t *testing.T) {
	raw := "<?xml version=\"1.0\"?>\n<nmaprun><host><address addr=\"10.0.0.9\"/></host></nmaprun>\n<!-- Nmap done -->\n"
	assets, err := Normalize(strings.NewReader(raw))
	if err != nil {
		t.Fatalf("Normalize 失败: %v", err)
	}
	if len(assets) != 1 || assets[0].Address != "10.0.0.9" {
		t.Errorf("期望1个资产 10.0.0.9, 实际得到 %+v", assets)
	}
}

func TestNormalizeEmptyRun(t *testing.T) {
	assets, err := Normalize(strings.NewReader(`<nmaprun></nmaprun>`))
	if err != nil {
		t.Fatalf("Normalize 失败: %v", err)
	}
	if len(assets) != 0 {
		t.Errorf("期望0个资产, 实际得到 %d", len(assets))
	}
}

func TestNormalizeFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scan.xml")
	if err := os.WriteFile(path, []byte(sampleScan), 0644); err != nil {
		t.Fatal(err)
	}

	assets, err := NormalizeFile(path)
	if err != nil {
		t.Fatalf("NormalizeFile 失败: %v", err)
	}
	if len(assets) != 2 {
		t.Errorf("期望2个资产, 实际得到 %d", len(assets))
	}

	if _, err := NormalizeFile(filepath.Join(t.TempDir(), "missing.xml")); err == nil {
		t.Error("文件不存在时应返回错误")
	}
}
