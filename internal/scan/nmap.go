package scan

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"ansas/internal/model"
	"ansas/internal/utils"
)

var logger = utils.NewLogger("scan")

// ParseError 扫描报告不是格式良好的XML文档
type ParseError struct {
	Source string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Source != "" {
		return fmt.Sprintf("解析扫描报告失败 (%s): %v", e.Source, e.Err)
	}
	return fmt.Sprintf("解析扫描报告失败: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// nmap XML 结构（只保留需要的字段）
type nmapRun struct {
	Hosts []nmapHost `xml:"host"`
}

type nmapHost struct {
	Addresses []struct {
		Addr     string `xml:"addr,attr"`
		AddrType string `xml:"addrtype,attr"`
	} `xml:"address"`
	Hostnames []struct {
		Name string `xml:"name,attr"`
	} `xml:"hostnames>hostname"`
	Ports []nmapPort `xml:"ports>port"`
}

type nmapPort struct {
	Protocol string `xml:"protocol,attr"`
	PortID   string `xml:"portid,attr"`
	State    *struct {
		State string `xml:"state,attr"`
	} `xml:"state"`
	Service *struct {
		Name    string `xml:"name,attr"`
		Product string `xml:"product,attr"`
		Version string `xml:"version,attr"`
	} `xml:"service"`
}

// Normalize 将nmap XML报告转换为资产列表
// 只有文档本身不是合法XML时才返回 *ParseError，缺失字段一律降级为 "unknown"
func Normalize(r io.Reader) ([]model.Asset, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &ParseError{Err: err}
	}
	return normalize(data, "")
}

// NormalizeFile 读取并解析扫描报告文件
func NormalizeFile(path string) ([]model.Asset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取扫描报告失败: %w", err)
	}
	return normalize(data, path)
}

func normalize(data []byte, source string) ([]model.Asset, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, &ParseError{Source: source, Err: io.ErrUnexpectedEOF}
	}

	var run nmapRun
	decoder := xml.NewDecoder(bytes.NewReader(data))
	if err := decoder.Decode(&run); err != nil {
		return nil, &ParseError{Source: source, Err: err}
	}
	if err := checkTrailing(decoder); err != nil {
		return nil, &ParseError{Source: source, Err: err}
	}

	assets := make([]model.Asset, 0, len(run.Hosts))
	for _, host := range run.Hosts {
		asset, ok := convertHost(host)
		if !ok {
			logger.Debug("跳过缺少地址的主机")
			continue
		}
		assets = append(assets, asset)
	}

	logger.Debug("解析完成: %d 个主机", len(assets))
	return assets, nil
}

// checkTrailing 根元素之后只允许空白、注释和处理指令
func checkTrailing(decoder *xml.Decoder) error {
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		switch t := tok.(type) {
		case xml.CharData:
			if len(bytes.TrimSpace(t)) != 0 {
				return fmt.Errorf("根元素之后存在多余文本")
			}
		case xml.Comment, xml.ProcInst:
		default:
			return fmt.Errorf("根元素之后存在多余内容: %T", tok)
		}
	}
}

func convertHost(host nmapHost) (model.Asset, bool) {
	var address string
	for _, addr := range host.Addresses {
		if strings.TrimSpace(addr.Addr) != "" {
			address = strings.TrimSpace(addr.Addr)
			break
		}
	}
	if address == "" {
		return model.Asset{}, false
	}

	asset := model.Asset{
		Address:   address,
		Hostnames: []string{},
		Services:  []model.Service{},
	}

	for _, hn := range host.Hostnames {
		if hn.Name != "" {
			asset.Hostnames = append(asset.Hostnames, hn.Name)
		}
	}

	for _, port := range host.Ports {
		// 只保留开放端口，closed/filtered 直接丢弃
		if port.State == nil || port.State.State != "open" {
			continue
		}
		asset.Services = append(asset.Services, convertPort(port))
	}

	return asset, true
}

func convertPort(port nmapPort) model.Service {
	portNum, err := strconv.Atoi(strings.TrimSpace(port.PortID))
	if err != nil || portNum < 0 {
		portNum = 0
	}

	svc := model.Service{
		Port:            portNum,
		Transport:       model.ParseTransport(port.Protocol),
		Name:            utils.Unknown,
		Product:         utils.Unknown,
		Version:         utils.Unknown,
		Vulnerabilities: []model.Vulnerability{},
	}

	if port.Service != nil {
		svc.Name = utils.OrUnknown(port.Service.Name)
		svc.Product = utils.OrUnknown(port.Service.Product)
		svc.Version = utils.OrUnknown(port.Service.Version)
	}

	return svc
}
