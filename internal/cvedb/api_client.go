package cvedb

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"ansas/internal/model"
	"ansas/internal/utils"
)

const (
	DefaultBaseURL        = "https://services.nvd.nist.gov/rest/json/cves/2.0"
	DefaultResultsPerPage = 5
	DefaultTimeout        = 10 * time.Second
	DefaultUserAgent      = "ANSAS-Security-Scanner/1.0"

	// 响应体读取上限
	maxResponseBytes = 8 << 20
)

// ErrRateLimited NVD返回403，API Key无效或超出速率限制
var ErrRateLimited = errors.New("nvd: api key invalid or rate limit exceeded")

// Result 一次情报查询的结果，查询失败时 Vulnerabilities 为空而不是返回错误
type Result struct {
	Vulnerabilities []model.Vulnerability
	Cached          bool
	Degraded        bool
	RateLimited     bool
}

// Intelligence 漏洞情报查询能力
type Intelligence interface {
	Lookup(ctx context.Context, product, version string) Result
}

// Options NVD客户端配置
type Options struct {
	BaseURL        string
	APIKey         string
	UserAgent      string
	ResultsPerPage int
	Timeout        time.Duration
	Limiter        Limiter
	Cache          Cache
	HTTPClient     *http.Client
	Strategies     []ScoreStrategy
}

// CVEAPIClient 按 (产品, 版本) 查询NVD CVE 2.0 API 的客户端
type CVEAPIClient struct {
	baseURL        string
	apiKey         string
	userAgent      string
	resultsPerPage int
	timeout        time.Duration
	limiter        Limiter
	cache          Cache
	strategies     []ScoreStrategy
	logger         *utils.Logger
	httpClient     *http.Client
}

// NewCVEAPIClient 创建新的CVE API客户端，未指定的选项使用默认值
func NewCVEAPIClient(opts Options) *CVEAPIClient {
	client := &CVEAPIClient{
		baseURL:        opts.BaseURL,
		apiKey:         opts.APIKey,
		userAgent:      opts.UserAgent,
		resultsPerPage: opts.ResultsPerPage,
		timeout:        opts.Timeout,
		limiter:        opts.Limiter,
		cache:          opts.Cache,
		strategies:     opts.Strategies,
		logger:         utils.NewLogger("cve-api-client"),
		httpClient:     opts.HTTPClient,
	}

	if client.baseURL == "" {
		client.baseURL = DefaultBaseURL
	}
	if client.userAgent == "" {
		client.userAgent = DefaultUserAgent
	}
	// 每个服务最多取5条
	if client.resultsPerPage <= 0 || client.resultsPerPage > DefaultResultsPerPage {
		client.resultsPerPage = DefaultResultsPerPage
	}
	if client.timeout <= 0 {
		client.timeout = DefaultTimeout
	}
	if client.limiter == nil {
		client.limiter = NewNVDRateLimiter(client.apiKey != "", 0, 0, 0)
	}
	if client.cache == nil {
		client.cache = NewMemoryCache()
	}
	if len(client.strategies) == 0 {
		client.strategies = DefaultScoreStrategies()
	}
	if client.httpClient == nil {
		client.httpClient = &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        10,
				IdleConnTimeout:     30 * time.Second,
				DisableCompression:  false,
				MaxIdleConnsPerHost: 10,
			},
		}
	}

	return client
}

// Limiter 客户端使用的共享限速器
func (client *CVEAPIClient) Limiter() Limiter {
	return client.limiter
}

// Lookup 查询 (产品, 版本) 的漏洞列表
// 网络错误、超时、非200状态或解析失败都只记录日志并返回空列表
func (client *CVEAPIClient) Lookup(ctx context.Context, product, version string) Result {
	key := LookupKey{Product: product, Version: version}

	cached, ok, err := client.cache.Get(ctx, key)
	if err != nil {
		client.logger.Warn("读取缓存失败 %s: %v", key.Keyword(), err)
	}
	if ok {
		client.logger.Debug("缓存命中: %s (%d 个CVE)", key.Keyword(), len(cached))
		return Result{Vulnerabilities: cached, Cached: true}
	}

	if err := client.limiter.Wait(ctx); err != nil {
		client.logger.Warn("等待速率限制被取消 %s: %v", key.Keyword(), err)
		return Result{Vulnerabilities: []model.Vulnerability{}, Degraded: true}
	}

	vulns, err := client.search(ctx, key)
	if err != nil {
		result := Result{Vulnerabilities: []model.Vulnerability{}, Degraded: true}
		if errors.Is(err, ErrRateLimited) {
			client.logger.Error("⛔ API Key 无效或超出速率限制: %s", key.Keyword())
			result.RateLimited = true
		} else {
			client.logger.Warn("查询NVD失败 %s: %v", key.Keyword(), err)
		}
		return result
	}

	if err := client.cache.Set(ctx, key, vulns); err != nil {
		client.logger.Warn("写入缓存失败 %s: %v", key.Keyword(), err)
	}

	return Result{Vulnerabilities: vulns}
}

// search 发出单次关键字搜索请求，不在此处重试
func (client *CVEAPIClient) search(ctx context.Context, key LookupKey) ([]model.Vulnerability, error) {
	ctx, cancel := context.WithTimeout(ctx, client.timeout)
	defer cancel()

	params := url.Values{}
	params.Set("keywordSearch", key.Keyword())
	params.Set("resultsPerPage", strconv.Itoa(client.resultsPerPage))
	reqURL := client.baseURL + "?" + params.Encode()

	client.logger.Info("🔎 查询NVD: %s", key.Keyword())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("创建请求失败: %w", err)
	}

	req.Header.Set("User-Agent", client.userAgent)
	req.Header.Set("Accept", "application/json")
	if client.apiKey != "" {
		req.Header.Set("apiKey", client.apiKey)
	}

	resp, err := client.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP请求失败: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusForbidden:
		return nil, ErrRateLimited
	default:
		return nil, fmt.Errorf("API返回错误: %s", resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("读取响应失败: %w", err)
	}

	vulns, err := ParseResponse(body, client.resultsPerPage, client.strategies)
	if err != nil {
		return nil, err
	}

	client.logger.Debug("%s 返回 %d 个CVE", key.Keyword(), len(vulns))
	return vulns, nil
}
