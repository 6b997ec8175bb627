package cvedb

import (
	"context"
	"sync"

	"ansas/internal/model"
	"ansas/internal/utils"
)

// LookupKey 精确的 (产品, 版本) 查询键，不做模糊匹配
type LookupKey struct {
	Product string
	Version string
}

// Keyword NVD keywordSearch 参数
func (k LookupKey) Keyword() string {
	return k.Product + " " + k.Version
}

// Cache (产品, 版本) → 漏洞列表 的缓存
type Cache interface {
	Get(ctx context.Context, key LookupKey) ([]model.Vulnerability, bool, error)
	Set(ctx context.Context, key LookupKey, vulns []model.Vulnerability) error
}

// MemoryCache 单次运行内的缓存，条目不过期
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[LookupKey][]model.Vulnerability
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries: make(map[LookupKey][]model.Vulnerability),
	}
}

func (mc *MemoryCache) Get(_ context.Context, key LookupKey) ([]model.Vulnerability, bool, error) {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	vulns, ok := mc.entries[key]
	if !ok {
		return nil, false, nil
	}
	return copyVulns(vulns), true, nil
}

func (mc *MemoryCache) Set(_ context.Context, key LookupKey, vulns []model.Vulnerability) error {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.entries[key] = copyVulns(vulns)
	return nil
}

// Len 缓存条目数
func (mc *MemoryCache) Len() int {
	mc.mu.RLock()
	defer mc.mu.RUnlock()
	return len(mc.entries)
}

// LayeredCache 内存缓存在前，持久化缓存（sqlite/redis）在后
type LayeredCache struct {
	front  *MemoryCache
	back   Cache
	logger *utils.Logger
}

func NewLayeredCache(back Cache) *LayeredCache {
	return &LayeredCache{
		front:  NewMemoryCache(),
		back:   back,
		logger: utils.NewLogger("cve-cache"),
	}
}

func (lc *LayeredCache) Get(ctx context.Context, key LookupKey) ([]model.Vulnerability, bool, error) {
	if vulns, ok, _ := lc.front.Get(ctx, key); ok {
		return vulns, true, nil
	}

	vulns, ok, err := lc.back.Get(ctx, key)
	if err != nil || !ok {
		return nil, false, err
	}

	lc.front.Set(ctx, key, vulns)
	return vulns, true, nil
}

func (lc *LayeredCache) Set(ctx context.Context, key LookupKey, vulns []model.Vulnerability) error {
	lc.front.Set(ctx, key, vulns)
	if err := lc.back.Set(ctx, key, vulns); err != nil {
		lc.logger.Warn("写入持久化缓存失败 %s: %v", key.Keyword(), err)
		return err
	}
	return nil
}

func copyVulns(vulns []model.Vulnerability) []model.Vulnerability {
	out := make([]model.Vulnerability, len(vulns))
	copy(out, vulns)
	return out
}
