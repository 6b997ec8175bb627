package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"ansas/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		NVD: config.NVDConfig{
			BaseURL:            "http://127.0.0.1:1",
			Timeout:            time.Second,
			ResultsPerPage:     5,
			IntervalWithKey:    time.Millisecond,
			IntervalWithoutKey: time.Millisecond,
			MaxInterval:        time.Second,
		},
		Pipeline: config.PipelineConfig{Workers: 2},
		Cache:    config.CacheConfig{Driver: config.CacheMemory, Path: filepath.Join(dir, "cache.db"), TTL: time.Hour},
		Redis:    config.RedisConfig{Addr: "127.0.0.1:1"},
		Store:    config.StoreConfig{Driver: config.StoreNone, Path: filepath.Join(dir, "scans.db")},
	}
}

func TestNewWithMemoryCache(t *testing.T) {
	a, err := New(context.Background(), testConfig(t))
	if err != nil {
		t.Fatalf("New() 错误: %v", err)
	}
	defer a.Close()

	if a.Orchestrator == nil || a.Client == nil {
		t.Fatal("应构建流水线和NVD客户端")
	}

	st, err := a.OpenStore(context.Background())
	if err != nil {
		t.Fatalf("OpenStore() 错误: %v", err)
	}
	if st != nil {
		t.Error("store.driver=none 时不应返回存储")
	}
}

func TestNewWithSQLite(t *testing.T) {
	cfg := testConfig(t)
	cfg.Cache.Driver = config.CacheSQLite
	cfg.Store.Driver = config.StoreSQLite

	a, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("New() 错误: %v", err)
	}

	st, err := a.OpenStore(context.Background())
	if err != nil {
		t.Fatalf("OpenStore() 错误: %v", err)
	}
	if st == nil {
		t.Fatal("应返回sqlite存储")
	}

	if err := a.Close(); err != nil {
		t.Errorf("Close() 错误: %v", err)
	}
}

func TestNewRedisUnavailable(t *testing.T) {
	cfg := testConfig(t)
	cfg.Cache.Driver = config.CacheRedis

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if _, err := New(ctx, cfg); err == nil {
		t.Error("Redis不可用时应返回错误")
	}
}

func TestNewErrors(t *testing.T) {
	cfg := testConfig(t)
	cfg.Cache.Driver = "memcached"
	if _, err := New(context.Background(), cfg); err == nil {
		t.Error("未知缓存驱动应返回错误")
	}

	cfg = testConfig(t)
	cfg.KnowledgeBase = filepath.Join(t.TempDir(), "missing.yaml")
	if _, err := New(context.Background(), cfg); err == nil {
		t.Error("知识库文件不存在时应返回错误")
	}

	cfg = testConfig(t)
	cfg.Store.Driver = "postgres"
	if _, err := NewBare(cfg).OpenStore(context.Background()); err == nil {
		t.Error("未知存储驱动应返回错误")
	}
}
