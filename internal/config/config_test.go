package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	chdirForTest(t, t.TempDir())
	t.Setenv("NVD_API_KEY", "")
	t.Setenv("ANSAS_NVD_API_KEY", "")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() 错误: %v", err)
	}

	if cfg.NVD.ResultsPerPage != 5 {
		t.Errorf("期望每页5条, 实际得到 %d", cfg.NVD.ResultsPerPage)
	}
	if cfg.NVD.IntervalWithKey != 600*time.Millisecond {
		t.Errorf("期望有Key间隔600ms, 实际得到 %v", cfg.NVD.IntervalWithKey)
	}
	if cfg.NVD.IntervalWithoutKey != 6*time.Second {
		t.Errorf("期望无Key间隔6s, 实际得到 %v", cfg.NVD.IntervalWithoutKey)
	}
	if cfg.Cache.Driver != CacheMemory {
		t.Errorf("期望默认缓存驱动 memory, 实际得到 %s", cfg.Cache.Driver)
	}
	if cfg.Store.Driver != StoreNone {
		t.Errorf("期望默认存储驱动 none, 实际得到 %s", cfg.Store.Driver)
	}
	if cfg.MongoDB.Collection != "scans" {
		t.Errorf("期望集合名 scans, 实际得到 %s", cfg.MongoDB.Collection)
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
nvd:
  timeout: 3s
  results_per_page: 3
pipeline:
  workers: 8
cache:
  driver: sqlite
  path: /tmp/ansas-cache.db
  ttl: 1h
store:
  driver: mongodb
log:
  level: debug
  format: json
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() 错误: %v", err)
	}

	if cfg.NVD.Timeout != 3*time.Second {
		t.Errorf("期望超时3s, 实际得到 %v", cfg.NVD.Timeout)
	}
	if cfg.NVD.ResultsPerPage != 3 {
		t.Errorf("期望每页3条, 实际得到 %d", cfg.NVD.ResultsPerPage)
	}
	if cfg.Pipeline.Workers != 8 {
		t.Errorf("期望8个worker, 实际得到 %d", cfg.Pipeline.Workers)
	}
	if cfg.Cache.Driver != CacheSQLite || cfg.Cache.TTL != time.Hour {
		t.Errorf("缓存配置错误: %+v", cfg.Cache)
	}
	if cfg.Store.Driver != StoreMongoDB {
		t.Errorf("期望存储驱动 mongodb, 实际得到 %s", cfg.Store.Driver)
	}
	if cfg.Log.Format != "json" {
		t.Errorf("期望日志格式 json, 实际得到 %s", cfg.Log.Format)
	}
	// 未配置的项保留默认值
	if cfg.NVD.IntervalWithoutKey != 6*time.Second {
		t.Errorf("期望无Key间隔6s, 实际得到 %v", cfg.NVD.IntervalWithoutKey)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	chdirForTest(t, t.TempDir())
	t.Setenv("ANSAS_NVD_API_KEY", "")
	t.Setenv("NVD_API_KEY", "from-env")
	t.Setenv("MONGO_URI", "mongodb://db.internal:27017")
	t.Setenv("ANSAS_PIPELINE_WORKERS", "2")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() 错误: %v", err)
	}

	if cfg.NVD.APIKey != "from-env" {
		t.Errorf("期望从 NVD_API_KEY 读取, 实际得到 %q", cfg.NVD.APIKey)
	}
	if cfg.MongoDB.URI != "mongodb://db.internal:27017" {
		t.Errorf("期望从 MONGO_URI 读取, 实际得到 %q", cfg.MongoDB.URI)
	}
	if cfg.Pipeline.Workers != 2 {
		t.Errorf("期望2个worker, 实际得到 %d", cfg.Pipeline.Workers)
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()

	if _, err := Load(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("指定的配置文件不存在时应返回错误")
	}

	bad := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(bad, []byte("cache:\n  driver: memcached\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(bad); err == nil {
		t.Error("未知缓存驱动应返回错误")
	}

	for _, n := range []string{"0", "10"} {
		page := filepath.Join(dir, "page-"+n+".yaml")
		if err := os.WriteFile(page, []byte("nvd:\n  results_per_page: "+n+"\n"), 0644); err != nil {
			t.Fatal(err)
		}
		if _, err := Load(page); err == nil {
			t.Errorf("results_per_page=%s 应返回错误", n)
		}
	}
}

// chdirForTest 切换工作目录并在测试结束时恢复（兼容不支持 t.Chdir 的工具链）
func chdirForTest(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatalf("获取工作目录失败: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("切换工作目录失败: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(prev) })
}
