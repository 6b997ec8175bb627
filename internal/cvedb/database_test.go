package cvedb

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"ansas/internal/model"
)

func newTestDatabase(t *testing.T, ttl time.Duration) *CVEDatabase {
	t.Helper()
	db, err := NewCVEDatabase(filepath.Join(t.TempDir(), "cache", "cve_data.db"), ttl)
	if err != nil {
		t.Fatalf("NewCVEDatabase 失败: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestCVEDatabaseRoundTrip(t *testing.T) {
	db := newTestDatabase(t, 0)
	ctx := context.Background()
	key := LookupKey{Product: "nginx", Version: "1.18.0"}

	if _, ok, err := db.Get(ctx, key); err != nil || ok {
		t.Fatalf("空数据库不应命中: ok=%v err=%v", ok, err)
	}

	vulns := []model.Vulnerability{
		{ID: "CVE-2021-23017", CVSSScore: 9.8, Severity: model.SeverityCritical, Description: "resolver"},
		{ID: "CVE-2020-12440", CVSSScore: 5.3, Severity: model.SeverityMedium, Description: "smuggling"},
	}
	if err := db.Set(ctx, key, vulns); err != nil {
		t.Fatalf("Set 失败: %v", err)
	}

	got, ok, err := db.Get(ctx, key)
	if err != nil || !ok {
		t.Fatalf("应命中缓存: ok=%v err=%v", ok, err)
	}
	if len(got) != 2 || got[0] != vulns[0] || got[1] != vulns[1] {
		t.Errorf("缓存内容或顺序不正确: %+v", got)
	}

	count, err := db.GetCveCount()
	if err != nil || count != 2 {
		t.Errorf("期望2个CVE, 实际得到 %d (%v)", count, err)
	}

	// 覆盖写入
	if err := db.Set(ctx, key, vulns[1:]); err != nil {
		t.Fatalf("Set 失败: %v", err)
	}
	got, _, _ = db.Get(ctx, key)
	if len(got) != 1 || got[0].ID != "CVE-2020-12440" {
		t.Errorf("覆盖写入后结果不正确: %+v", got)
	}
}

func TestCVEDatabaseEmptyResult(t *testing.T) {
	db := newTestDatabase(t, 0)
	ctx := context.Background()
	key := LookupKey{Product: "OpenSSH", Version: "8.2"}

	if err := db.Set(ctx, key, nil); err != nil {
		t.Fatalf("Set 失败: %v", err)
	}
	got, ok, err := db.Get(ctx, key)
	if err != nil || !ok {
		t.Fatalf("空结果也应命中: ok=%v err=%v", ok, err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("期望空列表, 实际得到 %v", got)
	}
}

func TestCVEDatabaseTTL(t *testing.T) {
	db := newTestDatabase(t, time.Nanosecond)
	ctx := context.Background()
	key := LookupKey{Product: "vsftpd", Version: "3.0.3"}

	if err := db.Set(ctx, key, []model.Vulnerability{{ID: "CVE-2021-3618", CVSSScore: 7.4, Severity: model.SeverityHigh}}); err != nil {
		t.Fatalf("Set 失败: %v", err)
	}
	time.Sleep(5 * time.Millisecond)

	if _, ok, err := db.Get(ctx, key); err != nil || ok {
		t.Errorf("过期条目不应命中: ok=%v err=%v", ok, err)
	}
}

func TestCVEDatabasePurge(t *testing.T) {
	db := newTestDatabase(t, 0)
	ctx := context.Background()
	key := LookupKey{Product: "MySQL", Version: "5.7.33"}

	db.Set(ctx, key, []model.Vulnerability{{ID: "CVE-2021-2154", CVSSScore: 4.9, Severity: model.SeverityMedium}})
	if err := db.Purge(ctx); err != nil {
		t.Fatalf("Purge 失败: %v", err)
	}
	if _, ok, _ := db.Get(ctx, key); ok {
		t.Error("清空后不应命中")
	}
}
