package cvedb

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"ansas/internal/model"
	"ansas/internal/utils"

	_ "github.com/mattn/go-sqlite3"
)

// CVEDatabase 基于sqlite的持久化查询缓存，跨运行复用NVD结果
type CVEDatabase struct {
	db     *sql.DB
	path   string
	ttl    time.Duration
	logger *utils.Logger
}

// NewCVEDatabase 打开（或创建）缓存数据库，ttl<=0 表示条目永不过期
func NewCVEDatabase(dbPath string, ttl time.Duration) (*CVEDatabase, error) {
	logger := utils.NewLogger("cvedb")

	// 确保目录存在
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("创建数据库目录失败: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("打开数据库失败: %w", err)
	}
	// sqlite 写操作串行化，避免并发查询时出现 database is locked
	db.SetMaxOpenConns(1)

	cvedb := &CVEDatabase{
		db:     db,
		path:   dbPath,
		ttl:    ttl,
		logger: logger,
	}

	// 初始化表
	if err := cvedb.initTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("初始化数据表失败: %w", err)
	}

	return cvedb, nil
}

func (cd *CVEDatabase) initTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS cves (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		cve_id TEXT UNIQUE NOT NULL,
		description TEXT,
		cvss_score REAL,
		cvss_severity TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS lookups (
		product TEXT NOT NULL,
		version TEXT NOT NULL,
		fetched_at TIMESTAMP NOT NULL,
		PRIMARY KEY (product, version)
	);

	CREATE TABLE IF NOT EXISTS lookup_results (
		product TEXT NOT NULL,
		version TEXT NOT NULL,
		cve_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		PRIMARY KEY (product, version, cve_id),
		FOREIGN KEY (cve_id) REFERENCES cves(cve_id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_lookup_results ON lookup_results(product, version, position);
	`

	_, err := cd.db.Exec(schema)
	return err
}

// Get 读取缓存的查询结果，过期条目视为未命中
func (cd *CVEDatabase) Get(ctx context.Context, key LookupKey) ([]model.Vulnerability, bool, error) {
	var fetchedAt time.Time
	err := cd.db.QueryRowContext(ctx,
		`SELECT fetched_at FROM lookups WHERE product = ? AND version = ?`,
		key.Product, key.Version,
	).Scan(&fetchedAt)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	if cd.ttl > 0 && time.Since(fetchedAt) > cd.ttl {
		cd.logger.Debug("缓存已过期: %s", key.Keyword())
		return nil, false, nil
	}

	rows, err := cd.db.QueryContext(ctx, `
		SELECT c.cve_id, c.description, c.cvss_score, c.cvss_severity
		FROM lookup_results r
		JOIN cves c ON c.cve_id = r.cve_id
		WHERE r.product = ? AND r.version = ?
		ORDER BY r.position`,
		key.Product, key.Version,
	)
	if err != nil {
		return nil, false, err
	}
	defer rows.Close()

	vulns := []model.Vulnerability{}
	for rows.Next() {
		var vuln model.Vulnerability
		var severity string
		if err := rows.Scan(&vuln.ID, &vuln.Description, &vuln.CVSSScore, &severity); err != nil {
			return nil, false, err
		}
		vuln.Severity = model.ParseSeverity(severity, vuln.CVSSScore)
		vulns = append(vulns, vuln)
	}
	if err := rows.Err(); err != nil {
		return nil, false, err
	}

	return vulns, true, nil
}

// Set 保存一次查询结果（包括空结果）
func (cd *CVEDatabase) Set(ctx context.Context, key LookupKey, vulns []model.Vulnerability) error {
	tx, err := cd.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`DELETE FROM lookup_results WHERE product = ? AND version = ?`,
		key.Product, key.Version,
	)
	if err != nil {
		return err
	}

	for i, vuln := range vulns {
		// 插入CVE基本信息
		_, err = tx.ExecContext(ctx, `
			INSERT INTO cves (cve_id, description, cvss_score, cvss_severity)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(cve_id) DO UPDATE SET
				description = excluded.description,
				cvss_score = excluded.cvss_score,
				cvss_severity = excluded.cvss_severity`,
			vuln.ID, vuln.Description, vuln.CVSSScore, string(vuln.Severity),
		)
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, `
			INSERT OR REPLACE INTO lookup_results
			(product, version, cve_id, position)
			VALUES (?, ?, ?, ?)`,
			key.Product, key.Version, vuln.ID, i,
		)
		if err != nil {
			return err
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO lookups (product, version, fetched_at)
		VALUES (?, ?, ?)`,
		key.Product, key.Version, time.Now().UTC(),
	)
	if err != nil {
		return err
	}

	return tx.Commit()
}

// GetCveCount 获取CVE总数
func (cd *CVEDatabase) GetCveCount() (int, error) {
	var count int
	err := cd.db.QueryRow("SELECT COUNT(*) FROM cves").Scan(&count)
	return count, err
}

// Purge 清空所有缓存的查询结果
func (cd *CVEDatabase) Purge(ctx context.Context) error {
	_, err := cd.db.ExecContext(ctx, `
		DELETE FROM lookup_results;
		DELETE FROM lookups;
		DELETE FROM cves;`)
	if err != nil {
		return err
	}
	cd.logger.Info("已清空CVE缓存: %s", cd.path)
	return nil
}

func (cd *CVEDatabase) Close() error {
	return cd.db.Close()
}
