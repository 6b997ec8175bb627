package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"ansas/internal/model"
	"ansas/internal/utils"
)

// SQLiteStore 本地sqlite存储，完整结果以JSON保存
type SQLiteStore struct {
	db     *sql.DB
	logger *utils.Logger
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("创建数据库目录失败: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("打开数据库失败: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db, logger: utils.NewLogger("store")}
	if err := s.initTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("初始化数据表失败: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) initTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS scans (
		scan_id TEXT PRIMARY KEY,
		owner TEXT NOT NULL,
		filename TEXT,
		analyzed_at TIMESTAMP NOT NULL,
		asset_count INTEGER NOT NULL,
		status TEXT NOT NULL,
		risk_level TEXT NOT NULL,
		payload TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_scans_owner ON scans(owner, analyzed_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) Save(ctx context.Context, result *model.EnrichedResult) (string, error) {
	if err := prepare(result); err != nil {
		return "", err
	}

	payload, err := json.Marshal(result)
	if err != nil {
		return "", fmt.Errorf("序列化结果失败: %w", err)
	}

	record := result.Summarize()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO scans (scan_id, owner, filename, analyzed_at, asset_count, status, risk_level, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ScanID, record.Owner, record.Filename, record.AnalyzedAt,
		record.AssetCount, string(record.Status), string(record.RiskLevel), string(payload),
	)
	if err != nil {
		return "", fmt.Errorf("保存扫描结果失败: %w", err)
	}

	s.logger.Debug("已保存扫描结果 %s (%s)", record.ScanID, record.Owner)
	return record.ScanID, nil
}

func (s *SQLiteStore) List(ctx context.Context, owner string) ([]model.ScanRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT scan_id, owner, filename, analyzed_at, asset_count, status, risk_level
		FROM scans
		WHERE owner = ?
		ORDER BY analyzed_at DESC, rowid DESC`,
		owner,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []model.ScanRecord{}
	for rows.Next() {
		var record model.ScanRecord
		var status, risk string
		if err := rows.Scan(&record.ScanID, &record.Owner, &record.Filename, &record.AnalyzedAt,
			&record.AssetCount, &status, &risk); err != nil {
			return nil, err
		}
		record.Status = model.Status(status)
		record.RiskLevel = model.RiskLevel(risk)
		records = append(records, record)
	}

	return records, rows.Err()
}

func (s *SQLiteStore) Get(ctx context.Context, owner, scanID string) (*model.EnrichedResult, error) {
	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM scans WHERE scan_id = ? AND owner = ?`,
		scanID, owner,
	).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var result model.EnrichedResult
	if err := json.Unmarshal([]byte(payload), &result); err != nil {
		return nil, fmt.Errorf("解析扫描结果失败: %w", err)
	}
	return &result, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
