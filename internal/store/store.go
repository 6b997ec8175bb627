package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"ansas/internal/model"
)

// ErrNotFound 记录不存在，或不属于该用户
var ErrNotFound = errors.New("scan not found")

// Store 扫描结果持久化
type Store interface {
	// Save 保存一次分析结果并返回扫描ID
	Save(ctx context.Context, result *model.EnrichedResult) (string, error)
	// List 返回某个用户的历史记录，按分析时间倒序
	List(ctx context.Context, owner string) ([]model.ScanRecord, error)
	// Get 读取某个用户的一次分析结果
	Get(ctx context.Context, owner, scanID string) (*model.EnrichedResult, error)
	Close() error
}

// prepare 补全扫描ID和分析时间
func prepare(result *model.EnrichedResult) error {
	if result == nil {
		return errors.New("结果不能为空")
	}
	if strings.TrimSpace(result.ScanID) == "" {
		result.ScanID = uuid.NewString()
	}
	if result.AnalyzedAt.IsZero() {
		result.AnalyzedAt = time.Now()
	}
	result.AnalyzedAt = result.AnalyzedAt.UTC()
	return nil
}
