package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-redis/redis/v8"

	"ansas/internal/compliance"
	"ansas/internal/config"
	"ansas/internal/cvedb"
	"ansas/internal/pipeline"
	"ansas/internal/remediation"
	"ansas/internal/store"
	"ansas/internal/utils"
)

// App 一次进程运行所需的全部组件，由配置构建，不使用全局单例
type App struct {
	Config       *config.Config
	Orchestrator *pipeline.Orchestrator
	Client       *cvedb.CVEAPIClient

	closers []func() error
	logger  *utils.Logger
}

// New 根据配置构建缓存、NVD客户端和分析流水线
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := NewBare(cfg)

	cache, err := a.newCache(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	kb := remediation.DefaultKnowledgeBase()
	if cfg.KnowledgeBase != "" {
		kb, err = remediation.LoadKnowledgeBase(cfg.KnowledgeBase)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.logger.Info("已加载修复知识库: %s (%d 条)", cfg.KnowledgeBase, len(kb.Entries))
	}
	advisor := remediation.NewAdvisor(kb)
	a.logger.Debug("修复关键字: %v", advisor.Keywords())

	limiter := cvedb.NewNVDRateLimiter(cfg.NVD.APIKey != "",
		cfg.NVD.IntervalWithKey, cfg.NVD.IntervalWithoutKey, cfg.NVD.MaxInterval)
	if cfg.NVD.APIKey == "" {
		a.logger.Warn("未配置 NVD API Key，请求间隔为 %v", limiter.Interval())
	}

	a.Client = cvedb.NewCVEAPIClient(cvedb.Options{
		BaseURL:        cfg.NVD.BaseURL,
		APIKey:         cfg.NVD.APIKey,
		ResultsPerPage: cfg.NVD.ResultsPerPage,
		Timeout:        cfg.NVD.Timeout,
		Limiter:        limiter,
		Cache:          cache,
	})

	a.Orchestrator = pipeline.NewOrchestrator(pipeline.Options{
		Intel:     a.Client,
		Limiter:   limiter,
		Advisor:   advisor,
		Evaluator: compliance.NewEvaluator(compliance.DefaultRuleSet()),
		Workers:   cfg.Pipeline.Workers,
	})

	return a, nil
}

// NewBare 只打开存储，不构建流水线
func NewBare(cfg *config.Config) *App {
	return &App{Config: cfg, logger: utils.NewLogger("app")}
}

// newCache 内存缓存始终在最前，持久化后端按配置选择
func (a *App) newCache(ctx context.Context) (cvedb.Cache, error) {
	cfg := a.Config.Cache

	switch cfg.Driver {
	case config.CacheMemory:
		return cvedb.NewMemoryCache(), nil

	case config.CacheSQLite:
		db, err := cvedb.NewCVEDatabase(cfg.Path, cfg.TTL)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, db.Close)
		a.logger.Debug("使用sqlite缓存: %s", cfg.Path)
		return cvedb.NewLayeredCache(db), nil

	case config.CacheRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     a.Config.Redis.Addr,
			Password: a.Config.Redis.Password,
			DB:       a.Config.Redis.DB,
		})
		a.closers = append(a.closers, client.Close)
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("连接Redis失败: %w", err)
		}
		a.logger.Debug("使用Redis缓存: %s", a.Config.Redis.Addr)
		return cvedb.NewLayeredCache(cvedb.NewRedisCache(client, cfg.TTL)), nil
	}

	return nil, fmt.Errorf("未知的缓存驱动: %q", cfg.Driver)
}

// OpenStore 打开配置的结果存储，driver 为 none 时返回 nil
func (a *App) OpenStore(ctx context.Context) (store.Store, error) {
	cfg := a.Config

	var (
		s   store.Store
		err error
	)
	switch cfg.Store.Driver {
	case config.StoreNone:
		return nil, nil
	case config.StoreSQLite:
		s, err = store.NewSQLiteStore(cfg.Store.Path)
	case config.StoreMongoDB:
		s, err = store.NewMongoStore(ctx, cfg.MongoDB.URI, cfg.MongoDB.Database, cfg.MongoDB.Collection)
	default:
		return nil, fmt.Errorf("未知的存储驱动: %q", cfg.Store.Driver)
	}
	if err != nil {
		return nil, err
	}

	a.closers = append(a.closers, s.Close)
	return s, nil
}

// Close 按创建的逆序释放资源
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
