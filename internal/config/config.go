package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 全局配置
type Config struct {
	NVD           NVDConfig      `mapstructure:"nvd"`
	Pipeline      PipelineConfig `mapstructure:"pipeline"`
	Cache         CacheConfig    `mapstructure:"cache"`
	Redis         RedisConfig    `mapstructure:"redis"`
	Store         StoreConfig    `mapstructure:"store"`
	MongoDB       MongoDBConfig  `mapstructure:"mongodb"`
	KnowledgeBase string         `mapstructure:"knowledge_base"`
	Log           LogConfig      `mapstructure:"log"`
}

// NVDConfig NVD CVE API 配置
type NVDConfig struct {
	BaseURL            string        `mapstructure:"base_url"`
	APIKey             string        `mapstructure:"api_key"`
	Timeout            time.Duration `mapstructure:"timeout"`
	ResultsPerPage     int           `mapstructure:"results_per_page"`
	IntervalWithKey    time.Duration `mapstructure:"interval_with_key"`
	IntervalWithoutKey time.Duration `mapstructure:"interval_without_key"`
	MaxInterval        time.Duration `mapstructure:"max_interval"`
}

// PipelineConfig 分析流水线配置
type PipelineConfig struct {
	Workers int `mapstructure:"workers"`
}

// CacheConfig 漏洞查询缓存配置
type CacheConfig struct {
	Driver string        `mapstructure:"driver"`
	Path   string        `mapstructure:"path"`
	TTL    time.Duration `mapstructure:"ttl"`
}

// RedisConfig Redis配置
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// StoreConfig 扫描结果持久化配置
type StoreConfig struct {
	Driver string `mapstructure:"driver"`
	Path   string `mapstructure:"path"`
}

// MongoDBConfig MongoDB配置
type MongoDBConfig struct {
	URI        string `mapstructure:"uri"`
	Database   string `mapstructure:"database"`
	Collection string `mapstructure:"collection"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

const (
	CacheMemory = "memory"
	CacheSQLite = "sqlite"
	CacheRedis  = "redis"

	StoreNone    = "none"
	StoreSQLite  = "sqlite"
	StoreMongoDB = "mongodb"

	// NVD每次查询返回的最大条数
	MaxResultsPerPage = 5
)

// Load 加载配置，path 为空时在 ./configs 和当前目录下查找 config.yaml
// 配置文件不存在时使用默认值，环境变量优先级最高
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	// 读取环境变量 ANSAS_NVD_API_KEY 等
	v.SetEnvPrefix("ANSAS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 兼容常用的环境变量名
	_ = v.BindEnv("nvd.api_key", "ANSAS_NVD_API_KEY", "NVD_API_KEY")
	_ = v.BindEnv("mongodb.uri", "ANSAS_MONGODB_URI", "MONGO_URI")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate 检查驱动名称等取值
func (c *Config) Validate() error {
	switch c.Cache.Driver {
	case CacheMemory, CacheSQLite, CacheRedis:
	default:
		return fmt.Errorf("未知的缓存驱动: %q", c.Cache.Driver)
	}

	switch c.Store.Driver {
	case StoreNone, StoreSQLite, StoreMongoDB:
	default:
		return fmt.Errorf("未知的存储驱动: %q", c.Store.Driver)
	}

	if c.NVD.ResultsPerPage < 1 || c.NVD.ResultsPerPage > MaxResultsPerPage {
		return fmt.Errorf("nvd.results_per_page 必须在 1 到 %d 之间", MaxResultsPerPage)
	}

	if c.Pipeline.Workers <= 0 {
		return fmt.Errorf("pipeline.workers 必须大于0")
	}

	return nil
}

// setDefaults 设置默认配置
func setDefaults(v *viper.Viper) {
	v.SetDefault("nvd.base_url", "https://services.nvd.nist.gov/rest/json/cves/2.0")
	v.SetDefault("nvd.api_key", "")
	v.SetDefault("nvd.timeout", 10*time.Second)
	v.SetDefault("nvd.results_per_page", MaxResultsPerPage)
	v.SetDefault("nvd.interval_with_key", 600*time.Millisecond)
	v.SetDefault("nvd.interval_without_key", 6*time.Second)
	v.SetDefault("nvd.max_interval", 30*time.Second)

	v.SetDefault("pipeline.workers", 4)

	v.SetDefault("cache.driver", CacheMemory)
	v.SetDefault("cache.path", "./data/cve_cache.db")
	v.SetDefault("cache.ttl", 24*time.Hour)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("store.driver", StoreNone)
	v.SetDefault("store.path", "./data/scans.db")

	v.SetDefault("mongodb.uri", "mongodb://localhost:27017")
	v.SetDefault("mongodb.database", "ansas_db")
	v.SetDefault("mongodb.collection", "scans")

	v.SetDefault("knowledge_base", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}
