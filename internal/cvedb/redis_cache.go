package cvedb

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/spaolacci/murmur3"

	"ansas/internal/model"
)

const redisKeyPrefix = "ansas:cve:"

// RedisCache 多个进程共享的查询缓存
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

// RedisKey 对 (产品, 版本) 做murmur3哈希，避免键中出现空格和特殊字符
func RedisKey(key LookupKey) string {
	h := murmur3.New128()
	h.Write([]byte(key.Product))
	h.Write([]byte{0})
	h.Write([]byte(key.Version))
	return redisKeyPrefix + hex.EncodeToString(h.Sum(nil))
}

func (rc *RedisCache) Get(ctx context.Context, key LookupKey) ([]model.Vulnerability, bool, error) {
	data, err := rc.client.Get(ctx, RedisKey(key)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var vulns []model.Vulnerability
	if err := json.Unmarshal(data, &vulns); err != nil {
		return nil, false, err
	}
	if vulns == nil {
		vulns = []model.Vulnerability{}
	}
	return vulns, true, nil
}

func (rc *RedisCache) Set(ctx context.Context, key LookupKey, vulns []model.Vulnerability) error {
	if vulns == nil {
		vulns = []model.Vulnerability{}
	}
	data, err := json.Marshal(vulns)
	if err != nil {
		return err
	}
	return rc.client.Set(ctx, RedisKey(key), data, rc.ttl).Err()
}
