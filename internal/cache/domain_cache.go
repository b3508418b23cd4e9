// Package cache 提供缓存相关功能
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/signet-labs/signet/internal/model"
)

const (
	// DomainKeyPrefix 账户域缓存的 Redis Key 前缀
	DomainKeyPrefix = "signet:domain:"
	// DefaultDomainTTL 默认账户域缓存 TTL
	DefaultDomainTTL = 10 * time.Minute
)

// ErrCacheMiss 缓存未命中
var ErrCacheMiss = errors.New("domain cache miss")

// DomainCache 账户域缓存
type DomainCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewDomainCache 创建账户域缓存实例
func NewDomainCache(rdb *redis.Client) *DomainCache {
	return &DomainCache{
		rdb: rdb,
		ttl: DefaultDomainTTL,
	}
}

// NewDomainCacheWithTTL 创建带自定义 TTL 的账户域缓存实例
func NewDomainCacheWithTTL(rdb *redis.Client, ttl time.Duration) *DomainCache {
	return &DomainCache{
		rdb: rdb,
		ttl: ttl,
	}
}

// Get 读取缓存的账户域，未命中返回 ErrCacheMiss
func (c *DomainCache) Get(ctx context.Context, address string) (*model.AccountDomain, error) {
	data, err := c.rdb.Get(ctx, c.key(address)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var domain model.AccountDomain
	if err := json.Unmarshal(data, &domain); err != nil {
		// 脏数据按未命中处理并清除
		c.rdb.Del(ctx, c.key(address))
		return nil, ErrCacheMiss
	}
	return &domain, nil
}

// Set 写入账户域缓存
func (c *DomainCache) Set(ctx context.Context, domain *model.AccountDomain) error {
	data, err := json.Marshal(domain)
	if err != nil {
		return fmt.Errorf("marshal domain: %w", err)
	}

	if err := c.rdb.Set(ctx, c.key(domain.Address), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Delete 删除账户域缓存
func (c *DomainCache) Delete(ctx context.Context, address string) error {
	if err := c.rdb.Del(ctx, c.key(address)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// key 计算缓存 Key，地址统一小写以保证大小写无关
func (c *DomainCache) key(address string) string {
	return DomainKeyPrefix + strings.ToLower(address)
}
