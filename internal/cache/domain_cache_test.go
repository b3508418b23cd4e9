package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signet-labs/signet/internal/model"
)

// setupTestRedis 设置测试用 Redis
func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	return mr, rdb
}

func testDomain() *model.AccountDomain {
	return &model.AccountDomain{
		ID:                1,
		Address:           "0x5FbDB2315678afecb367f032d93F642f64180aa3",
		Name:              "SignetAccount",
		Version:           "1",
		ChainID:           31337,
		VerifyingContract: "0x5FbDB2315678afecb367f032d93F642f64180aa3",
		Source:            model.DomainSourceManual,
		CreatedAt:         time.Now().UnixMilli(),
		UpdatedAt:         time.Now().UnixMilli(),
	}
}

// ========== DomainCache 单元测试 ==========

// TestNewDomainCache 测试创建 DomainCache
func TestNewDomainCache(t *testing.T) {
	_, rdb := setupTestRedis(t)
	defer rdb.Close()

	c := NewDomainCache(rdb)
	assert.NotNil(t, c)
	assert.Equal(t, DefaultDomainTTL, c.ttl)
}

// TestNewDomainCacheWithTTL 测试创建带自定义 TTL 的 DomainCache
func TestNewDomainCacheWithTTL(t *testing.T) {
	_, rdb := setupTestRedis(t)
	defer rdb.Close()

	customTTL := 30 * time.Second
	c := NewDomainCacheWithTTL(rdb, customTTL)
	assert.NotNil(t, c)
	assert.Equal(t, customTTL, c.ttl)
}

// TestDomainCache_Get_Miss 测试缓存未命中
func TestDomainCache_Get_Miss(t *testing.T) {
	_, rdb := setupTestRedis(t)
	defer rdb.Close()

	c := NewDomainCache(rdb)
	ctx := context.Background()

	domain, err := c.Get(ctx, "0x5FbDB2315678afecb367f032d93F642f64180aa3")
	assert.Nil(t, domain)
	assert.ErrorIs(t, err, ErrCacheMiss)
}

// TestDomainCache_SetGet 测试写入后读取
func TestDomainCache_SetGet(t *testing.T) {
	_, rdb := setupTestRedis(t)
	defer rdb.Close()

	c := NewDomainCache(rdb)
	ctx := context.Background()

	domain := testDomain()
	require.NoError(t, c.Set(ctx, domain))

	got, err := c.Get(ctx, domain.Address)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, domain.Address, got.Address)
	assert.Equal(t, domain.Name, got.Name)
	assert.Equal(t, domain.ChainID, got.ChainID)
	assert.Equal(t, domain.Source, got.Source)
}

// TestDomainCache_Get_CaseInsensitive 测试地址大小写无关
func TestDomainCache_Get_CaseInsensitive(t *testing.T) {
	_, rdb := setupTestRedis(t)
	defer rdb.Close()

	c := NewDomainCache(rdb)
	ctx := context.Background()

	domain := testDomain()
	require.NoError(t, c.Set(ctx, domain))

	got, err := c.Get(ctx, "0x5fbdb2315678afecb367f032d93f642f64180aa3")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, domain.Address, got.Address)
}

// TestDomainCache_TTL 测试 TTL 过期
func TestDomainCache_TTL(t *testing.T) {
	mr, rdb := setupTestRedis(t)
	defer rdb.Close()

	c := NewDomainCacheWithTTL(rdb, 1*time.Second)
	ctx := context.Background()

	domain := testDomain()
	require.NoError(t, c.Set(ctx, domain))

	// 过期前可以命中
	_, err := c.Get(ctx, domain.Address)
	require.NoError(t, err)

	// 使用 miniredis 的 FastForward 模拟时间流逝
	mr.FastForward(2 * time.Second)

	_, err = c.Get(ctx, domain.Address)
	assert.ErrorIs(t, err, ErrCacheMiss)
}

// TestDomainCache_Get_CorruptedPayload 测试脏数据按未命中处理
func TestDomainCache_Get_CorruptedPayload(t *testing.T) {
	mr, rdb := setupTestRedis(t)
	defer rdb.Close()

	c := NewDomainCache(rdb)
	ctx := context.Background()

	key := DomainKeyPrefix + "0x5fbdb2315678afecb367f032d93f642f64180aa3"
	require.NoError(t, mr.Set(key, "not-json"))

	domain, err := c.Get(ctx, "0x5FbDB2315678afecb367f032d93F642f64180aa3")
	assert.Nil(t, domain)
	assert.ErrorIs(t, err, ErrCacheMiss)

	// 脏数据应该被清除
	assert.False(t, mr.Exists(key))
}

// TestDomainCache_Delete 测试删除缓存
func TestDomainCache_Delete(t *testing.T) {
	_, rdb := setupTestRedis(t)
	defer rdb.Close()

	c := NewDomainCache(rdb)
	ctx := context.Background()

	domain := testDomain()
	require.NoError(t, c.Set(ctx, domain))
	require.NoError(t, c.Delete(ctx, domain.Address))

	_, err := c.Get(ctx, domain.Address)
	assert.ErrorIs(t, err, ErrCacheMiss)
}

// TestDomainCache_KeyPrefix 测试 Redis Key 前缀
func TestDomainCache_KeyPrefix(t *testing.T) {
	mr, rdb := setupTestRedis(t)
	defer rdb.Close()

	c := NewDomainCache(rdb)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, testDomain()))

	keys := mr.Keys()
	require.Len(t, keys, 1)
	assert.True(t, len(keys[0]) > len(DomainKeyPrefix))
	assert.Equal(t, DomainKeyPrefix, keys[0][:len(DomainKeyPrefix)])
}

// TestDomainCache_Get_RedisDown 测试 Redis 不可用时返回错误
func TestDomainCache_Get_RedisDown(t *testing.T) {
	mr, rdb := setupTestRedis(t)
	defer rdb.Close()

	c := NewDomainCache(rdb)
	ctx := context.Background()

	mr.Close()

	_, err := c.Get(ctx, "0x5FbDB2315678afecb367f032d93F642f64180aa3")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCacheMiss)
}
