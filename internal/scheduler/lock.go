package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/signet-labs/signet/pkg/logger"
)

const lockPrefix = "signet:job:lock:"

// 比对持有者令牌，只删自己的锁
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// 比对持有者令牌，只给自己的锁续期
var renewScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

var errLockLost = errors.New("lock no longer held")

// DistributedLock 基于 SetNX 的任务级分布式锁。
// value 是本实例的持有者令牌，释放与续期都先比对令牌，防止误操作他人的锁。
type DistributedLock struct {
	client      redis.UniversalClient
	key         string
	value       string
	ttl         time.Duration
	useWatchdog bool
	done        chan struct{}
	stopOnce    sync.Once
	wg          sync.WaitGroup
}

// NewDistributedLock 创建分布式锁
func NewDistributedLock(client redis.UniversalClient, jobName string, ttl time.Duration, useWatchdog bool) *DistributedLock {
	return &DistributedLock{
		client:      client,
		key:         lockPrefix + jobName,
		value:       uuid.NewString(),
		ttl:         ttl,
		useWatchdog: useWatchdog,
		done:        make(chan struct{}),
	}
}

// TryLock 非阻塞抢锁，成功且开启 watchdog 时启动续期协程
func (l *DistributedLock) TryLock(ctx context.Context) (bool, error) {
	ok, err := l.client.SetNX(ctx, l.key, l.value, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire lock: %w", err)
	}
	if ok && l.useWatchdog {
		l.keepAlive(ctx)
	}
	return ok, nil
}

// Unlock 停掉续期协程后释放锁，重复调用安全
func (l *DistributedLock) Unlock(ctx context.Context) error {
	l.stopOnce.Do(func() { close(l.done) })
	l.wg.Wait()

	if _, err := unlockScript.Run(ctx, l.client, []string{l.key}, l.value).Result(); err != nil && err != redis.Nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	return nil
}

// IsHeld 检查锁是否仍由本实例持有
func (l *DistributedLock) IsHeld(ctx context.Context) (bool, error) {
	val, err := l.client.Get(ctx, l.key).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return val == l.value, nil
}

// keepAlive 在 TTL 的 1/3 间隔上续期，直到解锁或上下文结束
func (l *DistributedLock) keepAlive(ctx context.Context) {
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()

		ticker := time.NewTicker(l.ttl / 3)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-l.done:
				return
			case <-ticker.C:
				if err := l.extend(ctx); err != nil {
					logger.Warn("failed to renew job lock", "key", l.key, "error", err)
				}
			}
		}
	}()
}

// extend 续期一次，锁已易主时报错
func (l *DistributedLock) extend(ctx context.Context) error {
	res, err := renewScript.Run(ctx, l.client, []string{l.key}, l.value, l.ttl.Milliseconds()).Result()
	if err != nil {
		return err
	}
	if n, ok := res.(int64); !ok || n == 0 {
		return errLockLost
	}
	return nil
}

// LockManager 按任务名生产锁并提供运维侧查询
type LockManager struct {
	client redis.UniversalClient
}

// NewLockManager 创建锁管理器
func NewLockManager(client redis.UniversalClient) *LockManager {
	return &LockManager{client: client}
}

// NewLock 为任务创建一把新锁
func (m *LockManager) NewLock(jobName string, ttl time.Duration, useWatchdog bool) *DistributedLock {
	return NewDistributedLock(m.client, jobName, ttl, useWatchdog)
}

// IsLocked 检查任务锁是否存在，不区分持有者
func (m *LockManager) IsLocked(ctx context.Context, jobName string) (bool, error) {
	n, err := m.client.Exists(ctx, lockPrefix+jobName).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ForceUnlock 无视持有者直接删锁，仅供人工干预
func (m *LockManager) ForceUnlock(ctx context.Context, jobName string) error {
	return m.client.Del(ctx, lockPrefix+jobName).Err()
}

// GetLockInfo 返回锁的持有者令牌与剩余有效期
func (m *LockManager) GetLockInfo(ctx context.Context, jobName string) (string, time.Duration, error) {
	key := lockPrefix + jobName

	pipe := m.client.Pipeline()
	valCmd := pipe.Get(ctx, key)
	ttlCmd := pipe.TTL(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return "", 0, err
	}

	val, _ := valCmd.Result()
	ttl, _ := ttlCmd.Result()
	return val, ttl, nil
}
