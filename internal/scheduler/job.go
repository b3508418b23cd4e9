package scheduler

import (
	"context"
	"time"

	"github.com/signet-labs/signet/internal/model"
)

// 任务名称常量
const (
	JobNameDomainRefresh = "domain-refresh"
	JobNameRecordCleanup = "record-cleanup"
)

// Job 可调度任务。LockTTL 为零表示任务不需要跨实例互斥，
// UseWatchdog 只对可能超过一个 TTL 的长任务有意义。
type Job interface {
	Name() string
	Execute(ctx context.Context) (*JobResult, error)
	Timeout() time.Duration
	RequiresLock() bool
	LockTTL() time.Duration
	UseWatchdog() bool
}

// JobResult 任务执行结果汇总
type JobResult struct {
	ProcessedCount int
	AffectedCount  int
	ErrorCount     int
	// Details 任务自定义的补充字段，与计数一起落进执行记录
	Details map[string]interface{}
}

// ToJSONResult 展开为执行记录的 JSON 字段
func (r *JobResult) ToJSONResult() model.JSONResult {
	if r == nil {
		return nil
	}
	out := model.JSONResult{
		"processed_count": r.ProcessedCount,
		"affected_count":  r.AffectedCount,
		"error_count":     r.ErrorCount,
	}
	for k, v := range r.Details {
		out[k] = v
	}
	return out
}

// BaseJob 供具体任务内嵌的公共字段
type BaseJob struct {
	name        string
	timeout     time.Duration
	lockTTL     time.Duration
	useWatchdog bool
}

// NewBaseJob 创建基础任务
func NewBaseJob(name string, timeout, lockTTL time.Duration, useWatchdog bool) BaseJob {
	return BaseJob{name: name, timeout: timeout, lockTTL: lockTTL, useWatchdog: useWatchdog}
}

func (j BaseJob) Name() string { return j.name }

func (j BaseJob) Timeout() time.Duration { return j.timeout }

func (j BaseJob) RequiresLock() bool { return j.lockTTL > 0 }

func (j BaseJob) LockTTL() time.Duration { return j.lockTTL }

func (j BaseJob) UseWatchdog() bool { return j.useWatchdog }

// JobDefaults 任务的出厂调度参数
type JobDefaults struct {
	Cron        string
	Timeout     time.Duration
	LockTTL     time.Duration
	UseWatchdog bool
}

// DefaultJobConfigs 各任务默认配置，锁 TTL 必须长于超时
var DefaultJobConfigs = map[string]JobDefaults{
	JobNameDomainRefresh: {
		Cron:        "0 */10 * * * *", // 每10分钟
		Timeout:     5 * time.Minute,
		LockTTL:     6 * time.Minute,
		UseWatchdog: true,
	},
	JobNameRecordCleanup: {
		Cron:        "0 0 3 * * *", // 每日凌晨3点
		Timeout:     10 * time.Minute,
		LockTTL:     12 * time.Minute,
		UseWatchdog: false,
	},
}
