package jobs

import (
	"context"
	"time"

	"github.com/signet-labs/signet/internal/scheduler"
	"github.com/signet-labs/signet/pkg/logger"
)

// RecordPurger 按时间删除一类记录
type RecordPurger interface {
	DeleteOlderThan(ctx context.Context, cutoff int64) (int64, error)
}

// RecordCleanupConfig 记录清理任务配置
type RecordCleanupConfig struct {
	// Retention 验证记录与任务执行记录的保留时长
	Retention time.Duration
}

// DefaultRecordCleanupConfig 默认清理配置
var DefaultRecordCleanupConfig = &RecordCleanupConfig{
	Retention: 30 * 24 * time.Hour,
}

// RecordCleanupJob 清理超过保留期的审计与执行记录
//
// 验证记录只增不改，表会无限增长。任务按 created_at 删除验证记录，
// 按 started_at 删除任务执行记录，两类删除互不影响。
type RecordCleanupJob struct {
	scheduler.BaseJob
	verifyRepo RecordPurger
	execRepo   RecordPurger
	cfg        *RecordCleanupConfig
}

// NewRecordCleanupJob 创建记录清理任务
func NewRecordCleanupJob(
	verifyRepo RecordPurger,
	execRepo RecordPurger,
	cfg *RecordCleanupConfig,
) *RecordCleanupJob {
	jobCfg := scheduler.DefaultJobConfigs[scheduler.JobNameRecordCleanup]

	if cfg == nil {
		cfg = DefaultRecordCleanupConfig
	}
	if cfg.Retention <= 0 {
		cfg.Retention = DefaultRecordCleanupConfig.Retention
	}

	return &RecordCleanupJob{
		BaseJob: scheduler.NewBaseJob(
			scheduler.JobNameRecordCleanup,
			jobCfg.Timeout,
			jobCfg.LockTTL,
			jobCfg.UseWatchdog,
		),
		verifyRepo: verifyRepo,
		execRepo:   execRepo,
		cfg:        cfg,
	}
}

// Execute 执行记录清理
func (j *RecordCleanupJob) Execute(ctx context.Context) (*scheduler.JobResult, error) {
	result := &scheduler.JobResult{
		Details: make(map[string]interface{}),
	}

	cutoff := time.Now().Add(-j.cfg.Retention).UnixMilli()

	totalDeleted := int64(0)
	totalErrors := 0

	deletedVerifications, err := j.verifyRepo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		logger.Error("failed to delete old verification records", "error", err)
		totalErrors++
	} else {
		totalDeleted += deletedVerifications
		result.Details["deleted_verifications"] = deletedVerifications
	}

	deletedExecutions, err := j.execRepo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		logger.Error("failed to delete old job executions", "error", err)
		totalErrors++
	} else {
		totalDeleted += deletedExecutions
		result.Details["deleted_executions"] = deletedExecutions
	}

	result.ProcessedCount = int(totalDeleted)
	result.AffectedCount = int(totalDeleted)
	result.ErrorCount = totalErrors

	logger.Info("record cleanup completed",
		"cutoff", cutoff,
		"deleted", totalDeleted,
		"errors", totalErrors)

	return result, nil
}
