package jobs

import (
	"context"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/signet-labs/signet/internal/model"
	"github.com/signet-labs/signet/internal/scheduler"
	"github.com/signet-labs/signet/pkg/eip712"
	"github.com/signet-labs/signet/pkg/logger"
)

// ChainDomainReader 从账户合约读取域参数
type ChainDomainReader interface {
	ReadDomain(ctx context.Context, account common.Address) (*eip712.Domain, error)
}

// DomainStore 域刷新需要的仓储操作
type DomainStore interface {
	ListStale(ctx context.Context, syncedBefore int64, limit int) ([]*model.AccountDomain, error)
	Upsert(ctx context.Context, domain *model.AccountDomain) error
	MarkSynced(ctx context.Context, address string, syncedAt int64) error
}

// DomainCache 刷新后需要失效的域缓存
type DomainCache interface {
	Delete(ctx context.Context, address string) error
}

// DomainEventPublisher 域更新事件发布
type DomainEventPublisher interface {
	PublishDomainUpdate(ctx context.Context, event *model.DomainUpdatedEvent) error
}

// DomainRefreshConfig 域刷新任务配置
type DomainRefreshConfig struct {
	// StaleAfter 上次同步早于该时长的链上域才会被刷新
	StaleAfter time.Duration
	// BatchSize 每批读取的账户数
	BatchSize int
}

// DefaultDomainRefreshConfig 默认域刷新配置
var DefaultDomainRefreshConfig = &DomainRefreshConfig{
	StaleAfter: 30 * time.Minute,
	BatchSize:  50,
}

// DomainRefreshJob 定期重读链上注册账户的 EIP-712 域
//
// 账户合约升级后域参数可能变化 (EIP-5267 允许动态域)，过期的本地副本会让
// 验证引擎重建出错误的摘要。任务只处理 source=chain 的记录，域有变化时更新
// 仓储、失效缓存并发布 domain-updated 事件，无变化时仅推进同步时间。
type DomainRefreshJob struct {
	scheduler.BaseJob
	domainRepo  DomainStore
	reader      ChainDomainReader
	domainCache DomainCache
	publisher   DomainEventPublisher
	cfg         *DomainRefreshConfig
}

// NewDomainRefreshJob 创建域刷新任务
func NewDomainRefreshJob(
	domainRepo DomainStore,
	reader ChainDomainReader,
	domainCache DomainCache,
	publisher DomainEventPublisher,
	cfg *DomainRefreshConfig,
) *DomainRefreshJob {
	jobCfg := scheduler.DefaultJobConfigs[scheduler.JobNameDomainRefresh]

	if cfg == nil {
		cfg = DefaultDomainRefreshConfig
	}
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = DefaultDomainRefreshConfig.StaleAfter
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultDomainRefreshConfig.BatchSize
	}

	return &DomainRefreshJob{
		BaseJob: scheduler.NewBaseJob(
			scheduler.JobNameDomainRefresh,
			jobCfg.Timeout,
			jobCfg.LockTTL,
			jobCfg.UseWatchdog,
		),
		domainRepo:  domainRepo,
		reader:      reader,
		domainCache: domainCache,
		publisher:   publisher,
		cfg:         cfg,
	}
}

// Execute 执行域刷新
func (j *DomainRefreshJob) Execute(ctx context.Context) (*scheduler.JobResult, error) {
	result := &scheduler.JobResult{
		Details: make(map[string]interface{}),
	}

	cutoff := time.Now().Add(-j.cfg.StaleAfter).UnixMilli()

	totalProcessed := 0
	totalRefreshed := 0
	totalUnchanged := 0
	totalErrors := 0

	for {
		select {
		case <-ctx.Done():
			result.ProcessedCount = totalProcessed
			result.AffectedCount = totalRefreshed
			result.ErrorCount = totalErrors
			return result, ctx.Err()
		default:
		}

		stale, err := j.domainRepo.ListStale(ctx, cutoff, j.cfg.BatchSize)
		if err != nil {
			logger.Error("failed to list stale domains", "error", err)
			totalErrors++
			break
		}

		if len(stale) == 0 {
			break
		}

		progressed := 0
		for _, rec := range stale {
			totalProcessed++

			changed, err := j.refreshOne(ctx, rec)
			if err != nil {
				logger.Warn("failed to refresh account domain",
					"address", rec.Address,
					"error", err)
				totalErrors++
				continue
			}

			progressed++
			if changed {
				totalRefreshed++
			} else {
				totalUnchanged++
			}
		}

		// 批次内无进展说明剩下的都是坏账户，停止以免空转
		if progressed == 0 || len(stale) < j.cfg.BatchSize {
			break
		}
	}

	result.ProcessedCount = totalProcessed
	result.AffectedCount = totalRefreshed
	result.ErrorCount = totalErrors
	result.Details["refreshed"] = totalRefreshed
	result.Details["unchanged"] = totalUnchanged

	logger.Info("domain refresh completed",
		"processed", totalProcessed,
		"refreshed", totalRefreshed,
		"unchanged", totalUnchanged,
		"errors", totalErrors)

	return result, nil
}

// refreshOne 重读单个账户的域，返回域是否有变化
func (j *DomainRefreshJob) refreshOne(ctx context.Context, rec *model.AccountDomain) (bool, error) {
	domain, err := j.reader.ReadDomain(ctx, common.HexToAddress(rec.Address))
	if err != nil {
		return false, err
	}

	changed, err := applyChainDomain(rec, domain)
	if err != nil {
		return false, err
	}

	now := time.Now().UnixMilli()

	if !changed {
		// 域未变化，只推进同步时间，避免每轮重复读同一账户
		return false, j.domainRepo.MarkSynced(ctx, rec.Address, now)
	}

	rec.SyncedAt = now
	if err := j.domainRepo.Upsert(ctx, rec); err != nil {
		return false, err
	}

	if err := j.domainCache.Delete(ctx, rec.Address); err != nil {
		logger.Warn("invalidate domain cache failed",
			"address", rec.Address,
			"error", err)
	}

	event := &model.DomainUpdatedEvent{
		Address:           rec.Address,
		Name:              rec.Name,
		Version:           rec.Version,
		ChainID:           rec.ChainID,
		VerifyingContract: rec.VerifyingContract,
		Source:            rec.Source,
		UpdatedAt:         now,
	}
	if err := j.publisher.PublishDomainUpdate(ctx, event); err != nil {
		logger.Warn("publish domain updated event failed",
			"address", rec.Address,
			"error", err)
	}

	return true, nil
}

// applyChainDomain 将链上域写回记录，返回是否有字段变化
func applyChainDomain(rec *model.AccountDomain, domain *eip712.Domain) (bool, error) {
	verifying := strings.ToLower(domain.VerifyingContract.Hex())

	var chainID int64
	if domain.ChainID != nil {
		chainID = domain.ChainID.Int64()
	}

	var salt string
	if domain.Salt != (common.Hash{}) {
		salt = domain.Salt.Hex()
	}

	changed := false
	if rec.Name != domain.Name {
		rec.Name = domain.Name
		changed = true
	}
	if rec.Version != domain.Version {
		rec.Version = domain.Version
		changed = true
	}
	if rec.ChainID != chainID {
		rec.ChainID = chainID
		changed = true
	}
	if rec.VerifyingContract != verifying {
		rec.VerifyingContract = verifying
		changed = true
	}
	if rec.Salt != salt {
		rec.Salt = salt
		changed = true
	}

	prevExtensions := rec.Extensions
	if err := rec.SetExtensions(domain.Extensions); err != nil {
		return changed, err
	}
	if rec.Extensions != prevExtensions {
		changed = true
	}

	return changed, nil
}
