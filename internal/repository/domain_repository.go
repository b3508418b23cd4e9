package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/signet-labs/signet/internal/model"
)

var (
	ErrAccountDomainNotFound = errors.New("account domain not found")
)

// AccountDomainRepository 账户域仓储接口
type AccountDomainRepository interface {
	Upsert(ctx context.Context, domain *model.AccountDomain) error
	GetByAddress(ctx context.Context, address string) (*model.AccountDomain, error)
	GetByAddressForUpdate(ctx context.Context, address string) (*model.AccountDomain, error)
	List(ctx context.Context, page *Pagination) ([]*model.AccountDomain, error)
	ListStale(ctx context.Context, syncedBefore int64, limit int) ([]*model.AccountDomain, error)
	MarkSynced(ctx context.Context, address string, syncedAt int64) error
	Delete(ctx context.Context, address string) error

	Transaction(ctx context.Context, fn func(ctx context.Context) error) error
	TransactionWithRetry(ctx context.Context, maxRetries int, fn func(ctx context.Context) error) error
}

// accountDomainRepository 账户域仓储实现
type accountDomainRepository struct {
	*Repository
}

// NewAccountDomainRepository 创建账户域仓储
func NewAccountDomainRepository(db *gorm.DB) AccountDomainRepository {
	return &accountDomainRepository{
		Repository: NewRepository(db),
	}
}

// Upsert 按地址写入或更新域记录
func (r *accountDomainRepository) Upsert(ctx context.Context, domain *model.AccountDomain) error {
	now := time.Now().UnixMilli()
	if domain.CreatedAt == 0 {
		domain.CreatedAt = now
	}
	domain.UpdatedAt = now

	return r.DB(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "address"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"name", "version", "chain_id", "verifying_contract",
			"salt", "extensions", "source", "synced_at", "updated_at",
		}),
	}).Create(domain).Error
}

func (r *accountDomainRepository) GetByAddress(ctx context.Context, address string) (*model.AccountDomain, error) {
	var domain model.AccountDomain
	err := r.DB(ctx).Where("address = ?", address).First(&domain).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAccountDomainNotFound
	}
	if err != nil {
		return nil, err
	}
	return &domain, nil
}

func (r *accountDomainRepository) GetByAddressForUpdate(ctx context.Context, address string) (*model.AccountDomain, error) {
	var domain model.AccountDomain
	opts := &QueryOptions{ForUpdate: true}
	err := opts.ApplyLock(r.DB(ctx)).Where("address = ?", address).First(&domain).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAccountDomainNotFound
	}
	if err != nil {
		return nil, err
	}
	return &domain, nil
}

func (r *accountDomainRepository) List(ctx context.Context, page *Pagination) ([]*model.AccountDomain, error) {
	var domains []*model.AccountDomain

	query := r.DB(ctx).Model(&model.AccountDomain{})

	if err := query.Count(&page.Total).Error; err != nil {
		return nil, err
	}

	err := query.
		Order("created_at DESC").
		Offset(page.Offset()).
		Limit(page.Limit()).
		Find(&domains).Error
	return domains, err
}

// ListStale 列出同步时间早于给定时刻的链上来源域
func (r *accountDomainRepository) ListStale(ctx context.Context, syncedBefore int64, limit int) ([]*model.AccountDomain, error) {
	var domains []*model.AccountDomain
	err := r.DB(ctx).
		Where("source = ? AND synced_at < ?", model.DomainSourceChain, syncedBefore).
		Order("synced_at ASC").
		Limit(limit).
		Find(&domains).Error
	return domains, err
}

func (r *accountDomainRepository) MarkSynced(ctx context.Context, address string, syncedAt int64) error {
	result := r.DB(ctx).Model(&model.AccountDomain{}).
		Where("address = ?", address).
		Updates(map[string]interface{}{
			"synced_at":  syncedAt,
			"updated_at": time.Now().UnixMilli(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrAccountDomainNotFound
	}
	return nil
}

func (r *accountDomainRepository) Delete(ctx context.Context, address string) error {
	result := r.DB(ctx).Where("address = ?", address).Delete(&model.AccountDomain{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrAccountDomainNotFound
	}
	return nil
}
