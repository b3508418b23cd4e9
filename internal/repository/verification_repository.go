package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/signet-labs/signet/internal/model"
)

var (
	ErrVerificationNotFound   = errors.New("verification record not found")
	ErrDuplicateVerification  = errors.New("duplicate verification record")
	ErrInvalidVerifyTimeRange = errors.New("invalid verification time range")
)

// VerificationRepository 验证记录仓储接口
type VerificationRepository interface {
	Create(ctx context.Context, record *model.VerificationRecord) error
	GetByRequestID(ctx context.Context, requestID string) (*model.VerificationRecord, error)
	List(ctx context.Context, page *Pagination) ([]*model.VerificationRecord, error)
	ListByAccount(ctx context.Context, address string, page *Pagination) ([]*model.VerificationRecord, error)
	ListByOutcome(ctx context.Context, outcome model.VerificationOutcome, page *Pagination) ([]*model.VerificationRecord, error)
	ListByTimeRange(ctx context.Context, tr *TimeRange, page *Pagination) ([]*model.VerificationRecord, error)
	CountByOutcome(ctx context.Context, outcome model.VerificationOutcome) (int64, error)
	DeleteOlderThan(ctx context.Context, cutoff int64) (int64, error)
}

// verificationRepository 验证记录仓储实现
type verificationRepository struct {
	*Repository
}

// NewVerificationRepository 创建验证记录仓储
func NewVerificationRepository(db *gorm.DB) VerificationRepository {
	return &verificationRepository{
		Repository: NewRepository(db),
	}
}

func (r *verificationRepository) Create(ctx context.Context, record *model.VerificationRecord) error {
	if record.CreatedAt == 0 {
		record.CreatedAt = time.Now().UnixMilli()
	}

	err := r.DB(ctx).Create(record).Error
	if err != nil && isDuplicateKeyError(err) {
		return ErrDuplicateVerification
	}
	return err
}

func (r *verificationRepository) GetByRequestID(ctx context.Context, requestID string) (*model.VerificationRecord, error) {
	var record model.VerificationRecord
	err := r.DB(ctx).Where("request_id = ?", requestID).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrVerificationNotFound
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *verificationRepository) List(ctx context.Context, page *Pagination) ([]*model.VerificationRecord, error) {
	var records []*model.VerificationRecord

	query := r.DB(ctx).Model(&model.VerificationRecord{})

	if err := query.Count(&page.Total).Error; err != nil {
		return nil, err
	}

	err := query.
		Order("created_at DESC").
		Offset(page.Offset()).
		Limit(page.Limit()).
		Find(&records).Error
	return records, err
}

func (r *verificationRepository) ListByAccount(ctx context.Context, address string, page *Pagination) ([]*model.VerificationRecord, error) {
	var records []*model.VerificationRecord

	query := r.DB(ctx).Model(&model.VerificationRecord{}).Where("account_address = ?", address)

	if err := query.Count(&page.Total).Error; err != nil {
		return nil, err
	}

	err := query.
		Order("created_at DESC").
		Offset(page.Offset()).
		Limit(page.Limit()).
		Find(&records).Error
	return records, err
}

func (r *verificationRepository) ListByOutcome(ctx context.Context, outcome model.VerificationOutcome, page *Pagination) ([]*model.VerificationRecord, error) {
	var records []*model.VerificationRecord

	query := r.DB(ctx).Model(&model.VerificationRecord{}).Where("outcome = ?", outcome)

	if err := query.Count(&page.Total).Error; err != nil {
		return nil, err
	}

	err := query.
		Order("created_at DESC").
		Offset(page.Offset()).
		Limit(page.Limit()).
		Find(&records).Error
	return records, err
}

func (r *verificationRepository) ListByTimeRange(ctx context.Context, tr *TimeRange, page *Pagination) ([]*model.VerificationRecord, error) {
	if !tr.IsValid() {
		return nil, ErrInvalidVerifyTimeRange
	}

	var records []*model.VerificationRecord

	query := r.DB(ctx).Model(&model.VerificationRecord{}).
		Where("created_at >= ? AND created_at <= ?", tr.Start, tr.End)

	if err := query.Count(&page.Total).Error; err != nil {
		return nil, err
	}

	err := query.
		Order("created_at DESC").
		Offset(page.Offset()).
		Limit(page.Limit()).
		Find(&records).Error
	return records, err
}

func (r *verificationRepository) CountByOutcome(ctx context.Context, outcome model.VerificationOutcome) (int64, error) {
	var count int64
	err := r.DB(ctx).Model(&model.VerificationRecord{}).
		Where("outcome = ?", outcome).
		Count(&count).Error
	return count, err
}

// DeleteOlderThan 删除给定时刻之前的记录，返回删除行数
func (r *verificationRepository) DeleteOlderThan(ctx context.Context, cutoff int64) (int64, error) {
	result := r.DB(ctx).
		Where("created_at < ?", cutoff).
		Delete(&model.VerificationRecord{})
	return result.RowsAffected, result.Error
}
