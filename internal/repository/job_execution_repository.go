package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/signet-labs/signet/internal/model"
)

var (
	ErrJobExecutionNotFound = errors.New("job execution not found")
)

// JobExecutionRepository 任务执行记录仓储接口
type JobExecutionRepository interface {
	Create(ctx context.Context, exec *model.JobExecution) error
	Update(ctx context.Context, exec *model.JobExecution) error
	GetLatestByJobName(ctx context.Context, jobName string) (*model.JobExecution, error)
	ListByJobName(ctx context.Context, jobName string, page *Pagination) ([]*model.JobExecution, error)
	DeleteOlderThan(ctx context.Context, cutoff int64) (int64, error)
}

// jobExecutionRepository 任务执行记录仓储实现
type jobExecutionRepository struct {
	*Repository
}

// NewJobExecutionRepository 创建任务执行记录仓储
func NewJobExecutionRepository(db *gorm.DB) JobExecutionRepository {
	return &jobExecutionRepository{
		Repository: NewRepository(db),
	}
}

func (r *jobExecutionRepository) Create(ctx context.Context, exec *model.JobExecution) error {
	return r.DB(ctx).Create(exec).Error
}

func (r *jobExecutionRepository) Update(ctx context.Context, exec *model.JobExecution) error {
	return r.DB(ctx).Save(exec).Error
}

func (r *jobExecutionRepository) GetLatestByJobName(ctx context.Context, jobName string) (*model.JobExecution, error) {
	var exec model.JobExecution
	err := r.DB(ctx).
		Where("job_name = ?", jobName).
		Order("started_at DESC").
		First(&exec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &exec, nil
}

func (r *jobExecutionRepository) ListByJobName(ctx context.Context, jobName string, page *Pagination) ([]*model.JobExecution, error) {
	var execs []*model.JobExecution

	query := r.DB(ctx).Model(&model.JobExecution{}).Where("job_name = ?", jobName)

	if err := query.Count(&page.Total).Error; err != nil {
		return nil, err
	}

	err := query.
		Order("started_at DESC").
		Offset(page.Offset()).
		Limit(page.Limit()).
		Find(&execs).Error
	return execs, err
}

// DeleteOlderThan 删除给定时刻之前的执行记录，返回删除行数
func (r *jobExecutionRepository) DeleteOlderThan(ctx context.Context, cutoff int64) (int64, error) {
	result := r.DB(ctx).
		Where("started_at < ?", cutoff).
		Delete(&model.JobExecution{})
	return result.RowsAffected, result.Error
}
