package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// retryBaseDelay 重试退避基准间隔
const retryBaseDelay = 100 * time.Millisecond

// retryablePgCodes 值得重试的 PostgreSQL 错误码。
// 串行化冲突与死锁重跑即可成功，连接和资源压力类错误可能随负载回落恢复。
// 磁盘满(53100)、内存不足(53200)和各类停库错误(57P01/57P02/57P04)需要人工
// 介入，不在表内。
var retryablePgCodes = map[string]struct{}{
	"40001": {}, // serialization_failure
	"40P01": {}, // deadlock_detected
	"08000": {}, // connection_exception
	"08001": {}, // sqlclient_unable_to_establish_sqlconnection
	"08006": {}, // connection_failure
	"53000": {}, // insufficient_resources
	"53300": {}, // too_many_connections
	"57014": {}, // query_canceled
	"57P03": {}, // cannot_connect_now
}

// pgErrDuplicateKey 唯一约束冲突错误码
const pgErrDuplicateKey = "23505"

// Repository 基础仓储，各业务仓储内嵌复用事务与分页能力
type Repository struct {
	db *gorm.DB
}

// NewRepository 创建基础仓储
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// txKey 事务上下文键
type txKey struct{}

// DB 返回当前数据库句柄，处于事务中时返回事务句柄
func (r *Repository) DB(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx
	}
	return r.db.WithContext(ctx)
}

// Transaction 在单个事务内执行 fn，事务句柄经上下文传递给嵌套仓储调用
func (r *Repository) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

// TransactionWithRetry 执行事务并对临时性失败指数退避重试，
// 上下文取消时立即放弃等待
func (r *Repository) TransactionWithRetry(ctx context.Context, maxRetries int, fn func(ctx context.Context) error) error {
	if maxRetries < 1 {
		maxRetries = 1
	}

	var err error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if err = r.Transaction(ctx, fn); err == nil {
			return nil
		}
		if !isRetryableError(err) {
			return err
		}
		if attempt == maxRetries-1 {
			break
		}

		timer := time.NewTimer(retryBaseDelay << uint(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return fmt.Errorf("transaction failed after %d attempts: %w", maxRetries, err)
}

// isRetryableError 判断错误是否为临时性、值得重试的数据库错误
func isRetryableError(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	_, ok := retryablePgCodes[pgErr.Code]
	return ok
}

// isDuplicateKeyError 判断是否为唯一约束冲突
func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgErrDuplicateKey
	}
	// 驱动包装层可能吞掉错误类型，退化为文本匹配
	if err != nil {
		msg := err.Error()
		return strings.Contains(msg, "duplicate key") || strings.Contains(msg, pgErrDuplicateKey)
	}
	return false
}

// 分页默认值与上限
const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Pagination 分页参数，Total 由查询回填
type Pagination struct {
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
	Total    int64 `json:"total"`
}

// Offset 计算偏移量，非法页码归一到首页
func (p *Pagination) Offset() int {
	if p.Page < 1 {
		p.Page = 1
	}
	return (p.Page - 1) * p.Limit()
}

// Limit 返回单页条数，越界值收敛到默认与上限之间
func (p *Pagination) Limit() int {
	if p.PageSize < 1 {
		p.PageSize = defaultPageSize
	}
	if p.PageSize > maxPageSize {
		p.PageSize = maxPageSize
	}
	return p.PageSize
}

// QueryOptions 查询选项
type QueryOptions struct {
	ForUpdate bool
	NoWait    bool
}

// ApplyLock 按选项追加行锁子句
func (o *QueryOptions) ApplyLock(db *gorm.DB) *gorm.DB {
	if o == nil || !o.ForUpdate {
		return db
	}
	locking := clause.Locking{Strength: "UPDATE"}
	if o.NoWait {
		locking.Options = "NOWAIT"
	}
	return db.Clauses(locking)
}

// TimeRange 毫秒时间戳区间
type TimeRange struct {
	Start int64
	End   int64
}

// IsValid 区间两端均为正且起点不晚于终点
func (tr *TimeRange) IsValid() bool {
	if tr == nil {
		return false
	}
	return tr.Start > 0 && tr.End > 0 && tr.Start <= tr.End
}
