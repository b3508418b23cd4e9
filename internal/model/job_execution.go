package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
)

// JobStatus 任务执行状态
type JobStatus string

const (
	JobStatusRunning JobStatus = "RUNNING"
	JobStatusSuccess JobStatus = "SUCCESS"
	JobStatusFailed  JobStatus = "FAILED"
	JobStatusSkipped JobStatus = "SKIPPED"
)

// JSONResult 任务结果 (JSONB)
type JSONResult map[string]interface{}

// Value 实现 driver.Valuer
func (r JSONResult) Value() (driver.Value, error) {
	if r == nil {
		return nil, nil
	}
	return json.Marshal(r)
}

// Scan 实现 sql.Scanner
func (r *JSONResult) Scan(value interface{}) error {
	if value == nil {
		*r = nil
		return nil
	}
	data, ok := value.([]byte)
	if !ok {
		if s, ok := value.(string); ok {
			data = []byte(s)
		} else {
			return errors.New("unsupported type for JSONResult")
		}
	}
	return json.Unmarshal(data, r)
}

// JobExecution 任务执行记录
type JobExecution struct {
	ID           int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	JobName      string     `gorm:"column:job_name;type:varchar(64);index;not null" json:"job_name"`
	Status       JobStatus  `gorm:"column:status;type:varchar(16);not null" json:"status"`
	StartedAt    int64      `gorm:"column:started_at;type:bigint;not null" json:"started_at"`
	FinishedAt   *int64     `gorm:"column:finished_at;type:bigint" json:"finished_at"`
	DurationMs   *int       `gorm:"column:duration_ms;type:int" json:"duration_ms"`
	Result       JSONResult `gorm:"column:result;type:jsonb" json:"result"`
	ErrorMessage *string    `gorm:"column:error_message;type:text" json:"error_message"`
	CreatedAt    int64      `gorm:"column:created_at;type:bigint;autoCreateTime:milli" json:"created_at"`
}

// TableName 返回表名
func (JobExecution) TableName() string {
	return "signet_job_executions"
}
