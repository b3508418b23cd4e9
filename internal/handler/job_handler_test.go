package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/signet-labs/signet/internal/dto"
	"github.com/signet-labs/signet/internal/model"
	"github.com/signet-labs/signet/internal/repository"
	"github.com/signet-labs/signet/internal/scheduler"
)

// MockJobScheduler Mock 任务调度器
type MockJobScheduler struct {
	mock.Mock
}

func (m *MockJobScheduler) GetJobStatus(jobName string) (*scheduler.JobStatus, error) {
	args := m.Called(jobName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*scheduler.JobStatus), args.Error(1)
}

func (m *MockJobScheduler) ListJobStatus() ([]*scheduler.JobStatus, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*scheduler.JobStatus), args.Error(1)
}

func (m *MockJobScheduler) TriggerJob(jobName string) error {
	args := m.Called(jobName)
	return args.Error(0)
}

// MockJobExecutionRepository Mock 任务执行记录仓储
type MockJobExecutionRepository struct {
	mock.Mock
}

func (m *MockJobExecutionRepository) Create(ctx context.Context, exec *model.JobExecution) error {
	args := m.Called(ctx, exec)
	return args.Error(0)
}

func (m *MockJobExecutionRepository) Update(ctx context.Context, exec *model.JobExecution) error {
	args := m.Called(ctx, exec)
	return args.Error(0)
}

func (m *MockJobExecutionRepository) GetLatestByJobName(ctx context.Context, jobName string) (*model.JobExecution, error) {
	args := m.Called(ctx, jobName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.JobExecution), args.Error(1)
}

func (m *MockJobExecutionRepository) ListByJobName(ctx context.Context, jobName string, page *repository.Pagination) ([]*model.JobExecution, error) {
	args := m.Called(ctx, jobName, page)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.JobExecution), args.Error(1)
}

func (m *MockJobExecutionRepository) DeleteOlderThan(ctx context.Context, cutoff int64) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

// setupJobHandler 设置测试用的路由和 Handler
func setupJobHandler(sched *MockJobScheduler, execRepo *MockJobExecutionRepository) (*gin.Engine, *JobHandler) {
	r := gin.New()
	h := NewJobHandler(sched, execRepo)
	return r, h
}

func refreshJobStatus() *scheduler.JobStatus {
	return &scheduler.JobStatus{
		Name:           "domain-refresh",
		Enabled:        true,
		Cron:           "0 */10 * * * *",
		Timeout:        5 * time.Minute,
		IsLocked:       false,
		LastStatus:     "SUCCESS",
		LastStartedAt:  1700000000000,
		LastFinishedAt: 1700000001000,
		LastDurationMs: 1000,
	}
}

// TestListJobs_Success 测试列出任务状态成功
func TestListJobs_Success(t *testing.T) {
	mockSched := new(MockJobScheduler)
	mockRepo := new(MockJobExecutionRepository)
	r, h := setupJobHandler(mockSched, mockRepo)

	statuses := []*scheduler.JobStatus{
		refreshJobStatus(),
		{Name: "record-cleanup", Enabled: true, Cron: "0 0 3 * * *", Timeout: 10 * time.Minute},
	}
	mockSched.On("ListJobStatus").Return(statuses, nil)

	r.GET("/api/v1/jobs", h.ListJobs)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/api/v1/jobs", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Code int                      `json:"code"`
		Data []*dto.JobStatusResponse `json:"data"`
	}
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, 0, resp.Code)
	require.Len(t, resp.Data, 2)
	assert.Equal(t, "domain-refresh", resp.Data[0].Name)
	assert.Equal(t, 300, resp.Data[0].TimeoutSeconds)
	assert.Equal(t, "SUCCESS", resp.Data[0].LastStatus)
	assert.Equal(t, "record-cleanup", resp.Data[1].Name)

	mockSched.AssertExpectations(t)
}

// TestListJobs_SchedulerError 测试调度器出错
func TestListJobs_SchedulerError(t *testing.T) {
	mockSched := new(MockJobScheduler)
	mockRepo := new(MockJobExecutionRepository)
	r, h := setupJobHandler(mockSched, mockRepo)

	mockSched.On("ListJobStatus").Return(nil, errors.New("redis down"))

	r.GET("/api/v1/jobs", h.ListJobs)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/api/v1/jobs", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

// TestGetJob_Success 测试获取单个任务状态成功
func TestGetJob_Success(t *testing.T) {
	mockSched := new(MockJobScheduler)
	mockRepo := new(MockJobExecutionRepository)
	r, h := setupJobHandler(mockSched, mockRepo)

	mockSched.On("GetJobStatus", "domain-refresh").Return(refreshJobStatus(), nil)

	r.GET("/api/v1/jobs/:name", h.GetJob)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/api/v1/jobs/domain-refresh", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Code int                    `json:"code"`
		Data *dto.JobStatusResponse `json:"data"`
	}
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, 0, resp.Code)
	assert.Equal(t, "domain-refresh", resp.Data.Name)
	assert.Equal(t, "0 */10 * * * *", resp.Data.Cron)
	assert.True(t, resp.Data.Enabled)
}

// TestGetJob_NotFound 测试获取未注册的任务
func TestGetJob_NotFound(t *testing.T) {
	mockSched := new(MockJobScheduler)
	mockRepo := new(MockJobExecutionRepository)
	r, h := setupJobHandler(mockSched, mockRepo)

	mockSched.On("GetJobStatus", "unknown").Return(nil, errors.New("job unknown not found"))

	r.GET("/api/v1/jobs/:name", h.GetJob)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/api/v1/jobs/unknown", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)

	var resp dto.Response
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, dto.ErrJobNotFound.Code, resp.Code)
}

// TestTriggerJob_Success 测试手动触发任务成功
func TestTriggerJob_Success(t *testing.T) {
	mockSched := new(MockJobScheduler)
	mockRepo := new(MockJobExecutionRepository)
	r, h := setupJobHandler(mockSched, mockRepo)

	mockSched.On("TriggerJob", "domain-refresh").Return(nil)

	r.POST("/api/v1/jobs/:name/trigger", h.TriggerJob)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/api/v1/jobs/domain-refresh/trigger", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Code int                     `json:"code"`
		Data *dto.TriggerJobResponse `json:"data"`
	}
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, 0, resp.Code)
	assert.True(t, resp.Data.Accepted)
	assert.Equal(t, "domain-refresh", resp.Data.JobName)

	mockSched.AssertExpectations(t)
}

// TestTriggerJob_NotFound 测试触发未注册的任务
func TestTriggerJob_NotFound(t *testing.T) {
	mockSched := new(MockJobScheduler)
	mockRepo := new(MockJobExecutionRepository)
	r, h := setupJobHandler(mockSched, mockRepo)

	mockSched.On("TriggerJob", "unknown").Return(errors.New("job unknown not found"))

	r.POST("/api/v1/jobs/:name/trigger", h.TriggerJob)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/api/v1/jobs/unknown/trigger", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)

	var resp dto.Response
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, dto.ErrJobNotFound.Code, resp.Code)
}

// TestListJobExecutions_Success 测试列出执行记录成功
func TestListJobExecutions_Success(t *testing.T) {
	mockSched := new(MockJobScheduler)
	mockRepo := new(MockJobExecutionRepository)
	r, h := setupJobHandler(mockSched, mockRepo)

	finished := int64(1700000001000)
	duration := 1000
	executions := []*model.JobExecution{
		{
			ID:         2,
			JobName:    "domain-refresh",
			Status:     model.JobStatusSuccess,
			StartedAt:  1700000000000,
			FinishedAt: &finished,
			DurationMs: &duration,
			Result:     model.JSONResult{"processed_count": float64(3)},
		},
		{
			ID:        1,
			JobName:   "domain-refresh",
			Status:    model.JobStatusSkipped,
			StartedAt: 1699999990000,
		},
	}

	mockRepo.On("ListByJobName", mock.Anything, "domain-refresh", mock.Anything).
		Run(func(args mock.Arguments) {
			page := args.Get(2).(*repository.Pagination)
			page.Total = 2
		}).
		Return(executions, nil)

	r.GET("/api/v1/jobs/:name/executions", h.ListJobExecutions)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/api/v1/jobs/domain-refresh/executions?page=1&page_size=20", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Code int `json:"code"`
		Data struct {
			Items      []*dto.JobExecutionResponse `json:"items"`
			Pagination *dto.Pagination             `json:"pagination"`
		} `json:"data"`
	}
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, 0, resp.Code)
	require.Len(t, resp.Data.Items, 2)
	assert.Equal(t, "SUCCESS", resp.Data.Items[0].Status)
	assert.Equal(t, int64(1700000001000), resp.Data.Items[0].FinishedAt)
	assert.Equal(t, "SKIPPED", resp.Data.Items[1].Status)
	assert.Equal(t, int64(2), resp.Data.Pagination.Total)

	mockRepo.AssertExpectations(t)
}

// TestListJobExecutions_RepoError 测试执行记录查询失败
func TestListJobExecutions_RepoError(t *testing.T) {
	mockSched := new(MockJobScheduler)
	mockRepo := new(MockJobExecutionRepository)
	r, h := setupJobHandler(mockSched, mockRepo)

	mockRepo.On("ListByJobName", mock.Anything, "domain-refresh", mock.Anything).
		Return(nil, errors.New("database down"))

	r.GET("/api/v1/jobs/:name/executions", h.ListJobExecutions)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/api/v1/jobs/domain-refresh/executions", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
