package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/signet-labs/signet/internal/dto"
	"github.com/signet-labs/signet/internal/model"
	"github.com/signet-labs/signet/internal/repository"
	"github.com/signet-labs/signet/internal/scheduler"
)

// JobScheduler 任务处理器依赖的调度器接口
type JobScheduler interface {
	GetJobStatus(jobName string) (*scheduler.JobStatus, error)
	ListJobStatus() ([]*scheduler.JobStatus, error)
	TriggerJob(jobName string) error
}

// JobHandler 任务管理请求处理器
type JobHandler struct {
	scheduler JobScheduler
	execRepo  repository.JobExecutionRepository
}

// NewJobHandler 创建任务管理处理器
func NewJobHandler(sched JobScheduler, execRepo repository.JobExecutionRepository) *JobHandler {
	return &JobHandler{
		scheduler: sched,
		execRepo:  execRepo,
	}
}

// ListJobs 列出所有任务状态
// GET /api/v1/jobs
func (h *JobHandler) ListJobs(c *gin.Context) {
	statuses, err := h.scheduler.ListJobStatus()
	if err != nil {
		InternalError(c)
		return
	}

	items := make([]*dto.JobStatusResponse, 0, len(statuses))
	for _, s := range statuses {
		items = append(items, jobStatusToDTO(s))
	}

	Success(c, items)
}

// GetJob 获取单个任务状态
// GET /api/v1/jobs/:name
func (h *JobHandler) GetJob(c *gin.Context) {
	name := c.Param("name")
	if name == "" {
		Error(c, dto.ErrInvalidParams.WithMessage("job name is required"))
		return
	}

	status, err := h.scheduler.GetJobStatus(name)
	if err != nil {
		Error(c, dto.ErrJobNotFound)
		return
	}

	Success(c, jobStatusToDTO(status))
}

// TriggerJob 手动触发任务
// POST /api/v1/jobs/:name/trigger
func (h *JobHandler) TriggerJob(c *gin.Context) {
	name := c.Param("name")
	if name == "" {
		Error(c, dto.ErrInvalidParams.WithMessage("job name is required"))
		return
	}

	if err := h.scheduler.TriggerJob(name); err != nil {
		Error(c, dto.ErrJobNotFound.WithMessage(err.Error()))
		return
	}

	Success(c, &dto.TriggerJobResponse{
		JobName:  name,
		Accepted: true,
		Message:  "job triggered",
	})
}

// ListJobExecutions 列出任务执行历史
// GET /api/v1/jobs/:name/executions
func (h *JobHandler) ListJobExecutions(c *gin.Context) {
	name := c.Param("name")
	if name == "" {
		Error(c, dto.ErrInvalidParams.WithMessage("job name is required"))
		return
	}

	var query dto.ListJobExecutionsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		Error(c, dto.ErrInvalidParams.WithMessage(err.Error()))
		return
	}
	query.Normalize()

	page := &repository.Pagination{
		Page:     query.Page,
		PageSize: query.PageSize,
	}

	executions, err := h.execRepo.ListByJobName(c, name, page)
	if err != nil {
		InternalError(c)
		return
	}

	items := make([]*dto.JobExecutionResponse, 0, len(executions))
	for _, exec := range executions {
		items = append(items, jobExecutionToDTO(exec))
	}

	SuccessPaginated(c, &dto.PagedData{
		Items: items,
		Pagination: &dto.Pagination{
			Total:    page.Total,
			Page:     page.Page,
			PageSize: page.PageSize,
		},
	})
}

func jobStatusToDTO(s *scheduler.JobStatus) *dto.JobStatusResponse {
	if s == nil {
		return nil
	}
	return &dto.JobStatusResponse{
		Name:           s.Name,
		Enabled:        s.Enabled,
		Cron:           s.Cron,
		TimeoutSeconds: int(s.Timeout.Seconds()),
		IsLocked:       s.IsLocked,
		LastStatus:     s.LastStatus,
		LastStartedAt:  s.LastStartedAt,
		LastFinishedAt: s.LastFinishedAt,
		LastDurationMs: s.LastDurationMs,
		LastError:      s.LastError,
	}
}

func jobExecutionToDTO(exec *model.JobExecution) *dto.JobExecutionResponse {
	if exec == nil {
		return nil
	}

	resp := &dto.JobExecutionResponse{
		ID:        exec.ID,
		JobName:   exec.JobName,
		Status:    string(exec.Status),
		StartedAt: exec.StartedAt,
	}

	if exec.FinishedAt != nil {
		resp.FinishedAt = *exec.FinishedAt
	}
	if exec.DurationMs != nil {
		resp.DurationMs = *exec.DurationMs
	}
	if exec.ErrorMessage != nil {
		resp.ErrorMessage = *exec.ErrorMessage
	}
	if exec.Result != nil {
		resp.Result = map[string]interface{}(exec.Result)
	}

	return resp
}
