package scheduler

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"

	"github.com/signet-labs/signet/internal/metrics"
	"github.com/signet-labs/signet/internal/model"
	"github.com/signet-labs/signet/internal/repository"
	"github.com/signet-labs/signet/pkg/logger"
)

// defaultMaxConcurrent 未配置时的并发槽数
const defaultMaxConcurrent = 2

// recordTimeout 执行记录落库的超时预算
const recordTimeout = 5 * time.Second

// JobConfig 单个任务的调度配置
type JobConfig struct {
	Cron    string
	Enabled bool
}

// SchedulerConfig 调度器配置
type SchedulerConfig struct {
	MaxConcurrentJobs int
	RedisClient       redis.UniversalClient
}

// JobStatus 任务的注册信息与最近一次执行情况
type JobStatus struct {
	Name           string
	Enabled        bool
	Cron           string
	Timeout        time.Duration
	IsLocked       bool
	LastStatus     string
	LastStartedAt  int64
	LastFinishedAt int64
	LastDurationMs int
	LastError      string
}

// Scheduler 定时任务调度器。注册表与并发槽在进程内，
// 跨实例互斥依赖 redis 分布式锁，每轮执行落一条记录。
type Scheduler struct {
	cron          *cron.Cron
	lockManager   *LockManager
	execRepo      repository.JobExecutionRepository
	mu            sync.RWMutex
	jobs          map[string]Job
	jobConfigs    map[string]JobConfig
	maxConcurrent int
	slots         chan struct{}
	ctx           context.Context
	cancel        context.CancelFunc
}

// NewScheduler 创建调度器，cron 表达式精确到秒
func NewScheduler(cfg *SchedulerConfig, execRepo repository.JobExecutionRepository) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	n := cfg.MaxConcurrentJobs
	if n <= 0 {
		n = defaultMaxConcurrent
	}

	return &Scheduler{
		cron:          cron.New(cron.WithSeconds()),
		lockManager:   NewLockManager(cfg.RedisClient),
		execRepo:      execRepo,
		jobs:          make(map[string]Job),
		jobConfigs:    make(map[string]JobConfig),
		maxConcurrent: n,
		slots:         make(chan struct{}, n),
		ctx:           ctx,
		cancel:        cancel,
	}
}

// RegisterJob 注册任务。未启用的任务只入注册表不进 cron，
// cron 表达式非法时整个注册回滚。
func (s *Scheduler) RegisterJob(job Job, config JobConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := job.Name()
	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("job %s already registered", name)
	}
	s.jobs[name] = job
	s.jobConfigs[name] = config

	if !config.Enabled {
		logger.Info("job registered but disabled", "job", name)
		return nil
	}

	if _, err := s.cron.AddFunc(config.Cron, func() { s.dispatch(job) }); err != nil {
		delete(s.jobs, name)
		delete(s.jobConfigs, name)
		return fmt.Errorf("failed to add cron job: %w", err)
	}

	logger.Info("job registered", "job", name, "cron", config.Cron)
	return nil
}

// Start 启动调度
func (s *Scheduler) Start() {
	s.cron.Start()
	logger.Info("scheduler started")
}

// Stop 停止调度并等待在途任务结束
func (s *Scheduler) Stop() {
	s.cancel()
	<-s.cron.Stop().Done()
	logger.Info("scheduler stopped")
}

// TriggerJob 跳过 cron 立即触发一次
func (s *Scheduler) TriggerJob(jobName string) error {
	s.mu.RLock()
	job, exists := s.jobs[jobName]
	s.mu.RUnlock()

	if !exists {
		return fmt.Errorf("job %s not found", jobName)
	}
	go s.dispatch(job)
	return nil
}

// dispatch 一轮调度: 占并发槽、拿分布式锁，短路的轮次也留痕
func (s *Scheduler) dispatch(job Job) {
	select {
	case s.slots <- struct{}{}:
		defer func() { <-s.slots }()
	default:
		logger.Warn("max concurrent jobs reached, skipping", "job", job.Name())
		s.noteShortCircuit(job.Name(), model.JobStatusSkipped, "max concurrent jobs reached")
		return
	}

	if s.ctx.Err() != nil {
		return
	}

	ctx, cancel := context.WithTimeout(s.ctx, job.Timeout())
	defer cancel()

	if job.RequiresLock() {
		lock := s.lockManager.NewLock(job.Name(), job.LockTTL(), job.UseWatchdog())
		acquired, err := lock.TryLock(ctx)
		if err != nil {
			logger.Error("failed to acquire job lock", "job", job.Name(), "error", err)
			s.noteShortCircuit(job.Name(), model.JobStatusFailed, "failed to acquire lock: "+err.Error())
			return
		}
		if !acquired {
			logger.Debug("job is already running on another instance", "job", job.Name())
			s.noteShortCircuit(job.Name(), model.JobStatusSkipped, "job is running on another instance")
			return
		}
		defer func() {
			if err := lock.Unlock(context.Background()); err != nil {
				logger.Error("failed to release job lock", "job", job.Name(), "error", err)
			}
		}()
	}

	s.run(ctx, job)
}

// run 执行任务本体并维护 RUNNING -> SUCCESS/FAILED 的记录生命周期
func (s *Scheduler) run(ctx context.Context, job Job) {
	started := time.Now()
	exec := &model.JobExecution{
		JobName:   job.Name(),
		Status:    model.JobStatusRunning,
		StartedAt: started.UnixMilli(),
	}
	if err := s.execRepo.Create(ctx, exec); err != nil {
		logger.Error("failed to record job start", "job", job.Name(), "error", err)
	}
	logger.Info("starting job", "job", job.Name())

	result, err := job.Execute(ctx)
	s.settle(exec, job, started, result, err)
}

// settle 回填终态记录并上报指标
func (s *Scheduler) settle(exec *model.JobExecution, job Job, started time.Time, result *JobResult, err error) {
	finished := time.Now()
	elapsed := finished.Sub(started)
	finishedAt := finished.UnixMilli()
	durationMs := int(elapsed.Milliseconds())
	exec.FinishedAt = &finishedAt
	exec.DurationMs = &durationMs

	if err != nil {
		exec.Status = model.JobStatusFailed
		msg := err.Error()
		exec.ErrorMessage = &msg
		logger.Error("job failed", "job", job.Name(), "duration", elapsed, "error", err)
	} else {
		exec.Status = model.JobStatusSuccess
		exec.Result = result.ToJSONResult()
		logger.Info("job completed", "job", job.Name(), "duration", elapsed, "result", result)
	}

	metrics.RecordJobExecution(job.Name(), strings.ToLower(string(exec.Status)), elapsed.Seconds())

	// 任务超时后其 ctx 已失效，记录回写用独立上下文
	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()
	if err := s.execRepo.Update(ctx, exec); err != nil {
		logger.Error("failed to update job execution", "job", job.Name(), "error", err)
	}
}

// noteShortCircuit 为没有真正执行的轮次落一条零时长记录
func (s *Scheduler) noteShortCircuit(jobName string, status model.JobStatus, reason string) {
	now := time.Now().UnixMilli()
	zero := 0
	exec := &model.JobExecution{
		JobName:      jobName,
		Status:       status,
		StartedAt:    now,
		FinishedAt:   &now,
		DurationMs:   &zero,
		ErrorMessage: &reason,
	}

	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()
	if err := s.execRepo.Create(ctx, exec); err != nil {
		logger.Error("failed to record job execution", "job", jobName, "error", err)
	}

	metrics.RecordJobExecution(jobName, strings.ToLower(string(status)), 0)
}

// GetJobStatus 合并注册配置、最近一次执行与锁占用情况
func (s *Scheduler) GetJobStatus(jobName string) (*JobStatus, error) {
	s.mu.RLock()
	job, exists := s.jobs[jobName]
	config := s.jobConfigs[jobName]
	s.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("job %s not found", jobName)
	}

	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()

	status := &JobStatus{
		Name:    jobName,
		Enabled: config.Enabled,
		Cron:    config.Cron,
		Timeout: job.Timeout(),
	}

	// 锁存在即认为任务正在某个实例上运行
	status.IsLocked, _ = s.lockManager.IsLocked(ctx, jobName)

	last, err := s.execRepo.GetLatestByJobName(ctx, jobName)
	if err != nil {
		return nil, err
	}
	if last != nil {
		status.LastStatus = string(last.Status)
		status.LastStartedAt = last.StartedAt
		if last.FinishedAt != nil {
			status.LastFinishedAt = *last.FinishedAt
		}
		if last.DurationMs != nil {
			status.LastDurationMs = *last.DurationMs
		}
		if last.ErrorMessage != nil {
			status.LastError = *last.ErrorMessage
		}
	}
	return status, nil
}

// ListJobStatus 列出全部任务状态，单个失败不拖垮整个列表
func (s *Scheduler) ListJobStatus() ([]*JobStatus, error) {
	s.mu.RLock()
	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	s.mu.RUnlock()

	statuses := make([]*JobStatus, 0, len(names))
	for _, name := range names {
		status, err := s.GetJobStatus(name)
		if err != nil {
			logger.Error("failed to get job status", "job", name, "error", err)
			continue
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}
