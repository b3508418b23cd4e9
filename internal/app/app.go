// Package app 提供应用生命周期管理
//
// ========================================
// signet 服务对接总览
// ========================================
//
// ## 服务信息
// - 服务名: signet
// - HTTP 端口: 8080
// - 数据库: signet (PostgreSQL)
//
// ## 依赖
// - PostgreSQL: 账户域登记、验证审计记录、任务执行记录
// - Redis: 账户域缓存、分布式锁
// - Kafka (可选): 验证结果与域变更事件
// - EVM RPC (可选): 读取账户合约的 eip712Domain()
//
// ## 定时任务
// 1. domain-refresh: 刷新链上来源的账户域 (每10分钟)
// 2. record-cleanup: 清理过期审计与执行记录 (每日凌晨3点)
//
// ========================================
package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/signet-labs/signet/internal/cache"
	"github.com/signet-labs/signet/internal/chain"
	"github.com/signet-labs/signet/internal/config"
	"github.com/signet-labs/signet/internal/dto"
	"github.com/signet-labs/signet/internal/handler"
	"github.com/signet-labs/signet/internal/jobs"
	"github.com/signet-labs/signet/internal/kafka"
	"github.com/signet-labs/signet/internal/repository"
	"github.com/signet-labs/signet/internal/router"
	"github.com/signet-labs/signet/internal/scheduler"
	"github.com/signet-labs/signet/internal/service"
	"github.com/signet-labs/signet/pkg/logger"
)

// App 应用实例
type App struct {
	cfg *config.Config

	// 基础设施
	db          *gorm.DB
	redisClient *redis.Client
	httpServer  *http.Server
	engine      *gin.Engine

	// 链上访问 (可选)
	chainClient  *chain.Client
	domainReader *chain.DomainReader

	// 事件发布
	producer  *kafka.Producer
	publisher kafka.EventPublisher

	// 仓储层
	domainRepo repository.AccountDomainRepository
	verifyRepo repository.VerificationRepository
	execRepo   repository.JobExecutionRepository

	// 缓存
	domainCache *cache.DomainCache

	// 服务层
	verificationService service.VerificationService
	registryService     service.RegistryService

	// 调度器
	scheduler *scheduler.Scheduler

	// Handlers
	healthHandler       *handler.HealthHandler
	verificationHandler *handler.VerificationHandler
	accountHandler      *handler.AccountHandler
	jobHandler          *handler.JobHandler
}

// New 创建应用实例
func New(cfg *config.Config) *App {
	return &App{cfg: cfg}
}

// Start 启动应用
func (a *App) Start(ctx context.Context) error {
	// 1. 初始化数据库
	if err := a.initDatabase(); err != nil {
		return fmt.Errorf("init database: %w", err)
	}

	// 2. 初始化 Redis
	if err := a.initRedis(ctx); err != nil {
		return fmt.Errorf("init redis: %w", err)
	}

	// 3. 初始化链上客户端 (可选，失败不阻止启动)
	a.initChain()

	// 4. 初始化 Kafka
	if err := a.initKafka(); err != nil {
		return fmt.Errorf("init kafka: %w", err)
	}

	// 5. 初始化仓储与缓存
	a.initRepositories()

	// 6. 初始化服务层
	a.initServices(ctx)

	// 7. 初始化调度器并注册任务
	a.initScheduler()

	// 8. 初始化 HTTP 服务
	a.initHTTPServer()

	// 9. 启动调度器
	if a.scheduler != nil {
		a.scheduler.Start()
	}

	// 10. 设置就绪并启动 HTTP 服务
	a.healthHandler.SetReady(true)
	go func() {
		addr := a.cfg.HTTP.Addr()
		logger.Info("starting HTTP server", "addr", addr)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server error", "error", err)
		}
	}()

	return nil
}

// Stop 停止应用
func (a *App) Stop(ctx context.Context) error {
	logger.Info("stopping application")

	// 设置不就绪，摘除流量
	if a.healthHandler != nil {
		a.healthHandler.SetReady(false)
	}

	// 停止 HTTP 服务
	if a.httpServer != nil {
		if err := a.httpServer.Shutdown(ctx); err != nil {
			logger.Error("HTTP server shutdown error", "error", err)
		}
	}

	// 停止调度器，等待在途任务结束
	if a.scheduler != nil {
		a.scheduler.Stop()
	}

	// 关闭 Kafka 生产者
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			logger.Error("kafka producer close error", "error", err)
		}
	}

	// 关闭链上客户端
	if a.chainClient != nil {
		a.chainClient.Close()
	}

	// 关闭 Redis
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			logger.Error("redis close error", "error", err)
		}
	}

	// 关闭数据库
	if a.db != nil {
		if sqlDB, err := a.db.DB(); err == nil {
			sqlDB.Close()
		}
	}

	logger.Info("application stopped")
	return nil
}

// WaitForShutdown 等待关闭信号
func (a *App) WaitForShutdown() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	logger.Info("received shutdown signal", "signal", sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := a.Stop(ctx); err != nil {
		logger.Error("application stop error", "error", err)
	}
}

// Engine 返回 Gin 引擎（用于测试）
func (a *App) Engine() *gin.Engine {
	return a.engine
}

// initDatabase 初始化数据库
func (a *App) initDatabase() error {
	gormConfig := &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	}

	db, err := gorm.Open(postgres.Open(a.cfg.Postgres.DSN()), gormConfig)
	if err != nil {
		return err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return err
	}

	sqlDB.SetMaxOpenConns(a.cfg.Postgres.MaxConnections)
	sqlDB.SetMaxIdleConns(a.cfg.Postgres.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(a.cfg.Postgres.ConnMaxLifetime) * time.Second)

	a.db = db
	logger.Info("database connected",
		"host", a.cfg.Postgres.Host,
		"database", a.cfg.Postgres.Database)

	// 自动迁移
	if err := runMigrations(a.db); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("database migrated")

	return nil
}

// initRedis 初始化 Redis
func (a *App) initRedis(ctx context.Context) error {
	a.redisClient = redis.NewClient(&redis.Options{
		Addr:     a.cfg.Redis.Addr,
		Password: a.cfg.Redis.Password,
		DB:       a.cfg.Redis.DB,
		PoolSize: a.cfg.Redis.PoolSize,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := a.redisClient.Ping(pingCtx).Err(); err != nil {
		return err
	}

	logger.Info("redis connected", "addr", a.cfg.Redis.Addr, "db", a.cfg.Redis.DB)
	return nil
}

// initChain 初始化链上客户端
// RPC 不可达时只告警，链上域同步功能降级，不影响验证
func (a *App) initChain() {
	if !a.cfg.Chain.Enabled() {
		logger.Info("chain access disabled, domain sync from chain unavailable")
		return
	}

	client, err := chain.NewClient(&chain.ClientConfig{
		ChainID:         a.cfg.Chain.ChainID,
		RPCURLs:         a.cfg.Chain.RPCURLs,
		MaxRetries:      a.cfg.Chain.MaxRetries,
		RetryInterval:   a.cfg.Chain.RetryInterval(),
		HealthCheckFreq: a.cfg.Chain.HealthCheckInterval(),
	})
	if err != nil {
		logger.Warn("chain client unavailable, continuing without chain access", "error", err)
		return
	}

	reader, err := chain.NewDomainReader(client)
	if err != nil {
		client.Close()
		logger.Warn("domain reader init failed, continuing without chain access", "error", err)
		return
	}

	a.chainClient = client
	a.domainReader = reader
	logger.Info("chain client connected",
		"chain_id", a.cfg.Chain.ChainID,
		"endpoints", len(a.cfg.Chain.RPCURLs))
}

// initKafka 初始化 Kafka 生产者
// Broker 列表为空时使用空发布器，事件发布被关闭
func (a *App) initKafka() error {
	if len(a.cfg.Kafka.Brokers) == 0 {
		a.publisher = kafka.NoopEventPublisher{}
		logger.Info("kafka disabled, events will not be published")
		return nil
	}

	producer, err := kafka.NewProducer(&kafka.ProducerConfig{
		Brokers:  a.cfg.Kafka.Brokers,
		ClientID: a.cfg.Kafka.ClientID,
	})
	if err != nil {
		return fmt.Errorf("create kafka producer: %w", err)
	}

	a.producer = producer
	a.publisher = kafka.NewKafkaEventPublisher(producer)
	logger.Info("kafka producer connected", "brokers", a.cfg.Kafka.Brokers)
	return nil
}

// initRepositories 初始化仓储与缓存
func (a *App) initRepositories() {
	a.domainRepo = repository.NewAccountDomainRepository(a.db)
	a.verifyRepo = repository.NewVerificationRepository(a.db)
	a.execRepo = repository.NewJobExecutionRepository(a.db)

	a.domainCache = cache.NewDomainCacheWithTTL(a.redisClient, a.cfg.Verifier.CacheTTL())

	logger.Info("repositories initialized")
}

// initServices 初始化服务层
func (a *App) initServices(ctx context.Context) {
	var reader service.DomainReader
	if a.domainReader != nil {
		reader = a.domainReader
	}

	a.registryService = service.NewRegistryService(
		a.domainRepo,
		a.domainCache,
		reader,
		a.publisher,
	)
	a.verificationService = service.NewVerificationService(
		a.domainRepo,
		a.verifyRepo,
		a.domainCache,
		a.publisher,
		a.cfg.Verifier.AllowUnwrapped,
	)

	a.registerSeedDomain(ctx)

	logger.Info("services initialized")
}

// registerSeedDomain 预注册配置中的账户域，失败只告警
func (a *App) registerSeedDomain(ctx context.Context) {
	seed := a.cfg.Verifier.Domain
	if seed.Account == "" {
		return
	}

	verifying := seed.VerifyingContract
	if verifying == "" {
		// 智能账户通常以自身地址作为 verifyingContract
		verifying = seed.Account
	}

	regCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := a.registryService.Register(regCtx, &dto.RegisterDomainRequest{
		Address:           seed.Account,
		Name:              seed.Name,
		Version:           seed.Version,
		ChainID:           seed.ChainID,
		VerifyingContract: verifying,
		Salt:              seed.Salt,
	})
	if err != nil {
		logger.Warn("seed domain registration failed", "account", seed.Account, "error", err)
		return
	}
	logger.Info("seed domain registered", "account", seed.Account)
}

// initScheduler 初始化调度器并注册任务
func (a *App) initScheduler() {
	if !a.cfg.Jobs.Enabled {
		logger.Info("jobs disabled")
		return
	}

	a.scheduler = scheduler.NewScheduler(
		&scheduler.SchedulerConfig{
			MaxConcurrentJobs: a.cfg.Scheduler.MaxConcurrentJobs,
			RedisClient:       a.redisClient,
		},
		a.execRepo,
	)

	a.registerJobs()

	logger.Info("scheduler initialized",
		"max_concurrent_jobs", a.cfg.Scheduler.MaxConcurrentJobs)
}

// registerJobs 注册任务
func (a *App) registerJobs() {
	// 1. 域刷新任务 (需要链上访问)
	if a.cfg.Jobs.DomainRefresh.Enabled {
		if a.domainReader == nil {
			logger.Warn("domain refresh job requires chain access, skipping")
		} else {
			refreshJob := jobs.NewDomainRefreshJob(
				a.domainRepo,
				a.domainReader,
				a.domainCache,
				a.publisher,
				&jobs.DomainRefreshConfig{
					StaleAfter: a.cfg.Jobs.DomainRefresh.StaleAfter(),
					BatchSize:  a.cfg.Jobs.DomainRefresh.BatchSize,
				},
			)
			if err := a.scheduler.RegisterJob(refreshJob, scheduler.JobConfig{
				Cron:    a.getJobCron(scheduler.JobNameDomainRefresh, a.cfg.Jobs.DomainRefresh.Cron),
				Enabled: true,
			}); err != nil {
				logger.Warn("register job failed", "job", scheduler.JobNameDomainRefresh, "error", err)
			}
		}
	}

	// 2. 记录清理任务
	if a.cfg.Jobs.RecordCleanup.Enabled {
		cleanupJob := jobs.NewRecordCleanupJob(
			a.verifyRepo,
			a.execRepo,
			&jobs.RecordCleanupConfig{
				Retention: a.cfg.Jobs.RecordCleanup.Retention(),
			},
		)
		if err := a.scheduler.RegisterJob(cleanupJob, scheduler.JobConfig{
			Cron:    a.getJobCron(scheduler.JobNameRecordCleanup, a.cfg.Jobs.RecordCleanup.Cron),
			Enabled: true,
		}); err != nil {
			logger.Warn("register job failed", "job", scheduler.JobNameRecordCleanup, "error", err)
		}
	}

	logger.Info("jobs registered")
}

// getJobCron 获取任务的 cron 表达式 (优先使用配置，否则使用默认值)
func (a *App) getJobCron(jobName string, configCron string) string {
	if configCron != "" {
		return configCron
	}
	if defaultCfg, ok := scheduler.DefaultJobConfigs[jobName]; ok {
		return defaultCfg.Cron
	}
	return ""
}

// initHTTPServer 初始化 HTTP 服务
func (a *App) initHTTPServer() {
	if a.cfg.Service.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	a.engine = gin.New()

	deps := &handler.HealthDeps{
		RedisClient: &redisHealthAdapter{client: a.redisClient},
	}
	if sqlDB, err := a.db.DB(); err == nil {
		deps.Database = sqlDB
	}

	a.healthHandler = handler.NewHealthHandler(deps)
	a.verificationHandler = handler.NewVerificationHandler(a.verificationService)
	a.accountHandler = handler.NewAccountHandler(a.registryService)
	if a.scheduler != nil {
		a.jobHandler = handler.NewJobHandler(a.scheduler, a.execRepo)
	}

	r := router.New(a.engine)
	r.RegisterMiddleware()
	r.RegisterRoutes(
		a.healthHandler,
		a.verificationHandler,
		a.accountHandler,
		a.jobHandler,
	)

	a.httpServer = &http.Server{
		Addr:         a.cfg.HTTP.Addr(),
		Handler:      a.engine,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// redisHealthAdapter 适配 Redis 健康检查接口
type redisHealthAdapter struct {
	client *redis.Client
}

func (r *redisHealthAdapter) Ping() error {
	return r.client.Ping(context.Background()).Err()
}
