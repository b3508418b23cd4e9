// Package router 提供路由注册
package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/signet-labs/signet/internal/handler"
	"github.com/signet-labs/signet/internal/middleware"
)

// Router 路由管理器
type Router struct {
	engine *gin.Engine
}

// New 创建路由管理器
func New(engine *gin.Engine) *Router {
	return &Router{engine: engine}
}

// Engine 返回底层引擎
func (r *Router) Engine() *gin.Engine {
	return r.engine
}

// RegisterMiddleware 注册全局中间件
func (r *Router) RegisterMiddleware() {
	// 中间件链: Recovery → Trace → Logger → CORS → Metrics
	r.engine.Use(
		middleware.Recovery(),
		middleware.Trace(),
		middleware.Logger(),
		middleware.CORS(),
		middleware.Metrics(),
	)
}

// RegisterRoutes 注册路由
func (r *Router) RegisterRoutes(
	healthHandler *handler.HealthHandler,
	verificationHandler *handler.VerificationHandler,
	accountHandler *handler.AccountHandler,
	jobHandler *handler.JobHandler,
) {
	// ========== 健康检查 ==========
	r.engine.GET("/health/live", healthHandler.Live)
	r.engine.GET("/health/ready", healthHandler.Ready)

	// ========== Prometheus 监控端点 ==========
	r.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// ========== API v1 ==========
	v1 := r.engine.Group("/api/v1")

	// 签名验证
	signatures := v1.Group("/signatures")
	{
		signatures.POST("/verify", verificationHandler.Verify)
		signatures.GET("/capability", verificationHandler.Capability)
	}

	// 验证审计记录
	verifications := v1.Group("/verifications")
	{
		verifications.GET("", verificationHandler.ListVerifications)
		verifications.GET("/:request_id", verificationHandler.GetVerification)
	}

	// 账户域登记
	accounts := v1.Group("/accounts")
	{
		accounts.POST("", accountHandler.Register)
		accounts.GET("", accountHandler.List)
		accounts.GET("/:address/domain", accountHandler.GetDomain)
		accounts.POST("/:address/sync", accountHandler.SyncFromChain)
		accounts.DELETE("/:address", accountHandler.Delete)
	}

	// 任务管理
	if jobHandler != nil {
		jobs := v1.Group("/jobs")
		{
			jobs.GET("", jobHandler.ListJobs)
			jobs.GET("/:name", jobHandler.GetJob)
			jobs.POST("/:name/trigger", jobHandler.TriggerJob)
			jobs.GET("/:name/executions", jobHandler.ListJobExecutions)
		}
	}
}
