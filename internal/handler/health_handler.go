package handler

import (
	"net/http"
	"sync/atomic"

	"github.com/gin-gonic/gin"
)

// Pinger 可探活的外部依赖
type Pinger interface {
	Ping() error
}

// HealthDeps 就绪检查覆盖的依赖，未配置的传 nil 即不参与检查
type HealthDeps struct {
	Database    Pinger
	RedisClient Pinger
}

// HealthHandler 健康检查处理器。ready 由应用在启动完成后置位，
// 停机时先复位再关闭监听，让负载均衡提前摘除流量。
type HealthHandler struct {
	ready atomic.Bool
	deps  *HealthDeps
}

// NewHealthHandler 创建健康检查处理器
func NewHealthHandler(deps *HealthDeps) *HealthHandler {
	return &HealthHandler{deps: deps}
}

// SetReady 设置就绪状态
func (h *HealthHandler) SetReady(ready bool) {
	h.ready.Store(ready)
}

// Live 存活探针
// GET /health/live
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Ready 就绪探针，逐个探活依赖
// GET /health/ready
func (h *HealthHandler) Ready(c *gin.Context) {
	if !h.ready.Load() {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"reason": "service initializing",
		})
		return
	}

	checks, healthy := h.probe()
	code, status := http.StatusOK, "ok"
	if !healthy {
		code, status = http.StatusServiceUnavailable, "unhealthy"
	}
	c.JSON(code, gin.H{"status": status, "checks": checks})
}

// probe 探活全部已配置依赖，返回每项结果与整体健康位
func (h *HealthHandler) probe() (map[string]string, bool) {
	checks := make(map[string]string)
	healthy := true
	if h.deps == nil {
		return checks, healthy
	}

	for name, dep := range map[string]Pinger{
		"postgres": h.deps.Database,
		"redis":    h.deps.RedisClient,
	} {
		if dep == nil {
			continue
		}
		if err := dep.Ping(); err != nil {
			checks[name] = err.Error()
			healthy = false
		} else {
			checks[name] = "ok"
		}
	}
	return checks, healthy
}
