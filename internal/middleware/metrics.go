package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/signet-labs/signet/internal/metrics"
)

// Metrics 返回 Prometheus 指标记录中间件
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		// metrics 端点自身不计入，避免自循环
		if c.Request.URL.Path == "/metrics" {
			c.Next()
			return
		}

		start := time.Now()
		reqBytes := c.Request.ContentLength

		c.Next()

		metrics.RecordHTTPRequest(
			c.Request.Method, routeLabel(c), strconv.Itoa(c.Writer.Status()),
			time.Since(start).Seconds(), reqBytes, int64(c.Writer.Size()))
	}
}

// routeLabel 用路由模板做 path 标签，未命中路由的请求归入 unknown，防止标签基数膨胀
func routeLabel(c *gin.Context) string {
	if path := c.FullPath(); path != "" {
		return path
	}
	return "unknown"
}
