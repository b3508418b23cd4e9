package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/signet-labs/signet/pkg/logger"
)

// Logger 返回请求日志中间件
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		if raw := c.Request.URL.RawQuery; raw != "" {
			path = path + "?" + raw
		}

		c.Next()

		status := c.Writer.Status()
		fields := []any{
			"status", status,
			"method", c.Request.Method,
			"path", path,
			"ip", c.ClientIP(),
			"latency", time.Since(start),
			"bytes", c.Writer.Size(),
			"user_agent", c.Request.UserAgent(),
		}
		if tid := TraceID(c); tid != "" {
			fields = append(fields, "trace_id", tid)
		}
		if len(c.Errors) > 0 {
			fields = append(fields, "errors", c.Errors.Errors())
		}

		// 5xx 记为错误，4xx 记为告警
		log := logger.Info
		switch {
		case status >= http.StatusInternalServerError:
			log = logger.Error
		case status >= http.StatusBadRequest:
			log = logger.Warn
		}
		log("request", fields...)
	}
}
