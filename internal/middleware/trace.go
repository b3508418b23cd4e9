package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// TraceIDHeader 请求头中的 TraceID 字段名
	TraceIDHeader = "X-Trace-ID"
	// TraceIDKey context 中的 TraceID 键名
	TraceIDKey = "trace_id"
)

// Trace 返回 Trace ID 中间件，trace id 同时写回响应头
func Trace() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := requestTraceID(c)
		c.Set(TraceIDKey, id)
		c.Header(TraceIDHeader, id)
		c.Next()
	}
}

// requestTraceID 复用上游传入的 X-Trace-ID，缺失或非法时重新生成。
// 只接受 UUID：trace id 会进入日志和 varchar(36) 的落库字段
func requestTraceID(c *gin.Context) string {
	if id := c.GetHeader(TraceIDHeader); id != "" {
		if _, err := uuid.Parse(id); err == nil {
			return id
		}
	}
	return uuid.NewString()
}

// TraceID 返回当前请求的 trace id，未启用 Trace 中间件时为空串
func TraceID(c *gin.Context) string {
	return c.GetString(TraceIDKey)
}
