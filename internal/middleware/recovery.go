// Package middleware 提供 HTTP 中间件
package middleware

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"runtime/debug"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/signet-labs/signet/internal/dto"
	"github.com/signet-labs/signet/pkg/logger"
)

// Recovery 返回 panic 恢复中间件
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}

			// 对端断开时响应已无处可写，记录后直接中止
			if isClientGone(r) {
				logger.Warn("connection gone during write",
					"method", c.Request.Method,
					"path", c.Request.URL.Path,
					"error", fmt.Sprint(r),
				)
				c.Abort()
				return
			}

			logger.Error("panic recovered",
				zap.Any("error", r),
				zap.String("method", c.Request.Method),
				zap.String("path", c.Request.URL.Path),
				zap.String("trace_id", TraceID(c)),
				zap.ByteString("stack", debug.Stack()),
			)
			c.AbortWithStatusJSON(http.StatusInternalServerError, dto.NewErrorResponse(dto.ErrInternalError))
		}()
		c.Next()
	}
}

// isClientGone 判断 panic 是否由对端断开连接引起
func isClientGone(r any) bool {
	err, ok := r.(error)
	if !ok {
		return false
	}
	var op *net.OpError
	if !errors.As(err, &op) {
		return false
	}
	var sys *os.SyscallError
	if !errors.As(op.Err, &sys) {
		return false
	}
	msg := strings.ToLower(sys.Error())
	return strings.Contains(msg, "broken pipe") || strings.Contains(msg, "connection reset by peer")
}
