// Package handler 提供 HTTP 请求处理
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/signet-labs/signet/internal/dto"
)

// Success 返回成功响应
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// SuccessPaginated 返回分页成功响应
func SuccessPaginated(c *gin.Context, data *dto.PagedData) {
	c.JSON(http.StatusOK, dto.NewPagedResponse(data))
}

// Error 返回业务错误响应
func Error(c *gin.Context, err *dto.BizError) {
	c.JSON(err.HTTPStatus, dto.NewErrorResponse(err))
}

// BadRequest 返回参数错误响应
func BadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, &dto.Response{
		Code:    dto.ErrInvalidParams.Code,
		Message: message,
	})
}

// InternalError 返回内部错误响应
func InternalError(c *gin.Context) {
	c.JSON(http.StatusInternalServerError, dto.NewErrorResponse(dto.ErrInternalError))
}

// GetTraceID 从 context 获取 TraceID
func GetTraceID(c *gin.Context) string {
	traceID, _ := c.Get("trace_id")
	if t, ok := traceID.(string); ok {
		return t
	}
	return ""
}

// handleServiceError 处理服务层错误
func handleServiceError(c *gin.Context, err error) {
	if bizErr, ok := err.(*dto.BizError); ok {
		Error(c, bizErr)
		return
	}
	c.JSON(http.StatusInternalServerError, dto.Response{
		Code:    dto.ErrInternalError.Code,
		Message: err.Error(),
	})
}
