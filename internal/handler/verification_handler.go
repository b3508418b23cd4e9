package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/signet-labs/signet/internal/dto"
)

// VerificationService 签名验证服务接口
type VerificationService interface {
	Verify(ctx context.Context, req *dto.VerifyRequest) (*dto.VerifyResponse, error)
	Capability() *dto.CapabilityResponse
	GetVerification(ctx context.Context, requestID string) (*dto.VerificationResponse, error)
	ListVerifications(ctx context.Context, query *dto.ListVerificationsQuery) (*dto.PagedData, error)
}

// VerificationHandler 签名验证处理器
type VerificationHandler struct {
	svc VerificationService
}

// NewVerificationHandler 创建签名验证处理器
func NewVerificationHandler(svc VerificationService) *VerificationHandler {
	return &VerificationHandler{svc: svc}
}

// Verify 验证签名
// POST /api/v1/signatures/verify
func (h *VerificationHandler) Verify(c *gin.Context) {
	var req dto.VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, dto.ErrInvalidParams.WithMessage(err.Error()))
		return
	}
	req.TraceID = GetTraceID(c)

	resp, err := h.svc.Verify(c, &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	Success(c, resp)
}

// Capability 查询方案能力
// GET /api/v1/signatures/capability
func (h *VerificationHandler) Capability(c *gin.Context) {
	Success(c, h.svc.Capability())
}

// GetVerification 获取验证记录详情
// GET /api/v1/verifications/:request_id
func (h *VerificationHandler) GetVerification(c *gin.Context) {
	requestID := c.Param("request_id")
	if requestID == "" {
		Error(c, dto.ErrInvalidParams.WithMessage("request id is required"))
		return
	}

	resp, err := h.svc.GetVerification(c, requestID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	Success(c, resp)
}

// ListVerifications 查询验证记录
// GET /api/v1/verifications
func (h *VerificationHandler) ListVerifications(c *gin.Context) {
	var query dto.ListVerificationsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		Error(c, dto.ErrInvalidParams.WithMessage(err.Error()))
		return
	}

	data, err := h.svc.ListVerifications(c, &query)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	SuccessPaginated(c, data)
}
