package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/signet-labs/signet/internal/dto"
)

// RegistryService 账户域登记服务接口
type RegistryService interface {
	Register(ctx context.Context, req *dto.RegisterDomainRequest) (*dto.DomainResponse, error)
	GetDomain(ctx context.Context, address string) (*dto.DomainResponse, error)
	SyncFromChain(ctx context.Context, address string) (*dto.DomainResponse, error)
	List(ctx context.Context, query *dto.ListDomainsQuery) (*dto.PagedData, error)
	Delete(ctx context.Context, address string) error
}

// AccountHandler 账户域处理器
type AccountHandler struct {
	svc RegistryService
}

// NewAccountHandler 创建账户域处理器
func NewAccountHandler(svc RegistryService) *AccountHandler {
	return &AccountHandler{svc: svc}
}

// Register 登记账户域
// POST /api/v1/accounts
func (h *AccountHandler) Register(c *gin.Context) {
	var req dto.RegisterDomainRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, dto.ErrInvalidParams.WithMessage(err.Error()))
		return
	}

	resp, err := h.svc.Register(c, &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	Success(c, resp)
}

// List 查询账户域列表
// GET /api/v1/accounts
func (h *AccountHandler) List(c *gin.Context) {
	var query dto.ListDomainsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		Error(c, dto.ErrInvalidParams.WithMessage(err.Error()))
		return
	}

	data, err := h.svc.List(c, &query)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	SuccessPaginated(c, data)
}

// GetDomain 获取账户域详情
// GET /api/v1/accounts/:address/domain
func (h *AccountHandler) GetDomain(c *gin.Context) {
	address := c.Param("address")
	if address == "" {
		Error(c, dto.ErrInvalidParams.WithMessage("account address is required"))
		return
	}

	resp, err := h.svc.GetDomain(c, address)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	Success(c, resp)
}

// SyncFromChain 从链上同步账户域
// POST /api/v1/accounts/:address/sync
func (h *AccountHandler) SyncFromChain(c *gin.Context) {
	address := c.Param("address")
	if address == "" {
		Error(c, dto.ErrInvalidParams.WithMessage("account address is required"))
		return
	}

	resp, err := h.svc.SyncFromChain(c, address)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	Success(c, resp)
}

// Delete 删除账户域
// DELETE /api/v1/accounts/:address
func (h *AccountHandler) Delete(c *gin.Context) {
	address := c.Param("address")
	if address == "" {
		Error(c, dto.ErrInvalidParams.WithMessage("account address is required"))
		return
	}

	if err := h.svc.Delete(c, address); err != nil {
		handleServiceError(c, err)
		return
	}

	Success(c, nil)
}
