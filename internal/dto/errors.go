// Package dto 提供数据传输对象定义
package dto

import "net/http"

// BizError 业务错误
type BizError struct {
	Code       int    `json:"code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
}

// Error 实现 error 接口
func (e *BizError) Error() string {
	return e.Message
}

// 通用错误 (10xxx)
var (
	ErrInvalidParams    = &BizError{10001, "INVALID_PARAMS", http.StatusBadRequest}
	ErrInvalidAddress   = &BizError{10002, "INVALID_ADDRESS", http.StatusBadRequest}
	ErrInvalidClaimHash = &BizError{10003, "INVALID_CLAIM_HASH", http.StatusBadRequest}
	ErrInvalidSignature = &BizError{10004, "INVALID_SIGNATURE_ENCODING", http.StatusBadRequest}
	ErrInvalidSigner    = &BizError{10005, "INVALID_EXPECTED_SIGNER", http.StatusBadRequest}
)

// 账户域错误 (11xxx)
var (
	ErrAccountNotFound     = &BizError{11001, "ACCOUNT_NOT_FOUND", http.StatusNotFound}
	ErrInvalidDomainParams = &BizError{11002, "INVALID_DOMAIN_PARAMS", http.StatusBadRequest}
	ErrDomainSyncFailed    = &BizError{11003, "DOMAIN_SYNC_FAILED", http.StatusBadGateway}
	ErrNotContractAccount  = &BizError{11004, "NOT_CONTRACT_ACCOUNT", http.StatusBadRequest}
)

// 验证记录错误 (12xxx)
var (
	ErrVerificationNotFound = &BizError{12001, "VERIFICATION_NOT_FOUND", http.StatusNotFound}
	ErrInvalidTimeRange     = &BizError{12002, "INVALID_TIME_RANGE", http.StatusBadRequest}
)

// 任务错误 (13xxx)
var (
	ErrJobNotFound = &BizError{13001, "JOB_NOT_FOUND", http.StatusNotFound}
)

// 系统错误 (20xxx)
var (
	ErrServiceUnavailable = &BizError{20001, "SERVICE_UNAVAILABLE", http.StatusServiceUnavailable}
	ErrInternalError      = &BizError{20002, "INTERNAL_ERROR", http.StatusInternalServerError}
	ErrTimeout            = &BizError{20003, "TIMEOUT", http.StatusGatewayTimeout}
)

// NewBizError 创建自定义业务错误
func NewBizError(code int, message string, httpStatus int) *BizError {
	return &BizError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// WithMessage 返回带自定义消息的错误副本
func (e *BizError) WithMessage(msg string) *BizError {
	return &BizError{
		Code:       e.Code,
		Message:    msg,
		HTTPStatus: e.HTTPStatus,
	}
}
