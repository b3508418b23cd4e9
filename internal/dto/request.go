package dto

// PaginationQuery 分页查询参数
type PaginationQuery struct {
	Page     int `form:"page" json:"page"`
	PageSize int `form:"page_size" json:"page_size"`
}

// Normalize 规范化分页参数
func (p *PaginationQuery) Normalize() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = 20
	}
	if p.PageSize > 100 {
		p.PageSize = 100
	}
}

// TimeRangeQuery 时间范围查询参数
type TimeRangeQuery struct {
	StartTime int64 `form:"start_time" json:"start_time"`
	EndTime   int64 `form:"end_time" json:"end_time"`
}

// ========== 签名验证相关 ==========

// VerifyRequest 签名验证请求
type VerifyRequest struct {
	Account        string `json:"account" binding:"required"`
	ClaimHash      string `json:"claim_hash" binding:"required"`
	Signature      string `json:"signature"`
	ExpectedSigner string `json:"expected_signer"`
	TraceID        string `json:"-"` // 从 context 中获取
}

// VerifyResponse 签名验证响应
//
// MagicValue 仅在请求命中能力探测哨兵时返回。
type VerifyResponse struct {
	RequestID        string `json:"request_id"`
	Valid            bool   `json:"valid"`
	Workflow         string `json:"workflow,omitempty"`
	Signer           string `json:"signer,omitempty"`
	Digest           string `json:"digest,omitempty"`
	ContentsTypeName string `json:"contents_type_name,omitempty"`
	Reason           string `json:"reason,omitempty"`
	MagicValue       string `json:"magic_value,omitempty"`
	DurationMs       int    `json:"duration_ms"`
}

// CapabilityResponse 能力探测响应
type CapabilityResponse struct {
	Supported     bool   `json:"supported"`
	MagicValue    string `json:"magic_value"`
	DetectionHash string `json:"detection_hash"`
}

// ListVerificationsQuery 查询验证记录列表参数
type ListVerificationsQuery struct {
	PaginationQuery
	TimeRangeQuery
	Account string `form:"account"`
	Outcome string `form:"outcome"`
}

// VerificationResponse 验证记录响应
type VerificationResponse struct {
	RequestID        string `json:"request_id"`
	AccountAddress   string `json:"account_address"`
	ClaimHash        string `json:"claim_hash"`
	Workflow         string `json:"workflow"`
	Outcome          string `json:"outcome"`
	Signer           string `json:"signer,omitempty"`
	Digest           string `json:"digest,omitempty"`
	ContentsTypeName string `json:"contents_type_name,omitempty"`
	Reason           string `json:"reason,omitempty"`
	TraceID          string `json:"trace_id,omitempty"`
	DurationMs       int    `json:"duration_ms"`
	CreatedAt        int64  `json:"created_at"`
}

// ========== 账户域相关 ==========

// RegisterDomainRequest 注册账户域请求
type RegisterDomainRequest struct {
	Address           string   `json:"address" binding:"required"`
	Name              string   `json:"name" binding:"required"`
	Version           string   `json:"version" binding:"required"`
	ChainID           int64    `json:"chain_id" binding:"required"`
	VerifyingContract string   `json:"verifying_contract" binding:"required"`
	Salt              string   `json:"salt"`
	Extensions        []string `json:"extensions"`
}

// DomainResponse 账户域响应
type DomainResponse struct {
	Address           string   `json:"address"`
	Name              string   `json:"name"`
	Version           string   `json:"version"`
	ChainID           int64    `json:"chain_id"`
	VerifyingContract string   `json:"verifying_contract"`
	Salt              string   `json:"salt,omitempty"`
	Extensions        []string `json:"extensions,omitempty"`
	Source            string   `json:"source"`
	SyncedAt          int64    `json:"synced_at,omitempty"`
	CreatedAt         int64    `json:"created_at"`
	UpdatedAt         int64    `json:"updated_at"`
}

// ListDomainsQuery 查询账户域列表参数
type ListDomainsQuery struct {
	PaginationQuery
}

// ========== 任务相关 ==========

// ListJobExecutionsQuery 查询任务执行记录参数
type ListJobExecutionsQuery struct {
	PaginationQuery
}

// JobStatusResponse 任务状态响应
type JobStatusResponse struct {
	Name           string `json:"name"`
	Enabled        bool   `json:"enabled"`
	Cron           string `json:"cron"`
	TimeoutSeconds int    `json:"timeout_seconds"`
	IsLocked       bool   `json:"is_locked"`
	LastStatus     string `json:"last_status,omitempty"`
	LastStartedAt  int64  `json:"last_started_at,omitempty"`
	LastFinishedAt int64  `json:"last_finished_at,omitempty"`
	LastDurationMs int    `json:"last_duration_ms,omitempty"`
	LastError      string `json:"last_error,omitempty"`
}

// TriggerJobResponse 手动触发任务响应
type TriggerJobResponse struct {
	JobName  string `json:"job_name"`
	Accepted bool   `json:"accepted"`
	Message  string `json:"message"`
}

// JobExecutionResponse 任务执行记录响应
type JobExecutionResponse struct {
	ID           int64                  `json:"id"`
	JobName      string                 `json:"job_name"`
	Status       string                 `json:"status"`
	StartedAt    int64                  `json:"started_at"`
	FinishedAt   int64                  `json:"finished_at,omitempty"`
	DurationMs   int                    `json:"duration_ms,omitempty"`
	Result       map[string]interface{} `json:"result,omitempty"`
	ErrorMessage string                 `json:"error_message,omitempty"`
}
