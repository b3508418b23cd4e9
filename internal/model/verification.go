package model

// VerificationOutcome 验证结论
type VerificationOutcome int8

const (
	VerificationOutcomeRejected VerificationOutcome = 0 // 拒绝
	VerificationOutcomeAccepted VerificationOutcome = 1 // 接受
)

func (o VerificationOutcome) String() string {
	switch o {
	case VerificationOutcomeRejected:
		return "REJECTED"
	case VerificationOutcomeAccepted:
		return "ACCEPTED"
	default:
		return "UNKNOWN"
	}
}

// Workflow 签名工作流
const (
	WorkflowTypedData    = "typed_data"
	WorkflowPersonalSign = "personal_sign"
	WorkflowUnwrapped    = "unwrapped"
)

// VerificationRecord 验证审计记录
type VerificationRecord struct {
	ID               int64               `gorm:"primaryKey;autoIncrement" json:"id"`
	RequestID        string              `gorm:"column:request_id;type:varchar(36);uniqueIndex;not null" json:"request_id"`
	AccountAddress   string              `gorm:"column:account_address;type:varchar(42);index;not null" json:"account_address"`
	ClaimHash        string              `gorm:"column:claim_hash;type:varchar(66);not null" json:"claim_hash"`
	Workflow         string              `gorm:"column:workflow;type:varchar(16)" json:"workflow"`
	Outcome          VerificationOutcome `gorm:"column:outcome;type:smallint;index;not null;default:0" json:"outcome"`
	Signer           string              `gorm:"column:signer;type:varchar(42)" json:"signer"`
	Digest           string              `gorm:"column:digest;type:varchar(66)" json:"digest"`
	ContentsTypeName string              `gorm:"column:contents_type_name;type:varchar(64)" json:"contents_type_name"`
	Reason           string              `gorm:"column:reason;type:varchar(128)" json:"reason"`
	TraceID          string              `gorm:"column:trace_id;type:varchar(36)" json:"trace_id"`
	DurationMs       int64               `gorm:"column:duration_ms;type:bigint" json:"duration_ms"`
	CreatedAt        int64               `gorm:"column:created_at;type:bigint;index;not null" json:"created_at"`
}

// TableName 返回表名
func (VerificationRecord) TableName() string {
	return "signet_verifications"
}

// VerificationEvent 验证完成事件 (发送到 Kafka)
type VerificationEvent struct {
	RequestID      string `json:"request_id"`
	AccountAddress string `json:"account_address"`
	ClaimHash      string `json:"claim_hash"`
	Workflow       string `json:"workflow"`
	Outcome        string `json:"outcome"`
	Signer         string `json:"signer"`
	Reason         string `json:"reason,omitempty"`
	VerifiedAt     int64  `json:"verified_at"`
}
