// Package service 提供业务服务层
package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/google/uuid"

	"github.com/signet-labs/signet/internal/dto"
	"github.com/signet-labs/signet/internal/kafka"
	"github.com/signet-labs/signet/internal/metrics"
	"github.com/signet-labs/signet/internal/model"
	"github.com/signet-labs/signet/internal/repository"
	"github.com/signet-labs/signet/pkg/eip712"
	"github.com/signet-labs/signet/pkg/erc7739"
	"github.com/signet-labs/signet/pkg/logger"
)

// 拒绝原因，写入审计记录并返回给调用方
const (
	ReasonMalformedDescriptor = "malformed contents type descriptor"
	ReasonRecoveryFailed      = "signature recovery failed"
	ReasonSignerMismatch      = "recovered signer does not match expected signer"
)

const rawSignatureLength = 65

// DomainCache 账户域缓存依赖
type DomainCache interface {
	Get(ctx context.Context, address string) (*model.AccountDomain, error)
	Set(ctx context.Context, domain *model.AccountDomain) error
	Delete(ctx context.Context, address string) error
}

// VerificationService 签名验证服务接口
type VerificationService interface {
	// Verify 执行完整验证流程：解析请求、解析账户域、运行验证引擎、落审计记录
	Verify(ctx context.Context, req *dto.VerifyRequest) (*dto.VerifyResponse, error)

	// Capability 返回方案能力信息
	Capability() *dto.CapabilityResponse

	// GetVerification 按请求 ID 查询审计记录
	GetVerification(ctx context.Context, requestID string) (*dto.VerificationResponse, error)

	// ListVerifications 分页查询审计记录
	ListVerifications(ctx context.Context, query *dto.ListVerificationsQuery) (*dto.PagedData, error)
}

// verificationService 签名验证服务实现
type verificationService struct {
	domainRepo     repository.AccountDomainRepository
	verifyRepo     repository.VerificationRepository
	domainCache    DomainCache
	publisher      kafka.EventPublisher
	allowUnwrapped bool
}

// NewVerificationService 创建签名验证服务
func NewVerificationService(
	domainRepo repository.AccountDomainRepository,
	verifyRepo repository.VerificationRepository,
	domainCache DomainCache,
	publisher kafka.EventPublisher,
	allowUnwrapped bool,
) VerificationService {
	return &verificationService{
		domainRepo:     domainRepo,
		verifyRepo:     verifyRepo,
		domainCache:    domainCache,
		publisher:      publisher,
		allowUnwrapped: allowUnwrapped,
	}
}

// Verify 执行完整验证流程
func (s *verificationService) Verify(ctx context.Context, req *dto.VerifyRequest) (*dto.VerifyResponse, error) {
	start := time.Now()

	// 1. 解析请求参数
	if !common.IsHexAddress(req.Account) {
		return nil, dto.ErrInvalidAddress
	}
	account := strings.ToLower(req.Account)

	claim, err := parseHash(req.ClaimHash)
	if err != nil {
		return nil, dto.ErrInvalidClaimHash
	}

	blob, err := parseHexBytes(req.Signature)
	if err != nil {
		return nil, dto.ErrInvalidSignature
	}

	var expectedSigner common.Address
	hasExpected := req.ExpectedSigner != ""
	if hasExpected {
		if !common.IsHexAddress(req.ExpectedSigner) {
			return nil, dto.ErrInvalidSigner
		}
		expectedSigner = common.HexToAddress(req.ExpectedSigner)
	}

	requestID := uuid.New().String()

	// 2. 能力探测短路：哨兵请求直接应答魔法值，不产生审计记录
	if erc7739.IsSupportQuery(claim, blob) {
		metrics.RecordSupportQuery()
		return &dto.VerifyResponse{
			RequestID:  requestID,
			Valid:      true,
			MagicValue: hexutil.Encode(erc7739.MagicValue[:]),
			DurationMs: int(time.Since(start).Milliseconds()),
		}, nil
	}

	// 3. 未包装签名预检：宿主策略，要求提供期望签名人才能判定有效性
	if s.allowUnwrapped && hasExpected && len(blob) == rawSignatureLength {
		if signer, err := eip712.RecoverAddress(claim, blob); err == nil && signer == expectedSigner {
			return s.finish(ctx, req, requestID, account, claim, &verifyOutcome{
				outcome:  model.VerificationOutcomeAccepted,
				workflow: model.WorkflowUnwrapped,
				signer:   signer,
				digest:   claim,
			}, start), nil
		}
		// 预检不通过时继续嵌套流程
	}

	// 4. 解析账户域并构建验证器
	domainRecord, err := resolveAccountDomain(ctx, s.domainCache, s.domainRepo, account)
	if err != nil {
		if errors.Is(err, repository.ErrAccountDomainNotFound) {
			return nil, dto.ErrAccountNotFound
		}
		logger.Error("resolve account domain failed", "account", account, "error", err)
		return nil, dto.ErrInternalError
	}

	domain, err := domainRecord.Domain()
	if err != nil {
		logger.Error("stored account domain is invalid", "account", account, "error", err)
		return nil, dto.ErrInternalError
	}

	verifier, err := erc7739.NewVerifier(domain)
	if err != nil {
		logger.Error("build verifier failed", "account", account, "error", err)
		return nil, dto.ErrInternalError
	}

	// 5. 运行验证引擎
	outcome := s.runVerifier(verifier, claim, blob, expectedSigner, hasExpected)

	return s.finish(ctx, req, requestID, account, claim, outcome, start), nil
}

// verifyOutcome 验证引擎的判定结果
type verifyOutcome struct {
	outcome          model.VerificationOutcome
	workflow         string
	signer           common.Address
	digest           common.Hash
	contentsTypeName string
	reason           string
}

// runVerifier 执行核心验证并应用期望签名人比对
func (s *verificationService) runVerifier(verifier *erc7739.Verifier, claim common.Hash, blob []byte, expectedSigner common.Address, hasExpected bool) *verifyOutcome {
	result, err := verifier.Verify(claim, blob)
	if err != nil {
		reason := ReasonRecoveryFailed
		if errors.Is(err, erc7739.ErrInvalidContentsType) {
			reason = ReasonMalformedDescriptor
		}
		return &verifyOutcome{
			outcome: model.VerificationOutcomeRejected,
			reason:  reason,
		}
	}

	out := &verifyOutcome{
		outcome:          model.VerificationOutcomeAccepted,
		workflow:         string(result.Workflow),
		signer:           result.Signer,
		digest:           result.Digest,
		contentsTypeName: result.ContentsTypeName,
	}

	// 恢复成功但与期望签名人不符时拒绝，保留恢复出的地址供排查
	if hasExpected && result.Signer != expectedSigner {
		out.outcome = model.VerificationOutcomeRejected
		out.reason = ReasonSignerMismatch
	}
	return out
}

// finish 落审计记录、发事件、记指标并组装响应
func (s *verificationService) finish(ctx context.Context, req *dto.VerifyRequest, requestID, account string, claim common.Hash, out *verifyOutcome, start time.Time) *dto.VerifyResponse {
	duration := time.Since(start)
	now := time.Now().UnixMilli()

	record := &model.VerificationRecord{
		RequestID:        requestID,
		AccountAddress:   account,
		ClaimHash:        claim.Hex(),
		Workflow:         out.workflow,
		Outcome:          out.outcome,
		ContentsTypeName: out.contentsTypeName,
		Reason:           out.reason,
		TraceID:          req.TraceID,
		DurationMs:       duration.Milliseconds(),
		CreatedAt:        now,
	}
	if out.signer != (common.Address{}) {
		record.Signer = out.signer.Hex()
	}
	if out.digest != (common.Hash{}) {
		record.Digest = out.digest.Hex()
	}

	// 审计写入失败不影响验证结论，记日志后继续
	if err := s.verifyRepo.Create(ctx, record); err != nil {
		logger.Error("persist verification record failed",
			"request_id", requestID,
			"account", account,
			"error", err,
		)
	}

	outcomeLabel := strings.ToLower(out.outcome.String())
	event := &model.VerificationEvent{
		RequestID:      requestID,
		AccountAddress: account,
		ClaimHash:      claim.Hex(),
		Workflow:       out.workflow,
		Outcome:        outcomeLabel,
		Signer:         record.Signer,
		Reason:         out.reason,
		VerifiedAt:     now,
	}
	if err := s.publisher.PublishVerification(ctx, event); err != nil {
		logger.Warn("publish verification event failed", "request_id", requestID, "error", err)
	}

	workflowLabel := out.workflow
	if workflowLabel == "" {
		workflowLabel = "none"
	}
	metrics.RecordVerification(workflowLabel, outcomeLabel, duration.Seconds())

	return &dto.VerifyResponse{
		RequestID:        requestID,
		Valid:            out.outcome == model.VerificationOutcomeAccepted,
		Workflow:         out.workflow,
		Signer:           record.Signer,
		Digest:           record.Digest,
		ContentsTypeName: out.contentsTypeName,
		Reason:           out.reason,
		DurationMs:       int(duration.Milliseconds()),
	}
}

// Capability 返回方案能力信息
func (s *verificationService) Capability() *dto.CapabilityResponse {
	return &dto.CapabilityResponse{
		Supported:     true,
		MagicValue:    hexutil.Encode(erc7739.MagicValue[:]),
		DetectionHash: erc7739.DetectionHash.Hex(),
	}
}

// GetVerification 按请求 ID 查询审计记录
func (s *verificationService) GetVerification(ctx context.Context, requestID string) (*dto.VerificationResponse, error) {
	record, err := s.verifyRepo.GetByRequestID(ctx, requestID)
	if err != nil {
		if errors.Is(err, repository.ErrVerificationNotFound) {
			return nil, dto.ErrVerificationNotFound
		}
		logger.Error("get verification record failed", "request_id", requestID, "error", err)
		return nil, dto.ErrInternalError
	}
	return verificationToDTO(record), nil
}

// ListVerifications 分页查询审计记录
//
// 过滤条件按 账户 > 结论 > 时间范围 的优先级取第一个命中的维度。
func (s *verificationService) ListVerifications(ctx context.Context, query *dto.ListVerificationsQuery) (*dto.PagedData, error) {
	query.Normalize()
	page := &repository.Pagination{Page: query.Page, PageSize: query.PageSize}

	var (
		records []*model.VerificationRecord
		err     error
	)
	switch {
	case query.Account != "":
		if !common.IsHexAddress(query.Account) {
			return nil, dto.ErrInvalidAddress
		}
		records, err = s.verifyRepo.ListByAccount(ctx, strings.ToLower(query.Account), page)
	case query.Outcome != "":
		outcome, ok := parseOutcome(query.Outcome)
		if !ok {
			return nil, dto.ErrInvalidParams.WithMessage("unknown outcome filter")
		}
		records, err = s.verifyRepo.ListByOutcome(ctx, outcome, page)
	case query.StartTime > 0 || query.EndTime > 0:
		tr := &repository.TimeRange{Start: query.StartTime, End: query.EndTime}
		records, err = s.verifyRepo.ListByTimeRange(ctx, tr, page)
		if errors.Is(err, repository.ErrInvalidVerifyTimeRange) {
			return nil, dto.ErrInvalidTimeRange
		}
	default:
		records, err = s.verifyRepo.List(ctx, page)
	}
	if err != nil {
		logger.Error("list verification records failed", "error", err)
		return nil, dto.ErrInternalError
	}

	items := make([]*dto.VerificationResponse, 0, len(records))
	for _, record := range records {
		items = append(items, verificationToDTO(record))
	}

	return &dto.PagedData{
		Items: items,
		Pagination: &dto.Pagination{
			Total:    page.Total,
			Page:     page.Page,
			PageSize: page.PageSize,
		},
	}, nil
}

// verificationToDTO 转换审计记录为响应
func verificationToDTO(record *model.VerificationRecord) *dto.VerificationResponse {
	return &dto.VerificationResponse{
		RequestID:        record.RequestID,
		AccountAddress:   record.AccountAddress,
		ClaimHash:        record.ClaimHash,
		Workflow:         record.Workflow,
		Outcome:          strings.ToLower(record.Outcome.String()),
		Signer:           record.Signer,
		Digest:           record.Digest,
		ContentsTypeName: record.ContentsTypeName,
		Reason:           record.Reason,
		TraceID:          record.TraceID,
		DurationMs:       int(record.DurationMs),
		CreatedAt:        record.CreatedAt,
	}
}

// parseOutcome 解析结论过滤值
func parseOutcome(value string) (model.VerificationOutcome, bool) {
	switch strings.ToLower(value) {
	case "accepted":
		return model.VerificationOutcomeAccepted, true
	case "rejected":
		return model.VerificationOutcomeRejected, true
	default:
		return 0, false
	}
}

// parseHash 严格解析 32 字节哈希
func parseHash(value string) (common.Hash, error) {
	b, err := hexutil.Decode(value)
	if err != nil {
		return common.Hash{}, err
	}
	if len(b) != common.HashLength {
		return common.Hash{}, errors.New("hash must be 32 bytes")
	}
	return common.BytesToHash(b), nil
}

// parseHexBytes 解析十六进制字节串，空串视为空字节
func parseHexBytes(value string) ([]byte, error) {
	if value == "" {
		return nil, nil
	}
	return hexutil.Decode(value)
}
