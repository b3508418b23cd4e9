package service

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/signet-labs/signet/internal/cache"
	"github.com/signet-labs/signet/internal/chain"
	"github.com/signet-labs/signet/internal/dto"
	"github.com/signet-labs/signet/internal/kafka"
	"github.com/signet-labs/signet/internal/metrics"
	"github.com/signet-labs/signet/internal/model"
	"github.com/signet-labs/signet/internal/repository"
	"github.com/signet-labs/signet/pkg/eip712"
	"github.com/signet-labs/signet/pkg/logger"
)

// DomainReader 链上域读取依赖，未配置链访问时为 nil
type DomainReader interface {
	ReadDomain(ctx context.Context, account common.Address) (*eip712.Domain, error)
}

// RegistryService 账户域登记服务接口
type RegistryService interface {
	// Register 手工登记或更新账户域
	Register(ctx context.Context, req *dto.RegisterDomainRequest) (*dto.DomainResponse, error)

	// GetDomain 查询账户域
	GetDomain(ctx context.Context, address string) (*dto.DomainResponse, error)

	// SyncFromChain 读取账户合约的 eip712Domain() 并更新登记
	SyncFromChain(ctx context.Context, address string) (*dto.DomainResponse, error)

	// List 分页查询账户域
	List(ctx context.Context, query *dto.ListDomainsQuery) (*dto.PagedData, error)

	// Delete 删除账户域
	Delete(ctx context.Context, address string) error
}

// registryService 账户域登记服务实现
type registryService struct {
	domainRepo  repository.AccountDomainRepository
	domainCache DomainCache
	reader      DomainReader
	publisher   kafka.EventPublisher
}

// NewRegistryService 创建账户域登记服务
func NewRegistryService(
	domainRepo repository.AccountDomainRepository,
	domainCache DomainCache,
	reader DomainReader,
	publisher kafka.EventPublisher,
) RegistryService {
	return &registryService{
		domainRepo:  domainRepo,
		domainCache: domainCache,
		reader:      reader,
		publisher:   publisher,
	}
}

// Register 手工登记或更新账户域
func (s *registryService) Register(ctx context.Context, req *dto.RegisterDomainRequest) (*dto.DomainResponse, error) {
	if !common.IsHexAddress(req.Address) {
		return nil, dto.ErrInvalidAddress
	}
	if !common.IsHexAddress(req.VerifyingContract) {
		return nil, dto.ErrInvalidDomainParams.WithMessage("verifying_contract is not a valid address")
	}

	record := &model.AccountDomain{
		Address:           strings.ToLower(req.Address),
		Name:              req.Name,
		Version:           req.Version,
		ChainID:           req.ChainID,
		VerifyingContract: strings.ToLower(req.VerifyingContract),
		Source:            model.DomainSourceManual,
	}
	if req.Salt != "" {
		salt, err := parseHash(req.Salt)
		if err != nil {
			return nil, dto.ErrInvalidDomainParams.WithMessage("salt must be a 32-byte hex value")
		}
		record.Salt = salt.Hex()
	}

	extensions, err := parseExtensions(req.Extensions)
	if err != nil {
		return nil, dto.ErrInvalidDomainParams.WithMessage(err.Error())
	}
	if err := record.SetExtensions(extensions); err != nil {
		return nil, dto.ErrInvalidDomainParams.WithMessage(err.Error())
	}

	// 登记前按验证引擎的口径校验域参数
	domain, err := record.Domain()
	if err != nil {
		return nil, dto.ErrInvalidDomainParams.WithMessage(err.Error())
	}
	if err := domain.Validate(); err != nil {
		return nil, dto.ErrInvalidDomainParams.WithMessage(err.Error())
	}

	if err := s.store(ctx, record); err != nil {
		logger.Error("register account domain failed", "address", record.Address, "error", err)
		return nil, dto.ErrInternalError
	}

	return domainToDTO(record), nil
}

// GetDomain 查询账户域
func (s *registryService) GetDomain(ctx context.Context, address string) (*dto.DomainResponse, error) {
	if !common.IsHexAddress(address) {
		return nil, dto.ErrInvalidAddress
	}

	record, err := resolveAccountDomain(ctx, s.domainCache, s.domainRepo, strings.ToLower(address))
	if err != nil {
		if errors.Is(err, repository.ErrAccountDomainNotFound) {
			return nil, dto.ErrAccountNotFound
		}
		logger.Error("get account domain failed", "address", address, "error", err)
		return nil, dto.ErrInternalError
	}
	return domainToDTO(record), nil
}

// SyncFromChain 读取账户合约的 eip712Domain() 并更新登记
func (s *registryService) SyncFromChain(ctx context.Context, address string) (*dto.DomainResponse, error) {
	if !common.IsHexAddress(address) {
		return nil, dto.ErrInvalidAddress
	}
	if s.reader == nil {
		return nil, dto.ErrServiceUnavailable.WithMessage("chain access is not configured")
	}
	normalized := strings.ToLower(address)

	start := time.Now()
	domain, err := s.reader.ReadDomain(ctx, common.HexToAddress(address))
	metrics.RecordChainRequest("eip712Domain", err == nil, time.Since(start).Seconds())
	if err != nil {
		if errors.Is(err, chain.ErrNoContractCode) {
			return nil, dto.ErrNotContractAccount
		}
		logger.Error("read domain from chain failed", "address", address, "error", err)
		return nil, dto.ErrDomainSyncFailed
	}

	record, err := domainFromChain(normalized, domain)
	if err != nil {
		logger.Error("map chain domain failed", "address", address, "error", err)
		return nil, dto.ErrDomainSyncFailed
	}

	if err := s.storeLocked(ctx, record); err != nil {
		logger.Error("persist synced domain failed", "address", address, "error", err)
		return nil, dto.ErrInternalError
	}

	return domainToDTO(record), nil
}

// List 分页查询账户域
func (s *registryService) List(ctx context.Context, query *dto.ListDomainsQuery) (*dto.PagedData, error) {
	query.Normalize()
	page := &repository.Pagination{Page: query.Page, PageSize: query.PageSize}

	records, err := s.domainRepo.List(ctx, page)
	if err != nil {
		logger.Error("list account domains failed", "error", err)
		return nil, dto.ErrInternalError
	}

	items := make([]*dto.DomainResponse, 0, len(records))
	for _, record := range records {
		items = append(items, domainToDTO(record))
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

// Delete 删除账户域
func (s *registryService) Delete(ctx context.Context, address string) error {
	if !common.IsHexAddress(address) {
		return dto.ErrInvalidAddress
	}
	normalized := strings.ToLower(address)

	if err := s.domainRepo.Delete(ctx, normalized); err != nil {
		if errors.Is(err, repository.ErrAccountDomainNotFound) {
			return dto.ErrAccountNotFound
		}
		logger.Error("delete account domain failed", "address", address, "error", err)
		return dto.ErrInternalError
	}

	if err := s.domainCache.Delete(ctx, normalized); err != nil {
		logger.Warn("invalidate domain cache failed", "address", address, "error", err)
	}
	return nil
}

// storeMaxRetries 并发登记同一地址时 upsert 可能死锁，重试吸收
const storeMaxRetries = 3

// store 落库、失效缓存并发布变更事件
func (s *registryService) store(ctx context.Context, record *model.AccountDomain) error {
	err := s.domainRepo.TransactionWithRetry(ctx, storeMaxRetries, func(txCtx context.Context) error {
		return s.domainRepo.Upsert(txCtx, record)
	})
	if err != nil {
		return err
	}

	s.afterStore(ctx, record)
	return nil
}

// storeLocked 行锁串行化同一账户的并发链上同步，后到的快照覆盖先到的
func (s *registryService) storeLocked(ctx context.Context, record *model.AccountDomain) error {
	err := s.domainRepo.Transaction(ctx, func(txCtx context.Context) error {
		_, err := s.domainRepo.GetByAddressForUpdate(txCtx, record.Address)
		if err != nil && !errors.Is(err, repository.ErrAccountDomainNotFound) {
			return err
		}
		return s.domainRepo.Upsert(txCtx, record)
	})
	if err != nil {
		return err
	}

	s.afterStore(ctx, record)
	return nil
}

// afterStore 更新后失效缓存并发布变更事件，两者均尽力而为
func (s *registryService) afterStore(ctx context.Context, record *model.AccountDomain) {
	// 失效后下次读取回填
	if err := s.domainCache.Delete(ctx, record.Address); err != nil {
		logger.Warn("invalidate domain cache failed", "address", record.Address, "error", err)
	}

	event := &model.DomainUpdatedEvent{
		Address:           record.Address,
		Name:              record.Name,
		Version:           record.Version,
		ChainID:           record.ChainID,
		VerifyingContract: record.VerifyingContract,
		Source:            record.Source,
		UpdatedAt:         record.UpdatedAt,
	}
	if err := s.publisher.PublishDomainUpdate(ctx, event); err != nil {
		logger.Warn("publish domain updated event failed", "address", record.Address, "error", err)
	}
}

// resolveAccountDomain 缓存优先读取账户域，未命中回退仓储并回填
func resolveAccountDomain(ctx context.Context, domainCache DomainCache, domainRepo repository.AccountDomainRepository, account string) (*model.AccountDomain, error) {
	cached, err := domainCache.Get(ctx, account)
	if err == nil {
		metrics.RecordDomainCache("hit")
		return cached, nil
	}
	if errors.Is(err, cache.ErrCacheMiss) {
		metrics.RecordDomainCache("miss")
	} else {
		// 缓存故障降级为仓储读取
		metrics.RecordDomainCache("error")
		logger.Warn("domain cache read failed", "account", account, "error", err)
	}

	record, err := domainRepo.GetByAddress(ctx, account)
	if err != nil {
		return nil, err
	}

	if err := domainCache.Set(ctx, record); err != nil {
		logger.Warn("domain cache backfill failed", "account", account, "error", err)
	}
	return record, nil
}

// domainFromChain 将链上读出的域映射为登记记录
func domainFromChain(address string, domain *eip712.Domain) (*model.AccountDomain, error) {
	record := &model.AccountDomain{
		Address:           address,
		Name:              domain.Name,
		Version:           domain.Version,
		VerifyingContract: strings.ToLower(domain.VerifyingContract.Hex()),
		Source:            model.DomainSourceChain,
		SyncedAt:          time.Now().UnixMilli(),
	}
	if domain.ChainID != nil {
		record.ChainID = domain.ChainID.Int64()
	}
	if domain.Salt != (common.Hash{}) {
		record.Salt = domain.Salt.Hex()
	}
	if err := record.SetExtensions(domain.Extensions); err != nil {
		return nil, err
	}
	return record, nil
}

// domainToDTO 转换账户域为响应
func domainToDTO(record *model.AccountDomain) *dto.DomainResponse {
	resp := &dto.DomainResponse{
		Address:           record.Address,
		Name:              record.Name,
		Version:           record.Version,
		ChainID:           record.ChainID,
		VerifyingContract: record.VerifyingContract,
		Salt:              record.Salt,
		Source:            string(record.Source),
		SyncedAt:          record.SyncedAt,
		CreatedAt:         record.CreatedAt,
		UpdatedAt:         record.UpdatedAt,
	}
	if values, err := record.ExtensionValues(); err == nil {
		resp.Extensions = values
	} else {
		logger.Warn("decode domain extensions failed", "address", record.Address, "error", err)
	}
	return resp
}

// parseExtensions 解析十进制扩展字列表
func parseExtensions(values []string) ([]*big.Int, error) {
	if len(values) == 0 {
		return nil, nil
	}
	extensions := make([]*big.Int, len(values))
	for i, v := range values {
		ext, ok := new(big.Int).SetString(v, 10)
		if !ok {
			return nil, errors.New("extensions must be decimal integers")
		}
		extensions[i] = ext
	}
	return extensions, nil
}
