package service

import (
	"context"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/signet-labs/signet/internal/cache"
	"github.com/signet-labs/signet/internal/chain"
	"github.com/signet-labs/signet/internal/dto"
	"github.com/signet-labs/signet/internal/model"
	"github.com/signet-labs/signet/internal/repository"
	"github.com/signet-labs/signet/pkg/eip712"
)

// ========== Mock Domain Reader ==========

type MockDomainReader struct {
	mock.Mock
}

func (m *MockDomainReader) ReadDomain(ctx context.Context, account common.Address) (*eip712.Domain, error) {
	args := m.Called(ctx, account)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*eip712.Domain), args.Error(1)
}

func newRegistryFixture(reader DomainReader) (*MockAccountDomainRepository, *MockDomainCache, *MockEventPublisher, RegistryService) {
	domainRepo := new(MockAccountDomainRepository)
	domainCache := new(MockDomainCache)
	publisher := new(MockEventPublisher)
	svc := NewRegistryService(domainRepo, domainCache, reader, publisher)
	return domainRepo, domainCache, publisher, svc
}

func validRegisterRequest() *dto.RegisterDomainRequest {
	return &dto.RegisterDomainRequest{
		Address:           testAccount,
		Name:              "SignetAccount",
		Version:           "1",
		ChainID:           31337,
		VerifyingContract: testAccount,
	}
}

// ========== Register 测试 ==========

func TestRegistryService_Register_Success(t *testing.T) {
	domainRepo, domainCache, publisher, svc := newRegistryFixture(nil)
	ctx := context.Background()
	address := strings.ToLower(testAccount)

	domainRepo.On("TransactionWithRetry", ctx, 3, mock.AnythingOfType("func(context.Context) error")).Return(nil)
	var saved *model.AccountDomain
	domainRepo.On("Upsert", ctx, mock.AnythingOfType("*model.AccountDomain")).
		Run(func(args mock.Arguments) {
			saved = args.Get(1).(*model.AccountDomain)
		}).Return(nil)
	domainCache.On("Delete", ctx, address).Return(nil)

	var published *model.DomainUpdatedEvent
	publisher.On("PublishDomainUpdate", ctx, mock.AnythingOfType("*model.DomainUpdatedEvent")).
		Run(func(args mock.Arguments) {
			published = args.Get(1).(*model.DomainUpdatedEvent)
		}).Return(nil)

	resp, err := svc.Register(ctx, validRegisterRequest())

	require.NoError(t, err)
	assert.Equal(t, address, resp.Address)
	assert.Equal(t, "SignetAccount", resp.Name)
	assert.Equal(t, address, resp.VerifyingContract)
	assert.Equal(t, string(model.DomainSourceManual), resp.Source)

	require.NotNil(t, saved)
	assert.Equal(t, address, saved.Address)
	assert.Equal(t, int64(31337), saved.ChainID)

	require.NotNil(t, published)
	assert.Equal(t, address, published.Address)
	assert.Equal(t, model.DomainSourceManual, published.Source)

	domainRepo.AssertExpectations(t)
	domainCache.AssertExpectations(t)
	publisher.AssertExpectations(t)
}

func TestRegistryService_Register_WithSaltAndExtensions(t *testing.T) {
	domainRepo, domainCache, publisher, svc := newRegistryFixture(nil)
	ctx := context.Background()
	salt := "0x1111111111111111111111111111111111111111111111111111111111111111"

	domainRepo.On("TransactionWithRetry", ctx, 3, mock.AnythingOfType("func(context.Context) error")).Return(nil)
	domainRepo.On("Upsert", ctx, mock.AnythingOfType("*model.AccountDomain")).Return(nil)
	domainCache.On("Delete", ctx, strings.ToLower(testAccount)).Return(nil)
	publisher.On("PublishDomainUpdate", ctx, mock.AnythingOfType("*model.DomainUpdatedEvent")).Return(nil)

	req := validRegisterRequest()
	req.Salt = salt
	req.Extensions = []string{"1", "7739"}

	resp, err := svc.Register(ctx, req)

	require.NoError(t, err)
	assert.Equal(t, salt, resp.Salt)
	assert.Equal(t, []string{"1", "7739"}, resp.Extensions)
}

func TestRegistryService_Register_InvalidAddress(t *testing.T) {
	_, _, _, svc := newRegistryFixture(nil)

	req := validRegisterRequest()
	req.Address = "0x123"

	_, err := svc.Register(context.Background(), req)

	assert.Equal(t, dto.ErrInvalidAddress, err)
}

func TestRegistryService_Register_InvalidDomainParams(t *testing.T) {
	_, _, _, svc := newRegistryFixture(nil)
	ctx := context.Background()

	cases := []struct {
		name   string
		mutate func(req *dto.RegisterDomainRequest)
	}{
		{
			name: "bad_verifying_contract",
			mutate: func(req *dto.RegisterDomainRequest) {
				req.VerifyingContract = "not-an-address"
			},
		},
		{
			name: "bad_salt",
			mutate: func(req *dto.RegisterDomainRequest) {
				req.Salt = "0x12"
			},
		},
		{
			name: "bad_extensions",
			mutate: func(req *dto.RegisterDomainRequest) {
				req.Extensions = []string{"0xff"}
			},
		},
		{
			// 全零地址通过十六进制校验，由域参数校验拦下
			name: "zero_verifying_contract",
			mutate: func(req *dto.RegisterDomainRequest) {
				req.VerifyingContract = "0x0000000000000000000000000000000000000000"
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := validRegisterRequest()
			tc.mutate(req)

			_, err := svc.Register(ctx, req)

			bizErr, ok := err.(*dto.BizError)
			require.True(t, ok)
			assert.Equal(t, dto.ErrInvalidDomainParams.Code, bizErr.Code)
		})
	}
}

func TestRegistryService_Register_StoreFailure(t *testing.T) {
	domainRepo, _, _, svc := newRegistryFixture(nil)
	ctx := context.Background()

	domainRepo.On("TransactionWithRetry", ctx, 3, mock.AnythingOfType("func(context.Context) error")).Return(nil)
	domainRepo.On("Upsert", ctx, mock.AnythingOfType("*model.AccountDomain")).Return(assert.AnError)

	_, err := svc.Register(ctx, validRegisterRequest())

	assert.Equal(t, dto.ErrInternalError, err)
}

// ========== GetDomain 测试 ==========

func TestRegistryService_GetDomain_CacheHit(t *testing.T) {
	domainRepo, domainCache, _, svc := newRegistryFixture(nil)
	ctx := context.Background()
	address := strings.ToLower(testAccount)

	domainCache.On("Get", ctx, address).Return(testDomainRecord(), nil)

	resp, err := svc.GetDomain(ctx, testAccount)

	// 命中缓存时不触达仓储
	require.NoError(t, err)
	assert.Equal(t, address, resp.Address)
	assert.Equal(t, "SignetAccount", resp.Name)
	domainRepo.AssertExpectations(t)
	domainCache.AssertExpectations(t)
}

func TestRegistryService_GetDomain_CacheMissBackfills(t *testing.T) {
	domainRepo, domainCache, _, svc := newRegistryFixture(nil)
	ctx := context.Background()
	address := strings.ToLower(testAccount)

	domainCache.On("Get", ctx, address).Return(nil, cache.ErrCacheMiss)
	domainRepo.On("GetByAddress", ctx, address).Return(testDomainRecord(), nil)
	domainCache.On("Set", ctx, mock.AnythingOfType("*model.AccountDomain")).Return(nil)

	resp, err := svc.GetDomain(ctx, testAccount)

	require.NoError(t, err)
	assert.Equal(t, address, resp.Address)
	domainCache.AssertExpectations(t)
}

func TestRegistryService_GetDomain_NotFound(t *testing.T) {
	domainRepo, domainCache, _, svc := newRegistryFixture(nil)
	ctx := context.Background()
	address := strings.ToLower(testAccount)

	domainCache.On("Get", ctx, address).Return(nil, cache.ErrCacheMiss)
	domainRepo.On("GetByAddress", ctx, address).Return(nil, repository.ErrAccountDomainNotFound)

	_, err := svc.GetDomain(ctx, testAccount)

	assert.Equal(t, dto.ErrAccountNotFound, err)
}

func TestRegistryService_GetDomain_InvalidAddress(t *testing.T) {
	_, _, _, svc := newRegistryFixture(nil)

	_, err := svc.GetDomain(context.Background(), "bogus")

	assert.Equal(t, dto.ErrInvalidAddress, err)
}

// ========== SyncFromChain 测试 ==========

func TestRegistryService_SyncFromChain_Success(t *testing.T) {
	reader := new(MockDomainReader)
	domainRepo, domainCache, publisher, svc := newRegistryFixture(reader)
	ctx := context.Background()
	address := strings.ToLower(testAccount)

	chainDomain := &eip712.Domain{
		Name:              "SignetAccount",
		Version:           "2",
		ChainID:           big.NewInt(31337),
		VerifyingContract: common.HexToAddress(testAccount),
		Salt:              common.HexToHash("0x2222222222222222222222222222222222222222222222222222222222222222"),
		Extensions:        []*big.Int{big.NewInt(1), big.NewInt(7739)},
	}
	reader.On("ReadDomain", ctx, common.HexToAddress(testAccount)).Return(chainDomain, nil)

	// 同步路径先锁行再写，首次同步无既有记录
	domainRepo.On("Transaction", ctx, mock.AnythingOfType("func(context.Context) error")).Return(nil)
	domainRepo.On("GetByAddressForUpdate", ctx, address).Return(nil, repository.ErrAccountDomainNotFound)
	var saved *model.AccountDomain
	domainRepo.On("Upsert", ctx, mock.AnythingOfType("*model.AccountDomain")).
		Run(func(args mock.Arguments) {
			saved = args.Get(1).(*model.AccountDomain)
		}).Return(nil)
	domainCache.On("Delete", ctx, address).Return(nil)
	publisher.On("PublishDomainUpdate", ctx, mock.AnythingOfType("*model.DomainUpdatedEvent")).Return(nil)

	resp, err := svc.SyncFromChain(ctx, testAccount)

	require.NoError(t, err)
	assert.Equal(t, address, resp.Address)
	assert.Equal(t, "2", resp.Version)
	assert.Equal(t, address, resp.VerifyingContract)
	assert.Equal(t, string(model.DomainSourceChain), resp.Source)
	assert.Equal(t, []string{"1", "7739"}, resp.Extensions)
	assert.NotZero(t, resp.SyncedAt)

	require.NotNil(t, saved)
	assert.Equal(t, model.DomainSourceChain, saved.Source)
	assert.Equal(t, int64(31337), saved.ChainID)

	reader.AssertExpectations(t)
	domainRepo.AssertExpectations(t)
}

func TestRegistryService_SyncFromChain_NoReader(t *testing.T) {
	_, _, _, svc := newRegistryFixture(nil)

	_, err := svc.SyncFromChain(context.Background(), testAccount)

	bizErr, ok := err.(*dto.BizError)
	require.True(t, ok)
	assert.Equal(t, dto.ErrServiceUnavailable.Code, bizErr.Code)
}

func TestRegistryService_SyncFromChain_NotContract(t *testing.T) {
	reader := new(MockDomainReader)
	_, _, _, svc := newRegistryFixture(reader)
	ctx := context.Background()

	reader.On("ReadDomain", ctx, common.HexToAddress(testAccount)).Return(nil, chain.ErrNoContractCode)

	_, err := svc.SyncFromChain(ctx, testAccount)

	assert.Equal(t, dto.ErrNotContractAccount, err)
}

func TestRegistryService_SyncFromChain_ReadFailure(t *testing.T) {
	reader := new(MockDomainReader)
	_, _, _, svc := newRegistryFixture(reader)
	ctx := context.Background()

	reader.On("ReadDomain", ctx, common.HexToAddress(testAccount)).Return(nil, assert.AnError)

	_, err := svc.SyncFromChain(ctx, testAccount)

	assert.Equal(t, dto.ErrDomainSyncFailed, err)
}

// ========== List / Delete 测试 ==========

func TestRegistryService_List(t *testing.T) {
	domainRepo, _, _, svc := newRegistryFixture(nil)
	ctx := context.Background()

	records := []*model.AccountDomain{testDomainRecord()}
	domainRepo.On("List", ctx, mock.AnythingOfType("*repository.Pagination")).
		Run(func(args mock.Arguments) {
			args.Get(1).(*repository.Pagination).Total = 1
		}).Return(records, nil)

	data, err := svc.List(ctx, &dto.ListDomainsQuery{})

	require.NoError(t, err)
	assert.Equal(t, int64(1), data.Pagination.Total)
	items := data.Items.([]*dto.DomainResponse)
	require.Len(t, items, 1)
	assert.Equal(t, strings.ToLower(testAccount), items[0].Address)
}

func TestRegistryService_Delete_Success(t *testing.T) {
	domainRepo, domainCache, _, svc := newRegistryFixture(nil)
	ctx := context.Background()
	address := strings.ToLower(testAccount)

	domainRepo.On("Delete", ctx, address).Return(nil)
	domainCache.On("Delete", ctx, address).Return(nil)

	err := svc.Delete(ctx, testAccount)

	require.NoError(t, err)
	domainRepo.AssertExpectations(t)
	domainCache.AssertExpectations(t)
}

func TestRegistryService_Delete_NotFound(t *testing.T) {
	domainRepo, _, _, svc := newRegistryFixture(nil)
	ctx := context.Background()

	domainRepo.On("Delete", ctx, strings.ToLower(testAccount)).Return(repository.ErrAccountDomainNotFound)

	err := svc.Delete(ctx, testAccount)

	assert.Equal(t, dto.ErrAccountNotFound, err)
}
