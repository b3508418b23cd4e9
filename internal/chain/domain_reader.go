package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"

	"github.com/signet-labs/signet/pkg/eip712"
)

// EIP712DomainABI EIP-5267 eip712Domain() 查询 ABI
const EIP712DomainABI = `[
	{
		"type": "function",
		"name": "eip712Domain",
		"inputs": [],
		"outputs": [
			{"name": "fields", "type": "bytes1"},
			{"name": "name", "type": "string"},
			{"name": "version", "type": "string"},
			{"name": "chainId", "type": "uint256"},
			{"name": "verifyingContract", "type": "address"},
			{"name": "salt", "type": "bytes32"},
			{"name": "extensions", "type": "uint256[]"}
		],
		"stateMutability": "view"
	}
]`

const eip712DomainMethod = "eip712Domain"

// DomainReader 从实现 EIP-5267 的合约账户读取 EIP-712 域参数
type DomainReader struct {
	domainABI abi.ABI
	caller    bind.ContractCaller
}

// NewDomainReader 创建域读取器
func NewDomainReader(caller bind.ContractCaller) (*DomainReader, error) {
	parsed, err := abi.JSON(strings.NewReader(EIP712DomainABI))
	if err != nil {
		return nil, err
	}

	return &DomainReader{
		domainABI: parsed,
		caller:    caller,
	}, nil
}

// ReadDomain 调用 eip712Domain() 读取账户的域参数
func (r *DomainReader) ReadDomain(ctx context.Context, account common.Address) (*eip712.Domain, error) {
	if r.caller == nil {
		return nil, errors.New("no contract caller configured")
	}

	// 无代码的地址不是合约账户
	code, err := r.caller.CodeAt(ctx, account, nil)
	if err != nil {
		return nil, fmt.Errorf("code at %s: %w", account.Hex(), err)
	}
	if len(code) == 0 {
		return nil, ErrNoContractCode
	}

	data, err := r.domainABI.Pack(eip712DomainMethod)
	if err != nil {
		return nil, err
	}

	msg := ethereum.CallMsg{
		To:   &account,
		Data: data,
	}

	result, err := r.caller.CallContract(ctx, msg, nil)
	if err != nil {
		return nil, fmt.Errorf("call eip712Domain: %w", err)
	}

	var out struct {
		Fields            [1]byte
		Name              string
		Version           string
		ChainId           *big.Int
		VerifyingContract common.Address
		Salt              [32]byte
		Extensions        []*big.Int
	}
	if err := r.domainABI.UnpackIntoInterface(&out, eip712DomainMethod, result); err != nil {
		return nil, fmt.Errorf("unpack eip712Domain: %w", err)
	}

	domain := &eip712.Domain{
		Name:              out.Name,
		Version:           out.Version,
		ChainID:           out.ChainId,
		VerifyingContract: out.VerifyingContract,
		Salt:              common.Hash(out.Salt),
		Extensions:        out.Extensions,
	}
	if err := domain.Validate(); err != nil {
		return nil, err
	}

	return domain, nil
}
