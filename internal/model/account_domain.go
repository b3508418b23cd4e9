package model

import (
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/signet-labs/signet/pkg/eip712"
)

// DomainSource 域记录来源
type DomainSource string

const (
	DomainSourceManual DomainSource = "manual" // API 注册
	DomainSourceChain  DomainSource = "chain"  // 从账户合约读取 (EIP-5267)
)

// AccountDomain 账户域记录
//
// 每个智能账户地址一行，保存该账户签署嵌套载荷时使用的 EIP-712 域。
type AccountDomain struct {
	ID                int64        `gorm:"primaryKey;autoIncrement" json:"id"`
	Address           string       `gorm:"column:address;type:varchar(42);uniqueIndex;not null" json:"address"`
	Name              string       `gorm:"column:name;type:varchar(64);not null" json:"name"`
	Version           string       `gorm:"column:version;type:varchar(16);not null" json:"version"`
	ChainID           int64        `gorm:"column:chain_id;type:bigint;not null" json:"chain_id"`
	VerifyingContract string       `gorm:"column:verifying_contract;type:varchar(42);not null" json:"verifying_contract"`
	Salt              string       `gorm:"column:salt;type:varchar(66)" json:"salt"`
	Extensions        string       `gorm:"column:extensions;type:text" json:"extensions"`
	Source            DomainSource `gorm:"column:source;type:varchar(16);not null;default:'manual'" json:"source"`
	SyncedAt          int64        `gorm:"column:synced_at;type:bigint" json:"synced_at"`
	CreatedAt         int64        `gorm:"column:created_at;type:bigint;not null" json:"created_at"`
	UpdatedAt         int64        `gorm:"column:updated_at;type:bigint;not null" json:"updated_at"`
}

// TableName 返回表名
func (AccountDomain) TableName() string {
	return "signet_account_domains"
}

// Domain 转换为验证引擎使用的类型化数据域
func (d *AccountDomain) Domain() (*eip712.Domain, error) {
	extensions, err := decodeExtensions(d.Extensions)
	if err != nil {
		return nil, fmt.Errorf("decode extensions for %s: %w", d.Address, err)
	}

	domain := &eip712.Domain{
		Name:              d.Name,
		Version:           d.Version,
		ChainID:           big.NewInt(d.ChainID),
		VerifyingContract: common.HexToAddress(d.VerifyingContract),
		Extensions:        extensions,
	}
	if d.Salt != "" {
		domain.Salt = common.HexToHash(d.Salt)
	}
	return domain, nil
}

// ExtensionValues 返回扩展字的十进制字符串形式
func (d *AccountDomain) ExtensionValues() ([]string, error) {
	if d.Extensions == "" {
		return nil, nil
	}
	var values []string
	if err := json.Unmarshal([]byte(d.Extensions), &values); err != nil {
		return nil, err
	}
	return values, nil
}

// SetExtensions 将扩展字存为十进制字符串 JSON 数组
func (d *AccountDomain) SetExtensions(extensions []*big.Int) error {
	encoded, err := encodeExtensions(extensions)
	if err != nil {
		return err
	}
	d.Extensions = encoded
	return nil
}

func encodeExtensions(extensions []*big.Int) (string, error) {
	if len(extensions) == 0 {
		return "", nil
	}
	values := make([]string, len(extensions))
	for i, ext := range extensions {
		if ext == nil {
			return "", fmt.Errorf("extension %d is nil", i)
		}
		values[i] = ext.String()
	}
	data, err := json.Marshal(values)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func decodeExtensions(encoded string) ([]*big.Int, error) {
	if encoded == "" {
		return nil, nil
	}
	var values []string
	if err := json.Unmarshal([]byte(encoded), &values); err != nil {
		return nil, err
	}
	extensions := make([]*big.Int, len(values))
	for i, v := range values {
		ext, ok := new(big.Int).SetString(v, 10)
		if !ok {
			return nil, fmt.Errorf("invalid extension value %q", v)
		}
		extensions[i] = ext
	}
	return extensions, nil
}

// DomainUpdatedEvent 域变更事件 (发送到 Kafka)
type DomainUpdatedEvent struct {
	Address           string       `json:"address"`
	Name              string       `json:"name"`
	Version           string       `json:"version"`
	ChainID           int64        `json:"chain_id"`
	VerifyingContract string       `json:"verifying_contract"`
	Source            DomainSource `json:"source"`
	UpdatedAt         int64        `json:"updated_at"`
}
