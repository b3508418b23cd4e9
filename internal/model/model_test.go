package model

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestAccountDomain_TableName 测试表名
func TestAccountDomain_TableName(t *testing.T) {
	assert.Equal(t, "signet_account_domains", AccountDomain{}.TableName())
}

// TestVerificationRecord_TableName 测试表名
func TestVerificationRecord_TableName(t *testing.T) {
	assert.Equal(t, "signet_verifications", VerificationRecord{}.TableName())
}

// TestJobExecution_TableName 测试表名
func TestJobExecution_TableName(t *testing.T) {
	assert.Equal(t, "signet_job_executions", JobExecution{}.TableName())
}

// TestAccountDomain_Domain 测试域转换
func TestAccountDomain_Domain(t *testing.T) {
	record := &AccountDomain{
		Address:           "0x5FbDB2315678afecb367f032d93F642f64180aa3",
		Name:              "SignetAccount",
		Version:           "1",
		ChainID:           31337,
		VerifyingContract: "0x5FbDB2315678afecb367f032d93F642f64180aa3",
	}

	domain, err := record.Domain()
	require.NoError(t, err)
	assert.Equal(t, "SignetAccount", domain.Name)
	assert.Equal(t, "1", domain.Version)
	assert.Equal(t, int64(31337), domain.ChainID.Int64())
	assert.Equal(t, record.VerifyingContract, domain.VerifyingContract.Hex())
	assert.NoError(t, domain.Validate())
}

// TestAccountDomain_Extensions 测试扩展字编解码
func TestAccountDomain_Extensions(t *testing.T) {
	record := &AccountDomain{
		Address:           "0x5FbDB2315678afecb367f032d93F642f64180aa3",
		Name:              "SignetAccount",
		Version:           "1",
		ChainID:           31337,
		VerifyingContract: "0x5FbDB2315678afecb367f032d93F642f64180aa3",
	}

	extensions := []*big.Int{big.NewInt(7739), big.NewInt(1271)}
	require.NoError(t, record.SetExtensions(extensions))
	assert.Equal(t, `["7739","1271"]`, record.Extensions)

	domain, err := record.Domain()
	require.NoError(t, err)
	require.Len(t, domain.Extensions, 2)
	assert.Equal(t, int64(7739), domain.Extensions[0].Int64())
	assert.Equal(t, int64(1271), domain.Extensions[1].Int64())
}

// TestAccountDomain_Extensions_Empty 测试空扩展
func TestAccountDomain_Extensions_Empty(t *testing.T) {
	record := &AccountDomain{}
	require.NoError(t, record.SetExtensions(nil))
	assert.Empty(t, record.Extensions)

	extensions, err := decodeExtensions("")
	require.NoError(t, err)
	assert.Nil(t, extensions)
}

// TestAccountDomain_Extensions_Invalid 测试非法扩展数据
func TestAccountDomain_Extensions_Invalid(t *testing.T) {
	record := &AccountDomain{
		Address:    "0x5FbDB2315678afecb367f032d93F642f64180aa3",
		Extensions: `["not-a-number"]`,
	}
	_, err := record.Domain()
	assert.Error(t, err)

	record.Extensions = `{broken json`
	_, err = record.Domain()
	assert.Error(t, err)
}

// TestVerificationOutcome_String 测试结论字符串表示
func TestVerificationOutcome_String(t *testing.T) {
	assert.Equal(t, "REJECTED", VerificationOutcomeRejected.String())
	assert.Equal(t, "ACCEPTED", VerificationOutcomeAccepted.String())
	assert.Equal(t, "UNKNOWN", VerificationOutcome(99).String())
}

// TestJSONResult_ValueScan 测试 JSONB 编解码
func TestJSONResult_ValueScan(t *testing.T) {
	result := JSONResult{"processed_count": float64(3), "detail": "ok"}

	value, err := result.Value()
	require.NoError(t, err)

	var decoded JSONResult
	require.NoError(t, decoded.Scan(value))
	assert.Equal(t, result, decoded)

	var fromNil JSONResult
	require.NoError(t, fromNil.Scan(nil))
	assert.Nil(t, fromNil)
}
