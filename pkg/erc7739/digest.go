package erc7739

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/signet-labs/signet/pkg/eip712"
)

// typedDataSignType is the fixed wrapper template. The caller's type
// descriptor is appended verbatim, binding the declared shape of the
// nested structure into the type hash so signing clients can render it.
const typedDataSignType = "TypedDataSign(bytes32 contents,bytes1 fields,string name,string version,uint256 chainId,address verifyingContract,bytes32 salt,uint256[] extensions)"

// personalSignTypeHash is the type hash of the personal workflow wrapper.
var personalSignTypeHash = eip712.Keccak256Hash([]byte("PersonalSign(bytes prefixed)"))

// TypedDataSignTypeHash hashes the wrapper template concatenated with
// the caller's descriptor.
func TypedDataSignTypeHash(contentsType []byte) common.Hash {
	encoded := make([]byte, 0, len(typedDataSignType)+len(contentsType))
	encoded = append(encoded, typedDataSignType...)
	encoded = append(encoded, contentsType...)
	return eip712.Keccak256Hash(encoded)
}

// TypedDataSignStructHash computes the struct hash of the nested
// wrapper by flat word concatenation, in declared field order exactly.
// Any permutation produces a digest a verifying client cannot
// independently reproduce.
func TypedDataSignStructHash(domain *eip712.Domain, contentsHash common.Hash, contentsType []byte) common.Hash {
	encoded := make([]byte, 0, 32*9)
	encoded = append(encoded, TypedDataSignTypeHash(contentsType).Bytes()...)
	encoded = append(encoded, contentsHash.Bytes()...)
	encoded = append(encoded, eip712.EncodeBytes1(domain.Fields())...)
	encoded = append(encoded, eip712.Keccak256([]byte(domain.Name))...)
	encoded = append(encoded, eip712.Keccak256([]byte(domain.Version))...)
	encoded = append(encoded, eip712.EncodeUint256(domain.ChainID)...)
	encoded = append(encoded, eip712.EncodeAddress(domain.VerifyingContract)...)
	encoded = append(encoded, domain.Salt.Bytes()...)
	encoded = append(encoded, eip712.HashUint256Slice(domain.Extensions).Bytes()...)
	return eip712.Keccak256Hash(encoded)
}

// NestedDigest reconstructs the full typed-data workflow digest for a
// decoded blob: the 0x1901 combine of the application separator and the
// wrapper struct hash.
func NestedDigest(appSeparator, contentsHash common.Hash, contentsType []byte, domain *eip712.Domain) common.Hash {
	return eip712.TypedDataDigest(appSeparator, TypedDataSignStructHash(domain, contentsHash, contentsType))
}

// ContentsDigest is the digest the original signature was produced over
// in the typed-data workflow: the 0x1901 combine of the application
// separator and the caller's struct hash.
func ContentsDigest(appSeparator, contentsHash common.Hash) common.Hash {
	return eip712.TypedDataDigest(appSeparator, contentsHash)
}

// PersonalDigest wraps a claim hash for the personal workflow under the
// account's own separator.
func PersonalDigest(accountSeparator, claim common.Hash) common.Hash {
	structHash := make([]byte, 0, 64)
	structHash = append(structHash, personalSignTypeHash.Bytes()...)
	structHash = append(structHash, claim.Bytes()...)
	return eip712.TypedDataDigest(accountSeparator, eip712.Keccak256Hash(structHash))
}
