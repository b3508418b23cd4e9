// Package eip712 implements EIP-712 structured-data hashing and the
// ECDSA signature surface used on top of it.
package eip712

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/crypto/sha3"
)

// Keccak256 computes the Keccak-256 hash of data.
func Keccak256(data []byte) []byte {
	h := sha3.NewLegacyKeccak256()
	h.Write(data)
	return h.Sum(nil)
}

// Keccak256Hash computes the Keccak-256 hash of data as a common.Hash.
func Keccak256Hash(data []byte) common.Hash {
	return common.BytesToHash(Keccak256(data))
}

// TypedDataDigest combines a domain separator and a struct hash into the
// final EIP-712 digest: keccak256(0x19 ‖ 0x01 ‖ separator ‖ structHash).
func TypedDataDigest(separator, structHash common.Hash) common.Hash {
	encoded := make([]byte, 0, 66)
	encoded = append(encoded, 0x19, 0x01)
	encoded = append(encoded, separator.Bytes()...)
	encoded = append(encoded, structHash.Bytes()...)
	return Keccak256Hash(encoded)
}

// EncodeUint256 encodes v as a 32-byte big-endian word. A nil value
// encodes as zero.
func EncodeUint256(v *big.Int) []byte {
	if v == nil {
		return make([]byte, 32)
	}
	return padLeft(v.Bytes(), 32)
}

// EncodeAddress encodes a as a left-padded 32-byte word.
func EncodeAddress(a common.Address) []byte {
	return padLeft(a.Bytes(), 32)
}

// EncodeBytes1 encodes b as a 32-byte word. Fixed-size byte arrays are
// end-padded, so the value occupies the most significant byte.
func EncodeBytes1(b byte) []byte {
	word := make([]byte, 32)
	word[0] = b
	return word
}

// HashUint256Slice hashes the concatenation of the 32-byte words of vs,
// the array encoding used for uint256[] fields.
func HashUint256Slice(vs []*big.Int) common.Hash {
	encoded := make([]byte, 0, len(vs)*32)
	for _, v := range vs {
		encoded = append(encoded, EncodeUint256(v)...)
	}
	return Keccak256Hash(encoded)
}

func padLeft(data []byte, size int) []byte {
	if len(data) >= size {
		return data[len(data)-size:]
	}
	result := make([]byte, size)
	copy(result[size-len(data):], data)
	return result
}
