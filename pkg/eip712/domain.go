package eip712

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

var (
	// ErrInvalidChainID reports a missing or negative chain id.
	ErrInvalidChainID = errors.New("invalid chain id")
	// ErrZeroVerifyingContract reports an unset verifying contract.
	ErrZeroVerifyingContract = errors.New("zero verifying contract address")
)

// Bitmask of domain members present in the separator, one bit per field
// in declaration order.
const (
	FieldName              = 0x01
	FieldVersion           = 0x02
	FieldChainID           = 0x04
	FieldVerifyingContract = 0x08
	FieldSalt              = 0x10
	FieldExtensions        = 0x20
)

// Domain is the structured-data domain of a verifying contract:
// name, version, chain id, contract address, salt and the extension
// list. It is immutable per contract and injected by the host; no
// member is mutated during verification.
type Domain struct {
	Name              string         `json:"name"`
	Version           string         `json:"version"`
	ChainID           *big.Int       `json:"chainId"`
	VerifyingContract common.Address `json:"verifyingContract"`
	Salt              common.Hash    `json:"salt"`
	Extensions        []*big.Int     `json:"extensions"`
}

// Validate reports host-side misconfiguration. A bad domain is a
// configuration error, distinct from signature invalidity.
func (d *Domain) Validate() error {
	if d.ChainID == nil || d.ChainID.Sign() < 0 {
		return fmt.Errorf("%w: %v", ErrInvalidChainID, d.ChainID)
	}
	if d.VerifyingContract == (common.Address{}) {
		return ErrZeroVerifyingContract
	}
	return nil
}

// Fields returns the bitmap of populated domain members, one bit per
// field in declaration order (name, version, chainId, verifyingContract,
// salt, extensions). A typical domain yields 0x0f.
func (d *Domain) Fields() byte {
	var bits byte
	if d.Name != "" {
		bits |= FieldName
	}
	if d.Version != "" {
		bits |= FieldVersion
	}
	if d.ChainID != nil {
		bits |= FieldChainID
	}
	if d.VerifyingContract != (common.Address{}) {
		bits |= FieldVerifyingContract
	}
	if d.Salt != (common.Hash{}) {
		bits |= FieldSalt
	}
	if len(d.Extensions) > 0 {
		bits |= FieldExtensions
	}
	return bits
}

// Separator computes the EIP-712 domain separator over the populated
// members. The type string declares only the fields present, in
// canonical order, so the separator of a standard 4-field domain matches
// what signing clients produce for
// EIP712Domain(string name,string version,uint256 chainId,address verifyingContract).
func (d *Domain) Separator() common.Hash {
	var typeBuf strings.Builder
	typeBuf.WriteString("EIP712Domain(")

	words := make([]byte, 0, 192)
	first := true
	appendField := func(decl string, word []byte) {
		if !first {
			typeBuf.WriteByte(',')
		}
		first = false
		typeBuf.WriteString(decl)
		words = append(words, word...)
	}

	if d.Name != "" {
		appendField("string name", Keccak256([]byte(d.Name)))
	}
	if d.Version != "" {
		appendField("string version", Keccak256([]byte(d.Version)))
	}
	if d.ChainID != nil {
		appendField("uint256 chainId", EncodeUint256(d.ChainID))
	}
	if d.VerifyingContract != (common.Address{}) {
		appendField("address verifyingContract", EncodeAddress(d.VerifyingContract))
	}
	if d.Salt != (common.Hash{}) {
		appendField("bytes32 salt", d.Salt.Bytes())
	}
	typeBuf.WriteByte(')')

	encoded := make([]byte, 0, 32+len(words))
	encoded = append(encoded, Keccak256([]byte(typeBuf.String()))...)
	encoded = append(encoded, words...)
	return Keccak256Hash(encoded)
}
