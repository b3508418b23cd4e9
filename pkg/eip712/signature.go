package eip712

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

var (
	// ErrInvalidSignatureLength reports a signature that is not 65 bytes.
	ErrInvalidSignatureLength = errors.New("invalid signature length")
	// ErrMalleableSignature reports out-of-range r/s/v components,
	// including high-s values.
	ErrMalleableSignature = errors.New("malleable signature values")
	// ErrRecoveryFailed reports an unrecoverable signature.
	ErrRecoveryFailed = errors.New("signature recovery failed")
	// ErrZeroSigner reports recovery to the zero address.
	ErrZeroSigner = errors.New("recovered zero address")
)

// Signature is a parsed 65-byte ECDSA signature with the recovery id
// normalized to 0/1.
type Signature struct {
	R *big.Int
	S *big.Int
	V byte
}

// ParseSignature splits a 65-byte r ‖ s ‖ v signature. Both the raw 0/1
// and the legacy 27/28 recovery id encodings are accepted.
func ParseSignature(sig []byte) (*Signature, error) {
	if len(sig) != 65 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSignatureLength, len(sig))
	}
	v := sig[64]
	if v >= 27 {
		v -= 27
	}
	return &Signature{
		R: new(big.Int).SetBytes(sig[:32]),
		S: new(big.Int).SetBytes(sig[32:64]),
		V: v,
	}, nil
}

// Bytes re-encodes the signature in the r ‖ s ‖ v layout with the
// normalized recovery id.
func (s *Signature) Bytes() []byte {
	out := make([]byte, 65)
	s.R.FillBytes(out[:32])
	s.S.FillBytes(out[32:64])
	out[64] = s.V
	return out
}

// RecoverAddress recovers the signer of digest from a 65-byte signature.
// Malleable high-s values, invalid recovery ids and zero-address results
// are all rejected; a verifier must never fall through to a default
// signer.
func RecoverAddress(digest common.Hash, sig []byte) (common.Address, error) {
	parsed, err := ParseSignature(sig)
	if err != nil {
		return common.Address{}, err
	}
	if !crypto.ValidateSignatureValues(parsed.V, parsed.R, parsed.S, true) {
		return common.Address{}, ErrMalleableSignature
	}

	pubKey, err := crypto.SigToPub(digest.Bytes(), parsed.Bytes())
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %v", ErrRecoveryFailed, err)
	}

	addr := crypto.PubkeyToAddress(*pubKey)
	if addr == (common.Address{}) {
		return common.Address{}, ErrZeroSigner
	}
	return addr, nil
}

// VerifySignature reports whether sig over digest recovers to expected.
func VerifySignature(expected common.Address, digest common.Hash, sig []byte) (bool, error) {
	recovered, err := RecoverAddress(digest, sig)
	if err != nil {
		return false, err
	}
	return recovered == expected, nil
}
