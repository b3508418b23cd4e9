// Package erc7739 implements nested structured-data signature
// verification for smart contract accounts: given a 32-byte claim hash
// and an opaque signature blob, it decides between the typed-data and
// personal signing workflows, reconstructs the canonical digest the key
// holder signed, and recovers the signer.
package erc7739

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/signet-labs/signet/pkg/eip712"
)

// ErrSignatureRecovery reports that the recovery capability rejected
// the candidate signature.
var ErrSignatureRecovery = errors.New("signature recovery failed")

// Workflow names the signing workflow a verification resolved to.
type Workflow string

const (
	// WorkflowTypedData is the nested typed-data workflow.
	WorkflowTypedData Workflow = "typed_data"
	// WorkflowPersonalSign is the personal message fallback.
	WorkflowPersonalSign Workflow = "personal_sign"
)

// Result carries the outcome of a successful verification. Whether the
// recovered signer is the expected owner is the caller's comparison,
// not this package's.
type Result struct {
	Signer           common.Address
	Workflow         Workflow
	Digest           common.Hash // digest recovery ran over
	ContentsTypeName string      // set for the typed-data workflow
}

// Recoverer is the external signature-recovery capability: given a
// digest and a raw signature it produces the candidate signer or fails.
// Implementations must behave as pure functions.
type Recoverer interface {
	Recover(digest common.Hash, sig []byte) (common.Address, error)
}

// RecovererFunc adapts a function to the Recoverer interface.
type RecovererFunc func(digest common.Hash, sig []byte) (common.Address, error)

// Recover implements Recoverer.
func (f RecovererFunc) Recover(digest common.Hash, sig []byte) (common.Address, error) {
	return f(digest, sig)
}

// Verifier resolves the workflow for claim/blob pairs presented to one
// account domain. It is immutable after construction; concurrent Verify
// calls share no mutable state and need no locking.
type Verifier struct {
	domain    *eip712.Domain
	separator common.Hash
	recoverer Recoverer
}

// Option configures a Verifier.
type Option func(*Verifier)

// WithRecoverer replaces the default go-ethereum backed recovery
// capability.
func WithRecoverer(r Recoverer) Option {
	return func(v *Verifier) { v.recoverer = r }
}

// NewVerifier builds a verifier around one account domain. The domain
// is a host precondition: a malformed one is a configuration error,
// surfaced here and never conflated with signature invalidity.
func NewVerifier(domain *eip712.Domain, opts ...Option) (*Verifier, error) {
	if err := domain.Validate(); err != nil {
		return nil, fmt.Errorf("invalid account domain: %w", err)
	}
	v := &Verifier{
		domain:    domain,
		separator: domain.Separator(),
		recoverer: RecovererFunc(eip712.RecoverAddress),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v, nil
}

// Domain returns the injected account domain.
func (v *Verifier) Domain() *eip712.Domain {
	return v.domain
}

// Separator returns the precomputed account domain separator.
func (v *Verifier) Separator() common.Hash {
	return v.separator
}

// Verify resolves the workflow for claim and blob and recovers the
// signer.
//
// A structurally nested blob whose descriptor fails sanitization is
// terminally invalid: falling back would let an attacker choose which
// canonicalization applies to the same raw signature. A nested blob
// whose reconstructed digests match neither binding of the claim falls
// back to the personal workflow, where the entire blob is the candidate
// signature. Every malformed or adversarial input maps to a returned
// error, never a panic.
func (v *Verifier) Verify(claim common.Hash, blob []byte) (*Result, error) {
	if nested, ok := DecodeBlob(blob); ok {
		typeName, err := ParseContentsTypeName(nested.ContentsType)
		if err != nil {
			return nil, err
		}

		contentsDigest := ContentsDigest(nested.AppSeparator, nested.ContentsHash)
		nestedDigest := NestedDigest(nested.AppSeparator, nested.ContentsHash, nested.ContentsType, v.domain)
		if claim == contentsDigest || claim == nestedDigest {
			signer, err := v.recoverer.Recover(contentsDigest, nested.Signature)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrSignatureRecovery, err)
			}
			return &Result{
				Signer:           signer,
				Workflow:         WorkflowTypedData,
				Digest:           contentsDigest,
				ContentsTypeName: typeName,
			}, nil
		}
		// Neither reconstruction matches the claim: the nested fields do
		// not bind this account, so the blob is tried as a personal
		// signature below.
	}

	digest := PersonalDigest(v.separator, claim)
	signer, err := v.recoverer.Recover(digest, blob)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSignatureRecovery, err)
	}
	return &Result{
		Signer:   signer,
		Workflow: WorkflowPersonalSign,
		Digest:   digest,
	}, nil
}
