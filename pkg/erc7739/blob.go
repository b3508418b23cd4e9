package erc7739

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/common"
)

// minNestedLen covers the two 32-byte fields plus the 2-byte length tag.
const minNestedLen = 66

// NestedBlob is the decoded form of an extended signature blob:
// rawSignature ‖ appDomainSeparator(32) ‖ contentsHash(32) ‖
// contentsType(variable) ‖ contentsTypeLength(2, big-endian).
type NestedBlob struct {
	Signature    []byte
	AppSeparator common.Hash
	ContentsHash common.Hash
	ContentsType []byte
}

// DecodeBlob slices a signature blob from the end: the trailing 2 bytes
// declare the type descriptor length. Blobs too short to carry the
// nested fields, or whose declared length does not fit, are not nested;
// they decode to (nil, false) and remain candidates for the personal
// workflow. Adversarial input must never panic or read out of bounds
// here.
func DecodeBlob(blob []byte) (*NestedBlob, bool) {
	n := len(blob)
	if n < minNestedLen {
		return nil, false
	}
	c := int(binary.BigEndian.Uint16(blob[n-2:]))
	if minNestedLen+c > n {
		return nil, false
	}
	return &NestedBlob{
		Signature:    blob[:n-minNestedLen-c],
		AppSeparator: common.BytesToHash(blob[n-minNestedLen-c : n-34-c]),
		ContentsHash: common.BytesToHash(blob[n-34-c : n-2-c]),
		ContentsType: blob[n-2-c : n-2],
	}, true
}

// Encode is the structural inverse of DecodeBlob. The verifier only
// decodes; encoding serves fixtures and client tooling.
func (b *NestedBlob) Encode() []byte {
	out := make([]byte, 0, len(b.Signature)+minNestedLen+len(b.ContentsType))
	out = append(out, b.Signature...)
	out = append(out, b.AppSeparator.Bytes()...)
	out = append(out, b.ContentsHash.Bytes()...)
	out = append(out, b.ContentsType...)
	return binary.BigEndian.AppendUint16(out, uint16(len(b.ContentsType)))
}
