package erc7739

import "github.com/ethereum/go-ethereum/common"

// MagicValue is the fixed 4-byte identifier advertised for this nested
// verification scheme revision.
var MagicValue = [4]byte{0x77, 0x39, 0x00, 0x01}

// DetectionHash is the in-band probe sentinel. A verification request
// carrying exactly this claim hash with an empty blob asks whether the
// scheme is supported, not for a real verification.
var DetectionHash = common.HexToHash("0x7739773977397739773977397739773977397739773977397739773977397739")

// IsSupportQuery reports whether a claim/blob pair is the capability
// probe. Hosts answer MagicValue without invoking verification.
func IsSupportQuery(claim common.Hash, blob []byte) bool {
	return len(blob) == 0 && claim == DetectionHash
}
