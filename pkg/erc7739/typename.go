package erc7739

import (
	"bytes"
	"errors"
	"fmt"
)

// ErrInvalidContentsType reports a type descriptor that violates the
// sanitization rules.
var ErrInvalidContentsType = errors.New("invalid contents type descriptor")

// ParseContentsTypeName extracts and validates the leading type name of
// a caller-supplied descriptor such as
// "Mail(address from,address to,string message)". The name is the
// substring before the first '('; it must be non-empty, must not start
// with a lowercase ASCII letter (a name that spoofs a primitive type)
// and must not contain ',', ' ', ')' or NUL (characters that let a
// crafted name corrupt the flattened message a signing prompt shows).
// Malformed descriptors invalidate the whole signature; they are never
// silently corrected.
func ParseContentsTypeName(contentsType []byte) (string, error) {
	paren := bytes.IndexByte(contentsType, '(')
	if paren < 0 {
		return "", fmt.Errorf("%w: missing open parenthesis", ErrInvalidContentsType)
	}
	if paren == 0 {
		return "", fmt.Errorf("%w: empty type name", ErrInvalidContentsType)
	}
	name := contentsType[:paren]
	if c := name[0]; c >= 'a' && c <= 'z' {
		return "", fmt.Errorf("%w: type name starts with %q", ErrInvalidContentsType, c)
	}
	if i := bytes.IndexAny(name, ", )\x00"); i >= 0 {
		return "", fmt.Errorf("%w: forbidden character %q in type name", ErrInvalidContentsType, name[i])
	}
	return string(name), nil
}
