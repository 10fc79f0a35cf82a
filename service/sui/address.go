package sui

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// AddressLength is the byte length of Sui addresses and object IDs.
const AddressLength = 32

// PlaceholderID is the value unset identifiers default to.
const PlaceholderID = "0x0"

var ErrInvalidAddress = errors.New("invalid sui address")

// IsPlaceholder reports whether an identifier is empty or the "0x0" placeholder.
func IsPlaceholder(id string) bool {
	id = strings.TrimSpace(id)
	return id == "" || id == PlaceholderID
}

// NormalizeAddress lowercases an address, strips the 0x prefix, left-pads it
// to 64 hex characters and puts the prefix back. "0x2" becomes "0x000...002".
func NormalizeAddress(s string) (string, error) {
	h := strings.ToLower(strings.TrimSpace(s))
	h = strings.TrimPrefix(h, "0x")
	if h == "" || len(h) > AddressLength*2 {
		return "", fmt.Errorf("%w: %q", ErrInvalidAddress, s)
	}
	h = strings.Repeat("0", AddressLength*2-len(h)) + h
	if _, err := hex.DecodeString(h); err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidAddress, s)
	}
	return "0x" + h, nil
}

// AddressBytes decodes an address or object ID into its 32 raw bytes.
func AddressBytes(s string) ([AddressLength]byte, error) {
	var out [AddressLength]byte
	norm, err := NormalizeAddress(s)
	if err != nil {
		return out, err
	}
	b, err := hex.DecodeString(norm[2:])
	if err != nil {
		return out, fmt.Errorf("%w: %q", ErrInvalidAddress, s)
	}
	copy(out[:], b)
	return out, nil
}

// MoveTarget is a fully qualified entry function "package::module::function".
type MoveTarget struct {
	Package  string
	Module   string
	Function string
}

func (t MoveTarget) String() string {
	return fmt.Sprintf("%s::%s::%s", t.Package, t.Module, t.Function)
}

// ParseMoveTarget splits "0xpkg::module::function".
func ParseMoveTarget(s string) (MoveTarget, error) {
	parts := strings.Split(s, "::")
	if len(parts) != 3 || parts[1] == "" || parts[2] == "" {
		return MoveTarget{}, fmt.Errorf("invalid move target %q", s)
	}
	pkg, err := NormalizeAddress(parts[0])
	if err != nil {
		return MoveTarget{}, fmt.Errorf("invalid move target %q: %w", s, err)
	}
	return MoveTarget{Package: pkg, Module: parts[1], Function: parts[2]}, nil
}
