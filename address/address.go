package address

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"strings"
)

// ErrInvalidAddress is wrapped by every error returned for a value that is
// not an IPv4 literal.
var ErrInvalidAddress = errors.New("not an IPv4 address")

// Source defines the interface public address sources should implement.
type Source interface {
	FetchAddress(ctx context.Context) (string, error)
}

// SourceFunc adapts a plain function to a Source.
type SourceFunc func(ctx context.Context) (string, error)

func (f SourceFunc) FetchAddress(ctx context.Context) (string, error) {
	return f(ctx)
}

// ValidateIPv4 returns the canonical form of s if it is an IPv4 literal.
// Surrounding whitespace is ignored.
func ValidateIPv4(s string) (string, error) {
	s = strings.TrimSpace(s)
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidAddress, s)
	}
	if !addr.Is4() {
		return "", fmt.Errorf("%w: %q", ErrInvalidAddress, s)
	}
	return addr.String(), nil
}
