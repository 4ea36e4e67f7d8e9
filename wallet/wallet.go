package wallet

import (
	"context"
	"errors"
	"strings"
)

// ErrUserRejected is returned when the holder declines to sign
var ErrUserRejected = errors.New("user rejected the request")

// Adapter is an external identity that can sign arbitrary bytes
type Adapter interface {
	// Address returns the base58 public key, ok is false when no wallet is connected
	Address() (address string, ok bool)
	// SignMessage blocks until the holder signs or refuses
	SignMessage(ctx context.Context, message []byte) ([]byte, error)
}

// IsUserRejection tells a cancelled signature apart from other failures.
// Browser wallets only report this in the message text, hence the substring check.
func IsUserRejection(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrUserRejected) || errors.Is(err, context.Canceled) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "rejected")
}

// Disconnected has no address and refuses to sign
type Disconnected struct{}

func (Disconnected) Address() (string, bool) { return "", false }

func (Disconnected) SignMessage(ctx context.Context, message []byte) ([]byte, error) {
	return nil, ErrNotConnected
}

var ErrNotConnected = errors.New("wallet not connected")
