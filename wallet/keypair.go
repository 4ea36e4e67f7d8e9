package wallet

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/btcsuite/btcd/btcutil/base58"
)

var ErrInvalidKeypair = errors.New("invalid keypair file")

// Approver is asked before each signature. Returning false rejects the request.
type Approver func(ctx context.Context, message []byte) (bool, error)

// Keypair is a local ed25519 wallet in the Solana cli key file format
type Keypair struct {
	priv     ed25519.PrivateKey
	address  string
	approver Approver
}

// NewKeypair wraps an existing private key
func NewKeypair(priv ed25519.PrivateKey, approver Approver) *Keypair {
	pub := priv.Public().(ed25519.PublicKey)
	return &Keypair{priv: priv, address: base58.Encode(pub), approver: approver}
}

// LoadKeypair reads a JSON array of 64 bytes (secret seed followed by public key)
func LoadKeypair(path string, approver Approver) (*Keypair, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read keypair: %w", err)
	}

	var raw []int
	if err := json.Unmarshal(buf, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKeypair, err)
	}
	if len(raw) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("%w: want %d bytes, got %d", ErrInvalidKeypair, ed25519.PrivateKeySize, len(raw))
	}

	key := make([]byte, ed25519.PrivateKeySize)
	for i, b := range raw {
		if b < 0 || b > 255 {
			return nil, fmt.Errorf("%w: byte %d out of range", ErrInvalidKeypair, i)
		}
		key[i] = byte(b)
	}

	priv := ed25519.NewKeyFromSeed(key[:ed25519.SeedSize])
	if !priv.Equal(ed25519.PrivateKey(key)) {
		return nil, fmt.Errorf("%w: public key does not match seed", ErrInvalidKeypair)
	}
	return NewKeypair(priv, approver), nil
}

// GenerateKeypairFile writes a fresh keypair to path and returns it
func GenerateKeypairFile(path string) (*Keypair, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}

	raw := make([]int, len(priv))
	for i, b := range priv {
		raw[i] = int(b)
	}
	buf, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(path, buf, 0o600); err != nil {
		return nil, fmt.Errorf("write keypair: %w", err)
	}
	return NewKeypair(priv, nil), nil
}

func (k *Keypair) Address() (string, bool) {
	return k.address, true
}

func (k *Keypair) SignMessage(ctx context.Context, message []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if k.approver != nil {
		ok, err := k.approver(ctx, message)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrUserRejected
		}
	}
	return ed25519.Sign(k.priv, message), nil
}

// Verify checks a signature against a base58 address
func Verify(address string, message, signature []byte) bool {
	pub := base58.Decode(address)
	if len(pub) != ed25519.PublicKeySize || len(signature) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(pub), message, signature)
}
