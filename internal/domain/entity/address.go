package entity

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// Address is a validated funding-account address on the Solana network.
// It is produced once at the system boundary; everything past the
// boundary works with this type and never re-inspects raw input shapes.
type Address struct {
	pk solana.PublicKey
}

// ParseAddress validates raw input as a base58-encoded ed25519 public key.
// Invalid input is rejected with ErrInvalidAddress, never treated as a
// zero-balance account.
func ParseAddress(raw string) (Address, error) {
	if raw == "" {
		return Address{}, fmt.Errorf("empty address: %w", ErrInvalidAddress)
	}
	pk, err := solana.PublicKeyFromBase58(raw)
	if err != nil {
		return Address{}, fmt.Errorf("address %q: %w", raw, ErrInvalidAddress)
	}
	return Address{pk: pk}, nil
}

// MustParseAddress is ParseAddress for statically known inputs.
func MustParseAddress(raw string) Address {
	addr, err := ParseAddress(raw)
	if err != nil {
		panic(err)
	}
	return addr
}

// PublicKey returns the underlying key for RPC and instruction building.
func (a Address) PublicKey() solana.PublicKey {
	return a.pk
}

// IsZero reports whether the address is the zero value (never produced
// by a successful ParseAddress).
func (a Address) IsZero() bool {
	return a.pk.IsZero()
}

func (a Address) String() string {
	return a.pk.String()
}
