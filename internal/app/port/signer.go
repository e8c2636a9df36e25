package port

import (
	"context"

	"github.com/gagliardetto/solana-go"
)

// Signer is the externally supplied signing capability. The payment
// executor hands it the serialized unsigned transaction message and never
// sees key material. Failures are reported as entity.ErrSignerUnavailable
// (wallet locked / not connected) or entity.ErrSignerDeclined.
type Signer interface {
	SignTransfer(ctx context.Context, message []byte) (solana.Signature, error)
}
