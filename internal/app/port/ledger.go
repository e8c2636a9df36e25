package port

import (
	"context"

	"github.com/gagliardetto/solana-go"

	"wallet_monitor/internal/domain/entity"
)

// BalanceReader queries the raw lamport balance of an address, falling
// back across configured endpoints. A failure of every endpoint is
// reported as entity.ErrAllEndpointsUnavailable.
type BalanceReader interface {
	ReadBalance(ctx context.Context, addr entity.Address) (uint64, error)
}

// MockBalanceReader reads the simulated per-owner balance. It never
// errors; an unknown owner key reads as zero.
type MockBalanceReader interface {
	Read(ownerKey string) uint64
}

// PaymentChain is the subset of ledger RPC the payment executor needs
// beyond balance reads.
type PaymentChain interface {
	// LatestBlockhash returns the most recent sequencing token usable for
	// building a transfer.
	LatestBlockhash(ctx context.Context) (solana.Hash, error)

	// SubmitTransaction submits a fully signed transfer.
	SubmitTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error)

	// ConfirmSignature reports whether the given signature has reached
	// confirmed commitment.
	ConfirmSignature(ctx context.Context, sig solana.Signature) (bool, error)
}
