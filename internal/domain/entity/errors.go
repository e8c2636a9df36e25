package entity

import (
	"errors"
	"fmt"
)

// Error kinds surfaced by the core. HTTP handlers map these to response
// codes; the core never formats user-facing strings.
var (
	// ErrInvalidAddress marks input that failed network address validation.
	ErrInvalidAddress = errors.New("invalid solana address")

	// ErrAllEndpointsUnavailable means every configured RPC endpoint failed
	// for the current query. Callers must treat this as "balance unknown",
	// not "balance is zero".
	ErrAllEndpointsUnavailable = errors.New("all rpc endpoints unavailable")

	// ErrSignerUnavailable means no signer capability is wired for the
	// current session (wallet locked or not connected).
	ErrSignerUnavailable = errors.New("signer unavailable")

	// ErrSignerDeclined means the external signer refused to sign.
	ErrSignerDeclined = errors.New("signer declined transaction")

	// ErrSubmissionFailed marks a transfer rejected at submission time.
	ErrSubmissionFailed = errors.New("transaction submission failed")

	// ErrConfirmationTimedOut means a submitted transfer was not seen as
	// confirmed within the confirmation window. The transfer may still
	// land; this is not a payment failure.
	ErrConfirmationTimedOut = errors.New("confirmation timed out")

	// ErrOverflow marks a mock ledger mutation that would exceed the
	// representable balance range.
	ErrOverflow = errors.New("mock ledger balance overflow")

	// ErrNoWatchedAddress means an operation needing a session was called
	// while the monitor is idle.
	ErrNoWatchedAddress = errors.New("no watched address")
)

// InsufficientFundsError reports a failed funds validation together with
// the exact shortfall so callers can display it.
type InsufficientFundsError struct {
	ShortfallLamports uint64
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds: short %d lamports", e.ShortfallLamports)
}

// AsInsufficientFunds unwraps err into an InsufficientFundsError, if any.
func AsInsufficientFunds(err error) (*InsufficientFundsError, bool) {
	var ife *InsufficientFundsError
	if errors.As(err, &ife) {
		return ife, true
	}
	return nil, false
}
