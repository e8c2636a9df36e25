package service

// Network policy constants for the funding account. These are fixed
// protocol values, not learned from the network and not configurable
// per call.
const (
	// RentExemptMinimumLamports is the minimum balance a zero-data system
	// account must retain to stay rent-exempt and remain valid on-chain.
	RentExemptMinimumLamports uint64 = 890_880

	// FeeBufferLamports is a conservative single-transaction fee estimate
	// kept aside so the account can always fund one more transfer.
	FeeBufferLamports uint64 = 5_000

	// ReservedLamports is the total the account must keep untouched.
	ReservedLamports = RentExemptMinimumLamports + FeeBufferLamports

	// LamportsPerSOL is the number of base units in one whole SOL.
	LamportsPerSOL uint64 = 1_000_000_000
)

// AvailableLamports derives the spendable balance from the raw on-chain
// balance. Every "what can the user actually spend" question goes
// through this; raw balances never reach a payment decision directly.
func AvailableLamports(raw uint64) uint64 {
	if raw <= ReservedLamports {
		return 0
	}
	return raw - ReservedLamports
}
