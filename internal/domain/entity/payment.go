package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentIntent describes a room entry fee the user wants to pay.
type PaymentIntent struct {
	// USDEntryFee is the room's base entry fee in USD.
	USDEntryFee decimal.Decimal `json:"usdEntryFee"`

	// FeePercentagePoints is the platform fee in whole percentage points,
	// 0 through 100.
	FeePercentagePoints int `json:"feePercentagePoints"`

	// TotalUSDOverride, when set, is the authoritative total for flat
	// per-room pricing. The percentage is not reapplied on top of it.
	TotalUSDOverride *decimal.Decimal `json:"totalUsdOverride,omitempty"`

	// Recipient is the platform's fee-collection address.
	Recipient Address `json:"recipient"`
}

// FeeQuote is the priced form of a PaymentIntent, ready for validation
// and transfer building.
type FeeQuote struct {
	TotalUSD      decimal.Decimal `json:"totalUsd"`
	FeeUSD        decimal.Decimal `json:"feeUsd"`
	TotalLamports uint64          `json:"totalLamports"`

	// Rate is the USD-per-SOL exchange rate the quote was computed with.
	Rate decimal.Decimal `json:"rate"`
}

// TransactionStatus is the lifecycle state of a fee transfer.
type TransactionStatus string

const (
	StatusBuilt                TransactionStatus = "Built"
	StatusSubmitted            TransactionStatus = "Submitted"
	StatusConfirmed            TransactionStatus = "Confirmed"
	StatusConfirmationTimedOut TransactionStatus = "ConfirmationTimedOut"
	StatusFailed               TransactionStatus = "Failed"
)

// TransactionRecord tracks one fee transfer from build to confirmation.
// Only the payment executor mutates it, and only through its defined
// status transitions.
type TransactionRecord struct {
	FromAddress string            `json:"fromAddress"`
	ToAddress   string            `json:"toAddress"`
	Lamports    uint64            `json:"lamports"`
	BuiltAt     time.Time         `json:"builtAt"`
	Signature   string            `json:"signature,omitempty"`
	ConfirmedAt time.Time         `json:"confirmedAt,omitzero"`
	Status      TransactionStatus `json:"status"`
}
