package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// SnapshotProvenance tells consumers where a snapshot's numbers came from.
type SnapshotProvenance string

const (
	// ProvenanceChain marks a snapshot backed by a completed RPC read.
	ProvenanceChain SnapshotProvenance = "chain"
	// ProvenanceMock marks a snapshot backed by the simulated ledger.
	ProvenanceMock SnapshotProvenance = "mock"
	// ProvenanceOptimistic marks a locally decremented snapshot published
	// after a payment submission, pending the next real read.
	ProvenanceOptimistic SnapshotProvenance = "optimistic"
)

// BalanceSnapshot is the monitor's published view of the watched account.
// A snapshot replaces its predecessor atomically; consumers never see a
// half-updated one.
type BalanceSnapshot struct {
	Address           string             `json:"address"`
	RawLamports       uint64             `json:"rawLamports"`
	ReservedLamports  uint64             `json:"reservedLamports"`
	AvailableLamports uint64             `json:"availableLamports"`
	USDAvailable      decimal.Decimal    `json:"usdAvailable"`
	FetchedAt         time.Time          `json:"fetchedAt"`
	IsLoading         bool               `json:"isLoading"`
	IsStale           bool               `json:"isStale"`
	Provenance        SnapshotProvenance `json:"provenance"`

	// ConsecutiveFailures counts read failures since the last good read.
	// Informational only; the monitor keeps retrying regardless.
	ConsecutiveFailures int `json:"consecutiveFailures,omitempty"`
}

// WatchTarget identifies what the monitor is currently polling: a real
// on-chain address, or a mock-ledger owner key when no address resolves.
type WatchTarget struct {
	Address  Address
	OwnerKey string
	Mock     bool
}

func (t WatchTarget) Label() string {
	if t.Mock {
		return "mock:" + t.OwnerKey
	}
	return t.Address.String()
}
