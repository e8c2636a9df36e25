package mockledger

import (
	"fmt"
	"math"
	"strconv"
	"sync"

	"wallet_monitor/internal/app/port"
	"wallet_monitor/internal/domain/entity"
)

const keyPrefix = "mock_balance:"

// Ledger is the persisted simulated balance used when no real address
// resolves for the session or the network path is deliberately bypassed.
// Balances are scoped per owner key: two identities sharing a device
// never see each other's simulated funds.
type Ledger struct {
	store  port.Store
	logger port.Logger

	// mu serializes read-modify-write per store; increments for the same
	// owner key compose instead of racing.
	mu sync.Mutex
}

// New creates a Ledger over the given persisted store.
func New(store port.Store, logger port.Logger) *Ledger {
	return &Ledger{store: store, logger: logger}
}

// Read returns the owner's simulated lamport balance. Unknown owners
// read as zero; Read never errors: a corrupt entry is logged and
// treated as zero rather than failing a poll.
func (l *Ledger) Read(ownerKey string) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.readLocked(ownerKey)
}

func (l *Ledger) readLocked(ownerKey string) uint64 {
	raw, ok, err := l.store.Get(keyPrefix + ownerKey)
	if err != nil || !ok {
		if err != nil && l.logger != nil {
			l.logger.Warn("Mock ledger read failed, treating as zero", "ownerKey", ownerKey, "error", err)
		}
		return 0
	}
	value, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		if l.logger != nil {
			l.logger.Warn("Corrupt mock ledger entry, treating as zero", "ownerKey", ownerKey, "value", raw)
		}
		return 0
	}
	return value
}

// Increment adjusts the owner's balance by deltaLamports. Negative
// deltas clamp the result at zero; an increment that would exceed the
// representable range is rejected with ErrOverflow, never wrapped.
// Returns the new balance.
func (l *Ledger) Increment(ownerKey string, deltaLamports int64) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	current := l.readLocked(ownerKey)
	var next uint64
	if deltaLamports >= 0 {
		delta := uint64(deltaLamports)
		if current > math.MaxUint64-delta {
			return current, entity.ErrOverflow
		}
		next = current + delta
	} else {
		debit := uint64(-deltaLamports)
		if debit >= current {
			next = 0
		} else {
			next = current - debit
		}
	}

	if err := l.writeLocked(ownerKey, next); err != nil {
		return current, err
	}
	return next, nil
}

// Set overwrites the owner's balance, used for explicit test and debug
// overrides.
func (l *Ledger) Set(ownerKey string, lamports uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.writeLocked(ownerKey, lamports)
}

func (l *Ledger) writeLocked(ownerKey string, lamports uint64) error {
	if err := l.store.Set(keyPrefix+ownerKey, strconv.FormatUint(lamports, 10)); err != nil {
		return fmt.Errorf("persist mock balance for %s: %w", ownerKey, err)
	}
	return nil
}
