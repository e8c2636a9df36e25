package port

import "wallet_monitor/internal/domain/entity"

// SnapshotSubscriber receives every published balance snapshot. Callbacks run
// on the monitor's goroutine and must not block.
type SnapshotSubscriber func(entity.BalanceSnapshot)

// BalanceMonitor owns the watched address and republishes balance
// snapshots on a fixed interval and on manual refresh.
type BalanceMonitor interface {
	// Watch starts polling the given on-chain address, replacing any
	// previous watch. The first read happens immediately.
	Watch(addr entity.Address)

	// WatchMock starts polling the simulated ledger under ownerKey, used
	// when no real address resolves for the session.
	WatchMock(ownerKey string)

	// Stop tears down the poll loop and returns the monitor to idle.
	Stop()

	// RefreshNow requests an immediate re-read outside the interval.
	RefreshNow()

	// Snapshot returns the last published snapshot.
	Snapshot() entity.BalanceSnapshot

	// Watched reports the current watch target, if any.
	Watched() (entity.WatchTarget, bool)

	// Subscribe registers a callback for every published snapshot.
	Subscribe(sub SnapshotSubscriber)
}
