package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"wallet_monitor/internal/domain/entity"
)

var (
	testAddrA = entity.MustParseAddress("So11111111111111111111111111111111111111112")
	testAddrB = entity.MustParseAddress("Vote111111111111111111111111111111111111111")
)

type fakeChainReader struct {
	mu       sync.Mutex
	balances map[string]uint64
	err      error
	calls    int
	// blocks holds a per-address gate: a read for a gated address waits
	// until the channel closes or the context ends.
	blocks map[string]chan struct{}
	// started, when set, receives a token as each read begins.
	started chan struct{}
}

func newFakeChainReader() *fakeChainReader {
	return &fakeChainReader{
		balances: make(map[string]uint64),
		blocks:   make(map[string]chan struct{}),
	}
}

func (f *fakeChainReader) ReadBalance(ctx context.Context, addr entity.Address) (uint64, error) {
	f.mu.Lock()
	gate := f.blocks[addr.String()]
	started := f.started
	f.mu.Unlock()
	if started != nil {
		select {
		case started <- struct{}{}:
		default:
		}
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return 0, f.err
	}
	return f.balances[addr.String()], nil
}

func (f *fakeChainReader) setBalance(addr entity.Address, lamports uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.balances[addr.String()] = lamports
}

func (f *fakeChainReader) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *fakeChainReader) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeMockLedger struct {
	mu       sync.Mutex
	balances map[string]uint64
}

func newFakeMockLedger() *fakeMockLedger {
	return &fakeMockLedger{balances: make(map[string]uint64)}
}

func (f *fakeMockLedger) Read(ownerKey string) uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.balances[ownerKey]
}

func (f *fakeMockLedger) Increment(ownerKey string, delta int64) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	current := f.balances[ownerKey]
	if delta < 0 {
		debit := uint64(-delta)
		if debit >= current {
			current = 0
		} else {
			current -= debit
		}
	} else {
		current += uint64(delta)
	}
	f.balances[ownerKey] = current
	return current, nil
}

func newTestMonitor(t *testing.T, reader *fakeChainReader, mock *fakeMockLedger) (*MonitorService, chan entity.BalanceSnapshot) {
	t.Helper()
	monitor := NewMonitorService(
		reader,
		mock,
		staticOracle{rate: d("150")},
		zap.NewNop(),
		time.Hour, // interval long enough that only explicit triggers poll
		time.Second,
	)
	t.Cleanup(monitor.Stop)

	snapshots := make(chan entity.BalanceSnapshot, 32)
	monitor.Subscribe(func(snap entity.BalanceSnapshot) {
		snapshots <- snap
	})
	return monitor, snapshots
}

func waitSnapshot(t *testing.T, ch <-chan entity.BalanceSnapshot, pred func(entity.BalanceSnapshot) bool) entity.BalanceSnapshot {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case snap := <-ch:
			if pred(snap) {
				return snap
			}
		case <-deadline:
			t.Fatal("timed out waiting for snapshot")
			return entity.BalanceSnapshot{}
		}
	}
}

func TestMonitorPublishesChainSnapshot(t *testing.T) {
	reader := newFakeChainReader()
	reader.setBalance(testAddrA, 1_000_000_000)
	monitor, snapshots := newTestMonitor(t, reader, newFakeMockLedger())

	monitor.Watch(testAddrA)

	loading := waitSnapshot(t, snapshots, func(s entity.BalanceSnapshot) bool { return s.IsLoading })
	assert.Equal(t, testAddrA.String(), loading.Address)

	snap := waitSnapshot(t, snapshots, func(s entity.BalanceSnapshot) bool { return !s.IsLoading })
	assert.Equal(t, uint64(1_000_000_000), snap.RawLamports)
	assert.Equal(t, ReservedLamports, snap.ReservedLamports)
	assert.Equal(t, uint64(1_000_000_000)-ReservedLamports, snap.AvailableLamports)
	assert.Equal(t, entity.ProvenanceChain, snap.Provenance)
	assert.False(t, snap.IsStale)
	assert.False(t, snap.FetchedAt.IsZero())
}

func TestMonitorMockSnapshotHasNoReserve(t *testing.T) {
	mock := newFakeMockLedger()
	mock.balances["alice"] = 5_000
	monitor, snapshots := newTestMonitor(t, newFakeChainReader(), mock)

	monitor.WatchMock("alice")

	snap := waitSnapshot(t, snapshots, func(s entity.BalanceSnapshot) bool { return !s.IsLoading })
	assert.Equal(t, "mock:alice", snap.Address)
	assert.Equal(t, uint64(5_000), snap.RawLamports)
	assert.Zero(t, snap.ReservedLamports)
	assert.Equal(t, uint64(5_000), snap.AvailableLamports)
	assert.Equal(t, entity.ProvenanceMock, snap.Provenance)
}

func TestMonitorKeepsLastGoodSnapshotOnFailure(t *testing.T) {
	reader := newFakeChainReader()
	reader.setBalance(testAddrA, 1_000_000_000)
	monitor, snapshots := newTestMonitor(t, reader, newFakeMockLedger())

	monitor.Watch(testAddrA)
	good := waitSnapshot(t, snapshots, func(s entity.BalanceSnapshot) bool { return !s.IsLoading })

	reader.setErr(errors.New("rpc down"))
	monitor.RefreshNow()

	stale := waitSnapshot(t, snapshots, func(s entity.BalanceSnapshot) bool { return s.IsStale })
	assert.Equal(t, good.AvailableLamports, stale.AvailableLamports, "failure must not zero the balance")
	assert.Equal(t, good.RawLamports, stale.RawLamports)
	assert.Equal(t, 1, stale.ConsecutiveFailures)

	monitor.RefreshNow()
	stale2 := waitSnapshot(t, snapshots, func(s entity.BalanceSnapshot) bool { return s.ConsecutiveFailures == 2 })
	assert.True(t, stale2.IsStale)

	// Recovery clears stale and the failure run.
	reader.setErr(nil)
	reader.setBalance(testAddrA, 2_000_000_000)
	monitor.RefreshNow()
	recovered := waitSnapshot(t, snapshots, func(s entity.BalanceSnapshot) bool { return !s.IsStale && !s.IsLoading })
	assert.Equal(t, uint64(2_000_000_000), recovered.RawLamports)
	assert.Zero(t, recovered.ConsecutiveFailures)
}

func TestMonitorRefreshNowRereadsOutsideInterval(t *testing.T) {
	reader := newFakeChainReader()
	reader.setBalance(testAddrA, 1_000_000_000)
	monitor, snapshots := newTestMonitor(t, reader, newFakeMockLedger())

	monitor.Watch(testAddrA)
	waitSnapshot(t, snapshots, func(s entity.BalanceSnapshot) bool { return !s.IsLoading })

	reader.setBalance(testAddrA, 3_000_000_000)
	monitor.RefreshNow()

	snap := waitSnapshot(t, snapshots, func(s entity.BalanceSnapshot) bool {
		return s.RawLamports == 3_000_000_000
	})
	assert.False(t, snap.IsStale)
}

func TestMonitorWatchReplacementDiscardsInFlightRead(t *testing.T) {
	reader := newFakeChainReader()
	gate := make(chan struct{})
	reader.mu.Lock()
	reader.blocks[testAddrA.String()] = gate
	reader.mu.Unlock()
	reader.setBalance(testAddrA, 7_000_000_000)
	reader.setBalance(testAddrB, 1_000_000_000)

	monitor, snapshots := newTestMonitor(t, reader, newFakeMockLedger())

	monitor.Watch(testAddrA) // read hangs on the gate
	monitor.Watch(testAddrB)

	snap := waitSnapshot(t, snapshots, func(s entity.BalanceSnapshot) bool {
		return !s.IsLoading && s.Address == testAddrB.String()
	})
	assert.Equal(t, uint64(1_000_000_000), snap.RawLamports)

	// Let the superseded read finish; its result must never surface.
	close(gate)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, testAddrB.String(), monitor.Snapshot().Address)
	assert.Equal(t, uint64(1_000_000_000), monitor.Snapshot().RawLamports)
}

func TestMonitorRewatchSameTargetKeepsDisplayedBalance(t *testing.T) {
	reader := newFakeChainReader()
	reader.setBalance(testAddrA, 1_000_000_000)
	monitor, snapshots := newTestMonitor(t, reader, newFakeMockLedger())

	monitor.Watch(testAddrA)
	good := waitSnapshot(t, snapshots, func(s entity.BalanceSnapshot) bool { return !s.IsLoading })
	require.Positive(t, good.AvailableLamports)

	gate := make(chan struct{})
	reader.mu.Lock()
	reader.blocks[testAddrA.String()] = gate
	reader.mu.Unlock()

	// A session re-established for the address already on display.
	monitor.Watch(testAddrA)

	loading := monitor.Snapshot()
	assert.True(t, loading.IsLoading)
	assert.Equal(t, good.AvailableLamports, loading.AvailableLamports,
		"re-watching must not regress the displayed balance to zero")
	assert.Equal(t, good.RawLamports, loading.RawLamports)
	assert.True(t, good.USDAvailable.Equal(loading.USDAvailable))

	close(gate)
	snap := waitSnapshot(t, snapshots, func(s entity.BalanceSnapshot) bool { return !s.IsLoading })
	assert.Equal(t, uint64(1_000_000_000), snap.RawLamports)
}

func TestMonitorWatchNewTargetStartsBlank(t *testing.T) {
	reader := newFakeChainReader()
	reader.setBalance(testAddrA, 1_000_000_000)
	reader.setBalance(testAddrB, 2_000_000_000)
	monitor, snapshots := newTestMonitor(t, reader, newFakeMockLedger())

	monitor.Watch(testAddrA)
	waitSnapshot(t, snapshots, func(s entity.BalanceSnapshot) bool { return !s.IsLoading })

	gate := make(chan struct{})
	reader.mu.Lock()
	reader.blocks[testAddrB.String()] = gate
	reader.mu.Unlock()

	monitor.Watch(testAddrB)

	// A genuinely different target shows no stale numbers from the old one.
	loading := monitor.Snapshot()
	assert.True(t, loading.IsLoading)
	assert.Equal(t, testAddrB.String(), loading.Address)
	assert.Zero(t, loading.AvailableLamports)
	close(gate)
}

func TestMonitorRefreshNowCoalescesWhileReadInFlight(t *testing.T) {
	reader := newFakeChainReader()
	gate := make(chan struct{}, 3)
	started := make(chan struct{}, 4)
	reader.mu.Lock()
	reader.blocks[testAddrA.String()] = gate
	reader.started = started
	reader.mu.Unlock()
	reader.setBalance(testAddrA, 1_000_000_000)

	monitor, snapshots := newTestMonitor(t, reader, newFakeMockLedger())
	monitor.Watch(testAddrA)
	<-started // the immediate first read is now in flight, held by the gate

	// Several refresh requests while that read is still in flight.
	monitor.RefreshNow()
	monitor.RefreshNow()
	monitor.RefreshNow()

	gate <- struct{}{} // complete the in-flight read
	first := waitSnapshot(t, snapshots, func(s entity.BalanceSnapshot) bool { return !s.IsLoading })
	assert.Equal(t, uint64(1_000_000_000), first.RawLamports)

	reader.setBalance(testAddrA, 2_000_000_000)
	gate <- struct{}{} // complete the single coalesced re-read
	second := waitSnapshot(t, snapshots, func(s entity.BalanceSnapshot) bool { return !s.IsLoading })
	assert.Equal(t, uint64(2_000_000_000), second.RawLamports)

	// One extra read at most: the remaining permit stays unconsumed and
	// no further snapshot arrives.
	gate <- struct{}{}
	select {
	case snap := <-snapshots:
		t.Fatalf("unexpected extra snapshot: %+v", snap)
	case <-time.After(150 * time.Millisecond):
	}
	assert.Equal(t, 2, reader.callCount())
}

func TestMonitorStop(t *testing.T) {
	reader := newFakeChainReader()
	reader.setBalance(testAddrA, 1_000_000_000)
	monitor, snapshots := newTestMonitor(t, reader, newFakeMockLedger())

	monitor.Watch(testAddrA)
	waitSnapshot(t, snapshots, func(s entity.BalanceSnapshot) bool { return !s.IsLoading })

	monitor.Stop()
	_, watching := monitor.Watched()
	assert.False(t, watching)

	// RefreshNow after stop is a no-op, not a panic.
	monitor.RefreshNow()

	// The last snapshot stays readable for consumers.
	assert.Equal(t, uint64(1_000_000_000), monitor.Snapshot().RawLamports)
}

func TestMonitorApplyOptimisticDebit(t *testing.T) {
	reader := newFakeChainReader()
	reader.setBalance(testAddrA, 1_000_000_000)
	monitor, snapshots := newTestMonitor(t, reader, newFakeMockLedger())

	monitor.Watch(testAddrA)
	before := waitSnapshot(t, snapshots, func(s entity.BalanceSnapshot) bool { return !s.IsLoading })

	monitor.ApplyOptimisticDebit(104_120)

	snap := waitSnapshot(t, snapshots, func(s entity.BalanceSnapshot) bool {
		return s.Provenance == entity.ProvenanceOptimistic
	})
	assert.Equal(t, before.AvailableLamports-104_120, snap.AvailableLamports)
	expectedUSD := decimal.NewFromUint64(snap.AvailableLamports).
		Div(decimal.NewFromInt(1_000_000_000)).Mul(d("150"))
	assert.True(t, expectedUSD.Equal(snap.USDAvailable), "usd = %s", snap.USDAvailable)
}

func TestMonitorOptimisticDebitClampsAtZero(t *testing.T) {
	mock := newFakeMockLedger()
	mock.balances["bob"] = 100
	monitor, snapshots := newTestMonitor(t, newFakeChainReader(), mock)

	monitor.WatchMock("bob")
	waitSnapshot(t, snapshots, func(s entity.BalanceSnapshot) bool { return !s.IsLoading })

	monitor.ApplyOptimisticDebit(5_000)
	snap := waitSnapshot(t, snapshots, func(s entity.BalanceSnapshot) bool {
		return s.Provenance == entity.ProvenanceOptimistic
	})
	assert.Zero(t, snap.AvailableLamports)
}

type countingOracle struct {
	mu    sync.Mutex
	rate  decimal.Decimal
	calls int
}

func (o *countingOracle) CurrentRate(context.Context) decimal.Decimal {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls++
	return o.rate
}

func (o *countingOracle) callCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.calls
}

func TestMonitorSkipsRateFetchOnFailedRead(t *testing.T) {
	reader := newFakeChainReader()
	reader.setErr(errors.New("rpc down"))
	oracle := &countingOracle{rate: d("150")}
	monitor := NewMonitorService(reader, newFakeMockLedger(), oracle, zap.NewNop(), time.Hour, time.Second)
	t.Cleanup(monitor.Stop)

	snapshots := make(chan entity.BalanceSnapshot, 8)
	monitor.Subscribe(func(s entity.BalanceSnapshot) { snapshots <- s })

	monitor.Watch(testAddrA)
	waitSnapshot(t, snapshots, func(s entity.BalanceSnapshot) bool { return s.IsStale })
	assert.Zero(t, oracle.callCount(), "a discarded snapshot needs no exchange rate")

	reader.setErr(nil)
	reader.setBalance(testAddrA, 1_000_000_000)
	monitor.RefreshNow()
	waitSnapshot(t, snapshots, func(s entity.BalanceSnapshot) bool { return !s.IsStale && !s.IsLoading })
	assert.Equal(t, 1, oracle.callCount())
}

func TestMonitorInvalidSnapshotBeforeWatch(t *testing.T) {
	monitor, _ := newTestMonitor(t, newFakeChainReader(), newFakeMockLedger())

	snap := monitor.Snapshot()
	require.Zero(t, snap.RawLamports)
	_, watching := monitor.Watched()
	assert.False(t, watching)
}
