package service

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"wallet_monitor/internal/app/port"
	"wallet_monitor/internal/domain/entity"
	"wallet_monitor/pkg/metrics"
)

// MonitorService implements port.BalanceMonitor. It owns the single
// watched target, runs one poll loop per watch, and republishes balance
// snapshots to subscribers. The loop rearms its timer after each read
// completes, so slow reads never overlap for the same address.
type MonitorService struct {
	reader      port.BalanceReader
	mock        port.MockBalanceReader
	oracle      port.PriceOracle
	logger      *zap.Logger
	interval    time.Duration
	readTimeout time.Duration

	mu           sync.Mutex
	subs         []port.SnapshotSubscriber
	last         entity.BalanceSnapshot
	lastRate     decimal.Decimal
	target       entity.WatchTarget
	watching     bool
	gen          uint64 // bumped on every Watch/Stop; stale loops check it
	seq          uint64 // read request sequence for last-write-wins fencing
	publishedSeq uint64
	failures     int
	cancel       context.CancelFunc
	kick         chan struct{}
}

// NewMonitorService creates a MonitorService. interval is the poll
// period; readTimeout bounds a single read-and-publish pass.
func NewMonitorService(
	reader port.BalanceReader,
	mock port.MockBalanceReader,
	oracle port.PriceOracle,
	logger *zap.Logger,
	interval time.Duration,
	readTimeout time.Duration,
) *MonitorService {
	if interval <= 0 {
		interval = 60 * time.Second
	}
	if readTimeout <= 0 {
		readTimeout = 30 * time.Second
	}
	return &MonitorService{
		reader:      reader,
		mock:        mock,
		oracle:      oracle,
		logger:      logger.Named("BalanceMonitor"),
		interval:    interval,
		readTimeout: readTimeout,
	}
}

// Watch starts polling the given on-chain address, replacing any
// previous watch. The first read is issued immediately.
func (m *MonitorService) Watch(addr entity.Address) {
	m.startWatch(entity.WatchTarget{Address: addr})
}

// WatchMock starts polling the simulated ledger under ownerKey.
func (m *MonitorService) WatchMock(ownerKey string) {
	m.startWatch(entity.WatchTarget{OwnerKey: ownerKey, Mock: true})
}

func (m *MonitorService) startWatch(target entity.WatchTarget) {
	m.mu.Lock()
	m.stopLocked()

	m.gen++
	m.target = target
	m.watching = true
	m.failures = 0
	m.publishedSeq = m.seq // in-flight reads for the old target are now stale

	provenance := entity.ProvenanceChain
	if target.Mock {
		provenance = entity.ProvenanceMock
	}
	loadingSnap := entity.BalanceSnapshot{
		Address:    target.Label(),
		IsLoading:  true,
		Provenance: provenance,
	}
	if m.last.Address == target.Label() && !m.last.IsLoading {
		// Re-watching the target already on display keeps the last good
		// numbers in place while the fresh read is in flight; a loading
		// state never regresses the displayed balance to zero.
		loadingSnap.RawLamports = m.last.RawLamports
		loadingSnap.ReservedLamports = m.last.ReservedLamports
		loadingSnap.AvailableLamports = m.last.AvailableLamports
		loadingSnap.USDAvailable = m.last.USDAvailable
		loadingSnap.FetchedAt = m.last.FetchedAt
		loadingSnap.IsStale = m.last.IsStale
	}
	m.last = loadingSnap

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	kick := make(chan struct{}, 1)
	m.kick = kick
	gen := m.gen
	loading := m.last
	subs := append([]port.SnapshotSubscriber(nil), m.subs...)
	m.mu.Unlock()

	m.logger.Info("Watching balance target", zap.String("target", target.Label()), zap.Bool("mock", target.Mock))
	for _, sub := range subs {
		sub(loading)
	}

	go m.run(ctx, gen, target, kick)
}

// Stop tears down the poll loop and returns the monitor to idle. The
// last published snapshot is retained for consumers.
func (m *MonitorService) Stop() {
	m.mu.Lock()
	m.stopLocked()
	m.mu.Unlock()
}

func (m *MonitorService) stopLocked() {
	if !m.watching {
		return
	}
	m.watching = false
	m.gen++
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	m.logger.Info("Stopped watching balance target", zap.String("target", m.target.Label()))
}

// RefreshNow requests an immediate re-read. Multiple calls while a read
// is in flight coalesce into a single extra pass.
func (m *MonitorService) RefreshNow() {
	m.mu.Lock()
	kick := m.kick
	watching := m.watching
	m.mu.Unlock()
	if !watching || kick == nil {
		return
	}
	select {
	case kick <- struct{}{}:
	default:
	}
}

// Snapshot returns the most recently published snapshot.
func (m *MonitorService) Snapshot() entity.BalanceSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last
}

// Watched reports the current watch target.
func (m *MonitorService) Watched() (entity.WatchTarget, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.target, m.watching
}

// Subscribe registers a callback for every published snapshot.
func (m *MonitorService) Subscribe(sub port.SnapshotSubscriber) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subs = append(m.subs, sub)
}

// run is the single poll loop for one watch generation. Ticks are
// scheduled relative to read completion, never stacked.
func (m *MonitorService) run(ctx context.Context, gen uint64, target entity.WatchTarget, kick chan struct{}) {
	timer := time.NewTimer(0) // immediate first read
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		case <-kick:
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
		}
		m.poll(ctx, gen, target)
		timer.Reset(m.interval)
	}
}

func (m *MonitorService) poll(ctx context.Context, gen uint64, target entity.WatchTarget) {
	seq := m.nextSeq()

	readCtx, cancel := context.WithTimeout(ctx, m.readTimeout)
	defer cancel()

	var raw uint64
	var err error
	if target.Mock {
		raw = m.mock.Read(target.OwnerKey)
	} else {
		raw, err = m.reader.ReadBalance(readCtx, target.Address)
	}

	if ctx.Err() != nil {
		// Watch changed or monitor stopped while the read was in flight.
		return
	}
	if err != nil {
		m.logger.Warn("Balance read failed, keeping last snapshot",
			zap.String("target", target.Label()), zap.Error(err))
		metrics.BalanceReadsTotal.WithLabelValues("error").Inc()
		m.markStale(gen, seq)
		return
	}

	// The rate is only needed for a snapshot that will actually publish.
	rate := m.oracle.CurrentRate(readCtx)
	if ctx.Err() != nil {
		return
	}

	metrics.BalanceReadsTotal.WithLabelValues("ok").Inc()
	m.publish(gen, seq, buildSnapshot(target, raw, rate), rate)
}

func (m *MonitorService) nextSeq() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	return m.seq
}

// publish installs a snapshot from a completed read, discarding results
// from superseded watch generations and from reads that started before
// an already-published one.
func (m *MonitorService) publish(gen, seq uint64, snap entity.BalanceSnapshot, rate decimal.Decimal) {
	m.mu.Lock()
	if gen != m.gen || seq <= m.publishedSeq {
		m.mu.Unlock()
		m.logger.Debug("Discarding stale balance read", zap.Uint64("seq", seq))
		return
	}
	m.publishedSeq = seq
	m.failures = 0
	m.last = snap
	m.lastRate = rate
	subs := append([]port.SnapshotSubscriber(nil), m.subs...)
	m.mu.Unlock()

	metrics.SnapshotAvailableLamports.Set(float64(snap.AvailableLamports))
	metrics.ConsecutiveReadFailures.Set(0)
	for _, sub := range subs {
		sub(snap)
	}
}

// markStale flags the retained snapshot as stale after a failed read.
// The previous good numbers stay in place; displayed balance never
// regresses to zero because of a read failure.
func (m *MonitorService) markStale(gen, seq uint64) {
	m.mu.Lock()
	if gen != m.gen || seq <= m.publishedSeq {
		m.mu.Unlock()
		return
	}
	m.publishedSeq = seq
	m.failures++
	m.last.IsStale = true
	m.last.IsLoading = false
	m.last.ConsecutiveFailures = m.failures
	snap := m.last
	failures := m.failures
	subs := append([]port.SnapshotSubscriber(nil), m.subs...)
	m.mu.Unlock()

	metrics.ConsecutiveReadFailures.Set(float64(failures))
	for _, sub := range subs {
		sub(snap)
	}
}

// ApplyOptimisticDebit publishes a locally decremented snapshot after a
// payment submission so the UI does not show a stale balance until the
// next poll. The snapshot is flagged optimistic and is superseded by the
// next completed read.
func (m *MonitorService) ApplyOptimisticDebit(lamports uint64) {
	m.mu.Lock()
	if !m.watching || m.last.IsLoading {
		m.mu.Unlock()
		return
	}
	snap := m.last
	if snap.AvailableLamports > lamports {
		snap.AvailableLamports -= lamports
	} else {
		snap.AvailableLamports = 0
	}
	if snap.RawLamports > lamports {
		snap.RawLamports -= lamports
	} else {
		snap.RawLamports = 0
	}
	snap.USDAvailable = usdValue(snap.AvailableLamports, m.lastRate)
	snap.Provenance = entity.ProvenanceOptimistic
	m.last = snap
	subs := append([]port.SnapshotSubscriber(nil), m.subs...)
	m.mu.Unlock()

	metrics.SnapshotAvailableLamports.Set(float64(snap.AvailableLamports))
	for _, sub := range subs {
		sub(snap)
	}
}

func buildSnapshot(target entity.WatchTarget, raw uint64, rate decimal.Decimal) entity.BalanceSnapshot {
	snap := entity.BalanceSnapshot{
		Address:     target.Label(),
		RawLamports: raw,
		FetchedAt:   time.Now(),
	}
	if target.Mock {
		// Simulated balances carry no on-chain reserve requirement.
		snap.Provenance = entity.ProvenanceMock
		snap.AvailableLamports = raw
	} else {
		snap.Provenance = entity.ProvenanceChain
		snap.ReservedLamports = ReservedLamports
		snap.AvailableLamports = AvailableLamports(raw)
	}
	snap.USDAvailable = usdValue(snap.AvailableLamports, rate)
	return snap
}

func usdValue(lamports uint64, rate decimal.Decimal) decimal.Decimal {
	return decimal.NewFromUint64(lamports).Div(lamportsPerSOLDecimal).Mul(rate)
}
