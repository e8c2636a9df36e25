package endpointpool

import (
	"sort"

	"wallet_monitor/internal/app/port"
	"wallet_monitor/internal/domain/entity"
)

// Pool is an ordered list of ledger-query endpoints. Candidates always
// restarts from the highest-priority endpoint: the pool keeps no memory
// of past failures, so a recovered endpoint is retried on every query.
type Pool struct {
	endpoints []entity.Endpoint
	logger    port.Logger
}

// New creates a Pool from the given endpoints, ordered by ascending
// Priority (ties keep configuration order).
func New(endpoints []entity.Endpoint, logger port.Logger) *Pool {
	ordered := append([]entity.Endpoint(nil), endpoints...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority < ordered[j].Priority
	})
	p := &Pool{endpoints: ordered, logger: logger}
	if logger != nil {
		for _, e := range ordered {
			logger.Info("Registered RPC endpoint", "url", e.Redacted(), "priority", e.Priority)
		}
	}
	return p
}

// Candidates returns the endpoints to try, highest priority first. The
// returned slice is a copy; callers may not mutate pool state.
func (p *Pool) Candidates() []entity.Endpoint {
	return append([]entity.Endpoint(nil), p.endpoints...)
}

// Len reports the number of configured endpoints.
func (p *Pool) Len() int {
	return len(p.endpoints)
}
