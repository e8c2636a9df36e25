package ledgerclient

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"wallet_monitor/internal/domain/entity"
	"wallet_monitor/internal/infrastructure/endpointpool"
	"wallet_monitor/pkg/metrics"
)

// Options configures a Reader.
type Options struct {
	// CallTimeout bounds a single per-endpoint RPC call.
	CallTimeout time.Duration
	// Commitment is the confirmation level used for queries.
	Commitment rpc.CommitmentType
	// RatePerSecond / Burst throttle calls per endpoint.
	RatePerSecond int
	Burst         int
}

// Reader queries the ledger through the endpoint pool. Every query walks
// the candidates from the highest priority down: per endpoint a native
// query-library call is attempted first, then a raw JSON-RPC fallback.
// The first well-formed response wins. Reader also implements the
// payment-side RPC surface (blockhash, submit, confirm).
type Reader struct {
	pool        *endpointpool.Pool
	provider    *ClientProvider
	fallback    *fallbackClient
	callTimeout time.Duration
	commitment  rpc.CommitmentType
	logger      *zap.Logger

	limMu    sync.Mutex
	limiters map[string]*rate.Limiter
	perSec   int
	burst    int
}

// NewReader creates a Reader over the given pool.
func NewReader(pool *endpointpool.Pool, opts Options, logger *zap.Logger) *Reader {
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = 8 * time.Second
	}
	if opts.Commitment == "" {
		opts.Commitment = rpc.CommitmentConfirmed
	}
	if opts.RatePerSecond <= 0 {
		opts.RatePerSecond = 5
	}
	if opts.Burst <= 0 {
		opts.Burst = 10
	}
	return &Reader{
		pool:        pool,
		provider:    NewClientProvider(logger),
		fallback:    newFallbackClient(opts.CallTimeout, logger),
		callTimeout: opts.CallTimeout,
		commitment:  opts.Commitment,
		logger:      logger.Named("LedgerReader"),
		limiters:    make(map[string]*rate.Limiter),
		perSec:      opts.RatePerSecond,
		burst:       opts.Burst,
	}
}

// CommitmentFromString maps a config value to an RPC commitment level.
func CommitmentFromString(s string) rpc.CommitmentType {
	switch s {
	case "processed":
		return rpc.CommitmentProcessed
	case "finalized":
		return rpc.CommitmentFinalized
	default:
		return rpc.CommitmentConfirmed
	}
}

func (r *Reader) limiter(url string) *rate.Limiter {
	r.limMu.Lock()
	defer r.limMu.Unlock()
	lim, ok := r.limiters[url]
	if !ok {
		lim = rate.NewLimiter(rate.Limit(r.perSec), r.burst)
		r.limiters[url] = lim
	}
	return lim
}

// ReadBalance returns the raw lamport balance of addr. If every endpoint
// fails the error wraps entity.ErrAllEndpointsUnavailable; callers treat
// that as "unknown", never as "zero".
func (r *Reader) ReadBalance(ctx context.Context, addr entity.Address) (uint64, error) {
	if addr.IsZero() {
		return 0, entity.ErrInvalidAddress
	}

	var lastErr error
	for _, ep := range r.pool.Candidates() {
		if err := r.limiter(ep.URL).Wait(ctx); err != nil {
			return 0, fmt.Errorf("rate limiter: %w", err)
		}

		callCtx, cancel := context.WithTimeout(ctx, r.callTimeout)
		value, err := r.readFromEndpoint(callCtx, ep, addr)
		cancel()

		if err == nil {
			metrics.EndpointRequestsTotal.WithLabelValues(ep.Redacted(), "ok").Inc()
			return value, nil
		}
		metrics.EndpointRequestsTotal.WithLabelValues(ep.Redacted(), "error").Inc()
		r.logger.Warn("Endpoint balance query failed",
			zap.String("url", ep.Redacted()), zap.Error(err))
		lastErr = err

		if ctx.Err() != nil {
			break
		}
	}
	return 0, fmt.Errorf("%w: last error: %v", entity.ErrAllEndpointsUnavailable, lastErr)
}

func (r *Reader) readFromEndpoint(ctx context.Context, ep entity.Endpoint, addr entity.Address) (uint64, error) {
	client := r.provider.Get(ep.URL)
	res, err := client.GetBalance(ctx, addr.PublicKey(), r.commitment)
	if err == nil && res != nil {
		return res.Value, nil
	}
	if ctx.Err() != nil {
		if err == nil {
			err = ctx.Err()
		}
		return 0, err
	}

	// Native call failed with time left; try the raw JSON-RPC path
	// against the same endpoint before moving on.
	value, ferr := r.fallback.GetBalance(ctx, ep, addr)
	if ferr == nil {
		return value, nil
	}
	return 0, fmt.Errorf("native: %v; fallback: %w", err, ferr)
}

// LatestBlockhash returns the most recent sequencing token, walking the
// pool in priority order.
func (r *Reader) LatestBlockhash(ctx context.Context) (solana.Hash, error) {
	var lastErr error
	for _, ep := range r.pool.Candidates() {
		if err := r.limiter(ep.URL).Wait(ctx); err != nil {
			return solana.Hash{}, fmt.Errorf("rate limiter: %w", err)
		}
		callCtx, cancel := context.WithTimeout(ctx, r.callTimeout)
		res, err := r.provider.Get(ep.URL).GetLatestBlockhash(callCtx, r.commitment)
		cancel()
		if err == nil && res != nil {
			return res.Value.Blockhash, nil
		}
		if err == nil {
			err = fmt.Errorf("empty blockhash response")
		}
		r.logger.Warn("Blockhash query failed", zap.String("url", ep.Redacted()), zap.Error(err))
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}
	return solana.Hash{}, fmt.Errorf("%w: last error: %v", entity.ErrAllEndpointsUnavailable, lastErr)
}

// SubmitTransaction submits a signed transfer through the first endpoint
// that accepts it.
func (r *Reader) SubmitTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	var lastErr error
	for _, ep := range r.pool.Candidates() {
		if err := r.limiter(ep.URL).Wait(ctx); err != nil {
			return solana.Signature{}, fmt.Errorf("rate limiter: %w", err)
		}
		callCtx, cancel := context.WithTimeout(ctx, r.callTimeout)
		sig, err := r.provider.Get(ep.URL).SendTransactionWithOpts(callCtx, tx, rpc.TransactionOpts{
			PreflightCommitment: r.commitment,
		})
		cancel()
		if err == nil {
			return sig, nil
		}
		r.logger.Warn("Transaction submission failed",
			zap.String("url", ep.Redacted()), zap.Error(err))
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}
	return solana.Signature{}, fmt.Errorf("%w: last error: %v", entity.ErrAllEndpointsUnavailable, lastErr)
}

// ConfirmSignature reports whether sig has reached at least confirmed
// commitment.
func (r *Reader) ConfirmSignature(ctx context.Context, sig solana.Signature) (bool, error) {
	var lastErr error
	for _, ep := range r.pool.Candidates() {
		if err := r.limiter(ep.URL).Wait(ctx); err != nil {
			return false, fmt.Errorf("rate limiter: %w", err)
		}
		callCtx, cancel := context.WithTimeout(ctx, r.callTimeout)
		res, err := r.provider.Get(ep.URL).GetSignatureStatuses(callCtx, true, sig)
		cancel()
		if err != nil || res == nil || len(res.Value) == 0 {
			if err == nil {
				err = fmt.Errorf("empty signature status response")
			}
			lastErr = err
			if ctx.Err() != nil {
				return false, lastErr
			}
			continue
		}
		status := res.Value[0]
		if status == nil {
			// Not yet observed by this endpoint.
			return false, nil
		}
		if status.Err != nil {
			return false, fmt.Errorf("transaction failed on-chain: %v", status.Err)
		}
		switch status.ConfirmationStatus {
		case rpc.ConfirmationStatusConfirmed, rpc.ConfirmationStatusFinalized:
			return true, nil
		default:
			return false, nil
		}
	}
	return false, fmt.Errorf("%w: last error: %v", entity.ErrAllEndpointsUnavailable, lastErr)
}
