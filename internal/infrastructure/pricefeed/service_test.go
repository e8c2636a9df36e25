package pricefeed

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type fakeFeedClient struct {
	mu    sync.Mutex
	rate  decimal.Decimal
	err   error
	calls int
}

func (f *fakeFeedClient) SolanaUSDRate(context.Context) (decimal.Decimal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return decimal.Zero, f.err
	}
	return f.rate, nil
}

func (f *fakeFeedClient) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestCurrentRateFromFeed(t *testing.T) {
	client := &fakeFeedClient{rate: decimal.NewFromInt(175)}
	svc := NewService(client, time.Minute, decimal.NewFromInt(150), zap.NewNop())

	got := svc.CurrentRate(context.Background())
	assert.True(t, decimal.NewFromInt(175).Equal(got))
}

func TestCurrentRateCachesWithinTTL(t *testing.T) {
	client := &fakeFeedClient{rate: decimal.NewFromInt(175)}
	svc := NewService(client, time.Minute, decimal.NewFromInt(150), zap.NewNop())

	svc.CurrentRate(context.Background())
	svc.CurrentRate(context.Background())
	svc.CurrentRate(context.Background())
	assert.Equal(t, 1, client.callCount())
}

func TestCurrentRateFallsBackWhenFeedDown(t *testing.T) {
	client := &fakeFeedClient{err: errors.New("feed unreachable")}
	fallback := decimal.NewFromInt(150)
	svc := NewService(client, time.Minute, fallback, zap.NewNop())

	got := svc.CurrentRate(context.Background())
	assert.True(t, fallback.Equal(got), "a dead feed must yield the static fallback, never an error")
}

func TestCurrentRateRecoversAfterFeedReturns(t *testing.T) {
	client := &fakeFeedClient{err: errors.New("feed unreachable")}
	svc := NewService(client, time.Minute, decimal.NewFromInt(150), zap.NewNop())

	svc.CurrentRate(context.Background())

	client.mu.Lock()
	client.err = nil
	client.rate = decimal.NewFromInt(200)
	client.mu.Unlock()

	// The fallback is never cached; the next call retries the feed.
	got := svc.CurrentRate(context.Background())
	assert.True(t, decimal.NewFromInt(200).Equal(got))
}
