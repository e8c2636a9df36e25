package pricefeed

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const rateCacheKey = "solana_usd"

// Service implements port.PriceOracle: it serves the cached feed rate
// and degrades to a static fallback when the upstream feed is down, so
// rate consumers always get a usable number. The fallback is the single
// authoritative rate in degraded mode; there is no separate
// display-versus-deduction rate.
type Service struct {
	client   Client
	cache    *gocache.Cache
	fallback decimal.Decimal
	logger   *zap.Logger
}

// NewService creates a price oracle with the given cache TTL and static
// fallback rate (USD per SOL).
func NewService(client Client, cacheTTL time.Duration, fallback decimal.Decimal, logger *zap.Logger) *Service {
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &Service{
		client:   client,
		cache:    gocache.New(cacheTTL, 2*cacheTTL),
		fallback: fallback,
		logger:   logger.Named("PriceOracle"),
	}
}

// CurrentRate returns the USD-per-SOL rate: cached feed value if fresh,
// a live fetch otherwise, and the static fallback when the feed fails.
func (s *Service) CurrentRate(ctx context.Context) decimal.Decimal {
	if cached, ok := s.cache.Get(rateCacheKey); ok {
		return cached.(decimal.Decimal)
	}

	rate, err := s.client.SolanaUSDRate(ctx)
	if err != nil {
		s.logger.Warn("Price feed unavailable, using static fallback rate",
			zap.String("fallback", s.fallback.String()), zap.Error(err))
		return s.fallback
	}

	s.cache.SetDefault(rateCacheKey, rate)
	s.logger.Debug("Price rate refreshed", zap.String("rate", rate.String()))
	return rate
}
