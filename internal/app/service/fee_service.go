package service

import (
	"context"
	"fmt"
	"math"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"wallet_monitor/internal/app/port"
	"wallet_monitor/internal/domain/entity"
)

var lamportsPerSOLDecimal = decimal.NewFromInt(int64(LamportsPerSOL))

// FeeService converts USD-denominated entry fees into lamport amounts
// and validates them against the spendable balance.
type FeeService struct {
	oracle port.PriceOracle
	logger *zap.Logger
}

// NewFeeService creates a new FeeService.
func NewFeeService(oracle port.PriceOracle, logger *zap.Logger) *FeeService {
	return &FeeService{
		oracle: oracle,
		logger: logger.Named("FeeService"),
	}
}

// TotalUSD computes the intent's total cost in USD. A TotalUSDOverride
// is authoritative for flat per-room pricing; otherwise the percentage
// fee is applied on top of the base entry fee.
func TotalUSD(intent entity.PaymentIntent) (total, fee decimal.Decimal, err error) {
	if intent.USDEntryFee.IsNegative() {
		return decimal.Zero, decimal.Zero, fmt.Errorf("negative entry fee %s", intent.USDEntryFee)
	}
	if intent.FeePercentagePoints < 0 || intent.FeePercentagePoints > 100 {
		return decimal.Zero, decimal.Zero, fmt.Errorf("fee percentage points %d out of range [0,100]", intent.FeePercentagePoints)
	}
	if intent.TotalUSDOverride != nil {
		if intent.TotalUSDOverride.IsNegative() {
			return decimal.Zero, decimal.Zero, fmt.Errorf("negative total override %s", intent.TotalUSDOverride)
		}
		total = *intent.TotalUSDOverride
		fee = total.Sub(intent.USDEntryFee)
		if fee.IsNegative() {
			fee = decimal.Zero
		}
		return total, fee, nil
	}
	fee = intent.USDEntryFee.Mul(decimal.NewFromInt(int64(intent.FeePercentagePoints))).Div(decimal.NewFromInt(100))
	return intent.USDEntryFee.Add(fee), fee, nil
}

// LamportsForUSD converts a USD amount to lamports at the given
// USD-per-SOL rate, rounding up so truncation never under-charges.
func LamportsForUSD(usd, rate decimal.Decimal) (uint64, error) {
	if !rate.IsPositive() {
		return 0, fmt.Errorf("non-positive exchange rate %s", rate)
	}
	lamports := usd.Div(rate).Mul(lamportsPerSOLDecimal).Ceil()
	if lamports.IsNegative() {
		return 0, fmt.Errorf("negative lamport amount %s", lamports)
	}
	if lamports.GreaterThan(decimal.NewFromInt(math.MaxInt64)) {
		return 0, fmt.Errorf("lamport amount %s exceeds representable range", lamports)
	}
	return uint64(lamports.IntPart()), nil
}

// ValidateFunds checks that the spendable balance covers totalLamports.
// The check runs against the available (post-reserve) balance, so a
// passing payment always leaves the reserve invariant intact.
func ValidateFunds(availableLamports, totalLamports uint64) error {
	if totalLamports > availableLamports {
		return &entity.InsufficientFundsError{
			ShortfallLamports: totalLamports - availableLamports,
		}
	}
	return nil
}

// Quote prices an intent at the oracle's current rate and validates it
// against the given spendable balance. Validation failures are returned
// immediately to the caller, never retried silently.
func (s *FeeService) Quote(ctx context.Context, intent entity.PaymentIntent, availableLamports uint64) (entity.FeeQuote, error) {
	totalUSD, feeUSD, err := TotalUSD(intent)
	if err != nil {
		return entity.FeeQuote{}, fmt.Errorf("fee computation: %w", err)
	}

	rate := s.oracle.CurrentRate(ctx)
	totalLamports, err := LamportsForUSD(totalUSD, rate)
	if err != nil {
		return entity.FeeQuote{}, fmt.Errorf("usd conversion: %w", err)
	}

	quote := entity.FeeQuote{
		TotalUSD:      totalUSD,
		FeeUSD:        feeUSD,
		TotalLamports: totalLamports,
		Rate:          rate,
	}

	if err := ValidateFunds(availableLamports, totalLamports); err != nil {
		s.logger.Debug("Quote rejected for insufficient funds",
			zap.Uint64("availableLamports", availableLamports),
			zap.Uint64("totalLamports", totalLamports))
		return quote, err
	}
	return quote, nil
}
