package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"go.uber.org/zap"

	"wallet_monitor/internal/app/port"
	"wallet_monitor/internal/domain/entity"
	"wallet_monitor/pkg/metrics"
)

const confirmPollInterval = 2 * time.Second

// MockDebitor debits the simulated ledger when the session has no real
// on-chain address.
type MockDebitor interface {
	port.MockBalanceReader
	Increment(ownerKey string, deltaLamports int64) (uint64, error)
}

// PaymentService executes room entry fee transfers: fresh balance
// re-validation, transfer building, delegated signing, submission and
// bounded confirmation polling. It never holds key material.
type PaymentService struct {
	reader         port.BalanceReader
	chain          port.PaymentChain
	fees           *FeeService
	signer         port.Signer
	monitor        *MonitorService
	mock           MockDebitor
	logger         *zap.Logger
	confirmTimeout time.Duration
}

// NewPaymentService creates a PaymentService. signer may be nil when no
// signing capability is wired; Pay then fails with ErrSignerUnavailable.
func NewPaymentService(
	reader port.BalanceReader,
	chain port.PaymentChain,
	fees *FeeService,
	signer port.Signer,
	monitor *MonitorService,
	mock MockDebitor,
	logger *zap.Logger,
	confirmTimeout time.Duration,
) *PaymentService {
	if confirmTimeout <= 0 {
		confirmTimeout = 30 * time.Second
	}
	return &PaymentService{
		reader:         reader,
		chain:          chain,
		fees:           fees,
		signer:         signer,
		monitor:        monitor,
		mock:           mock,
		logger:         logger.Named("PaymentService"),
		confirmTimeout: confirmTimeout,
	}
}

// Pay executes the fee transfer for the monitor's watched target. A
// quote obtained earlier is never trusted: the balance is re-read and
// re-validated before building the transfer. Errors prior to submission
// leave status Failed with a specific kind; confirmation timeout is not
// a failure.
func (s *PaymentService) Pay(ctx context.Context, intent entity.PaymentIntent) (entity.TransactionRecord, error) {
	target, ok := s.monitor.Watched()
	if !ok {
		return entity.TransactionRecord{Status: entity.StatusFailed}, entity.ErrNoWatchedAddress
	}
	if intent.Recipient.IsZero() {
		return entity.TransactionRecord{Status: entity.StatusFailed},
			fmt.Errorf("recipient: %w", entity.ErrInvalidAddress)
	}

	if target.Mock {
		return s.payMock(ctx, target, intent)
	}
	return s.payChain(ctx, target, intent)
}

func (s *PaymentService) payChain(ctx context.Context, target entity.WatchTarget, intent entity.PaymentIntent) (entity.TransactionRecord, error) {
	record := entity.TransactionRecord{
		FromAddress: target.Address.String(),
		ToAddress:   intent.Recipient.String(),
		Status:      entity.StatusFailed,
	}

	// Fresh read: the cached snapshot may be seconds out of date.
	raw, err := s.reader.ReadBalance(ctx, target.Address)
	if err != nil {
		metrics.PaymentsTotal.WithLabelValues(string(entity.StatusFailed)).Inc()
		return record, fmt.Errorf("pre-payment balance read: %w", err)
	}

	quote, err := s.fees.Quote(ctx, intent, AvailableLamports(raw))
	if err != nil {
		metrics.PaymentsTotal.WithLabelValues(string(entity.StatusFailed)).Inc()
		return record, err
	}
	record.Lamports = quote.TotalLamports

	blockhash, err := s.chain.LatestBlockhash(ctx)
	if err != nil {
		metrics.PaymentsTotal.WithLabelValues(string(entity.StatusFailed)).Inc()
		return record, fmt.Errorf("latest blockhash: %w", err)
	}

	tx, err := solana.NewTransaction(
		[]solana.Instruction{
			system.NewTransferInstruction(
				quote.TotalLamports,
				target.Address.PublicKey(),
				intent.Recipient.PublicKey(),
			).Build(),
		},
		blockhash,
		solana.TransactionPayer(target.Address.PublicKey()),
	)
	if err != nil {
		metrics.PaymentsTotal.WithLabelValues(string(entity.StatusFailed)).Inc()
		return record, fmt.Errorf("build transfer: %w", err)
	}
	record.BuiltAt = time.Now()
	record.Status = entity.StatusBuilt

	message, err := tx.Message.MarshalBinary()
	if err != nil {
		record.Status = entity.StatusFailed
		metrics.PaymentsTotal.WithLabelValues(string(entity.StatusFailed)).Inc()
		return record, fmt.Errorf("serialize transfer message: %w", err)
	}

	if s.signer == nil {
		record.Status = entity.StatusFailed
		metrics.PaymentsTotal.WithLabelValues(string(entity.StatusFailed)).Inc()
		return record, entity.ErrSignerUnavailable
	}
	sig, err := s.signer.SignTransfer(ctx, message)
	if err != nil {
		record.Status = entity.StatusFailed
		metrics.PaymentsTotal.WithLabelValues(string(entity.StatusFailed)).Inc()
		if errors.Is(err, entity.ErrSignerDeclined) || errors.Is(err, entity.ErrSignerUnavailable) {
			return record, err
		}
		return record, fmt.Errorf("%w: %v", entity.ErrSignerDeclined, err)
	}
	tx.Signatures = []solana.Signature{sig}

	submitted, err := s.chain.SubmitTransaction(ctx, tx)
	if err != nil {
		record.Status = entity.StatusFailed
		metrics.PaymentsTotal.WithLabelValues(string(entity.StatusFailed)).Inc()
		return record, fmt.Errorf("%w: %v", entity.ErrSubmissionFailed, err)
	}
	record.Signature = submitted.String()
	record.Status = entity.StatusSubmitted
	s.logger.Info("Fee transfer submitted",
		zap.String("signature", record.Signature),
		zap.Uint64("lamports", record.Lamports),
		zap.String("recipient", record.ToAddress))

	// Keep the displayed balance honest until the next poll lands.
	s.monitor.ApplyOptimisticDebit(quote.TotalLamports)
	s.monitor.RefreshNow()

	if err := s.awaitConfirmation(ctx, submitted); err != nil {
		// The transfer may still land; the caller reconciles via a later
		// balance read.
		record.Status = entity.StatusConfirmationTimedOut
		metrics.PaymentsTotal.WithLabelValues(string(entity.StatusConfirmationTimedOut)).Inc()
		return record, err
	}

	record.Status = entity.StatusConfirmed
	record.ConfirmedAt = time.Now()
	metrics.PaymentsTotal.WithLabelValues(string(entity.StatusConfirmed)).Inc()
	s.monitor.RefreshNow()
	return record, nil
}

func (s *PaymentService) awaitConfirmation(ctx context.Context, sig solana.Signature) error {
	deadline := time.Now().Add(s.confirmTimeout)
	ticker := time.NewTicker(confirmPollInterval)
	defer ticker.Stop()

	for {
		confirmed, err := s.chain.ConfirmSignature(ctx, sig)
		if err != nil {
			s.logger.Debug("Confirmation poll failed", zap.Error(err))
		} else if confirmed {
			return nil
		}
		if time.Now().After(deadline) {
			return entity.ErrConfirmationTimedOut
		}
		select {
		case <-ctx.Done():
			return entity.ErrConfirmationTimedOut
		case <-ticker.C:
		}
	}
}

// payMock settles the fee against the simulated ledger. The deduction is
// immediate and reported as confirmed; no network is involved.
func (s *PaymentService) payMock(ctx context.Context, target entity.WatchTarget, intent entity.PaymentIntent) (entity.TransactionRecord, error) {
	record := entity.TransactionRecord{
		FromAddress: target.Label(),
		ToAddress:   intent.Recipient.String(),
		Status:      entity.StatusFailed,
	}

	available := s.mock.Read(target.OwnerKey)
	quote, err := s.fees.Quote(ctx, intent, available)
	if err != nil {
		metrics.PaymentsTotal.WithLabelValues(string(entity.StatusFailed)).Inc()
		return record, err
	}
	record.Lamports = quote.TotalLamports
	record.BuiltAt = time.Now()

	if quote.TotalLamports > uint64(1)<<62 {
		metrics.PaymentsTotal.WithLabelValues(string(entity.StatusFailed)).Inc()
		return record, entity.ErrOverflow
	}
	if _, err := s.mock.Increment(target.OwnerKey, -int64(quote.TotalLamports)); err != nil {
		metrics.PaymentsTotal.WithLabelValues(string(entity.StatusFailed)).Inc()
		return record, err
	}

	record.Status = entity.StatusConfirmed
	record.ConfirmedAt = time.Now()
	metrics.PaymentsTotal.WithLabelValues(string(entity.StatusConfirmed)).Inc()
	s.monitor.RefreshNow()
	s.logger.Info("Mock fee deduction applied",
		zap.String("ownerKey", target.OwnerKey),
		zap.Uint64("lamports", record.Lamports))
	return record, nil
}

// QuoteForWatched prices an intent against the watched target's current
// spendable balance, using a fresh read for chain targets.
func (s *PaymentService) QuoteForWatched(ctx context.Context, intent entity.PaymentIntent) (entity.FeeQuote, error) {
	target, ok := s.monitor.Watched()
	if !ok {
		return entity.FeeQuote{}, entity.ErrNoWatchedAddress
	}

	var available uint64
	if target.Mock {
		available = s.mock.Read(target.OwnerKey)
	} else {
		raw, err := s.reader.ReadBalance(ctx, target.Address)
		if err != nil {
			return entity.FeeQuote{}, fmt.Errorf("balance read for quote: %w", err)
		}
		available = AvailableLamports(raw)
	}
	return s.fees.Quote(ctx, intent, available)
}
