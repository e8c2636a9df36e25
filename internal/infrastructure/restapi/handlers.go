package restapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"wallet_monitor/internal/app/port"
	"wallet_monitor/internal/app/service"
	"wallet_monitor/internal/config"
	"wallet_monitor/internal/domain/entity"
	"wallet_monitor/internal/infrastructure/mockledger"
	"wallet_monitor/internal/pkg/utils"
)

// WalletHandler serves the UI-facing HTTP surface: balance snapshots,
// session control, fee quoting, payment and mock ledger helpers. All
// formatting decisions live here; the core only supplies structured
// error kinds.
type WalletHandler struct {
	monitor  port.BalanceMonitor
	payments *service.PaymentService
	mock     *mockledger.Ledger
	cfg      *config.Config
	logger   port.Logger
}

// NewWalletHandler creates a WalletHandler.
func NewWalletHandler(
	monitor port.BalanceMonitor,
	payments *service.PaymentService,
	mock *mockledger.Ledger,
	cfg *config.Config,
	logger port.Logger,
) *WalletHandler {
	return &WalletHandler{
		monitor:  monitor,
		payments: payments,
		mock:     mock,
		cfg:      cfg,
		logger:   logger,
	}
}

type sessionRequest struct {
	// Address is the session's resolved on-chain address, if any.
	Address string `json:"address"`
	// OwnerKey is the stable identity key used for the mock ledger when
	// no address resolves.
	OwnerKey string `json:"ownerKey"`
}

type intentRequest struct {
	USDEntryFee         string  `json:"usdEntryFee" binding:"required"`
	FeePercentagePoints *int    `json:"feePercentagePoints"`
	TotalUSDOverride    *string `json:"totalUsdOverride"`
	Recipient           string  `json:"recipient"`
}

type mockMutationRequest struct {
	OwnerKey string `json:"ownerKey" binding:"required"`
	Lamports int64  `json:"lamports"`
}

// GetBalanceHandler returns the last published balance snapshot.
func (h *WalletHandler) GetBalanceHandler(c *gin.Context) {
	snap := h.monitor.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"data": snap,
		"display": gin.H{
			"available": utils.FormatLamports(snap.AvailableLamports) + " SOL",
			"usd":       utils.FormatUSD(snap.USDAvailable),
		},
		"status_message": "Balance snapshot retrieved.",
	})
}

// RefreshBalanceHandler requests an immediate re-read. The refreshed
// snapshot arrives through the normal publish path.
func (h *WalletHandler) RefreshBalanceHandler(c *gin.Context) {
	h.monitor.RefreshNow()
	c.JSON(http.StatusAccepted, gin.H{"status_message": "Refresh requested."})
}

// StartSessionHandler resolves the session's watch target: a validated
// on-chain address when one is supplied, the mock ledger otherwise.
func (h *WalletHandler) StartSessionHandler(c *gin.Context) {
	var req sessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error_kind": "BAD_REQUEST", "status_message": err.Error()})
		return
	}

	switch {
	case req.Address != "":
		addr, err := entity.ParseAddress(req.Address)
		if err != nil {
			h.writeError(c, err)
			return
		}
		h.monitor.Watch(addr)
		c.JSON(http.StatusOK, gin.H{"status_message": "Watching address.", "data": gin.H{"address": addr.String()}})
	case req.OwnerKey != "":
		h.monitor.WatchMock(req.OwnerKey)
		c.JSON(http.StatusOK, gin.H{"status_message": "Watching mock ledger.", "data": gin.H{"ownerKey": req.OwnerKey}})
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error_kind": "BAD_REQUEST", "status_message": "address or ownerKey required"})
	}
}

// EndSessionHandler stops the monitor on logout.
func (h *WalletHandler) EndSessionHandler(c *gin.Context) {
	h.monitor.Stop()
	c.JSON(http.StatusOK, gin.H{"status_message": "Session ended."})
}

// QuoteHandler prices an entry fee intent against the watched target's
// spendable balance.
func (h *WalletHandler) QuoteHandler(c *gin.Context) {
	intent, err := h.parseIntent(c)
	if err != nil {
		h.writeError(c, err)
		return
	}
	quote, err := h.payments.QuoteForWatched(c.Request.Context(), intent)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": quote, "status_message": "Quote computed."})
}

// PayHandler executes the entry fee transfer.
func (h *WalletHandler) PayHandler(c *gin.Context) {
	intent, err := h.parseIntent(c)
	if err != nil {
		h.writeError(c, err)
		return
	}
	record, err := h.payments.Pay(c.Request.Context(), intent)
	if err != nil && !errors.Is(err, entity.ErrConfirmationTimedOut) {
		h.writeErrorWithRecord(c, err, record)
		return
	}

	msg := "Payment confirmed."
	if record.Status == entity.StatusConfirmationTimedOut {
		// Not a failure: the transfer may still land and is reconciled by
		// a later balance read.
		msg = "Payment submitted; confirmation still pending."
	}
	c.JSON(http.StatusOK, gin.H{"data": record, "status_message": msg})
}

// MockDepositHandler adjusts a simulated balance for manual testing.
func (h *WalletHandler) MockDepositHandler(c *gin.Context) {
	var req mockMutationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error_kind": "BAD_REQUEST", "status_message": err.Error()})
		return
	}
	balance, err := h.mock.Increment(req.OwnerKey, req.Lamports)
	if err != nil {
		h.writeError(c, err)
		return
	}
	h.monitor.RefreshNow()
	c.JSON(http.StatusOK, gin.H{
		"data":           gin.H{"ownerKey": req.OwnerKey, "lamports": balance},
		"status_message": "Mock balance updated.",
	})
}

// MockSetHandler overwrites a simulated balance for debug flows.
func (h *WalletHandler) MockSetHandler(c *gin.Context) {
	var req mockMutationRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Lamports < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error_kind": "BAD_REQUEST", "status_message": "ownerKey and non-negative lamports required"})
		return
	}
	if err := h.mock.Set(req.OwnerKey, uint64(req.Lamports)); err != nil {
		h.writeError(c, err)
		return
	}
	h.monitor.RefreshNow()
	c.JSON(http.StatusOK, gin.H{
		"data":           gin.H{"ownerKey": req.OwnerKey, "lamports": req.Lamports},
		"status_message": "Mock balance set.",
	})
}

func (h *WalletHandler) parseIntent(c *gin.Context) (entity.PaymentIntent, error) {
	var req intentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return entity.PaymentIntent{}, errBadRequest(err.Error())
	}

	feeUSD, err := decimal.NewFromString(req.USDEntryFee)
	if err != nil || feeUSD.IsNegative() {
		return entity.PaymentIntent{}, errBadRequest("usdEntryFee must be a non-negative decimal string")
	}

	intent := entity.PaymentIntent{
		USDEntryFee:         feeUSD,
		FeePercentagePoints: h.cfg.Fees.FeePercentagePoints,
	}
	if req.FeePercentagePoints != nil {
		intent.FeePercentagePoints = *req.FeePercentagePoints
	}
	if req.TotalUSDOverride != nil {
		override, err := decimal.NewFromString(*req.TotalUSDOverride)
		if err != nil || override.IsNegative() {
			return entity.PaymentIntent{}, errBadRequest("totalUsdOverride must be a non-negative decimal string")
		}
		intent.TotalUSDOverride = &override
	}

	recipientRaw := req.Recipient
	if recipientRaw == "" {
		recipientRaw = h.cfg.Fees.RecipientAddress
	}
	recipient, err := entity.ParseAddress(recipientRaw)
	if err != nil {
		return entity.PaymentIntent{}, err
	}
	intent.Recipient = recipient
	return intent, nil
}

type badRequestError struct{ msg string }

func (e *badRequestError) Error() string { return e.msg }

func errBadRequest(msg string) error { return &badRequestError{msg: msg} }

func (h *WalletHandler) writeError(c *gin.Context, err error) {
	h.writeErrorWithRecord(c, err, entity.TransactionRecord{})
}

// writeErrorWithRecord maps core error kinds to HTTP responses. The
// shortfall of an insufficient-funds rejection is always included so the
// UI can show the exact missing amount.
func (h *WalletHandler) writeErrorWithRecord(c *gin.Context, err error, record entity.TransactionRecord) {
	status := http.StatusInternalServerError
	kind := "INTERNAL"
	body := gin.H{"status_message": err.Error()}

	var bad *badRequestError
	var insufficient *entity.InsufficientFundsError
	switch {
	case errors.As(err, &bad):
		status, kind = http.StatusBadRequest, "BAD_REQUEST"
	case errors.Is(err, entity.ErrInvalidAddress):
		status, kind = http.StatusBadRequest, "INVALID_ADDRESS"
	case errors.As(err, &insufficient):
		status, kind = http.StatusUnprocessableEntity, "INSUFFICIENT_FUNDS"
		body["shortfall_lamports"] = insufficient.ShortfallLamports
	case errors.Is(err, entity.ErrNoWatchedAddress):
		status, kind = http.StatusConflict, "NO_WATCHED_ADDRESS"
	case errors.Is(err, entity.ErrAllEndpointsUnavailable):
		status, kind = http.StatusServiceUnavailable, "ALL_ENDPOINTS_UNAVAILABLE"
	case errors.Is(err, entity.ErrSignerUnavailable):
		status, kind = http.StatusConflict, "SIGNER_UNAVAILABLE"
	case errors.Is(err, entity.ErrSignerDeclined):
		status, kind = http.StatusConflict, "SIGNER_DECLINED"
	case errors.Is(err, entity.ErrSubmissionFailed):
		status, kind = http.StatusBadGateway, "SUBMISSION_FAILED"
	case errors.Is(err, entity.ErrOverflow):
		status, kind = http.StatusUnprocessableEntity, "OVERFLOW"
	}

	body["error_kind"] = kind
	if record.Status != "" {
		body["data"] = record
	}
	h.logger.Debug("Request rejected", "kind", kind, "error", err.Error())
	c.JSON(status, body)
}
