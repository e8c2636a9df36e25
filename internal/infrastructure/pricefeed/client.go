package pricefeed

import (
	"context"
	stdjson "encoding/json"
	"fmt"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/shopspring/decimal"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Client fetches the SOL/USD spot rate from a CoinGecko-compatible
// simple-price API.
type Client interface {
	SolanaUSDRate(ctx context.Context) (decimal.Decimal, error)
}

type clientImpl struct {
	client  *fasthttp.Client
	baseURL string
	timeout time.Duration
	logger  *zap.Logger
}

// NewClient creates a price feed client.
func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) Client {
	return &clientImpl{
		client:  &fasthttp.Client{},
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: timeout,
		logger:  logger.Named("PriceFeedClient"),
	}
}

// SolanaUSDRate implements Client.
func (c *clientImpl) SolanaUSDRate(ctx context.Context) (decimal.Decimal, error) {
	requestURL := c.baseURL + "/simple/price?ids=solana&vs_currencies=usd"

	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	req.SetRequestURI(requestURL)
	req.Header.SetMethod(fasthttp.MethodGet)

	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	var err error
	if deadline, ok := ctx.Deadline(); ok {
		err = c.client.DoDeadline(req, resp, deadline)
	} else {
		err = c.client.DoTimeout(req, resp, c.timeout)
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("price request to %s: %w", requestURL, err)
	}

	if resp.StatusCode() != fasthttp.StatusOK {
		return decimal.Zero, fmt.Errorf("price request to %s: status %d", requestURL, resp.StatusCode())
	}

	// Response shape: {"solana":{"usd":150.23}}. The rate is decoded as
	// json.Number and parsed into decimal without a float64 round trip.
	var parsed map[string]map[string]stdjson.Number
	if err := json.Unmarshal(resp.Body(), &parsed); err != nil {
		return decimal.Zero, fmt.Errorf("decode price response: %w", err)
	}
	usd, ok := parsed["solana"]["usd"]
	if !ok {
		return decimal.Zero, fmt.Errorf("price response missing solana/usd entry")
	}
	rate, err := decimal.NewFromString(usd.String())
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse rate %q: %w", usd, err)
	}
	if !rate.IsPositive() {
		return decimal.Zero, fmt.Errorf("non-positive rate %s", rate)
	}
	return rate, nil
}
