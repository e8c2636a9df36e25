package ledgerclient

import (
	"context"
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"wallet_monitor/internal/domain/entity"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcGetBalanceResponse struct {
	Result *struct {
		Value uint64 `json:"value"`
	} `json:"result"`
	Error *rpcError `json:"error"`
}

// fallbackClient issues raw JSON-RPC getBalance calls over HTTP when the
// native query library fails against an endpoint.
type fallbackClient struct {
	client  *fasthttp.Client
	timeout time.Duration
	logger  *zap.Logger
}

func newFallbackClient(timeout time.Duration, logger *zap.Logger) *fallbackClient {
	return &fallbackClient{
		client:  &fasthttp.Client{},
		timeout: timeout,
		logger:  logger.Named("RPCFallback"),
	}
}

// GetBalance queries the lamport balance of addr via a getBalance call
// against endpointURL, bounded by the context deadline (or the client's
// default timeout when none is set).
func (c *fallbackClient) GetBalance(ctx context.Context, endpoint entity.Endpoint, addr entity.Address) (uint64, error) {
	payload := rpcRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "getBalance",
		Params:  []any{addr.String()},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("encode getBalance request: %w", err)
	}

	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	req.SetRequestURI(endpoint.URL)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.SetBody(body)

	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	if deadline, ok := ctx.Deadline(); ok {
		err = c.client.DoDeadline(req, resp, deadline)
	} else {
		err = c.client.DoTimeout(req, resp, c.timeout)
	}
	if err != nil {
		c.logger.Debug("Fallback getBalance request failed",
			zap.String("url", endpoint.Redacted()), zap.Error(err))
		return 0, fmt.Errorf("getBalance request to %s: %w", endpoint.Redacted(), err)
	}

	if resp.StatusCode() != fasthttp.StatusOK {
		return 0, fmt.Errorf("getBalance request to %s: status %d", endpoint.Redacted(), resp.StatusCode())
	}

	var rpcResp rpcGetBalanceResponse
	if err := json.Unmarshal(resp.Body(), &rpcResp); err != nil {
		return 0, fmt.Errorf("decode getBalance response from %s: %w", endpoint.Redacted(), err)
	}
	if rpcResp.Error != nil {
		return 0, fmt.Errorf("rpc error (%d) from %s: %s", rpcResp.Error.Code, endpoint.Redacted(), rpcResp.Error.Message)
	}
	if rpcResp.Result == nil {
		return 0, fmt.Errorf("getBalance response from %s missing result", endpoint.Redacted())
	}
	return rpcResp.Result.Value, nil
}
