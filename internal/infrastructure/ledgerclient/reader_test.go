package ledgerclient

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"wallet_monitor/internal/domain/entity"
	"wallet_monitor/internal/infrastructure/endpointpool"
)

var testAddr = entity.MustParseAddress("So11111111111111111111111111111111111111112")

func balanceServer(t *testing.T, lamports uint64) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.Contains(t, string(body), "getBalance")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","result":{"context":{"slot":100},"value":` +
			strconv.FormatUint(lamports, 10) + `},"id":1}`))
	}))
	t.Cleanup(server.Close)
	return server
}

func newTestReader(urls ...string) *Reader {
	endpoints := make([]entity.Endpoint, len(urls))
	for i, u := range urls {
		endpoints[i] = entity.Endpoint{URL: u, Priority: i}
	}
	pool := endpointpool.New(endpoints, nil)
	return NewReader(pool, Options{}, zap.NewNop())
}

func TestReadBalance(t *testing.T) {
	server := balanceServer(t, 1_234_567)
	reader := newTestReader(server.URL)

	got, err := reader.ReadBalance(context.Background(), testAddr)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_234_567), got)
}

func TestReadBalanceZeroValueResponse(t *testing.T) {
	server := balanceServer(t, 0)
	reader := newTestReader(server.URL)

	got, err := reader.ReadBalance(context.Background(), testAddr)
	require.NoError(t, err)
	assert.Zero(t, got, "a funded query for an empty account is a real zero, not an error")
}

func TestReadBalanceFallsPastDeadEndpoint(t *testing.T) {
	var deadHits atomic.Int64
	dead := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		deadHits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(dead.Close)
	healthy := balanceServer(t, 777)

	reader := newTestReader(dead.URL, healthy.URL)
	got, err := reader.ReadBalance(context.Background(), testAddr)
	require.NoError(t, err)
	assert.Equal(t, uint64(777), got)
	assert.Positive(t, deadHits.Load(), "the higher-priority endpoint is tried first")
}

func TestReadBalanceAllEndpointsDown(t *testing.T) {
	dead := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(dead.Close)

	reader := newTestReader(dead.URL)
	_, err := reader.ReadBalance(context.Background(), testAddr)
	assert.ErrorIs(t, err, entity.ErrAllEndpointsUnavailable)
}

func TestReadBalanceRejectsZeroAddress(t *testing.T) {
	reader := newTestReader("https://unused.example.com")
	_, err := reader.ReadBalance(context.Background(), entity.Address{})
	assert.ErrorIs(t, err, entity.ErrInvalidAddress)
}

func TestReadBalanceRPCErrorResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","error":{"code":-32602,"message":"invalid params"},"id":1}`))
	}))
	t.Cleanup(server.Close)

	reader := newTestReader(server.URL)
	_, err := reader.ReadBalance(context.Background(), testAddr)
	assert.ErrorIs(t, err, entity.ErrAllEndpointsUnavailable)
}

func blockhashServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var req map[string]any
		require.NoError(t, json.Unmarshal(body, &req))
		w.Header().Set("Content-Type", "application/json")
		resp := map[string]any{
			"jsonrpc": "2.0",
			"id":      req["id"],
			"result": map[string]any{
				"context": map[string]any{"slot": 1},
				"value": map[string]any{
					"blockhash":            "So11111111111111111111111111111111111111112",
					"lastValidBlockHeight": 100,
				},
			},
		}
		encoded, err := json.Marshal(resp)
		require.NoError(t, err)
		_, _ = w.Write(encoded)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestLatestBlockhash(t *testing.T) {
	server := blockhashServer(t)
	reader := newTestReader(server.URL)

	hash, err := reader.LatestBlockhash(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "So11111111111111111111111111111111111111112", hash.String())
}

func TestPaymentSideCallsConsumeRateLimiter(t *testing.T) {
	server := blockhashServer(t)
	pool := endpointpool.New([]entity.Endpoint{{URL: server.URL}}, nil)
	reader := NewReader(pool, Options{RatePerSecond: 1, Burst: 1}, zap.NewNop())

	_, err := reader.LatestBlockhash(context.Background())
	require.NoError(t, err)
	assert.Less(t, reader.limiter(server.URL).Tokens(), 1.0,
		"payment-side queries must draw from the same per-endpoint limiter as balance reads")
}

func TestCommitmentFromString(t *testing.T) {
	assert.Equal(t, "processed", string(CommitmentFromString("processed")))
	assert.Equal(t, "finalized", string(CommitmentFromString("finalized")))
	assert.Equal(t, "confirmed", string(CommitmentFromString("confirmed")))
	assert.Equal(t, "confirmed", string(CommitmentFromString("")))
}
