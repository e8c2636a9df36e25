package ledgerclient

import (
	"sync"

	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"
)

// ClientProvider caches one native RPC client per endpoint URL so
// repeated queries reuse connections instead of redialing.
type ClientProvider struct {
	mu      sync.Mutex
	clients map[string]*rpc.Client
	logger  *zap.Logger
}

// NewClientProvider creates a ClientProvider.
func NewClientProvider(logger *zap.Logger) *ClientProvider {
	return &ClientProvider{
		clients: make(map[string]*rpc.Client),
		logger:  logger.Named("ClientProvider"),
	}
}

// Get returns the cached client for the URL, creating it on first use.
func (p *ClientProvider) Get(url string) *rpc.Client {
	p.mu.Lock()
	defer p.mu.Unlock()

	if client, exists := p.clients[url]; exists {
		return client
	}
	client := rpc.New(url)
	p.clients[url] = client
	return client
}
