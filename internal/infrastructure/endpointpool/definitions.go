package endpointpool

import "wallet_monitor/internal/domain/entity"

// Predefined endpoint sets for the supported clusters, used when the
// configuration does not list endpoints explicitly.
var ( //nolint:gochecknoglobals // Global for definitions
	MainnetEndpoints = []entity.Endpoint{
		{URL: "https://api.mainnet-beta.solana.com", Priority: 0},
		{URL: "https://solana-rpc.publicnode.com", Priority: 1},
		{URL: "https://rpc.ankr.com/solana", Priority: 2},
	}

	DevnetEndpoints = []entity.Endpoint{
		{URL: "https://api.devnet.solana.com", Priority: 0},
		{URL: "https://rpc.ankr.com/solana_devnet", Priority: 1},
	}
)

// ForCluster returns the predefined endpoint set for a cluster name,
// defaulting to mainnet for unknown names.
func ForCluster(cluster string) []entity.Endpoint {
	switch cluster {
	case "devnet":
		return DevnetEndpoints
	default:
		return MainnetEndpoints
	}
}
