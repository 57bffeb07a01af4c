package config

import "github.com/spf13/viper"

const (
	// DefaultPaymentRecipient is the account that receives analysis payments.
	DefaultPaymentRecipient = "0x701b1d24270dd314d417430fbc2fc5407c4119aa7a94bc3d467d94952f9bc6cc"

	// DefaultMinimumOctas is 0.01 APT.
	DefaultMinimumOctas = 1_000_000

	defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"
)

// SetDefaults registers the built-in configuration layer on v.
func SetDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "120s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.max_body_bytes", 64<<10)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.profile", "SIMPLE")

	// Store defaults
	v.SetDefault("store.driver", "libsql")
	v.SetDefault("store.path", "")
	v.SetDefault("store.url", "")
	v.SetDefault("store.auth_token", "")

	// Evidence sources
	v.SetDefault("sources.http_timeout", "10s")
	v.SetDefault("sources.user_agent", defaultUserAgent)
	v.SetDefault("sources.coingecko.base_url", "https://api.coingecko.com/api/v3")
	v.SetDefault("sources.coingecko.api_key", "")
	v.SetDefault("sources.aptos.node_url", "https://fullnode.testnet.aptoslabs.com/v1")
	v.SetDefault("sources.aptos.reserved_prefixes", []string{"0x1::"})
	v.SetDefault("sources.search.provider", "searxng")
	v.SetDefault("sources.search.base_url", "http://localhost:8888")
	v.SetDefault("sources.search.api_key", "")
	v.SetDefault("sources.search.limit", 5)
	v.SetDefault("sources.search.keywords", []string{"crypto", "scam", "reddit", "twitter"})
	v.SetDefault("sources.rdap.enabled", true)
	v.SetDefault("sources.rdap.timeout", "10s")
	v.SetDefault("sources.rdap.server", "")

	// Pipeline bounds
	v.SetDefault("pipeline.name_limit", 50)
	v.SetDefault("pipeline.text_limit", 3000)
	v.SetDefault("pipeline.agent_context_limit", 2000)
	v.SetDefault("pipeline.doc_markers", []string{"docs", "whitepaper"})
	v.SetDefault("pipeline.rules", []string{"docs", "liquidity"})
	v.SetDefault("pipeline.token_types", []string{"token", "coin"})
	v.SetDefault("pipeline.base_layer_types", []string{"chain", "layer 1", "layer1", "l1", "wallet"})

	// Payment gate
	v.SetDefault("payment.node_url", "https://api.testnet.aptoslabs.com/v1")
	v.SetDefault("payment.recipient", DefaultPaymentRecipient)
	v.SetDefault("payment.minimum_octas", DefaultMinimumOctas)
	v.SetDefault("payment.transfer_functions", []string{"0x1::coin::transfer", "0x1::aptos_account::transfer"})
	v.SetDefault("payment.bypass_token", "demo")
	v.SetDefault("payment.dev_bypass_enabled", false)

	// AILink defaults
	v.SetDefault("ailink.default_provider", "openai")
	v.SetDefault("ailink.default_timeout", "60s")
	v.SetDefault("ailink.input_budget", 3000)
	v.SetDefault("ailink.rate_per_minute", 60)
	v.SetDefault("ailink.burst", 4)
	v.SetDefault("ailink.providers.openai.enabled", true)
	v.SetDefault("ailink.providers.openai.ai_provider", "openai")
	v.SetDefault("ailink.providers.openai.base_url", "https://api.openai.com/v1")
	v.SetDefault("ailink.providers.openai.models.default", "gpt-4o-mini")

	// Rate limit overrides (optional)
	v.SetDefault("rate_limits", map[string]int{})
	v.SetDefault("rate_limit_margin", 0.9)

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9090)

	// Health check defaults
	v.SetDefault("health.enabled", true)

	// Debug defaults
	v.SetDefault("debug.enabled", false)
	v.SetDefault("debug.pprof_enabled", false)
}
