package config

import (
	"time"

	"github.com/aptoseidon/aptoseidon/internal/ailink"
)

// Config represents the complete application configuration.
//
// Values are layered: built-in defaults (SetDefaults), an optional YAML file,
// APTOSEIDON_* environment variables, then runtime overrides. The loaded value
// is passed explicitly to every component constructor.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Store    StoreConfig    `mapstructure:"store"`
	Sources  SourcesConfig  `mapstructure:"sources"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Payment  PaymentConfig  `mapstructure:"payment"`
	AILink   ailink.Config  `mapstructure:"ailink"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Health   HealthConfig   `mapstructure:"health"`
	Debug    DebugConfig    `mapstructure:"debug"`

	RateLimits      map[string]int `mapstructure:"rate_limits"`
	RateLimitMargin float64        `mapstructure:"rate_limit_margin"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	// MaxBodyBytes bounds JSON request bodies.
	MaxBodyBytes int64 `mapstructure:"max_body_bytes"`
	// AdminToken enables POST /admin/signal with bearer auth. Empty disables it.
	AdminToken string `mapstructure:"admin_token"`
}

// StoreConfig selects the report store.
//
// Driver "libsql" (default) uses Path for a local file or URL/AuthToken for a
// remote Turso database. Driver "postgres" uses URL as a pgx connection string.
type StoreConfig struct {
	Driver    string `mapstructure:"driver"`
	Path      string `mapstructure:"path"`
	URL       string `mapstructure:"url"`
	AuthToken string `mapstructure:"auth_token"`
}

// SourcesConfig configures the evidence providers.
type SourcesConfig struct {
	HTTPTimeout time.Duration   `mapstructure:"http_timeout"`
	UserAgent   string          `mapstructure:"user_agent"`
	CoinGecko   CoinGeckoConfig `mapstructure:"coingecko"`
	Aptos       AptosConfig     `mapstructure:"aptos"`
	Search      SearchConfig    `mapstructure:"search"`
	RDAP        RDAPConfig      `mapstructure:"rdap"`
}

// CoinGeckoConfig configures the market-data provider.
type CoinGeckoConfig struct {
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
}

// AptosConfig configures the chain node used for account resource lookups.
type AptosConfig struct {
	NodeURL string `mapstructure:"node_url"`
	// ReservedPrefixes are resource type prefixes owned by the chain framework.
	// Resources under these prefixes do not count as deployed modules.
	ReservedPrefixes []string `mapstructure:"reserved_prefixes"`
}

// SearchConfig configures the social/reputation search provider.
type SearchConfig struct {
	// Provider is one of: searxng, tavily, none.
	Provider string   `mapstructure:"provider"`
	BaseURL  string   `mapstructure:"base_url"`
	APIKey   string   `mapstructure:"api_key"`
	Limit    int      `mapstructure:"limit"`
	Keywords []string `mapstructure:"keywords"`
}

// RDAPConfig configures domain age lookups for URL inputs.
type RDAPConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Timeout time.Duration `mapstructure:"timeout"`
	Server  string        `mapstructure:"server"`
}

// PipelineConfig holds the bounds and heuristics applied during one analysis run.
type PipelineConfig struct {
	NameLimit         int      `mapstructure:"name_limit"`
	TextLimit         int      `mapstructure:"text_limit"`
	AgentContextLimit int      `mapstructure:"agent_context_limit"`
	DocMarkers        []string `mapstructure:"doc_markers"`
	Rules             []string `mapstructure:"rules"`
	TokenTypes        []string `mapstructure:"token_types"`
	BaseLayerTypes    []string `mapstructure:"base_layer_types"`
}

// PaymentConfig configures the payment gate.
type PaymentConfig struct {
	NodeURL           string   `mapstructure:"node_url"`
	Recipient         string   `mapstructure:"recipient"`
	MinimumOctas      uint64   `mapstructure:"minimum_octas"`
	TransferFunctions []string `mapstructure:"transfer_functions"`

	// BypassToken authorizes without a chain lookup, but only when
	// DevBypassEnabled is set. Never enable outside local development.
	BypassToken      string `mapstructure:"bypass_token"`
	DevBypassEnabled bool   `mapstructure:"dev_bypass_enabled"`
}

// LoggingConfig selects the log level and profile. SIMPLE writes console
// output for CLI runs; STRUCTURED adds JSON sinks and correlation IDs for serve.
type LoggingConfig struct {
	// Level controls the minimum log level
	// Valid values: trace, debug, info, warn, error
	Level string `mapstructure:"level"`

	// Profile selects the logging complexity level
	Profile string `mapstructure:"profile"`
}

// MetricsConfig contains Prometheus metrics configuration
type MetricsConfig struct {
	// Enabled controls whether metrics are exposed
	Enabled bool `mapstructure:"enabled"`

	// Port is the dedicated metrics endpoint port (Prometheus format)
	Port int `mapstructure:"port"`
}

// HealthConfig contains health check configuration
type HealthConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// DebugConfig contains debug and profiling configuration
type DebugConfig struct {
	Enabled bool `mapstructure:"enabled"`

	// PprofEnabled controls whether pprof endpoints are exposed
	// WARNING: Only enable in development/staging environments
	PprofEnabled bool `mapstructure:"pprof_enabled"`
}

// OctasPerAPT is the number of octas in one APT.
const OctasPerAPT = 100_000_000

// MinimumAPT returns the configured payment minimum expressed in APT.
func (p PaymentConfig) MinimumAPT() float64 {
	return float64(p.MinimumOctas) / OctasPerAPT
}
