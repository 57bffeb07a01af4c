package ailink

import "time"

// Config defines provider configuration for AILink.
//
// It is self-contained so the ailink package does not depend on the
// application config package.
type Config struct {
	DefaultProvider string        `mapstructure:"default_provider"`
	DefaultTimeout  time.Duration `mapstructure:"default_timeout"`

	// PromptsDir overrides built-in prompts that share a slug.
	PromptsDir string `mapstructure:"prompts_dir"`

	// InputBudget caps the user content, in characters, sent with any completion.
	InputBudget int `mapstructure:"input_budget"`

	// RatePerMinute and Burst pace completions across all providers.
	RatePerMinute float64 `mapstructure:"rate_per_minute"`
	Burst         int     `mapstructure:"burst"`

	// MaxRetries bounds retries after a provider rate-limit response.
	MaxRetries int `mapstructure:"max_retries"`

	// Providers is a set of provider instances keyed by a user-defined id (slug).
	// Each instance declares its underlying driver via AIProvider.
	Providers map[string]ProviderInstanceConfig `mapstructure:"providers"`

	// Routing maps a prompt slug (or role) to a provider id.
	Routing map[string]string `mapstructure:"routing"`
}

// ProviderInstanceConfig defines a configured provider instance (e.g. "openai").
type ProviderInstanceConfig struct {
	Enabled bool `mapstructure:"enabled"`

	// AIProvider is the driver identifier: "openai", "eino" or "gemini".
	AIProvider string `mapstructure:"ai_provider"`

	// SelectionPolicy controls which credential is chosen.
	// Supported values: "priority" (default), "round_robin".
	SelectionPolicy string `mapstructure:"selection_policy"`

	// DefaultCredential, if set, forces selecting the matching credential label.
	DefaultCredential string `mapstructure:"default_credential"`

	BaseURL string `mapstructure:"base_url"`

	// Models maps a tier ("default", "fast", ...) to a model name.
	Models map[string]string `mapstructure:"models"`
	Roles  []string          `mapstructure:"roles"`

	Credentials []CredentialConfig `mapstructure:"credentials"`
}

// CredentialConfig is a single credential for a provider instance.
type CredentialConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Label    string `mapstructure:"label"`
	APIKey   string `mapstructure:"api_key"`
	Priority int    `mapstructure:"priority"`
}
