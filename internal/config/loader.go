// Package config provides centralized configuration management for Aptoseidon.
// It layers built-in defaults, an optional YAML config file, environment
// variables and runtime overrides into a typed Config value.
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	gfconfig "github.com/fulmenhq/gofulmen/config"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/aptoseidon/aptoseidon/internal/appid"
)

// EnvVarSpec defines environment variable mappings for config fields
// following the pattern: {PREFIX}{NAME} maps to config path
type EnvVarSpec = gfconfig.EnvVarSpec

// Environment variable types
const (
	EnvString = gfconfig.EnvString
	EnvInt    = gfconfig.EnvInt
	EnvBool   = gfconfig.EnvBool
)

// Load builds a Config from defaults, the config file, environment variables
// and runtime overrides, in that order of precedence (lowest first).
//
// configFile may be empty, in which case the XDG config path and ./config are
// searched; a missing file there is not an error.
func Load(ctx context.Context, configFile string, runtimeOverrides ...map[string]any) (*Config, error) {
	identity, err := appid.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load app identity: %w", err)
	}
	prefix := identity.EnvPrefix
	if !strings.HasSuffix(prefix, "_") {
		prefix += "_"
	}

	v := viper.New()
	SetDefaults(v)

	if err := readConfigFile(v, configFile); err != nil {
		return nil, err
	}

	envOverrides, err := gfconfig.LoadEnvOverrides(getEnvSpecs(prefix))
	if err != nil {
		return nil, fmt.Errorf("failed to load environment overrides: %w", err)
	}
	if envOverrides == nil {
		envOverrides = map[string]any{}
	}
	applyAILinkDynamicEnvOverrides(prefix, envOverrides)

	if value := strings.TrimSpace(os.Getenv(prefix + "RATE_LIMIT_MARGIN")); value != "" {
		margin, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid rate limit margin: %w", err)
		}
		envOverrides["rate_limit_margin"] = margin
	}

	for _, layer := range append([]map[string]any{envOverrides}, runtimeOverrides...) {
		if len(layer) == 0 {
			continue
		}
		if err := v.MergeConfigMap(layer); err != nil {
			return nil, fmt.Errorf("failed to merge overrides: %w", err)
		}
	}

	cfg := &Config{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
			mapstructure.StringToFloat64HookFunc(),
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}

	if err := decoder.Decode(v.AllSettings()); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if strings.EqualFold(cfg.Store.Driver, "libsql") &&
		strings.TrimSpace(cfg.Store.URL) == "" && strings.TrimSpace(cfg.Store.Path) == "" {
		cfg.Store.Path = DefaultStorePath()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func readConfigFile(v *viper.Viper, configFile string) error {
	v.SetConfigType("yaml")

	if strings.TrimSpace(configFile) != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", configFile, err)
		}
		return nil
	}

	for _, candidate := range candidateConfigPaths() {
		if _, err := os.Stat(candidate); err != nil {
			continue
		}
		v.SetConfigFile(candidate)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", candidate, err)
		}
		return nil
	}
	return nil
}

func candidateConfigPaths() []string {
	paths := []string{}
	if p := DefaultConfigPath(); p != "" {
		paths = append(paths, p)
	}
	return append(paths, filepath.Join("config", "config.yaml"))
}

// Validate reports configuration that would make the pipeline misbehave.
func (c *Config) Validate() error {
	var errs []error

	switch strings.ToLower(strings.TrimSpace(c.Store.Driver)) {
	case "libsql":
	case "postgres":
		if strings.TrimSpace(c.Store.URL) == "" {
			errs = append(errs, errors.New("store.url is required for the postgres driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported store.driver %q", c.Store.Driver))
	}

	switch strings.ToLower(strings.TrimSpace(c.Sources.Search.Provider)) {
	case "", "none", "searxng", "tavily":
	default:
		errs = append(errs, fmt.Errorf("unsupported sources.search.provider %q", c.Sources.Search.Provider))
	}

	if c.Pipeline.NameLimit <= 0 || c.Pipeline.TextLimit <= 0 || c.Pipeline.AgentContextLimit <= 0 {
		errs = append(errs, errors.New("pipeline limits must be positive"))
	}
	if strings.TrimSpace(c.Payment.Recipient) == "" {
		errs = append(errs, errors.New("payment.recipient is required"))
	}
	if c.Payment.MinimumOctas == 0 {
		errs = append(errs, errors.New("payment.minimum_octas must be positive"))
	}
	if c.Payment.DevBypassEnabled && strings.TrimSpace(c.Payment.BypassToken) == "" {
		errs = append(errs, errors.New("payment.bypass_token must be set when dev_bypass_enabled is true"))
	}

	return errors.Join(errs...)
}

// getEnvSpecs returns environment variable specifications for config mapping
// Maps {PREFIX}{NAME} environment variables to config paths
func getEnvSpecs(prefix string) []EnvVarSpec {
	return []EnvVarSpec{
		// Server config
		{Name: prefix + "HOST", Path: []string{"server", "host"}, Type: EnvString},
		{Name: prefix + "PORT", Path: []string{"server", "port"}, Type: EnvInt},
		// Duration fields are parsed as strings and converted by mapstructure decode hook
		{Name: prefix + "READ_TIMEOUT", Path: []string{"server", "read_timeout"}, Type: EnvString},
		{Name: prefix + "WRITE_TIMEOUT", Path: []string{"server", "write_timeout"}, Type: EnvString},
		{Name: prefix + "SHUTDOWN_TIMEOUT", Path: []string{"server", "shutdown_timeout"}, Type: EnvString},
		{Name: prefix + "ADMIN_TOKEN", Path: []string{"server", "admin_token"}, Type: EnvString},

		{Name: prefix + "LOG_LEVEL", Path: []string{"logging", "level"}, Type: EnvString},
		{Name: prefix + "LOG_PROFILE", Path: []string{"logging", "profile"}, Type: EnvString},

		// Store config
		{Name: prefix + "DB_DRIVER", Path: []string{"store", "driver"}, Type: EnvString},
		{Name: prefix + "DB_PATH", Path: []string{"store", "path"}, Type: EnvString},
		{Name: prefix + "DB_URL", Path: []string{"store", "url"}, Type: EnvString},
		{Name: prefix + "DB_AUTH_TOKEN", Path: []string{"store", "auth_token"}, Type: EnvString},

		// Sources
		{Name: prefix + "HTTP_TIMEOUT", Path: []string{"sources", "http_timeout"}, Type: EnvString},
		{Name: prefix + "COINGECKO_BASE_URL", Path: []string{"sources", "coingecko", "base_url"}, Type: EnvString},
		{Name: prefix + "COINGECKO_API_KEY", Path: []string{"sources", "coingecko", "api_key"}, Type: EnvString},
		{Name: prefix + "APTOS_NODE_URL", Path: []string{"sources", "aptos", "node_url"}, Type: EnvString},
		{Name: prefix + "APTOS_RESERVED_PREFIXES", Path: []string{"sources", "aptos", "reserved_prefixes"}, Type: EnvString},
		{Name: prefix + "SEARCH_PROVIDER", Path: []string{"sources", "search", "provider"}, Type: EnvString},
		{Name: prefix + "SEARCH_BASE_URL", Path: []string{"sources", "search", "base_url"}, Type: EnvString},
		{Name: prefix + "SEARCH_API_KEY", Path: []string{"sources", "search", "api_key"}, Type: EnvString},
		{Name: prefix + "SEARCH_LIMIT", Path: []string{"sources", "search", "limit"}, Type: EnvInt},
		{Name: prefix + "RDAP_ENABLED", Path: []string{"sources", "rdap", "enabled"}, Type: EnvBool},

		// Pipeline
		{Name: prefix + "PIPELINE_RULES", Path: []string{"pipeline", "rules"}, Type: EnvString},

		// Payment
		{Name: prefix + "PAYMENT_NODE_URL", Path: []string{"payment", "node_url"}, Type: EnvString},
		{Name: prefix + "PAYMENT_RECIPIENT", Path: []string{"payment", "recipient"}, Type: EnvString},
		{Name: prefix + "PAYMENT_MINIMUM_OCTAS", Path: []string{"payment", "minimum_octas"}, Type: EnvInt},
		{Name: prefix + "PAYMENT_DEV_BYPASS_ENABLED", Path: []string{"payment", "dev_bypass_enabled"}, Type: EnvBool},
		{Name: prefix + "PAYMENT_BYPASS_TOKEN", Path: []string{"payment", "bypass_token"}, Type: EnvString},

		// AILink config
		{Name: prefix + "AILINK_DEFAULT_PROVIDER", Path: []string{"ailink", "default_provider"}, Type: EnvString},
		{Name: prefix + "AILINK_DEFAULT_TIMEOUT", Path: []string{"ailink", "default_timeout"}, Type: EnvString},
		{Name: prefix + "AILINK_PROMPTS_DIR", Path: []string{"ailink", "prompts_dir"}, Type: EnvString},
		{Name: prefix + "AILINK_INPUT_BUDGET", Path: []string{"ailink", "input_budget"}, Type: EnvInt},

		// Metrics config
		{Name: prefix + "METRICS_ENABLED", Path: []string{"metrics", "enabled"}, Type: EnvBool},
		{Name: prefix + "METRICS_PORT", Path: []string{"metrics", "port"}, Type: EnvInt},

		{Name: prefix + "HEALTH_ENABLED", Path: []string{"health", "enabled"}, Type: EnvBool},
		{Name: prefix + "DEBUG_ENABLED", Path: []string{"debug", "enabled"}, Type: EnvBool},
	}
}

// DefaultConfigPath returns the XDG-compliant path to the user config file.
func DefaultConfigPath() string {
	configDir := gfconfig.GetAppConfigDir(appid.Default().ConfigName)
	if strings.TrimSpace(configDir) == "" {
		return ""
	}
	return filepath.Join(configDir, "config.yaml")
}

// DefaultDataDir returns the XDG-compliant data directory for the app.
func DefaultDataDir() string {
	return gfconfig.GetAppDataDir(appid.Default().ConfigName)
}

// DefaultStorePath returns the XDG-compliant path to the database file.
func DefaultStorePath() string {
	identity := appid.Default()
	dataDir := DefaultDataDir()
	if strings.TrimSpace(dataDir) == "" {
		return "./" + identity.BinaryName + ".db"
	}
	return filepath.Join(dataDir, identity.BinaryName+".db")
}

func applyAILinkDynamicEnvOverrides(prefix string, envOverrides map[string]any) {
	providerPrefix := prefix + "AILINK_PROVIDERS_"
	routingPrefix := prefix + "AILINK_ROUTING_"

	for _, item := range os.Environ() {
		key, value, ok := strings.Cut(item, "=")
		if !ok || strings.TrimSpace(value) == "" {
			continue
		}

		switch {
		case strings.HasPrefix(key, providerPrefix):
			applyAILinkProviderOverride(envOverrides, key[len(providerPrefix):], value)
		case strings.HasPrefix(key, routingPrefix):
			applyAILinkRoutingOverride(envOverrides, key[len(routingPrefix):], value)
		}
	}
}

// applyAILinkRoutingOverride maps AILINK_ROUTING_<AGENT>=<provider> so each
// agent role can be pointed at a different provider instance.
func applyAILinkRoutingOverride(envOverrides map[string]any, rawRole string, providerID string) {
	role := toSlug(rawRole)
	providerID = strings.TrimSpace(providerID)
	if role == "" || providerID == "" {
		return
	}

	routing := ensureMap(ensureMap(envOverrides, "ailink"), "routing")
	routing[role] = providerID
}

func applyAILinkProviderOverride(envOverrides map[string]any, raw string, value string) {
	parts := strings.Split(strings.TrimSpace(raw), "_")
	if len(parts) < 2 {
		return
	}

	section := -1
	for i, part := range parts {
		switch part {
		case "ENABLED", "AI", "BASE", "MODELS", "CREDENTIALS", "DEFAULT", "SELECTION":
			section = i
		}
		if section != -1 {
			break
		}
	}
	if section <= 0 {
		return
	}

	providerID := strings.ToLower(strings.Join(parts[:section], "-"))
	providers := ensureMap(ensureMap(envOverrides, "ailink"), "providers")
	provider := ensureMap(providers, providerID)
	value = strings.TrimSpace(value)

	rest := parts[section:]
	switch {
	case len(rest) == 1 && rest[0] == "ENABLED":
		provider["enabled"] = strings.EqualFold(value, "true")
	case len(rest) == 2 && rest[0] == "AI" && rest[1] == "PROVIDER":
		provider["ai_provider"] = strings.ToLower(value)
	case len(rest) == 2 && rest[0] == "DEFAULT" && rest[1] == "CREDENTIAL":
		provider["default_credential"] = value
	case len(rest) == 2 && rest[0] == "SELECTION" && rest[1] == "POLICY":
		provider["selection_policy"] = strings.ToLower(value)
	case len(rest) == 2 && rest[0] == "BASE" && rest[1] == "URL":
		provider["base_url"] = value
	case len(rest) >= 2 && rest[0] == "MODELS":
		models := ensureMap(provider, "models")
		models[strings.ToLower(strings.Join(rest[1:], "_"))] = value
	case len(rest) >= 3 && rest[0] == "CREDENTIALS":
		idx, err := strconv.Atoi(rest[1])
		if err != nil || idx < 0 {
			return
		}
		field := strings.ToLower(strings.Join(rest[2:], "_"))
		creds := ensureSlice(provider, "credentials", idx+1)
		cred := ensureSliceMap(creds, idx)
		switch field {
		case "priority":
			if parsed, err := strconv.Atoi(value); err == nil {
				cred[field] = parsed
			}
		case "enabled":
			cred[field] = strings.EqualFold(value, "true")
		default:
			cred[field] = value
		}
	}
}

func ensureMap(parent map[string]any, key string) map[string]any {
	if parent == nil {
		return map[string]any{}
	}
	if existing, ok := parent[key]; ok {
		if typed, ok := existing.(map[string]any); ok {
			return typed
		}
	}
	next := map[string]any{}
	parent[key] = next
	return next
}

func ensureSlice(parent map[string]any, key string, length int) []any {
	var existing []any
	if raw, ok := parent[key]; ok {
		existing, _ = raw.([]any)
	}
	for len(existing) < length {
		existing = append(existing, map[string]any{})
	}
	parent[key] = existing
	return existing
}

func ensureSliceMap(slice []any, idx int) map[string]any {
	if idx < 0 || idx >= len(slice) {
		return map[string]any{}
	}
	if typed, ok := slice[idx].(map[string]any); ok {
		return typed
	}
	m := map[string]any{}
	slice[idx] = m
	return m
}

func toSlug(raw string) string {
	parts := strings.Split(strings.TrimSpace(raw), "_")
	clean := make([]string, 0, len(parts))
	for _, part := range parts {
		p := strings.ToLower(strings.TrimSpace(part))
		if p == "" {
			continue
		}
		clean = append(clean, p)
	}
	return strings.Join(clean, "-")
}
