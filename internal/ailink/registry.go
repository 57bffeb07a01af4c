package ailink

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aptoseidon/aptoseidon/internal/ailink/driver"
	"github.com/aptoseidon/aptoseidon/internal/ailink/driver/eino"
	"github.com/aptoseidon/aptoseidon/internal/ailink/driver/gemini"
	"github.com/aptoseidon/aptoseidon/internal/ailink/driver/openai"
	"github.com/aptoseidon/aptoseidon/internal/ailink/prompt"
)

// driverFactory builds a driver and reports the endpoint it will call.
type driverFactory func(baseURL, apiKey string, timeout time.Duration) (driver.Driver, string)

var driverFactories = map[string]driverFactory{
	"openai": func(baseURL, apiKey string, timeout time.Duration) (driver.Driver, string) {
		c := openai.NewClient(baseURL, apiKey)
		c.Timeout = timeout
		return c, c.BaseURL
	},
	"eino": func(baseURL, apiKey string, timeout time.Duration) (driver.Driver, string) {
		c := eino.NewClient(baseURL, apiKey)
		c.Timeout = timeout
		return c, c.BaseURL
	},
	"gemini": func(baseURL, apiKey string, timeout time.Duration) (driver.Driver, string) {
		c := gemini.NewClient(baseURL, apiKey)
		c.Timeout = timeout
		return c, c.BaseURL
	},
}

// Registry maps an agent's prompt slug to a provider, credential, driver and
// model. Drivers are built once per provider and credential.
type Registry struct {
	cfg Config

	mu      sync.Mutex
	drivers map[string]cachedDriver
	cursor  map[string]int
}

type cachedDriver struct {
	drv     driver.Driver
	baseURL string
}

type ResolvedProvider struct {
	ProviderID string
	Provider   ProviderInstanceConfig
	Credential CredentialConfig
	Driver     driver.Driver
	Model      string
	BaseURL    string
}

func NewRegistry(cfg Config) *Registry {
	return &Registry{cfg: cfg}
}

// Resolve picks the provider for role, usually the prompt slug.
func (r *Registry) Resolve(role string, promptDef *prompt.Prompt, modelOverride string) (*ResolvedProvider, error) {
	if r == nil {
		return nil, fmt.Errorf("ailink registry not configured")
	}

	providerID, providerCfg, err := r.providerFor(strings.TrimSpace(role))
	if err != nil {
		return nil, err
	}

	cred, credKey, err := selectCredential(providerCfg, func(group string, n int) int {
		return r.rrIndex(providerID+":"+group, n)
	})
	if err != nil {
		return nil, err
	}

	cached, err := r.driver(providerID, providerCfg, cred, credKey)
	if err != nil {
		return nil, err
	}

	model, err := resolveModel(providerCfg, promptDef, modelOverride, modelTier(promptDef))
	if err != nil {
		return nil, err
	}

	return &ResolvedProvider{
		ProviderID: providerID,
		Provider:   providerCfg,
		Credential: cred,
		Driver:     cached.drv,
		Model:      model,
		BaseURL:    strings.TrimSpace(cached.baseURL),
	}, nil
}

// providerFor applies, in order: explicit routing, a provider claiming the
// role, the default provider, the only enabled provider.
func (r *Registry) providerFor(role string) (string, ProviderInstanceConfig, error) {
	if role != "" {
		if id := strings.TrimSpace(r.cfg.Routing[role]); id != "" {
			return r.enabledProvider(id, fmt.Sprintf("for role %q", role))
		}
		for _, id := range r.enabledIDs() {
			if contains(r.cfg.Providers[id].Roles, role) {
				return id, r.cfg.Providers[id], nil
			}
		}
	}

	if id := strings.TrimSpace(r.cfg.DefaultProvider); id != "" {
		return r.enabledProvider(id, "as default")
	}

	ids := r.enabledIDs()
	switch len(ids) {
	case 0:
		return "", ProviderInstanceConfig{}, fmt.Errorf("no enabled providers configured")
	case 1:
		return ids[0], r.cfg.Providers[ids[0]], nil
	default:
		return "", ProviderInstanceConfig{}, fmt.Errorf("no provider routing configured")
	}
}

func (r *Registry) enabledProvider(id, use string) (string, ProviderInstanceConfig, error) {
	cfg, ok := r.cfg.Providers[id]
	if !ok {
		return "", ProviderInstanceConfig{}, fmt.Errorf("unknown provider %q %s", id, use)
	}
	if !cfg.Enabled {
		return "", ProviderInstanceConfig{}, fmt.Errorf("provider %q is disabled", id)
	}
	return id, cfg, nil
}

// enabledIDs lists enabled providers in name order so role matching is
// deterministic.
func (r *Registry) enabledIDs() []string {
	ids := make([]string, 0, len(r.cfg.Providers))
	for id, cfg := range r.cfg.Providers {
		if cfg.Enabled {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// selectCredential returns a usable credential and its cache key. When none
// has a key the first is returned so the driver reports the missing key.
func selectCredential(cfg ProviderInstanceConfig, next func(group string, n int) int) (CredentialConfig, string, error) {
	if len(cfg.Credentials) == 0 {
		return CredentialConfig{}, "", fmt.Errorf("no credentials configured")
	}

	usable := make([]CredentialConfig, 0, len(cfg.Credentials))
	for _, cred := range cfg.Credentials {
		labelled := strings.TrimSpace(cred.Label) != ""
		if (labelled && !cred.Enabled) || strings.TrimSpace(cred.APIKey) == "" {
			continue
		}
		usable = append(usable, cred)
	}
	if len(usable) == 0 {
		return cfg.Credentials[0], credentialKey(cfg.Credentials[0], "0"), nil
	}

	if want := strings.TrimSpace(cfg.DefaultCredential); want != "" {
		for _, cred := range usable {
			if strings.EqualFold(strings.TrimSpace(cred.Label), want) {
				return cred, strings.TrimSpace(cred.Label), nil
			}
		}
	}

	top := topPriority(usable)
	group := strconv.Itoa(top[0].Priority)
	pick := 0
	if strings.EqualFold(strings.TrimSpace(cfg.SelectionPolicy), "round_robin") && next != nil {
		pick = next(group, len(top))
	}
	return top[pick], credentialKey(top[pick], "p"+group), nil
}

func topPriority(creds []CredentialConfig) []CredentialConfig {
	best := creds[0].Priority
	for _, cred := range creds[1:] {
		best = max(best, cred.Priority)
	}
	top := make([]CredentialConfig, 0, len(creds))
	for _, cred := range creds {
		if cred.Priority == best {
			top = append(top, cred)
		}
	}
	return top
}

func credentialKey(cred CredentialConfig, fallback string) string {
	if label := strings.TrimSpace(cred.Label); label != "" {
		return label
	}
	return fallback
}

func (r *Registry) driver(providerID string, cfg ProviderInstanceConfig, cred CredentialConfig, credKey string) (cachedDriver, error) {
	kind := strings.ToLower(strings.TrimSpace(cfg.AIProvider))
	factory, ok := driverFactories[kind]
	if !ok {
		if kind == "" {
			kind = "(unset)"
		}
		return cachedDriver{}, fmt.Errorf("unsupported ai_provider %q for provider %q", kind, providerID)
	}

	key := providerID
	if credKey != "" {
		key += ":" + credKey
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if d, ok := r.drivers[key]; ok {
		return d, nil
	}
	if r.drivers == nil {
		r.drivers = map[string]cachedDriver{}
	}
	drv, baseURL := factory(cfg.BaseURL, cred.APIKey, r.cfg.DefaultTimeout)
	if baseURL == "" {
		baseURL = cfg.BaseURL
	}
	d := cachedDriver{drv: drv, baseURL: baseURL}
	r.drivers[key] = d
	return d, nil
}

// resolveModel picks, in order: the explicit override, the provider's model
// for the prompt's tier, the prompt's preferred models, the provider default.
func resolveModel(cfg ProviderInstanceConfig, promptDef *prompt.Prompt, override, tier string) (string, error) {
	candidates := []string{override}
	if tier = strings.TrimSpace(tier); tier != "" {
		candidates = append(candidates, cfg.Models[tier])
	}
	candidates = append(candidates, preferredModels(promptDef)...)
	candidates = append(candidates, cfg.Models["default"])

	for _, model := range candidates {
		if model = strings.TrimSpace(model); model != "" {
			return model, nil
		}
	}
	return "", fmt.Errorf("model not configured")
}

func modelTier(promptDef *prompt.Prompt) string {
	if promptDef == nil {
		return ""
	}
	tier, _ := promptDef.Config.ProviderHints["model_tier"].(string)
	return tier
}

func preferredModels(promptDef *prompt.Prompt) []string {
	if promptDef == nil {
		return nil
	}
	switch v := promptDef.Config.ProviderHints["preferred_models"].(type) {
	case []string:
		return v
	case []any:
		models := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				models = append(models, s)
			}
		}
		return models
	case string:
		return []string{v}
	default:
		return nil
	}
}

// rrIndex advances the round-robin cursor for key.
func (r *Registry) rrIndex(key string, n int) int {
	if r == nil || n <= 1 {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cursor == nil {
		r.cursor = map[string]int{}
	}
	idx := r.cursor[key] % n
	r.cursor[key]++
	return idx
}

func contains(values []string, needle string) bool {
	needle = strings.TrimSpace(needle)
	if needle == "" {
		return false
	}
	for _, v := range values {
		if strings.EqualFold(strings.TrimSpace(v), needle) {
			return true
		}
	}
	return false
}
