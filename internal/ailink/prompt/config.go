package prompt

// Config describes a prompt definition loaded from YAML frontmatter.
type Config struct {
	Slug           string          `yaml:"slug" json:"slug"`
	Name           string          `yaml:"name,omitempty" json:"name,omitempty"`
	Description    string          `yaml:"description,omitempty" json:"description,omitempty"`
	Version        string          `yaml:"version,omitempty" json:"version,omitempty"`
	SystemTemplate string          `yaml:"system_template,omitempty" json:"system_template,omitempty"`
	Response       ResponseOptions `yaml:"response,omitempty" json:"response,omitempty"`
	ProviderHints  map[string]any  `yaml:"provider_hints,omitempty" json:"provider_hints,omitempty"`
}

// ResponseOptions controls how the completion is requested.
type ResponseOptions struct {
	// Format is "json" or "text".
	Format      string   `yaml:"format,omitempty" json:"format,omitempty"`
	Temperature *float64 `yaml:"temperature,omitempty" json:"temperature,omitempty"`
	MaxTokens   *int     `yaml:"max_tokens,omitempty" json:"max_tokens,omitempty"`
}

// Prompt wraps a validated prompt configuration with its source.
type Prompt struct {
	Config Config
	Source string
}

// JSON reports whether the prompt expects a JSON object response.
func (p *Prompt) JSON() bool {
	return p != nil && p.Config.Response.Format == "json"
}
