package source

import (
	"context"
	"fmt"
	"strings"
)

// Search provider identifiers.
const (
	SearchProviderSearXNG = "searxng"
	SearchProviderTavily  = "tavily"
	SearchProviderNone    = "none"

	// SearchName identifies social search in logs.
	SearchName = "Search"
)

// DefaultSearchKeywords steer the social query toward reputation signals.
var DefaultSearchKeywords = []string{"crypto", "scam", "reddit", "twitter"}

// Searcher runs a web search.
type Searcher interface {
	Search(ctx context.Context, req *SearchRequest) (*SearchResponse, error)
}

// SearchRequest is a provider-neutral search query.
type SearchRequest struct {
	Query      string
	Topic      string // "general" or "news"
	MaxResults int
}

// SearchResponse holds results in provider rank order.
type SearchResponse struct {
	Results []SearchResult
}

// SearchResult is one hit.
type SearchResult struct {
	Title   string
	URL     string
	Content string
	Score   float64
}

// URLs returns the result URLs, skipping blanks.
func (r *SearchResponse) URLs() []string {
	if r == nil {
		return nil
	}
	out := make([]string, 0, len(r.Results))
	for _, res := range r.Results {
		if u := strings.TrimSpace(res.URL); u != "" {
			out = append(out, u)
		}
	}
	return out
}

// SocialQuery appends the reputation keywords to term.
func SocialQuery(term string, keywords []string) string {
	if keywords == nil {
		keywords = DefaultSearchKeywords
	}
	parts := append([]string{strings.TrimSpace(term)}, keywords...)
	return strings.TrimSpace(strings.Join(parts, " "))
}

// SearcherConfig selects and configures a search provider.
type SearcherConfig struct {
	Provider string
	BaseURL  string
	APIKey   string
}

// NewSearcher builds the configured provider. Provider "none" (or empty)
// returns a nil Searcher and no error.
func NewSearcher(cfg SearcherConfig, transport HTTP) (Searcher, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", SearchProviderNone:
		return nil, nil
	case SearchProviderSearXNG:
		if cfg.BaseURL == "" {
			return nil, fmt.Errorf("searxng base url is missing")
		}
		return &SearXNG{HTTP: transport, BaseURL: cfg.BaseURL}, nil
	case SearchProviderTavily:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("tavily api key is missing")
		}
		return &Tavily{HTTP: transport, APIKey: cfg.APIKey, Endpoint: cfg.BaseURL}, nil
	default:
		return nil, fmt.Errorf("unknown search provider: %s", cfg.Provider)
	}
}
