package engine

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/aptoseidon/aptoseidon/internal/core"
	"github.com/aptoseidon/aptoseidon/internal/core/source"
	"github.com/aptoseidon/aptoseidon/internal/metrics"
	"github.com/aptoseidon/aptoseidon/internal/observability"
)

// PageSource fetches and extracts a project web page.
type PageSource interface {
	Fetch(ctx context.Context, rawURL string) (*source.Page, error)
}

// MarketSource resolves a search term to a market-data record. A nil record
// with a nil error means no match.
type MarketSource interface {
	Lookup(ctx context.Context, query string) (*core.MarketData, error)
}

// ChainSource summarizes the modules deployed at an address.
type ChainSource interface {
	OnChainData(ctx context.Context, address string) (*core.OnChainData, error)
}

// AgeSource reports the registration age of a URL's domain.
type AgeSource interface {
	Lookup(ctx context.Context, rawURL string) (string, error)
}

// FailedProjectName names a URL project whose page could not be fetched.
const FailedProjectName = "Analysis Failed"

// CollectorOptions bound what the collector keeps.
type CollectorOptions struct {
	NameLimit      int
	TextLimit      int
	DocMarkers     []string
	TokenTypes     []string
	SearchLimit    int
	SearchKeywords []string
}

// DefaultCollectorOptions mirrors the pipeline defaults.
func DefaultCollectorOptions() CollectorOptions {
	return CollectorOptions{
		NameLimit:   50,
		TextLimit:   3000,
		DocMarkers:  []string{"docs", "whitepaper"},
		TokenTypes:  []string{"token", "coin"},
		SearchLimit: 5,
	}
}

// Collector gathers the evidence bundle for one input. Any nil source is
// skipped. Source failures degrade the matching field and are never returned.
type Collector struct {
	Pages  PageSource
	Market MarketSource
	Chain  ChainSource
	Search source.Searcher
	Age    AgeSource

	Options CollectorOptions
	Logger  observability.Logger
}

type collection struct {
	mu          sync.Mutex
	unavailable []string
}

func (c *collection) fail(name string) {
	c.mu.Lock()
	c.unavailable = append(c.unavailable, name)
	c.mu.Unlock()
}

// Collect runs every applicable fetch and waits for all of them. The page is
// fetched first because its title is the search term for market and social
// lookups; chain and domain-age lookups start immediately.
func (c *Collector) Collect(ctx context.Context, in core.Input) *core.EvidenceBundle {
	if ctx == nil {
		ctx = context.Background()
	}
	opts := c.options()
	logger := c.logger()

	var (
		wg          sync.WaitGroup
		state       collection
		onChain     *core.OnChainData
		market      *core.MarketData
		domainAge   = source.UnknownAge
		socialLinks = []string{}
	)
	degrade := func(msg, name string, err error) {
		logger.Warn(msg, zap.String("source", name), zap.String("input", in.Raw), zap.String("kind", string(in.Kind)), zap.Error(err))
		state.fail(name)
	}

	if in.Kind == core.InputKindAddress && c.Chain != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			data, err := timed(source.AptosName, func() (*core.OnChainData, error) {
				return c.Chain.OnChainData(ctx, in.Raw)
			})
			if err != nil {
				degrade("on-chain lookup failed", source.AptosName, err)
				return
			}
			onChain = data
		}()
	}

	if in.Kind == core.InputKindURL && c.Age != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			age, err := timed(source.RDAPName, func() (string, error) {
				return c.Age.Lookup(ctx, in.Raw)
			})
			if err != nil {
				degrade("domain age lookup failed", source.RDAPName, err)
				return
			}
			domainAge = age
		}()
	}

	name, searchTerm, text := in.Raw, in.Raw, ""
	if in.Kind == core.InputKindURL && c.Pages != nil {
		page, err := timed(source.WebScraperName, func() (*source.Page, error) {
			return c.Pages.Fetch(ctx, in.Raw)
		})
		if err != nil {
			degrade("page fetch failed", source.WebScraperName, err)
			name = FailedProjectName
		} else {
			text = page.Text
			if title := strings.TrimSpace(page.Title); title != "" {
				name, searchTerm = title, title
			}
		}
	}

	if c.Market != nil && matchesAny(in.ProjectType, opts.TokenTypes) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			data, err := timed(source.CoinGeckoName, func() (*core.MarketData, error) {
				return c.Market.Lookup(ctx, searchTerm)
			})
			if err != nil {
				degrade("market lookup failed", source.CoinGeckoName, err)
				return
			}
			market = data
		}()
	}

	if c.Search != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			req := &source.SearchRequest{
				Query:      source.SocialQuery(searchTerm, opts.SearchKeywords),
				Topic:      "general",
				MaxResults: opts.SearchLimit,
			}
			resp, err := timed(source.SearchName, func() (*source.SearchResponse, error) {
				return c.Search.Search(ctx, req)
			})
			if err != nil {
				degrade("social search failed", source.SearchName, err)
				return
			}
			if urls := resp.URLs(); len(urls) > 0 {
				socialLinks = urls
			}
		}()
	}

	wg.Wait()

	bundle := &core.EvidenceBundle{
		Input:         in,
		ProjectName:   core.Truncate(name, opts.NameLimit),
		DomainAge:     domainAge,
		DocsPresent:   containsAny(text, opts.DocMarkers),
		RawText:       core.Truncate(text, opts.TextLimit),
		MarketData:    market,
		OnChainData:   onChain,
		SocialSignals: socialLinks,
		Unavailable:   state.unavailable,
	}
	if onChain != nil {
		bundle.ContractsFound = onChain.IsContract
	}

	logger.Debug("evidence collected",
		zap.String("input", in.Raw),
		zap.Bool("docs_present", bundle.DocsPresent),
		zap.Bool("contracts_found", bundle.ContractsFound),
		zap.Bool("market_data", market != nil),
		zap.Int("social_signals", len(socialLinks)),
		zap.Strings("unavailable", bundle.Unavailable))
	return bundle
}

func (c *Collector) options() CollectorOptions {
	opts := c.Options
	defaults := DefaultCollectorOptions()
	if opts.NameLimit <= 0 {
		opts.NameLimit = defaults.NameLimit
	}
	if opts.TextLimit <= 0 {
		opts.TextLimit = defaults.TextLimit
	}
	if opts.DocMarkers == nil {
		opts.DocMarkers = defaults.DocMarkers
	}
	if opts.TokenTypes == nil {
		opts.TokenTypes = defaults.TokenTypes
	}
	if opts.SearchLimit <= 0 {
		opts.SearchLimit = defaults.SearchLimit
	}
	return opts
}

func (c *Collector) logger() observability.Logger {
	if c.Logger == nil {
		return observability.Nop()
	}
	return c.Logger
}

// timed runs one source call and records its outcome and latency.
func timed[T any](name string, fn func() (T, error)) (T, error) {
	start := time.Now()
	v, err := fn()
	metrics.RecordSourceFetch(name, err == nil, time.Since(start))
	return v, err
}

// containsAny is a case-insensitive substring test.
func containsAny(text string, markers []string) bool {
	lower := strings.ToLower(text)
	for _, m := range markers {
		m = strings.ToLower(strings.TrimSpace(m))
		if m != "" && strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

func matchesAny(projectType string, types []string) bool {
	return containsAny(projectType, types)
}
