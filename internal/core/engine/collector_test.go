package engine

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aptoseidon/aptoseidon/internal/core"
	"github.com/aptoseidon/aptoseidon/internal/core/source"
)

type stubPages struct {
	page *source.Page
	err  error
}

func (s *stubPages) Fetch(context.Context, string) (*source.Page, error) { return s.page, s.err }

type stubMarket struct {
	mu      sync.Mutex
	queries []string
	data    *core.MarketData
	err     error
}

func (s *stubMarket) Lookup(_ context.Context, q string) (*core.MarketData, error) {
	s.mu.Lock()
	s.queries = append(s.queries, q)
	s.mu.Unlock()
	return s.data, s.err
}

type stubChain struct {
	data *core.OnChainData
	err  error
}

func (s *stubChain) OnChainData(context.Context, string) (*core.OnChainData, error) { return s.data, s.err }

type stubSearch struct {
	mu   sync.Mutex
	reqs []*source.SearchRequest
	urls []string
	err  error
}

func (s *stubSearch) Search(_ context.Context, req *source.SearchRequest) (*source.SearchResponse, error) {
	s.mu.Lock()
	s.reqs = append(s.reqs, req)
	s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	resp := &source.SearchResponse{}
	for _, u := range s.urls {
		resp.Results = append(resp.Results, source.SearchResult{URL: u})
	}
	return resp, nil
}

type stubAge struct {
	age string
	err error
}

func (s *stubAge) Lookup(context.Context, string) (string, error) { return s.age, s.err }

func TestCollectURL(t *testing.T) {
	market := &stubMarket{data: &core.MarketData{Symbol: "THL", MarketCap: 100, Volume24h: 50}}
	search := &stubSearch{urls: []string{"https://reddit.com/r/thala", " "}}
	chain := &stubChain{data: &core.OnChainData{IsContract: true, ModulesCount: 3}}
	c := &Collector{
		Pages:  &stubPages{page: &source.Page{Title: "Thala Labs", Text: "Read the Whitepaper " + strings.Repeat("x", 4000)}},
		Market: market,
		Chain:  chain,
		Search: search,
		Age:    &stubAge{age: "3 years"},
	}

	b := c.Collect(context.Background(), core.NewInput("https://thala.fi", "DeFi Token"))

	assert.Equal(t, "Thala Labs", b.ProjectName)
	assert.Equal(t, "3 years", b.DomainAge)
	assert.True(t, b.DocsPresent)
	assert.Len(t, []rune(b.RawText), 3000)
	require.NotNil(t, b.MarketData)
	assert.Nil(t, b.OnChainData, "chain lookups only run for addresses")
	assert.False(t, b.ContractsFound)
	assert.Equal(t, []string{"https://reddit.com/r/thala"}, b.SocialSignals)
	assert.Empty(t, b.Unavailable)

	assert.Equal(t, []string{"Thala Labs"}, market.queries, "page title is the search term")
	require.Len(t, search.reqs, 1)
	assert.Equal(t, "Thala Labs crypto scam reddit twitter", search.reqs[0].Query)
	assert.Equal(t, 5, search.reqs[0].MaxResults)
}

func TestCollectAddress(t *testing.T) {
	market := &stubMarket{}
	c := &Collector{
		Pages:  &stubPages{err: errors.New("must not be called")},
		Market: market,
		Chain:  &stubChain{data: &core.OnChainData{IsContract: true, ModulesCount: 2}},
		Search: &stubSearch{},
		Age:    &stubAge{age: "must not be used"},
	}

	b := c.Collect(context.Background(), core.NewInput("0xABCDEF", "Wallet"))

	assert.Equal(t, "0xABCDEF", b.ProjectName)
	assert.Equal(t, source.UnknownAge, b.DomainAge)
	assert.True(t, b.ContractsFound)
	require.NotNil(t, b.OnChainData)
	assert.Equal(t, 2, b.OnChainData.ModulesCount)
	assert.Empty(t, market.queries, "market data only for token or coin projects")
	assert.Equal(t, []string{}, b.SocialSignals)
}

func TestCollectDegradesFailures(t *testing.T) {
	market := &stubMarket{err: source.ErrThrottled}
	c := &Collector{
		Pages:  &stubPages{err: &source.StatusError{Source: source.WebScraperName, StatusCode: 503}},
		Market: market,
		Search: &stubSearch{err: errors.New("search down")},
		Age:    &stubAge{err: source.ErrNotFound},
	}

	b := c.Collect(context.Background(), core.NewInput("https://ghost.example/", "Coin"))

	assert.Equal(t, FailedProjectName, b.ProjectName)
	assert.Equal(t, []string{"https://ghost.example/"}, market.queries, "searches keep the raw url")
	assert.Empty(t, b.RawText)
	assert.False(t, b.DocsPresent)
	assert.Nil(t, b.MarketData)
	assert.Equal(t, source.UnknownAge, b.DomainAge)
	assert.Equal(t, []string{}, b.SocialSignals)
	assert.ElementsMatch(t, []string{source.WebScraperName, source.CoinGeckoName, source.SearchName, source.RDAPName}, b.Unavailable)
}

func TestCollectTruncatesName(t *testing.T) {
	c := &Collector{}
	b := c.Collect(context.Background(), core.NewInput(strings.Repeat("n", 80), ""))
	assert.Len(t, b.ProjectName, 50)
	assert.False(t, b.HasAnyEvidence())
}

func TestCollectWithHTTPSources(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/site":
			_, _ = w.Write([]byte(`<html><head><title>Pontem</title></head><body><nav>menu</nav><p>Pontem docs</p><script>var x;</script></body></html>`))
		case "/cg/search":
			assert.Equal(t, "Pontem", r.URL.Query().Get("query"))
			_, _ = w.Write([]byte(`{"coins":[{"id":"pontem"}]}`))
		case "/cg/coins/pontem":
			_, _ = w.Write([]byte(`{"id":"pontem","symbol":"pont","market_data":{"market_cap":{"usd":1000},"total_volume":{"usd":5}}}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	transport := source.NewHTTP(5*time.Second, "", nil)
	c := &Collector{
		Pages:  &source.PageFetcher{HTTP: transport},
		Market: &source.CoinGecko{HTTP: transport, BaseURL: server.URL + "/cg"},
	}

	b := c.Collect(context.Background(), core.NewInput(server.URL+"/site", "Token"))

	assert.Equal(t, "Pontem", b.ProjectName)
	assert.True(t, b.DocsPresent)
	assert.NotContains(t, b.RawText, "menu")
	assert.NotContains(t, b.RawText, "var x")
	require.NotNil(t, b.MarketData)
	assert.Equal(t, "PONT", b.MarketData.Symbol)
}

func TestContainsAny(t *testing.T) {
	assert.True(t, containsAny("Read our DOCS", []string{"docs"}))
	assert.False(t, containsAny("nothing here", []string{"docs", "whitepaper", ""}))
	assert.True(t, matchesAny("Meme Coin", []string{"token", "coin"}))
	assert.False(t, matchesAny("", []string{"token"}))
}
