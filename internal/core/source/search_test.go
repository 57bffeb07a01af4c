package source

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSocialQuery(t *testing.T) {
	assert.Equal(t, "Thala crypto scam reddit twitter", SocialQuery(" Thala ", nil))
	assert.Equal(t, "Thala rugpull", SocialQuery("Thala", []string{"rugpull"}))
	assert.Equal(t, "Thala", SocialQuery("Thala", []string{}))
}

func TestSearXNGSearch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		assert.Equal(t, "general", r.URL.Query().Get("categories"))
		assert.Equal(t, "thala crypto scam", r.URL.Query().Get("q"))
		_, _ = w.Write([]byte(`{"results":[
			{"title":"a","url":"https://reddit.com/r/a"},
			{"title":"b","url":"https://x.com/b"},
			{"title":"c","url":"https://c.example"}
		]}`))
	}))
	defer server.Close()

	searcher, err := NewSearcher(SearcherConfig{Provider: "searxng", BaseURL: server.URL}, NewHTTP(0, "", nil))
	require.NoError(t, err)

	resp, err := searcher.Search(context.Background(), &SearchRequest{Query: "thala crypto scam", MaxResults: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"https://reddit.com/r/a", "https://x.com/b"}, resp.URLs())
}

func TestTavilySearch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer tvly-key", r.Header.Get("Authorization"))
		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "basic", body["search_depth"])
		assert.Equal(t, "general", body["topic"])
		assert.EqualValues(t, 5, body["max_results"])
		_, _ = w.Write([]byte(`{"results":[{"url":"https://news.example/aptos","score":0.9},{"url":"  "}]}`))
	}))
	defer server.Close()

	searcher, err := NewSearcher(SearcherConfig{Provider: "tavily", APIKey: "tvly-key", BaseURL: server.URL}, NewHTTP(0, "", nil))
	require.NoError(t, err)

	resp, err := searcher.Search(context.Background(), &SearchRequest{Query: "aptos"})
	require.NoError(t, err)
	assert.Equal(t, []string{"https://news.example/aptos"}, resp.URLs())
}

func TestNewSearcher(t *testing.T) {
	s, err := NewSearcher(SearcherConfig{Provider: "none"}, HTTP{})
	require.NoError(t, err)
	assert.Nil(t, s)

	_, err = NewSearcher(SearcherConfig{Provider: "tavily"}, HTTP{})
	assert.ErrorContains(t, err, "api key")

	_, err = NewSearcher(SearcherConfig{Provider: "searxng"}, HTTP{})
	assert.ErrorContains(t, err, "base url")

	_, err = NewSearcher(SearcherConfig{Provider: "bing"}, HTTP{})
	assert.ErrorContains(t, err, "unknown search provider")
}
