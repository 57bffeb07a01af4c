package source

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePage = `<!doctype html>
<html>
<head><title> Thala Labs </title><style>body{color:red}</style></head>
<body>
  <nav><a href="/">Home</a> <a href="/docs">Docs link in nav</a></nav>
  <h1>Liquidity for Aptos</h1>
  <script>var tracking = "whitepaper";</script>
  <p>Read the   Whitepaper today.</p>
  <!-- hidden comment -->
  <footer>Copyright 2024</footer>
</body>
</html>`

func TestExtractVisibleText(t *testing.T) {
	title, text, err := ExtractVisibleText(strings.NewReader(samplePage))
	require.NoError(t, err)
	assert.Equal(t, "Thala Labs", title)
	assert.Equal(t, "Thala Labs Liquidity for Aptos Read the   Whitepaper today.", text)
	assert.NotContains(t, text, "Home")
	assert.NotContains(t, text, "tracking")
	assert.NotContains(t, text, "Copyright")
	assert.NotContains(t, text, "color")
	assert.NotContains(t, text, "hidden")
}

func TestPageFetcherFollowsRedirects(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/old", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/new", http.StatusMovedPermanently)
	})
	mux.HandleFunc("/new", func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte(samplePage))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	fetcher := &PageFetcher{HTTP: NewHTTP(0, "test-agent", nil)}
	page, err := fetcher.Fetch(context.Background(), server.URL+"/old")
	require.NoError(t, err)
	assert.Equal(t, server.URL+"/new", page.URL)
	assert.Equal(t, "Thala Labs", page.Title)
	assert.Contains(t, page.Text, "Whitepaper")
}

func TestPageFetcherNonSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	fetcher := &PageFetcher{HTTP: NewHTTP(0, "", nil)}
	_, err := fetcher.Fetch(context.Background(), server.URL)
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusForbidden, statusErr.StatusCode)
}
