package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// WebScraperName identifies page fetches in logs and rule attribution.
const WebScraperName = "WebScraper"

const defaultMaxPageBytes = 4 << 20

// Page is the visible content of a fetched web page.
type Page struct {
	URL        string
	StatusCode int
	Title      string
	Text       string
}

// PageFetcher downloads a project page and extracts its visible text.
// Pages are fetched without the rate limiter since every host differs.
type PageFetcher struct {
	HTTP     HTTP
	MaxBytes int64
}

// Fetch GETs rawURL, following redirects. Non-200 responses are errors.
func (f *PageFetcher) Fetch(ctx context.Context, rawURL string) (*Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: build request: %w", WebScraperName, err)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	transport := f.HTTP
	transport.Limiter = nil
	resp, err := transport.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", WebScraperName, err)
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(WebScraperName, resp)
	}

	limit := f.MaxBytes
	if limit <= 0 {
		limit = defaultMaxPageBytes
	}
	title, text, err := ExtractVisibleText(io.LimitReader(resp.Body, limit))
	if err != nil {
		return nil, fmt.Errorf("%s: parse html: %w", WebScraperName, err)
	}

	return &Page{
		URL:        resp.Request.URL.String(),
		StatusCode: resp.StatusCode,
		Title:      title,
		Text:       text,
	}, nil
}
