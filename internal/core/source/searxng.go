package source

import (
	"context"
	"fmt"
	"net/url"
)

// SearXNG queries a SearXNG instance's JSON API.
type SearXNG struct {
	HTTP    HTTP
	BaseURL string
}

var _ Searcher = (*SearXNG)(nil)

type searxngResponse struct {
	Query   string `json:"query"`
	Results []struct {
		Title   string  `json:"title"`
		URL     string  `json:"url"`
		Content string  `json:"content"`
		Score   float64 `json:"score"`
	} `json:"results"`
}

func (c *SearXNG) Search(ctx context.Context, req *SearchRequest) (*SearchResponse, error) {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid searxng base url: %w", err)
	}
	u = u.JoinPath("search")

	q := u.Query()
	q.Set("q", req.Query)
	q.Set("format", "json")
	if req.Topic == "news" {
		q.Set("categories", "news")
	} else {
		q.Set("categories", "general")
	}
	u.RawQuery = q.Encode()

	var resp searxngResponse
	if err := c.HTTP.getJSON(ctx, "searxng", u.String(), nil, &resp); err != nil {
		return nil, err
	}

	out := &SearchResponse{}
	for _, r := range resp.Results {
		if req.MaxResults > 0 && len(out.Results) == req.MaxResults {
			break
		}
		out.Results = append(out.Results, SearchResult{Title: r.Title, URL: r.URL, Content: r.Content, Score: r.Score})
	}
	return out, nil
}
