package source

import (
	"context"
	"net/url"
	"strings"

	"github.com/aptoseidon/aptoseidon/internal/core"
)

const (
	// CoinGeckoName identifies the market-data provider in logs and rule attribution.
	CoinGeckoName = "CoinGecko"

	DefaultCoinGeckoURL = "https://api.coingecko.com/api/v3"

	coinRecordQuery = "localization=false&tickers=false&market_data=true&community_data=false&developer_data=false&sparkline=false"
)

// CoinGecko resolves a project name to a market record.
type CoinGecko struct {
	HTTP    HTTP
	BaseURL string
	APIKey  string
}

type coinSearchResponse struct {
	Coins []struct {
		ID     string `json:"id"`
		Symbol string `json:"symbol"`
		Name   string `json:"name"`
	} `json:"coins"`
}

type usdValue struct {
	USD float64 `json:"usd"`
}

type coinRecord struct {
	ID         string `json:"id"`
	Symbol     string `json:"symbol"`
	MarketData struct {
		CurrentPrice      usdValue `json:"current_price"`
		MarketCap         usdValue `json:"market_cap"`
		TotalVolume       usdValue `json:"total_volume"`
		PriceChange24h    float64  `json:"price_change_percentage_24h"`
		ATH               usdValue `json:"ath"`
		ATL               usdValue `json:"atl"`
		FullyDilutedValue usdValue `json:"fully_diluted_valuation"`
		TotalSupply       float64  `json:"total_supply"`
		CirculatingSupply float64  `json:"circulating_supply"`
	} `json:"market_data"`
}

func (c *CoinGecko) base() string {
	if c.BaseURL == "" {
		return DefaultCoinGeckoURL
	}
	return strings.TrimRight(c.BaseURL, "/")
}

func (c *CoinGecko) headers() map[string]string {
	if c.APIKey == "" {
		return nil
	}
	return map[string]string{"x-cg-demo-api-key": c.APIKey}
}

// SearchProject returns the id of the first search match, or "" when
// nothing matches.
func (c *CoinGecko) SearchProject(ctx context.Context, query string) (string, error) {
	var resp coinSearchResponse
	endpoint := c.base() + "/search?query=" + url.QueryEscape(query)
	if err := c.HTTP.getJSON(ctx, CoinGeckoName, endpoint, c.headers(), &resp); err != nil {
		return "", err
	}
	if len(resp.Coins) == 0 {
		return "", nil
	}
	return resp.Coins[0].ID, nil
}

// MarketRecord fetches the market record for a coin id.
func (c *CoinGecko) MarketRecord(ctx context.Context, id string) (*core.MarketData, error) {
	endpoint, err := joinURL(c.base(), "coins", id)
	if err != nil {
		return nil, err
	}

	var rec coinRecord
	if err := c.HTTP.getJSON(ctx, CoinGeckoName, endpoint+"?"+coinRecordQuery, c.headers(), &rec); err != nil {
		return nil, err
	}

	md := rec.MarketData
	return &core.MarketData{
		CoinGeckoID: rec.ID,
		Symbol:      strings.ToUpper(rec.Symbol),
		PriceUSD:    md.CurrentPrice.USD,
		MarketCap:   md.MarketCap.USD,
		Volume24h:   md.TotalVolume.USD,
		Change24h:   md.PriceChange24h,
		ATH:         md.ATH.USD,
		ATL:         md.ATL.USD,
		FDV:         md.FullyDilutedValue.USD,
		TotalSupply: md.TotalSupply,
		CircSupply:  md.CirculatingSupply,
	}, nil
}

// Lookup searches for query and fetches the first match. It returns nil
// without error when there is no match.
func (c *CoinGecko) Lookup(ctx context.Context, query string) (*core.MarketData, error) {
	id, err := c.SearchProject(ctx, query)
	if err != nil || id == "" {
		return nil, err
	}
	return c.MarketRecord(ctx, id)
}
