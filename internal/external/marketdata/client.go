// Package marketdata fetches price/rank metrics for catalog entries from the
// configured marketplace data API. Only the price refresh job talks to it;
// the matcher reads frozen snapshots from the database.
package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rwerner/sourcing-radar/internal/contracts"
	"github.com/rwerner/sourcing-radar/pkg/config"
	"github.com/rwerner/sourcing-radar/pkg/httputil"
	"github.com/rwerner/sourcing-radar/pkg/logger"
)

// Client calls the market data API.
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
	apiKey     string
}

// NewClient creates a market data client.
func NewClient(cfg *config.Config, httpClient *httputil.Client, log *logger.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     log.Component("marketdata"),
		baseURL:    cfg.MarketData.BaseURL,
		apiKey:     cfg.MarketData.APIKey,
	}
}

// metricsResponse mirrors the API's product metrics payload.
type metricsResponse struct {
	SKU            string `json:"sku"`
	SalesRank      int    `json:"sales_rank"`
	NewPriceCents  int64  `json:"new_price_cents"`
	UsedPriceCents int64  `json:"used_price_cents"`
	PayoutCents    int64  `json:"payout_cents"`
	UpdatedAt      string `json:"updated_at"`
}

// FetchMetrics pulls the current metrics for one SKU.
func (c *Client) FetchMetrics(ctx context.Context, sku string) (*contracts.MarketSnapshot, error) {
	if c.baseURL == "" {
		return nil, fmt.Errorf("market data source not configured")
	}

	fullURL := fmt.Sprintf("%s/v1/products/%s/metrics?key=%s",
		c.baseURL, url.PathEscape(sku), url.QueryEscape(c.apiKey))

	resp, err := c.httpClient.Get(ctx, fullURL)
	if err != nil {
		return nil, fmt.Errorf("metrics request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body failed: %w", err)
	}

	var mr metricsResponse
	if err := json.Unmarshal(body, &mr); err != nil {
		return nil, fmt.Errorf("parse metrics response: %w", err)
	}

	snapshotAt := time.Now().UTC()
	if t, err := time.Parse(time.RFC3339, mr.UpdatedAt); err == nil {
		snapshotAt = t
	}

	c.logger.WithFields(map[string]interface{}{
		"sku":  sku,
		"rank": mr.SalesRank,
	}).Debug("Fetched market metrics")

	return &contracts.MarketSnapshot{
		SalesRank:      mr.SalesRank,
		NewPriceCents:  mr.NewPriceCents,
		UsedPriceCents: mr.UsedPriceCents,
		PayoutCents:    mr.PayoutCents,
		SnapshotAt:     snapshotAt,
	}, nil
}
