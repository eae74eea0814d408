package marketdata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rwerner/sourcing-radar/pkg/config"
	"github.com/rwerner/sourcing-radar/pkg/httputil"
	"github.com/rwerner/sourcing-radar/pkg/logger"
)

func TestFetchMetrics(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/products/B00ABC123/metrics", r.URL.Path)
		assert.Equal(t, "secret", r.URL.Query().Get("key"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"sku": "B00ABC123",
			"sales_rank": 42311,
			"new_price_cents": 4999,
			"used_price_cents": 3450,
			"payout_cents": 2511,
			"updated_at": "2026-08-25T06:00:00Z"
		}`))
	}))
	defer srv.Close()

	cfg := &config.Config{MarketData: config.MarketDataConfig{BaseURL: srv.URL, APIKey: "secret"}}
	client := NewClient(cfg, httputil.New(logger.NewNop(), time.Second).DisableRetry(), logger.NewNop())

	snap, err := client.FetchMetrics(context.Background(), "B00ABC123")
	require.NoError(t, err)

	assert.Equal(t, 42311, snap.SalesRank)
	assert.EqualValues(t, 4999, snap.NewPriceCents)
	assert.EqualValues(t, 3450, snap.UsedPriceCents)
	assert.EqualValues(t, 2511, snap.PayoutCents)
	assert.Equal(t, time.Date(2026, 8, 25, 6, 0, 0, 0, time.UTC), snap.SnapshotAt)
}

func TestFetchMetrics_NotConfigured(t *testing.T) {
	cfg := &config.Config{}
	client := NewClient(cfg, httputil.New(logger.NewNop(), time.Second), logger.NewNop())

	_, err := client.FetchMetrics(context.Background(), "B00ABC123")
	require.Error(t, err)
}

func TestFetchMetrics_BadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	cfg := &config.Config{MarketData: config.MarketDataConfig{BaseURL: srv.URL}}
	client := NewClient(cfg, httputil.New(logger.NewNop(), time.Second).DisableRetry(), logger.NewNop())

	_, err := client.FetchMetrics(context.Background(), "B00ABC123")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status code")
}
