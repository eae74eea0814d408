// Package kleinanzeigen scrapes the kleinanzeigen.de classifieds site. The
// client consumes server-rendered HTML; there is no browser automation. Block
// pages and errors surface as result variants, never as panics, so the
// scheduler can branch on them.
package kleinanzeigen

import (
	"context"
	"io"
	"net/http"
	"strings"

	"golang.org/x/time/rate"

	"github.com/rwerner/sourcing-radar/internal/contracts"
	"github.com/rwerner/sourcing-radar/pkg/config"
	"github.com/rwerner/sourcing-radar/pkg/httputil"
	"github.com/rwerner/sourcing-radar/pkg/logger"
)

// PlatformKey identifies this adapter in candidates and runs.
const PlatformKey = "kleinanzeigen"

// Client implements contracts.MarketplaceClient.
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string

	// Local limiter on top of the shared redis one; protects against a
	// single worker bursting when redis is disabled.
	limiter *rate.Limiter
}

// NewClient creates a kleinanzeigen client.
func NewClient(cfg *config.Config, httpClient *httputil.Client, log *logger.Logger) *Client {
	perSec := cfg.Marketplace.RatePerSec
	if perSec <= 0 {
		perSec = 1
	}
	return &Client{
		httpClient: httpClient,
		logger:     log.Component("kleinanzeigen"),
		baseURL:    strings.TrimRight(cfg.Marketplace.BaseURL, "/"),
		limiter:    rate.NewLimiter(rate.Limit(perSec), perSec),
	}
}

// Platform returns the platform key.
func (c *Client) Platform() string {
	return PlatformKey
}

// fetchHTML fetches one page, classifying blocks and transport failures.
func (c *Client) fetchHTML(ctx context.Context, url string) (string, bool, contracts.FetchErrorKind, string) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", false, contracts.FetchErrTimeout, err.Error()
	}

	resp, err := c.httpClient.Get(ctx, url)
	if err != nil {
		kind := contracts.FetchErrNetwork
		if ctx.Err() != nil {
			kind = contracts.FetchErrTimeout
		}
		return "", false, kind, err.Error()
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusTooManyRequests {
		return "", true, contracts.FetchErrNone, ""
	}
	if resp.StatusCode != http.StatusOK {
		return "", false, contracts.FetchErrHTTP, resp.Status
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", false, contracts.FetchErrNetwork, err.Error()
	}

	html := string(body)
	if isBlockPage(html) {
		return "", true, contracts.FetchErrNone, ""
	}

	return html, false, contracts.FetchErrNone, ""
}

// isBlockPage recognizes the upstream anti-bot interstitial.
func isBlockPage(html string) bool {
	lower := strings.ToLower(html)
	return strings.Contains(lower, "captcha") ||
		strings.Contains(lower, "zugriff verweigert") ||
		strings.Contains(lower, "are you a human")
}
