package contracts

import (
	"encoding/json"
	"time"
)

// FetchErrorKind classifies fetch failures for the scheduler's backoff logic.
type FetchErrorKind string

const (
	FetchErrNone    FetchErrorKind = ""
	FetchErrNetwork FetchErrorKind = "network"
	FetchErrTimeout FetchErrorKind = "timeout"
	FetchErrParse   FetchErrorKind = "parse"
	FetchErrHTTP    FetchErrorKind = "http"
)

// Listing is one raw scraped search result before any filtering.
type Listing struct {
	ExternalID  string          `json:"external_id"`
	Title       string          `json:"title"`
	Description string          `json:"description,omitempty"`
	PriceCents  int64           `json:"price_cents"`
	Location    string          `json:"location,omitempty"`
	SellerKind  SellerKind      `json:"seller_kind"`
	URL         string          `json:"url"`
	ImageURLs   []string        `json:"image_urls,omitempty"`
	PostedAt    *time.Time      `json:"posted_at,omitempty"`
	Raw         json.RawMessage `json:"raw,omitempty"`

	IsAuction       bool       `json:"is_auction"`
	CurrentBidCents int64      `json:"current_bid_cents,omitempty"`
	BidCount        int        `json:"bid_count,omitempty"`
	EndsAt          *time.Time `json:"ends_at,omitempty"`
}

// ListingDetail carries the fields only present on a listing's own page.
type ListingDetail struct {
	Description string     `json:"description"`
	ImageURLs   []string   `json:"image_urls,omitempty"`
	PostedAt    *time.Time `json:"posted_at,omitempty"`
}

// FetchResult is the explicit outcome of a listings fetch. Blocked and errors
// are plain data, not exceptions, so the scheduler's cooldown handling is a
// branch rather than a recover.
type FetchResult struct {
	Blocked      bool
	ErrorKind    FetchErrorKind
	ErrorMessage string
	Listings     []Listing
}

// Ok reports whether the fetch succeeded (an empty result is still ok).
func (r *FetchResult) Ok() bool {
	return !r.Blocked && r.ErrorKind == FetchErrNone
}

// DetailResult is the explicit outcome of an enrichment fetch.
type DetailResult struct {
	Blocked      bool
	ErrorKind    FetchErrorKind
	ErrorMessage string
	Detail       *ListingDetail
}

// Ok reports whether the detail fetch succeeded.
func (r *DetailResult) Ok() bool {
	return !r.Blocked && r.ErrorKind == FetchErrNone && r.Detail != nil
}

// PagingOptions bounds a marketplace search.
type PagingOptions struct {
	MaxPages int
	PageSize int
}
