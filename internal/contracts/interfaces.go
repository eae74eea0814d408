package contracts

import "context"

// MarketplaceClient abstracts the scrape adapters. Implementations return
// result variants instead of raising on upstream blocks.
type MarketplaceClient interface {
	// Platform returns the platform key this client scrapes.
	Platform() string

	// FetchListings runs a search and returns raw listings.
	FetchListings(ctx context.Context, searchTerms []string, paging PagingOptions) *FetchResult

	// FetchListingDetail fetches the full listing page for enrichment.
	FetchListingDetail(ctx context.Context, url string) *DetailResult
}

// CatalogProvider supplies catalog entries paired with their freshest market
// snapshot. Read-only from the pipeline's point of view.
type CatalogProvider interface {
	Entries(ctx context.Context) ([]CatalogEntry, error)
}

// PurchaseCreator hands a conversion result to the purchasing side.
type PurchaseCreator interface {
	CreatePurchase(ctx context.Context, req *PurchaseRequest) (int64, error)
}

// SettingsReader exposes typed pipeline settings with hard-coded fallbacks.
// Every tick re-reads through this interface so threshold changes apply
// without a restart.
type SettingsReader interface {
	Int(ctx context.Context, key string) int64
	Text(ctx context.Context, key string) string
	Strings(ctx context.Context, key string) []string
}
