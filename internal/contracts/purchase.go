package contracts

// PurchaseLine is one allocated position of a conversion.
type PurchaseLine struct {
	CatalogEntryID int64  `json:"catalog_entry_id"`
	Condition      string `json:"condition"`
	PriceCents     int64  `json:"price_cents"`
	MatchID        int64  `json:"match_id"`
}

// PurchaseRequest is handed to the purchase collaborator when a READY
// candidate is converted. The line prices always sum to TotalPriceCents.
type PurchaseRequest struct {
	CandidateID     int64          `json:"candidate_id"`
	Platform        string         `json:"platform"`
	ExternalID      string         `json:"external_id"`
	Title           string         `json:"title"`
	TotalPriceCents int64          `json:"total_price_cents"`
	Lines           []PurchaseLine `json:"lines"`
}
