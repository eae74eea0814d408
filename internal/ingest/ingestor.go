package ingest

import (
	"context"

	"github.com/rwerner/sourcing-radar/internal/contracts"
	"github.com/rwerner/sourcing-radar/internal/settings"
	"github.com/rwerner/sourcing-radar/pkg/logger"
)

// candidateWriter is the slice of the candidate store ingestion needs.
type candidateWriter interface {
	Insert(ctx context.Context, c *contracts.Candidate) (bool, error)
	UpdateEnrichment(ctx context.Context, id int64, d *contracts.ListingDetail) error
	EnrichmentQueue(ctx context.Context, platform string, limit int) ([]contracts.Candidate, error)
}

// Ingestor filters scraped listings and writes the survivors as candidates.
type Ingestor struct {
	store    candidateWriter
	settings contracts.SettingsReader
	logger   *logger.Logger
}

// NewIngestor creates an ingestor.
func NewIngestor(store candidateWriter, settings contracts.SettingsReader, log *logger.Logger) *Ingestor {
	return &Ingestor{store: store, settings: settings, logger: log.Component("ingest")}
}

// BatchResult summarizes one ingestion batch.
type BatchResult struct {
	Scraped  int
	Filtered int
	Dupes    int
	Inserted []contracts.Candidate
}

// Rules loads the current filter thresholds from settings.
func (i *Ingestor) Rules(ctx context.Context) FilterRules {
	return FilterRules{
		MinPriceCents:  i.settings.Int(ctx, settings.KeyMinPriceCents),
		MaxPriceCents:  i.settings.Int(ctx, settings.KeyMaxPriceCents),
		DiscardTerms:   i.settings.Strings(ctx, settings.KeyDiscardTerms),
		BlacklistTerms: i.settings.Strings(ctx, settings.KeyBlacklistTerms),
	}
}

// IngestBatch filters listings from one fetch and inserts the survivors as
// NEW candidates. Re-scraped listings are deduplicated on (platform,
// external_id) and never mutate the stored row. A single bad row is logged
// and skipped, not fatal to the batch.
func (i *Ingestor) IngestBatch(ctx context.Context, platform string, listings []contracts.Listing) (*BatchResult, error) {
	rules := i.Rules(ctx)
	result := &BatchResult{Scraped: len(listings)}

	for idx := range listings {
		l := &listings[idx]

		if reason, ok := rules.PreFilter(l); !ok {
			result.Filtered++
			i.logger.WithFields(map[string]interface{}{
				"external_id": l.ExternalID,
				"reason":      reason,
			}).Debug("Listing filtered")
			continue
		}
		if reason, ok := rules.PostFilter(l); !ok {
			result.Filtered++
			i.logger.WithFields(map[string]interface{}{
				"external_id": l.ExternalID,
				"reason":      reason,
			}).Debug("Listing filtered")
			continue
		}

		c := candidateFromListing(platform, l)
		inserted, err := i.store.Insert(ctx, c)
		if err != nil {
			i.logger.WithError(err).WithField("external_id", l.ExternalID).
				Error("Candidate insert failed")
			continue
		}
		if !inserted {
			result.Dupes++
			continue
		}
		result.Inserted = append(result.Inserted, *c)
	}

	i.logger.WithFields(map[string]interface{}{
		"platform": platform,
		"scraped":  result.Scraped,
		"filtered": result.Filtered,
		"dupes":    result.Dupes,
		"inserted": len(result.Inserted),
	}).Info("Ingestion batch done")

	return result, nil
}

// Enrich fetches listing detail pages for at most the configured number of
// candidates and merges the extra fields in. Enriched data never re-triggers
// the filters; a candidate that passed stays, whatever its description says.
// Stops early when the platform starts blocking.
func (i *Ingestor) Enrich(ctx context.Context, client contracts.MarketplaceClient) int {
	limit := int(i.settings.Int(ctx, settings.KeyMaxEnrichPerRun))
	if limit <= 0 {
		return 0
	}

	queue, err := i.store.EnrichmentQueue(ctx, client.Platform(), limit)
	if err != nil {
		i.logger.WithError(err).Error("Enrichment queue query failed")
		return 0
	}

	enriched := 0
	for idx := range queue {
		c := &queue[idx]

		res := client.FetchListingDetail(ctx, c.ListingURL)
		if res.Blocked {
			i.logger.Warn("Enrichment aborted, platform is blocking")
			break
		}
		if !res.Ok() {
			i.logger.WithFields(map[string]interface{}{
				"candidate_id": c.ID,
				"kind":         string(res.ErrorKind),
				"error":        res.ErrorMessage,
			}).Warn("Detail fetch failed")
			continue
		}

		if err := i.store.UpdateEnrichment(ctx, c.ID, res.Detail); err != nil {
			i.logger.WithError(err).WithField("candidate_id", c.ID).
				Error("Enrichment update failed")
			continue
		}
		enriched++
	}

	return enriched
}

func candidateFromListing(platform string, l *contracts.Listing) *contracts.Candidate {
	return &contracts.Candidate{
		Platform:        platform,
		ExternalID:      l.ExternalID,
		Title:           l.Title,
		Description:     l.Description,
		PriceCents:      l.PriceCents,
		Location:        l.Location,
		SellerKind:      l.SellerKind,
		ListingURL:      l.URL,
		ImageURLs:       l.ImageURLs,
		RawPayload:      l.Raw,
		PostedAt:        l.PostedAt,
		IsAuction:       l.IsAuction,
		CurrentBidCents: l.CurrentBidCents,
		BidCount:        l.BidCount,
		EndsAt:          l.EndsAt,
		Status:          contracts.StatusNew,
	}
}
