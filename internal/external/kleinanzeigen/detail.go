package kleinanzeigen

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/rwerner/sourcing-radar/internal/contracts"
)

// FetchListingDetail fetches a listing's own page for enrichment: the full
// description, the complete image set and the accurate posting time.
func (c *Client) FetchListingDetail(ctx context.Context, listingURL string) *contracts.DetailResult {
	if listingURL == "" {
		return &contracts.DetailResult{
			ErrorKind:    contracts.FetchErrParse,
			ErrorMessage: "empty listing url",
		}
	}

	if strings.HasPrefix(listingURL, "/") {
		listingURL = c.baseURL + listingURL
	}

	html, blocked, errKind, errMsg := c.fetchHTML(ctx, listingURL)
	if blocked {
		return &contracts.DetailResult{Blocked: true}
	}
	if errKind != contracts.FetchErrNone {
		return &contracts.DetailResult{ErrorKind: errKind, ErrorMessage: errMsg}
	}

	detail, err := parseDetailHTML(html)
	if err != nil {
		return &contracts.DetailResult{
			ErrorKind:    contracts.FetchErrParse,
			ErrorMessage: err.Error(),
		}
	}

	return &contracts.DetailResult{Detail: detail}
}

// parseDetailHTML extracts enrichment fields from a listing page.
func parseDetailHTML(html string) (*contracts.ListingDetail, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse detail page: %w", err)
	}

	detail := &contracts.ListingDetail{
		Description: strings.TrimSpace(doc.Find("#viewad-description-text").First().Text()),
	}

	doc.Find("#viewad-image img, .galleryimage-element img").Each(func(_ int, img *goquery.Selection) {
		src, ok := img.Attr("src")
		if !ok || src == "" {
			return
		}
		detail.ImageURLs = append(detail.ImageURLs, src)
	})

	// The detail page carries a full date, unlike the search stamp.
	dateText := strings.TrimSpace(doc.Find("#viewad-extra-info span").First().Text())
	if t, err := time.Parse("02.01.2006", dateText); err == nil {
		detail.PostedAt = &t
	}

	return detail, nil
}
