package kleinanzeigen

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/rwerner/sourcing-radar/internal/contracts"
)

// FetchListings runs one search per term and concatenates the results. The
// first block or transport failure aborts the whole fetch; listings gathered
// so far are discarded because a partially blocked crawl is not a trustworthy
// sample.
func (c *Client) FetchListings(ctx context.Context, searchTerms []string, paging contracts.PagingOptions) *contracts.FetchResult {
	maxPages := paging.MaxPages
	if maxPages <= 0 {
		maxPages = 1
	}

	var all []contracts.Listing
	for _, term := range searchTerms {
		for page := 1; page <= maxPages; page++ {
			pageURL := c.searchURL(term, page)

			html, blocked, errKind, errMsg := c.fetchHTML(ctx, pageURL)
			if blocked {
				c.logger.WithField("term", term).Warn("Search blocked by upstream")
				return &contracts.FetchResult{Blocked: true}
			}
			if errKind != contracts.FetchErrNone {
				return &contracts.FetchResult{ErrorKind: errKind, ErrorMessage: errMsg}
			}

			listings, err := parseSearchHTML(html)
			if err != nil {
				return &contracts.FetchResult{
					ErrorKind:    contracts.FetchErrParse,
					ErrorMessage: err.Error(),
				}
			}

			all = append(all, listings...)

			// Short page means the result set is exhausted.
			if len(listings) < 25 {
				break
			}
		}
	}

	c.logger.WithFields(map[string]interface{}{
		"terms": len(searchTerms),
		"count": len(all),
	}).Debug("Fetched listings")

	return &contracts.FetchResult{Listings: all}
}

// searchURL builds the paginated search path.
func (c *Client) searchURL(term string, page int) string {
	slug := strings.ReplaceAll(strings.TrimSpace(strings.ToLower(term)), " ", "-")
	if page <= 1 {
		return fmt.Sprintf("%s/s-%s/k0", c.baseURL, url.PathEscape(slug))
	}
	return fmt.Sprintf("%s/s-seite:%d/%s/k0", c.baseURL, page, url.PathEscape(slug))
}

var priceRe = regexp.MustCompile(`(\d{1,3}(?:\.\d{3})*)(?:,(\d{2}))?\s*€`)

// parseSearchHTML extracts listings from a search result page.
func parseSearchHTML(html string) ([]contracts.Listing, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse search page: %w", err)
	}

	var listings []contracts.Listing
	doc.Find("article.aditem").Each(func(i int, item *goquery.Selection) {
		adID, ok := item.Attr("data-adid")
		if !ok || adID == "" {
			return
		}

		title := strings.TrimSpace(item.Find(".aditem-main--middle h2 a").First().Text())
		priceText := strings.TrimSpace(item.Find(".aditem-main--middle--price-shipping--price").First().Text())
		price, priceOK := parsePriceCents(priceText)

		// Malformed rows (missing title or price) are dropped silently;
		// they are upstream noise, not errors.
		if title == "" || !priceOK {
			return
		}

		href, _ := item.Find(".aditem-main--middle h2 a").First().Attr("href")
		location := strings.TrimSpace(item.Find(".aditem-main--top--left").First().Text())
		desc := strings.TrimSpace(item.Find(".aditem-main--middle--description").First().Text())

		sellerKind := contracts.SellerPrivate
		if item.Find(".aditem-main--top--right").FilterFunction(func(_ int, s *goquery.Selection) bool {
			return strings.Contains(strings.ToLower(s.Text()), "gewerblich")
		}).Length() > 0 {
			sellerKind = contracts.SellerCommercial
		}

		postedAt := parsePostedAt(item.Find(".aditem-main--top--right").First().Text())

		raw, _ := json.Marshal(map[string]string{
			"ad_id":    adID,
			"title":    title,
			"price":    priceText,
			"location": location,
		})

		listings = append(listings, contracts.Listing{
			ExternalID:  adID,
			Title:       title,
			Description: desc,
			PriceCents:  price,
			Location:    location,
			SellerKind:  sellerKind,
			URL:         href,
			PostedAt:    postedAt,
			Raw:         raw,
		})
	})

	return listings, nil
}

// parsePriceCents converts "1.234,56 €" style price text to cents. "VB" and
// "Zu verschenken" suffixes are tolerated; text with no digits is rejected.
func parsePriceCents(text string) (int64, bool) {
	if strings.Contains(strings.ToLower(text), "zu verschenken") {
		return 0, true
	}

	m := priceRe.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}

	euros, err := strconv.ParseInt(strings.ReplaceAll(m[1], ".", ""), 10, 64)
	if err != nil {
		return 0, false
	}

	cents := int64(0)
	if m[2] != "" {
		cents, _ = strconv.ParseInt(m[2], 10, 64)
	}

	return euros*100 + cents, true
}

// parsePostedAt parses the listing stamp ("Heute, 10:23", "Gestern, 18:01" or
// "02.01.2026"). Returns nil when the text is something else entirely.
func parsePostedAt(text string) *time.Time {
	text = strings.TrimSpace(text)
	now := time.Now()

	switch {
	case strings.HasPrefix(text, "Heute"):
		if t, ok := combineDayTime(now, text); ok {
			return &t
		}
	case strings.HasPrefix(text, "Gestern"):
		if t, ok := combineDayTime(now.AddDate(0, 0, -1), text); ok {
			return &t
		}
	default:
		if t, err := time.Parse("02.01.2006", text); err == nil {
			return &t
		}
	}
	return nil
}

func combineDayTime(day time.Time, text string) (time.Time, bool) {
	parts := strings.SplitN(text, ",", 2)
	if len(parts) != 2 {
		return time.Time{}, false
	}
	clock, err := time.Parse("15:04", strings.TrimSpace(parts[1]))
	if err != nil {
		return time.Time{}, false
	}
	return time.Date(day.Year(), day.Month(), day.Day(), clock.Hour(), clock.Minute(), 0, 0, day.Location()), true
}
