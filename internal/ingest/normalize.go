// Package ingest turns raw scraped listings into stored candidates: title
// normalization, the filter gates, idempotent insertion and the bounded
// detail-page enrichment pass.
package ingest

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// foldTransformer strips combining marks after canonical decomposition, so
// "Pokémon" and "Pokemon" normalize to the same form.
var foldTransformer = transform.Chain(
	norm.NFD,
	runes.Remove(runes.In(unicode.Mn)),
	norm.NFC,
)

// Fold normalizes a title for filtering and fuzzy matching: lowercase,
// diacritics stripped, German sharp s expanded, whitespace collapsed.
func Fold(s string) string {
	folded, _, err := transform.String(foldTransformer, s)
	if err != nil {
		// Transform only fails on malformed UTF-8; fall back to the input.
		folded = s
	}

	folded = strings.ToLower(folded)
	folded = strings.ReplaceAll(folded, "ß", "ss")

	return strings.Join(strings.Fields(folded), " ")
}

// ContainsTerm reports whether the folded haystack contains any of the given
// terms (themselves folded before comparison).
func ContainsTerm(foldedHaystack string, terms []string) (string, bool) {
	for _, term := range terms {
		t := Fold(term)
		if t == "" {
			continue
		}
		if strings.Contains(foldedHaystack, t) {
			return term, true
		}
	}
	return "", false
}
