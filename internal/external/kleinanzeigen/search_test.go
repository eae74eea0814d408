package kleinanzeigen

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rwerner/sourcing-radar/internal/contracts"
)

const searchFixture = `
<html><body>
<ul>
<li>
  <article class="aditem" data-adid="2301"
    data-href="/s-anzeige/lego-technic-42083/2301">
    <div class="aditem-main--top--left">10115 Berlin</div>
    <div class="aditem-main--top--right">Heute, 10:23</div>
    <div class="aditem-main--middle">
      <h2><a href="/s-anzeige/lego-technic-42083/2301">Lego Technic 42083 Bugatti</a></h2>
      <p class="aditem-main--middle--description">Komplett mit OVP und Anleitung.</p>
      <p class="aditem-main--middle--price-shipping--price">249 € VB</p>
    </div>
  </article>
</li>
<li>
  <article class="aditem" data-adid="2302">
    <div class="aditem-main--top--right">Gewerblicher Anbieter</div>
    <div class="aditem-main--middle">
      <h2><a href="/s-anzeige/2302">Playmobil Konvolut</a></h2>
      <p class="aditem-main--middle--price-shipping--price">1.234,50 €</p>
    </div>
  </article>
</li>
<li>
  <article class="aditem" data-adid="2303">
    <div class="aditem-main--middle">
      <h2><a href="/s-anzeige/2303">Kaputtes Teil ohne Preis</a></h2>
      <p class="aditem-main--middle--price-shipping--price">Auf Anfrage</p>
    </div>
  </article>
</li>
</ul>
</body></html>`

func TestParseSearchHTML(t *testing.T) {
	listings, err := parseSearchHTML(searchFixture)
	require.NoError(t, err)

	// The priceless row is dropped silently.
	require.Len(t, listings, 2)

	first := listings[0]
	assert.Equal(t, "2301", first.ExternalID)
	assert.Equal(t, "Lego Technic 42083 Bugatti", first.Title)
	assert.EqualValues(t, 24900, first.PriceCents)
	assert.Equal(t, "10115 Berlin", first.Location)
	assert.Equal(t, contracts.SellerPrivate, first.SellerKind)
	assert.Equal(t, "/s-anzeige/lego-technic-42083/2301", first.URL)
	require.NotNil(t, first.PostedAt)
	assert.Equal(t, time.Now().Day(), first.PostedAt.Day())

	second := listings[1]
	assert.EqualValues(t, 123450, second.PriceCents)
	assert.Equal(t, contracts.SellerCommercial, second.SellerKind)
}

func TestParsePriceCents(t *testing.T) {
	tests := []struct {
		in    string
		cents int64
		ok    bool
	}{
		{"249 €", 24900, true},
		{"249 € VB", 24900, true},
		{"1.234,50 €", 123450, true},
		{"12,99 €", 1299, true},
		{"Zu verschenken", 0, true},
		{"Auf Anfrage", 0, false},
		{"", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := parsePriceCents(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.cents, got)
		})
	}
}

func TestParsePostedAt(t *testing.T) {
	gestern := parsePostedAt("Gestern, 18:01")
	require.NotNil(t, gestern)
	assert.Equal(t, time.Now().AddDate(0, 0, -1).Day(), gestern.Day())
	assert.Equal(t, 18, gestern.Hour())

	fixed := parsePostedAt("02.01.2026")
	require.NotNil(t, fixed)
	assert.Equal(t, 2026, fixed.Year())

	assert.Nil(t, parsePostedAt("Gewerblicher Anbieter"))
}

func TestIsBlockPage(t *testing.T) {
	assert.True(t, isBlockPage(`<html><div class="g-recaptcha"></div></html>`))
	assert.True(t, isBlockPage(`<html>Zugriff verweigert</html>`))
	assert.False(t, isBlockPage(searchFixture))
}

func TestParseDetailHTML(t *testing.T) {
	const fixture = `
	<html><body>
	  <div id="viewad-image"><img src="https://img.test/1.jpg"></div>
	  <div class="galleryimage-element"><img src="https://img.test/2.jpg"></div>
	  <p id="viewad-description-text">Sehr guter Zustand, Nichtraucherhaushalt.</p>
	  <div id="viewad-extra-info"><span>15.08.2026</span></div>
	</body></html>`

	detail, err := parseDetailHTML(fixture)
	require.NoError(t, err)

	assert.Equal(t, "Sehr guter Zustand, Nichtraucherhaushalt.", detail.Description)
	assert.Equal(t, []string{"https://img.test/1.jpg", "https://img.test/2.jpg"}, detail.ImageURLs)
	require.NotNil(t, detail.PostedAt)
	assert.Equal(t, time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC), *detail.PostedAt)
}
