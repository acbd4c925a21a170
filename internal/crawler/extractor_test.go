package crawler

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockLookup implements DetailLookup for testing
type mockLookup struct {
	details map[string]*AppDetails
	err     error
	calls   []string
}

var _ DetailLookup = (*mockLookup)(nil)

func (m *mockLookup) AppDetails(_ context.Context, appID string) (*AppDetails, error) {
	m.calls = append(m.calls, appID)
	if m.err != nil {
		return nil, m.err
	}
	if d, ok := m.details[appID]; ok {
		return d, nil
	}
	return nil, ErrNoDetails
}

// recordingDumper remembers dump names instead of writing files
type recordingDumper struct {
	names []string
}

func (d *recordingDumper) Dump(name string, _ string) (string, error) {
	d.names = append(d.names, name)
	return "/tmp/" + name, nil
}

func page(rows ...string) string {
	return `<html><head><title>Search</title></head><body><div id="search_resultsRows">` +
		strings.Join(rows, "\n") +
		`</div></body></html>`
}

// row renders a search result link with a discount block; empty prices are omitted
func row(id, name, discount, original, final string) string {
	var b strings.Builder
	b.WriteString(`<a href="https://store.example.com/app/` + id + `/x/" data-ds-appid="` + id + `" class="search_result_row">`)
	b.WriteString(`<div class="responsive_search_name_combined"><div class="search_name"><span class="title">` + name + `</span></div>`)
	b.WriteString(`<div class="discount_block search_discount_block"><div class="discount_pct">` + discount + `</div><div class="discount_prices">`)
	if original != "" {
		b.WriteString(`<div class="discount_original_price">` + original + `</div>`)
	}
	if final != "" {
		b.WriteString(`<div class="discount_final_price">` + final + `</div>`)
	}
	b.WriteString(`</div></div></div></a>`)
	return b.String()
}

func newTestExtractor(lookup DetailLookup) *Extractor {
	if lookup == nil {
		return NewExtractor(ExtractorConfig{CurrencyGlyph: "₺"}, nil, nil)
	}
	return NewExtractor(ExtractorConfig{CurrencyGlyph: "₺", HighValueTitles: []string{"Elden Ring"}}, lookup, nil)
}

func TestExtractItemsStructuredPrices(t *testing.T) {
	e := newTestExtractor(nil)

	items := e.ExtractItems(context.Background(), page(row("100", "Alpha", "-75%", "₺100,00", "₺25,00")))

	want := []DiscountedItem{{ID: "100", Name: "Alpha", DiscountPercent: 75, OriginalPrice: 10000, FinalPrice: 2500}}
	if diff := cmp.Diff(want, items); diff != "" {
		t.Errorf("unexpected items (-want +got):\n%s", diff)
	}
}

func TestExtractItemsContainerTextFallback(t *testing.T) {
	e := newTestExtractor(nil)
	markup := page(`<a data-ds-appid="100" class="search_result_row">
		<span class="title">Alpha</span>
		<div class="discount_block"><div class="discount_pct">-75%</div>
			<div class="discount_prices"><div class="discount_original_price">₺100,00</div> ₺25,00</div>
		</div></a>`)

	items := e.ExtractItems(context.Background(), markup)

	require.Len(t, items, 1)
	assert.Equal(t, DiscountedItem{ID: "100", Name: "Alpha", DiscountPercent: 75, OriginalPrice: 10000, FinalPrice: 2500}, items[0])
}

func TestExtractItemsSingleTokenDerivesOriginal(t *testing.T) {
	e := newTestExtractor(nil)
	markup := page(`<a data-ds-appid="101" class="search_result_row">
		<span class="title">Beta</span>
		<div class="search_price">-75% ₺25,00</div>
		<div class="search_discount"><span>-75%</span></div></a>`)

	items := e.ExtractItems(context.Background(), markup)

	require.Len(t, items, 1)
	assert.Equal(t, int64(2500), items[0].FinalPrice)
	assert.Equal(t, int64(10000), items[0].OriginalPrice)
	assert.Equal(t, 75, items[0].DiscountPercent)
}

func TestExtractItemsSkipsCandidates(t *testing.T) {
	e := newTestExtractor(nil)
	markup := page(
		row("1", "Keep", "-50%", "₺20,00", "₺10,00"),
		row("2", "Zero", "-0%", "₺20,00", "₺20,00"),
		`<a class="search_result_row" href="https://store.example.com/bundle/9/"><span class="title">NoID</span><div class="discount_pct">-40%</div></a>`,
		`<a class="search_result_row" href="https://store.example.com/app/abc/"><span class="title">BadID</span><div class="discount_pct">-40%</div></a>`,
		row("3", "Blank", "", "₺20,00", "₺10,00"),
		row("4", "Also", "-30%", "₺10,00", "₺7,00"),
	)

	items := e.ExtractItems(context.Background(), markup)

	var ids []string
	for _, item := range items {
		ids = append(ids, item.ID)
	}
	assert.Equal(t, []string{"1", "4"}, ids)
}

func TestExtractItemsIDFromHref(t *testing.T) {
	e := newTestExtractor(nil)
	markup := page(`<a class="search_result_row" href="https://store.example.com/app/730/Counter_Strike/">
		<span class="title">CS</span>
		<div class="discount_block"><div class="discount_pct">-20%</div>
		<div class="discount_prices"><div class="discount_original_price">₺10,00</div><div class="discount_final_price">₺8,00</div></div></div></a>`)

	items := e.ExtractItems(context.Background(), markup)

	require.Len(t, items, 1)
	assert.Equal(t, "730", items[0].ID)
}

func TestExtractItemsNameFallback(t *testing.T) {
	e := newTestExtractor(nil)
	markup := page(
		`<a data-ds-appid="5" class="search_result_row"><span class="title">  </span><div class="search_name">Gamma</div>
		<div class="discount_block"><div class="discount_pct">-10%</div><div class="discount_prices"><div class="discount_original_price">₺10,00</div><div class="discount_final_price">₺9,00</div></div></div></a>`,
		`<a data-ds-appid="6" class="search_result_row">
		<div class="discount_block"><div class="discount_pct">-10%</div><div class="discount_prices"><div class="discount_original_price">₺10,00</div><div class="discount_final_price">₺9,00</div></div></div></a>`,
	)

	items := e.ExtractItems(context.Background(), markup)

	require.Len(t, items, 2)
	assert.Equal(t, "Gamma", items[0].Name)
	assert.Equal(t, DefaultPlaceholderName, items[1].Name)
}

func TestExtractItemsLayouts(t *testing.T) {
	block := `<div class="discount_block"><div class="discount_pct">-40%</div><div class="discount_prices">` +
		`<div class="discount_original_price">₺10,00</div><div class="discount_final_price">₺6,00</div></div></div>`

	tests := []struct {
		name   string
		markup string
		wantID string
	}{
		{
			name:   "results container",
			markup: page(row("1", "One", "-40%", "₺10,00", "₺6,00")),
			wantID: "1",
		},
		{
			name:   "result row class",
			markup: `<div><a class="search_result_row" data-ds-appid="2"><span class="title">Two</span>` + block + `</a></div>`,
			wantID: "2",
		},
		{
			name:   "app id attribute",
			markup: `<div><div data-ds-appid="3"><span class="title">Three</span>` + block + `</div></div>`,
			wantID: "3",
		},
		{
			name:   "name combined wrapper",
			markup: `<div><div class="responsive_search_name_combined" data-appid="4"><span class="title">Four</span>` + block + `</div></div>`,
			wantID: "4",
		},
		{
			name:   "discount badge",
			markup: `<div><a href="https://store.example.com/app/5/five/"><span class="title">Five</span>` + block + `</a></div>`,
			wantID: "5",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestExtractor(nil)
			items := e.ExtractItems(context.Background(), tt.markup)

			require.Len(t, items, 1)
			assert.Equal(t, tt.wantID, items[0].ID)
			assert.Equal(t, 40, items[0].DiscountPercent)
			assert.Equal(t, int64(1000), items[0].OriginalPrice)
			assert.Equal(t, int64(600), items[0].FinalPrice)
		})
	}
}

func TestExtractItemsDiscountBadgeDedupesLinks(t *testing.T) {
	e := newTestExtractor(nil)
	markup := `<div><a href="https://store.example.com/app/8/eight/">
		<div class="discount_pct">-40%</div><div><div class="discount_pct">-40%</div></div>
		<div class="discount_prices"><div class="discount_original_price">₺10,00</div><div class="discount_final_price">₺6,00</div></div>
		</a></div>`

	items := e.ExtractItems(context.Background(), markup)

	require.Len(t, items, 1)
	assert.Equal(t, "8", items[0].ID)
}

func TestExtractItemsEmptyResults(t *testing.T) {
	t.Run("empty markup", func(t *testing.T) {
		assert.Empty(t, newTestExtractor(nil).ExtractItems(context.Background(), ""))
	})

	t.Run("no layout matches", func(t *testing.T) {
		dumper := &recordingDumper{}
		e := NewExtractor(ExtractorConfig{Debug: true}, nil, dumper)

		items := e.ExtractItems(context.Background(), `<html><body><p>Nothing on sale</p></body></html>`)

		assert.Empty(t, items)
		require.Len(t, dumper.names, 1)
		assert.True(t, strings.HasSuffix(dumper.names[0], "unmatched_layout.html"))
	})

	t.Run("site error page", func(t *testing.T) {
		dumper := &recordingDumper{}
		lookup := &mockLookup{}
		e := NewExtractor(ExtractorConfig{Debug: true}, lookup, dumper)

		markup := `<html><head><title>Site Error</title></head><body>` +
			row("1", "Alpha", "-90%", "", "") + `</body></html>`
		items := e.ExtractItems(context.Background(), markup)

		assert.Empty(t, items)
		assert.Equal(t, []string{"steam_error.html"}, dumper.names)
		assert.Empty(t, lookup.calls, "no field extraction on error pages")
	})

	t.Run("dumps need debug", func(t *testing.T) {
		dumper := &recordingDumper{}
		e := NewExtractor(ExtractorConfig{}, nil, dumper)

		e.ExtractItems(context.Background(), `<html><head><title>Site Error</title></head></html>`)

		assert.Empty(t, dumper.names)
	})
}

func TestExtractItemsReconciliation(t *testing.T) {
	t.Run("deep discount uses lookup and prefers its discount", func(t *testing.T) {
		lookup := &mockLookup{details: map[string]*AppDetails{
			"10": {Name: "Deep", PriceOverview: &PriceOverview{Currency: "TRY", Initial: 50000, Final: 10000, DiscountPercent: 80}},
		}}
		e := newTestExtractor(lookup)

		items := e.ExtractItems(context.Background(), page(row("10", "Deep", "-75%", "", "")))

		require.Len(t, items, 1)
		assert.Equal(t, []string{"10"}, lookup.calls)
		assert.Equal(t, DiscountedItem{ID: "10", Name: "Deep", DiscountPercent: 80, OriginalPrice: 50000, FinalPrice: 10000}, items[0])
	})

	t.Run("high value title triggers lookup below threshold", func(t *testing.T) {
		lookup := &mockLookup{details: map[string]*AppDetails{
			"11": {PriceOverview: &PriceOverview{Initial: 60000, Final: 42000}},
		}}
		e := newTestExtractor(lookup)

		items := e.ExtractItems(context.Background(), page(row("11", "  ELDEN   ring ", "-30%", "", "")))

		require.Len(t, items, 1)
		assert.Equal(t, []string{"11"}, lookup.calls)
		assert.Equal(t, 30, items[0].DiscountPercent, "page discount kept when lookup has none")
		assert.Equal(t, int64(60000), items[0].OriginalPrice)
		assert.Equal(t, int64(42000), items[0].FinalPrice)
	})

	t.Run("shallow discount skips lookup", func(t *testing.T) {
		lookup := &mockLookup{}
		e := newTestExtractor(lookup)

		items := e.ExtractItems(context.Background(), page(row("12", "Other", "-30%", "", "")))

		require.Len(t, items, 1)
		assert.Empty(t, lookup.calls)
	})

	t.Run("resolved prices skip lookup", func(t *testing.T) {
		lookup := &mockLookup{}
		e := newTestExtractor(lookup)

		e.ExtractItems(context.Background(), page(row("13", "Resolved", "-90%", "₺100,00", "₺10,00")))

		assert.Empty(t, lookup.calls)
	})

	t.Run("lookup failure falls back to defaults", func(t *testing.T) {
		lookup := &mockLookup{err: errors.New("connection reset")}
		e := newTestExtractor(lookup)

		items := e.ExtractItems(context.Background(), page(row("14", "Broken", "-60%", "", "")))

		require.Len(t, items, 1)
		assert.Equal(t, DefaultPlaceholderPrice, items[0].OriginalPrice)
		assert.Equal(t, int64(399), items[0].FinalPrice)
	})
}

// Placeholder prices are not corrected: the displayed prices only approximate the discount.
func TestExtractItemsSkipsZeroFinalPrice(t *testing.T) {
	e := newTestExtractor(nil)
	markup := page(
		row("7", "Giveaway", "-100%", "", "₺0,00"),
		row("8", "Free Weekend", "-100%", "₺20,00", "₺0,00"),
		row("9", "Paid", "-50%", "", "₺5,00"),
	)

	items := e.ExtractItems(context.Background(), markup)

	require.Len(t, items, 1)
	assert.Equal(t, "9", items[0].ID)
	assert.Equal(t, int64(1000), items[0].OriginalPrice)

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page(row("7", "Giveaway", "-100%", "", "₺0,00"))))
	require.NoError(t, err)
	result := e.extractCandidate(context.Background(), doc.Find("a.search_result_row").First())
	assert.ErrorIs(t, result.err, ErrNoFinalPrice)
	assert.Equal(t, "7", result.item.ID)
}

func TestExtractItemsPlaceholderPriceKnownInconsistency(t *testing.T) {
	e := newTestExtractor(nil)

	items := e.ExtractItems(context.Background(), page(row("20", "Mystery", "-33%", "", "")))

	require.Len(t, items, 1)
	item := items[0]
	assert.Equal(t, DefaultPlaceholderPrice, item.OriginalPrice)
	assert.Equal(t, int64(669), item.FinalPrice)

	// 669/999 is a 33.03% discount, not 33%
	impliedPct := 100 - float64(item.FinalPrice)*100/float64(item.OriginalPrice)
	assert.NotEqual(t, float64(item.DiscountPercent), impliedPct)
}

func TestExtractItemsKeepsPageOrderAndFinalNotAboveOriginal(t *testing.T) {
	e := newTestExtractor(nil)
	markup := page(
		row("3", "C", "-10%", "₺10,00", "₺9,00"),
		row("1", "A", "-90%", "₺100,00", "₺10,00"),
		row("2", "B", "-50%", "₺40,00", "₺20,00"),
	)

	items := e.ExtractItems(context.Background(), markup)

	want := []DiscountedItem{
		{ID: "3", Name: "C", DiscountPercent: 10, OriginalPrice: 1000, FinalPrice: 900},
		{ID: "1", Name: "A", DiscountPercent: 90, OriginalPrice: 10000, FinalPrice: 1000},
		{ID: "2", Name: "B", DiscountPercent: 50, OriginalPrice: 4000, FinalPrice: 2000},
	}
	if diff := cmp.Diff(want, items); diff != "" {
		t.Errorf("unexpected items (-want +got):\n%s", diff)
	}
	for _, item := range items {
		assert.LessOrEqual(t, item.FinalPrice, item.OriginalPrice)
	}
}

func TestParseDiscount(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"-75%", 75},
		{" - 50 % ", 50},
		{"-10\u00a0%", 10},
		{"100%", 100},
		{"-0%", 0},
		{"150%", 0},
		{"", 0},
		{"sale", 0},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, parseDiscount(tt.text), "text=%q", tt.text)
	}
}

func TestNormalizeName(t *testing.T) {
	assert.Equal(t, "elden ring", normalizeName("  Elden   RING "))
	assert.Equal(t, "full width", normalizeName("ＦＵＬＬ WIDTH"))
}
