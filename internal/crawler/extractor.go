package crawler

import (
	"context"
	"errors"
	"regexp"
	"strconv"
	"strings"

	"sjsage522/steamsales/helpers"
	"sjsage522/steamsales/logger"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/unicode/norm"
)

const (
	// siteErrorMarker appears in the title of the storefront's error page
	siteErrorMarker = "<title>Site Error</title>"

	// DefaultPlaceholderName is used when no name selector matches
	DefaultPlaceholderName = "Unknown Game"
	// DefaultPlaceholderPrice substitutes an unresolvable original price, in minor units
	DefaultPlaceholderPrice int64 = 999
	// reconcileDiscountThreshold triggers a detail lookup for deep discounts
	reconcileDiscountThreshold = 50
)

// ExtractorConfig tunes the item extractor
type ExtractorConfig struct {
	CurrencyGlyph    string
	HighValueTitles  []string
	PlaceholderName  string
	PlaceholderPrice int64
	Debug            bool
}

// Extractor turns a search results page into discounted items
type Extractor struct {
	layouts          []LayoutStrategy
	selectors        Selectors
	lookup           DetailLookup
	dumper           helpers.Dumper
	currencyRe       *regexp.Regexp
	highValue        map[string]bool
	placeholderName  string
	placeholderPrice int64
	debug            bool
	log              *logger.Logger
}

// NewExtractor creates an extractor using the default layouts and selectors.
// lookup and dumper may be nil.
func NewExtractor(cfg ExtractorConfig, lookup DetailLookup, dumper helpers.Dumper) *Extractor {
	if cfg.CurrencyGlyph == "" {
		cfg.CurrencyGlyph = "₺"
	}
	if cfg.PlaceholderName == "" {
		cfg.PlaceholderName = DefaultPlaceholderName
	}
	if cfg.PlaceholderPrice <= 0 {
		cfg.PlaceholderPrice = DefaultPlaceholderPrice
	}

	highValue := make(map[string]bool, len(cfg.HighValueTitles))
	for _, title := range cfg.HighValueTitles {
		highValue[normalizeName(title)] = true
	}

	return &Extractor{
		layouts:          DefaultLayouts,
		selectors:        DefaultSelectors,
		lookup:           lookup,
		dumper:           dumper,
		currencyRe:       currencyTokenRegex(cfg.CurrencyGlyph),
		highValue:        highValue,
		placeholderName:  cfg.PlaceholderName,
		placeholderPrice: cfg.PlaceholderPrice,
		debug:            cfg.Debug,
		log:              logger.ForExtractor(),
	}
}

// ExtractItems returns the discounted items found in markup, in page order.
// It never fails: unrecognized markup yields an empty slice.
func (e *Extractor) ExtractItems(ctx context.Context, markup string) []DiscountedItem {
	if markup == "" {
		return nil
	}

	if strings.Contains(markup, siteErrorMarker) {
		e.log.Warn().Msg("Store returned a site error page, possibly rate limited")
		e.dump("steam_error.html", markup)
		return nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		e.log.Warn().Err(err).Msg("Failed to parse search page")
		return nil
	}

	layout, candidates := detectLayout(doc, e.layouts)
	if candidates == nil {
		e.log.Debug().Msg("No known layout matched the search page")
		e.dump(helpers.TimestampedName("unmatched_layout.html"), markup)
		return nil
	}

	e.log.Debug().
		Str("layout", layout).
		Int("candidates", candidates.Length()).
		Msg("Found candidate elements on page")

	return e.processCandidates(ctx, candidates)
}

// processCandidates extracts every candidate sequentially, keeping page order
func (e *Extractor) processCandidates(ctx context.Context, candidates *goquery.Selection) []DiscountedItem {
	results := make([]candidateResult, 0, candidates.Length())
	candidates.Each(func(_ int, s *goquery.Selection) {
		results = append(results, e.extractCandidate(ctx, s))
	})

	var items []DiscountedItem
	for _, r := range results {
		if r.err != nil {
			e.log.Debug().Err(r.err).Str("id", r.item.ID).Msg("Skipping candidate")
			continue
		}
		items = append(items, r.item)
	}
	return items
}

// extractCandidate resolves all fields of one candidate
func (e *Extractor) extractCandidate(ctx context.Context, s *goquery.Selection) candidateResult {
	id := e.extractID(s)
	if id == "" {
		return candidateResult{err: ErrMissingID}
	}

	name := applyHandlers(s, textHandlers(e.selectors.Name))
	if name == "" {
		name = e.placeholderName
	}

	discount := e.extractDiscount(s)
	if discount <= 0 {
		return candidateResult{item: DiscountedItem{ID: id}, err: ErrMissingDiscount}
	}

	original, final := e.extractPrices(s, discount)

	if (original <= 0 || final <= 0) && (e.isHighValue(name) || discount > reconcileDiscountThreshold) {
		original, final, discount = e.reconcile(ctx, id, original, final, discount)
	}

	if original > 0 && final <= 0 {
		final = finalFromOriginal(original, discount)
	} else if final > 0 && original <= 0 {
		original = originalFromFinal(final, discount)
	}

	// Defaults may leave the displayed prices inconsistent with the discount.
	if original <= 0 {
		original = e.placeholderPrice
	}
	if final <= 0 {
		final = finalFromOriginal(original, discount)
	}
	if final <= 0 {
		return candidateResult{item: DiscountedItem{ID: id}, err: ErrNoFinalPrice}
	}

	return candidateResult{item: DiscountedItem{
		ID:              id,
		Name:            name,
		DiscountPercent: discount,
		OriginalPrice:   original,
		FinalPrice:      final,
	}}
}

// extractID tries the id attributes, then the app path segment of the link
func (e *Extractor) extractID(s *goquery.Selection) string {
	for _, attr := range e.selectors.IDAttributes {
		if id, exists := s.Attr(attr); exists && strings.TrimSpace(id) != "" {
			return strings.TrimSpace(id)
		}
	}

	href, _ := s.Attr("href")
	tail, err := helpers.GetSplitPart(href, "app/", 1)
	if err != nil {
		return ""
	}
	segment, _ := helpers.GetSplitPart(tail, "/", 0)
	if !helpers.IsDigits(segment) {
		return ""
	}
	return segment
}

// extractDiscount returns the first positive percentage among the discount selectors
func (e *Extractor) extractDiscount(s *goquery.Selection) int {
	for _, selector := range e.selectors.Discount {
		el := s.Find(selector).First()
		if el.Length() == 0 {
			continue
		}
		if pct := parseDiscount(el.Text()); pct > 0 {
			return pct
		}
	}
	return 0
}

// extractPrices reads the structured price elements, then falls back to the container text
func (e *Extractor) extractPrices(s *goquery.Selection, discount int) (original, final int64) {
	var container *goquery.Selection
	for _, selector := range e.selectors.PriceContainer {
		if found := s.Find(selector).First(); found.Length() > 0 {
			container = found
			break
		}
	}
	if container == nil {
		return 0, 0
	}

	if el := container.Find(e.selectors.OriginalPrice).First(); el.Length() > 0 {
		original = ParsePrice(el.Text())
	}
	if el := container.Find(e.selectors.FinalPrice).First(); el.Length() > 0 {
		final = ParsePrice(el.Text())
	}
	if original > 0 && final > 0 {
		return original, final
	}

	amounts := findCurrencyAmounts(e.currencyRe, strings.TrimSpace(container.Text()))
	switch {
	case len(amounts) >= 2:
		original, final = amounts[0], amounts[1]
	case len(amounts) == 1:
		final = amounts[0]
		original = originalFromFinal(final, discount)
	}
	return original, final
}

// reconcile replaces prices with the details endpoint's price overview when available
func (e *Extractor) reconcile(ctx context.Context, id string, original, final int64, discount int) (int64, int64, int) {
	if e.lookup == nil {
		return original, final, discount
	}

	e.log.Debug().Str("id", id).Msg("Resolving prices from app details")
	details, err := e.lookup.AppDetails(ctx, id)
	if err != nil {
		if !errors.Is(err, ErrNoDetails) {
			e.log.Debug().Err(err).Str("id", id).Msg("App details lookup failed")
		}
		return original, final, discount
	}
	if details == nil || details.PriceOverview == nil {
		return original, final, discount
	}

	overview := details.PriceOverview
	if overview.DiscountPercent > 0 {
		discount = overview.DiscountPercent
	}
	return overview.Initial, overview.Final, discount
}

func (e *Extractor) isHighValue(name string) bool {
	return e.highValue[normalizeName(name)]
}

func (e *Extractor) dump(name, markup string) {
	if !e.debug || e.dumper == nil {
		return
	}
	path, err := e.dumper.Dump(name, markup)
	if err != nil {
		e.log.Warn().Err(err).Msg("Failed to save debug dump")
		return
	}
	e.log.Debug().Str("path", path).Msg("Saved page for debugging")
}

// applyHandlers returns the first non-empty handler result
func applyHandlers(s *goquery.Selection, handlers []ElementHandler) string {
	for _, handler := range handlers {
		if handler == nil {
			continue
		}
		if result := handler(s); result != "" {
			return result
		}
	}
	return ""
}

// textHandlers builds one handler per selector returning the first match's trimmed text
func textHandlers(selectors []string) []ElementHandler {
	handlers := make([]ElementHandler, 0, len(selectors))
	for _, selector := range selectors {
		selector := selector
		handlers = append(handlers, func(s *goquery.Selection) string {
			return strings.TrimSpace(s.Find(selector).First().Text())
		})
	}
	return handlers
}

// parseDiscount turns "-75%" into 75; anything outside 1..100 yields 0
func parseDiscount(text string) int {
	cleaned := strings.NewReplacer("-", "", "%", "", " ", "", "\u00a0", "").Replace(strings.TrimSpace(text))
	pct, err := strconv.Atoi(cleaned)
	if err != nil || pct <= 0 || pct > 100 {
		return 0
	}
	return pct
}

// normalizeName folds case and unicode forms for allow-list comparison
func normalizeName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(norm.NFKC.String(name)), " "))
}
