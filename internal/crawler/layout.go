package crawler

import (
	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// DefaultLayouts are tried in order; the first yielding any candidate wins.
var DefaultLayouts = []LayoutStrategy{
	{Name: "results_rows", Find: selectorLayout("#search_resultsRows > a")},
	{Name: "result_row", Find: selectorLayout(".search_result_row")},
	{Name: "appid_attribute", Find: selectorLayout("[data-ds-appid]")},
	{Name: "name_combined", Find: selectorLayout("div.responsive_search_name_combined")},
	{Name: "discount_badge", Find: discountBadgeLayout},
}

// DefaultSelectors mirrors the store search markup
var DefaultSelectors = Selectors{
	IDAttributes:   []string{"data-ds-appid", "data-appid"},
	Name:           []string{".title", ".responsive_search_name_combined .search_name", ".search_name", "span.title"},
	Discount:       []string{".discount_pct", ".discount_block .discount_pct", ".search_discount span"},
	PriceContainer: []string{".search_price", ".discount_block", ".discount_prices"},
	OriginalPrice:  ".discount_original_price, .original_price, strike",
	FinalPrice:     ".discount_final_price, .discount_price",
}

func selectorLayout(selector string) func(doc *goquery.Document) *goquery.Selection {
	return func(doc *goquery.Document) *goquery.Selection {
		return doc.Find(selector)
	}
}

// discountBadgeLayout walks from each discount badge up to its enclosing link
func discountBadgeLayout(doc *goquery.Document) *goquery.Selection {
	var links []*html.Node
	seen := make(map[*html.Node]bool)

	doc.Find("div.discount_pct").Each(func(_ int, badge *goquery.Selection) {
		parent := badge.ParentsFiltered("a").First()
		if parent.Length() == 0 {
			return
		}
		node := parent.Get(0)
		if !seen[node] {
			seen[node] = true
			links = append(links, node)
		}
	})

	if len(links) == 0 {
		return nil
	}
	return doc.FindNodes(links...)
}

// detectLayout returns the first strategy's non-empty candidate set
func detectLayout(doc *goquery.Document, layouts []LayoutStrategy) (string, *goquery.Selection) {
	for _, layout := range layouts {
		if found := layout.Find(doc); found != nil && found.Length() > 0 {
			return layout.Name, found
		}
	}
	return "", nil
}
