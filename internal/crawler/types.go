package crawler

import (
	"context"
	"errors"

	"github.com/PuerkitoBio/goquery"
)

// DiscountedItem represents one sale item scraped from the search pages
type DiscountedItem struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	DiscountPercent int    `json:"discount_percent"`
	OriginalPrice   int64  `json:"original_price"`
	FinalPrice      int64  `json:"final_price"`
}

// PriceOverview is the authoritative pricing block of an app-details response
type PriceOverview struct {
	Currency        string `json:"currency"`
	Initial         int64  `json:"initial"`
	Final           int64  `json:"final"`
	DiscountPercent int    `json:"discount_percent"`
}

// AppDetails is the subset of the app-details payload the extractor consumes
type AppDetails struct {
	Name          string         `json:"name"`
	PriceOverview *PriceOverview `json:"price_overview,omitempty"`
}

// PageFetcher retrieves raw search markup for a page number
type PageFetcher interface {
	FetchSearchPage(ctx context.Context, page int) (string, error)
}

// DetailLookup retrieves authoritative pricing for an app
type DetailLookup interface {
	AppDetails(ctx context.Context, appID string) (*AppDetails, error)
}

var (
	// ErrMissingID marks a candidate without a resolvable identifier
	ErrMissingID = errors.New("no app id")
	// ErrMissingDiscount marks a candidate without a positive discount
	ErrMissingDiscount = errors.New("no discount")
	// ErrNoFinalPrice marks a candidate whose sale price resolves to zero
	ErrNoFinalPrice = errors.New("no final price")
	// ErrNoDetails is returned when the details endpoint has no data for an app
	ErrNoDetails = errors.New("no app details")
)

// LayoutStrategy locates candidate elements for one known page layout
type LayoutStrategy struct {
	Name string
	Find func(doc *goquery.Document) *goquery.Selection
}

// ElementHandler extracts a string value from a candidate, "" meaning not found
type ElementHandler func(s *goquery.Selection) string

// Selectors contains the ordered selector chains used per field
type Selectors struct {
	IDAttributes   []string
	Name           []string
	Discount       []string
	PriceContainer []string
	OriginalPrice  string
	FinalPrice     string
}

// candidateResult is the outcome of extracting a single candidate
type candidateResult struct {
	item DiscountedItem
	err  error
}
