package report

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"sjsage522/steamsales/internal/crawler"
	"sjsage522/steamsales/logger"
	"sjsage522/steamsales/services/worker"
)

const (
	// DefaultMaxItems is how many entries a listing shows unless ShowAll is set
	DefaultMaxItems = 25
	// DefaultTitle heads the listing
	DefaultTitle = "DISCOUNTED GAMES"

	newItemsMax = 25
	topItemsMax = 10
)

// RenderOptions controls a console listing
type RenderOptions struct {
	MinDiscount int
	MaxItems    int
	ShowAll     bool
	Title       string
}

// Reporter renders listings to an output stream
type Reporter struct {
	out    io.Writer
	appURL string
	log    *logger.Logger
}

// NewReporter creates a reporter writing to out; appURL prefixes item ids in links
func NewReporter(out io.Writer, appURL string) *Reporter {
	return &Reporter{
		out:    out,
		appURL: appURL,
		log:    logger.ForReporter(),
	}
}

// SortByDiscount returns a copy of items ordered by discount, highest first, ties in input order
func SortByDiscount(items []crawler.DiscountedItem) []crawler.DiscountedItem {
	sorted := make([]crawler.DiscountedItem, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].DiscountPercent > sorted[j].DiscountPercent
	})
	return sorted
}

// Render formats items as a numbered listing
func (r *Reporter) Render(items []crawler.DiscountedItem, opts RenderOptions) string {
	if len(items) == 0 {
		return "No discounted games found.\n"
	}
	if opts.MaxItems <= 0 {
		opts.MaxItems = DefaultMaxItems
	}
	if opts.Title == "" {
		opts.Title = DefaultTitle
	}

	filtered := items
	if opts.MinDiscount > 0 {
		filtered = nil
		for _, item := range items {
			if item.DiscountPercent >= opts.MinDiscount {
				filtered = append(filtered, item)
			}
		}
	}

	sorted := SortByDiscount(filtered)
	shown := sorted
	if !opts.ShowAll && len(shown) > opts.MaxItems {
		shown = shown[:opts.MaxItems]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "\n===== %s (Sorted by Highest Discount) =====\n", opts.Title)
	fmt.Fprintf(&b, "Showing %d of %d games found\n\n", len(shown), len(sorted))

	for i, item := range shown {
		savings := ""
		if item.OriginalPrice > 0 && item.FinalPrice > 0 {
			savings = fmt.Sprintf(" (Save %s)", crawler.FormatAmount(item.OriginalPrice-item.FinalPrice))
		}

		fmt.Fprintf(&b, "%d. %s\n", i+1, item.Name)
		fmt.Fprintf(&b, "   Discount: %d%%%s\n", item.DiscountPercent, savings)
		fmt.Fprintf(&b, "   Original price: %s\n", crawler.FormatPrice(item.OriginalPrice))
		fmt.Fprintf(&b, "   Sale price: %s\n", crawler.FormatPrice(item.FinalPrice))
		fmt.Fprintf(&b, "   Link: %s\n\n", r.Link(item.ID))
	}
	return b.String()
}

// Link builds the store page URL for an app id
func (r *Reporter) Link(id string) string {
	if id == "" {
		return "Not available"
	}
	return r.appURL + id
}

// Print writes a listing to the reporter's output
func (r *Reporter) Print(items []crawler.DiscountedItem, opts RenderOptions) {
	r.write(r.Render(items, opts))
}

// ReportBatch prints the items new in this batch and the best discounts so far
func (r *Reporter) ReportBatch(batch worker.BatchResult) {
	var b strings.Builder
	fmt.Fprintf(&b, "\n----- BATCH %d RESULTS (pages %d-%d of %d) -----\n", batch.Number, batch.FirstPage, batch.LastPage, batch.MaxPages)
	fmt.Fprintf(&b, "Total unique games found: %d\n", len(batch.AllItems))
	fmt.Fprintf(&b, "New games in this batch: %d\n", len(batch.NewItems))

	if len(batch.NewItems) > 0 {
		b.WriteString(r.Render(batch.NewItems, RenderOptions{MaxItems: newItemsMax, Title: "NEW GAMES FROM THIS BATCH"}))
		b.WriteString(r.Render(batch.AllItems, RenderOptions{MaxItems: topItemsMax, Title: "TOP OVERALL DISCOUNTS"}))
	} else {
		b.WriteString("\nNo new games found in this batch.\n")
		b.WriteString(r.Render(batch.AllItems, RenderOptions{MaxItems: DefaultMaxItems}))
	}

	r.write(b.String())
}

func (r *Reporter) write(s string) {
	if _, err := io.WriteString(r.out, s); err != nil {
		r.log.Warn().Err(err).Msg("Failed to write report to console")
	}
}
