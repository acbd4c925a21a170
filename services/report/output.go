package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"sjsage522/steamsales/internal/crawler"
	apperrors "sjsage522/steamsales/pkg/errors"

	"github.com/jedib0t/go-pretty/v6/table"
)

const (
	// TopDiscountsMax bounds the top_discounts list of the JSON report
	TopDiscountsMax = 50

	timestampLayout  = "20060102_150405"
	searchDateLayout = "2006-01-02 15:04:05"
)

// Results is the "results" object of the JSON report
type Results struct {
	AllGames     []crawler.DiscountedItem `json:"all_games"`
	ByDiscount   Buckets                  `json:"by_discount"`
	TopDiscounts []crawler.DiscountedItem `json:"top_discounts"`
}

// JSONReport is the machine-readable output of a run
type JSONReport struct {
	Timestamp  string  `json:"timestamp"`
	TotalGames int     `json:"total_games"`
	SearchDate string  `json:"search_date"`
	Results    Results `json:"results"`
}

// BuildJSONReport groups items for output; all_games and by_discount keep discovery order
func BuildJSONReport(items []crawler.DiscountedItem, now time.Time) *JSONReport {
	all := make([]crawler.DiscountedItem, len(items))
	copy(all, items)

	top := SortByDiscount(items)
	if len(top) > TopDiscountsMax {
		top = top[:TopDiscountsMax]
	}

	return &JSONReport{
		Timestamp:  now.Format(timestampLayout),
		TotalGames: len(all),
		SearchDate: now.Format(searchDateLayout),
		Results: Results{
			AllGames:     all,
			ByDiscount:   GroupByBand(all, JSONBands),
			TopDiscounts: top,
		},
	}
}

// JSONFileName is the report file name for a run timestamp
func JSONFileName(timestamp string) string {
	return fmt.Sprintf("steam_sales_%s.json", timestamp)
}

// TextFileName is the text report file name for a run timestamp
func TextFileName(timestamp string) string {
	return fmt.Sprintf("steam_sales_%s.txt", timestamp)
}

// WriteJSON writes the report into dir and returns the file path
func WriteJSON(dir string, report *JSONReport) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(report); err != nil {
		return "", apperrors.NewPersistence(dir, "failed to encode json report", err)
	}

	path := filepath.Join(dir, JSONFileName(report.Timestamp))
	if err := writeFile(path, buf.Bytes()); err != nil {
		return "", err
	}
	return path, nil
}

// WriteText writes the human-readable report into dir and returns the file path.
// Each band lists its games by highest discount.
func (r *Reporter) WriteText(dir string, report *JSONReport) (string, error) {
	rule := strings.Repeat("=", 50)

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n            STEAM SALES LİST\n%s\n", rule, rule)
	fmt.Fprintf(&b, "Tarih: %s\n", report.SearchDate)
	fmt.Fprintf(&b, "Toplam İndirimli Oyun Sayısı: %d\n\n", report.TotalGames)

	for _, bucket := range GroupByBand(SortByDiscount(report.Results.AllGames), TextBands) {
		if len(bucket.Items) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n%s\n%s - %d Oyun\n%s\n\n", rule, bucket.Label, len(bucket.Items), rule)
		for i, item := range bucket.Items {
			fmt.Fprintf(&b, "%d. Oyun Adı: %s\n", i+1, item.Name)
			fmt.Fprintf(&b, "   İndirim Oranı: %%%d\n", item.DiscountPercent)
			fmt.Fprintf(&b, "   Orijinal Fiyatı: %s\n", crawler.FormatPrice(item.OriginalPrice))
			fmt.Fprintf(&b, "   İndirimli Fiyatı: %s\n", crawler.FormatPrice(item.FinalPrice))
			if item.ID != "" {
				fmt.Fprintf(&b, "   Link: %s\n", r.Link(item.ID))
			}
			b.WriteString("\n")
		}
	}

	path := filepath.Join(dir, TextFileName(report.Timestamp))
	if err := writeFile(path, []byte(b.String())); err != nil {
		return "", err
	}
	return path, nil
}

// RenderSummary draws a table of game counts per discount band
func RenderSummary(items []crawler.DiscountedItem) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Discount", "Games"})
	for _, bucket := range GroupByBand(items, JSONBands) {
		t.AppendRow(table.Row{bucket.Label, len(bucket.Items)})
	}
	t.AppendFooter(table.Row{"Total", len(items)})
	return t.Render()
}

func writeFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return apperrors.NewPersistence(path, "failed to create output directory", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return apperrors.NewPersistence(path, "failed to write file", err)
	}
	return nil
}
