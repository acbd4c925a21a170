package report

import (
	"bytes"
	"encoding/json"

	"sjsage522/steamsales/internal/crawler"
)

// Band is a closed discount range
type Band struct {
	Label string
	Min   int
	Max   int
}

// Contains reports whether discount falls in the band
func (b Band) Contains(discount int) bool {
	return discount >= b.Min && discount <= b.Max
}

// JSONBands partition the run for the machine-readable report
var JSONBands = []Band{
	{Label: "90-100%", Min: 90, Max: 100},
	{Label: "80-89%", Min: 80, Max: 89},
	{Label: "70-79%", Min: 70, Max: 79},
	{Label: "60-69%", Min: 60, Max: 69},
	{Label: "50-59%", Min: 50, Max: 59},
	{Label: "40-49%", Min: 40, Max: 49},
	{Label: "30-39%", Min: 30, Max: 39},
	{Label: "20-29%", Min: 20, Max: 29},
	{Label: "10-19%", Min: 10, Max: 19},
	{Label: "1-9%", Min: 1, Max: 9},
}

// TextBands group the human-readable report
var TextBands = []Band{
	{Label: "İNANILMAZ İNDİRİMLER (%90 - %100)", Min: 90, Max: 100},
	{Label: "BÜYÜK İNDİRİMLER (%80 - %89)", Min: 80, Max: 89},
	{Label: "İYİ İNDİRİMLER (%70 - %79)", Min: 70, Max: 79},
	{Label: "MAKUL İNDİRİMLER (%60 - %69)", Min: 60, Max: 69},
	{Label: "ORTA İNDİRİMLER (%50 - %59)", Min: 50, Max: 59},
	{Label: "KÜÇÜK İNDİRİMLER (%40 - %49)", Min: 40, Max: 49},
	{Label: "DİĞER İNDİRİMLER (<%40)", Min: 1, Max: 39},
}

// Bucket holds the items of one band
type Bucket struct {
	Band
	Items []crawler.DiscountedItem
}

// Buckets is an ordered band -> items view; it encodes as a JSON object in band order
type Buckets []Bucket

// GroupByBand partitions items into bands, keeping input order within each band.
// Items outside every band are dropped.
func GroupByBand(items []crawler.DiscountedItem, bands []Band) Buckets {
	buckets := make(Buckets, len(bands))
	for i, band := range bands {
		buckets[i] = Bucket{Band: band, Items: []crawler.DiscountedItem{}}
	}
	for _, item := range items {
		for i := range buckets {
			if buckets[i].Contains(item.DiscountPercent) {
				buckets[i].Items = append(buckets[i].Items, item)
				break
			}
		}
	}
	return buckets
}

// MarshalJSON writes {"<label>": [...], ...} keeping band order
func (b Buckets) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, bucket := range b {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(bucket.Label)
		if err != nil {
			return nil, err
		}
		items := bucket.Items
		if items == nil {
			items = []crawler.DiscountedItem{}
		}
		value, err := json.Marshal(items)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
