package crawler

import (
	"math"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// PlaceholderPriceDisplay is shown instead of a non-positive price
const PlaceholderPriceDisplay = "$9.99"

var (
	// first numeric token, `.` or `,` as decimal separator
	priceTokenRegex = regexp.MustCompile(`(\d+(?:[.,]\d+)?)`)

	hundred = decimal.NewFromInt(100)

	maxMinor = decimal.NewFromInt(math.MaxInt64)
)

// ParsePrice extracts the first amount in text and returns it in minor units.
// Unparseable or empty input yields 0.
func ParsePrice(text string) int64 {
	text = strings.TrimSpace(strings.ReplaceAll(text, "\u00a0", " "))
	if text == "" {
		return 0
	}

	match := priceTokenRegex.FindString(text)
	if match == "" {
		return 0
	}
	return tokenToMinor(match)
}

// tokenToMinor converts "100,99" or "100.99" into 10099.
// Amounts that do not fit in int64 minor units yield 0.
func tokenToMinor(token string) int64 {
	amount, err := decimal.NewFromString(strings.Replace(token, ",", ".", 1))
	if err != nil {
		return 0
	}
	minor := amount.Mul(hundred)
	if minor.GreaterThan(maxMinor) {
		return 0
	}
	return minor.IntPart()
}

// FormatPrice renders minor units as a major-unit amount with two decimals
func FormatPrice(minor int64) string {
	if minor <= 0 {
		return PlaceholderPriceDisplay
	}
	return "$" + decimal.New(minor, -2).StringFixed(2)
}

// FormatAmount renders a signed minor-unit amount without placeholder substitution
func FormatAmount(minor int64) string {
	return "$" + decimal.New(minor, -2).StringFixed(2)
}

// currencyTokenRegex matches amounts tagged with glyph, e.g. "₺ 100,00"
func currencyTokenRegex(glyph string) *regexp.Regexp {
	return regexp.MustCompile(regexp.QuoteMeta(glyph) + `\s*(\d+(?:[.,]\d+)?)`)
}

// findCurrencyAmounts returns every glyph-tagged amount in text, in minor units
func findCurrencyAmounts(re *regexp.Regexp, text string) []int64 {
	text = strings.ReplaceAll(text, "\u00a0", " ")
	var amounts []int64
	for _, m := range re.FindAllStringSubmatch(text, -1) {
		amounts = append(amounts, tokenToMinor(m[1]))
	}
	return amounts
}

// originalFromFinal derives the undiscounted price: final / (1 - discount/100).
// Returns 0 when the discount leaves nothing to divide by.
func originalFromFinal(final int64, discount int) int64 {
	if final <= 0 || discount <= 0 || discount >= 100 {
		return 0
	}
	remaining := decimal.NewFromInt(int64(100 - discount)).Div(hundred)
	return decimal.NewFromInt(final).Div(remaining).IntPart()
}

// finalFromOriginal derives the discounted price: original * (1 - discount/100)
func finalFromOriginal(original int64, discount int) int64 {
	if original <= 0 {
		return 0
	}
	remaining := decimal.NewFromInt(int64(100 - discount)).Div(hundred)
	return decimal.NewFromInt(original).Mul(remaining).IntPart()
}
