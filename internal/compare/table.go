package compare

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/lukman83/mhe-storefront/internal/models"
)

const (
	// MaskedPrice is shown instead of a hidden or missing price.
	MaskedPrice = "Price on request"
	// Missing is shown for absent plain-text values.
	Missing = "-"
)

// Field is one comparable row: a label, the snapshot key it reads and the
// formatter that renders it.
type Field struct {
	Label  string
	Key    string
	Format func(models.CompareEntry) string
}

// Fields drives both the header and the body of the comparison table.
var Fields = []Field{
	{Label: "Price", Key: "price", Format: FormatPrice},
	{Label: "Category", Key: "category_name", Format: func(e models.CompareEntry) string { return orMissing(e.CategoryName) }},
	{Label: "Manufacturer", Key: "manufacturer", Format: func(e models.CompareEntry) string { return orMissing(e.Manufacturer) }},
	{Label: "Model", Key: "model", Format: func(e models.CompareEntry) string { return orMissing(e.Model) }},
	{Label: "Ratings", Key: "ratings", Format: FormatRatings},
	{Label: "Purchase", Key: "direct_sale", Format: FormatPurchase},
}

// Column is the header cell of one compared product.
type Column struct {
	ID       int64  `json:"id"`
	Title    string `json:"title"`
	Subtitle string `json:"subtitle,omitempty"`
	Image    string `json:"image,omitempty"`
}

type Row struct {
	Label string   `json:"label"`
	Key   string   `json:"key"`
	Cells []string `json:"cells"`
}

type Table struct {
	Columns []Column `json:"columns"`
	Rows    []Row    `json:"rows"`
}

// BuildTable projects up to maxColumns entries through Fields.
func BuildTable(entries []models.CompareEntry, maxColumns int) Table {
	if maxColumns <= 0 {
		maxColumns = DefaultMaxEntries
	}
	if len(entries) > maxColumns {
		entries = entries[:maxColumns]
	}

	t := Table{Columns: make([]Column, 0, len(entries))}
	for _, e := range entries {
		t.Columns = append(t.Columns, Column{ID: e.ID, Title: e.Title, Subtitle: e.Subtitle, Image: e.Image})
	}
	for _, f := range Fields {
		row := Row{Label: f.Label, Key: f.Key, Cells: make([]string, 0, len(entries))}
		for _, e := range entries {
			row.Cells = append(row.Cells, f.Format(e))
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// FormatPrice renders the price with its currency, or MaskedPrice when the
// price is hidden, absent or not positive.
func FormatPrice(e models.CompareEntry) string {
	if e.HidePrice || e.Price == nil || *e.Price <= 0 {
		return MaskedPrice
	}
	return FormatAmount(*e.Price, e.Currency)
}

// FormatAmount formats n with the symbol for currency. Rupee amounts use
// lakh/crore grouping ("₹ 12,50,000"), everything else groups by
// thousands. Paise/cents are shown only when present.
func FormatAmount(n float64, currency string) string {
	whole := int64(math.Floor(n))
	frac := int64(math.Round((n - float64(whole)) * 100))
	if frac == 100 {
		whole++
		frac = 0
	}

	digits := strconv.FormatInt(whole, 10)
	var grouped string
	switch strings.ToUpper(currency) {
	case "", "INR":
		grouped = groupIndian(digits)
	default:
		grouped = groupThousands(digits)
	}
	if frac > 0 {
		grouped += fmt.Sprintf(".%02d", frac)
	}
	return currencySymbol(currency) + " " + grouped
}

func currencySymbol(currency string) string {
	switch strings.ToUpper(currency) {
	case "", "INR":
		return "₹"
	case "USD":
		return "$"
	case "EUR":
		return "€"
	default:
		return strings.ToUpper(currency)
	}
}

func groupThousands(s string) string {
	if len(s) <= 3 {
		return s
	}
	var parts []string
	for len(s) > 3 {
		parts = append([]string{s[len(s)-3:]}, parts...)
		s = s[:len(s)-3]
	}
	parts = append([]string{s}, parts...)
	return strings.Join(parts, ",")
}

// groupIndian groups the last three digits, then pairs: 1,25,00,000.
func groupIndian(s string) string {
	if len(s) <= 3 {
		return s
	}
	head, tail := s[:len(s)-3], s[len(s)-3:]
	var parts []string
	for len(head) > 2 {
		parts = append([]string{head[len(head)-2:]}, parts...)
		head = head[:len(head)-2]
	}
	parts = append([]string{head}, parts...)
	return strings.Join(parts, ",") + "," + tail
}

// FormatRatings renders a 0-5 rating as star glyphs followed by the value.
func FormatRatings(e models.CompareEntry) string {
	if e.Ratings == nil {
		return "No ratings"
	}
	r := math.Max(0, math.Min(5, *e.Ratings))
	full := int(math.Round(r))
	return strings.Repeat("★", full) + strings.Repeat("☆", 5-full) + fmt.Sprintf(" (%.1f)", r)
}

// FormatPurchase tells direct-sale products apart from quote/rental-only
// ones.
func FormatPurchase(e models.CompareEntry) string {
	if e.DirectSale {
		return "Buy online"
	}
	return "Quote / rental"
}

func orMissing(s string) string {
	if strings.TrimSpace(s) == "" {
		return Missing
	}
	return s
}
