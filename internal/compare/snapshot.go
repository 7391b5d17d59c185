package compare

import (
	"strings"

	"github.com/lukman83/mhe-storefront/internal/models"
	"golang.org/x/net/html"
)

const subtitleRunes = 120

// Snapshot denormalises p into a comparison entry. A hidden price never
// makes it into the snapshot.
func Snapshot(p models.Product, currency string) models.CompareEntry {
	e := models.CompareEntry{
		ID:           p.ID,
		Image:        p.PrimaryImage(),
		Title:        p.Name,
		Subtitle:     truncate(PlainText(p.Description), subtitleRunes),
		Currency:     currency,
		HidePrice:    p.HidePrice,
		DirectSale:   p.DirectSale,
		CategoryName: p.CategoryName,
		Manufacturer: p.Manufacturer,
		Model:        p.Model,
	}
	if !p.HidePrice {
		price := p.Price
		e.Price = &price
	}
	if p.AverageRating != nil {
		r := *p.AverageRating
		e.Ratings = &r
	}
	return e
}

// PlainText strips markup from rich-text descriptions and collapses
// whitespace. Input that is not HTML comes back with whitespace collapsed.
func PlainText(s string) string {
	if s == "" {
		return ""
	}
	var b strings.Builder
	z := html.NewTokenizer(strings.NewReader(s))
	skip := 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			return strings.Join(strings.Fields(b.String()), " ")
		case html.StartTagToken:
			name, _ := z.TagName()
			switch string(name) {
			case "script", "style":
				skip++
			case "br", "p", "li", "div":
				b.WriteByte(' ')
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			switch string(name) {
			case "script", "style":
				if skip > 0 {
					skip--
				}
			case "p", "li", "div":
				b.WriteByte(' ')
			}
		case html.TextToken:
			if skip == 0 {
				b.Write(z.Text())
			}
		}
	}
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	if max <= 3 {
		return string(r[:max])
	}
	return string(r[:max-3]) + "..."
}
