package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/lukman83/mhe-storefront/internal/cardsync"
	"github.com/lukman83/mhe-storefront/internal/compare"
	"github.com/lukman83/mhe-storefront/internal/models"
	"github.com/lukman83/mhe-storefront/internal/storefront"
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printProduct prints a product card in a human-friendly layout.
func printProduct(w io.Writer, p models.Product, s cardsync.State, currency, link string) {
	fmt.Fprintf(w, " %s\n", p.Name)

	priceLine := "    Price: " + compare.FormatPrice(compare.Snapshot(p, currency))
	if p.Manufacturer != "" {
		priceLine += "  |  " + p.Manufacturer
		if p.Model != "" {
			priceLine += " " + p.Model
		}
	}
	fmt.Fprintln(w, priceLine)

	if p.CategoryName != "" {
		cat := p.CategoryName
		if p.SubcategoryName != "" {
			cat += " › " + p.SubcategoryName
		}
		fmt.Fprintf(w, "    Category: %s\n", cat)
	}
	fmt.Fprintf(w, "    %s\n", compare.FormatPurchase(compare.Snapshot(p, currency)))
	if p.StockQuantity > 0 {
		fmt.Fprintf(w, "    In stock: %d\n", p.StockQuantity)
	}
	if desc := compare.PlainText(p.Description); desc != "" {
		fmt.Fprintf(w, "    %s\n", truncate(desc, 200))
	}

	var tags []string
	if s.InCart {
		tags = append(tags, fmt.Sprintf("[In cart ×%d]", s.Quantity))
	}
	if s.Wishlisted {
		tags = append(tags, "[Wishlisted]")
	}
	if s.Diverged {
		tags = append(tags, "[Out of sync]")
	}
	if len(tags) > 0 {
		fmt.Fprintf(w, "    %s\n", strings.Join(tags, " "))
	}
	fmt.Fprintf(w, "    %s\n", link)
}

func printCart(w io.Writer, lines []storefront.CartLine, currency string) {
	if len(lines) == 0 {
		fmt.Fprintln(w, "Your cart is empty.")
		return
	}
	var total float64
	for i, l := range lines {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, " %d. %s  ×%d\n", i+1, l.Product.Name, l.Item.Quantity)
		line := l.Item.TotalPrice
		if line == 0 && !l.Product.HidePrice {
			line = l.Product.Price * float64(l.Item.Quantity)
		}
		if line > 0 {
			total += line
			fmt.Fprintf(w, "    %s  (product %d)\n", compare.FormatAmount(line, currency), l.Product.ID)
		} else {
			fmt.Fprintf(w, "    %s  (product %d)\n", compare.MaskedPrice, l.Product.ID)
		}
	}
	fmt.Fprintf(w, "\n Total: %s\n", compare.FormatAmount(total, currency))
}

// printCompareTable renders the comparison as aligned text columns.
func printCompareTable(w io.Writer, t compare.Table) {
	if len(t.Columns) == 0 {
		fmt.Fprintln(w, "No products to compare. Add one with `mhestore compare add <id>`.")
		return
	}
	const labelWidth, cellWidth = 14, 26

	header := fmt.Sprintf("%-*s", labelWidth, "")
	for _, c := range t.Columns {
		header += fmt.Sprintf(" %-*s", cellWidth, truncate(c.Title, cellWidth))
	}
	fmt.Fprintln(w, strings.TrimRight(header, " "))
	fmt.Fprintln(w, strings.Repeat("─", labelWidth+(cellWidth+1)*len(t.Columns)))

	for _, r := range t.Rows {
		line := fmt.Sprintf("%-*s", labelWidth, r.Label)
		for _, cell := range r.Cells {
			line += fmt.Sprintf(" %-*s", cellWidth, truncate(cell, cellWidth))
		}
		fmt.Fprintln(w, strings.TrimRight(line, " "))
	}
}

func printAddresses(w io.Writer, list []models.Address, selected string) {
	if len(list) == 0 {
		fmt.Fprintln(w, "No saved addresses.")
		return
	}
	for i, a := range list {
		if i > 0 {
			fmt.Fprintln(w)
		}
		mark := " "
		if a.ID == selected {
			mark = "*"
		}
		fmt.Fprintf(w, "%s %d. %s [%s]  id %s\n", mark, i+1, a.Name, a.Type, a.ID)
		fmt.Fprintf(w, "    %s, %s, %s %s\n", a.Address, a.City, a.State, a.Pincode)
		fmt.Fprintf(w, "    Phone: %s\n", a.Phone)
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
