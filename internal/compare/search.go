package compare

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/lukman83/mhe-storefront/internal/api"
	"github.com/lukman83/mhe-storefront/internal/models"
	"github.com/lukman83/mhe-storefront/internal/notify"
)

// MinQueryLength is the shortest query that reaches the API.
const MinQueryLength = 2

// ProductLister is the slice of the API client the search modal needs.
type ProductLister interface {
	ListProducts(ctx context.Context, q api.ProductQuery) ([]models.Product, error)
}

// Searcher backs the search-to-add flow of the comparison page.
type Searcher struct {
	products ProductLister
	set      *Set
	currency string
}

func NewSearcher(products ProductLister, set *Set, currency string) *Searcher {
	return &Searcher{products: products, set: set, currency: currency}
}

// Search returns active products matching query, restricted to the locked
// category when the set has one. Queries shorter than MinQueryLength
// return nothing without a request.
func (s *Searcher) Search(ctx context.Context, query string) ([]models.Product, error) {
	query = strings.TrimSpace(query)
	if utf8.RuneCountInString(query) < MinQueryLength {
		return nil, nil
	}
	locked, _, err := s.set.LockedCategory(ctx)
	if err != nil {
		return nil, err
	}

	notify.ReportProgress(ctx, fmt.Sprintf("Searching %q...", query))
	products, err := s.products.ListProducts(ctx, api.ProductQuery{Search: query, CategoryName: locked})
	if err != nil {
		return nil, fmt.Errorf("search products: %w", err)
	}

	out := products[:0]
	for _, p := range products {
		if p.IsActive {
			out = append(out, p)
		}
	}
	return out, nil
}

// Add inserts a search result. The category gate is checked again here in
// case the server ignored the category filter.
func (s *Searcher) Add(ctx context.Context, p models.Product) error {
	locked, isLocked, err := s.set.LockedCategory(ctx)
	if err != nil {
		return err
	}
	if isLocked && locked != p.CategoryName {
		return &CategoryMismatchError{Locked: locked, Got: p.CategoryName}
	}
	return s.set.Add(ctx, Snapshot(p, s.currency))
}
