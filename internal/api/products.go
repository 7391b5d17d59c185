package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/lukman83/mhe-storefront/internal/models"
)

// ProductQuery filters the product list.
type ProductQuery struct {
	Search       string
	CategoryName string
}

func (q ProductQuery) values() url.Values {
	v := url.Values{}
	if q.Search != "" {
		v.Set("search", q.Search)
	}
	if q.CategoryName != "" {
		v.Set("category_name", q.CategoryName)
	}
	return v
}

// GetProduct fetches one product by id.
func (c *Client) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	body, err := c.do(ctx, request{method: http.MethodGet, path: idPath("/products/", id)})
	if err != nil {
		return nil, err
	}
	var p models.Product
	if err := c.decodeEntity(body, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// ListProducts returns products matching q.
func (c *Client) ListProducts(ctx context.Context, q ProductQuery) ([]models.Product, error) {
	body, err := c.do(ctx, request{method: http.MethodGet, path: "/products/", query: q.values()})
	if err != nil {
		return nil, err
	}
	return decodeList[models.Product](c, body)
}
