package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/lukman83/mhe-storefront/internal/models"
)

// ListCart returns every cart item of userID, across all pages.
func (c *Client) ListCart(ctx context.Context, userID int64) ([]models.CartItem, error) {
	q := url.Values{}
	q.Set("user", strconv.FormatInt(userID, 10))
	return listAll[models.CartItem](ctx, c, request{method: http.MethodGet, path: "/cart/", query: q})
}

// FindCartItem returns the cart item for (userID, productID), or nil when
// the product is not in the cart. Results are re-filtered locally in case
// the server ignores the query parameters.
func (c *Client) FindCartItem(ctx context.Context, userID, productID int64) (*models.CartItem, error) {
	q := url.Values{}
	q.Set("product", strconv.FormatInt(productID, 10))
	q.Set("user", strconv.FormatInt(userID, 10))
	body, err := c.do(ctx, request{method: http.MethodGet, path: "/cart/", query: q})
	if err != nil {
		return nil, err
	}
	items, err := decodeList[models.CartItem](c, body)
	if err != nil {
		return nil, err
	}
	for i := range items {
		if items[i].Product.ID == productID && (items[i].User == 0 || items[i].User == userID) {
			return &items[i], nil
		}
	}
	return nil, nil
}

type cartCreate struct {
	Product  int64 `json:"product"`
	Quantity int   `json:"quantity"`
}

// CreateCartItem adds productID to the caller's cart.
func (c *Client) CreateCartItem(ctx context.Context, productID int64, quantity int) (*models.CartItem, error) {
	r, err := jsonRequest(http.MethodPost, "/cart/", cartCreate{Product: productID, Quantity: quantity})
	if err != nil {
		return nil, err
	}
	body, err := c.do(ctx, r)
	if err != nil {
		return nil, err
	}
	var item models.CartItem
	if err := c.decodeEntity(body, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

type cartQuantity struct {
	Quantity int `json:"quantity"`
}

// UpdateCartQuantity sets the absolute quantity of a cart item.
func (c *Client) UpdateCartQuantity(ctx context.Context, itemID int64, quantity int) error {
	r, err := jsonRequest(http.MethodPatch, idPath("/cart/", itemID), cartQuantity{Quantity: quantity})
	if err != nil {
		return err
	}
	_, err = c.do(ctx, r)
	return err
}

// DeleteCartItem removes a cart item by its cart-item id.
func (c *Client) DeleteCartItem(ctx context.Context, itemID int64) error {
	_, err := c.do(ctx, request{method: http.MethodDelete, path: idPath("/cart/", itemID)})
	return err
}
