package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/lukman83/mhe-storefront/internal/models"
)

// FindWishlistItem returns the wishlist entry for (userID, productID), or
// nil when there is none. The API has no delete-by-product, so this lookup
// precedes every removal.
func (c *Client) FindWishlistItem(ctx context.Context, userID, productID int64) (*models.WishlistItem, error) {
	q := url.Values{}
	q.Set("product", strconv.FormatInt(productID, 10))
	q.Set("user", strconv.FormatInt(userID, 10))
	body, err := c.do(ctx, request{method: http.MethodGet, path: "/wishlist/", query: q})
	if err != nil {
		return nil, err
	}
	items, err := decodeList[models.WishlistItem](c, body)
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

type wishlistCreate struct {
	Product int64 `json:"product"`
}

// CreateWishlistItem adds productID to the caller's wishlist.
func (c *Client) CreateWishlistItem(ctx context.Context, productID int64) (*models.WishlistItem, error) {
	r, err := jsonRequest(http.MethodPost, "/wishlist/", wishlistCreate{Product: productID})
	if err != nil {
		return nil, err
	}
	body, err := c.do(ctx, r)
	if err != nil {
		return nil, err
	}
	var item models.WishlistItem
	if err := c.decodeEntity(body, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// DeleteWishlistItem removes a wishlist entry by its wishlist-item id.
func (c *Client) DeleteWishlistItem(ctx context.Context, itemID int64) error {
	_, err := c.do(ctx, request{method: http.MethodDelete, path: idPath("/wishlist/", itemID)})
	return err
}
