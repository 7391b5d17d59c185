package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"

	"github.com/lukman83/mhe-storefront/internal/models"
)

// Me fetches the authenticated user's profile, including the address list.
func (c *Client) Me(ctx context.Context) (*models.User, error) {
	body, err := c.do(ctx, request{method: http.MethodGet, path: "/users/me/"})
	if err != nil {
		return nil, err
	}
	var u models.User
	if err := c.decodeEntity(body, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// UpdateAddresses replaces the whole address list on the user profile.
// The profile endpoint also takes file uploads, so the list is sent as a
// JSON string in a multipart form field named "address".
func (c *Client) UpdateAddresses(ctx context.Context, userID int64, addresses []models.Address) error {
	if addresses == nil {
		addresses = []models.Address{}
	}
	encoded, err := json.Marshal(addresses)
	if err != nil {
		return fmt.Errorf("marshal addresses: %w", err)
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := w.WriteField("address", string(encoded)); err != nil {
		return fmt.Errorf("write address field: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close multipart body: %w", err)
	}

	_, err = c.do(ctx, request{
		method:      http.MethodPatch,
		path:        idPath("/users/", userID),
		body:        buf.Bytes(),
		contentType: w.FormDataContentType(),
	})
	return err
}
