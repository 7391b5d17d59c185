// Package api is the client for the marketplace REST API: products, cart,
// wishlist and the user profile that carries the address book.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/lukman83/mhe-storefront/internal/httputil"
	"github.com/lukman83/mhe-storefront/internal/validation"
)

// Client calls the REST API. Authentication is applied by the underlying
// http.Client transport.
type Client struct {
	baseURL     string
	client      *http.Client
	readRetries int
	validate    *validator.Validate
	logger      *slog.Logger
}

// NewClient creates an API client rooted at baseURL (e.g.
// "https://api.example.com/api"). GET requests are retried up to
// readRetries times; mutations are never retried.
func NewClient(baseURL string, client *http.Client, readRetries int, logger *slog.Logger) *Client {
	if client == nil {
		client = httputil.NewHTTPClient(nil, 0)
	}
	if logger == nil {
		logger = slog.Default()
	}
	if readRetries < 0 {
		readRetries = 0
	}
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		client:      client,
		readRetries: readRetries,
		validate:    validation.New(),
		logger:      logger,
	}
}

// request describes one API call.
type request struct {
	method      string
	path        string
	rawURL      string // absolute URL, overrides path and query
	query       url.Values
	body        []byte
	contentType string
}

func jsonRequest(method, path string, payload any) (request, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return request{}, fmt.Errorf("marshal request: %w", err)
	}
	return request{method: method, path: path, body: body, contentType: "application/json"}, nil
}

// do performs r and returns the decoded response body. Error statuses are
// converted into *APIError.
func (c *Client) do(ctx context.Context, r request) ([]byte, error) {
	u := r.rawURL
	if u == "" {
		u = c.baseURL + r.path
		if len(r.query) > 0 {
			u += "?" + r.query.Encode()
		}
	}

	var body io.Reader
	if r.body != nil {
		body = bytes.NewReader(r.body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, r.method, u, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if r.contentType != "" {
		httpReq.Header.Set("Content-Type", r.contentType)
	}
	httputil.Apply(httpReq, httputil.APIHeaders())

	var resp *http.Response
	if r.method == http.MethodGet {
		resp, err = httputil.DoWithRetry(c.client, httpReq, c.readRetries)
	} else {
		resp, err = c.client.Do(httpReq)
	}
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", r.method, r.path, err)
	}
	defer resp.Body.Close()

	respBody, err := httputil.ReadBody(resp)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	c.logger.Debug("api call",
		slog.String("method", r.method),
		slog.String("path", r.path),
		slog.Int("status", resp.StatusCode))

	if resp.StatusCode >= 400 {
		return nil, parseError(resp.StatusCode, respBody)
	}
	return respBody, nil
}

// decodeEntity unmarshals body into out and validates it.
func (c *Client) decodeEntity(body []byte, out any) error {
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if err := c.validate.Struct(out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return nil
}

// page is the paginated list envelope.
type page[T any] struct {
	Count   int    `json:"count"`
	Next    string `json:"next"`
	Results []T    `json:"results"`
}

// decodeList accepts a bare JSON array or a paginated envelope and
// validates every element.
func decodeList[T any](c *Client, body []byte) ([]T, error) {
	items, _, err := decodePage[T](c, body)
	return items, err
}

// decodePage is decodeList that also returns the envelope's next link,
// empty for bare arrays and last pages.
func decodePage[T any](c *Client, body []byte) ([]T, string, error) {
	trimmed := bytes.TrimSpace(body)
	var (
		items []T
		next  string
	)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, "", fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
	} else {
		var p page[T]
		if err := json.Unmarshal(trimmed, &p); err != nil {
			return nil, "", fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
		items, next = p.Results, p.Next
	}
	for i := range items {
		if err := c.validate.Struct(&items[i]); err != nil {
			return nil, "", fmt.Errorf("%w: item %d: %v", ErrMalformedResponse, i, err)
		}
	}
	return items, next, nil
}

// maxPages bounds how many next links one listing follows.
const maxPages = 50

// listAll performs r and follows next links until the last page.
func listAll[T any](ctx context.Context, c *Client, r request) ([]T, error) {
	var all []T
	for range maxPages {
		body, err := c.do(ctx, r)
		if err != nil {
			return nil, err
		}
		items, next, err := decodePage[T](c, body)
		if err != nil {
			return nil, err
		}
		all = append(all, items...)
		if next == "" {
			return all, nil
		}
		u, err := c.resolve(next)
		if err != nil {
			return nil, fmt.Errorf("%w: next link %q: %v", ErrMalformedResponse, next, err)
		}
		r = request{method: http.MethodGet, path: r.path, rawURL: u}
	}
	c.logger.Warn("Listing truncated", slog.String("path", r.path), slog.Int("pages", maxPages))
	return all, nil
}

// resolve turns a possibly relative link into an absolute URL under the
// API base.
func (c *Client) resolve(link string) (string, error) {
	base, err := url.Parse(c.baseURL + "/")
	if err != nil {
		return "", err
	}
	ref, err := url.Parse(link)
	if err != nil {
		return "", err
	}
	return base.ResolveReference(ref).String(), nil
}

func idPath(prefix string, id int64) string {
	return fmt.Sprintf("%s%d/", prefix, id)
}
