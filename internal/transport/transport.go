package transport

import (
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/lukman83/mhe-storefront/internal/metrics"
	"golang.org/x/time/rate"
)

// APITransport is an http.RoundTripper that applies the client pipeline:
// RequestID → Auth → RateLimiter → Proxy → Send → Metrics
type APITransport struct {
	Base        http.RoundTripper
	Token       string
	UserAgent   string
	Proxy       *ProxyProvider
	RateLimiter *rate.Limiter
	Metrics     *metrics.Metrics
}

func (t *APITransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// RoundTrippers must not modify the caller's request.
	req = req.Clone(req.Context())

	// 1. Correlation id
	if req.Header.Get("X-Request-ID") == "" {
		req.Header.Set("X-Request-ID", uuid.NewString())
	}

	// 2. Identity
	if t.UserAgent != "" {
		req.Header.Set("User-Agent", t.UserAgent)
	}
	if t.Token != "" && req.Header.Get("Authorization") == "" {
		req.Header.Set("Authorization", "Bearer "+t.Token)
	}

	// 3. Wait for rate limiter token
	if t.RateLimiter != nil {
		if err := t.RateLimiter.Wait(req.Context()); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	// 4. Route through proxy if configured
	base := t.Base
	if t.Proxy != nil {
		base = t.Proxy.Transport()
	}
	if base == nil {
		base = http.DefaultTransport
	}

	start := time.Now()
	resp, err := base.RoundTrip(req)
	t.observe(req.Method, resp, start)
	return resp, err
}

func (t *APITransport) observe(method string, resp *http.Response, start time.Time) {
	if t.Metrics == nil {
		return
	}
	code := 0
	if resp != nil {
		code = resp.StatusCode
	}
	t.Metrics.Requests.WithLabelValues(method, metrics.StatusClass(code)).Inc()
	t.Metrics.Latency.WithLabelValues(method).Observe(time.Since(start).Seconds())
}
