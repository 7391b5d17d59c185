package transport

import (
	"errors"
	"net/http"
	"net/url"
	"sync"
)

// ProxyProvider wraps a generic HTTP/SOCKS5 proxy URL.
type ProxyProvider struct {
	RawURL    string
	transport http.RoundTripper
	once      sync.Once
	parseErr  error
}

// NewProxyProvider returns nil for an empty URL so callers can assign the
// result unconditionally.
func NewProxyProvider(rawURL string) *ProxyProvider {
	if rawURL == "" {
		return nil
	}
	return &ProxyProvider{RawURL: rawURL}
}

func (p *ProxyProvider) Transport() http.RoundTripper {
	p.once.Do(func() {
		proxyURL, err := url.Parse(p.RawURL)
		if err == nil && proxyURL.Host == "" {
			err = errMissingHost
		}
		if err != nil {
			p.parseErr = err
			p.transport = http.DefaultTransport
			return
		}
		p.transport = &http.Transport{
			Proxy:               http.ProxyURL(proxyURL),
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
		}
	})
	return p.transport
}

// Err returns any error from parsing the proxy URL.
func (p *ProxyProvider) Err() error {
	p.Transport()
	return p.parseErr
}

var errMissingHost = errors.New("proxy url has no host")
