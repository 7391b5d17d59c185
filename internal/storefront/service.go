// Package storefront assembles the API client, local state and sync
// components from configuration. The CLI and the MCP servers share one
// Service per process.
package storefront

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/lukman83/mhe-storefront/config"
	"github.com/lukman83/mhe-storefront/internal/addressbook"
	"github.com/lukman83/mhe-storefront/internal/api"
	"github.com/lukman83/mhe-storefront/internal/cardsync"
	"github.com/lukman83/mhe-storefront/internal/compare"
	"github.com/lukman83/mhe-storefront/internal/httputil"
	"github.com/lukman83/mhe-storefront/internal/metrics"
	"github.com/lukman83/mhe-storefront/internal/models"
	"github.com/lukman83/mhe-storefront/internal/notify"
	"github.com/lukman83/mhe-storefront/internal/store"
	"github.com/lukman83/mhe-storefront/internal/transport"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Options are the process-level collaborators of a Service. Any of them
// may be nil.
type Options struct {
	Registerer prometheus.Registerer
	Logger     *slog.Logger
	Navigator  cardsync.Navigator
	Sharer     cardsync.Sharer
	Clipboard  cardsync.Clipboard
	// Store overrides the configured store driver.
	Store store.KeyValueStore
}

type Service struct {
	cfg      *config.Config
	API      *api.Client
	Store    store.KeyValueStore
	Compare  *compare.Set
	Searcher *compare.Searcher
	Metrics  *metrics.Metrics

	logger    *slog.Logger
	navigator cardsync.Navigator
	sharer    cardsync.Sharer
	clipboard cardsync.Clipboard

	userMu       sync.Mutex
	userResolved bool
	userID       int64
}

// New validates cfg and builds the client pipeline:
// APITransport (request id, auth, rate limit, proxy, metrics) → http.Client → api.Client.
func New(cfg *config.Config, opts Options) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	m := metrics.New(opts.Registerer)
	proxy := transport.NewProxyProvider(cfg.ProxyURL)
	if proxy != nil {
		if err := proxy.Err(); err != nil {
			return nil, fmt.Errorf("proxy %q: %w", cfg.ProxyURL, err)
		}
	}
	rt := &transport.APITransport{
		Base: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
		Token:       cfg.AccessToken,
		UserAgent:   cfg.UserAgent,
		Proxy:       proxy,
		RateLimiter: rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.RateBurst),
		Metrics:     m,
	}
	client := api.NewClient(cfg.APIBaseURL, httputil.NewHTTPClient(rt, cfg.RequestTimeout), cfg.ReadRetries, logger)

	kv := opts.Store
	if kv == nil {
		var err error
		kv, err = store.Open(cfg.StoreDriver, store.Options{
			Path:          cfg.StorePath,
			RedisAddr:     cfg.RedisAddr,
			RedisPassword: cfg.RedisPassword,
			RedisDB:       cfg.RedisDB,
			Prefix:        cfg.RedisPrefix,
		})
		if err != nil {
			return nil, fmt.Errorf("open %s store: %w", cfg.StoreDriver, err)
		}
	}

	set := compare.NewSet(kv, cfg.CompareMax, logger)
	return &Service{
		cfg:       cfg,
		API:       client,
		Store:     kv,
		Compare:   set,
		Searcher:  compare.NewSearcher(client, set, cfg.Currency),
		Metrics:   m,
		logger:    logger,
		navigator: opts.Navigator,
		sharer:    opts.Sharer,
		clipboard: opts.Clipboard,
	}, nil
}

func (s *Service) Config() *config.Config { return s.cfg }

// Close releases the store connection when it holds one.
func (s *Service) Close() error {
	if c, ok := s.Store.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Notifier wraps n so toasts are also counted.
func (s *Service) Notifier(n notify.Notifier) notify.Notifier {
	return notify.Counted(n, s.Metrics)
}

// UserID resolves the acting user: configured id, then the token's
// user claim, then the profile endpoint. Without a token the user is
// anonymous (0). Failures are not cached.
func (s *Service) UserID(ctx context.Context) (int64, error) {
	s.userMu.Lock()
	defer s.userMu.Unlock()
	if s.userResolved {
		return s.userID, nil
	}
	id, err := s.resolveUser(ctx)
	if err != nil {
		return 0, err
	}
	s.userID, s.userResolved = id, true
	return id, nil
}

func (s *Service) resolveUser(ctx context.Context) (int64, error) {
	if s.cfg.UserID > 0 {
		return s.cfg.UserID, nil
	}
	if s.cfg.AccessToken == "" {
		return 0, nil
	}
	id, err := api.UserIDFromToken(s.cfg.AccessToken)
	if err == nil {
		return id, nil
	}
	s.logger.Debug("Token has no readable user id, asking the API", slog.String("error", err.Error()))

	u, err := s.API.Me(ctx)
	if err != nil {
		return 0, fmt.Errorf("resolve user: %w", err)
	}
	return u.ID, nil
}

// Card loads a product and returns its controller with state refreshed.
func (s *Service) Card(ctx context.Context, productID int64, n notify.Notifier) (*cardsync.Controller, error) {
	userID, err := s.UserID(ctx)
	if err != nil {
		return nil, err
	}
	notify.ReportProgress(ctx, fmt.Sprintf("Loading product %d...", productID))
	p, err := s.API.GetProduct(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("load product %d: %w", productID, err)
	}

	c := cardsync.New(*p, userID, cardsync.Deps{
		Backend:   s.API,
		Compare:   s.Compare,
		Notifier:  s.Notifier(n),
		Navigator: s.navigator,
		Sharer:    s.sharer,
		Clipboard: s.clipboard,
		SiteURL:   s.cfg.SiteURL,
		Currency:  s.cfg.Currency,
		Logger:    s.logger,
	})
	notify.ReportProgress(ctx, "Checking cart and wishlist...")
	if err := c.Refresh(ctx); err != nil {
		return c, fmt.Errorf("load card state: %w", err)
	}
	return c, nil
}

// AddressBook returns a manager for the acting user. Call Load before use.
func (s *Service) AddressBook(ctx context.Context, n notify.Notifier) (*addressbook.Manager, error) {
	userID, err := s.UserID(ctx)
	if err != nil {
		return nil, err
	}
	if userID == 0 {
		return nil, addressbook.ErrUnauthenticated
	}
	return addressbook.New(userID, addressbook.Deps{
		Profile:  s.API,
		Store:    s.Store,
		Notifier: s.Notifier(n),
		Logger:   s.logger,
	}), nil
}

// CartLine is a cart item with its product resolved.
type CartLine struct {
	Item    models.CartItem `json:"item"`
	Product models.Product  `json:"product"`
}

// Cart lists the acting user's cart. Products the API returned as bare ids
// are fetched concurrently, at most MaxConcurrent at a time.
func (s *Service) Cart(ctx context.Context) ([]CartLine, error) {
	userID, err := s.UserID(ctx)
	if err != nil {
		return nil, err
	}
	if userID == 0 {
		return nil, cardsync.ErrUnauthenticated
	}

	notify.ReportProgress(ctx, "Loading cart...")
	items, err := s.API.ListCart(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list cart: %w", err)
	}

	lines := make([]CartLine, len(items))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.MaxConcurrent)
	var (
		mu   sync.Mutex
		done int
	)
	for i, it := range items {
		lines[i].Item = it
		if it.Product.Product != nil {
			lines[i].Product = *it.Product.Product
			continue
		}
		g.Go(func() error {
			p, err := s.API.GetProduct(gctx, it.Product.ID)
			if err != nil {
				return fmt.Errorf("load product %d: %w", it.Product.ID, err)
			}
			lines[i].Product = *p

			mu.Lock()
			done++
			notify.ReportProgress(ctx, fmt.Sprintf("Loaded %d products...", done))
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return lines, nil
}
