// Package cardsync keeps one product card's cart and wishlist state
// consistent with the server. Mutations update local state first and then
// confirm with the API; failures are reported through a notification and
// leave the card marked as diverged until the next Refresh.
package cardsync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/lukman83/mhe-storefront/internal/api"
	"github.com/lukman83/mhe-storefront/internal/compare"
	"github.com/lukman83/mhe-storefront/internal/models"
	"github.com/lukman83/mhe-storefront/internal/notify"
	"golang.org/x/sync/errgroup"
)

var (
	ErrUnauthenticated = errors.New("login required")
	ErrNotPurchasable  = errors.New("product is not available for direct purchase")
	ErrNotInCart       = errors.New("product is not in the cart")
	ErrQuantityFloor   = errors.New("quantity cannot go below 1")
	ErrStockLimit      = errors.New("requested quantity exceeds stock")
	ErrNoShareTarget   = errors.New("no share capability available")
)

const genericFailure = "Something went wrong. Please try again."

// Backend is the slice of the REST API a card needs.
type Backend interface {
	FindCartItem(ctx context.Context, userID, productID int64) (*models.CartItem, error)
	CreateCartItem(ctx context.Context, productID int64, quantity int) (*models.CartItem, error)
	UpdateCartQuantity(ctx context.Context, itemID int64, quantity int) error
	DeleteCartItem(ctx context.Context, itemID int64) error
	FindWishlistItem(ctx context.Context, userID, productID int64) (*models.WishlistItem, error)
	CreateWishlistItem(ctx context.Context, productID int64) (*models.WishlistItem, error)
	DeleteWishlistItem(ctx context.Context, itemID int64) error
}

// Navigator moves the user to another page.
type Navigator interface {
	Navigate(url string) error
}

// Sharer is a native share capability.
type Sharer interface {
	Share(ctx context.Context, title, url string) error
}

// Clipboard receives copied text.
type Clipboard interface {
	WriteText(text string) error
}

// Deps are the collaborators of a Controller. Sharer is nil when the
// surface has no native share capability.
type Deps struct {
	Backend   Backend
	Compare   *compare.Set
	Notifier  notify.Notifier
	Navigator Navigator
	Sharer    Sharer
	Clipboard Clipboard
	SiteURL   string
	Currency  string
	Logger    *slog.Logger
}

// State is the card's view of the server.
type State struct {
	Wishlisted bool  `json:"wishlisted"`
	InCart     bool  `json:"in_cart"`
	Quantity   int   `json:"quantity"`
	CartItemID int64 `json:"cart_item_id,omitempty"`
	// Diverged is set when an optimistic change failed to confirm. It is
	// cleared by the next successful Refresh.
	Diverged bool `json:"diverged,omitempty"`
}

// Controller is the sync unit of one product card.
type Controller struct {
	deps    Deps
	product models.Product
	logger  *slog.Logger

	mu     sync.Mutex
	userID int64
	state  State
}

// New creates a controller for product as seen by userID (0 = anonymous).
// Call Refresh to load the initial state.
func New(product models.Product, userID int64, deps Deps) *Controller {
	if deps.Notifier == nil {
		deps.Notifier = notify.Discard
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Controller{
		deps:    deps,
		product: product,
		userID:  userID,
		logger:  deps.Logger.With(slog.Int64("product_id", product.ID)),
	}
}

// State returns the latest known state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) Product() models.Product { return c.product }

// ProductURL is the canonical storefront URL of the product.
func (c *Controller) ProductURL() string {
	return fmt.Sprintf("%s/product/%d", strings.TrimRight(c.deps.SiteURL, "/"), c.product.ID)
}

// CartURL is the storefront cart page.
func (c *Controller) CartURL() string {
	return strings.TrimRight(c.deps.SiteURL, "/") + "/cart"
}

func (c *Controller) user() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.userID
}

// SetNavigator replaces the navigator. With nil, BuyNow reports the cart
// URL instead of opening it.
func (c *Controller) SetNavigator(n Navigator) {
	c.mu.Lock()
	c.deps.Navigator = n
	c.mu.Unlock()
}

// SetUser switches the viewing user and reloads state when it changed.
func (c *Controller) SetUser(ctx context.Context, userID int64) error {
	c.mu.Lock()
	changed := c.userID != userID
	c.userID = userID
	c.mu.Unlock()
	if !changed {
		return nil
	}
	return c.Refresh(ctx)
}

// Refresh reconciles wishlist and cart membership with the server. For an
// anonymous user it resets the state without any request.
func (c *Controller) Refresh(ctx context.Context) error {
	userID := c.user()
	if userID == 0 {
		c.mu.Lock()
		c.state = State{}
		c.mu.Unlock()
		return nil
	}

	var (
		wish *models.WishlistItem
		cart *models.CartItem
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		wish, err = c.deps.Backend.FindWishlistItem(gctx, userID, c.product.ID)
		if err != nil {
			return fmt.Errorf("wishlist status: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		cart, err = c.deps.Backend.FindCartItem(gctx, userID, c.product.ID)
		if err != nil {
			return fmt.Errorf("cart status: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		c.logger.Warn("Status refresh failed", slog.String("error", err.Error()))
		return err
	}

	next := State{Wishlisted: wish != nil}
	if cart != nil {
		next.InCart = true
		next.Quantity = cart.Quantity
		next.CartItemID = cart.ID
	}

	c.mu.Lock()
	if c.userID == userID {
		c.state = next
	}
	c.mu.Unlock()
	return nil
}

// Resync is the compensating action for a diverged card.
func (c *Controller) Resync(ctx context.Context) error {
	return c.Refresh(ctx)
}

// AddToCart creates a cart item with quantity 1.
func (c *Controller) AddToCart(ctx context.Context) error {
	if c.user() == 0 {
		c.toast(notify.Error, "Please log in to add items to your cart")
		return ErrUnauthenticated
	}
	if !c.product.DirectSale {
		c.toast(notify.Error, "This product is available for quote or rental only")
		return ErrNotPurchasable
	}
	if c.State().InCart {
		c.toast(notify.Info, "This product is already in your cart")
		return nil
	}

	item, err := c.deps.Backend.CreateCartItem(ctx, c.product.ID, 1)
	switch {
	case api.IsConflict(err):
		c.toast(notify.Info, "This product is already in your cart")
		if rerr := c.Refresh(ctx); rerr != nil {
			c.markDiverged()
		}
		return nil
	case err != nil:
		c.fail(err, "add to cart")
		return err
	}

	c.mu.Lock()
	c.state.InCart = true
	c.state.Quantity = 1
	c.state.CartItemID = item.ID
	c.mu.Unlock()
	c.toast(notify.Success, fmt.Sprintf("%s added to cart", c.product.Name))
	return nil
}

// Increase raises the quantity by one.
func (c *Controller) Increase(ctx context.Context) error {
	c.mu.Lock()
	s := c.state
	if !s.InCart || s.CartItemID == 0 {
		c.mu.Unlock()
		c.toast(notify.Info, "Add this product to your cart first")
		return ErrNotInCart
	}
	next := s.Quantity + 1
	if stock := c.product.StockQuantity; stock > 0 && next > stock {
		c.mu.Unlock()
		c.toast(notify.Info, fmt.Sprintf("Only %d in stock", stock))
		return ErrStockLimit
	}
	c.state.Quantity = next
	c.mu.Unlock()

	return c.confirmQuantity(ctx, s.CartItemID, next)
}

// Decrease lowers the quantity by one. At quantity 1 no request is made;
// the notification offers removal instead.
func (c *Controller) Decrease(ctx context.Context) error {
	c.mu.Lock()
	s := c.state
	if !s.InCart || s.CartItemID == 0 {
		c.mu.Unlock()
		c.toast(notify.Info, "Add this product to your cart first")
		return ErrNotInCart
	}
	if s.Quantity <= 1 {
		c.mu.Unlock()
		c.deps.Notifier.Notify(notify.Toast{
			Level:   notify.Info,
			Message: "Quantity cannot be less than 1. Remove the item instead?",
			Action:  &notify.Action{Label: "Remove", Run: c.Remove},
		})
		return ErrQuantityFloor
	}
	next := s.Quantity - 1
	c.state.Quantity = next
	c.mu.Unlock()

	return c.confirmQuantity(ctx, s.CartItemID, next)
}

func (c *Controller) confirmQuantity(ctx context.Context, itemID int64, quantity int) error {
	if err := c.deps.Backend.UpdateCartQuantity(ctx, itemID, quantity); err != nil {
		c.markDiverged()
		c.fail(err, "update quantity")
		return err
	}
	c.toast(notify.Success, fmt.Sprintf("Quantity updated to %d", quantity))
	return nil
}

// Remove deletes the cart item and clears the cart state.
func (c *Controller) Remove(ctx context.Context) error {
	c.mu.Lock()
	s := c.state
	if !s.InCart || s.CartItemID == 0 {
		c.mu.Unlock()
		c.toast(notify.Info, "This product is not in your cart")
		return ErrNotInCart
	}
	c.state.InCart = false
	c.state.Quantity = 0
	c.state.CartItemID = 0
	c.mu.Unlock()

	err := c.deps.Backend.DeleteCartItem(ctx, s.CartItemID)
	switch {
	case api.IsNotFound(err):
		c.toast(notify.Info, "Cart synced: the item was already removed")
		return nil
	case err != nil:
		c.markDiverged()
		c.fail(err, "remove from cart")
		return err
	}
	c.toast(notify.Success, fmt.Sprintf("%s removed from cart", c.product.Name))
	return nil
}

// ToggleWishlist adds the product to the wishlist or removes it. A
// uniqueness conflict or a missing entry confirms the desired end state.
func (c *Controller) ToggleWishlist(ctx context.Context) error {
	userID := c.user()
	if userID == 0 {
		c.toast(notify.Error, "Please log in to use your wishlist")
		return ErrUnauthenticated
	}
	if c.State().Wishlisted {
		return c.removeFromWishlist(ctx, userID)
	}
	return c.addToWishlist(ctx)
}

func (c *Controller) addToWishlist(ctx context.Context) error {
	_, err := c.deps.Backend.CreateWishlistItem(ctx, c.product.ID)
	switch {
	case api.IsConflict(err):
		c.setWishlisted(true)
		c.toast(notify.Info, "This product is already in your wishlist")
		return nil
	case err != nil:
		c.fail(err, "add to wishlist")
		return err
	}
	c.setWishlisted(true)
	c.toast(notify.Success, "Added to wishlist")
	return nil
}

func (c *Controller) removeFromWishlist(ctx context.Context, userID int64) error {
	item, err := c.deps.Backend.FindWishlistItem(ctx, userID, c.product.ID)
	if err != nil {
		c.fail(err, "look up wishlist")
		return err
	}
	if item == nil {
		c.setWishlisted(false)
		c.toast(notify.Info, "Wishlist synced: this product was not in your wishlist")
		return nil
	}

	err = c.deps.Backend.DeleteWishlistItem(ctx, item.ID)
	switch {
	case api.IsNotFound(err):
		c.setWishlisted(false)
		c.toast(notify.Info, "Wishlist synced: this product was not in your wishlist")
		return nil
	case err != nil:
		c.fail(err, "remove from wishlist")
		return err
	}
	c.setWishlisted(false)
	c.toast(notify.Success, "Removed from wishlist")
	return nil
}

// Compare adds a snapshot of the product to the comparison set.
func (c *Controller) Compare(ctx context.Context) error {
	err := c.deps.Compare.Add(ctx, compare.Snapshot(c.product, c.deps.Currency))
	c.deps.Notifier.Notify(compare.AddToast(c.product.Name, c.deps.Compare.Max(), err))
	if err != nil && !errors.Is(err, compare.ErrAlreadyPresent) {
		return err
	}
	return nil
}

// CanCompare reports whether the compare affordance should be shown.
func (c *Controller) CanCompare(ctx context.Context) bool {
	ok, err := c.deps.Compare.CanAdd(ctx)
	return err == nil && ok
}

// BuyNow puts the product in the cart if needed and moves to the cart page.
func (c *Controller) BuyNow(ctx context.Context) error {
	if c.user() == 0 {
		c.toast(notify.Error, "Please log in to buy this product")
		return ErrUnauthenticated
	}
	if !c.product.DirectSale {
		c.toast(notify.Error, "This product is available for quote or rental only")
		return ErrNotPurchasable
	}

	if !c.State().InCart {
		item, err := c.deps.Backend.CreateCartItem(ctx, c.product.ID, 1)
		switch {
		case api.IsConflict(err):
		case err != nil:
			c.fail(err, "buy now")
			return err
		default:
			c.mu.Lock()
			c.state.InCart = true
			c.state.Quantity = 1
			c.state.CartItemID = item.ID
			c.mu.Unlock()
		}
	}

	c.mu.Lock()
	nav := c.deps.Navigator
	c.mu.Unlock()
	if nav == nil {
		c.toast(notify.Info, "Continue to your cart: "+c.CartURL())
		return nil
	}
	if err := nav.Navigate(c.CartURL()); err != nil {
		c.logger.Warn("Navigation failed", slog.String("error", err.Error()))
		c.toast(notify.Error, "Could not open the cart page: "+c.CartURL())
		return err
	}
	c.toast(notify.Success, "Proceeding to checkout")
	return nil
}

// Share uses the native share capability when present, otherwise copies
// the product link to the clipboard.
func (c *Controller) Share(ctx context.Context) error {
	link := c.ProductURL()
	if c.deps.Sharer != nil {
		if err := c.deps.Sharer.Share(ctx, c.product.Name, link); err != nil {
			c.toast(notify.Error, "Could not share this product")
			return err
		}
		c.toast(notify.Success, "Shared successfully")
		return nil
	}
	if c.deps.Clipboard == nil {
		c.toast(notify.Error, "Sharing is not supported here")
		return ErrNoShareTarget
	}
	if err := c.deps.Clipboard.WriteText(link); err != nil {
		c.toast(notify.Error, "Could not copy the link")
		return err
	}
	c.toast(notify.Success, "Link copied to clipboard")
	return nil
}

func (c *Controller) setWishlisted(v bool) {
	c.mu.Lock()
	c.state.Wishlisted = v
	c.mu.Unlock()
}

func (c *Controller) markDiverged() {
	c.mu.Lock()
	c.state.Diverged = true
	c.mu.Unlock()
}

func (c *Controller) toast(level notify.Level, msg string) {
	c.deps.Notifier.Notify(notify.Toast{Level: level, Message: msg})
}

// fail reports a failed request with the server's message when it sent one.
func (c *Controller) fail(err error, op string) {
	c.logger.Warn("Card operation failed", slog.String("op", op), slog.String("error", err.Error()))
	c.toast(notify.Error, api.Message(err, genericFailure))
}
