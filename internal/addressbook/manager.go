// Package addressbook manages the capped list of shipping addresses kept
// as one JSON field on the user profile. Every mutation rewrites the whole
// list; the local list is updated first and is not rolled back when the
// profile update fails.
package addressbook

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/lukman83/mhe-storefront/internal/api"
	"github.com/lukman83/mhe-storefront/internal/models"
	"github.com/lukman83/mhe-storefront/internal/notify"
	"github.com/lukman83/mhe-storefront/internal/store"
)

const (
	MaxAddresses = 5
	SelectedKey  = "selectedAddressId"
)

var (
	ErrLimitReached    = fmt.Errorf("at most %d addresses can be saved", MaxAddresses)
	ErrNotFound        = errors.New("address not found")
	ErrUnauthenticated = errors.New("login required")
	ErrNotLoaded       = errors.New("address book not loaded")
)

const syncFailure = "Could not save your addresses. Please try again."

// ProfileService reads and writes the address field of the user profile.
type ProfileService interface {
	Me(ctx context.Context) (*models.User, error)
	UpdateAddresses(ctx context.Context, userID int64, addresses []models.Address) error
}

type Deps struct {
	Profile  ProfileService
	Store    store.KeyValueStore
	Notifier notify.Notifier
	Now      func() time.Time
	Logger   *slog.Logger
}

type Manager struct {
	deps   Deps
	logger *slog.Logger

	mu        sync.Mutex
	userID    int64
	loaded    bool
	addresses []models.Address
	selected  string
	diverged  bool
}

// New creates a manager for userID. A zero userID is resolved from the
// profile on Load; use SetUser(ctx, 0) to log out.
func New(userID int64, deps Deps) *Manager {
	if deps.Notifier == nil {
		deps.Notifier = notify.Discard
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Manager{deps: deps, logger: deps.Logger, userID: userID}
}

// Load fetches the profile and restores the persisted selection if it is
// still in the list, else selects the first entry.
func (m *Manager) Load(ctx context.Context) error {
	u, err := m.deps.Profile.Me(ctx)
	if err != nil {
		if api.IsUnauthorized(err) {
			m.reset()
			return ErrUnauthenticated
		}
		return fmt.Errorf("load profile: %w", err)
	}

	stored, err := m.deps.Store.Get(ctx, SelectedKey)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		m.logger.Warn("Reading selected address failed", slog.String("error", err.Error()))
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.userID != 0 && u.ID != 0 && m.userID != u.ID {
		m.logger.Warn("Profile belongs to a different user",
			slog.Int64("expected", m.userID), slog.Int64("got", u.ID))
	}
	if u.ID != 0 {
		m.userID = u.ID
	}
	m.addresses = slices.Clone(u.Addresses)
	m.selected = ""
	if indexOf(m.addresses, stored) >= 0 {
		m.selected = stored
	} else if len(m.addresses) > 0 {
		m.selected = m.addresses[0].ID
	}
	m.loaded = true
	m.diverged = false
	return nil
}

// SetUser switches the user. A zero userID clears the book; any other
// change reloads it.
func (m *Manager) SetUser(ctx context.Context, userID int64) error {
	m.mu.Lock()
	changed := m.userID != userID
	m.mu.Unlock()
	if userID == 0 {
		m.reset()
		return nil
	}
	if !changed && m.isLoaded() {
		return nil
	}
	m.mu.Lock()
	m.userID = userID
	if changed {
		m.addresses = nil
		m.selected = ""
		m.loaded = false
		m.diverged = false
	}
	m.mu.Unlock()
	return m.Load(ctx)
}

func (m *Manager) reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.userID = 0
	m.addresses = nil
	m.selected = ""
	m.loaded = false
	m.diverged = false
}

func (m *Manager) isLoaded() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loaded
}

// Addresses returns a copy of the current list.
func (m *Manager) Addresses() []models.Address {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.addresses)
}

// Selected returns the selected address, if any.
func (m *Manager) Selected() (models.Address, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i := indexOf(m.addresses, m.selected); i >= 0 {
		return m.addresses[i], true
	}
	return models.Address{}, false
}

// Diverged reports whether a profile update failed since the last Load.
func (m *Manager) Diverged() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.diverged
}

// Select marks id as the delivery address and persists the choice.
func (m *Manager) Select(ctx context.Context, id string) error {
	m.mu.Lock()
	i := indexOf(m.addresses, id)
	if i < 0 {
		m.mu.Unlock()
		m.toast(notify.Error, "That address no longer exists")
		return ErrNotFound
	}
	m.selected = id
	name := m.addresses[i].Name
	m.mu.Unlock()

	m.persistSelection(ctx, id)
	m.toast(notify.Success, fmt.Sprintf("Delivering to %s", name))
	return nil
}

// Create validates a, mints its id and appends it. The fifth address is
// the last one accepted; the check happens before any request.
func (m *Manager) Create(ctx context.Context, a models.Address) (models.Address, error) {
	if err := m.ready(); err != nil {
		return models.Address{}, err
	}
	a = Normalize(a)
	if len(m.Addresses()) >= MaxAddresses {
		return models.Address{}, m.limitReached()
	}
	if err := m.check(a); err != nil {
		return models.Address{}, err
	}

	m.mu.Lock()
	// Another Create may have filled the book since the check above.
	if len(m.addresses) >= MaxAddresses {
		m.mu.Unlock()
		return models.Address{}, m.limitReached()
	}
	a.ID = m.mintID()
	m.addresses = append(m.addresses, a)
	next := slices.Clone(m.addresses)
	selectNew := m.selected == ""
	if selectNew {
		m.selected = a.ID
	}
	userID := m.userID
	m.mu.Unlock()

	if selectNew {
		m.persistSelection(ctx, a.ID)
	}
	if err := m.sync(ctx, userID, next); err != nil {
		return a, err
	}
	m.toast(notify.Success, "Address added")
	return a, nil
}

// Update replaces the address with the given id in place.
func (m *Manager) Update(ctx context.Context, id string, a models.Address) error {
	if err := m.ready(); err != nil {
		return err
	}
	m.mu.Lock()
	exists := indexOf(m.addresses, id) >= 0
	m.mu.Unlock()
	if !exists {
		m.toast(notify.Error, "That address no longer exists")
		return ErrNotFound
	}
	a = Normalize(a)
	a.ID = id
	if err := m.check(a); err != nil {
		return err
	}

	m.mu.Lock()
	i := indexOf(m.addresses, id)
	if i < 0 {
		m.mu.Unlock()
		m.toast(notify.Error, "That address no longer exists")
		return ErrNotFound
	}
	m.addresses[i] = a
	next := slices.Clone(m.addresses)
	userID := m.userID
	m.mu.Unlock()

	if err := m.sync(ctx, userID, next); err != nil {
		return err
	}
	m.toast(notify.Success, "Address updated")
	return nil
}

// Delete removes the address. When it was selected, selection falls back
// to the new first entry, or to none.
func (m *Manager) Delete(ctx context.Context, id string) error {
	if err := m.ready(); err != nil {
		return err
	}

	m.mu.Lock()
	i := indexOf(m.addresses, id)
	if i < 0 {
		m.mu.Unlock()
		m.toast(notify.Error, "That address no longer exists")
		return ErrNotFound
	}
	m.addresses = slices.Delete(m.addresses, i, i+1)
	next := slices.Clone(m.addresses)
	reselect := m.selected == id
	if reselect {
		m.selected = ""
		if len(m.addresses) > 0 {
			m.selected = m.addresses[0].ID
		}
	}
	selected := m.selected
	userID := m.userID
	m.mu.Unlock()

	if reselect {
		m.persistSelection(ctx, selected)
	}
	if err := m.sync(ctx, userID, next); err != nil {
		return err
	}
	m.toast(notify.Success, "Address deleted")
	return nil
}

// ready requires a user and a loaded list. Every write replaces the whole
// list, so writing before Load would drop the addresses on the server.
func (m *Manager) ready() error {
	m.mu.Lock()
	userID, loaded := m.userID, m.loaded
	m.mu.Unlock()
	if userID == 0 {
		m.toast(notify.Error, "Please log in to manage your addresses")
		return ErrUnauthenticated
	}
	if !loaded {
		m.toast(notify.Error, "Your addresses have not loaded yet. Please try again.")
		return ErrNotLoaded
	}
	return nil
}

func (m *Manager) limitReached() error {
	m.toast(notify.Error, fmt.Sprintf("You can save up to %d addresses. Delete one to add another.", MaxAddresses))
	return ErrLimitReached
}

func (m *Manager) check(a models.Address) error {
	err := Validate(a)
	if err == nil {
		return nil
	}
	var fe *FieldError
	if errors.As(err, &fe) {
		m.toast(notify.Error, fe.Message)
	} else {
		m.toast(notify.Error, "Please check the address details")
	}
	return err
}

// sync writes the whole list to the profile. Failure leaves the local list
// as is and marks the book diverged.
func (m *Manager) sync(ctx context.Context, userID int64, list []models.Address) error {
	if err := m.deps.Profile.UpdateAddresses(ctx, userID, list); err != nil {
		m.mu.Lock()
		m.diverged = true
		m.mu.Unlock()
		m.logger.Warn("Address sync failed", slog.Int64("user_id", userID), slog.String("error", err.Error()))
		m.toast(notify.Error, api.Message(err, syncFailure))
		return err
	}
	return nil
}

// mintID returns the current Unix-millisecond timestamp, bumped past any
// id already in the list. Callers hold mu.
func (m *Manager) mintID() string {
	n := m.deps.Now().UnixMilli()
	for indexOf(m.addresses, strconv.FormatInt(n, 10)) >= 0 {
		n++
	}
	return strconv.FormatInt(n, 10)
}

func (m *Manager) persistSelection(ctx context.Context, id string) {
	var err error
	if id == "" {
		err = m.deps.Store.Delete(ctx, SelectedKey)
	} else {
		err = m.deps.Store.Set(ctx, SelectedKey, id)
	}
	if err != nil {
		m.logger.Warn("Persisting selected address failed", slog.String("error", err.Error()))
	}
}

func (m *Manager) toast(level notify.Level, msg string) {
	m.deps.Notifier.Notify(notify.Toast{Level: level, Message: msg})
}

func indexOf(list []models.Address, id string) int {
	if id == "" {
		return -1
	}
	return slices.IndexFunc(list, func(a models.Address) bool { return a.ID == id })
}
