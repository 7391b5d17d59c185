// Package compare maintains the product comparison set and projects it
// into a side-by-side table.
package compare

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/lukman83/mhe-storefront/internal/models"
	"github.com/lukman83/mhe-storefront/internal/store"
)

const (
	// StorageKey is the key-value store key holding the set.
	StorageKey = "compareProducts"
	// DefaultMaxEntries is the number of products that fit in the table.
	DefaultMaxEntries = 4
)

var (
	ErrAlreadyPresent = errors.New("product is already in the comparison")
	ErrFull           = errors.New("comparison is full")
	ErrNotPresent     = errors.New("product is not in the comparison")
)

// CategoryMismatchError is returned when a product from a different
// category is added to a set that already has a locked category.
type CategoryMismatchError struct {
	Locked string
	Got    string
}

func (e *CategoryMismatchError) Error() string {
	return fmt.Sprintf("can only compare products from %q, got %q", e.Locked, e.Got)
}

// Set is the comparison set persisted under StorageKey. Every mutation is
// a read-modify-write of the whole JSON array; the mutex serialises
// callers in this process only.
type Set struct {
	store  store.KeyValueStore
	max    int
	logger *slog.Logger
	mu     sync.Mutex
}

func NewSet(kv store.KeyValueStore, maxEntries int, logger *slog.Logger) *Set {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Set{store: kv, max: maxEntries, logger: logger}
}

// Max returns the capacity of the set.
func (s *Set) Max() int { return s.max }

// Entries returns the current entries. A missing or malformed stored value
// reads as an empty set.
func (s *Set) Entries(ctx context.Context) ([]models.CompareEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

// LockedCategory returns the category every entry must share and whether
// the set is locked at all. A set whose first entry has no category is
// locked to "".
func (s *Set) LockedCategory(ctx context.Context) (string, bool, error) {
	entries, err := s.Entries(ctx)
	if err != nil {
		return "", false, err
	}
	locked, ok := lockedCategory(entries)
	return locked, ok, nil
}

// CanAdd reports whether the "add" affordance should be offered.
func (s *Set) CanAdd(ctx context.Context) (bool, error) {
	entries, err := s.Entries(ctx)
	if err != nil {
		return false, err
	}
	return len(entries) < s.max, nil
}

// Contains reports whether productID is in the set.
func (s *Set) Contains(ctx context.Context, productID int64) (bool, error) {
	entries, err := s.Entries(ctx)
	if err != nil {
		return false, err
	}
	return indexOf(entries, productID) >= 0, nil
}

// Add appends e. The set is left untouched when e is already present, the
// set is full, or e's category differs from the locked category.
func (s *Set) Add(ctx context.Context, e models.CompareEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load(ctx)
	if err != nil {
		return err
	}
	if indexOf(entries, e.ID) >= 0 {
		return ErrAlreadyPresent
	}
	if locked, ok := lockedCategory(entries); ok && locked != e.CategoryName {
		return &CategoryMismatchError{Locked: locked, Got: e.CategoryName}
	}
	if len(entries) >= s.max {
		return ErrFull
	}
	if e.HidePrice {
		e.Price = nil
	}
	return s.save(ctx, append(entries, e))
}

// Remove drops productID from the set. Removing the last entry unlocks the
// category.
func (s *Set) Remove(ctx context.Context, productID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load(ctx)
	if err != nil {
		return err
	}
	i := indexOf(entries, productID)
	if i < 0 {
		return ErrNotPresent
	}
	entries = append(entries[:i], entries[i+1:]...)
	if len(entries) == 0 {
		return s.clear(ctx)
	}
	return s.save(ctx, entries)
}

// Clear empties the set.
func (s *Set) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clear(ctx)
}

func (s *Set) clear(ctx context.Context) error {
	if err := s.store.Delete(ctx, StorageKey); err != nil {
		return fmt.Errorf("clear comparison: %w", err)
	}
	return nil
}

func (s *Set) load(ctx context.Context) ([]models.CompareEntry, error) {
	raw, err := s.store.Get(ctx, StorageKey)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load comparison: %w", err)
	}
	var entries []models.CompareEntry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		s.logger.Warn("Discarding malformed comparison set", slog.String("error", err.Error()))
		return nil, nil
	}
	return entries, nil
}

func (s *Set) save(ctx context.Context, entries []models.CompareEntry) error {
	raw, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("marshal comparison: %w", err)
	}
	if err := s.store.Set(ctx, StorageKey, string(raw)); err != nil {
		return fmt.Errorf("save comparison: %w", err)
	}
	return nil
}

func lockedCategory(entries []models.CompareEntry) (string, bool) {
	if len(entries) == 0 {
		return "", false
	}
	return entries[0].CategoryName, true
}

func indexOf(entries []models.CompareEntry, productID int64) int {
	for i, e := range entries {
		if e.ID == productID {
			return i
		}
	}
	return -1
}
