package compare

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/lukman83/mhe-storefront/internal/api"
	"github.com/lukman83/mhe-storefront/internal/models"
	"github.com/lukman83/mhe-storefront/internal/notify"
	"github.com/lukman83/mhe-storefront/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func product(id int64, category string) models.Product {
	return models.Product{
		ID:           id,
		Name:         "Product " + category,
		Price:        250000,
		DirectSale:   true,
		IsActive:     true,
		CategoryName: category,
	}
}

func stored(t *testing.T, kv store.KeyValueStore) string {
	t.Helper()
	raw, err := kv.Get(context.Background(), StorageKey)
	if err != nil {
		return ""
	}
	return raw
}

func TestSet_CategoryLock(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemory()
	set := NewSet(kv, 0, nil)

	require.NoError(t, set.Add(ctx, Snapshot(product(1, "Forklifts"), "INR")))
	before := stored(t, kv)

	err := set.Add(ctx, Snapshot(product(2, "Batteries"), "INR"))
	var mismatch *CategoryMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, "Forklifts", mismatch.Locked)
	assert.Equal(t, "Batteries", mismatch.Got)

	assert.Equal(t, before, stored(t, kv), "rejected add must leave the set unchanged")
	entries, err := set.Entries(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	t.Run("removing the last entry unlocks the category", func(t *testing.T) {
		require.NoError(t, set.Remove(ctx, 1))
		locked, isLocked, err := set.LockedCategory(ctx)
		require.NoError(t, err)
		assert.False(t, isLocked)
		assert.Empty(t, locked)
		require.NoError(t, set.Add(ctx, Snapshot(product(2, "Batteries"), "INR")))
	})
}

func TestSet_UncategorisedFirstEntryLocks(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemory()
	set := NewSet(kv, 0, nil)

	require.NoError(t, set.Add(ctx, Snapshot(product(1, ""), "INR")))
	locked, isLocked, err := set.LockedCategory(ctx)
	require.NoError(t, err)
	assert.True(t, isLocked)
	assert.Empty(t, locked)

	before := stored(t, kv)
	var mismatch *CategoryMismatchError
	require.ErrorAs(t, set.Add(ctx, Snapshot(product(2, "Forklifts"), "INR")), &mismatch)
	assert.Equal(t, "Forklifts", mismatch.Got)
	assert.Equal(t, before, stored(t, kv))

	s := NewSearcher(nil, set, "INR")
	assert.ErrorAs(t, s.Add(ctx, product(3, "Batteries")), &mismatch)

	require.NoError(t, set.Add(ctx, Snapshot(product(4, ""), "INR")))
	entries, err := set.Entries(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	toast := AddToast("Lift", 4, &CategoryMismatchError{Locked: "", Got: "Forklifts"})
	assert.Contains(t, toast.Message, "(-)")
}

func TestSet_Capacity(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemory()
	set := NewSet(kv, 0, nil)

	for id := int64(1); id <= 4; id++ {
		require.NoError(t, set.Add(ctx, Snapshot(product(id, "Forklifts"), "INR")))
	}
	ok, err := set.CanAdd(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "add affordance must be hidden at capacity")

	before := stored(t, kv)
	assert.ErrorIs(t, set.Add(ctx, Snapshot(product(5, "Forklifts"), "INR")), ErrFull)
	assert.Equal(t, before, stored(t, kv))
}

func TestSet_AlreadyPresent(t *testing.T) {
	ctx := context.Background()
	set := NewSet(store.NewMemory(), 0, nil)
	require.NoError(t, set.Add(ctx, Snapshot(product(1, "Forklifts"), "INR")))
	assert.ErrorIs(t, set.Add(ctx, Snapshot(product(1, "Forklifts"), "INR")), ErrAlreadyPresent)
	assert.ErrorIs(t, set.Remove(ctx, 99), ErrNotPresent)
}

func TestSet_MalformedStorageReadsEmpty(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemory()
	require.NoError(t, kv.Set(ctx, StorageKey, "{oops"))

	set := NewSet(kv, 0, nil)
	entries, err := set.Entries(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)
	require.NoError(t, set.Add(ctx, Snapshot(product(1, "Forklifts"), "INR")))
}

func TestHiddenPriceNeverPersisted(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemory()
	set := NewSet(kv, 0, nil)

	p := product(1, "Forklifts")
	p.Price = 1875000
	p.HidePrice = true
	require.NoError(t, set.Add(ctx, Snapshot(p, "INR")))

	var raw []map[string]any
	require.NoError(t, json.Unmarshal([]byte(stored(t, kv)), &raw))
	require.Len(t, raw, 1)
	_, hasPrice := raw[0]["price"]
	assert.False(t, hasPrice, "persisted snapshot must not carry a price")

	entries, err := set.Entries(ctx)
	require.NoError(t, err)
	table := BuildTable(entries, set.Max())
	assert.Equal(t, MaskedPrice, table.Rows[0].Cells[0])

	t.Run("entry built elsewhere with a price is stripped on add", func(t *testing.T) {
		price := 10.0
		require.NoError(t, set.Add(ctx, models.CompareEntry{ID: 2, Title: "x", CategoryName: "Forklifts", HidePrice: true, Price: &price}))
		entries, err := set.Entries(ctx)
		require.NoError(t, err)
		assert.Nil(t, entries[1].Price)
	})
}

func TestBuildTable(t *testing.T) {
	rating := 4.4
	price := 1250000.0
	entries := []models.CompareEntry{
		{ID: 1, Title: "Diesel Forklift 3T", Price: &price, Currency: "INR", CategoryName: "Forklifts", Manufacturer: "Godrej", Model: "GX300", Ratings: &rating, DirectSale: true},
		{ID: 2, Title: "LPG Forklift 2.5T", CategoryName: "Forklifts"},
	}

	table := BuildTable(entries, 4)
	require.Len(t, table.Columns, 2)
	require.Len(t, table.Rows, len(Fields))

	byKey := map[string][]string{}
	for _, r := range table.Rows {
		byKey[r.Key] = r.Cells
	}
	assert.Equal(t, []string{"₹ 12,50,000", MaskedPrice}, byKey["price"])
	assert.Equal(t, []string{"Godrej", Missing}, byKey["manufacturer"])
	assert.Equal(t, []string{"★★★★☆ (4.4)", "No ratings"}, byKey["ratings"])
	assert.Equal(t, []string{"Buy online", "Quote / rental"}, byKey["direct_sale"])

	t.Run("caps columns", func(t *testing.T) {
		many := make([]models.CompareEntry, 6)
		assert.Len(t, BuildTable(many, 4).Columns, 4)
	})
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "₹ 999", FormatAmount(999, "INR"))
	assert.Equal(t, "₹ 1,00,000", FormatAmount(100000, ""))
	assert.Equal(t, "₹ 1,25,00,000.50", FormatAmount(12500000.5, "INR"))
	assert.Equal(t, "$ 1,250,000", FormatAmount(1250000, "USD"))
}

func TestSnapshot(t *testing.T) {
	rating := 3.0
	p := models.Product{
		ID:            9,
		Name:          "Scissor Lift",
		Description:   "<p>Electric scissor lift &amp; platform.</p><script>track()</script><ul><li>8m height</li></ul>",
		Images:        []string{"https://cdn.example.com/lift.jpg"},
		Price:         540000,
		CategoryName:  "Aerial Work Platforms",
		Manufacturer:  "Haulotte",
		AverageRating: &rating,
	}
	e := Snapshot(p, "INR")
	assert.Equal(t, "Electric scissor lift & platform. 8m height", e.Subtitle)
	assert.Equal(t, "https://cdn.example.com/lift.jpg", e.Image)
	require.NotNil(t, e.Price)
	assert.InDelta(t, 540000.0, *e.Price, 0.01)
	require.NotNil(t, e.Ratings)
}

func TestSearcher(t *testing.T) {
	var calls atomic.Int32
	var lastCategory string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		lastCategory = r.URL.Query().Get("category_name")
		// Ignores the category filter on purpose.
		w.Write([]byte(`[
			{"id":2,"name":"Reach Truck","category_name":"Forklifts","is_active":true},
			{"id":3,"name":"Battery 48V","category_name":"Batteries","is_active":true},
			{"id":4,"name":"Old Truck","category_name":"Forklifts","is_active":false}
		]`))
	}))
	defer srv.Close()

	ctx := context.Background()
	set := NewSet(store.NewMemory(), 0, nil)
	s := NewSearcher(api.NewClient(srv.URL, srv.Client(), 0, nil), set, "INR")

	res, err := s.Search(ctx, " t ")
	require.NoError(t, err)
	assert.Nil(t, res)
	assert.Equal(t, int32(0), calls.Load(), "short queries must not hit the API")

	require.NoError(t, set.Add(ctx, Snapshot(product(1, "Forklifts"), "INR")))
	res, err = s.Search(ctx, "truck")
	require.NoError(t, err)
	assert.Equal(t, "Forklifts", lastCategory)
	require.Len(t, res, 2, "inactive products are dropped")

	var mismatch *CategoryMismatchError
	assert.ErrorAs(t, s.Add(ctx, res[1]), &mismatch)
	require.NoError(t, s.Add(ctx, res[0]))

	entries, err := set.Entries(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestAddToast(t *testing.T) {
	assert.Equal(t, notify.Success, AddToast("Lift", 4, nil).Level)
	assert.Equal(t, notify.Info, AddToast("Lift", 4, ErrAlreadyPresent).Level)
	assert.Equal(t, notify.Info, AddToast("Lift", 4, ErrFull).Level)
	assert.Contains(t, AddToast("Lift", 4, ErrFull).Message, "up to 4")
	toast := AddToast("Lift", 4, &CategoryMismatchError{Locked: "Forklifts", Got: "Batteries"})
	assert.Equal(t, notify.Error, toast.Level)
	assert.Contains(t, toast.Message, "Forklifts")
}
