package addressbook

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/lukman83/mhe-storefront/internal/api"
	"github.com/lukman83/mhe-storefront/internal/models"
	"github.com/lukman83/mhe-storefront/internal/notify"
	"github.com/lukman83/mhe-storefront/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProfile struct {
	mu        sync.Mutex
	user      models.User
	meCalls   int
	updates   [][]models.Address
	updateErr error
	meErr     error
}

func (f *fakeProfile) Me(context.Context) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.meCalls++
	if f.meErr != nil {
		return nil, f.meErr
	}
	u := f.user
	u.Addresses = append([]models.Address(nil), f.user.Addresses...)
	return &u, nil
}

func (f *fakeProfile) UpdateAddresses(_ context.Context, userID int64, list []models.Address) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, append([]models.Address(nil), list...))
	if f.updateErr != nil {
		return f.updateErr
	}
	f.user.Addresses = append([]models.Address(nil), list...)
	return nil
}

func (f *fakeProfile) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.meCalls + len(f.updates)
}

func validAddress(name string) models.Address {
	return models.Address{
		Name:    name,
		Phone:   "9876543210",
		Address: "Plot 14, MIDC Industrial Area",
		City:    "Pune",
		State:   "Maharashtra",
		Pincode: "411019",
		Type:    "work",
	}
}

func seeded(n int) []models.Address {
	out := make([]models.Address, n)
	for i := range out {
		a := validAddress("Site")
		a.ID = string(rune('a' + i))
		out[i] = a
	}
	return out
}

type env struct {
	profile *fakeProfile
	kv      *store.Memory
	toasts  *notify.Recorder
	mgr     *Manager
}

func newEnv(t *testing.T, addresses []models.Address) *env {
	t.Helper()
	e := &env{
		profile: &fakeProfile{user: models.User{ID: 7, Addresses: addresses}},
		kv:      store.NewMemory(),
		toasts:  &notify.Recorder{},
	}
	e.mgr = New(7, Deps{
		Profile:  e.profile,
		Store:    e.kv,
		Notifier: e.toasts,
		Now:      func() time.Time { return time.UnixMilli(1700000000000) },
	})
	return e
}

func (e *env) load(t *testing.T) {
	t.Helper()
	require.NoError(t, e.mgr.Load(context.Background()))
	e.toasts.Reset()
}

func TestCreate_RejectsSixthAddressWithoutRequest(t *testing.T) {
	e := newEnv(t, seeded(MaxAddresses))
	e.load(t)
	before := e.profile.calls()

	_, err := e.mgr.Create(context.Background(), validAddress("Warehouse"))
	assert.ErrorIs(t, err, ErrLimitReached)
	assert.Equal(t, before, e.profile.calls(), "no request once the cap is reached")
	assert.Len(t, e.mgr.Addresses(), MaxAddresses)

	toasts := e.toasts.Toasts()
	require.Len(t, toasts, 1)
	assert.Equal(t, notify.Error, toasts[0].Level)
}

func TestCreate_ConcurrentCallsRespectCap(t *testing.T) {
	for round := range 50 {
		e := newEnv(t, seeded(MaxAddresses-1))
		e.load(t)

		const callers = 16
		var (
			wg      sync.WaitGroup
			mu      sync.Mutex
			created int
			limited int
		)
		for range callers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := e.mgr.Create(context.Background(), validAddress("Dock"))
				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					created++
				case errors.Is(err, ErrLimitReached):
					limited++
				default:
					t.Errorf("round %d: unexpected error %v", round, err)
				}
			}()
		}
		wg.Wait()

		require.Equal(t, 1, created, "round %d", round)
		assert.Equal(t, callers-1, limited, "round %d", round)
		assert.Len(t, e.mgr.Addresses(), MaxAddresses, "round %d", round)
		e.profile.mu.Lock()
		for _, list := range e.profile.updates {
			assert.LessOrEqual(t, len(list), MaxAddresses, "round %d", round)
		}
		e.profile.mu.Unlock()
		assert.Len(t, e.toasts.Toasts(), callers)
	}
}

func TestWritesRequireLoad(t *testing.T) {
	e := newEnv(t, seeded(3))
	ctx := context.Background()

	_, err := e.mgr.Create(ctx, validAddress("Warehouse"))
	assert.ErrorIs(t, err, ErrNotLoaded)
	assert.ErrorIs(t, e.mgr.Update(ctx, "a", validAddress("Plant")), ErrNotLoaded)
	assert.ErrorIs(t, e.mgr.Delete(ctx, "a"), ErrNotLoaded)
	assert.Zero(t, e.profile.calls(), "the server list is never replaced blind")

	toasts := e.toasts.Toasts()
	require.Len(t, toasts, 3)
	for _, toast := range toasts {
		assert.Equal(t, notify.Error, toast.Level)
	}

	e.load(t)
	_, err = e.mgr.Create(ctx, validAddress("Warehouse"))
	require.NoError(t, err)
	require.Len(t, e.profile.updates, 1)
	assert.Len(t, e.profile.updates[0], 4, "existing addresses are kept")
}

func TestSetUser_FailedReloadBlocksWrites(t *testing.T) {
	e := newEnv(t, seeded(2))
	e.load(t)
	ctx := context.Background()

	e.profile.mu.Lock()
	e.profile.meErr = errors.New("profile service unavailable")
	e.profile.mu.Unlock()

	assert.Error(t, e.mgr.SetUser(ctx, 8))
	assert.Empty(t, e.mgr.Addresses(), "previous user's addresses are dropped")

	_, err := e.mgr.Create(ctx, validAddress("Warehouse"))
	assert.ErrorIs(t, err, ErrNotLoaded)
	assert.Empty(t, e.profile.updates)
}

func TestCreate_ValidationBlocksRequest(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*models.Address)
		field   string
		message string
	}{
		{"short phone", func(a *models.Address) { a.Phone = "98765" }, "phone", "Phone number must be exactly 10 digits"},
		{"phone with letters", func(a *models.Address) { a.Phone = "98765abcde" }, "phone", "Phone number must be exactly 10 digits"},
		{"five digit pincode", func(a *models.Address) { a.Pincode = "41101" }, "pincode", "Pincode must be exactly 6 digits"},
		{"missing city", func(a *models.Address) { a.City = "  " }, "city", "Please enter the city"},
		{"name checked first", func(a *models.Address) { a.Name = ""; a.Pincode = "x" }, "name", "Please enter a name for this address"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(t, nil)
			e.load(t)
			before := e.profile.calls()

			a := validAddress("Plant")
			tt.mutate(&a)
			_, err := e.mgr.Create(context.Background(), a)

			var fe *FieldError
			require.ErrorAs(t, err, &fe)
			assert.Equal(t, tt.field, fe.Field)
			assert.Equal(t, before, e.profile.calls())
			assert.Empty(t, e.mgr.Addresses())

			last, ok := e.toasts.Last()
			require.True(t, ok)
			assert.Equal(t, tt.message, last.Message)
		})
	}
}

func TestCreate_WritesWholeList(t *testing.T) {
	e := newEnv(t, seeded(2))
	e.load(t)

	created, err := e.mgr.Create(context.Background(), validAddress(" Warehouse "))
	require.NoError(t, err)
	assert.Equal(t, "1700000000000", created.ID)
	assert.Equal(t, "Warehouse", created.Name)
	assert.Equal(t, models.AddressOffice, created.Type)

	require.Len(t, e.profile.updates, 1)
	assert.Len(t, e.profile.updates[0], 3, "the complete list is written")
	assert.Equal(t, created.ID, e.profile.updates[0][2].ID)

	t.Run("colliding timestamp is bumped", func(t *testing.T) {
		again, err := e.mgr.Create(context.Background(), validAddress("Yard"))
		require.NoError(t, err)
		assert.Equal(t, "1700000000001", again.ID)
	})
}

func TestCreate_FailedSyncKeepsLocalEntry(t *testing.T) {
	e := newEnv(t, nil)
	e.load(t)
	e.profile.updateErr = &api.APIError{StatusCode: http.StatusBadGateway, Message: "Upstream unavailable"}

	_, err := e.mgr.Create(context.Background(), validAddress("Plant"))
	require.Error(t, err)
	assert.Len(t, e.mgr.Addresses(), 1, "optimistic entry is not rolled back")
	assert.True(t, e.mgr.Diverged())

	toasts := e.toasts.Toasts()
	require.Len(t, toasts, 1)
	assert.Equal(t, "Upstream unavailable", toasts[0].Message)

	e.profile.updateErr = nil
	require.NoError(t, e.mgr.Load(context.Background()))
	assert.False(t, e.mgr.Diverged())
	assert.Empty(t, e.mgr.Addresses())
}

func TestUpdate(t *testing.T) {
	e := newEnv(t, seeded(3))
	e.load(t)
	ctx := context.Background()

	changed := validAddress("Head Office")
	changed.City = "Mumbai"
	require.NoError(t, e.mgr.Update(ctx, "b", changed))

	list := e.mgr.Addresses()
	require.Len(t, list, 3)
	assert.Equal(t, "b", list[1].ID)
	assert.Equal(t, "Mumbai", list[1].City)
	require.Len(t, e.profile.updates, 1)
	assert.Len(t, e.profile.updates[0], 3)

	assert.ErrorIs(t, e.mgr.Update(ctx, "zz", changed), ErrNotFound)
	assert.Len(t, e.profile.updates, 1)
}

func TestSelection(t *testing.T) {
	ctx := context.Background()

	t.Run("restored when still present", func(t *testing.T) {
		e := newEnv(t, seeded(3))
		require.NoError(t, e.kv.Set(ctx, SelectedKey, "c"))
		e.load(t)
		sel, ok := e.mgr.Selected()
		require.True(t, ok)
		assert.Equal(t, "c", sel.ID)
	})

	t.Run("stale id falls back to first", func(t *testing.T) {
		e := newEnv(t, seeded(2))
		require.NoError(t, e.kv.Set(ctx, SelectedKey, "gone"))
		e.load(t)
		sel, ok := e.mgr.Selected()
		require.True(t, ok)
		assert.Equal(t, "a", sel.ID)
	})

	t.Run("empty list selects nothing", func(t *testing.T) {
		e := newEnv(t, nil)
		e.load(t)
		_, ok := e.mgr.Selected()
		assert.False(t, ok)
	})

	t.Run("select persists", func(t *testing.T) {
		e := newEnv(t, seeded(2))
		e.load(t)
		require.NoError(t, e.mgr.Select(ctx, "b"))
		v, err := e.kv.Get(ctx, SelectedKey)
		require.NoError(t, err)
		assert.Equal(t, "b", v)
		assert.ErrorIs(t, e.mgr.Select(ctx, "zz"), ErrNotFound)
	})
}

func TestDelete_SelectionFallsBack(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, seeded(2))
	require.NoError(t, e.kv.Set(ctx, SelectedKey, "a"))
	e.load(t)

	require.NoError(t, e.mgr.Delete(ctx, "a"))
	sel, ok := e.mgr.Selected()
	require.True(t, ok)
	assert.Equal(t, "b", sel.ID)
	v, _ := e.kv.Get(ctx, SelectedKey)
	assert.Equal(t, "b", v)

	require.NoError(t, e.mgr.Delete(ctx, "b"))
	_, ok = e.mgr.Selected()
	assert.False(t, ok)
	_, err := e.kv.Get(ctx, SelectedKey)
	assert.ErrorIs(t, err, store.ErrNotFound)

	require.Len(t, e.profile.updates, 2)
	assert.Empty(t, e.profile.updates[1])
}

func TestAnonymous(t *testing.T) {
	e := newEnv(t, seeded(1))
	e.load(t)
	require.NoError(t, e.mgr.SetUser(context.Background(), 0))
	assert.Empty(t, e.mgr.Addresses())

	before := e.profile.calls()
	_, err := e.mgr.Create(context.Background(), validAddress("Plant"))
	assert.ErrorIs(t, err, ErrUnauthenticated)
	assert.Equal(t, before, e.profile.calls())
}

func TestManager_ProfileEndpoint(t *testing.T) {
	var (
		mu      sync.Mutex
		patched []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/users/me/":
			w.Write([]byte(`{"id":7,"username":"buyer","address":"[{\"id\":1699999999999,\"name\":\"Plant\",\"phone\":\"9876543210\",\"address\":\"MIDC\",\"city\":\"Pune\",\"state\":\"MH\",\"pincode\":\"411019\",\"type\":\"home\"}]"}`))
		case r.Method == http.MethodPatch && r.URL.Path == "/users/7/":
			if !assert.NoError(t, r.ParseMultipartForm(1<<20)) {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			mu.Lock()
			patched = append(patched, r.FormValue("address"))
			mu.Unlock()
			w.Write([]byte(`{"id":7}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	mgr := New(0, Deps{
		Profile: api.NewClient(srv.URL, srv.Client(), 0, nil),
		Store:   store.NewMemory(),
		Now:     func() time.Time { return time.UnixMilli(1700000000000) },
	})
	ctx := context.Background()
	require.NoError(t, mgr.Load(ctx))
	require.Len(t, mgr.Addresses(), 1)
	assert.Equal(t, "1699999999999", mgr.Addresses()[0].ID)

	_, err := mgr.Create(ctx, validAddress("Warehouse"))
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, patched, 1)
	list := models.ParseAddresses([]byte(patched[0]))
	require.Len(t, list, 2)
	assert.Equal(t, "Plant", list[0].Name)
	assert.Equal(t, "Warehouse", list[1].Name)
	assert.Equal(t, models.AddressOffice, list[1].Type)
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate(validAddress("Plant")))
	err := Validate(models.Address{})
	var fe *FieldError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, "name", fe.Field)
}
