package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/lukman83/mhe-storefront/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL+"/api", srv.Client(), 0, nil)
}

func TestListProducts_QueryAndPagination(t *testing.T) {
	var gotPath, gotQuery string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		w.Write([]byte(`{"count":2,"next":null,"previous":null,"results":[
			{"id":1,"name":"Reach Truck","price":"850000","category_name":"Forklifts","is_active":true},
			{"id":2,"name":"Order Picker","price":0,"category_name":"Forklifts","is_active":true}
		]}`))
	})

	products, err := c.ListProducts(context.Background(), ProductQuery{Search: "truck", CategoryName: "Forklifts"})
	require.NoError(t, err)
	assert.Equal(t, "/api/products/", gotPath)
	assert.Equal(t, "category_name=Forklifts&search=truck", gotQuery)
	require.Len(t, products, 2)
	assert.InDelta(t, 850000.0, products[0].Price, 0.01)
}

func TestListProducts_RejectsMalformedItems(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"id":0,"name":""}]`))
	})

	_, err := c.ListProducts(context.Background(), ProductQuery{})
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestFindCartItem(t *testing.T) {
	t.Run("filters locally", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "5", r.URL.Query().Get("product"))
			assert.Equal(t, "9", r.URL.Query().Get("user"))
			w.Write([]byte(`[
				{"id":11,"product":4,"user":9,"quantity":1},
				{"id":12,"product":{"id":5,"name":"Stacker"},"user":9,"quantity":3}
			]`))
		})
		item, err := c.FindCartItem(context.Background(), 9, 5)
		require.NoError(t, err)
		require.NotNil(t, item)
		assert.Equal(t, int64(12), item.ID)
		assert.Equal(t, 3, item.Quantity)
	})

	t.Run("absent", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`[]`))
		})
		item, err := c.FindCartItem(context.Background(), 9, 5)
		require.NoError(t, err)
		assert.Nil(t, item)
	})
}

func TestListCart_FollowsNextLinks(t *testing.T) {
	var pages []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/cart/", r.URL.Path)
		assert.Equal(t, "9", r.URL.Query().Get("user"))
		page := r.URL.Query().Get("page")
		pages = append(pages, page)
		switch page {
		case "":
			fmt.Fprintf(w, `{"count":3,"next":"http://%s/api/cart/?page=2&user=9","previous":null,"results":[
				{"id":1,"product":4,"user":9,"quantity":1}]}`, r.Host)
		case "2":
			w.Write([]byte(`{"count":3,"next":"/api/cart/?page=3&user=9","previous":null,"results":[
				{"id":2,"product":5,"user":9,"quantity":2}]}`))
		default:
			w.Write([]byte(`{"count":3,"next":null,"previous":null,"results":[
				{"id":3,"product":6,"user":9,"quantity":3}]}`))
		}
	})

	items, err := c.ListCart(context.Background(), 9)
	require.NoError(t, err)
	assert.Equal(t, []string{"", "2", "3"}, pages)
	require.Len(t, items, 3)
	assert.Equal(t, int64(6), items[2].Product.ID)
	assert.Equal(t, 3, items[2].Quantity)
}

func TestListCart_BareArray(t *testing.T) {
	calls := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte(`[{"id":1,"product":4,"user":9,"quantity":1}]`))
	})

	items, err := c.ListCart(context.Background(), 9)
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Equal(t, 1, calls)
}

func TestCreateCartItem_ConflictIsAPIError(t *testing.T) {
	var posted map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&posted))
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"non_field_errors":["The fields user, product must make a unique set."]}`))
	})

	_, err := c.CreateCartItem(context.Background(), 5, 1)
	require.Error(t, err)
	assert.True(t, IsConflict(err))
	assert.Equal(t, "The fields user, product must make a unique set.", Message(err, "fallback"))
	assert.Equal(t, map[string]any{"product": 5.0, "quantity": 1.0}, posted)
}

func TestUpdateAddresses_SendsWholeArrayAsMultipart(t *testing.T) {
	var field string
	var method, path string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		method, path = r.Method, r.URL.Path
		assert.NoError(t, r.ParseMultipartForm(1<<20))
		field = r.FormValue("address")
		w.Write([]byte(`{}`))
	})

	addrs := []models.Address{
		{ID: "1", Name: "Main depot", Type: models.AddressOffice, Address: "Plot 4, MIDC", City: "Pune", State: "MH", Pincode: "411019", Phone: "9876543210"},
		{ID: "2", Name: "Yard", Type: models.AddressOther, Address: "NH48", City: "Vapi", State: "GJ", Pincode: "396195", Phone: "9123456780"},
	}
	require.NoError(t, c.UpdateAddresses(context.Background(), 9, addrs))

	assert.Equal(t, http.MethodPatch, method)
	assert.Equal(t, "/api/users/9/", path)
	var got []models.Address
	require.NoError(t, json.Unmarshal([]byte(field), &got))
	assert.Equal(t, addrs, got)
}

func TestUpdateAddresses_EmptyListIsArray(t *testing.T) {
	var field string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseMultipartForm(1<<20))
		field = r.FormValue("address")
	})
	require.NoError(t, c.UpdateAddresses(context.Background(), 9, nil))
	assert.Equal(t, "[]", field)
}

func TestMe(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/users/me/", r.URL.Path)
		io.WriteString(w, `{"id":9,"username":"ops","address":"[{\"id\":\"1\",\"name\":\"Depot\",\"type\":\"work\"}]"}`)
	})

	u, err := c.Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(9), u.ID)
	require.Len(t, u.Addresses, 1)
	assert.Equal(t, models.AddressOffice, u.Addresses[0].Type)
}

func TestParseError(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		message  string
		conflict bool
	}{
		{"detail", 403, `{"detail":"Authentication credentials were not provided."}`, "Authentication credentials were not provided.", false},
		{"unique set", 400, `{"non_field_errors":["The fields user, product must make a unique set."]}`, "The fields user, product must make a unique set.", true},
		{"already exists field", 400, `{"product":["Wishlist item with this product already exists."]}`, "product: Wishlist item with this product already exists.", true},
		{"409", 409, `{}`, "", true},
		{"plain validation", 400, `{"quantity":["Ensure this value is greater than or equal to 1."]}`, "quantity: Ensure this value is greater than or equal to 1.", false},
		{"html body", 502, `<html>bad gateway</html>`, "", false},
		{"string list", 400, `["Product is out of stock."]`, "Product is out of stock.", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := parseError(tt.status, []byte(tt.body))
			assert.Equal(t, tt.message, err.Message)
			assert.Equal(t, tt.conflict, IsConflict(err))
		})
	}
}

func TestErrorHelpers(t *testing.T) {
	assert.True(t, IsNotFound(&APIError{StatusCode: 404}))
	assert.True(t, IsUnauthorized(&APIError{StatusCode: 401}))
	assert.False(t, IsConflict(assert.AnError))
	assert.Equal(t, "Something went wrong", Message(assert.AnError, "Something went wrong"))
}

func TestUserIDFromToken(t *testing.T) {
	sign := func(claims jwt.MapClaims) string {
		s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
		require.NoError(t, err)
		return s
	}

	id, err := UserIDFromToken(sign(jwt.MapClaims{"user_id": 42, "token_type": "access"}))
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	id, err = UserIDFromToken(sign(jwt.MapClaims{"sub": "17"}))
	require.NoError(t, err)
	assert.Equal(t, int64(17), id)

	_, err = UserIDFromToken(sign(jwt.MapClaims{"sub": "ops@example.com"}))
	assert.Error(t, err)

	_, err = UserIDFromToken("not-a-jwt")
	assert.Error(t, err)
}
