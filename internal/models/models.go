package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

type Product struct {
	ID              int64    `json:"id" validate:"gt=0"`
	Name            string   `json:"name" validate:"required"`
	Description     string   `json:"description,omitempty"`
	Images          []string `json:"images,omitempty"`
	Price           float64  `json:"price"`
	HidePrice       bool     `json:"hide_price"`
	DirectSale      bool     `json:"direct_sale"`
	StockQuantity   int      `json:"stock_quantity"`
	IsActive        bool     `json:"is_active"`
	CategoryName    string   `json:"category_name,omitempty"`
	SubcategoryName string   `json:"subcategory_name,omitempty"`
	Manufacturer    string   `json:"manufacturer,omitempty"`
	Model           string   `json:"model,omitempty"`
	AverageRating   *float64 `json:"average_rating"`
}

// PrimaryImage returns the first image URL, or "" when the product has none.
func (p Product) PrimaryImage() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}

// UnmarshalJSON accepts prices sent as numbers or decimal strings, and
// images sent either as URLs or as {"image": url} objects.
func (p *Product) UnmarshalJSON(data []byte) error {
	type alias Product
	aux := struct {
		*alias
		Price  json.RawMessage   `json:"price"`
		Images []json.RawMessage `json:"images"`
	}{alias: (*alias)(p)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	price, err := parseNumber(aux.Price)
	if err != nil {
		return fmt.Errorf("product price: %w", err)
	}
	p.Price = price

	p.Images = p.Images[:0]
	for _, raw := range aux.Images {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			p.Images = append(p.Images, s)
			continue
		}
		var obj struct {
			Image string `json:"image"`
		}
		if err := json.Unmarshal(raw, &obj); err == nil && obj.Image != "" {
			p.Images = append(p.Images, obj.Image)
		}
	}
	return nil
}

// ProductRef is a product reference that may be serialized as a bare id or
// as a nested product object.
type ProductRef struct {
	ID      int64
	Product *Product
}

func (r *ProductRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if data[0] == '{' {
		var p Product
		if err := json.Unmarshal(data, &p); err != nil {
			return err
		}
		r.ID = p.ID
		r.Product = &p
		return nil
	}
	id, err := parseID(data)
	if err != nil {
		return fmt.Errorf("product reference: %w", err)
	}
	r.ID = id
	return nil
}

func (r ProductRef) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.ID)
}

type CartItem struct {
	ID         int64      `json:"id" validate:"gt=0"`
	Product    ProductRef `json:"product"`
	User       int64      `json:"user"`
	Quantity   int        `json:"quantity" validate:"gte=1"`
	TotalPrice float64    `json:"total_price"`
}

func (c *CartItem) UnmarshalJSON(data []byte) error {
	type alias CartItem
	aux := struct {
		*alias
		TotalPrice json.RawMessage `json:"total_price"`
	}{alias: (*alias)(c)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	total, err := parseNumber(aux.TotalPrice)
	if err != nil {
		return fmt.Errorf("cart total_price: %w", err)
	}
	c.TotalPrice = total
	return nil
}

type WishlistItem struct {
	ID      int64      `json:"id" validate:"gt=0"`
	Product ProductRef `json:"product"`
	User    int64      `json:"user"`
}

type User struct {
	ID        int64     `json:"id" validate:"gt=0"`
	Username  string    `json:"username,omitempty"`
	Email     string    `json:"email,omitempty"`
	FirstName string    `json:"first_name,omitempty"`
	LastName  string    `json:"last_name,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Addresses []Address `json:"-"`
}

// UnmarshalJSON reads the address list, which the profile endpoint may
// return either as a JSON array or as a JSON-encoded string. Anything else
// leaves Addresses empty.
func (u *User) UnmarshalJSON(data []byte) error {
	type alias User
	aux := struct {
		*alias
		Address json.RawMessage `json:"address"`
	}{alias: (*alias)(u)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	u.Addresses = ParseAddresses(aux.Address)
	return nil
}

// ParseAddresses decodes an address field into a list. Missing or malformed
// input yields nil.
func ParseAddresses(raw json.RawMessage) []Address {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil
		}
		raw = []byte(strings.TrimSpace(s))
		if len(raw) == 0 {
			return nil
		}
	}
	var list []Address
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil
	}
	return list
}

// AddressType is the canonical address label vocabulary.
type AddressType string

const (
	AddressHome   AddressType = "Home"
	AddressOffice AddressType = "Office"
	AddressOther  AddressType = "Other"
)

// ParseAddressType folds case and maps the "work" alias onto Office.
// Unknown or empty input maps to Home.
func ParseAddressType(s string) AddressType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "office", "work":
		return AddressOffice
	case "other":
		return AddressOther
	default:
		return AddressHome
	}
}

func (t *AddressType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*t = ParseAddressType(s)
	return nil
}

type Address struct {
	ID      string      `json:"id"`
	Name    string      `json:"name" validate:"required"`
	Phone   string      `json:"phone" validate:"required,phone"`
	Address string      `json:"address" validate:"required"`
	City    string      `json:"city" validate:"required"`
	State   string      `json:"state" validate:"required"`
	Pincode string      `json:"pincode" validate:"required,pincode"`
	Type    AddressType `json:"type"`
}

// UnmarshalJSON accepts the id as a string or as the bare millisecond
// number older clients wrote.
func (a *Address) UnmarshalJSON(data []byte) error {
	*a = Address{}
	type alias Address
	aux := struct {
		*alias
		ID json.RawMessage `json:"id"`
	}{alias: (*alias)(a)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	a.Type = ParseAddressType(string(a.Type))
	id := bytes.TrimSpace(aux.ID)
	if len(id) == 0 || string(id) == "null" {
		return nil
	}
	if id[0] == '"' {
		return json.Unmarshal(id, &a.ID)
	}
	var n json.Number
	if err := json.Unmarshal(id, &n); err != nil {
		return fmt.Errorf("address id: %w", err)
	}
	a.ID = n.String()
	return nil
}

// CompareEntry is the snapshot of a product kept in the comparison set.
// Price is nil whenever HidePrice is set.
type CompareEntry struct {
	ID           int64    `json:"id"`
	Image        string   `json:"image,omitempty"`
	Title        string   `json:"title"`
	Subtitle     string   `json:"subtitle,omitempty"`
	Price        *float64 `json:"price,omitempty"`
	Currency     string   `json:"currency,omitempty"`
	HidePrice    bool     `json:"hide_price"`
	DirectSale   bool     `json:"direct_sale"`
	CategoryName string   `json:"category_name"`
	Manufacturer string   `json:"manufacturer,omitempty"`
	Model        string   `json:"model,omitempty"`
	Ratings      *float64 `json:"ratings,omitempty"`
}

func parseNumber(raw json.RawMessage) (float64, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return 0, nil
		}
		return strconv.ParseFloat(s, 64)
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return 0, err
	}
	return f, nil
}

func parseID(raw []byte) (int64, error) {
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, err
		}
		return strconv.ParseInt(s, 10, 64)
	}
	var n int64
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, err
	}
	return n, nil
}
