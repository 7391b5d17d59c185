package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lukman83/mhe-storefront/internal/addressbook"
	"github.com/lukman83/mhe-storefront/internal/cardsync"
	"github.com/lukman83/mhe-storefront/internal/compare"
	"github.com/lukman83/mhe-storefront/internal/models"
	"github.com/lukman83/mhe-storefront/internal/notify"
	"github.com/lukman83/mhe-storefront/internal/storefront"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// toolResult is the JSON body of every storefront tool: the notifications
// the operation produced and the state it left behind.
type toolResult struct {
	Toasts []notify.Toast `json:"toasts"`
	State  any            `json:"state,omitempty"`
}

type tools struct {
	svc *storefront.Service
}

func registerTools(s *server.MCPServer, svc *storefront.Service) {
	t := &tools{svc: svc}
	productID := mcp.WithNumber("product_id",
		mcp.Required(),
		mcp.Description("Marketplace product id"),
	)

	s.AddTool(mcp.NewTool("get_product",
		mcp.WithDescription("Get a product with its cart, wishlist and compare status"),
		productID,
	), t.handleGetProduct)

	s.AddTool(mcp.NewTool("cart_status",
		mcp.WithDescription("List the cart, or the cart state of one product when product_id is given"),
		mcp.WithNumber("product_id", mcp.Description("Optional product id")),
	), t.handleCartStatus)

	s.AddTool(mcp.NewTool("add_to_cart",
		mcp.WithDescription("Add a directly purchasable product to the cart with quantity 1"),
		productID,
	), t.cardOp((*cardsync.Controller).AddToCart))

	s.AddTool(mcp.NewTool("change_cart_quantity",
		mcp.WithDescription("Increase or decrease the cart quantity of a product by one"),
		productID,
		mcp.WithString("direction",
			mcp.Required(),
			mcp.Enum("increase", "decrease"),
			mcp.Description("increase or decrease"),
		),
	), t.handleChangeQuantity)

	s.AddTool(mcp.NewTool("remove_from_cart",
		mcp.WithDescription("Remove a product from the cart"),
		productID,
	), t.cardOp((*cardsync.Controller).Remove))

	s.AddTool(mcp.NewTool("toggle_wishlist",
		mcp.WithDescription("Add a product to the wishlist, or remove it if already there"),
		productID,
	), t.cardOp((*cardsync.Controller).ToggleWishlist))

	s.AddTool(mcp.NewTool("compare_add",
		mcp.WithDescription("Add a product to the comparison (same category only, up to 4)"),
		productID,
	), t.cardOp((*cardsync.Controller).Compare))

	s.AddTool(mcp.NewTool("compare_remove",
		mcp.WithDescription("Remove a product from the comparison"),
		productID,
	), t.handleCompareRemove)

	s.AddTool(mcp.NewTool("compare_table",
		mcp.WithDescription("Get the side-by-side comparison table"),
	), t.handleCompareTable)

	s.AddTool(mcp.NewTool("compare_search",
		mcp.WithDescription("Search products that can join the comparison; add_index adds the Nth result"),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Search text, at least 2 characters"),
		),
		mcp.WithNumber("add_index", mcp.Description("1-based result to add")),
	), t.handleCompareSearch)

	s.AddTool(mcp.NewTool("list_addresses",
		mcp.WithDescription("List saved delivery addresses and the selected one"),
	), t.handleListAddresses)

	s.AddTool(mcp.NewTool("add_address",
		mcp.WithDescription("Save a delivery address (at most 5)"),
		mcp.WithString("name", mcp.Required(), mcp.Description("Label, e.g. Pune plant")),
		mcp.WithString("phone", mcp.Required(), mcp.Description("10-digit phone number")),
		mcp.WithString("address", mcp.Required(), mcp.Description("Full address line")),
		mcp.WithString("city", mcp.Required(), mcp.Description("City")),
		mcp.WithString("state", mcp.Required(), mcp.Description("State")),
		mcp.WithString("pincode", mcp.Required(), mcp.Description("6-digit pincode")),
		mcp.WithString("type", mcp.Description("Home, Office or Other (default Home)")),
	), t.handleAddAddress)

	s.AddTool(mcp.NewTool("delete_address",
		mcp.WithDescription("Delete a saved address"),
		mcp.WithString("address_id", mcp.Required(), mcp.Description("Address id")),
	), t.handleDeleteAddress)

	s.AddTool(mcp.NewTool("select_address",
		mcp.WithDescription("Choose the delivery address"),
		mcp.WithString("address_id", mcp.Required(), mcp.Description("Address id")),
	), t.handleSelectAddress)
}

// respond encodes the toasts and state. An operation error marks the
// result as an error while keeping the toasts that explain it.
func respond(rec *notify.Recorder, state any, opErr error) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(toolResult{Toasts: rec.Toasts(), State: state}, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encode result: %v", err)), nil
	}
	res := mcp.NewToolResultText(string(data))
	res.IsError = opErr != nil
	return res, nil
}

func productArg(request mcp.CallToolRequest) (int64, error) {
	id := request.GetInt("product_id", 0)
	if id <= 0 {
		return 0, errors.New("product_id is required")
	}
	return int64(id), nil
}

// card loads the product named in the request into a controller whose
// toasts go to rec.
func (t *tools) card(ctx context.Context, request mcp.CallToolRequest, rec *notify.Recorder) (*cardsync.Controller, error) {
	id, err := productArg(request)
	if err != nil {
		return nil, err
	}
	return t.svc.Card(ctx, id, rec)
}

func (t *tools) cardOp(op func(*cardsync.Controller, context.Context) error) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		rec := &notify.Recorder{}
		c, err := t.card(ctx, request, rec)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		opErr := op(c, ctx)
		return respond(rec, c.State(), opErr)
	}
}

func (t *tools) handleGetProduct(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rec := &notify.Recorder{}
	c, err := t.card(ctx, request, rec)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return respond(rec, map[string]any{
		"product":     c.Product(),
		"card":        c.State(),
		"url":         c.ProductURL(),
		"can_compare": c.CanCompare(ctx),
	}, nil)
}

func (t *tools) handleCartStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if request.GetInt("product_id", 0) > 0 {
		rec := &notify.Recorder{}
		c, err := t.card(ctx, request, rec)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return respond(rec, c.State(), nil)
	}
	lines, err := t.svc.Cart(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("cart error: %v", err)), nil
	}
	return respond(&notify.Recorder{}, lines, nil)
}

func (t *tools) handleChangeQuantity(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var op func(*cardsync.Controller, context.Context) error
	switch request.GetString("direction", "") {
	case "increase":
		op = (*cardsync.Controller).Increase
	case "decrease":
		op = (*cardsync.Controller).Decrease
	default:
		return mcp.NewToolResultError("direction must be increase or decrease"), nil
	}
	return t.cardOp(op)(ctx, request)
}

func (t *tools) handleCompareRemove(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := productArg(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	rec := &notify.Recorder{}
	n := t.svc.Notifier(rec)
	err = t.svc.Compare.Remove(ctx, id)
	switch {
	case errors.Is(err, compare.ErrNotPresent):
		n.Notify(notify.Toast{Level: notify.Info, Message: fmt.Sprintf("Product %d is not in your comparison", id)})
		err = nil
	case err != nil:
		n.Notify(notify.Toast{Level: notify.Error, Message: "Could not update the comparison"})
	default:
		n.Notify(notify.Toast{Level: notify.Success, Message: "Removed from comparison"})
	}
	entries, _ := t.svc.Compare.Entries(ctx)
	return respond(rec, entries, err)
}

func (t *tools) handleCompareTable(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	entries, err := t.svc.Compare.Entries(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("compare error: %v", err)), nil
	}
	return respond(&notify.Recorder{}, compare.BuildTable(entries, t.svc.Compare.Max()), nil)
}

func (t *tools) handleCompareSearch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query := request.GetString("query", "")
	if query == "" {
		return mcp.NewToolResultError("query is required"), nil
	}
	results, err := t.svc.Searcher.Search(ctx, query)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search error: %v", err)), nil
	}

	rec := &notify.Recorder{}
	addIndex := request.GetInt("add_index", 0)
	if addIndex == 0 {
		return respond(rec, results, nil)
	}
	if addIndex < 1 || addIndex > len(results) {
		return mcp.NewToolResultError(fmt.Sprintf("add_index %d out of range (%d results)", addIndex, len(results))), nil
	}
	p := results[addIndex-1]
	addErr := t.svc.Searcher.Add(ctx, p)
	t.svc.Notifier(rec).Notify(compare.AddToast(p.Name, t.svc.Compare.Max(), addErr))
	if errors.Is(addErr, compare.ErrAlreadyPresent) {
		addErr = nil
	}
	entries, _ := t.svc.Compare.Entries(ctx)
	return respond(rec, entries, addErr)
}

func (t *tools) addressBook(ctx context.Context, rec *notify.Recorder) (*addressbook.Manager, error) {
	m, err := t.svc.AddressBook(ctx, rec)
	if err != nil {
		return nil, err
	}
	if err := m.Load(ctx); err != nil {
		return nil, err
	}
	return m, nil
}

type addressState struct {
	Addresses []models.Address `json:"addresses"`
	Selected  string           `json:"selected,omitempty"`
	Diverged  bool             `json:"diverged,omitempty"`
}

func stateOf(m *addressbook.Manager) addressState {
	sel, _ := m.Selected()
	return addressState{Addresses: m.Addresses(), Selected: sel.ID, Diverged: m.Diverged()}
}

func (t *tools) handleListAddresses(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rec := &notify.Recorder{}
	m, err := t.addressBook(ctx, rec)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("address error: %v", err)), nil
	}
	return respond(rec, stateOf(m), nil)
}

func (t *tools) handleAddAddress(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rec := &notify.Recorder{}
	m, err := t.addressBook(ctx, rec)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("address error: %v", err)), nil
	}
	_, opErr := m.Create(ctx, models.Address{
		Name:    request.GetString("name", ""),
		Phone:   request.GetString("phone", ""),
		Address: request.GetString("address", ""),
		City:    request.GetString("city", ""),
		State:   request.GetString("state", ""),
		Pincode: request.GetString("pincode", ""),
		Type:    models.ParseAddressType(request.GetString("type", "")),
	})
	return respond(rec, stateOf(m), opErr)
}

func (t *tools) handleDeleteAddress(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return t.addressOp(ctx, request, (*addressbook.Manager).Delete)
}

func (t *tools) handleSelectAddress(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return t.addressOp(ctx, request, (*addressbook.Manager).Select)
}

func (t *tools) addressOp(ctx context.Context, request mcp.CallToolRequest, op func(*addressbook.Manager, context.Context, string) error) (*mcp.CallToolResult, error) {
	id := request.GetString("address_id", "")
	if id == "" {
		return mcp.NewToolResultError("address_id is required"), nil
	}
	rec := &notify.Recorder{}
	m, err := t.addressBook(ctx, rec)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("address error: %v", err)), nil
	}
	opErr := op(m, ctx, id)
	return respond(rec, stateOf(m), opErr)
}
