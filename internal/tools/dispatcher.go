// Package tools executes the catalog and cart operations the assistant calls.
package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/satriahrh/pesan/domain/entities"
)

// Cart is the part of the cart manager the dispatcher mutates
type Cart interface {
	AddItem(product entities.Product, quantity int)
	RemoveItem(query string, quantity int) bool
	Clear()
	Total() float64
	Items() []entities.CartLineItem
}

// MenuView shows menu categories to the user
type MenuView interface {
	ShowMenu(categories []entities.Category)
}

// OrderPlacer records a checked out cart
type OrderPlacer interface {
	PlaceOrder(ctx context.Context, items []entities.CartLineItem) (*entities.Order, error)
}

// ErrUnknownTool is returned for calls to tools that are not registered
var ErrUnknownTool = errors.New("unknown tool")

// NoResultsMessage is returned by searchMenu when nothing matches
const NoResultsMessage = "No items found matching your query."

type handler func(ctx context.Context, args map[string]any) (map[string]any, error)

// Dispatcher maps tool calls to cart and catalog operations
type Dispatcher struct {
	catalog *entities.Catalog
	cart    Cart
	view    MenuView
	orders  OrderPlacer

	handlers map[string]handler
	logger   *zap.Logger
}

// NewDispatcher creates a dispatcher. view and orders may be nil.
func NewDispatcher(catalog *entities.Catalog, cart Cart, view MenuView, orders OrderPlacer, logger *zap.Logger) *Dispatcher {
	d := &Dispatcher{
		catalog: catalog,
		cart:    cart,
		view:    view,
		orders:  orders,
		logger:  logger,
	}
	d.handlers = map[string]handler{
		GetMenu:        d.getMenu,
		SearchMenu:     d.searchMenu,
		AddToCart:      d.addToCart,
		RemoveFromCart: d.removeFromCart,
		Checkout:       d.checkout,
	}
	return d
}

// Dispatch runs every call in order and returns one response per call with the
// call's id and name. A failing call yields {"error": message} and does not
// stop the rest of the batch.
func (d *Dispatcher) Dispatch(ctx context.Context, calls []entities.ToolCall) []entities.ToolResponse {
	responses := make([]entities.ToolResponse, 0, len(calls))
	for _, call := range calls {
		response, err := d.invoke(ctx, call)
		if err != nil {
			d.logger.Warn("Tool call failed",
				zap.String("id", call.ID),
				zap.String("name", call.Name),
				zap.Error(err))
			response = map[string]any{"error": err.Error()}
		}
		responses = append(responses, entities.ToolResponse{
			ID:       call.ID,
			Name:     call.Name,
			Response: response,
		})
	}
	return responses
}

func (d *Dispatcher) invoke(ctx context.Context, call entities.ToolCall) (response map[string]any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s panicked: %v", call.Name, r)
		}
	}()

	h, ok := d.handlers[call.Name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTool, call.Name)
	}

	d.logger.Info("Executing tool call",
		zap.String("id", call.ID),
		zap.String("name", call.Name),
		zap.Any("args", call.Args))
	return h(ctx, call.Args)
}

func (d *Dispatcher) getMenu(ctx context.Context, args map[string]any) (map[string]any, error) {
	if d.view != nil {
		d.view.ShowMenu(d.catalog.Categories)
	}
	return map[string]any{"menu": d.catalog.Menu()}, nil
}

func (d *Dispatcher) searchMenu(ctx context.Context, args map[string]any) (map[string]any, error) {
	query, err := stringArg(args, "query")
	if err != nil {
		return nil, err
	}

	results := d.catalog.Search(query)
	if len(results) == 0 {
		return map[string]any{"message": NoResultsMessage}, nil
	}

	if d.view != nil {
		d.view.ShowMenu(results)
	}
	return map[string]any{"results": results}, nil
}

func (d *Dispatcher) addToCart(ctx context.Context, args map[string]any) (map[string]any, error) {
	name, err := stringArg(args, "productName")
	if err != nil {
		return nil, err
	}
	quantity := quantityArg(args)

	product, ok := d.catalog.FindProduct(name)
	if !ok {
		return map[string]any{
			"success": false,
			"message": fmt.Sprintf("Product %s not found.", name),
		}, nil
	}

	d.cart.AddItem(product, quantity)
	return map[string]any{
		"success": true,
		"message": fmt.Sprintf("Added %d %s to cart.", quantity, product.Name),
	}, nil
}

func (d *Dispatcher) removeFromCart(ctx context.Context, args map[string]any) (map[string]any, error) {
	name, err := stringArg(args, "productName")
	if err != nil {
		return nil, err
	}
	quantity := quantityArg(args)

	if !d.cart.RemoveItem(name, quantity) {
		return map[string]any{
			"success": false,
			"message": fmt.Sprintf("Item %s not found in cart.", name),
		}, nil
	}
	return map[string]any{
		"success": true,
		"message": fmt.Sprintf("Removed %d %s from cart.", quantity, name),
	}, nil
}

func (d *Dispatcher) checkout(ctx context.Context, args map[string]any) (map[string]any, error) {
	total := d.cart.Total()
	items := d.cart.Items()
	d.cart.Clear()

	names := make([]string, 0, len(items))
	for _, item := range items {
		names = append(names, item.Name)
	}

	response := map[string]any{
		"success": true,
		"message": fmt.Sprintf("Order placed! Total: $%s. Items: %s",
			entities.FormatPrice(total), strings.Join(names, ", ")),
	}

	if d.orders != nil && len(items) > 0 {
		order, err := d.orders.PlaceOrder(ctx, items)
		if err != nil {
			d.logger.Error("Failed to record order",
				zap.Float64("total", total),
				zap.Error(err))
		} else {
			response["orderId"] = order.ID
		}
	}
	return response, nil
}

func stringArg(args map[string]any, key string) (string, error) {
	v, ok := args[key]
	if !ok || v == nil {
		return "", fmt.Errorf("%s is required", key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%s must be a string", key)
	}
	return s, nil
}

// quantityArg reads an optional positive quantity, defaulting to 1
func quantityArg(args map[string]any) int {
	var q int
	switch v := args["quantity"].(type) {
	case float64:
		q = int(v)
	case float32:
		q = int(v)
	case int:
		q = v
	case int64:
		q = int(v)
	}
	if q < 1 {
		return 1
	}
	return q
}
