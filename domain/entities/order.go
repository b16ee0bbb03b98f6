package entities

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// OrderStatus represents where an order is in its placement
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
)

// Order is a checked out cart
type Order struct {
	ID        string         `json:"id" bson:"_id"`
	SessionID string         `json:"session_id" bson:"session_id"`
	Items     []CartLineItem `json:"items" bson:"items"`
	Total     float64        `json:"total" bson:"total"`
	Status    OrderStatus    `json:"status" bson:"status"`
	CreatedAt time.Time      `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time      `json:"updated_at" bson:"updated_at"`
}

// NewOrder snapshots the given items into a pending order
func NewOrder(sessionID string, items []CartLineItem) *Order {
	now := time.Now()
	snapshot := make([]CartLineItem, len(items))
	copy(snapshot, items)
	return &Order{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		Items:     snapshot,
		Total:     CartTotal(snapshot),
		Status:    OrderStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// ItemNames returns the names of the ordered products
func (o *Order) ItemNames() []string {
	names := make([]string, 0, len(o.Items))
	for _, item := range o.Items {
		names = append(names, item.Name)
	}
	return names
}

// Validate checks the order invariants
func (o *Order) Validate() error {
	if o.ID == "" {
		return errors.New("order id is required")
	}
	if len(o.Items) == 0 {
		return errors.New("order has no items")
	}
	for _, item := range o.Items {
		if item.Quantity < 1 {
			return errors.New("order item quantity must be at least 1")
		}
	}
	return nil
}
