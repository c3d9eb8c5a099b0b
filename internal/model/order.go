// Package model holds the canonical order shape shared by every fulfillment
// component. Values are validated once at the storage boundary.
package model

import (
	"errors"
	"fmt"
	"time"

	"github.com/kiwari-pos/orderdesk/internal/enum"
	"github.com/shopspring/decimal"
)

// Status is the fulfillment status of an order.
type Status string

const (
	StatusPending    Status = enum.OrderStatusPending
	StatusInProgress Status = enum.OrderStatusInProgress
	StatusReady      Status = enum.OrderStatusReady
	StatusCompleted  Status = enum.OrderStatusCompleted
	StatusCancelled  Status = enum.OrderStatusCancelled
)

// Statuses lists every status in lifecycle order.
var Statuses = []Status{
	StatusPending,
	StatusInProgress,
	StatusReady,
	StatusCompleted,
	StatusCancelled,
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusReady, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Errors returned by Order.Validate.
var (
	ErrMissingID       = errors.New("order id is required")
	ErrUnknownStatus   = errors.New("unknown order status")
	ErrMissingItemName = errors.New("item name is required")
	ErrInvalidQuantity = errors.New("quantity must be >= 1")
	ErrNegativeAmount  = errors.New("amount must not be negative")
	ErrMissingCreated  = errors.New("created_at is required")
)

// Modifier is a name/value customisation on an item, e.g. Size: Large.
type Modifier struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// OrderItem is a read-only line item produced by the cart before checkout.
type OrderItem struct {
	Name                string           `json:"name"`
	Quantity            int              `json:"quantity"`
	Price               *decimal.Decimal `json:"price,omitempty"`
	Modifiers           []Modifier       `json:"modifiers,omitempty"`
	SpecialInstructions string           `json:"special_instructions,omitempty"`
}

// LineTotal returns price * quantity, or false when the item has no price.
func (i OrderItem) LineTotal() (decimal.Decimal, bool) {
	if i.Price == nil {
		return decimal.Zero, false
	}
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity))), true
}

// StatusChange is one entry of an order's append-only audit trail.
type StatusChange struct {
	Status    Status    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	ChangedBy string    `json:"changed_by,omitempty"`
}

// Order is one customer purchase awaiting fulfillment.
type Order struct {
	ID            string          `json:"id"`
	Status        Status          `json:"status"`
	CustomerName  string          `json:"customer_name,omitempty"`
	CustomerEmail string          `json:"customer_email,omitempty"`
	Items         []OrderItem     `json:"items"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	Tax           decimal.Decimal `json:"tax"`
	Tip           decimal.Decimal `json:"tip"`
	Total         decimal.Decimal `json:"total"`
	CreatedAt     time.Time       `json:"created_at"`
	StatusHistory []StatusChange  `json:"status_history"`
	Printed       bool            `json:"printed"`
}

// Validate checks the invariants downstream formatting and export code relies on.
func (o Order) Validate() error {
	if o.ID == "" {
		return ErrMissingID
	}
	if !o.Status.Valid() {
		return fmt.Errorf("order %s: %w: %q", o.ID, ErrUnknownStatus, o.Status)
	}
	if o.CreatedAt.IsZero() {
		return fmt.Errorf("order %s: %w", o.ID, ErrMissingCreated)
	}
	for i, item := range o.Items {
		if item.Name == "" {
			return fmt.Errorf("order %s: item[%d]: %w", o.ID, i, ErrMissingItemName)
		}
		if item.Quantity < 1 {
			return fmt.Errorf("order %s: item[%d]: %w", o.ID, i, ErrInvalidQuantity)
		}
		if item.Price != nil && item.Price.IsNegative() {
			return fmt.Errorf("order %s: item[%d] price: %w", o.ID, i, ErrNegativeAmount)
		}
	}
	for name, amt := range map[string]decimal.Decimal{
		"subtotal": o.Subtotal,
		"tax":      o.Tax,
		"tip":      o.Tip,
		"total":    o.Total,
	} {
		if amt.IsNegative() {
			return fmt.Errorf("order %s %s: %w", o.ID, name, ErrNegativeAmount)
		}
	}
	return nil
}

// Clone returns a deep copy so callers never share item or history slices.
func (o Order) Clone() Order {
	c := o
	if o.Items != nil {
		c.Items = make([]OrderItem, len(o.Items))
		for i, item := range o.Items {
			c.Items[i] = item
			if item.Modifiers != nil {
				c.Items[i].Modifiers = append([]Modifier(nil), item.Modifiers...)
			}
			if item.Price != nil {
				p := *item.Price
				c.Items[i].Price = &p
			}
		}
	}
	if o.StatusHistory != nil {
		c.StatusHistory = append([]StatusChange(nil), o.StatusHistory...)
	}
	return c
}

// Money rounds an amount to cents, the precision every total is kept at.
func Money(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}
