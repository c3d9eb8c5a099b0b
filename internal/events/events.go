// Package events publishes order status changes to staff devices and
// downstream consumers.
package events

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/kiwari-pos/orderdesk/internal/enum"
	"github.com/kiwari-pos/orderdesk/internal/service"
)

// Event is the wire form of an applied status transition.
type Event struct {
	ID        uuid.UUID `json:"event_id"`
	Type      string    `json:"type"`
	OrderID   string    `json:"order_id"`
	From      string    `json:"from,omitempty"`
	To        string    `json:"to,omitempty"`
	ChangedBy string    `json:"changed_by,omitempty"`
	At        time.Time `json:"at"`
}

// Publisher delivers events to one destination.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Fanout sends every status change to each publisher. It implements
// service.Notifier.
type Fanout struct {
	publishers []Publisher
}

// NewFanout creates a Fanout over publishers; nil entries are skipped.
func NewFanout(publishers ...Publisher) *Fanout {
	f := &Fanout{}
	for _, p := range publishers {
		if p != nil {
			f.publishers = append(f.publishers, p)
		}
	}
	return f
}

// StatusChanged publishes to every destination and joins their errors.
func (f *Fanout) StatusChanged(ctx context.Context, sc service.StatusChanged) error {
	return f.publish(ctx, FromStatusChange(sc))
}

// OrderPrinted announces that an order's ticket went out.
func (f *Fanout) OrderPrinted(ctx context.Context, orderID string, at time.Time) error {
	return f.publish(ctx, Event{
		ID:      uuid.New(),
		Type:    enum.EventOrderPrinted,
		OrderID: orderID,
		At:      at,
	})
}

func (f *Fanout) publish(ctx context.Context, ev Event) error {
	var errs []error
	for _, p := range f.publishers {
		if err := p.Publish(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// FromStatusChange builds an Event with a fresh id.
func FromStatusChange(sc service.StatusChanged) Event {
	return Event{
		ID:        uuid.New(),
		Type:      enum.EventOrderStatusChanged,
		OrderID:   sc.Order.ID,
		From:      string(sc.From),
		To:        string(sc.To),
		ChangedBy: sc.ChangedBy,
		At:        sc.At,
	}
}
