package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/kiwari-pos/orderdesk/internal/model"
)

// Memory is an in-process store used for tests and the demo server.
// Writes to a single order are serialised by one mutex.
type Memory struct {
	mu     sync.RWMutex
	orders map[string]*model.Order
	ids    []string
}

// NewMemory creates a store holding orders, validating each one.
func NewMemory(orders ...model.Order) (*Memory, error) {
	m := &Memory{orders: make(map[string]*model.Order)}
	for _, o := range orders {
		if err := m.InsertOrder(context.Background(), o); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// InsertOrder adds a new order as handed over by checkout.
func (m *Memory) InsertOrder(ctx context.Context, o model.Order) error {
	if err := o.Validate(); err != nil {
		return err
	}
	c := o.Clone()

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.orders[c.ID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateOrder, c.ID)
	}
	m.orders[c.ID] = &c
	m.ids = append(m.ids, c.ID)
	return nil
}

// ListOrders returns copies of every order in insertion order.
func (m *Memory) ListOrders(ctx context.Context) ([]model.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.Order, 0, len(m.ids))
	for _, id := range m.ids {
		out = append(out, m.orders[id].Clone())
	}
	return out, nil
}

func (m *Memory) GetOrder(ctx context.Context, id string) (model.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.orders[id]
	if !ok {
		return model.Order{}, ErrNotFound
	}
	return o.Clone(), nil
}

func (m *Memory) UpdateOrderStatus(ctx context.Context, arg UpdateStatusParams) (model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[arg.ID]
	if !ok {
		return model.Order{}, ErrNotFound
	}
	if o.Status != arg.From {
		return model.Order{}, ErrStatusConflict
	}
	o.Status = arg.To
	o.StatusHistory = append(o.StatusHistory, model.StatusChange{
		Status:    arg.To,
		Timestamp: arg.ChangedAt,
		ChangedBy: arg.ChangedBy,
	})
	return o.Clone(), nil
}

func (m *Memory) ListStatusHistory(ctx context.Context, id string) ([]model.StatusChange, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]model.StatusChange{}, o.StatusHistory...), nil
}

func (m *Memory) MarkPrinted(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return ErrNotFound
	}
	o.Printed = true
	return nil
}
