package store

import (
	"context"
	"testing"
	"time"

	"github.com/kiwari-pos/orderdesk/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memOrder(id string, status model.Status) model.Order {
	return model.Order{
		ID:        id,
		Status:    status,
		Items:     []model.OrderItem{{Name: "Tea", Quantity: 1, Modifiers: []model.Modifier{{Name: "Sugar", Value: "Less"}}}},
		Total:     decimal.RequireFromString("2.50"),
		CreatedAt: time.Date(2024, 1, 15, 8, 0, 0, 0, time.UTC),
	}
}

func TestNewMemoryRejectsInvalidOrders(t *testing.T) {
	_, err := NewMemory(model.Order{ID: "x", Status: "lost", CreatedAt: time.Now()})
	assert.ErrorIs(t, err, model.ErrUnknownStatus)
}

func TestMemoryInsertDuplicate(t *testing.T) {
	m, err := NewMemory(memOrder("A", model.StatusPending))
	require.NoError(t, err)
	assert.ErrorIs(t, m.InsertOrder(context.Background(), memOrder("A", model.StatusReady)), ErrDuplicateOrder)
}

func TestMemoryListKeepsInsertionOrder(t *testing.T) {
	m, err := NewMemory(memOrder("C", model.StatusPending), memOrder("A", model.StatusPending), memOrder("B", model.StatusPending))
	require.NoError(t, err)

	orders, err := m.ListOrders(context.Background())
	require.NoError(t, err)
	require.Len(t, orders, 3)
	assert.Equal(t, "C", orders[0].ID)
	assert.Equal(t, "A", orders[1].ID)
	assert.Equal(t, "B", orders[2].ID)
}

func TestMemoryReturnsCopies(t *testing.T) {
	m, err := NewMemory(memOrder("A", model.StatusPending))
	require.NoError(t, err)
	ctx := context.Background()

	o, err := m.GetOrder(ctx, "A")
	require.NoError(t, err)
	o.Status = model.StatusCancelled
	o.Items[0].Modifiers[0].Value = "None"

	again, err := m.GetOrder(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, again.Status)
	assert.Equal(t, "Less", again.Items[0].Modifiers[0].Value)
}

func TestMemoryUpdateOrderStatus(t *testing.T) {
	m, err := NewMemory(memOrder("A", model.StatusPending))
	require.NoError(t, err)
	ctx := context.Background()
	at := time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)

	updated, err := m.UpdateOrderStatus(ctx, UpdateStatusParams{ID: "A", From: model.StatusPending, To: model.StatusInProgress, ChangedAt: at, ChangedBy: "Rina"})
	require.NoError(t, err)
	assert.Equal(t, model.StatusInProgress, updated.Status)
	assert.Equal(t, []model.StatusChange{{Status: model.StatusInProgress, Timestamp: at, ChangedBy: "Rina"}}, updated.StatusHistory)

	_, err = m.UpdateOrderStatus(ctx, UpdateStatusParams{ID: "A", From: model.StatusPending, To: model.StatusCancelled, ChangedAt: at})
	assert.ErrorIs(t, err, ErrStatusConflict)

	_, err = m.UpdateOrderStatus(ctx, UpdateStatusParams{ID: "Z", From: model.StatusPending, To: model.StatusCancelled, ChangedAt: at})
	assert.ErrorIs(t, err, ErrNotFound)

	history, err := m.ListStatusHistory(ctx, "A")
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestMemoryListStatusHistory(t *testing.T) {
	m, err := NewMemory(memOrder("A", model.StatusPending))
	require.NoError(t, err)

	history, err := m.ListStatusHistory(context.Background(), "A")
	require.NoError(t, err)
	assert.NotNil(t, history)
	assert.Empty(t, history)

	_, err = m.ListStatusHistory(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryMarkPrinted(t *testing.T) {
	m, err := NewMemory(memOrder("A", model.StatusPending))
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, m.MarkPrinted(ctx, "A"))
	o, err := m.GetOrder(ctx, "A")
	require.NoError(t, err)
	assert.True(t, o.Printed)

	assert.ErrorIs(t, m.MarkPrinted(ctx, "B"), ErrNotFound)
}

func TestDemoOrdersAreValid(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	orders := DemoOrders(now)
	require.NotEmpty(t, orders)

	seen := map[model.Status]bool{}
	for _, o := range orders {
		require.NoError(t, o.Validate(), o.ID)
		assert.True(t, o.Total.Equal(o.Subtotal.Add(o.Tax).Add(o.Tip)), o.ID)
		seen[o.Status] = true
	}
	assert.Len(t, seen, len(model.Statuses))

	_, err := NewMemory(orders...)
	assert.NoError(t, err)
}
