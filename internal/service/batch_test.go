package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kiwari-pos/orderdesk/internal/model"
	"github.com/kiwari-pos/orderdesk/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBatchUpdateStatus_PartialFailure(t *testing.T) {
	svc, mem := newMemoryService(t, nil,
		testOrder("valid1", model.StatusReady),
		testOrder("valid2", model.StatusReady),
	)

	res := svc.BatchUpdateStatus(context.Background(), []string{"valid1", "invalid", "valid2"}, model.StatusCompleted)

	assert.False(t, res.Success)
	assert.Equal(t, 2, res.Updated)
	assert.Equal(t, 1, res.Failed)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "invalid", res.Errors[0].OrderID)
	assert.NotEmpty(t, res.Errors[0].Reason)
	assert.ErrorIs(t, res.Errors[0].Err, ErrOrderNotFound)

	for _, id := range []string{"valid1", "valid2"} {
		o, err := mem.GetOrder(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, model.StatusCompleted, o.Status)
	}
}

func TestBatchUpdateStatus_AllSucceed(t *testing.T) {
	svc, _ := newMemoryService(t, nil,
		testOrder("a", model.StatusPending),
		testOrder("b", model.StatusInProgress),
	)

	res := svc.BatchUpdateStatus(context.Background(), []string{"a", "b"}, model.StatusCancelled)
	assert.True(t, res.Success)
	assert.Equal(t, 2, res.Updated)
	assert.Equal(t, 0, res.Failed)
	assert.NotNil(t, res.Errors)
	assert.Empty(t, res.Errors)
}

func TestBatchUpdateStatus_InvalidTransitionsReportedInInputOrder(t *testing.T) {
	svc, _ := newMemoryService(t, []Option{WithBatchConcurrency(4)},
		testOrder("o1", model.StatusCompleted),
		testOrder("o2", model.StatusPending),
		testOrder("o3", model.StatusCancelled),
		testOrder("o4", model.StatusPending),
		testOrder("o5", model.StatusReady),
	)

	res := svc.BatchUpdateStatus(context.Background(), []string{"o1", "o2", "o3", "o4", "o5"}, model.StatusInProgress)
	assert.False(t, res.Success)
	assert.Equal(t, 2, res.Updated)
	assert.Equal(t, 3, res.Failed)

	ids := make([]string, len(res.Errors))
	for i, e := range res.Errors {
		ids[i] = e.OrderID
		assert.ErrorIs(t, e.Err, ErrInvalidTransition)
	}
	assert.Equal(t, []string{"o1", "o3", "o5"}, ids)
}

func TestBatchUpdateStatus_Empty(t *testing.T) {
	svc, _ := newMemoryService(t, nil)
	res := svc.BatchUpdateStatus(context.Background(), nil, model.StatusReady)
	assert.Equal(t, BatchResult{Success: true, Errors: []BatchError{}}, res)
}

func TestBatchUpdateStatus_RespectsConcurrencyLimit(t *testing.T) {
	var inFlight, peak int32
	st := &mockOrderStore{
		getOrderFn: func(ctx context.Context, id string) (model.Order, error) {
			n := atomic.AddInt32(&inFlight, 1)
			for {
				p := atomic.LoadInt32(&peak)
				if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt32(&inFlight, -1)
			return testOrder(id, model.StatusPending), nil
		},
		updateOrderStatusFn: func(ctx context.Context, arg store.UpdateStatusParams) (model.Order, error) {
			o := testOrder(arg.ID, arg.To)
			return o, nil
		},
	}
	svc := NewStatusService(st, WithBatchConcurrency(2))

	ids := []string{"a", "b", "c", "d", "e", "f"}
	res := svc.BatchUpdateStatus(context.Background(), ids, model.StatusInProgress)
	assert.True(t, res.Success)
	assert.Equal(t, 6, res.Updated)
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(2))
}

func TestWithBatchConcurrencyIgnoresNonPositive(t *testing.T) {
	svc := NewStatusService(&mockOrderStore{}, WithBatchConcurrency(0))
	assert.Equal(t, defaultBatchConcurrency, svc.batchLimit)
}

func TestBatchMarkPrinted(t *testing.T) {
	notifier := &recordingNotifier{}
	svc, mem := newMemoryService(t, []Option{WithNotifier(notifier)},
		testOrder("a", model.StatusPending),
		testOrder("b", model.StatusCompleted),
	)

	res := svc.BatchMarkPrinted(context.Background(), []string{"a", "ghost", "b"})
	assert.False(t, res.Success)
	assert.Equal(t, 2, res.Updated)
	assert.Equal(t, 1, res.Failed)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "ghost", res.Errors[0].OrderID)
	assert.ErrorIs(t, res.Errors[0].Err, ErrOrderNotFound)

	for _, id := range []string{"a", "b"} {
		o, err := mem.GetOrder(context.Background(), id)
		require.NoError(t, err)
		assert.True(t, o.Printed, id)
	}
	assert.ElementsMatch(t, []string{"a", "b"}, notifier.printed)
}

func TestBatchMarkPrinted_StoreError(t *testing.T) {
	boom := errors.New("disk full")
	st := &mockOrderStore{
		markPrintedFn: func(ctx context.Context, id string) error {
			if id == "bad" {
				return boom
			}
			return nil
		},
	}
	svc := NewStatusService(st)

	res := svc.BatchMarkPrinted(context.Background(), []string{"ok", "bad"})
	assert.False(t, res.Success)
	assert.Equal(t, 1, res.Updated)
	require.Len(t, res.Errors, 1)
	assert.ErrorIs(t, res.Errors[0].Err, boom)
	assert.Equal(t, "disk full", res.Errors[0].Reason)
}
