package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/kiwari-pos/orderdesk/internal/metrics"
	"github.com/kiwari-pos/orderdesk/internal/model"
	"github.com/kiwari-pos/orderdesk/internal/store"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const defaultBatchConcurrency = 8

// BatchError explains why one id in a batch was not applied.
type BatchError struct {
	OrderID string `json:"order_id"`
	Reason  string `json:"reason"`
	Err     error  `json:"-"`
}

// BatchResult is the outcome of a batch operation. Success is true only when
// every id was applied.
type BatchResult struct {
	Success bool         `json:"success"`
	Updated int          `json:"updated"`
	Failed  int          `json:"failed"`
	Errors  []BatchError `json:"errors"`
}

// WithBatchConcurrency bounds how many ids a batch processes at once.
func WithBatchConcurrency(n int) Option {
	return func(s *StatusService) {
		if n > 0 {
			s.batchLimit = n
		}
	}
}

// BatchUpdateStatus applies the same transition to every id independently.
// One id failing never stops the others.
func (s *StatusService) BatchUpdateStatus(ctx context.Context, orderIDs []string, to model.Status) BatchResult {
	res := s.runBatch(ctx, "update_status", orderIDs, func(ctx context.Context, id string) error {
		_, err := s.UpdateOrderStatus(ctx, id, to)
		return err
	})
	s.logger.Info("batch status update",
		zap.String("to", string(to)),
		zap.Int("updated", res.Updated),
		zap.Int("failed", res.Failed),
	)
	return res
}

// BatchMarkPrinted sets the printed flag on every id independently.
func (s *StatusService) BatchMarkPrinted(ctx context.Context, orderIDs []string) BatchResult {
	return s.runBatch(ctx, "mark_printed", orderIDs, func(ctx context.Context, id string) error {
		if err := s.store.MarkPrinted(ctx, id); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("%w: %s", ErrOrderNotFound, id)
			}
			return err
		}
		if s.notifier != nil {
			if err := s.notifier.OrderPrinted(context.WithoutCancel(ctx), id, s.now()); err != nil {
				s.logger.Warn("notify printed", zap.String("order_id", id), zap.Error(err))
			}
		}
		return nil
	})
}

// runBatch executes fn for every id with bounded concurrency and collects
// per-id outcomes in input order.
func (s *StatusService) runBatch(ctx context.Context, op string, ids []string, fn func(context.Context, string) error) BatchResult {
	errs := make([]error, len(ids))

	var g errgroup.Group
	g.SetLimit(s.batchLimit)
	for i, id := range ids {
		g.Go(func() error {
			errs[i] = fn(ctx, id)
			return nil
		})
	}
	_ = g.Wait()

	res := BatchResult{Errors: []BatchError{}}
	for i, err := range errs {
		if err == nil {
			res.Updated++
			continue
		}
		res.Failed++
		res.Errors = append(res.Errors, BatchError{OrderID: ids[i], Reason: err.Error(), Err: err})
	}
	res.Success = res.Failed == 0
	metrics.BatchItemsTotal.WithLabelValues(op, "ok").Add(float64(res.Updated))
	metrics.BatchItemsTotal.WithLabelValues(op, "failed").Add(float64(res.Failed))
	return res
}
