package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kiwari-pos/orderdesk/internal/metrics"
	"github.com/kiwari-pos/orderdesk/internal/model"
	"github.com/kiwari-pos/orderdesk/internal/store"
	"go.uber.org/zap"
)

// Errors returned by the status service.
var (
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrOrderNotFound     = errors.New("order not found")
	ErrStatusConflict    = errors.New("order status changed, please retry")
	ErrUnknownStatus     = errors.New("unknown status")
)

// InvalidTransitionError carries the rejected move. It matches
// ErrInvalidTransition with errors.Is.
type InvalidTransitionError struct {
	From model.Status
	To   model.Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot transition from %s to %s", e.From, e.To)
}

func (e *InvalidTransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

// allowedTransitions is the single transition table. Terminal statuses have
// no entry.
var allowedTransitions = map[model.Status][]model.Status{
	model.StatusPending:    {model.StatusInProgress, model.StatusCancelled},
	model.StatusInProgress: {model.StatusReady, model.StatusCancelled},
	model.StatusReady:      {model.StatusCompleted, model.StatusCancelled},
}

// CanTransition reports whether an order may move from one status to another.
func CanTransition(from, to model.Status) bool {
	for _, s := range allowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// AllowedTransitions returns the legal next statuses for from. Terminal and
// unknown statuses yield an empty slice.
func AllowedTransitions(from model.Status) []model.Status {
	return append([]model.Status{}, allowedTransitions[from]...)
}

// OrderStore defines the storage methods the status and batch operations need.
// Satisfied by *store.Postgres and *store.Memory.
type OrderStore interface {
	GetOrder(ctx context.Context, id string) (model.Order, error)
	UpdateOrderStatus(ctx context.Context, arg store.UpdateStatusParams) (model.Order, error)
	ListStatusHistory(ctx context.Context, id string) ([]model.StatusChange, error)
	MarkPrinted(ctx context.Context, id string) error
}

// StatusChanged describes an applied transition.
type StatusChanged struct {
	Order     model.Order
	From      model.Status
	To        model.Status
	ChangedBy string
	At        time.Time
}

// Notifier is told about applied transitions and printed flags. Failures
// never undo a write.
type Notifier interface {
	StatusChanged(ctx context.Context, ev StatusChanged) error
	OrderPrinted(ctx context.Context, orderID string, at time.Time) error
}

// StatusService executes transitions against the store.
type StatusService struct {
	store      OrderStore
	notifier   Notifier
	now        func() time.Time
	logger     *zap.Logger
	batchLimit int
}

// Option configures a StatusService.
type Option func(*StatusService)

// WithClock overrides the timestamp source for history entries.
func WithClock(now func() time.Time) Option {
	return func(s *StatusService) { s.now = now }
}

// WithNotifier registers a receiver for applied transitions.
func WithNotifier(n Notifier) Option {
	return func(s *StatusService) { s.notifier = n }
}

// WithLogger sets the service logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *StatusService) { s.logger = l }
}

// NewStatusService creates a new StatusService.
func NewStatusService(st OrderStore, opts ...Option) *StatusService {
	s := &StatusService{
		store:      st,
		now:        time.Now,
		logger:     zap.NewNop(),
		batchLimit: defaultBatchConcurrency,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// UpdateOrderStatus validates and applies a transition, appending one history
// entry. Invalid moves are rejected, never coerced.
func (s *StatusService) UpdateOrderStatus(ctx context.Context, orderID string, to model.Status) (model.Order, error) {
	if !to.Valid() {
		metrics.RejectedTransitionsTotal.WithLabelValues("unknown_status").Inc()
		return model.Order{}, fmt.Errorf("%w: %q", ErrUnknownStatus, to)
	}

	current, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			metrics.RejectedTransitionsTotal.WithLabelValues("not_found").Inc()
			return model.Order{}, fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
		}
		return model.Order{}, fmt.Errorf("get order %s: %w", orderID, err)
	}

	if !CanTransition(current.Status, to) {
		metrics.RejectedTransitionsTotal.WithLabelValues("invalid_transition").Inc()
		return model.Order{}, &InvalidTransitionError{From: current.Status, To: to}
	}

	actor := ActorFromContext(ctx)
	at := s.now()
	updated, err := s.store.UpdateOrderStatus(ctx, store.UpdateStatusParams{
		ID:        orderID,
		From:      current.Status,
		To:        to,
		ChangedAt: at,
		ChangedBy: actor,
	})
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			metrics.RejectedTransitionsTotal.WithLabelValues("not_found").Inc()
			return model.Order{}, fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
		case errors.Is(err, store.ErrStatusConflict):
			metrics.RejectedTransitionsTotal.WithLabelValues("conflict").Inc()
			return model.Order{}, fmt.Errorf("%w: %s", ErrStatusConflict, orderID)
		}
		return model.Order{}, fmt.Errorf("update order %s status: %w", orderID, err)
	}
	metrics.StatusTransitionsTotal.WithLabelValues(string(to)).Inc()

	s.logger.Info("order status updated",
		zap.String("order_id", orderID),
		zap.String("from", string(current.Status)),
		zap.String("to", string(to)),
		zap.String("changed_by", actor),
	)

	if s.notifier != nil {
		ev := StatusChanged{Order: updated, From: current.Status, To: to, ChangedBy: actor, At: at}
		if err := s.notifier.StatusChanged(context.WithoutCancel(ctx), ev); err != nil {
			s.logger.Warn("notify status change", zap.String("order_id", orderID), zap.Error(err))
		}
	}
	return updated, nil
}

// GetStatusHistory returns the audit trail of an order, oldest first.
func (s *StatusService) GetStatusHistory(ctx context.Context, orderID string) ([]model.StatusChange, error) {
	history, err := s.store.ListStatusHistory(ctx, orderID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
		}
		return nil, fmt.Errorf("list status history %s: %w", orderID, err)
	}
	return history, nil
}
