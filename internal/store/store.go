// Package store persists orders and their status history. It is the durable
// collaborator behind the fulfillment engine: the engine reads order sets from
// it and writes single-order status or printed changes back.
package store

import (
	"errors"
	"time"

	"github.com/kiwari-pos/orderdesk/internal/model"
)

// Errors returned by every store implementation.
var (
	ErrNotFound       = errors.New("order not found")
	ErrStatusConflict = errors.New("order status changed concurrently")
	ErrDuplicateOrder = errors.New("order already exists")
)

// UpdateStatusParams describes a compare-and-set status write. The write only
// lands if the stored status still equals From.
type UpdateStatusParams struct {
	ID        string
	From      model.Status
	To        model.Status
	ChangedAt time.Time
	ChangedBy string
}
