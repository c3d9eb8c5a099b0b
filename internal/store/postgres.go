package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/kiwari-pos/orderdesk/internal/model"
	"github.com/shopspring/decimal"
)

// DB is the subset of *pgxpool.Pool the Postgres store needs.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const (
	orderColumns = `id, status, customer_name, customer_email,
		subtotal::text, tax::text, tip::text, total::text, printed, created_at`

	listOrdersQuery = `SELECT ` + orderColumns + ` FROM orders ORDER BY created_at, id`

	getOrderQuery = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	listItemsQuery = `
		SELECT order_id, name, quantity, price::text, modifiers, special_instructions
		FROM order_items
		WHERE order_id = ANY($1)
		ORDER BY order_id, position`

	listHistoryQuery = `
		SELECT order_id, status, changed_at, changed_by
		FROM order_status_history
		WHERE order_id = ANY($1)
		ORDER BY order_id, id`

	updateStatusQuery = `UPDATE orders SET status = $3 WHERE id = $1 AND status = $2`

	insertHistoryQuery = `
		INSERT INTO order_status_history (order_id, status, changed_at, changed_by)
		VALUES ($1, $2, $3, $4)`

	orderExistsQuery = `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`

	markPrintedQuery = `UPDATE orders SET printed = TRUE WHERE id = $1`

	insertOrderQuery = `
		INSERT INTO orders (id, status, customer_name, customer_email, subtotal, tax, tip, total, printed, created_at)
		VALUES ($1, $2, $3, $4, $5::numeric, $6::numeric, $7::numeric, $8::numeric, $9, $10)`

	insertItemQuery = `
		INSERT INTO order_items (order_id, position, name, quantity, price, modifiers, special_instructions)
		VALUES ($1, $2, $3, $4, $5::numeric, $6, $7)`

	pgErrUniqueViolation = "23505"
)

// Postgres stores orders in PostgreSQL through pgx.
type Postgres struct {
	db DB
}

// NewPostgres creates a Postgres store over a pool or transaction.
func NewPostgres(db DB) *Postgres {
	return &Postgres{db: db}
}

// ListOrders returns every order with items and history attached.
func (p *Postgres) ListOrders(ctx context.Context) ([]model.Order, error) {
	rows, err := p.db.Query(ctx, listOrdersQuery)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	orders, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, fmt.Errorf("scan orders: %w", err)
	}
	if err := p.attach(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (p *Postgres) GetOrder(ctx context.Context, id string) (model.Order, error) {
	rows, err := p.db.Query(ctx, getOrderQuery, id)
	if err != nil {
		return model.Order{}, fmt.Errorf("get order: %w", err)
	}
	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Order{}, ErrNotFound
		}
		return model.Order{}, fmt.Errorf("scan order: %w", err)
	}
	orders := []model.Order{o}
	if err := p.attach(ctx, orders); err != nil {
		return model.Order{}, err
	}
	return orders[0], nil
}

// UpdateOrderStatus moves the order from arg.From to arg.To and records the
// history entry in the same transaction.
func (p *Postgres) UpdateOrderStatus(ctx context.Context, arg UpdateStatusParams) (model.Order, error) {
	tx, err := p.db.Begin(ctx)
	if err != nil {
		return model.Order{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	tag, err := tx.Exec(ctx, updateStatusQuery, arg.ID, string(arg.From), string(arg.To))
	if err != nil {
		return model.Order{}, fmt.Errorf("update order status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := tx.QueryRow(ctx, orderExistsQuery, arg.ID).Scan(&exists); err != nil {
			return model.Order{}, fmt.Errorf("check order exists: %w", err)
		}
		if !exists {
			return model.Order{}, ErrNotFound
		}
		return model.Order{}, ErrStatusConflict
	}

	if _, err := tx.Exec(ctx, insertHistoryQuery, arg.ID, string(arg.To), arg.ChangedAt, arg.ChangedBy); err != nil {
		return model.Order{}, fmt.Errorf("insert status history: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return model.Order{}, fmt.Errorf("commit tx: %w", err)
	}
	return p.GetOrder(ctx, arg.ID)
}

func (p *Postgres) ListStatusHistory(ctx context.Context, id string) ([]model.StatusChange, error) {
	var exists bool
	if err := p.db.QueryRow(ctx, orderExistsQuery, id).Scan(&exists); err != nil {
		return nil, fmt.Errorf("check order exists: %w", err)
	}
	if !exists {
		return nil, ErrNotFound
	}
	history, err := p.history(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	if h := history[id]; h != nil {
		return h, nil
	}
	return []model.StatusChange{}, nil
}

func (p *Postgres) MarkPrinted(ctx context.Context, id string) error {
	tag, err := p.db.Exec(ctx, markPrintedQuery, id)
	if err != nil {
		return fmt.Errorf("mark printed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// InsertOrder stores a checked-out order with its items and any history it
// already carries.
func (p *Postgres) InsertOrder(ctx context.Context, o model.Order) error {
	if err := o.Validate(); err != nil {
		return err
	}

	tx, err := p.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	_, err = tx.Exec(ctx, insertOrderQuery,
		o.ID, string(o.Status), o.CustomerName, o.CustomerEmail,
		o.Subtotal.StringFixed(2), o.Tax.StringFixed(2), o.Tip.StringFixed(2), o.Total.StringFixed(2),
		o.Printed, o.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgErrUniqueViolation {
			return fmt.Errorf("%w: %s", ErrDuplicateOrder, o.ID)
		}
		return fmt.Errorf("insert order: %w", err)
	}

	for i, item := range o.Items {
		mods, err := json.Marshal(nonNilModifiers(item.Modifiers))
		if err != nil {
			return fmt.Errorf("item[%d]: encode modifiers: %w", i, err)
		}
		var price *string
		if item.Price != nil {
			s := item.Price.StringFixed(2)
			price = &s
		}
		if _, err := tx.Exec(ctx, insertItemQuery,
			o.ID, i, item.Name, item.Quantity, price, mods, item.SpecialInstructions,
		); err != nil {
			return fmt.Errorf("item[%d]: insert: %w", i, err)
		}
	}

	for _, h := range o.StatusHistory {
		if _, err := tx.Exec(ctx, insertHistoryQuery, o.ID, string(h.Status), h.Timestamp, h.ChangedBy); err != nil {
			return fmt.Errorf("insert status history: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// attach loads items and history for orders in two round trips.
func (p *Postgres) attach(ctx context.Context, orders []model.Order) error {
	if len(orders) == 0 {
		return nil
	}
	ids := make([]string, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
	}

	items, err := p.items(ctx, ids)
	if err != nil {
		return err
	}
	history, err := p.history(ctx, ids)
	if err != nil {
		return err
	}

	for i := range orders {
		orders[i].Items = items[orders[i].ID]
		if orders[i].Items == nil {
			orders[i].Items = []model.OrderItem{}
		}
		orders[i].StatusHistory = history[orders[i].ID]
		if orders[i].StatusHistory == nil {
			orders[i].StatusHistory = []model.StatusChange{}
		}
		if err := orders[i].Validate(); err != nil {
			return fmt.Errorf("load order: %w", err)
		}
	}
	return nil
}

func (p *Postgres) items(ctx context.Context, ids []string) (map[string][]model.OrderItem, error) {
	rows, err := p.db.Query(ctx, listItemsQuery, ids)
	if err != nil {
		return nil, fmt.Errorf("list order items: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]model.OrderItem)
	for rows.Next() {
		var (
			orderID string
			item    model.OrderItem
			price   *string
			mods    []byte
		)
		if err := rows.Scan(&orderID, &item.Name, &item.Quantity, &price, &mods, &item.SpecialInstructions); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		if price != nil {
			d, err := decimal.NewFromString(*price)
			if err != nil {
				return nil, fmt.Errorf("order %s: parse item price: %w", orderID, err)
			}
			item.Price = &d
		}
		if len(mods) > 0 {
			if err := json.Unmarshal(mods, &item.Modifiers); err != nil {
				return nil, fmt.Errorf("order %s: decode modifiers: %w", orderID, err)
			}
		}
		out[orderID] = append(out[orderID], item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order items: %w", err)
	}
	return out, nil
}

func (p *Postgres) history(ctx context.Context, ids []string) (map[string][]model.StatusChange, error) {
	rows, err := p.db.Query(ctx, listHistoryQuery, ids)
	if err != nil {
		return nil, fmt.Errorf("list status history: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]model.StatusChange)
	for rows.Next() {
		var (
			orderID string
			status  string
			h       model.StatusChange
		)
		if err := rows.Scan(&orderID, &status, &h.Timestamp, &h.ChangedBy); err != nil {
			return nil, fmt.Errorf("scan status history: %w", err)
		}
		h.Status = model.Status(status)
		out[orderID] = append(out[orderID], h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate status history: %w", err)
	}
	return out, nil
}

func scanOrder(row pgx.CollectableRow) (model.Order, error) {
	var (
		o                         model.Order
		status                    string
		subtotal, tax, tip, total string
	)
	if err := row.Scan(&o.ID, &status, &o.CustomerName, &o.CustomerEmail,
		&subtotal, &tax, &tip, &total, &o.Printed, &o.CreatedAt); err != nil {
		return model.Order{}, err
	}
	o.Status = model.Status(status)

	var err error
	if o.Subtotal, err = decimal.NewFromString(subtotal); err != nil {
		return model.Order{}, fmt.Errorf("parse subtotal: %w", err)
	}
	if o.Tax, err = decimal.NewFromString(tax); err != nil {
		return model.Order{}, fmt.Errorf("parse tax: %w", err)
	}
	if o.Tip, err = decimal.NewFromString(tip); err != nil {
		return model.Order{}, fmt.Errorf("parse tip: %w", err)
	}
	if o.Total, err = decimal.NewFromString(total); err != nil {
		return model.Order{}, fmt.Errorf("parse total: %w", err)
	}
	return o, nil
}

func nonNilModifiers(m []model.Modifier) []model.Modifier {
	if m == nil {
		return []model.Modifier{}
	}
	return m
}
