package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/habilis/orders-api/internal/domain/invoice"
	"github.com/habilis/orders-api/internal/domain/order"
)

const (
	insertOrderSQL = `INSERT INTO orders (id, user_id, created_at, status, total)
		VALUES ($1, $2, $3, $4, $5)`

	insertOrderItemSQL = `INSERT INTO order_items (id, order_id, product_id, quantity, unit_price)
		VALUES ($1, $2, $3, $4, $5)`

	insertInvoiceSQL = `INSERT INTO invoices (id, code, order_id, user_id, issued_at, total)
		VALUES ($1, $2, $3, $4, $5, $6)`

	getOrderByIDSQL = `SELECT id, user_id, created_at, status, total
		FROM orders WHERE id = $1`

	listOrdersByUserSQL = `SELECT id, user_id, created_at, status, total
		FROM orders WHERE user_id = $1 ORDER BY created_at DESC`

	listOrdersByStatusSQL = `SELECT id, user_id, created_at, status, total
		FROM orders WHERE status = $1 ORDER BY created_at DESC`

	listItemsByOrdersSQL = `SELECT id, order_id, product_id, quantity, unit_price
		FROM order_items WHERE order_id = ANY($1) ORDER BY id`

	transitionStatusSQL = `UPDATE orders SET status = $3 WHERE id = $1 AND status = $2`
)

// uniqueViolation is the PostgreSQL error code for unique constraint breaches.
const uniqueViolation = "23505"

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL. Create
// is the transactional heart of the engine: header, line items, sequence
// claim, and invoice all commit or roll back together.
type OrderRepository struct {
	pool *pgxpool.Pool
	seq  Sequencer
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create persists the order header and line items and issues the invoice,
// all inside one transaction. On success o.Invoice carries the issued
// invoice with its generated code.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, insertOrderSQL,
		o.ID, o.UserID, o.CreatedAt, o.Status, o.Total,
	); err != nil {
		return fmt.Errorf("inserting order %q: %w", o.ID, err)
	}

	for _, line := range o.Items {
		if _, err := tx.Exec(ctx, insertOrderItemSQL,
			line.ID, o.ID, line.ProductID, line.Quantity, line.UnitPrice,
		); err != nil {
			return fmt.Errorf("inserting line for product %q: %w", line.ProductID, err)
		}
	}

	issuedAt := time.Now().UTC()
	code, err := r.seq.NextCode(ctx, tx, issuedAt)
	if err != nil {
		return err
	}

	inv := &invoice.Invoice{
		ID:       uuid.New().String(),
		Code:     code,
		OrderID:  o.ID,
		UserID:   o.UserID,
		IssuedAt: issuedAt,
		Total:    o.Total,
	}

	if _, err := tx.Exec(ctx, insertInvoiceSQL,
		inv.ID, inv.Code, inv.OrderID, inv.UserID, inv.IssuedAt, inv.Total,
	); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return errors.Wrapf(invoice.ErrDuplicate, "order %s", o.ID)
		}
		return fmt.Errorf("inserting invoice for order %q: %w", o.ID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing order %q: %w", o.ID, err)
	}

	o.Invoice = inv
	return nil
}

// GetByID returns the order with its line items and invoice.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, getOrderByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}

	if err := r.attachItems(ctx, []*order.Order{&o}); err != nil {
		return nil, err
	}

	inv, err := (&InvoiceRepository{pool: r.pool}).GetByOrder(ctx, id)
	switch {
	case err == nil:
		o.Invoice = inv
	case !errors.Is(err, invoice.ErrNotFound):
		return nil, err
	}

	return &o, nil
}

// ListByUser returns the user's orders with line items, most recent first.
func (r *OrderRepository) ListByUser(ctx context.Context, userID string) ([]order.Order, error) {
	return r.list(ctx, listOrdersByUserSQL, userID)
}

// ListByStatus returns all orders in the given status with line items.
func (r *OrderRepository) ListByStatus(ctx context.Context, status order.Status) ([]order.Order, error) {
	return r.list(ctx, listOrdersByStatusSQL, string(status))
}

// TransitionStatus conditionally moves an order between statuses. The WHERE
// clause on the current status means exactly one of several concurrent
// transitions wins; losers see ErrNotFound.
func (r *OrderRepository) TransitionStatus(ctx context.Context, id string, from, to order.Status) error {
	tag, err := r.pool.Exec(ctx, transitionStatusSQL, id, from, to)
	if err != nil {
		return fmt.Errorf("updating status of order %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return errors.Wrapf(order.ErrNotFound, "order %s no longer in status %s", id, from)
	}
	return nil
}

func (r *OrderRepository) list(ctx context.Context, sql string, arg string) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, sql, arg)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}

	orders, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}

	refs := make([]*order.Order, len(orders))
	for i := range orders {
		refs[i] = &orders[i]
	}
	if err := r.attachItems(ctx, refs); err != nil {
		return nil, err
	}
	return orders, nil
}

// attachItems loads line items for all given orders in one query.
func (r *OrderRepository) attachItems(ctx context.Context, orders []*order.Order) error {
	if len(orders) == 0 {
		return nil
	}

	ids := make([]string, len(orders))
	byID := make(map[string]*order.Order, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
		byID[o.ID] = o
	}

	rows, err := r.pool.Query(ctx, listItemsByOrdersSQL, ids)
	if err != nil {
		return fmt.Errorf("loading order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			line    order.LineItem
			orderID string
		)
		if err := rows.Scan(&line.ID, &orderID, &line.ProductID, &line.Quantity, &line.UnitPrice); err != nil {
			return fmt.Errorf("scanning order item: %w", err)
		}
		if o, ok := byID[orderID]; ok {
			o.Items = append(o.Items, line)
		}
	}
	return rows.Err()
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o      order.Order
		status string
	)
	err := row.Scan(&o.ID, &o.UserID, &o.CreatedAt, &status, &o.Total)
	o.Status = order.Status(status)
	return o, err
}
