package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/habilis/orders-api/internal/domain/invoice"
)

const (
	// One counter row per calendar day. The upsert increments and returns
	// atomically; run inside the invoice-insert transaction it rolls back
	// with it, so committed same-day sequences are gapless.
	nextInvoiceSeqSQL = `INSERT INTO invoice_counters (day, counter) VALUES ($1, 1)
		ON CONFLICT (day) DO UPDATE SET counter = invoice_counters.counter + 1
		RETURNING counter`

	getInvoiceByCodeSQL = `SELECT id, code, order_id, user_id, issued_at, total
		FROM invoices WHERE code = $1`

	getInvoiceByOrderSQL = `SELECT id, code, order_id, user_id, issued_at, total
		FROM invoices WHERE order_id = $1`

	listInvoicesByUserSQL = `SELECT id, code, order_id, user_id, issued_at, total
		FROM invoices WHERE user_id = $1 ORDER BY issued_at DESC`
)

// Sequencer issues per-day sequential invoice codes. NextCode must be called
// with the transaction that inserts the invoice, so an aborted order never
// consumes a committed sequence number.
type Sequencer struct{}

// NextCode claims the next sequence number for the given day and formats it
// as FAC-YYYYMMDD-NNNNN.
func (Sequencer) NextCode(ctx context.Context, db DBTX, day time.Time) (string, error) {
	var seq int64
	if err := db.QueryRow(ctx, nextInvoiceSeqSQL, day).Scan(&seq); err != nil {
		return "", fmt.Errorf("claiming invoice sequence for %s: %w", day.Format("2006-01-02"), err)
	}
	return invoice.Code(day, seq), nil
}

var _ invoice.Repository = (*InvoiceRepository)(nil)

// InvoiceRepository implements invoice.Repository backed by PostgreSQL.
type InvoiceRepository struct {
	pool *pgxpool.Pool
}

// NewInvoiceRepository returns an InvoiceRepository that uses the given pool.
func NewInvoiceRepository(pool *pgxpool.Pool) *InvoiceRepository {
	return &InvoiceRepository{pool: pool}
}

// GetByCode returns the invoice with the given unique code.
func (r *InvoiceRepository) GetByCode(ctx context.Context, code string) (*invoice.Invoice, error) {
	return r.getOne(ctx, getInvoiceByCodeSQL, code)
}

// GetByOrder returns the invoice issued for the given order.
func (r *InvoiceRepository) GetByOrder(ctx context.Context, orderID string) (*invoice.Invoice, error) {
	return r.getOne(ctx, getInvoiceByOrderSQL, orderID)
}

// ListByUser returns the user's invoices, most recently issued first.
func (r *InvoiceRepository) ListByUser(ctx context.Context, userID string) ([]invoice.Invoice, error) {
	rows, err := r.pool.Query(ctx, listInvoicesByUserSQL, userID)
	if err != nil {
		return nil, fmt.Errorf("listing invoices for user %q: %w", userID, err)
	}
	return pgx.CollectRows(rows, scanInvoice)
}

func (r *InvoiceRepository) getOne(ctx context.Context, sql, arg string) (*invoice.Invoice, error) {
	rows, err := r.pool.Query(ctx, sql, arg)
	if err != nil {
		return nil, fmt.Errorf("getting invoice: %w", err)
	}

	inv, err := pgx.CollectExactlyOneRow(rows, scanInvoice)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, invoice.ErrNotFound
		}
		return nil, fmt.Errorf("getting invoice: %w", err)
	}
	return &inv, nil
}

func scanInvoice(row pgx.CollectableRow) (invoice.Invoice, error) {
	var inv invoice.Invoice
	err := row.Scan(&inv.ID, &inv.Code, &inv.OrderID, &inv.UserID, &inv.IssuedAt, &inv.Total)
	return inv, err
}
