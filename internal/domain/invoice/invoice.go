// Package invoice defines the invoice entity and the per-day sequential
// code scheme.
package invoice

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Sentinel errors for invoice lookup and issuance.
var (
	// ErrNotFound is returned when no invoice matches the lookup key.
	ErrNotFound = errors.New("invoice not found")

	// ErrDuplicate indicates an invoice already exists for the target order.
	// One invoice per order is an invariant enforced by a unique constraint;
	// seeing this error means the engine tried to issue twice and should be
	// treated as an internal fault, not a user-facing condition.
	ErrDuplicate = errors.New("invoice already exists for order")
)

// Invoice is the billing record issued exactly once per order. Total is
// copied from the order at issuance and never updated afterwards, even when
// the order is later cancelled.
type Invoice struct {
	ID       string
	Code     string
	OrderID  string
	UserID   string
	IssuedAt time.Time
	Total    decimal.Decimal
}

// Code formats an invoice code from the issue day and the 1-based position
// in that day's sequence: FAC-YYYYMMDD-NNNNN.
func Code(day time.Time, seq int64) string {
	return fmt.Sprintf("FAC-%s-%05d", day.Format("20060102"), seq)
}

// Repository defines read operations for issued invoices. Issuance itself
// happens inside the order-creation transaction and is not exposed here.
type Repository interface {
	GetByCode(ctx context.Context, code string) (*Invoice, error)
	GetByOrder(ctx context.Context, orderID string) (*Invoice, error)
	ListByUser(ctx context.Context, userID string) ([]Invoice, error)
}

// Renderer produces a printable document for an order's invoice. The real
// PDF service lives outside this backend; the engine never depends on it.
type Renderer interface {
	Render(ctx context.Context, orderID string) ([]byte, error)
}
