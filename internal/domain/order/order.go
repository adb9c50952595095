package order

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/habilis/orders-api/internal/domain/invoice"
)

// Sentinel errors for order lookup and cart validation.
var (
	ErrNotFound  = errors.New("order not found")
	ErrEmptyCart = errors.New("cart is empty")
)

// InvalidQuantityError indicates a cart line with a non-positive quantity.
type InvalidQuantityError struct {
	ProductID string
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be greater than 0 for product %s", e.ProductID)
}

// CartItem is a single requested line in a submitted cart.
type CartItem struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// ValidationError is one soft cart problem reported by ValidateCart.
// Validation lists every problem found, not just the first.
type ValidationError struct {
	ProductID string `json:"product_id"`
	Message   string `json:"message"`
}

// LineItem is a purchased line owned by exactly one order. UnitPrice is the
// catalog price captured when the stock was reserved; later price edits must
// never change it.
type LineItem struct {
	ID        string
	ProductID string
	Quantity  int
	UnitPrice decimal.Decimal
}

// Subtotal returns quantity times the captured unit price.
func (li LineItem) Subtotal() decimal.Decimal {
	return li.UnitPrice.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// Order is a durable purchase record. Total is derived from the line
// subtotals at creation and stays fixed afterwards; cancellation restores
// stock but keeps the order (and its invoice) as history.
type Order struct {
	ID        string
	UserID    string
	CreatedAt time.Time
	Status    Status
	Total     decimal.Decimal
	Items     []LineItem
	Invoice   *invoice.Invoice
}

// Stats aggregates a user's order history.
type Stats struct {
	Count          int             `json:"count"`
	TotalSpent     decimal.Decimal `json:"total_spent"`
	PendingCount   int             `json:"pending_count"`
	CompletedCount int             `json:"completed_count"`
}

// Repository defines persistence operations for orders.
type Repository interface {
	// Create persists the order header, its line items, and issues the
	// invoice as one atomic unit. On success o.Invoice is populated with
	// the issued invoice, including its generated code.
	Create(ctx context.Context, o *Order) error

	GetByID(ctx context.Context, id string) (*Order, error)
	ListByUser(ctx context.Context, userID string) ([]Order, error)
	ListByStatus(ctx context.Context, status Status) ([]Order, error)

	// TransitionStatus moves the order from one status to another only if
	// it is still in the expected current status, so concurrent transitions
	// resolve to a single winner. Returns ErrNotFound when no row matched.
	TransitionStatus(ctx context.Context, id string, from, to Status) error
}

// Notifier delivers order confirmations (email, rendered invoice). It is
// best-effort from the engine's viewpoint: failures are logged, never
// propagated, and never roll back the order.
type Notifier interface {
	OrderCreated(ctx context.Context, o *Order) error
}
