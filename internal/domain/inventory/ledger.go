// Package inventory defines the stock ledger contract.
//
// The ledger is the single serialization point for per-product stock: every
// decrement goes through Reserve and every compensating increment through
// Release. Callers never read-modify-write stock themselves.
package inventory

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"

	"github.com/habilis/orders-api/internal/domain/catalog"
)

// ErrConflict is returned when a stock update lost the optimistic-lock race
// more times than the ledger is willing to retry. Callers should report it
// to clients the same way as an insufficient-stock failure: the observable
// effect is that the quantity could not be reserved.
var ErrConflict = errors.New("stock update conflict: retries exhausted")

// InsufficientStockError indicates a reservation asked for more units than
// the product currently has.
type InsufficientStockError struct {
	ProductID string
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: available %d, requested %d",
		e.ProductID, e.Available, e.Requested)
}

// Ledger provides atomic stock accounting per product.
//
// Reserve and Release on the same product are mutually exclusive: two
// concurrent Reserve calls against stock=1 never both succeed. Calls on
// unrelated products do not contend.
type Ledger interface {
	// Reserve decrements stock by qty iff current stock >= qty. It returns
	// the product as of the successful decrement, so callers can snapshot
	// the unit price that was in effect at reservation time. Fails with
	// *InsufficientStockError, catalog.ErrProductNotFound, or ErrConflict.
	Reserve(ctx context.Context, productID string, qty int) (*catalog.Product, error)

	// Release increments stock by qty unconditionally. It is the
	// compensation path for failed or cancelled reservations and never
	// fails for an existing product.
	Release(ctx context.Context, productID string, qty int) error
}
