package catalog

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrProductNotFound is returned when a requested product does not exist.
var ErrProductNotFound = errors.New("product not found")

// Product represents a catalog item available for purchase.
//
// Stock is owned by the inventory ledger: nothing outside the ledger may
// decrement or increment it. Version is the optimistic-lock counter bumped
// on every stock mutation.
type Product struct {
	ID       string
	Name     string
	Price    decimal.Decimal
	Stock    int
	Version  int64
	Category string
}

// ProductRepository defines read operations for the product catalog.
type ProductRepository interface {
	List(ctx context.Context) ([]Product, error)
	GetByID(ctx context.Context, id string) (*Product, error)
	GetByIDs(ctx context.Context, ids []string) ([]Product, error)
}
