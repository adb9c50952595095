package postgres

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/habilis/orders-api/internal/domain/catalog"
	"github.com/habilis/orders-api/internal/domain/inventory"
)

const (
	getProductForReserveSQL = `SELECT id, name, price, stock, version, category
		FROM products WHERE id = $1`

	// The version predicate makes the decrement an optimistic compare-and-set:
	// zero rows affected means a concurrent writer bumped the version first.
	reserveStockSQL = `UPDATE products
		SET stock = stock - $2, version = version + 1
		WHERE id = $1 AND version = $3 AND stock >= $2`

	releaseStockSQL = `UPDATE products
		SET stock = stock + $2, version = version + 1
		WHERE id = $1`
)

const (
	reserveAttempts    = 3
	reserveBackoffBase = 10 * time.Millisecond
)

var _ inventory.Ledger = (*Ledger)(nil)

// Ledger implements inventory.Ledger on the products table using optimistic
// versioning: read stock+version, then a conditional UPDATE that only lands
// if no concurrent reservation got there first. Lost races are retried a
// bounded number of times with jittered backoff.
type Ledger struct {
	pool *pgxpool.Pool
}

// NewLedger returns a Ledger that uses the given pool.
func NewLedger(pool *pgxpool.Pool) *Ledger {
	return &Ledger{pool: pool}
}

// Reserve decrements stock by qty iff enough is available, returning the
// product as of the decrement. The returned Price is the snapshot callers
// must capture for historical line pricing.
func (l *Ledger) Reserve(ctx context.Context, productID string, qty int) (*catalog.Product, error) {
	for attempt := 0; attempt < reserveAttempts; attempt++ {
		if attempt > 0 {
			if err := sleepBackoff(ctx, attempt); err != nil {
				return nil, err
			}
		}

		var p catalog.Product
		err := l.pool.QueryRow(ctx, getProductForReserveSQL, productID).
			Scan(&p.ID, &p.Name, &p.Price, &p.Stock, &p.Version, &p.Category)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, catalog.ErrProductNotFound
			}
			return nil, fmt.Errorf("reading product %q: %w", productID, err)
		}

		if p.Stock < qty {
			return nil, &inventory.InsufficientStockError{
				ProductID: productID,
				Available: p.Stock,
				Requested: qty,
			}
		}

		tag, err := l.pool.Exec(ctx, reserveStockSQL, productID, qty, p.Version)
		if err != nil {
			return nil, fmt.Errorf("reserving stock for %q: %w", productID, err)
		}
		if tag.RowsAffected() == 1 {
			p.Stock -= qty
			p.Version++
			return &p, nil
		}
		// Lost the race: someone else reserved or released in between.
		// Re-read and try again.
	}

	return nil, errors.Wrapf(inventory.ErrConflict, "product %s", productID)
}

// Release increments stock by qty. It is unconditional: compensation must
// not fail for a product that exists.
func (l *Ledger) Release(ctx context.Context, productID string, qty int) error {
	tag, err := l.pool.Exec(ctx, releaseStockSQL, productID, qty)
	if err != nil {
		return fmt.Errorf("releasing stock for %q: %w", productID, err)
	}
	if tag.RowsAffected() == 0 {
		return errors.Wrapf(catalog.ErrProductNotFound, "product %s", productID)
	}
	return nil
}

// sleepBackoff waits attempt*base plus up to base of jitter, or until the
// context is cancelled.
func sleepBackoff(ctx context.Context, attempt int) error {
	delay := time.Duration(attempt)*reserveBackoffBase +
		time.Duration(rand.Int64N(int64(reserveBackoffBase)))
	select {
	case <-time.After(delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
