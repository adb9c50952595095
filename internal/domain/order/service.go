package order

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/habilis/orders-api/internal/domain/catalog"
	"github.com/habilis/orders-api/internal/domain/inventory"
)

// Service is the order engine: it validates carts, drives stock reservation
// through the inventory ledger, persists orders with their invoices, and
// owns the order state machine.
type Service struct {
	products catalog.ProductRepository
	users    catalog.UserRepository
	ledger   inventory.Ledger
	orders   Repository
	notifier Notifier
}

// NewService creates an order Service with the required domain dependencies.
// The notifier may be nil, in which case confirmations are skipped.
func NewService(
	products catalog.ProductRepository,
	users catalog.UserRepository,
	ledger inventory.Ledger,
	orders Repository,
	notifier Notifier,
) *Service {
	return &Service{
		products: products,
		users:    users,
		ledger:   ledger,
		orders:   orders,
		notifier: notifier,
	}
}

// ValidateCart checks every line against the catalog and reports all
// problems found: unknown products, non-positive quantities, and lines
// requesting more than the available stock. It is read-only and reserves
// nothing; stock may still change before CreateOrder runs.
func (s *Service) ValidateCart(ctx context.Context, items []CartItem) ([]ValidationError, error) {
	var problems []ValidationError

	for _, item := range items {
		p, err := s.products.GetByID(ctx, item.ProductID)
		if err != nil {
			if errors.Is(err, catalog.ErrProductNotFound) {
				problems = append(problems, ValidationError{
					ProductID: item.ProductID,
					Message:   fmt.Sprintf("product %s not found", item.ProductID),
				})
				continue
			}
			return nil, errors.Wrapf(err, "get product %s", item.ProductID)
		}

		switch {
		case item.Quantity <= 0:
			problems = append(problems, ValidationError{
				ProductID: item.ProductID,
				Message:   fmt.Sprintf("quantity must be greater than 0 for %s", p.Name),
			})
		case p.Stock < item.Quantity:
			problems = append(problems, ValidationError{
				ProductID: item.ProductID,
				Message: fmt.Sprintf("%s: insufficient stock, available %d, requested %d",
					p.Name, p.Stock, item.Quantity),
			})
		}
	}

	return problems, nil
}

// CalculateTotal sums quantity times the current catalog price per line.
// It is a cart preview: no stock is reserved and no prices are snapshotted.
func (s *Service) CalculateTotal(ctx context.Context, items []CartItem) (decimal.Decimal, error) {
	if len(items) == 0 {
		return decimal.Zero, ErrEmptyCart
	}

	ids := make([]string, len(items))
	for i, item := range items {
		if item.Quantity <= 0 {
			return decimal.Zero, &InvalidQuantityError{ProductID: item.ProductID}
		}
		ids[i] = item.ProductID
	}

	fetched, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return decimal.Zero, errors.Wrap(err, "get products")
	}

	prices := make(map[string]decimal.Decimal, len(fetched))
	for _, p := range fetched {
		prices[p.ID] = p.Price
	}

	total := decimal.Zero
	for _, item := range items {
		price, ok := prices[item.ProductID]
		if !ok {
			return decimal.Zero, errors.Wrapf(catalog.ErrProductNotFound, "product %s", item.ProductID)
		}
		total = total.Add(price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}

	return total.Round(2), nil
}

// CreateOrder turns a cart into a durable order: it reserves stock line by
// line through the ledger, snapshots unit prices at reservation time, and
// persists the header, line items, and invoice as one transaction.
//
// All-or-nothing: a failure at any point releases every reservation already
// made in this attempt before the error is returned, so a failed call leaves
// stock exactly as it found it.
func (s *Service) CreateOrder(ctx context.Context, userID string, items []CartItem) (*Order, error) {
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}

	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return nil, errors.Wrapf(err, "resolve user %s", userID)
	}

	for _, item := range items {
		if item.Quantity <= 0 {
			return nil, &InvalidQuantityError{ProductID: item.ProductID}
		}
	}

	// Reserve in request order, snapshotting the unit price the ledger saw
	// at decrement time.
	lines := make([]LineItem, 0, len(items))
	total := decimal.Zero
	for _, item := range items {
		p, err := s.ledger.Reserve(ctx, item.ProductID, item.Quantity)
		if err != nil {
			s.releaseLines(ctx, lines)
			return nil, errors.Wrapf(err, "reserve product %s", item.ProductID)
		}

		line := LineItem{
			ID:        uuid.New().String(),
			ProductID: p.ID,
			Quantity:  item.Quantity,
			UnitPrice: p.Price,
		}
		lines = append(lines, line)
		total = total.Add(line.Subtotal())
	}

	o := &Order{
		ID:        uuid.New().String(),
		UserID:    userID,
		CreatedAt: time.Now().UTC(),
		Status:    StatusPending,
		Total:     total.Round(2),
		Items:     lines,
	}

	// Header, lines, and invoice commit together; the repository rolls the
	// whole transaction back on any failure, so only the ledger decrements
	// need explicit compensation here.
	if err := s.orders.Create(ctx, o); err != nil {
		s.releaseLines(ctx, lines)
		return nil, errors.Wrap(err, "create order")
	}

	s.notifyCreated(ctx, o)

	return o, nil
}

// ChangeStatus applies one transition of the order state machine.
// PENDING->CANCELLED restores reserved stock; SHIPPED->CANCELLED does not,
// since shipped goods are no longer in the warehouse.
func (s *Service) ChangeStatus(ctx context.Context, orderID, rawStatus string) (*Order, error) {
	next, err := ParseStatus(rawStatus)
	if err != nil {
		return nil, err
	}

	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	return s.transition(ctx, o, next)
}

// CancelOrder cancels an order that is still PENDING, releasing every
// reserved line back to the ledger. Orders in any other state are rejected
// with the current state in the error.
func (s *Service) CancelOrder(ctx context.Context, orderID string) (*Order, error) {
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if o.Status != StatusPending {
		return nil, &InvalidTransitionError{From: o.Status, To: StatusCancelled}
	}

	return s.transition(ctx, o, StatusCancelled)
}

// transition persists the status change and, on the PENDING->CANCELLED path
// only, releases the order's reserved quantities. The conditional update in
// TransitionStatus makes concurrent cancellations release stock once.
func (s *Service) transition(ctx context.Context, o *Order, next Status) (*Order, error) {
	if !o.Status.CanTransitionTo(next) {
		return nil, &InvalidTransitionError{From: o.Status, To: next}
	}

	if err := s.orders.TransitionStatus(ctx, o.ID, o.Status, next); err != nil {
		return nil, errors.Wrapf(err, "transition order %s to %s", o.ID, next)
	}

	if o.Status == StatusPending && next == StatusCancelled {
		s.releaseLines(ctx, o.Items)
	}

	o.Status = next
	return o, nil
}

// Statistics aggregates the user's order history: order count, total spent
// across all orders, and pending/completed counts.
func (s *Service) Statistics(ctx context.Context, userID string) (Stats, error) {
	orders, err := s.orders.ListByUser(ctx, userID)
	if err != nil {
		return Stats{}, errors.Wrapf(err, "list orders for user %s", userID)
	}

	stats := Stats{Count: len(orders), TotalSpent: decimal.Zero}
	for _, o := range orders {
		stats.TotalSpent = stats.TotalSpent.Add(o.Total)
		switch o.Status {
		case StatusPending:
			stats.PendingCount++
		case StatusCompleted:
			stats.CompletedCount++
		}
	}

	return stats, nil
}

// Get returns a single order with its line items and invoice.
func (s *Service) Get(ctx context.Context, orderID string) (*Order, error) {
	return s.orders.GetByID(ctx, orderID)
}

// ListByUser returns the user's orders, most recent first.
func (s *Service) ListByUser(ctx context.Context, userID string) ([]Order, error) {
	return s.orders.ListByUser(ctx, userID)
}

// ListByStatus returns all orders currently in the given status.
func (s *Service) ListByStatus(ctx context.Context, rawStatus string) ([]Order, error) {
	st, err := ParseStatus(rawStatus)
	if err != nil {
		return nil, err
	}
	return s.orders.ListByStatus(ctx, st)
}

// releaseLines returns previously reserved quantities to the ledger, most
// recent first. Release failures are logged and swallowed: there is nothing
// useful to surface past the root cause the caller is already handling.
func (s *Service) releaseLines(ctx context.Context, lines []LineItem) {
	for i := len(lines) - 1; i >= 0; i-- {
		line := lines[i]
		if err := s.ledger.Release(ctx, line.ProductID, line.Quantity); err != nil {
			zctx.From(ctx).Error("release reserved stock",
				zap.String("product_id", line.ProductID),
				zap.Int("quantity", line.Quantity),
				zap.Error(err),
			)
		}
	}
}

// notifyCreated invokes the notifier best-effort. A failed confirmation
// never fails or rolls back the order.
func (s *Service) notifyCreated(ctx context.Context, o *Order) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.OrderCreated(ctx, o); err != nil {
		zctx.From(ctx).Warn("order confirmation failed",
			zap.String("order_id", o.ID),
			zap.Error(err),
		)
	}
}
