// Package notify holds the local stand-ins for the external confirmation
// collaborators: email delivery and PDF rendering run as separate services,
// so this backend only logs confirmations and renders plain-text documents.
package notify

import (
	"bytes"
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/habilis/orders-api/internal/domain/invoice"
	"github.com/habilis/orders-api/internal/domain/order"
)

var _ order.Notifier = (*LogNotifier)(nil)

// LogNotifier implements order.Notifier by logging the confirmation. The
// engine treats notification as best-effort, so this is enough to run the
// backend without the mail service.
type LogNotifier struct {
	lg *zap.Logger
}

// NewLogNotifier returns a LogNotifier writing to the given logger.
func NewLogNotifier(lg *zap.Logger) *LogNotifier {
	return &LogNotifier{lg: lg}
}

// OrderCreated logs the confirmation that would otherwise be emailed.
func (n *LogNotifier) OrderCreated(_ context.Context, o *order.Order) error {
	code := ""
	if o.Invoice != nil {
		code = o.Invoice.Code
	}
	n.lg.Info("order confirmation",
		zap.String("order_id", o.ID),
		zap.String("user_id", o.UserID),
		zap.String("invoice_code", code),
		zap.String("total", o.Total.StringFixed(2)),
		zap.Int("lines", len(o.Items)),
	)
	return nil
}

var _ invoice.Renderer = (*TextRenderer)(nil)

// TextRenderer implements invoice.Renderer with a plain-text document. The
// real PDF renderer is an external service; this keeps the invoice-document
// endpoint working without it.
type TextRenderer struct {
	orders order.Repository
}

// NewTextRenderer returns a TextRenderer reading orders from the given
// repository.
func NewTextRenderer(orders order.Repository) *TextRenderer {
	return &TextRenderer{orders: orders}
}

// Render produces a plain-text invoice for the given order.
func (r *TextRenderer) Render(ctx context.Context, orderID string) ([]byte, error) {
	o, err := r.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, errors.Wrapf(err, "load order %s", orderID)
	}
	if o.Invoice == nil {
		return nil, errors.Wrapf(invoice.ErrNotFound, "order %s", orderID)
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "INVOICE %s\n", o.Invoice.Code)
	fmt.Fprintf(&buf, "Issued: %s\n", o.Invoice.IssuedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(&buf, "Order:  %s (%s)\n\n", o.ID, o.Status)
	for _, line := range o.Items {
		fmt.Fprintf(&buf, "  %s  x%d  @ %s  = %s\n",
			line.ProductID, line.Quantity,
			line.UnitPrice.StringFixed(2), line.Subtotal().StringFixed(2))
	}
	fmt.Fprintf(&buf, "\nTOTAL: %s\n", o.Invoice.Total.StringFixed(2))

	return buf.Bytes(), nil
}
