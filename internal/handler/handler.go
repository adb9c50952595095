// Package handler exposes the order engine over a thin JSON HTTP surface.
// Authentication and session handling live in the gateway in front of this
// service; handlers trust the user IDs they are given.
package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/habilis/orders-api/internal/domain/catalog"
	"github.com/habilis/orders-api/internal/domain/inventory"
	"github.com/habilis/orders-api/internal/domain/invoice"
	"github.com/habilis/orders-api/internal/domain/order"
)

// Handler wires the HTTP routes to the order engine and read repositories.
type Handler struct {
	products catalog.ProductRepository
	orders   *order.Service
	invoices invoice.Repository
	renderer invoice.Renderer
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(
	products catalog.ProductRepository,
	orders *order.Service,
	invoices invoice.Repository,
	renderer invoice.Renderer,
) *Handler {
	return &Handler{
		products: products,
		orders:   orders,
		invoices: invoices,
		renderer: renderer,
	}
}

// Routes returns the API router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Route("/products", func(r chi.Router) {
		r.Get("/", h.listProducts)
		r.Get("/{id}", h.getProduct)
	})

	r.Route("/orders", func(r chi.Router) {
		r.Post("/", h.createOrder)
		r.Post("/validate", h.validateCart)
		r.Post("/total", h.calculateTotal)
		r.Get("/", h.listOrdersByStatus)
		r.Get("/{id}", h.getOrder)
		r.Put("/{id}/status", h.changeStatus)
		r.Post("/{id}/cancel", h.cancelOrder)
		r.Get("/{id}/invoice", h.getOrderInvoice)
		r.Get("/{id}/invoice/document", h.renderInvoice)
	})

	r.Route("/users/{id}", func(r chi.Router) {
		r.Get("/orders", h.listUserOrders)
		r.Get("/orders/stats", h.orderStats)
		r.Get("/invoices", h.listUserInvoices)
	})

	r.Get("/invoices/{code}", h.getInvoiceByCode)

	return r
}

// respond writes v as a JSON response with the given status.
func respond(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zctx.From(r.Context()).Error("encode response", zap.Error(err))
	}
}

// respondError maps a domain error to an HTTP status and a single-cause
// error body.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError

	var (
		shortErr      *inventory.InsufficientStockError
		quantityErr   *order.InvalidQuantityError
		statusErr     *order.InvalidStatusError
		transitionErr *order.InvalidTransitionError
	)
	switch {
	case errors.Is(err, order.ErrEmptyCart),
		errors.As(err, &quantityErr),
		errors.As(err, &statusErr):
		status = http.StatusBadRequest
	case errors.Is(err, catalog.ErrProductNotFound),
		errors.Is(err, catalog.ErrUserNotFound),
		errors.Is(err, order.ErrNotFound),
		errors.Is(err, invoice.ErrNotFound):
		status = http.StatusNotFound
	case errors.As(err, &shortErr),
		errors.Is(err, inventory.ErrConflict),
		errors.As(err, &transitionErr):
		status = http.StatusConflict
	}

	if status == http.StatusInternalServerError {
		zctx.From(r.Context()).Error("request failed", zap.Error(err))
		respond(w, r, status, errorBody{Error: "internal error"})
		return
	}
	respond(w, r, status, errorBody{Error: err.Error()})
}

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errors.Wrap(err, "decode request body")
	}
	return nil
}

type errorBody struct {
	Error string `json:"error"`
}
