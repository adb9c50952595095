package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/habilis/orders-api/internal/domain/invoice"
)

type invoiceDetailResponse struct {
	ID       string `json:"id"`
	Code     string `json:"code"`
	OrderID  string `json:"order_id"`
	UserID   string `json:"user_id"`
	IssuedAt string `json:"issued_at"`
	Total    string `json:"total"`
}

func toInvoiceDetail(inv *invoice.Invoice) invoiceDetailResponse {
	return invoiceDetailResponse{
		ID:       inv.ID,
		Code:     inv.Code,
		OrderID:  inv.OrderID,
		UserID:   inv.UserID,
		IssuedAt: inv.IssuedAt.Format("2006-01-02T15:04:05Z07:00"),
		Total:    inv.Total.StringFixed(2),
	}
}

func (h *Handler) getInvoiceByCode(w http.ResponseWriter, r *http.Request) {
	inv, err := h.invoices.GetByCode(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, toInvoiceDetail(inv))
}

func (h *Handler) getOrderInvoice(w http.ResponseWriter, r *http.Request) {
	inv, err := h.invoices.GetByOrder(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, toInvoiceDetail(inv))
}

func (h *Handler) listUserInvoices(w http.ResponseWriter, r *http.Request) {
	invoices, err := h.invoices.ListByUser(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, err)
		return
	}

	resp := make([]invoiceDetailResponse, len(invoices))
	for i := range invoices {
		resp[i] = toInvoiceDetail(&invoices[i])
	}
	respond(w, r, http.StatusOK, resp)
}

func (h *Handler) renderInvoice(w http.ResponseWriter, r *http.Request) {
	doc, err := h.renderer.Render(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc)
}
