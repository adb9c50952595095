package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/habilis/orders-api/internal/domain/order"
)

type cartRequest struct {
	Items []order.CartItem `json:"items"`
}

type createOrderRequest struct {
	UserID string           `json:"user_id"`
	Items  []order.CartItem `json:"items"`
}

type changeStatusRequest struct {
	Status string `json:"status"`
}

type lineItemResponse struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unit_price"`
	Subtotal  string `json:"subtotal"`
}

type invoiceResponse struct {
	Code     string    `json:"code"`
	IssuedAt time.Time `json:"issued_at"`
	Total    string    `json:"total"`
}

type orderResponse struct {
	ID        string             `json:"id"`
	UserID    string             `json:"user_id"`
	CreatedAt time.Time          `json:"created_at"`
	Status    string             `json:"status"`
	Total     string             `json:"total"`
	Items     []lineItemResponse `json:"items"`
	Invoice   *invoiceResponse   `json:"invoice,omitempty"`
}

func toOrderResponse(o *order.Order) orderResponse {
	items := make([]lineItemResponse, len(o.Items))
	for i, line := range o.Items {
		items[i] = lineItemResponse{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice.StringFixed(2),
			Subtotal:  line.Subtotal().StringFixed(2),
		}
	}

	resp := orderResponse{
		ID:        o.ID,
		UserID:    o.UserID,
		CreatedAt: o.CreatedAt,
		Status:    string(o.Status),
		Total:     o.Total.StringFixed(2),
		Items:     items,
	}
	if o.Invoice != nil {
		resp.Invoice = &invoiceResponse{
			Code:     o.Invoice.Code,
			IssuedAt: o.Invoice.IssuedAt,
			Total:    o.Invoice.Total.StringFixed(2),
		}
	}
	return resp
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := decode(r, &req); err != nil {
		respond(w, r, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}

	o, err := h.orders.CreateOrder(r.Context(), req.UserID, req.Items)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respond(w, r, http.StatusCreated, toOrderResponse(o))
}

func (h *Handler) validateCart(w http.ResponseWriter, r *http.Request) {
	var req cartRequest
	if err := decode(r, &req); err != nil {
		respond(w, r, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}

	problems, err := h.orders.ValidateCart(r.Context(), req.Items)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respond(w, r, http.StatusOK, struct {
		Valid    bool                    `json:"valid"`
		Problems []order.ValidationError `json:"problems"`
	}{
		Valid:    len(problems) == 0,
		Problems: problems,
	})
}

func (h *Handler) calculateTotal(w http.ResponseWriter, r *http.Request) {
	var req cartRequest
	if err := decode(r, &req); err != nil {
		respond(w, r, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}

	total, err := h.orders.CalculateTotal(r.Context(), req.Items)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respond(w, r, http.StatusOK, struct {
		Total string `json:"total"`
		Items int    `json:"items"`
	}{
		Total: total.StringFixed(2),
		Items: len(req.Items),
	})
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, toOrderResponse(o))
}

func (h *Handler) listOrdersByStatus(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	if status == "" {
		respond(w, r, http.StatusBadRequest, errorBody{Error: "status query parameter is required"})
		return
	}

	orders, err := h.orders.ListByStatus(r.Context(), status)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondOrderList(w, r, orders)
}

func (h *Handler) listUserOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.ListByUser(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondOrderList(w, r, orders)
}

func (h *Handler) orderStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.orders.Statistics(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, stats)
}

func (h *Handler) changeStatus(w http.ResponseWriter, r *http.Request) {
	var req changeStatusRequest
	if err := decode(r, &req); err != nil {
		respond(w, r, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}

	o, err := h.orders.ChangeStatus(r.Context(), chi.URLParam(r, "id"), req.Status)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, toOrderResponse(o))
}

func (h *Handler) cancelOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.CancelOrder(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, toOrderResponse(o))
}

func respondOrderList(w http.ResponseWriter, r *http.Request, orders []order.Order) {
	resp := make([]orderResponse, len(orders))
	for i := range orders {
		resp[i] = toOrderResponse(&orders[i])
	}
	respond(w, r, http.StatusOK, resp)
}
