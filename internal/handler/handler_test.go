package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/habilis/orders-api/internal/domain/catalog"
	"github.com/habilis/orders-api/internal/domain/inventory"
	"github.com/habilis/orders-api/internal/domain/invoice"
	"github.com/habilis/orders-api/internal/domain/order"
)

// --- In-memory fakes ---

type fakeStore struct {
	products map[string]*catalog.Product
	users    map[string]*catalog.User
	orders   map[string]*order.Order
	invoices map[string]*invoice.Invoice // by code
	seq      int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		products: make(map[string]*catalog.Product),
		users:    make(map[string]*catalog.User),
		orders:   make(map[string]*order.Order),
		invoices: make(map[string]*invoice.Invoice),
	}
}

func (s *fakeStore) List(_ context.Context) ([]catalog.Product, error) {
	var out []catalog.Product
	for _, p := range s.products {
		out = append(out, *p)
	}
	return out, nil
}

func (s *fakeStore) GetByID(_ context.Context, id string) (*catalog.Product, error) {
	p, ok := s.products[id]
	if !ok {
		return nil, catalog.ErrProductNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *fakeStore) GetByIDs(_ context.Context, ids []string) ([]catalog.Product, error) {
	var out []catalog.Product
	for _, id := range ids {
		if p, ok := s.products[id]; ok {
			out = append(out, *p)
		}
	}
	return out, nil
}

type fakeUsers struct{ store *fakeStore }

func (f fakeUsers) GetByID(_ context.Context, id string) (*catalog.User, error) {
	u, ok := f.store.users[id]
	if !ok {
		return nil, catalog.ErrUserNotFound
	}
	return u, nil
}

type fakeLedger struct{ store *fakeStore }

func (f fakeLedger) Reserve(_ context.Context, productID string, qty int) (*catalog.Product, error) {
	p, ok := f.store.products[productID]
	if !ok {
		return nil, catalog.ErrProductNotFound
	}
	if p.Stock < qty {
		return nil, &inventory.InsufficientStockError{ProductID: productID, Available: p.Stock, Requested: qty}
	}
	p.Stock -= qty
	cp := *p
	return &cp, nil
}

func (f fakeLedger) Release(_ context.Context, productID string, qty int) error {
	p, ok := f.store.products[productID]
	if !ok {
		return catalog.ErrProductNotFound
	}
	p.Stock += qty
	return nil
}

type fakeOrders struct{ store *fakeStore }

func (f fakeOrders) Create(_ context.Context, o *order.Order) error {
	f.store.seq++
	now := time.Now().UTC()
	inv := &invoice.Invoice{
		ID:       uuid.New().String(),
		Code:     invoice.Code(now, f.store.seq),
		OrderID:  o.ID,
		UserID:   o.UserID,
		IssuedAt: now,
		Total:    o.Total,
	}
	o.Invoice = inv

	stored := *o
	f.store.orders[o.ID] = &stored
	f.store.invoices[inv.Code] = inv
	return nil
}

func (f fakeOrders) GetByID(_ context.Context, id string) (*order.Order, error) {
	o, ok := f.store.orders[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (f fakeOrders) ListByUser(_ context.Context, userID string) ([]order.Order, error) {
	var out []order.Order
	for _, o := range f.store.orders {
		if o.UserID == userID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (f fakeOrders) ListByStatus(_ context.Context, status order.Status) ([]order.Order, error) {
	var out []order.Order
	for _, o := range f.store.orders {
		if o.Status == status {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (f fakeOrders) TransitionStatus(_ context.Context, id string, from, to order.Status) error {
	o, ok := f.store.orders[id]
	if !ok || o.Status != from {
		return order.ErrNotFound
	}
	o.Status = to
	return nil
}

type fakeInvoices struct{ store *fakeStore }

func (f fakeInvoices) GetByCode(_ context.Context, code string) (*invoice.Invoice, error) {
	inv, ok := f.store.invoices[code]
	if !ok {
		return nil, invoice.ErrNotFound
	}
	return inv, nil
}

func (f fakeInvoices) GetByOrder(_ context.Context, orderID string) (*invoice.Invoice, error) {
	for _, inv := range f.store.invoices {
		if inv.OrderID == orderID {
			return inv, nil
		}
	}
	return nil, invoice.ErrNotFound
}

func (f fakeInvoices) ListByUser(_ context.Context, userID string) ([]invoice.Invoice, error) {
	var out []invoice.Invoice
	for _, inv := range f.store.invoices {
		if inv.UserID == userID {
			out = append(out, *inv)
		}
	}
	return out, nil
}

type fakeRenderer struct{ store *fakeStore }

func (f fakeRenderer) Render(ctx context.Context, orderID string) ([]byte, error) {
	inv, err := fakeInvoices(f).GetByOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return []byte("INVOICE " + inv.Code + "\n"), nil
}

// --- Helpers ---

func newTestServer(t *testing.T) (*httptest.Server, *fakeStore) {
	t.Helper()

	store := newFakeStore()
	store.users["u1"] = &catalog.User{ID: "u1", Name: "Demo", Email: "demo@example.com"}
	store.products["p1"] = &catalog.Product{
		ID:       "p1",
		Name:     "Widget",
		Price:    decimal.RequireFromString("10.00"),
		Stock:    5,
		Category: "test",
	}

	svc := order.NewService(store, fakeUsers{store}, fakeLedger{store}, fakeOrders{store}, nil)
	h := NewHandler(store, svc, fakeInvoices{store}, fakeRenderer{store})

	srv := httptest.NewServer(h.Routes())
	t.Cleanup(srv.Close)
	return srv, store
}

func doJSON(t *testing.T, method, url string, body any) (*http.Response, []byte) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	var raw bytes.Buffer
	_, err = raw.ReadFrom(resp.Body)
	require.NoError(t, err)
	return resp, raw.Bytes()
}

func createOrderVia(t *testing.T, srv *httptest.Server, qty int) orderResponse {
	t.Helper()

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/orders", createOrderRequest{
		UserID: "u1",
		Items:  []order.CartItem{{ProductID: "p1", Quantity: qty}},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	var out orderResponse
	require.NoError(t, json.Unmarshal(body, &out))
	return out
}

// --- Tests ---

func TestCreateOrderEndpoint(t *testing.T) {
	srv, store := newTestServer(t)

	out := createOrderVia(t, srv, 3)

	assert.Equal(t, "PENDING", out.Status)
	assert.Equal(t, "30.00", out.Total)
	require.Len(t, out.Items, 1)
	assert.Equal(t, "10.00", out.Items[0].UnitPrice)
	require.NotNil(t, out.Invoice)
	assert.Regexp(t, `^FAC-\d{8}-\d{5}$`, out.Invoice.Code)
	assert.Equal(t, 2, store.products["p1"].Stock)
}

func TestCreateOrderEndpoint_EmptyCart(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/orders", createOrderRequest{UserID: "u1"})

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(body), "cart is empty")
}

func TestCreateOrderEndpoint_InsufficientStock(t *testing.T) {
	srv, store := newTestServer(t)

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/orders", createOrderRequest{
		UserID: "u1",
		Items:  []order.CartItem{{ProductID: "p1", Quantity: 6}},
	})

	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Contains(t, string(body), "insufficient stock")
	assert.Equal(t, 5, store.products["p1"].Stock)
}

func TestCreateOrderEndpoint_UnknownUser(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/orders", createOrderRequest{
		UserID: "ghost",
		Items:  []order.CartItem{{ProductID: "p1", Quantity: 1}},
	})

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGetOrderEndpoint_NotFound(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, _ := doJSON(t, http.MethodGet, srv.URL+"/orders/"+uuid.New().String(), nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestChangeStatusEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	created := createOrderVia(t, srv, 1)

	resp, body := doJSON(t, http.MethodPut, srv.URL+"/orders/"+created.ID+"/status",
		changeStatusRequest{Status: "SHIPPED"})

	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var out orderResponse
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, "SHIPPED", out.Status)
}

func TestChangeStatusEndpoint_InvalidStatus(t *testing.T) {
	srv, _ := newTestServer(t)
	created := createOrderVia(t, srv, 1)

	resp, body := doJSON(t, http.MethodPut, srv.URL+"/orders/"+created.ID+"/status",
		changeStatusRequest{Status: "LOST"})

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(body), "invalid status")
}

func TestChangeStatusEndpoint_InvalidTransition(t *testing.T) {
	srv, _ := newTestServer(t)
	created := createOrderVia(t, srv, 1)

	resp, _ := doJSON(t, http.MethodPut, srv.URL+"/orders/"+created.ID+"/status",
		changeStatusRequest{Status: "COMPLETED"})

	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestCancelOrderEndpoint(t *testing.T) {
	srv, store := newTestServer(t)
	created := createOrderVia(t, srv, 3)
	require.Equal(t, 2, store.products["p1"].Stock)

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/orders/"+created.ID+"/cancel", nil)

	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var out orderResponse
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, "CANCELLED", out.Status)
	assert.Equal(t, 5, store.products["p1"].Stock)
}

func TestCancelOrderEndpoint_NotPending(t *testing.T) {
	srv, _ := newTestServer(t)
	created := createOrderVia(t, srv, 1)

	resp, _ := doJSON(t, http.MethodPut, srv.URL+"/orders/"+created.ID+"/status",
		changeStatusRequest{Status: "SHIPPED"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/orders/"+created.ID+"/cancel", nil)

	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Contains(t, string(body), "SHIPPED")
}

func TestValidateCartEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/orders/validate", cartRequest{
		Items: []order.CartItem{
			{ProductID: "p1", Quantity: 99},
			{ProductID: "nope", Quantity: 1},
		},
	})

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Valid    bool                    `json:"valid"`
		Problems []order.ValidationError `json:"problems"`
	}
	require.NoError(t, json.Unmarshal(body, &out))
	assert.False(t, out.Valid)
	assert.Len(t, out.Problems, 2)
}

func TestCalculateTotalEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/orders/total", cartRequest{
		Items: []order.CartItem{{ProductID: "p1", Quantity: 4}},
	})

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Total string `json:"total"`
		Items int    `json:"items"`
	}
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, "40.00", out.Total)
	assert.Equal(t, 1, out.Items)
}

func TestProductEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, body := doJSON(t, http.MethodGet, srv.URL+"/products/p1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var p productResponse
	require.NoError(t, json.Unmarshal(body, &p))
	assert.Equal(t, "Widget", p.Name)
	assert.Equal(t, "10.00", p.Price)

	resp, _ = doJSON(t, http.MethodGet, srv.URL+"/products/unknown", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestInvoiceEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)
	created := createOrderVia(t, srv, 2)
	require.NotNil(t, created.Invoice)

	resp, body := doJSON(t, http.MethodGet, srv.URL+"/invoices/"+created.Invoice.Code, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var inv invoiceDetailResponse
	require.NoError(t, json.Unmarshal(body, &inv))
	assert.Equal(t, created.ID, inv.OrderID)
	assert.Equal(t, "20.00", inv.Total)

	resp, _ = doJSON(t, http.MethodGet, srv.URL+"/orders/"+created.ID+"/invoice", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = doJSON(t, http.MethodGet, srv.URL+"/orders/"+created.ID+"/invoice/document", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), created.Invoice.Code)

	resp, _ = doJSON(t, http.MethodGet, srv.URL+"/invoices/FAC-19700101-00001", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestOrderStatsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	createOrderVia(t, srv, 1)
	createOrderVia(t, srv, 2)

	resp, body := doJSON(t, http.MethodGet, srv.URL+"/users/u1/orders/stats", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var stats struct {
		Count          int    `json:"count"`
		TotalSpent     string `json:"total_spent"`
		PendingCount   int    `json:"pending_count"`
		CompletedCount int    `json:"completed_count"`
	}
	require.NoError(t, json.Unmarshal(body, &stats))
	assert.Equal(t, 2, stats.Count)
	assert.Equal(t, "30", stats.TotalSpent)
	assert.Equal(t, 2, stats.PendingCount)
}

func TestListOrdersByStatusEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	createOrderVia(t, srv, 1)

	resp, body := doJSON(t, http.MethodGet, srv.URL+"/orders?status=PENDING", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var list []orderResponse
	require.NoError(t, json.Unmarshal(body, &list))
	assert.Len(t, list, 1)

	resp, _ = doJSON(t, http.MethodGet, srv.URL+"/orders", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
