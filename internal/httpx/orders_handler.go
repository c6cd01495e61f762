package httpx

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ariefcatur/go-inventory-orders/internal/orders"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

// OrderWorkflow is satisfied by *orders.Service.
type OrderWorkflow interface {
	Create(ctx context.Context, in orders.CreateInput) (int64, error)
	Get(ctx context.Context, id int64) (orders.OrderView, error)
	TransitionStatus(ctx context.Context, id int64, status orders.Status) error
	Amend(ctx context.Context, id int64, a orders.Amendment) error
	Delete(ctx context.Context, id int64) error
}

// ViewCache is satisfied by *redisx.OrderCache.
type ViewCache interface {
	GetView(ctx context.Context, id int64) (orders.OrderView, bool, error)
	Generation(ctx context.Context, id int64) (int64, error)
	SetView(ctx context.Context, v orders.OrderView, gen int64) error
	Invalidate(ctx context.Context, id int64) error
	LookupIdempotent(ctx context.Context, key string) (int64, error)
	RememberIdempotent(ctx context.Context, key string, orderID int64) error
}

type OrdersHandler struct {
	Orders OrderWorkflow
	Cache  ViewCache // optional
	Log    *slog.Logger
}

type CreateOrderReq struct {
	PersonID      int64             `json:"person_id"`
	Items         []orders.LineItem `json:"items"`
	PaymentMethod string            `json:"payment_method"`
	Installments  int               `json:"installments"`
	Status        orders.Status     `json:"status"`
}

type CreateOrderResp struct {
	OrderID    int64 `json:"order_id"`
	Idempotent bool  `json:"idempotent"`
}

// UpdateOrderReq carries only the fields to change. due_date is YYYY-MM-DD.
type UpdateOrderReq struct {
	PersonID      *int64           `json:"person_id"`
	ProductID     *int64           `json:"product_id"`
	Quantity      *int             `json:"quantity"`
	Subtotal      *decimal.Decimal `json:"subtotal"`
	PaymentMethod *string          `json:"payment_method"`
	Installments  *int             `json:"installments"`
	DueDate       *string          `json:"due_date"`
	Status        *orders.Status   `json:"status"`
}

type StatusReq struct {
	Status orders.Status `json:"status"`
}

func (h *OrdersHandler) Register(r chi.Router) {
	r.Post("/orders", h.createOrder)
	r.Get("/orders/{id}", h.getOrder)
	r.Put("/orders/{id}", h.updateOrder)
	r.Patch("/orders/{id}/status", h.setOrderStatus)
	r.Delete("/orders/{id}", h.deleteOrder)
}

func (h *OrdersHandler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	ctx := r.Context()

	idemKey := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	if idemKey != "" && h.Cache != nil {
		id, err := h.Cache.LookupIdempotent(ctx, idemKey)
		if err != nil {
			h.logger().WarnContext(ctx, "idempotency lookup failed", "error", err)
		}
		if id > 0 {
			writeJSON(w, http.StatusOK, CreateOrderResp{OrderID: id, Idempotent: true})
			return
		}
	}

	id, err := h.Orders.Create(ctx, orders.CreateInput{
		PersonID:      req.PersonID,
		Items:         req.Items,
		PaymentMethod: req.PaymentMethod,
		Installments:  req.Installments,
		Status:        req.Status,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	if idemKey != "" && h.Cache != nil {
		if err := h.Cache.RememberIdempotent(ctx, idemKey, id); err != nil {
			h.logger().WarnContext(ctx, "idempotency store failed", "order_id", id, "error", err)
		}
	}
	writeJSON(w, http.StatusCreated, CreateOrderResp{OrderID: id})
}

func (h *OrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	ctx := r.Context()

	var gen int64
	cacheable := false
	if h.Cache != nil {
		if v, hit, err := h.Cache.GetView(ctx, id); err == nil && hit {
			writeJSON(w, http.StatusOK, v)
			return
		}
		// generation before the read, so a write that lands meanwhile wins
		g, err := h.Cache.Generation(ctx, id)
		if err != nil {
			h.logger().WarnContext(ctx, "cache generation failed", "order_id", id, "error", err)
		} else {
			gen, cacheable = g, true
		}
	}

	v, err := h.Orders.Get(ctx, id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if cacheable {
		if err := h.Cache.SetView(ctx, v, gen); err != nil {
			h.logger().WarnContext(ctx, "cache order view failed", "order_id", id, "error", err)
		}
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *OrdersHandler) updateOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	var req UpdateOrderReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	a := orders.Amendment{
		PersonID:      req.PersonID,
		ProductID:     req.ProductID,
		Quantity:      req.Quantity,
		Subtotal:      req.Subtotal,
		PaymentMethod: req.PaymentMethod,
		Installments:  req.Installments,
		Status:        req.Status,
	}
	if req.DueDate != nil {
		d, err := time.Parse(time.DateOnly, *req.DueDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid due_date: want YYYY-MM-DD")
			return
		}
		a.DueDate = &d
	}

	if err := h.Orders.Amend(r.Context(), id, a); err != nil {
		h.fail(w, r, err)
		return
	}
	h.invalidate(r.Context(), id)
	w.WriteHeader(http.StatusNoContent)
}

func (h *OrdersHandler) setOrderStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	var req StatusReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.Orders.TransitionStatus(r.Context(), id, req.Status); err != nil {
		h.fail(w, r, err)
		return
	}
	h.invalidate(r.Context(), id)
	w.WriteHeader(http.StatusNoContent)
}

func (h *OrdersHandler) deleteOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	if err := h.Orders.Delete(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	h.invalidate(r.Context(), id)
	w.WriteHeader(http.StatusNoContent)
}

func (h *OrdersHandler) invalidate(ctx context.Context, id int64) {
	if h.Cache == nil {
		return
	}
	if err := h.Cache.Invalidate(ctx, id); err != nil {
		h.logger().WarnContext(ctx, "invalidate order view failed", "order_id", id, "error", err)
	}
}

func (h *OrdersHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	code, msg := statusFor(err)
	if code == http.StatusInternalServerError {
		h.logger().ErrorContext(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	writeError(w, code, msg)
}

func (h *OrdersHandler) logger() *slog.Logger {
	if h.Log != nil {
		return h.Log
	}
	return slog.Default()
}
