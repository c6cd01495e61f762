package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ariefcatur/go-inventory-orders/internal/orders"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

// ProductCatalog is satisfied by *orders.ProductRepo.
type ProductCatalog interface {
	ListProducts(ctx context.Context) ([]orders.Product, error)
	GetProduct(ctx context.Context, id int64) (orders.Product, error)
	CreateProduct(ctx context.Context, in orders.NewProduct) (orders.Product, error)
	SetStock(ctx context.Context, id int64, stock int) (orders.Product, error)
}

type ProductsHandler struct {
	Products ProductCatalog
}

type CreateProductReq struct {
	Name      string          `json:"name"`
	Stock     int             `json:"stock"`
	SalePrice decimal.Decimal `json:"sale_price"`
}

type SetStockReq struct {
	Stock *int `json:"stock"`
}

func (h *ProductsHandler) Register(r chi.Router) {
	r.Get("/products", h.listProducts)
	r.Post("/products", h.createProduct)
	r.Get("/products/{id}", h.getProduct)
	r.Patch("/products/{id}/stock", h.setStock)
}

func (h *ProductsHandler) listProducts(w http.ResponseWriter, r *http.Request) {
	ps, err := h.Products.ListProducts(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, ps)
}

func (h *ProductsHandler) getProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	p, err := h.Products.GetProduct(r.Context(), id)
	if err != nil {
		productError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *ProductsHandler) createProduct(w http.ResponseWriter, r *http.Request) {
	var req CreateProductReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	p, err := h.Products.CreateProduct(r.Context(), orders.NewProduct{
		Name:      req.Name,
		Stock:     req.Stock,
		SalePrice: req.SalePrice,
	})
	if err != nil {
		productError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *ProductsHandler) setStock(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	var req SetStockReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Stock == nil {
		writeError(w, http.StatusBadRequest, "invalid stock: required")
		return
	}
	p, err := h.Products.SetStock(r.Context(), id, *req.Stock)
	if err != nil {
		productError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// productError differs from statusFor in that a missing product is the
// resource itself, not a bad reference.
func productError(w http.ResponseWriter, err error) {
	if errors.Is(err, orders.ErrProductNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	code, msg := statusFor(err)
	writeError(w, code, msg)
}
