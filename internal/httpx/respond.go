package httpx

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/ariefcatur/go-inventory-orders/internal/orders"
	"github.com/go-chi/chi/v5"
)

type errorResp struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, errorResp{Error: msg})
}

// statusFor maps workflow errors onto HTTP status codes. Anything that is
// not a request problem is reported as 500 without its details.
func statusFor(err error) (int, string) {
	var ve *orders.ValidationError
	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest, ve.Error()
	case errors.Is(err, orders.ErrOrderNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, orders.ErrInsufficientStock):
		return http.StatusConflict, err.Error()
	case errors.Is(err, orders.ErrProductNotFound), errors.Is(err, orders.ErrPersonNotFound):
		return http.StatusUnprocessableEntity, err.Error()
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil && id > 0
}
