package httpx

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/ariefcatur/go-shop-api/internal/apperr"
	"github.com/ariefcatur/go-shop-api/internal/catalog"
	"github.com/ariefcatur/go-shop-api/internal/logging"
)

const maxBody = 1 << 20

type errorBody struct {
	Code      apperr.Kind `json:"code"`
	Message   string      `json:"message"`
	Available *int        `json:"available,omitempty"`
	Requested *int        `json:"requested,omitempty"`
	ProductID string      `json:"product_id,omitempty"`
	OrderID   string      `json:"order_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps an error kind to its HTTP status. Short stock is reported as
// stockStatus, which differs between the cart and checkout endpoints.
func statusFor(kind apperr.Kind, stockStatus int) int {
	switch kind {
	case apperr.KindValidation, apperr.KindEmptyCart:
		return http.StatusBadRequest
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindAccessDenied:
		return http.StatusForbidden
	case apperr.KindUnauthorized:
		return http.StatusUnauthorized
	case apperr.KindInsufficientStock:
		return stockStatus
	case apperr.KindConflict, apperr.KindCheckoutBusy:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	respondError(w, r, err, http.StatusForbidden)
}

// writeCheckoutError reports short stock as 400.
func writeCheckoutError(w http.ResponseWriter, r *http.Request, err error) {
	respondError(w, r, err, http.StatusBadRequest)
}

func respondError(w http.ResponseWriter, r *http.Request, err error, stockStatus int) {
	body := errorBody{Code: apperr.KindPersistence, Message: "internal error"}
	if ae, ok := apperr.As(err); ok {
		body.Code = ae.Kind
		body.Message = ae.Message
		body.OrderID = ae.OrderID
		if ae.Kind == apperr.KindInsufficientStock {
			body.ProductID = ae.ProductID
			body.Available = &ae.Available
			body.Requested = &ae.Requested
		}
	}
	code := statusFor(body.Code, stockStatus)
	if code >= http.StatusInternalServerError {
		logging.From(r.Context(), nil).Error("request failed", zap.Error(err))
		if body.Code == apperr.KindPersistence {
			body.Message = "internal error"
		}
	}
	writeJSON(w, code, map[string]errorBody{"error": body})
}

// decodeJSON reads a single JSON object from the request body.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBody))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.Validation("request body is empty")
		}
		return apperr.Validation("invalid json: %v", err)
	}
	return nil
}

func queryInt(r *http.Request, key string) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperr.Validation("%s must be an integer", key)
	}
	return n, nil
}

func pageFrom(r *http.Request) (catalog.Page, error) {
	page, err := queryInt(r, "page")
	if err != nil {
		return catalog.Page{}, err
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		return catalog.Page{}, err
	}
	return catalog.Page{Page: page, Limit: limit}.Normalize(), nil
}
