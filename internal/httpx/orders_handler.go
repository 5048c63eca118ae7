package httpx

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ariefcatur/go-shop-api/internal/orders"
)

type OrdersHandler struct {
	Orders *orders.Service
}

// Register mounts the order routes. Buying goes through customer; reading orders
// only needs a valid token.
func (h *OrdersHandler) Register(r chi.Router, customer func(http.Handler) http.Handler) {
	r.With(customer).Post("/checkout", h.checkout)
	r.Get("/orders", h.list)
	r.Get("/orders/{id}", h.get)
	r.With(customer).Post("/orders/{id}/invoice", h.retryInvoice)
}

func checkoutInput(r *http.Request) orders.CheckoutInput {
	c := claimsOf(r)
	return orders.CheckoutInput{UserID: c.UserID(), Email: c.Email}
}

func (h *OrdersHandler) checkout(w http.ResponseWriter, r *http.Request) {
	res, err := h.Orders.Checkout(r.Context(), checkoutInput(r))
	if err != nil {
		writeCheckoutError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *OrdersHandler) retryInvoice(w http.ResponseWriter, r *http.Request) {
	res, err := h.Orders.RetryInvoice(r.Context(), checkoutInput(r), chi.URLParam(r, "id"))
	if err != nil {
		writeCheckoutError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *OrdersHandler) list(w http.ResponseWriter, r *http.Request) {
	out, err := h.Orders.ListForUser(r.Context(), claimsOf(r).UserID())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if out == nil {
		out = []orders.Order{}
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *OrdersHandler) get(w http.ResponseWriter, r *http.Request) {
	c := claimsOf(r)
	o, err := h.Orders.Get(r.Context(), c.UserID(), chi.URLParam(r, "id"), c.IsAdmin())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}
