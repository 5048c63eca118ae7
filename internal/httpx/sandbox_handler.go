package httpx

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/ariefcatur/go-shop-api/internal/apperr"
	"github.com/ariefcatur/go-shop-api/internal/payment"
)

// SandboxHandler serves sandbox invoice URLs in place of the provider's hosted
// page. Pay and expire move the invoice the way a real payer or timeout would.
type SandboxHandler struct {
	Gateway *payment.Sandbox
}

func (h *SandboxHandler) Register(r chi.Router) {
	r.Get("/invoices/{id}", h.get)
	r.Post("/invoices/{id}/pay", h.setStatus(payment.InvoicePaid))
	r.Post("/invoices/{id}/expire", h.setStatus(payment.InvoiceExpired))
}

type sandboxInvoice struct {
	ID         string          `json:"id"`
	ExternalID string          `json:"external_id"`
	InvoiceURL string          `json:"invoice_url"`
	Status     string          `json:"status"`
	Amount     decimal.Decimal `json:"amount"`
}

func sandboxView(inv payment.Invoice) sandboxInvoice {
	return sandboxInvoice{
		ID:         inv.ID,
		ExternalID: inv.ExternalID,
		InvoiceURL: inv.URL,
		Status:     string(inv.Status),
		Amount:     inv.Amount,
	}
}

func (h *SandboxHandler) load(r *http.Request) (payment.Invoice, error) {
	id := chi.URLParam(r, "id")
	inv, err := h.Gateway.GetInvoice(r.Context(), id)
	if err != nil {
		return payment.Invoice{}, apperr.NotFound("invoice %s not found", id)
	}
	return inv, nil
}

func (h *SandboxHandler) get(w http.ResponseWriter, r *http.Request) {
	inv, err := h.load(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sandboxView(inv))
}

func (h *SandboxHandler) setStatus(st payment.InvoiceStatus) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		inv, err := h.load(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		h.Gateway.SetStatus(inv.ID, st)
		inv.Status = st
		writeJSON(w, http.StatusOK, sandboxView(inv))
	}
}
