package payment

import (
	"context"

	"github.com/shopspring/decimal"
)

type InvoiceStatus string

const (
	InvoicePending InvoiceStatus = "PENDING"
	InvoicePaid    InvoiceStatus = "PAID"
	InvoiceSettled InvoiceStatus = "SETTLED"
	InvoiceExpired InvoiceStatus = "EXPIRED"
)

// Collected reports whether the payer has paid.
func (s InvoiceStatus) Collected() bool {
	return s == InvoicePaid || s == InvoiceSettled
}

type InvoiceRequest struct {
	ExternalID  string
	Amount      decimal.Decimal
	PayerEmail  string
	Description string
	SuccessURL  string
	FailureURL  string
}

type Invoice struct {
	ID         string
	ExternalID string
	URL        string
	Status     InvoiceStatus
	Amount     decimal.Decimal
}

// Gateway is the hosted-invoice provider. Failures are returned as apperr GatewayError.
type Gateway interface {
	CreateInvoice(ctx context.Context, req InvoiceRequest) (Invoice, error)
	GetInvoice(ctx context.Context, id string) (Invoice, error)
	// GetInvoiceByExternalID finds an invoice created for externalID, including one
	// whose create response was lost. found is false when none exists.
	GetInvoiceByExternalID(ctx context.Context, externalID string) (inv Invoice, found bool, err error)
}

// Pick chooses which of several invoices for one external id stands: a collected
// one first, then a pending one, then the last listed.
func Pick(invs []Invoice) (Invoice, bool) {
	if len(invs) == 0 {
		return Invoice{}, false
	}
	for _, inv := range invs {
		if inv.Status.Collected() {
			return inv, true
		}
	}
	for _, inv := range invs {
		if inv.Status == InvoicePending {
			return inv, true
		}
	}
	return invs[len(invs)-1], true
}
