package payment

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/ariefcatur/go-shop-api/internal/apperr"
)

// Sandbox is an in-process Gateway for local runs without gateway credentials.
// Invoices are keyed by external id, so creating twice returns the same invoice.
type Sandbox struct {
	BaseURL string

	mu         sync.Mutex
	byID       map[string]*Invoice
	byExternal map[string]string
	failNext   error
	loseNext   error
	calls      int
}

func NewSandbox(baseURL string) *Sandbox {
	return &Sandbox{
		BaseURL:    baseURL,
		byID:       map[string]*Invoice{},
		byExternal: map[string]string{},
	}
}

// FailNext makes the next CreateInvoice call return err wrapped as a GatewayError.
func (s *Sandbox) FailNext(err error) {
	s.mu.Lock()
	s.failNext = err
	s.mu.Unlock()
}

// LoseNext makes the next CreateInvoice call create the invoice and then return
// err, as when the response times out after the provider accepted the request.
func (s *Sandbox) LoseNext(err error) {
	s.mu.Lock()
	s.loseNext = err
	s.mu.Unlock()
}

// SetStatus moves an invoice to st, as the provider would after payment or expiry.
func (s *Sandbox) SetStatus(id string, st InvoiceStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if inv, ok := s.byID[id]; ok {
		inv.Status = st
	}
}

// Calls counts CreateInvoice invocations, including failed ones.
func (s *Sandbox) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *Sandbox) CreateInvoice(ctx context.Context, req InvoiceRequest) (Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++

	if err := ctx.Err(); err != nil {
		return Invoice{}, apperr.Gateway(err, "payment gateway unreachable")
	}
	if s.failNext != nil {
		err := s.failNext
		s.failNext = nil
		return Invoice{}, apperr.Gateway(err, "payment gateway unreachable")
	}
	if id, ok := s.byExternal[req.ExternalID]; ok {
		return *s.byID[id], nil
	}
	inv := &Invoice{
		ID:         uuid.NewString(),
		ExternalID: req.ExternalID,
		Status:     InvoicePending,
		Amount:     req.Amount,
	}
	inv.URL = s.BaseURL + "/invoices/" + inv.ID
	s.byID[inv.ID] = inv
	s.byExternal[req.ExternalID] = inv.ID
	if s.loseNext != nil {
		err := s.loseNext
		s.loseNext = nil
		return Invoice{}, apperr.Gateway(err, "payment gateway unreachable")
	}
	return *inv, nil
}

func (s *Sandbox) GetInvoice(ctx context.Context, id string) (Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.byID[id]
	if !ok {
		return Invoice{}, apperr.Gateway(nil, "invoice "+id+" not found")
	}
	return *inv, nil
}

func (s *Sandbox) GetInvoiceByExternalID(ctx context.Context, externalID string) (Invoice, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byExternal[externalID]
	if !ok {
		return Invoice{}, false, nil
	}
	return *s.byID[id], true, nil
}
