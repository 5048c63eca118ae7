package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-shop-api/internal/apperr"
	"github.com/ariefcatur/go-shop-api/internal/metrics"
)

const (
	opCreate = "create_invoice"
	opGet    = "get_invoice"
	opFind   = "find_invoice"
)

// Client talks to a Xendit-compatible invoice API: POST/GET {base}/v2/invoices,
// basic auth with the secret key as user and an empty password.
type Client struct {
	BaseURL   string
	SecretKey string
	HTTP      *http.Client
	Metrics   *metrics.Metrics
	Log       *zap.Logger

	tracer trace.Tracer
}

func NewClient(baseURL, secretKey string, timeout time.Duration, m *metrics.Metrics, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		BaseURL:   strings.TrimRight(baseURL, "/"),
		SecretKey: secretKey,
		HTTP:      &http.Client{Timeout: timeout},
		Metrics:   m,
		Log:       log,
		tracer:    otel.Tracer("payment"),
	}
}

type invoiceBody struct {
	ExternalID         string      `json:"external_id"`
	Amount             json.Number `json:"amount"`
	PayerEmail         string      `json:"payer_email,omitempty"`
	Description        string      `json:"description,omitempty"`
	SuccessRedirectURL string      `json:"success_redirect_url,omitempty"`
	FailureRedirectURL string      `json:"failure_redirect_url,omitempty"`
}

type invoiceResponse struct {
	ID         string          `json:"id"`
	ExternalID string          `json:"external_id"`
	InvoiceURL string          `json:"invoice_url"`
	Status     string          `json:"status"`
	Amount     decimal.Decimal `json:"amount"`
}

type errorResponse struct {
	ErrorCode string `json:"error_code"`
	Message   string `json:"message"`
}

func (c *Client) CreateInvoice(ctx context.Context, req InvoiceRequest) (Invoice, error) {
	if req.ExternalID == "" {
		return Invoice{}, apperr.Validation("invoice external id is required")
	}
	if !req.Amount.IsPositive() {
		return Invoice{}, apperr.Validation("invoice amount must be positive")
	}
	body, err := json.Marshal(invoiceBody{
		ExternalID:         req.ExternalID,
		Amount:             json.Number(req.Amount.String()),
		PayerEmail:         req.PayerEmail,
		Description:        req.Description,
		SuccessRedirectURL: req.SuccessURL,
		FailureRedirectURL: req.FailureURL,
	})
	if err != nil {
		return Invoice{}, apperr.Gateway(err, "encode invoice request")
	}
	raw, err := c.do(ctx, opCreate, http.MethodPost, "/v2/invoices", body,
		attribute.String("invoice.external_id", req.ExternalID))
	if err != nil {
		return Invoice{}, err
	}
	return decodeInvoice(raw)
}

func (c *Client) GetInvoice(ctx context.Context, id string) (Invoice, error) {
	if id == "" {
		return Invoice{}, apperr.Validation("invoice id is required")
	}
	raw, err := c.do(ctx, opGet, http.MethodGet, "/v2/invoices/"+url.PathEscape(id), nil,
		attribute.String("invoice.id", id))
	if err != nil {
		return Invoice{}, err
	}
	return decodeInvoice(raw)
}

// GetInvoiceByExternalID lists GET {base}/v2/invoices?external_id=... and picks
// the invoice that stands for it.
func (c *Client) GetInvoiceByExternalID(ctx context.Context, externalID string) (Invoice, bool, error) {
	if externalID == "" {
		return Invoice{}, false, apperr.Validation("invoice external id is required")
	}
	q := url.Values{"external_id": {externalID}}
	raw, err := c.do(ctx, opFind, http.MethodGet, "/v2/invoices?"+q.Encode(), nil,
		attribute.String("invoice.external_id", externalID))
	if err != nil {
		return Invoice{}, false, err
	}
	var list []invoiceResponse
	if err := json.Unmarshal(raw, &list); err != nil {
		return Invoice{}, false, apperr.Gateway(err, "decode gateway response")
	}
	invs := make([]Invoice, 0, len(list))
	for _, ir := range list {
		if ir.ID != "" {
			invs = append(invs, ir.invoice())
		}
	}
	inv, found := Pick(invs)
	return inv, found, nil
}

func decodeInvoice(raw []byte) (Invoice, error) {
	var ir invoiceResponse
	if err := json.Unmarshal(raw, &ir); err != nil {
		return Invoice{}, apperr.Gateway(err, "decode gateway response")
	}
	if ir.ID == "" {
		return Invoice{}, apperr.Gateway(nil, "gateway response missing invoice id")
	}
	return ir.invoice(), nil
}

func (ir invoiceResponse) invoice() Invoice {
	return Invoice{
		ID:         ir.ID,
		ExternalID: ir.ExternalID,
		URL:        ir.InvoiceURL,
		Status:     InvoiceStatus(strings.ToUpper(ir.Status)),
		Amount:     ir.Amount,
	}
}

// do sends one request and returns the raw 2xx body.
func (c *Client) do(ctx context.Context, op, method, path string, body []byte, attrs ...attribute.KeyValue) (raw []byte, err error) {
	ctx, span := c.tracer.Start(ctx, "payment."+op, trace.WithAttributes(attrs...))
	start := time.Now()
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			c.Log.Warn("gateway call failed", zap.String("op", op), zap.Error(err))
		}
		c.Metrics.Gateway(op, outcome, time.Since(start).Seconds())
		span.End()
	}()

	var rdr io.Reader
	if body != nil {
		rdr = bytes.NewReader(body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, rdr)
	if err != nil {
		return nil, apperr.Gateway(err, "build gateway request")
	}
	httpReq.SetBasicAuth(c.SecretKey, "")
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTP.Do(httpReq)
	if err != nil {
		return nil, apperr.Gateway(err, "payment gateway unreachable")
	}
	defer resp.Body.Close()

	raw, err = io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, apperr.Gateway(err, "read gateway response")
	}
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode/100 != 2 {
		var er errorResponse
		_ = json.Unmarshal(raw, &er)
		msg := er.Message
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, apperr.Gateway(
			fmt.Errorf("status %d %s", resp.StatusCode, er.ErrorCode),
			"payment gateway rejected request: "+msg)
	}

	return raw, nil
}
