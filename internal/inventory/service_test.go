package inventory_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"

	"github.com/ariefcatur/go-shop-api/internal/apperr"
	"github.com/ariefcatur/go-shop-api/internal/catalog"
	"github.com/ariefcatur/go-shop-api/internal/inventory"
	kafkax "github.com/ariefcatur/go-shop-api/internal/kafka"
	"github.com/ariefcatur/go-shop-api/internal/memory"
	"github.com/ariefcatur/go-shop-api/internal/metrics"
	"github.com/ariefcatur/go-shop-api/internal/orders"
	"github.com/ariefcatur/go-shop-api/internal/payment"
)

var t0 = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

type fixture struct {
	db      *memory.DB
	gw      *payment.Sandbox
	metrics *metrics.Metrics
	rec     *inventory.Reconciler
}

func newFixture(t *testing.T, stock int) *fixture {
	t.Helper()
	db := memory.New()
	db.Now = func() time.Time { return t0 }
	err := db.Catalog().CreateProduct(context.Background(), catalog.Product{
		ID:    "p-1",
		Name:  "Keyboard",
		Price: decimal.RequireFromString("49.90"),
		Stock: stock,
	})
	if err != nil {
		t.Fatalf("seed product: %v", err)
	}
	gw := payment.NewSandbox("http://sandbox.local")
	m := metrics.New(prometheus.NewRegistry())
	rec := inventory.NewReconciler(db.Orders(), gw, memory.NewDedup(), m, nil, time.Hour, 2)
	rec.Now = func() time.Time { return t0.Add(2 * time.Hour) }
	return &fixture{db: db, gw: gw, metrics: m, rec: rec}
}

func (f *fixture) order(t *testing.T, qty int) orders.Order {
	t.Helper()
	o, err := f.db.Orders().CreatePending(context.Background(), "u-1", []orders.Line{{ProductID: "p-1", Quantity: qty}})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	return o
}

func (f *fixture) invoice(t *testing.T, o orders.Order, st payment.InvoiceStatus) string {
	t.Helper()
	ctx := context.Background()
	inv, err := f.gw.CreateInvoice(ctx, payment.InvoiceRequest{ExternalID: o.ID, Amount: o.TotalAmount})
	if err != nil {
		t.Fatalf("create invoice: %v", err)
	}
	if err := f.db.Orders().AttachInvoice(ctx, o.ID, inv.ID, inv.URL); err != nil {
		t.Fatalf("attach invoice: %v", err)
	}
	f.gw.SetStatus(inv.ID, st)
	return inv.ID
}

func (f *fixture) stock(t *testing.T) int {
	t.Helper()
	p, err := f.db.Catalog().GetProduct(context.Background(), "p-1")
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	return p.Stock
}

func (f *fixture) status(t *testing.T, id string) orders.PaymentStatus {
	t.Helper()
	o, err := f.db.Orders().Get(context.Background(), id)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	return o.PaymentStatus
}

func failedEvent(t *testing.T, eventID string, o orders.Order) kafkago.Message {
	t.Helper()
	payload, _ := json.Marshal(orders.InvoiceFailedPayload{OrderID: o.ID, UserID: o.UserID, Reason: "timeout"})
	env := orders.Envelope{
		EventID:      eventID,
		EventType:    orders.EventOrderInvoiceFailed,
		EventVersion: 1,
		OccurredAt:   t0,
		Producer:     "shop-api",
		Payload:      payload,
	}
	return kafkago.Message{
		Topic:   orders.TopicOrderInvoiceFailed,
		Key:     []byte(o.ID),
		Value:   kafkax.MustMarshal(env),
		Headers: kafkax.EventHeaders(orders.EventOrderInvoiceFailed, 1),
	}
}

func TestHandleInvoiceFailed_LeavesUnbilledOrderToTheSweep(t *testing.T) {
	f := newFixture(t, 5)
	o := f.order(t, 3)
	if got := f.stock(t); got != 2 {
		t.Fatalf("expected stock 2 after order, got %d", got)
	}

	msg := failedEvent(t, "evt-1", o)
	for i := 0; i < 3; i++ {
		if err := f.rec.HandleInvoiceFailed(context.Background(), msg); err != nil {
			t.Fatalf("handle #%d: %v", i, err)
		}
	}

	if st := f.status(t, o.ID); st != orders.StatusPending {
		t.Errorf("order must stay PENDING so the buyer can retry, got %s", st)
	}
	if got := f.stock(t); got != 2 {
		t.Errorf("expected stock to stay reserved, got %d", got)
	}
	if n := testutil.ToFloat64(f.metrics.Reconciled.WithLabelValues(inventory.ResultAwaitingRetry)); n != 1 {
		t.Errorf("expected one awaiting_retry settlement, got %v", n)
	}

	res, err := f.rec.Sweep(context.Background())
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if res.Failed != 1 || f.stock(t) != 5 || f.status(t, o.ID) != orders.StatusFailed {
		t.Errorf("expected the stale sweep to release the order, got %+v stock=%d", res, f.stock(t))
	}

	// a later event for the same order finds it already settled
	if err := f.rec.HandleInvoiceFailed(context.Background(), failedEvent(t, "evt-2", o)); err != nil {
		t.Fatalf("handle evt-2: %v", err)
	}
	if got := f.stock(t); got != 5 {
		t.Errorf("stock must not be released twice, got %d", got)
	}
}

func TestHandleInvoiceFailed_AttachesInvoiceFromLostResponse(t *testing.T) {
	f := newFixture(t, 5)
	o := f.order(t, 2)
	f.gw.LoseNext(context.DeadlineExceeded)
	if _, err := f.gw.CreateInvoice(context.Background(), payment.InvoiceRequest{ExternalID: o.ID, Amount: o.TotalAmount}); err == nil {
		t.Fatal("expected the create response to be lost")
	}

	if err := f.rec.HandleInvoiceFailed(context.Background(), failedEvent(t, "evt-1", o)); err != nil {
		t.Fatalf("handle: %v", err)
	}
	got, err := f.db.Orders().Get(context.Background(), o.ID)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if got.InvoiceID == "" || got.InvoiceURL == "" || got.PaymentStatus != orders.StatusPending {
		t.Errorf("expected the gateway invoice attached to a PENDING order, got %+v", got)
	}
	if f.stock(t) != 3 {
		t.Errorf("expected stock to stay reserved, got %d", f.stock(t))
	}
}

func TestHandleInvoiceFailed_PaidInvoiceFromLostResponse(t *testing.T) {
	f := newFixture(t, 5)
	o := f.order(t, 1)
	f.gw.LoseNext(context.DeadlineExceeded)
	_, _ = f.gw.CreateInvoice(context.Background(), payment.InvoiceRequest{ExternalID: o.ID, Amount: o.TotalAmount})
	inv, _, _ := f.gw.GetInvoiceByExternalID(context.Background(), o.ID)
	f.gw.SetStatus(inv.ID, payment.InvoicePaid)

	if err := f.rec.HandleInvoiceFailed(context.Background(), failedEvent(t, "evt-1", o)); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if st := f.status(t, o.ID); st != orders.StatusPaid {
		t.Errorf("expected PAID, got %s", st)
	}
}

func TestGatewayTimeoutThenRetrySucceeds(t *testing.T) {
	f := newFixture(t, 5)
	ctx := context.Background()
	svc := orders.NewService(f.db.Orders(), f.db.Carts(), f.gw, memory.NewLocker(), nil, f.metrics, nil, orders.Config{
		ServiceName: "shop-test",
	})
	if _, err := f.db.Carts().AddItem(ctx, "u-1", "p-1", 2); err != nil {
		t.Fatalf("add to cart: %v", err)
	}
	in := orders.CheckoutInput{UserID: "u-1", Email: "u-1@example.com"}

	f.gw.FailNext(context.DeadlineExceeded)
	_, err := svc.Checkout(ctx, in)
	ae, ok := apperr.As(err)
	if !ok || ae.Kind != apperr.KindGateway || ae.OrderID == "" {
		t.Fatalf("expected GatewayError carrying the order id, got %v", err)
	}
	o, err := f.db.Orders().Get(ctx, ae.OrderID)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}

	if err := f.rec.HandleInvoiceFailed(ctx, failedEvent(t, "evt-1", o)); err != nil {
		t.Fatalf("handle: %v", err)
	}

	res, err := svc.RetryInvoice(ctx, in, o.ID)
	if err != nil {
		t.Fatalf("retry after the failure event: %v", err)
	}
	if res.InvoiceURL == "" || res.OrderID != o.ID {
		t.Errorf("unexpected retry result %+v", res)
	}
	if st := f.status(t, o.ID); st != orders.StatusPending {
		t.Errorf("expected PENDING awaiting payment, got %s", st)
	}
	if got := f.stock(t); got != 3 {
		t.Errorf("expected stock to stay reserved, got %d", got)
	}
}

func TestHandleInvoiceFailed_KeepsOrderWithInvoice(t *testing.T) {
	f := newFixture(t, 5)
	o := f.order(t, 1)
	f.invoice(t, o, payment.InvoicePending)

	if err := f.rec.HandleInvoiceFailed(context.Background(), failedEvent(t, "evt-1", o)); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if st := f.status(t, o.ID); st != orders.StatusPending {
		t.Errorf("order with a live invoice must stay PENDING, got %s", st)
	}
	if got := f.stock(t); got != 4 {
		t.Errorf("expected stock to stay reserved, got %d", got)
	}
}

func TestHandleInvoiceFailed_DropsGarbage(t *testing.T) {
	f := newFixture(t, 5)
	if err := f.rec.HandleInvoiceFailed(context.Background(), kafkago.Message{Value: []byte("{not json")}); err != nil {
		t.Errorf("undecodable events must be dropped, got %v", err)
	}
	other := kafkax.MustMarshal(orders.Envelope{EventID: "x", EventType: orders.EventOrderCreated})
	if err := f.rec.HandleInvoiceFailed(context.Background(), kafkago.Message{Value: other}); err != nil {
		t.Errorf("foreign event types must be ignored, got %v", err)
	}
}

func TestHandleInvoiceFailed_UnknownOrderIsRetried(t *testing.T) {
	f := newFixture(t, 5)
	ghost := orders.Order{ID: "missing", UserID: "u-1"}
	msg := failedEvent(t, "evt-1", ghost)

	err := f.rec.HandleInvoiceFailed(context.Background(), msg)
	if err == nil {
		t.Fatal("expected an error for an unknown order")
	}
	// the dedup mark was dropped, so a redelivery is processed again
	if err2 := f.rec.HandleInvoiceFailed(context.Background(), msg); err2 == nil {
		t.Error("expected redelivery to be attempted again")
	}
}

func TestSweep(t *testing.T) {
	f := newFixture(t, 10)
	noInvoice := f.order(t, 1)
	paid := f.order(t, 1)
	expired := f.order(t, 1)
	waiting := f.order(t, 1)
	f.invoice(t, paid, payment.InvoicePaid)
	f.invoice(t, expired, payment.InvoiceExpired)
	f.invoice(t, waiting, payment.InvoicePending)

	res, err := f.rec.Sweep(context.Background())
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	want := inventory.SweepResult{Scanned: 4, Paid: 1, Failed: 2}
	if res != want {
		t.Errorf("expected %+v, got %+v", want, res)
	}

	for id, st := range map[string]orders.PaymentStatus{
		noInvoice.ID: orders.StatusFailed,
		paid.ID:      orders.StatusPaid,
		expired.ID:   orders.StatusFailed,
		waiting.ID:   orders.StatusPending,
	} {
		if got := f.status(t, id); got != st {
			t.Errorf("order %s: expected %s, got %s", id, st, got)
		}
	}
	if got := f.stock(t); got != 8 {
		t.Errorf("expected stock 8 after two releases, got %d", got)
	}

	// only the waiting order is still a candidate
	res, _ = f.rec.Sweep(context.Background())
	if res.Scanned != 1 || res.Paid != 0 || res.Failed != 0 {
		t.Errorf("unexpected second sweep %+v", res)
	}
}

func TestSweep_IgnoresFreshOrders(t *testing.T) {
	f := newFixture(t, 3)
	f.order(t, 1)
	f.rec.Now = func() time.Time { return t0.Add(30 * time.Minute) }

	res, err := f.rec.Sweep(context.Background())
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if res.Scanned != 0 {
		t.Errorf("orders younger than the stale window must be left alone, got %+v", res)
	}
}

func TestSweep_GatewayErrorCounts(t *testing.T) {
	f := newFixture(t, 3)
	o := f.order(t, 1)
	if err := f.db.Orders().AttachInvoice(context.Background(), o.ID, "inv-unknown", "http://x"); err != nil {
		t.Fatalf("attach: %v", err)
	}

	res, err := f.rec.Sweep(context.Background())
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if res.Errors != 1 {
		t.Errorf("expected one error, got %+v", res)
	}
	if st := f.status(t, o.ID); st != orders.StatusPending {
		t.Errorf("unreadable invoice must leave the order PENDING, got %s", st)
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	f := newFixture(t, 3)
	f.order(t, 1)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.rec.Run(ctx, 10*time.Millisecond) }()

	deadline := time.After(2 * time.Second)
	for f.stock(t) != 3 {
		select {
		case <-deadline:
			t.Fatal("run never released the stale order")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	select {
	case err := <-done:
		if err != nil && !errors.Is(err, context.Canceled) {
			t.Errorf("unexpected run error %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("run did not stop")
	}
}

func TestSweep_AttachesInvoiceBeforeReleasing(t *testing.T) {
	f := newFixture(t, 4)
	o := f.order(t, 1)
	f.gw.LoseNext(context.DeadlineExceeded)
	_, _ = f.gw.CreateInvoice(context.Background(), payment.InvoiceRequest{ExternalID: o.ID, Amount: o.TotalAmount})

	res, err := f.rec.Sweep(context.Background())
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if res.Failed != 0 {
		t.Errorf("an order with a live gateway invoice must not be released, got %+v", res)
	}
	got, _ := f.db.Orders().Get(context.Background(), o.ID)
	if got.InvoiceID == "" || got.PaymentStatus != orders.StatusPending {
		t.Errorf("expected the invoice attached, got %+v", got)
	}
	if f.stock(t) != 3 {
		t.Errorf("expected stock to stay reserved, got %d", f.stock(t))
	}
}
