package inventory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ariefcatur/go-shop-api/internal/apperr"
	"github.com/ariefcatur/go-shop-api/internal/metrics"
	"github.com/ariefcatur/go-shop-api/internal/orders"
	"github.com/ariefcatur/go-shop-api/internal/payment"
)

// Deduper remembers which events were already handled.
type Deduper interface {
	First(ctx context.Context, eventID string) (bool, error)
	Forget(ctx context.Context, eventID string) error
}

// Reconciler settles PENDING orders: it marks collected invoices PAID and returns
// the stock of orders whose invoice expired or was never created.
type Reconciler struct {
	Orders     orders.Store
	Gateway    payment.Gateway
	Dedup      Deduper
	Metrics    *metrics.Metrics
	Log        *zap.Logger
	StaleAfter time.Duration
	BatchSize  int
	Workers    int
	Now        func() time.Time
}

func NewReconciler(store orders.Store, gw payment.Gateway, dedup Deduper, m *metrics.Metrics, log *zap.Logger,
	staleAfter time.Duration, workers int) *Reconciler {
	if log == nil {
		log = zap.NewNop()
	}
	if workers <= 0 {
		workers = 1
	}
	return &Reconciler{
		Orders:     store,
		Gateway:    gw,
		Dedup:      dedup,
		Metrics:    m,
		Log:        log,
		StaleAfter: staleAfter,
		BatchSize:  100,
		Workers:    workers,
		Now:        time.Now,
	}
}

// Result of settling one order.
const (
	ResultPaid          = "paid"
	ResultExpired       = "expired"
	ResultNoInvoice     = "no_invoice"
	ResultPending       = "still_pending"
	ResultAwaitingRetry = "awaiting_retry"
	ResultSkipped       = "skipped"
	ResultError         = "error"
)

// HandleInvoiceFailed consumes order.invoice.failed. A timed-out create may still
// have produced an invoice, so the order keeps its stock: an invoice found at the
// gateway is attached and settled, otherwise the order waits for the buyer to
// retry and the stale sweep releases it after StaleAfter.
func (r *Reconciler) HandleInvoiceFailed(ctx context.Context, m kafkago.Message) error {
	var env orders.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		r.Log.Error("drop undecodable event", zap.ByteString("key", m.Key), zap.Error(err))
		return nil
	}
	if env.EventType != orders.EventOrderInvoiceFailed {
		return nil
	}
	first, err := r.Dedup.First(ctx, env.EventID)
	if err != nil {
		return fmt.Errorf("dedup: %w", err)
	}
	if !first {
		return nil
	}

	var p orders.InvoiceFailedPayload
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		r.Log.Error("drop event with bad payload", zap.String("event_id", env.EventID), zap.Error(err))
		return nil
	}

	o, err := r.Orders.Get(ctx, p.OrderID)
	if err != nil {
		_ = r.Dedup.Forget(ctx, env.EventID)
		return fmt.Errorf("load order %s: %w", p.OrderID, err)
	}
	if _, err := r.settle(ctx, o, false); err != nil {
		_ = r.Dedup.Forget(ctx, env.EventID)
		return err
	}
	return nil
}

type SweepResult struct {
	Scanned int
	Paid    int
	Failed  int
	Errors  int
}

// Sweep settles PENDING orders older than StaleAfter, at most BatchSize per call.
func (r *Reconciler) Sweep(ctx context.Context) (SweepResult, error) {
	before := r.Now().Add(-r.StaleAfter)
	stale, err := r.Orders.ListStalePending(ctx, before, r.BatchSize)
	if err != nil {
		return SweepResult{}, fmt.Errorf("list stale orders: %w", err)
	}

	var paid, failed, errs atomic.Int32
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.Workers)
	for _, o := range stale {
		g.Go(func() error {
			res, err := r.settle(gctx, o, true)
			switch {
			case err != nil:
				errs.Add(1)
			case res == ResultPaid:
				paid.Add(1)
			case res == ResultExpired || res == ResultNoInvoice:
				failed.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	return SweepResult{
		Scanned: len(stale),
		Paid:    int(paid.Load()),
		Failed:  int(failed.Load()),
		Errors:  int(errs.Load()),
	}, ctx.Err()
}

// settle drives one order toward PAID or FAILED from its invoice status. An order
// with no invoice at the gateway is only released when releaseUnbilled is set.
func (r *Reconciler) settle(ctx context.Context, o orders.Order, releaseUnbilled bool) (result string, err error) {
	log := r.Log.With(zap.String("order_id", o.ID))
	defer func() {
		if err != nil {
			result = ResultError
			log.Warn("settle order", zap.Error(err))
		}
		r.Metrics.Reconcile(result)
	}()

	if o.PaymentStatus != orders.StatusPending {
		return ResultSkipped, nil
	}

	var inv payment.Invoice
	if o.InvoiceID == "" {
		found := false
		inv, found, err = r.Gateway.GetInvoiceByExternalID(ctx, o.ID)
		if err != nil {
			return "", err
		}
		if !found {
			if !releaseUnbilled {
				return ResultAwaitingRetry, nil
			}
			return r.release(ctx, log, o, ResultNoInvoice)
		}
		if err := r.Orders.AttachInvoice(ctx, o.ID, inv.ID, inv.URL); err != nil {
			if errors.Is(err, apperr.ErrConflict) {
				return ResultSkipped, nil
			}
			return "", err
		}
		log.Info("attached invoice from a lost create response", zap.String("invoice_id", inv.ID))
	} else {
		inv, err = r.Gateway.GetInvoice(ctx, o.InvoiceID)
		if err != nil {
			return "", err
		}
	}

	switch {
	case inv.Status.Collected():
		changed, err := r.Orders.MarkPaid(ctx, o.ID)
		if err != nil {
			return "", err
		}
		if !changed {
			return ResultSkipped, nil
		}
		log.Info("order paid", zap.String("invoice_id", inv.ID))
		return ResultPaid, nil
	case inv.Status == payment.InvoiceExpired:
		return r.release(ctx, log, o, ResultExpired)
	default:
		return ResultPending, nil
	}
}

func (r *Reconciler) release(ctx context.Context, log *zap.Logger, o orders.Order, reason string) (string, error) {
	changed, err := r.Orders.FailAndRelease(ctx, o.ID)
	if err != nil {
		return "", err
	}
	if !changed {
		return ResultSkipped, nil
	}
	log.Info("order failed, stock released", zap.String("reason", reason), zap.Int("lines", len(o.Items)))
	return reason, nil
}

// Run sweeps every interval until ctx ends.
func (r *Reconciler) Run(ctx context.Context, interval time.Duration) error {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		res, err := r.Sweep(ctx)
		if err != nil && ctx.Err() == nil {
			r.Log.Error("sweep failed", zap.Error(err))
		} else if res.Scanned > 0 {
			r.Log.Info("sweep done",
				zap.Int("scanned", res.Scanned),
				zap.Int("paid", res.Paid),
				zap.Int("failed", res.Failed),
				zap.Int("errors", res.Errors))
		}
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
		}
	}
}
