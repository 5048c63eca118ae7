package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-shop-api/internal/apperr"
	"github.com/ariefcatur/go-shop-api/internal/cart"
	"github.com/ariefcatur/go-shop-api/internal/catalog"
	kafkax "github.com/ariefcatur/go-shop-api/internal/kafka"
	"github.com/ariefcatur/go-shop-api/internal/logging"
	"github.com/ariefcatur/go-shop-api/internal/metrics"
	"github.com/ariefcatur/go-shop-api/internal/payment"
	"github.com/ariefcatur/go-shop-api/internal/redisx"
)

// CartStore is the part of the cart the checkout reads and clears.
type CartStore interface {
	ListItems(ctx context.Context, userID string) ([]cart.Item, error)
	Clear(ctx context.Context, userID string) error
}

type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (release func(), ok bool, err error)
}

type Publisher interface {
	Publish(ctx context.Context, topic string, key, value []byte, headers ...kafkago.Header) error
}

type Config struct {
	ServiceName    string
	LockTTL        time.Duration
	GatewayTimeout time.Duration
	SuccessURL     string
	FailureURL     string
}

type Service struct {
	Store   Store
	Cart    CartStore
	Gateway payment.Gateway
	Locker  Locker
	Events  Publisher
	Metrics *metrics.Metrics
	Log     *zap.Logger
	Config  Config

	tracer trace.Tracer
}

func NewService(store Store, carts CartStore, gw payment.Gateway, locker Locker, events Publisher,
	m *metrics.Metrics, log *zap.Logger, cfg Config) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 30 * time.Second
	}
	if cfg.GatewayTimeout <= 0 {
		cfg.GatewayTimeout = 10 * time.Second
	}
	return &Service{
		Store:   store,
		Cart:    carts,
		Gateway: gw,
		Locker:  locker,
		Events:  events,
		Metrics: m,
		Log:     log,
		Config:  cfg,
		tracer:  otel.Tracer("orders"),
	}
}

type CheckoutInput struct {
	UserID string
	Email  string
}

// Checkout turns the user's cart into a PENDING order, requests its invoice and
// clears the cart. Stock is taken inside the order transaction; a gateway failure
// leaves the order PENDING and returns a GatewayError carrying the order id.
func (s *Service) Checkout(ctx context.Context, in CheckoutInput) (res CheckoutResult, err error) {
	ctx, span := s.tracer.Start(ctx, "orders.Checkout", trace.WithAttributes(attribute.String("user.id", in.UserID)))
	defer func() {
		s.Metrics.Checkout(checkoutOutcome(err))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()
	log := logging.From(ctx, s.Log).With(zap.String("user_id", in.UserID))

	release, ok, err := s.Locker.TryLock(ctx, fmt.Sprintf(redisx.KeyCheckoutLock, in.UserID), s.Config.LockTTL)
	if err != nil {
		return CheckoutResult{}, apperr.Persistence(err, "acquire checkout lock")
	}
	if !ok {
		return CheckoutResult{}, apperr.CheckoutBusy()
	}
	defer release()

	items, err := s.Cart.ListItems(ctx, in.UserID)
	if err != nil {
		return CheckoutResult{}, apperr.Persistence(err, "load cart")
	}
	if len(items) == 0 {
		return CheckoutResult{}, apperr.EmptyCart()
	}

	lines := make([]Line, 0, len(items))
	for _, it := range items {
		if it.Quantity > it.Product.Stock {
			return CheckoutResult{}, apperr.InsufficientStock(it.ProductID, it.Product.Name, it.Product.Stock, it.Quantity)
		}
		lines = append(lines, Line{ProductID: it.ProductID, Quantity: it.Quantity})
	}

	order, err := s.Store.CreatePending(ctx, in.UserID, lines)
	if err != nil {
		return CheckoutResult{}, apperr.Persistence(err, "create order")
	}
	span.SetAttributes(attribute.String("order.id", order.ID))
	log = log.With(zap.String("order_id", order.ID))
	log.Info("order created", zap.String("total", order.TotalAmount.StringFixed(2)))

	return s.invoice(ctx, log, order, in.Email)
}

// RetryInvoice returns the invoice of a PENDING order owned by userID, creating it if
// the checkout could not.
func (s *Service) RetryInvoice(ctx context.Context, in CheckoutInput, orderID string) (CheckoutResult, error) {
	order, err := s.Get(ctx, in.UserID, orderID, false)
	if err != nil {
		return CheckoutResult{}, err
	}
	if order.PaymentStatus != StatusPending {
		return CheckoutResult{}, apperr.Conflict("order %s is already %s", order.ID, order.PaymentStatus)
	}
	if order.InvoiceURL != "" {
		return CheckoutResult{OrderID: order.ID, InvoiceURL: order.InvoiceURL, TotalAmount: order.TotalAmount}, nil
	}

	release, ok, err := s.Locker.TryLock(ctx, fmt.Sprintf(redisx.KeyCheckoutLock, in.UserID), s.Config.LockTTL)
	if err != nil {
		return CheckoutResult{}, apperr.Persistence(err, "acquire checkout lock")
	}
	if !ok {
		return CheckoutResult{}, apperr.CheckoutBusy()
	}
	defer release()

	log := logging.From(ctx, s.Log).With(zap.String("user_id", in.UserID), zap.String("order_id", order.ID))

	// An earlier create may have reached the gateway even though its response was lost.
	gctx, cancel := context.WithTimeout(ctx, s.Config.GatewayTimeout)
	inv, found, err := s.Gateway.GetInvoiceByExternalID(gctx, order.ID)
	cancel()
	if err != nil {
		ge := apperr.Gateway(err, "could not look up invoice, retry payment for this order")
		ge.OrderID = order.ID
		return CheckoutResult{}, ge
	}
	if found {
		if inv.Status == payment.InvoiceExpired {
			return CheckoutResult{}, apperr.Conflict("invoice for order %s has expired", order.ID)
		}
		log.Info("reusing invoice created by an earlier attempt", zap.String("invoice_id", inv.ID))
		return s.complete(ctx, log, order, inv)
	}
	return s.invoice(ctx, log, order, in.Email)
}

func (s *Service) invoice(ctx context.Context, log *zap.Logger, order Order, email string) (CheckoutResult, error) {
	gctx, cancel := context.WithTimeout(ctx, s.Config.GatewayTimeout)
	inv, err := s.Gateway.CreateInvoice(gctx, payment.InvoiceRequest{
		ExternalID:  order.ID,
		Amount:      order.TotalAmount,
		PayerEmail:  email,
		Description: fmt.Sprintf("Order %s", order.ID),
		SuccessURL:  s.Config.SuccessURL,
		FailureURL:  s.Config.FailureURL,
	})
	cancel()
	if err != nil {
		log.Warn("invoice creation failed, order left pending", zap.Error(err))
		s.publish(ctx, log, TopicOrderInvoiceFailed, EventOrderInvoiceFailed, order.ID, InvoiceFailedPayload{
			OrderID: order.ID,
			UserID:  order.UserID,
			Reason:  err.Error(),
		})
		ge := apperr.Gateway(err, "could not create invoice, retry payment for this order")
		ge.OrderID = order.ID
		return CheckoutResult{}, ge
	}
	return s.complete(ctx, log, order, inv)
}

// complete attaches inv to order, empties the cart and announces the order.
func (s *Service) complete(ctx context.Context, log *zap.Logger, order Order, inv payment.Invoice) (CheckoutResult, error) {
	if err := s.Store.AttachInvoice(ctx, order.ID, inv.ID, inv.URL); err != nil {
		perr := apperr.Persistence(err, "save invoice")
		if ae, ok := apperr.As(perr); ok {
			ae.OrderID = order.ID
		}
		return CheckoutResult{}, perr
	}
	order.InvoiceID, order.InvoiceURL = inv.ID, inv.URL

	if err := s.Cart.Clear(ctx, order.UserID); err != nil {
		log.Warn("clear cart after checkout", zap.Error(err))
	}

	s.publish(ctx, log, TopicOrderCreated, EventOrderCreated, order.ID, OrderCreatedPayload{
		OrderID:     order.ID,
		UserID:      order.UserID,
		InvoiceID:   inv.ID,
		Items:       order.Items,
		TotalAmount: order.TotalAmount,
	})
	log.Info("invoice created", zap.String("invoice_id", inv.ID))

	return CheckoutResult{OrderID: order.ID, InvoiceURL: inv.URL, TotalAmount: order.TotalAmount}, nil
}

// publish is best effort; a lost event is recovered by the stale-order sweep.
func (s *Service) publish(ctx context.Context, log *zap.Logger, topic, eventType, orderID string, payload any) {
	if s.Events == nil {
		return
	}
	ev := Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      s.Config.ServiceName,
		CorrelationID: orderID,
		Payload:       kafkax.MustMarshal(payload),
	}
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		ev.TraceID = sc.TraceID().String()
	}
	err := s.Events.Publish(ctx, topic, PartitionKey(orderID), kafkax.MustMarshal(ev), kafkax.EventHeaders(eventType, 1)...)
	if err != nil {
		log.Warn("publish event", zap.String("topic", topic), zap.Error(err))
	}
}

// Get loads an order. Non-admin callers only see their own orders.
func (s *Service) Get(ctx context.Context, userID, orderID string, admin bool) (Order, error) {
	o, err := s.Store.Get(ctx, orderID)
	if err != nil {
		return Order{}, apperr.Persistence(err, "load order")
	}
	if !admin && o.UserID != userID {
		return Order{}, apperr.AccessDenied("order %s belongs to another user", orderID)
	}
	return o, nil
}

func (s *Service) ListForUser(ctx context.Context, userID string) ([]Order, error) {
	out, err := s.Store.ListByUser(ctx, userID)
	return out, apperr.Persistence(err, "list orders")
}

func (s *Service) ListAll(ctx context.Context, page catalog.Page) ([]Order, int, error) {
	out, total, err := s.Store.ListAll(ctx, page)
	return out, total, apperr.Persistence(err, "list orders")
}

func checkoutOutcome(err error) string {
	if err == nil {
		return "success"
	}
	switch apperr.KindOf(err) {
	case apperr.KindEmptyCart:
		return "empty_cart"
	case apperr.KindInsufficientStock:
		return "insufficient_stock"
	case apperr.KindCheckoutBusy:
		return "in_progress"
	case apperr.KindGateway:
		return "gateway_error"
	default:
		return "error"
	}
}
