package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/ariefcatur/go-shop-api/internal/apperr"
	"github.com/ariefcatur/go-shop-api/internal/catalog"
	"github.com/ariefcatur/go-shop-api/internal/orders"
)

type OrderStore struct{ db *DB }

func (s *OrderStore) CreatePending(ctx context.Context, userID string, lines []orders.Line) (orders.Order, error) {
	lines = orders.NormalizeLines(lines)
	if len(lines) == 0 {
		return orders.Order{}, apperr.EmptyCart()
	}

	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	// check every line before touching stock so a failure leaves nothing behind
	for _, l := range lines {
		if l.Quantity < 1 {
			return orders.Order{}, apperr.Validation("quantity for product %s must be at least 1", l.ProductID)
		}
		p, ok := s.db.products[l.ProductID]
		if !ok {
			return orders.Order{}, apperr.NotFound("product %s not found", l.ProductID)
		}
		if p.Stock < l.Quantity {
			return orders.Order{}, apperr.InsufficientStock(p.ID, p.Name, p.Stock, l.Quantity)
		}
	}

	now := s.db.now()
	o := orders.Order{
		ID:            uuid.NewString(),
		UserID:        userID,
		PaymentStatus: orders.StatusPending,
		PaymentMethod: orders.PaymentMethodInvoice,
		CreatedAt:     now,
		UpdatedAt:     now,
		Items:         make([]orders.Item, 0, len(lines)),
	}
	for _, l := range lines {
		p := s.db.products[l.ProductID]
		p.Stock -= l.Quantity
		p.UpdatedAt = now
		s.db.products[p.ID] = p
		o.Items = append(o.Items, orders.Item{
			ProductID:   p.ID,
			ProductName: p.Name,
			Quantity:    l.Quantity,
			Price:       p.Price,
		})
	}
	o.TotalAmount = orders.SumItems(o.Items)
	s.db.orders[o.ID] = o
	return cloneOrder(o), nil
}

func cloneOrder(o orders.Order) orders.Order {
	o.Items = append([]orders.Item(nil), o.Items...)
	return o
}

func (s *OrderStore) Get(ctx context.Context, id string) (orders.Order, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	o, ok := s.db.orders[id]
	if !ok {
		return orders.Order{}, apperr.NotFound("order %s not found", id)
	}
	return cloneOrder(o), nil
}

func (s *OrderStore) collect(keep func(orders.Order) bool, newestFirst bool) []orders.Order {
	out := []orders.Order{}
	for _, o := range s.db.orders {
		if keep(o) {
			out = append(out, cloneOrder(o))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt) == newestFirst
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (s *OrderStore) ListByUser(ctx context.Context, userID string) ([]orders.Order, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	return s.collect(func(o orders.Order) bool { return o.UserID == userID }, true), nil
}

func (s *OrderStore) ListAll(ctx context.Context, page catalog.Page) ([]orders.Order, int, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	all := s.collect(func(orders.Order) bool { return true }, true)
	return paginate(all, page), len(all), nil
}

func (s *OrderStore) ListStalePending(ctx context.Context, before time.Time, limit int) ([]orders.Order, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	out := s.collect(func(o orders.Order) bool {
		return o.PaymentStatus == orders.StatusPending && o.CreatedAt.Before(before)
	}, false)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *OrderStore) AttachInvoice(ctx context.Context, id, invoiceID, invoiceURL string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	o, ok := s.db.orders[id]
	if !ok {
		return apperr.NotFound("order %s not found", id)
	}
	if o.PaymentStatus != orders.StatusPending {
		return apperr.Conflict("order %s is no longer pending", id)
	}
	o.InvoiceID, o.InvoiceURL = invoiceID, invoiceURL
	o.UpdatedAt = s.db.now()
	s.db.orders[id] = o
	return nil
}

func (s *OrderStore) MarkPaid(ctx context.Context, id string) (bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	return s.transition(id, orders.StatusPaid), nil
}

func (s *OrderStore) FailAndRelease(ctx context.Context, id string) (bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if !s.transition(id, orders.StatusFailed) {
		return false, nil
	}
	now := s.db.now()
	for _, it := range s.db.orders[id].Items {
		if p, ok := s.db.products[it.ProductID]; ok {
			p.Stock += it.Quantity
			p.UpdatedAt = now
			s.db.products[p.ID] = p
		}
	}
	return true, nil
}

// transition applies a PENDING -> to move; caller holds the lock.
func (s *OrderStore) transition(id string, to orders.PaymentStatus) bool {
	o, ok := s.db.orders[id]
	if !ok || !orders.CanTransition(o.PaymentStatus, to) {
		return false
	}
	o.PaymentStatus = to
	o.UpdatedAt = s.db.now()
	s.db.orders[id] = o
	return true
}
