package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/ariefcatur/go-shop-api/internal/apperr"
	"github.com/ariefcatur/go-shop-api/internal/cart"
)

type CartRepo struct{ db *DB }

// withSnapshot fills the product snapshot; caller holds the lock.
func (r *CartRepo) withSnapshot(it cart.Item) cart.Item {
	p := r.db.products[it.ProductID]
	it.Product = cart.ProductSnapshot{Name: p.Name, Price: p.Price, ImageURL: p.ImageURL, Stock: p.Stock}
	return it
}

func (r *CartRepo) AddItem(ctx context.Context, userID, productID string, quantity int) (cart.Item, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	p, ok := r.db.products[productID]
	if !ok {
		return cart.Item{}, apperr.NotFound("product %s not found", productID)
	}
	var existing *cart.Item
	for id := range r.db.cartItems {
		it := r.db.cartItems[id]
		if it.UserID == userID && it.ProductID == productID {
			existing = &it
			break
		}
	}

	now := r.db.now()
	if existing == nil {
		if quantity > p.Stock {
			return cart.Item{}, apperr.InsufficientStock(p.ID, p.Name, p.Stock, quantity)
		}
		it := cart.Item{
			ID:        uuid.NewString(),
			UserID:    userID,
			ProductID: productID,
			Quantity:  quantity,
			CreatedAt: now,
			UpdatedAt: now,
		}
		r.db.cartItems[it.ID] = it
		return r.withSnapshot(it), nil
	}

	if existing.Quantity+quantity > p.Stock {
		return cart.Item{}, apperr.InsufficientStock(p.ID, p.Name, p.Stock, existing.Quantity+quantity)
	}
	existing.Quantity += quantity
	existing.UpdatedAt = now
	r.db.cartItems[existing.ID] = *existing
	return r.withSnapshot(*existing), nil
}

func (r *CartRepo) GetItem(ctx context.Context, id string) (cart.Item, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	it, ok := r.db.cartItems[id]
	if !ok {
		return cart.Item{}, apperr.NotFound("cart item %s not found", id)
	}
	return r.withSnapshot(it), nil
}

func (r *CartRepo) SetQuantity(ctx context.Context, id string, quantity int) (cart.Item, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	it, ok := r.db.cartItems[id]
	if !ok {
		return cart.Item{}, apperr.NotFound("cart item %s not found", id)
	}
	p, ok := r.db.products[it.ProductID]
	if !ok {
		return cart.Item{}, apperr.NotFound("product %s not found", it.ProductID)
	}
	if quantity > p.Stock {
		return cart.Item{}, apperr.InsufficientStock(p.ID, p.Name, p.Stock, quantity)
	}
	it.Quantity = quantity
	it.UpdatedAt = r.db.now()
	r.db.cartItems[id] = it
	return r.withSnapshot(it), nil
}

func (r *CartRepo) DeleteItem(ctx context.Context, id string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.cartItems[id]; !ok {
		return apperr.NotFound("cart item %s not found", id)
	}
	delete(r.db.cartItems, id)
	return nil
}

func (r *CartRepo) ListItems(ctx context.Context, userID string) ([]cart.Item, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := []cart.Item{}
	for _, it := range r.db.cartItems {
		if it.UserID == userID {
			out = append(out, r.withSnapshot(it))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *CartRepo) Clear(ctx context.Context, userID string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for id, it := range r.db.cartItems {
		if it.UserID == userID {
			delete(r.db.cartItems, id)
		}
	}
	return nil
}
