package cart

import (
	"context"

	"github.com/ariefcatur/go-shop-api/internal/apperr"
)

// MaxQuantity caps a single cart line.
const MaxQuantity = 1000

type Service struct {
	Repo Repository
}

func NewService(repo Repository) *Service { return &Service{Repo: repo} }

func validQuantity(q int) error {
	if q < 1 {
		return apperr.Validation("quantity must be at least 1")
	}
	if q > MaxQuantity {
		return apperr.Validation("quantity must be at most %d", MaxQuantity)
	}
	return nil
}

// AddItem creates the line or adds to an existing one for the same product.
func (s *Service) AddItem(ctx context.Context, userID, productID string, quantity int) (Item, error) {
	if err := validQuantity(quantity); err != nil {
		return Item{}, err
	}
	if productID == "" {
		return Item{}, apperr.Validation("product_id is required")
	}
	it, err := s.Repo.AddItem(ctx, userID, productID, quantity)
	if err != nil {
		return Item{}, apperr.Persistence(err, "add cart item")
	}
	return it, nil
}

func (s *Service) UpdateQuantity(ctx context.Context, userID, itemID string, quantity int) (Item, error) {
	if err := validQuantity(quantity); err != nil {
		return Item{}, err
	}
	if _, err := s.owned(ctx, userID, itemID); err != nil {
		return Item{}, err
	}
	it, err := s.Repo.SetQuantity(ctx, itemID, quantity)
	if err != nil {
		return Item{}, apperr.Persistence(err, "update cart item")
	}
	return it, nil
}

func (s *Service) RemoveItem(ctx context.Context, userID, itemID string) error {
	if _, err := s.owned(ctx, userID, itemID); err != nil {
		return err
	}
	return apperr.Persistence(s.Repo.DeleteItem(ctx, itemID), "delete cart item")
}

func (s *Service) ListItems(ctx context.Context, userID string) (View, error) {
	items, err := s.Repo.ListItems(ctx, userID)
	if err != nil {
		return View{}, apperr.Persistence(err, "list cart")
	}
	if items == nil {
		items = []Item{}
	}
	return View{Items: items, TotalPrice: Total(items)}, nil
}

func (s *Service) Clear(ctx context.Context, userID string) error {
	return apperr.Persistence(s.Repo.Clear(ctx, userID), "clear cart")
}

func (s *Service) owned(ctx context.Context, userID, itemID string) (Item, error) {
	it, err := s.Repo.GetItem(ctx, itemID)
	if err != nil {
		return Item{}, apperr.Persistence(err, "load cart item")
	}
	if it.UserID != userID {
		return Item{}, apperr.AccessDenied("cart item %s belongs to another user", itemID)
	}
	return it, nil
}
