package cart

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// ProductSnapshot is the product state read alongside a cart line.
type ProductSnapshot struct {
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	ImageURL string          `json:"image_url"`
	Stock    int             `json:"stock"`
}

type Item struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	ProductID string          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	Product   ProductSnapshot `json:"product"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Subtotal is price × quantity, unrounded.
func (it Item) Subtotal() decimal.Decimal {
	return it.Product.Price.Mul(decimal.NewFromInt(int64(it.Quantity)))
}

type View struct {
	Items      []Item          `json:"items"`
	TotalPrice decimal.Decimal `json:"total_price"`
}

// Total sums every line and rounds to cents half away from zero (2.345 -> 2.35,
// -2.345 -> -2.35).
func Total(items []Item) decimal.Decimal {
	sum := decimal.Zero
	for _, it := range items {
		sum = sum.Add(it.Subtotal())
	}
	return sum.Round(2)
}

// Repository persists cart lines. AddItem and SetQuantity check stock in the same
// unit of work as the write and return apperr.InsufficientStock when it is short.
type Repository interface {
	AddItem(ctx context.Context, userID, productID string, quantity int) (Item, error)
	GetItem(ctx context.Context, id string) (Item, error)
	SetQuantity(ctx context.Context, id string, quantity int) (Item, error)
	DeleteItem(ctx context.Context, id string) error
	ListItems(ctx context.Context, userID string) ([]Item, error)
	Clear(ctx context.Context, userID string) error
}
