package orders

import (
	"time"

	"github.com/shopspring/decimal"
)

type Order struct {
	ID            string          `json:"id"`
	UserID        string          `json:"user_id"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	PaymentStatus PaymentStatus   `json:"payment_status"`
	PaymentMethod string          `json:"payment_method"`
	InvoiceID     string          `json:"invoice_id,omitempty"`
	InvoiceURL    string          `json:"invoice_url,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	Items         []Item          `json:"items"`
}

// Item is an order line. Name and Price are copied from the product at order time.
type Item struct {
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
}

func (it Item) Subtotal() decimal.Decimal {
	return it.Price.Mul(decimal.NewFromInt(int64(it.Quantity)))
}

// Line asks for quantity units of a product.
type Line struct {
	ProductID string
	Quantity  int
}

// SumItems is the order total for items.
func SumItems(items []Item) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Subtotal())
	}
	return total.Round(2)
}

type CheckoutResult struct {
	OrderID     string          `json:"orderId"`
	InvoiceURL  string          `json:"invoiceUrl"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
}
