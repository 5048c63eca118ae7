package cart

import (
	"testing"

	"github.com/shopspring/decimal"
)

func item(price string, qty int) Item {
	return Item{Quantity: qty, Product: ProductSnapshot{Price: decimal.RequireFromString(price)}}
}

func TestTotal(t *testing.T) {
	tests := []struct {
		name  string
		items []Item
		want  string
	}{
		{"empty", nil, "0.00"},
		{"example", []Item{item("10.00", 2), item("5.50", 1)}, "25.50"},
		{"half rounds away from zero", []Item{item("0.125", 1)}, "0.13"},
		{"below half rounds down", []Item{item("0.124", 1)}, "0.12"},
		{"sum before rounding", []Item{item("0.005", 1), item("0.005", 1)}, "0.01"},
		{"quantity multiplies", []Item{item("19.99", 3)}, "59.97"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Total(tt.items).StringFixed(2); got != tt.want {
				t.Errorf("Total = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestRoundingIsHalfAwayFromZero(t *testing.T) {
	// banker's rounding would give 2.34 and -2.34
	if got := decimal.RequireFromString("2.345").Round(2).String(); got != "2.35" {
		t.Errorf("expected 2.35, got %s", got)
	}
	if got := decimal.RequireFromString("-2.345").Round(2).String(); got != "-2.35" {
		t.Errorf("expected -2.35, got %s", got)
	}
}
