package catalog

import (
	"strings"
	"unicode/utf8"

	"github.com/ariefcatur/go-shop-api/internal/apperr"
	"github.com/shopspring/decimal"
)

// ProductInput is the single normalized shape for product create and update requests,
// whatever the wire encoding was. Nil fields are "not provided".
type ProductInput struct {
	Name        *string
	Description *string
	Price       *string
	Stock       *int
	ImageURL    *string
	CategoryID  *string
	BrandID     *string
}

// Apply validates the provided fields and writes them onto p. When create is true the
// required fields must all be present.
func (in ProductInput) Apply(p *Product, create bool) error {
	if create {
		switch {
		case in.Name == nil:
			return apperr.Validation("name is required")
		case in.Price == nil:
			return apperr.Validation("price is required")
		case in.Stock == nil:
			return apperr.Validation("stock is required")
		}
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if n := utf8.RuneCountInString(name); n < 1 || n > 200 {
			return apperr.Validation("name must be between 1 and 200 characters")
		}
		p.Name = name
	}
	if in.Description != nil {
		if utf8.RuneCountInString(*in.Description) > 5000 {
			return apperr.Validation("description must be at most 5000 characters")
		}
		p.Description = *in.Description
	}
	if in.Price != nil {
		price, err := ParsePrice(*in.Price)
		if err != nil {
			return err
		}
		p.Price = price
	}
	if in.Stock != nil {
		if *in.Stock < 0 {
			return apperr.Validation("stock must be zero or greater")
		}
		p.Stock = *in.Stock
	}
	if in.ImageURL != nil {
		p.ImageURL = strings.TrimSpace(*in.ImageURL)
	}
	if in.CategoryID != nil {
		p.CategoryID = strings.TrimSpace(*in.CategoryID)
	}
	if in.BrandID != nil {
		p.BrandID = strings.TrimSpace(*in.BrandID)
	}
	return nil
}

// ParsePrice accepts a non-negative decimal with at most two fractional digits.
func ParsePrice(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, apperr.Validation("price must be a decimal number")
	}
	if d.IsNegative() {
		return decimal.Zero, apperr.Validation("price must be zero or greater")
	}
	if !d.Equal(d.Truncate(2)) {
		return decimal.Zero, apperr.Validation("price must have at most 2 decimal places")
	}
	return d, nil
}

func validName(kind, name string) (string, error) {
	name = strings.TrimSpace(name)
	if n := utf8.RuneCountInString(name); n < 1 || n > 100 {
		return "", apperr.Validation("%s name must be between 1 and 100 characters", kind)
	}
	return name, nil
}
