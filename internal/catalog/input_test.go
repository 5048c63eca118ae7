package catalog

import (
	"errors"
	"testing"

	"github.com/ariefcatur/go-shop-api/internal/apperr"
)

func ptr[T any](v T) *T { return &v }

func TestParsePrice(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"10", "10", false},
		{" 12.50 ", "12.5", false},
		{"0", "0", false},
		{"0.005", "", true},
		{"-1", "", true},
		{"abc", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := ParsePrice(tt.in)
		if tt.wantErr {
			if !errors.Is(err, apperr.ErrValidation) {
				t.Errorf("ParsePrice(%q): expected validation error, got %v", tt.in, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParsePrice(%q): unexpected error %v", tt.in, err)
			continue
		}
		if got.String() != tt.want {
			t.Errorf("ParsePrice(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestApply_CreateRequiresFields(t *testing.T) {
	var p Product
	err := ProductInput{Name: ptr("Mouse"), Price: ptr("10")}.Apply(&p, true)
	if !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected missing stock to fail, got %v", err)
	}

	err = ProductInput{Name: ptr("  Mouse "), Price: ptr("10.25"), Stock: ptr(3)}.Apply(&p, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Name != "Mouse" || p.Price.String() != "10.25" || p.Stock != 3 {
		t.Errorf("unexpected product %+v", p)
	}
}

func TestApply_PartialUpdate(t *testing.T) {
	p := Product{Name: "Mouse", Stock: 3, Description: "old"}
	if err := (ProductInput{Stock: ptr(7)}).Apply(&p, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Stock != 7 || p.Name != "Mouse" || p.Description != "old" {
		t.Errorf("partial update touched other fields: %+v", p)
	}
	if err := (ProductInput{Stock: ptr(-1)}).Apply(&p, false); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("expected negative stock to fail, got %v", err)
	}
	if err := (ProductInput{Name: ptr("   ")}).Apply(&p, false); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("expected blank name to fail, got %v", err)
	}
}

func TestPageNormalize(t *testing.T) {
	p := Page{Page: 0, Limit: 500}.Normalize()
	if p.Page != 1 || p.Limit != MaxPageSize {
		t.Errorf("unexpected page %+v", p)
	}
	if off := (Page{Page: 3, Limit: 10}).Offset(); off != 20 {
		t.Errorf("expected offset 20, got %d", off)
	}
	if d := (Page{}).Normalize(); d.Limit != DefaultPageSize {
		t.Errorf("expected default limit, got %d", d.Limit)
	}
}
