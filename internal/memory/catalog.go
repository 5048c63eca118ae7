package memory

import (
	"context"
	"sort"
	"strings"

	"github.com/ariefcatur/go-shop-api/internal/apperr"
	"github.com/ariefcatur/go-shop-api/internal/catalog"
)

type CatalogRepo struct{ db *DB }

func (r *CatalogRepo) GetProduct(ctx context.Context, id string) (catalog.Product, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	p, ok := r.db.products[id]
	if !ok {
		return catalog.Product{}, apperr.NotFound("product %s not found", id)
	}
	return p, nil
}

func (r *CatalogRepo) ListProducts(ctx context.Context, f catalog.ProductFilter, page catalog.Page) ([]catalog.Product, int, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	search := strings.ToLower(f.Search)
	var all []catalog.Product
	for _, p := range r.db.products {
		switch {
		case f.CategoryID != "" && p.CategoryID != f.CategoryID:
		case f.BrandID != "" && p.BrandID != f.BrandID:
		case search != "" && !strings.Contains(strings.ToLower(p.Name), search):
		case f.MinPrice != nil && p.Price.LessThan(*f.MinPrice):
		case f.MaxPrice != nil && p.Price.GreaterThan(*f.MaxPrice):
		default:
			all = append(all, p)
		}
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID < all[j].ID
	})
	return paginate(all, page), len(all), nil
}

func (r *CatalogRepo) checkRefs(p catalog.Product) error {
	if p.CategoryID != "" {
		if _, ok := r.db.categories[p.CategoryID]; !ok {
			return apperr.Validation("unknown category or brand")
		}
	}
	if p.BrandID != "" {
		if _, ok := r.db.brands[p.BrandID]; !ok {
			return apperr.Validation("unknown category or brand")
		}
	}
	return nil
}

func (r *CatalogRepo) CreateProduct(ctx context.Context, p catalog.Product) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if err := r.checkRefs(p); err != nil {
		return err
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = r.db.now()
		p.UpdatedAt = p.CreatedAt
	}
	r.db.products[p.ID] = p
	return nil
}

func (r *CatalogRepo) UpdateProduct(ctx context.Context, p catalog.Product, setStock bool) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	old, ok := r.db.products[p.ID]
	if !ok {
		return apperr.NotFound("product %s not found", p.ID)
	}
	if err := r.checkRefs(p); err != nil {
		return err
	}
	if !setStock {
		p.Stock = old.Stock
	}
	p.CreatedAt = old.CreatedAt
	p.UpdatedAt = r.db.now()
	r.db.products[p.ID] = p
	return nil
}

func (r *CatalogRepo) DeleteProduct(ctx context.Context, id string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.products[id]; !ok {
		return apperr.NotFound("product %s not found", id)
	}
	for _, o := range r.db.orders {
		for _, it := range o.Items {
			if it.ProductID == id {
				return apperr.Conflict("product %s is referenced by existing orders", id)
			}
		}
	}
	for cid, it := range r.db.cartItems {
		if it.ProductID == id {
			delete(r.db.cartItems, cid)
		}
	}
	delete(r.db.products, id)
	return nil
}

func (r *CatalogRepo) DecrementStock(ctx context.Context, id string, amount int) (int, error) {
	if amount <= 0 {
		return 0, apperr.Validation("amount must be greater than zero")
	}
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	p, ok := r.db.products[id]
	if !ok {
		return 0, apperr.NotFound("product %s not found", id)
	}
	if p.Stock < amount {
		return 0, apperr.InsufficientStock(p.ID, p.Name, p.Stock, amount)
	}
	p.Stock -= amount
	p.UpdatedAt = r.db.now()
	r.db.products[id] = p
	return p.Stock, nil
}

func (r *CatalogRepo) IncrementStock(ctx context.Context, id string, amount int) error {
	if amount <= 0 {
		return apperr.Validation("amount must be greater than zero")
	}
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	p, ok := r.db.products[id]
	if !ok {
		return apperr.NotFound("product %s not found", id)
	}
	p.Stock += amount
	p.UpdatedAt = r.db.now()
	r.db.products[id] = p
	return nil
}

func (r *CatalogRepo) ListBrands(ctx context.Context) ([]catalog.Brand, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := make([]catalog.Brand, 0, len(r.db.brands))
	for _, b := range r.db.brands {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *CatalogRepo) CreateBrand(ctx context.Context, b catalog.Brand) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, x := range r.db.brands {
		if x.Name == b.Name {
			return apperr.Conflict("brand %q already exists", b.Name)
		}
	}
	r.db.brands[b.ID] = b
	return nil
}

func (r *CatalogRepo) RenameBrand(ctx context.Context, id, name string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	b, ok := r.db.brands[id]
	if !ok {
		return apperr.NotFound("brand %s not found", id)
	}
	for _, x := range r.db.brands {
		if x.ID != id && x.Name == name {
			return apperr.Conflict("brand %q already exists", name)
		}
	}
	b.Name = name
	r.db.brands[id] = b
	return nil
}

func (r *CatalogRepo) DeleteBrand(ctx context.Context, id string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.brands[id]; !ok {
		return apperr.NotFound("brand %s not found", id)
	}
	for _, p := range r.db.products {
		if p.BrandID == id {
			return apperr.Conflict("brand %s still has products", id)
		}
	}
	delete(r.db.brands, id)
	return nil
}

func (r *CatalogRepo) ListCategories(ctx context.Context) ([]catalog.Category, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := make([]catalog.Category, 0, len(r.db.categories))
	for _, c := range r.db.categories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *CatalogRepo) CreateCategory(ctx context.Context, c catalog.Category) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, x := range r.db.categories {
		if x.Name == c.Name {
			return apperr.Conflict("category %q already exists", c.Name)
		}
	}
	r.db.categories[c.ID] = c
	return nil
}

func (r *CatalogRepo) RenameCategory(ctx context.Context, id, name string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	c, ok := r.db.categories[id]
	if !ok {
		return apperr.NotFound("category %s not found", id)
	}
	for _, x := range r.db.categories {
		if x.ID != id && x.Name == name {
			return apperr.Conflict("category %q already exists", name)
		}
	}
	c.Name = name
	r.db.categories[id] = c
	return nil
}

func (r *CatalogRepo) DeleteCategory(ctx context.Context, id string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.categories[id]; !ok {
		return apperr.NotFound("category %s not found", id)
	}
	for _, p := range r.db.products {
		if p.CategoryID == id {
			return apperr.Conflict("category %s still has products", id)
		}
	}
	delete(r.db.categories, id)
	return nil
}
