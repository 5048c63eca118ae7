package catalog

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ariefcatur/go-shop-api/internal/apperr"
)

type Service struct {
	Repo Repository
	Now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{Repo: repo, Now: time.Now}
}

// ProductPage is one page of ListProducts results.
type ProductPage struct {
	Items []Product `json:"items"`
	Total int       `json:"total"`
	Page  int       `json:"page"`
	Limit int       `json:"limit"`
}

func (s *Service) GetProduct(ctx context.Context, id string) (Product, error) {
	p, err := s.Repo.GetProduct(ctx, id)
	return p, apperr.Persistence(err, "load product")
}

func (s *Service) ListProducts(ctx context.Context, f ProductFilter, page Page) (ProductPage, error) {
	page = page.Normalize()
	if f.MinPrice != nil && f.MaxPrice != nil && f.MinPrice.GreaterThan(*f.MaxPrice) {
		return ProductPage{}, apperr.Validation("min_price must not exceed max_price")
	}
	items, total, err := s.Repo.ListProducts(ctx, f, page)
	if err != nil {
		return ProductPage{}, apperr.Persistence(err, "list products")
	}
	return ProductPage{Items: items, Total: total, Page: page.Page, Limit: page.Limit}, nil
}

func (s *Service) CreateProduct(ctx context.Context, in ProductInput) (Product, error) {
	var p Product
	if err := in.Apply(&p, true); err != nil {
		return Product{}, err
	}
	now := s.Now().UTC()
	p.ID = uuid.NewString()
	p.CreatedAt, p.UpdatedAt = now, now

	if err := s.Repo.CreateProduct(ctx, p); err != nil {
		return Product{}, apperr.Persistence(err, "create product")
	}
	return p, nil
}

// UpdateProduct applies only the provided fields. Setting stock here is the admin
// override; checkout and reconciliation go through Decrement/IncrementStock, and stock
// is left untouched unless the input carries it.
func (s *Service) UpdateProduct(ctx context.Context, id string, in ProductInput) (Product, error) {
	p, err := s.Repo.GetProduct(ctx, id)
	if err != nil {
		return Product{}, apperr.Persistence(err, "load product")
	}
	if err := in.Apply(&p, false); err != nil {
		return Product{}, err
	}
	p.UpdatedAt = s.Now().UTC()
	if err := s.Repo.UpdateProduct(ctx, p, in.Stock != nil); err != nil {
		return Product{}, apperr.Persistence(err, "update product")
	}
	return s.GetProduct(ctx, id)
}

func (s *Service) DeleteProduct(ctx context.Context, id string) error {
	return apperr.Persistence(s.Repo.DeleteProduct(ctx, id), "delete product")
}

func (s *Service) DecrementStock(ctx context.Context, id string, amount int) (int, error) {
	left, err := s.Repo.DecrementStock(ctx, id, amount)
	return left, apperr.Persistence(err, "decrement stock")
}

func (s *Service) IncrementStock(ctx context.Context, id string, amount int) error {
	return apperr.Persistence(s.Repo.IncrementStock(ctx, id, amount), "increment stock")
}

func (s *Service) ListBrands(ctx context.Context) ([]Brand, error) {
	bs, err := s.Repo.ListBrands(ctx)
	return bs, apperr.Persistence(err, "list brands")
}

func (s *Service) CreateBrand(ctx context.Context, name string) (Brand, error) {
	name, err := validName("brand", name)
	if err != nil {
		return Brand{}, err
	}
	b := Brand{ID: uuid.NewString(), Name: name, CreatedAt: s.Now().UTC()}
	if err := s.Repo.CreateBrand(ctx, b); err != nil {
		return Brand{}, apperr.Persistence(err, "create brand")
	}
	return b, nil
}

func (s *Service) RenameBrand(ctx context.Context, id, name string) error {
	name, err := validName("brand", name)
	if err != nil {
		return err
	}
	return apperr.Persistence(s.Repo.RenameBrand(ctx, id, name), "rename brand")
}

func (s *Service) DeleteBrand(ctx context.Context, id string) error {
	return apperr.Persistence(s.Repo.DeleteBrand(ctx, id), "delete brand")
}

func (s *Service) ListCategories(ctx context.Context) ([]Category, error) {
	cs, err := s.Repo.ListCategories(ctx)
	return cs, apperr.Persistence(err, "list categories")
}

func (s *Service) CreateCategory(ctx context.Context, name string) (Category, error) {
	name, err := validName("category", name)
	if err != nil {
		return Category{}, err
	}
	c := Category{ID: uuid.NewString(), Name: name, CreatedAt: s.Now().UTC()}
	if err := s.Repo.CreateCategory(ctx, c); err != nil {
		return Category{}, apperr.Persistence(err, "create category")
	}
	return c, nil
}

func (s *Service) RenameCategory(ctx context.Context, id, name string) error {
	name, err := validName("category", name)
	if err != nil {
		return err
	}
	return apperr.Persistence(s.Repo.RenameCategory(ctx, id, name), "rename category")
}

func (s *Service) DeleteCategory(ctx context.Context, id string) error {
	return apperr.Persistence(s.Repo.DeleteCategory(ctx, id), "delete category")
}
