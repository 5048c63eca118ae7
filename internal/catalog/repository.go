package catalog

import "context"

// Repository is the catalog persistence port. Implementations return apperr errors
// (NotFound, InsufficientStock, Conflict) for business outcomes.
type Repository interface {
	GetProduct(ctx context.Context, id string) (Product, error)
	ListProducts(ctx context.Context, f ProductFilter, p Page) ([]Product, int, error)
	CreateProduct(ctx context.Context, p Product) error
	// UpdateProduct writes p. Stock is only written when setStock is true, so an edit
	// of other fields never overwrites a concurrent decrement.
	UpdateProduct(ctx context.Context, p Product, setStock bool) error
	DeleteProduct(ctx context.Context, id string) error

	// DecrementStock subtracts amount only if the result stays >= 0 and returns the
	// remaining stock.
	DecrementStock(ctx context.Context, id string, amount int) (int, error)
	IncrementStock(ctx context.Context, id string, amount int) error

	ListBrands(ctx context.Context) ([]Brand, error)
	CreateBrand(ctx context.Context, b Brand) error
	RenameBrand(ctx context.Context, id, name string) error
	DeleteBrand(ctx context.Context, id string) error

	ListCategories(ctx context.Context) ([]Category, error)
	CreateCategory(ctx context.Context, c Category) error
	RenameCategory(ctx context.Context, id, name string) error
	DeleteCategory(ctx context.Context, id string) error
}
