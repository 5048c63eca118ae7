package catalog_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/ariefcatur/go-shop-api/internal/apperr"
	"github.com/ariefcatur/go-shop-api/internal/catalog"
	"github.com/ariefcatur/go-shop-api/internal/memory"
)

func ptr[T any](v T) *T { return &v }

func newService() *catalog.Service {
	return catalog.NewService(memory.New().Catalog())
}

func TestCreateAndGetProduct(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	p, err := svc.CreateProduct(ctx, catalog.ProductInput{Name: ptr("Keyboard"), Price: ptr("45.00"), Stock: ptr(5)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.ID == "" {
		t.Fatal("expected an id")
	}

	got, err := svc.GetProduct(ctx, p.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Name != "Keyboard" || !got.Price.Equal(decimal.NewFromInt(45)) || got.Stock != 5 {
		t.Errorf("unexpected product %+v", got)
	}

	if _, err := svc.GetProduct(ctx, "missing"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected NotFound, got %v", err)
	}
}

func TestCreateProduct_UnknownBrand(t *testing.T) {
	svc := newService()
	_, err := svc.CreateProduct(context.Background(), catalog.ProductInput{
		Name: ptr("Mouse"), Price: ptr("1"), Stock: ptr(1), BrandID: ptr("nope"),
	})
	if !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestListProducts_FilterAndPage(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	b, err := svc.CreateBrand(ctx, "Acme")
	if err != nil {
		t.Fatalf("create brand: %v", err)
	}
	for _, in := range []struct{ name, price, brand string }{
		{"Red Mouse", "5.00", b.ID},
		{"Blue Mouse", "15.00", b.ID},
		{"Monitor", "150.00", ""},
	} {
		input := catalog.ProductInput{Name: ptr(in.name), Price: ptr(in.price), Stock: ptr(1)}
		if in.brand != "" {
			input.BrandID = ptr(in.brand)
		}
		if _, err := svc.CreateProduct(ctx, input); err != nil {
			t.Fatalf("create %s: %v", in.name, err)
		}
	}

	page, err := svc.ListProducts(ctx, catalog.ProductFilter{Search: "mouse"}, catalog.Page{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if page.Total != 2 || len(page.Items) != 2 {
		t.Errorf("expected 2 mice, got total=%d items=%d", page.Total, len(page.Items))
	}

	lo := decimal.NewFromInt(10)
	page, _ = svc.ListProducts(ctx, catalog.ProductFilter{BrandID: b.ID, MinPrice: &lo}, catalog.Page{})
	if page.Total != 1 || page.Items[0].Name != "Blue Mouse" {
		t.Errorf("expected only Blue Mouse, got %+v", page.Items)
	}

	page, _ = svc.ListProducts(ctx, catalog.ProductFilter{}, catalog.Page{Page: 2, Limit: 2})
	if page.Total != 3 || len(page.Items) != 1 || page.Page != 2 {
		t.Errorf("unexpected second page: total=%d items=%d", page.Total, len(page.Items))
	}

	hi := decimal.NewFromInt(1)
	if _, err := svc.ListProducts(ctx, catalog.ProductFilter{MinPrice: &lo, MaxPrice: &hi}, catalog.Page{}); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("expected validation error for inverted price range, got %v", err)
	}
}

func TestUpdateProduct_Partial(t *testing.T) {
	svc := newService()
	ctx := context.Background()
	p, _ := svc.CreateProduct(ctx, catalog.ProductInput{Name: ptr("Lamp"), Price: ptr("20"), Stock: ptr(2)})

	up, err := svc.UpdateProduct(ctx, p.ID, catalog.ProductInput{Price: ptr("18.99")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if up.Name != "Lamp" || up.Price.String() != "18.99" || up.Stock != 2 {
		t.Errorf("unexpected update result %+v", up)
	}

	if _, err := svc.UpdateProduct(ctx, "missing", catalog.ProductInput{}); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected NotFound, got %v", err)
	}
}

func TestStockCounters(t *testing.T) {
	svc := newService()
	ctx := context.Background()
	p, _ := svc.CreateProduct(ctx, catalog.ProductInput{Name: ptr("Cable"), Price: ptr("2"), Stock: ptr(3)})

	left, err := svc.DecrementStock(ctx, p.ID, 2)
	if err != nil || left != 1 {
		t.Fatalf("expected 1 left, got %d err=%v", left, err)
	}

	_, err = svc.DecrementStock(ctx, p.ID, 2)
	ae, ok := apperr.As(err)
	if !ok || ae.Kind != apperr.KindInsufficientStock || ae.Available != 1 || ae.Requested != 2 {
		t.Fatalf("expected InsufficientStock(available=1), got %v", err)
	}

	if err := svc.IncrementStock(ctx, p.ID, 4); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, _ := svc.GetProduct(ctx, p.ID)
	if got.Stock != 5 {
		t.Errorf("expected stock 5, got %d", got.Stock)
	}
}

func TestBrandsAndCategories(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	if _, err := svc.CreateBrand(ctx, "  "); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("expected blank brand to fail, got %v", err)
	}
	b, err := svc.CreateBrand(ctx, "Acme")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.CreateBrand(ctx, "Acme"); !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("expected duplicate brand conflict, got %v", err)
	}

	c, _ := svc.CreateCategory(ctx, "Peripherals")
	if err := svc.RenameCategory(ctx, c.ID, "Accessories"); err != nil {
		t.Fatalf("rename: %v", err)
	}
	cats, _ := svc.ListCategories(ctx)
	if len(cats) != 1 || cats[0].Name != "Accessories" {
		t.Errorf("unexpected categories %+v", cats)
	}

	if _, err := svc.CreateProduct(ctx, catalog.ProductInput{
		Name: ptr("Mouse"), Price: ptr("1"), Stock: ptr(1), BrandID: ptr(b.ID), CategoryID: ptr(c.ID),
	}); err != nil {
		t.Fatalf("create product: %v", err)
	}
	if err := svc.DeleteBrand(ctx, b.ID); !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("expected conflict deleting brand in use, got %v", err)
	}
	if err := svc.DeleteCategory(ctx, "missing"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected NotFound, got %v", err)
	}
}

// sellOnRead lets a checkout decrement land between the service's read and its write.
type sellOnRead struct {
	*memory.CatalogRepo
	once bool
}

func (r *sellOnRead) GetProduct(ctx context.Context, id string) (catalog.Product, error) {
	p, err := r.CatalogRepo.GetProduct(ctx, id)
	if err == nil && !r.once {
		r.once = true
		if _, err := r.CatalogRepo.DecrementStock(ctx, id, 1); err != nil {
			return p, err
		}
	}
	return p, err
}

func TestUpdateProduct_KeepsConcurrentDecrement(t *testing.T) {
	repo := memory.New().Catalog()
	ctx := context.Background()
	p, err := catalog.NewService(repo).CreateProduct(ctx, catalog.ProductInput{Name: ptr("Mug"), Price: ptr("10"), Stock: ptr(5)})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	svc := catalog.NewService(&sellOnRead{CatalogRepo: repo})
	up, err := svc.UpdateProduct(ctx, p.ID, catalog.ProductInput{Price: ptr("9.99")})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if up.Stock != 4 || up.Price.String() != "9.99" {
		t.Errorf("expected price change with the sold unit kept, got %+v", up)
	}
	if got, _ := repo.GetProduct(ctx, p.ID); got.Stock != 4 {
		t.Errorf("expected stored stock 4, got %d", got.Stock)
	}

	up, err = svc.UpdateProduct(ctx, p.ID, catalog.ProductInput{Stock: ptr(10)})
	if err != nil {
		t.Fatalf("update stock: %v", err)
	}
	if up.Stock != 10 {
		t.Errorf("explicit stock must still be written, got %d", up.Stock)
	}
}
