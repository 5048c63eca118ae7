package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/ariefcatur/go-shop-api/internal/apperr"
	"github.com/ariefcatur/go-shop-api/internal/postgres"
)

type Repo struct{ DB *pgxpool.Pool }

const productColumns = `id, name, description, price::text, stock, image_url,
	COALESCE(category_id, ''), COALESCE(brand_id, ''), created_at, updated_at`

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	var price string
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &price, &p.Stock, &p.ImageURL,
		&p.CategoryID, &p.BrandID, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return Product{}, err
	}
	d, err := decimal.NewFromString(price)
	if err != nil {
		return Product{}, fmt.Errorf("parse price %q: %w", price, err)
	}
	p.Price = d
	return p, nil
}

func (r *Repo) GetProduct(ctx context.Context, id string) (Product, error) {
	p, err := scanProduct(r.DB.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id=$1`, id))
	if postgres.IsNoRows(err) {
		return Product{}, apperr.NotFound("product %s not found", id)
	}
	if err != nil {
		return Product{}, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

func (r *Repo) ListProducts(ctx context.Context, f ProductFilter, page Page) ([]Product, int, error) {
	page = page.Normalize()

	var where []string
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if f.CategoryID != "" {
		where = append(where, "category_id = "+arg(f.CategoryID))
	}
	if f.BrandID != "" {
		where = append(where, "brand_id = "+arg(f.BrandID))
	}
	if f.Search != "" {
		where = append(where, "name ILIKE "+arg("%"+f.Search+"%"))
	}
	if f.MinPrice != nil {
		where = append(where, "price >= "+arg(f.MinPrice.String())+"::text::numeric")
	}
	if f.MaxPrice != nil {
		where = append(where, "price <= "+arg(f.MaxPrice.String())+"::text::numeric")
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.DB.QueryRow(ctx, `SELECT COUNT(*) FROM products`+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}

	q := `SELECT ` + productColumns + ` FROM products` + clause +
		` ORDER BY created_at DESC, id LIMIT ` + arg(page.Limit) + ` OFFSET ` + arg(page.Offset())
	rows, err := r.DB.Query(ctx, q, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	out := []Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan product: %w", err)
		}
		out = append(out, p)
	}
	return out, total, rows.Err()
}

func (r *Repo) CreateProduct(ctx context.Context, p Product) error {
	_, err := r.DB.Exec(ctx, `
		INSERT INTO products(id, name, description, price, stock, image_url, category_id, brand_id)
		VALUES ($1, $2, $3, $4::text::numeric, $5, $6, NULLIF($7, ''), NULLIF($8, ''))`,
		p.ID, p.Name, p.Description, p.Price.StringFixed(2), p.Stock, p.ImageURL, p.CategoryID, p.BrandID)
	return productWriteError(err, "create product")
}

func (r *Repo) UpdateProduct(ctx context.Context, p Product, setStock bool) error {
	var stock *int
	if setStock {
		stock = &p.Stock
	}
	ct, err := r.DB.Exec(ctx, `
		UPDATE products
		SET name=$2, description=$3, price=$4::text::numeric, stock=COALESCE($5::int, stock), image_url=$6,
		    category_id=NULLIF($7, ''), brand_id=NULLIF($8, ''), updated_at=NOW()
		WHERE id=$1`,
		p.ID, p.Name, p.Description, p.Price.StringFixed(2), stock, p.ImageURL, p.CategoryID, p.BrandID)
	if err != nil {
		return productWriteError(err, "update product")
	}
	if ct.RowsAffected() == 0 {
		return apperr.NotFound("product %s not found", p.ID)
	}
	return nil
}

func (r *Repo) DeleteProduct(ctx context.Context, id string) error {
	ct, err := r.DB.Exec(ctx, `DELETE FROM products WHERE id=$1`, id)
	if postgres.IsForeignKeyViolation(err) {
		return apperr.Conflict("product %s is referenced by existing orders", id)
	}
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperr.NotFound("product %s not found", id)
	}
	return nil
}

func (r *Repo) DecrementStock(ctx context.Context, id string, amount int) (int, error) {
	if amount <= 0 {
		return 0, apperr.Validation("amount must be greater than zero")
	}
	var remaining int
	err := r.DB.QueryRow(ctx, `
		UPDATE products SET stock = stock - $2, updated_at = NOW()
		WHERE id = $1 AND stock >= $2
		RETURNING stock`, id, amount).Scan(&remaining)
	if err == nil {
		return remaining, nil
	}
	if !postgres.IsNoRows(err) {
		return 0, fmt.Errorf("decrement stock: %w", err)
	}
	// distinguish missing product from short stock
	p, gerr := r.GetProduct(ctx, id)
	if gerr != nil {
		return 0, gerr
	}
	return 0, apperr.InsufficientStock(p.ID, p.Name, p.Stock, amount)
}

func (r *Repo) IncrementStock(ctx context.Context, id string, amount int) error {
	if amount <= 0 {
		return apperr.Validation("amount must be greater than zero")
	}
	ct, err := r.DB.Exec(ctx, `UPDATE products SET stock = stock + $2, updated_at = NOW() WHERE id = $1`, id, amount)
	if err != nil {
		return fmt.Errorf("increment stock: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperr.NotFound("product %s not found", id)
	}
	return nil
}

func (r *Repo) ListBrands(ctx context.Context) ([]Brand, error) {
	rows, err := r.DB.Query(ctx, `SELECT id, name, created_at FROM brands ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list brands: %w", err)
	}
	defer rows.Close()

	out := []Brand{}
	for rows.Next() {
		var b Brand
		if err := rows.Scan(&b.ID, &b.Name, &b.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *Repo) CreateBrand(ctx context.Context, b Brand) error {
	_, err := r.DB.Exec(ctx, `INSERT INTO brands(id, name) VALUES ($1, $2)`, b.ID, b.Name)
	if postgres.IsUniqueViolation(err) {
		return apperr.Conflict("brand %q already exists", b.Name)
	}
	return err
}

func (r *Repo) RenameBrand(ctx context.Context, id, name string) error {
	return r.rename(ctx, "brands", "brand", id, name)
}

func (r *Repo) DeleteBrand(ctx context.Context, id string) error {
	return r.delete(ctx, "brands", "brand", id)
}

func (r *Repo) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := r.DB.Query(ctx, `SELECT id, name, created_at FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	out := []Category{}
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *Repo) CreateCategory(ctx context.Context, c Category) error {
	_, err := r.DB.Exec(ctx, `INSERT INTO categories(id, name) VALUES ($1, $2)`, c.ID, c.Name)
	if postgres.IsUniqueViolation(err) {
		return apperr.Conflict("category %q already exists", c.Name)
	}
	return err
}

func (r *Repo) RenameCategory(ctx context.Context, id, name string) error {
	return r.rename(ctx, "categories", "category", id, name)
}

func (r *Repo) DeleteCategory(ctx context.Context, id string) error {
	return r.delete(ctx, "categories", "category", id)
}

// table is always one of the two constants above, never user input.
func (r *Repo) rename(ctx context.Context, table, kind, id, name string) error {
	ct, err := r.DB.Exec(ctx, `UPDATE `+table+` SET name=$2 WHERE id=$1`, id, name)
	if postgres.IsUniqueViolation(err) {
		return apperr.Conflict("%s %q already exists", kind, name)
	}
	if err != nil {
		return fmt.Errorf("rename %s: %w", kind, err)
	}
	if ct.RowsAffected() == 0 {
		return apperr.NotFound("%s %s not found", kind, id)
	}
	return nil
}

func (r *Repo) delete(ctx context.Context, table, kind, id string) error {
	ct, err := r.DB.Exec(ctx, `DELETE FROM `+table+` WHERE id=$1`, id)
	if postgres.IsForeignKeyViolation(err) {
		return apperr.Conflict("%s %s still has products", kind, id)
	}
	if err != nil {
		return fmt.Errorf("delete %s: %w", kind, err)
	}
	if ct.RowsAffected() == 0 {
		return apperr.NotFound("%s %s not found", kind, id)
	}
	return nil
}

func productWriteError(err error, op string) error {
	switch {
	case err == nil:
		return nil
	case postgres.IsForeignKeyViolation(err):
		return apperr.Validation("unknown category or brand")
	case postgres.IsCheckViolation(err):
		return apperr.Validation("price and stock must be zero or greater")
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
