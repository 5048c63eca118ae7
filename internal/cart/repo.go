package cart

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/ariefcatur/go-shop-api/internal/apperr"
	"github.com/ariefcatur/go-shop-api/internal/postgres"
)

type Repo struct{ DB *pgxpool.Pool }

const itemSelect = `
	SELECT c.id, c.user_id, c.product_id, c.quantity, c.created_at, c.updated_at,
	       p.name, p.price::text, p.image_url, p.stock
	FROM cart_items c JOIN products p ON p.id = c.product_id`

func scanItem(row pgx.Row) (Item, error) {
	var it Item
	var price string
	if err := row.Scan(&it.ID, &it.UserID, &it.ProductID, &it.Quantity, &it.CreatedAt, &it.UpdatedAt,
		&it.Product.Name, &price, &it.Product.ImageURL, &it.Product.Stock); err != nil {
		return Item{}, err
	}
	d, err := decimal.NewFromString(price)
	if err != nil {
		return Item{}, fmt.Errorf("parse price %q: %w", price, err)
	}
	it.Product.Price = d
	return it, nil
}

// lockProduct takes a share lock on the product row so the stock read stays valid
// until the cart write commits.
func lockProduct(ctx context.Context, tx pgx.Tx, productID string) (name string, stock int, err error) {
	err = tx.QueryRow(ctx, `SELECT name, stock FROM products WHERE id=$1 FOR SHARE`, productID).Scan(&name, &stock)
	if postgres.IsNoRows(err) {
		return "", 0, apperr.NotFound("product %s not found", productID)
	}
	return name, stock, err
}

func (r *Repo) AddItem(ctx context.Context, userID, productID string, quantity int) (Item, error) {
	var id string
	err := postgres.InTx(ctx, r.DB, func(tx pgx.Tx) error {
		name, stock, err := lockProduct(ctx, tx, productID)
		if err != nil {
			return err
		}

		var existing int
		err = tx.QueryRow(ctx, `SELECT id, quantity FROM cart_items WHERE user_id=$1 AND product_id=$2 FOR UPDATE`,
			userID, productID).Scan(&id, &existing)
		if err != nil && !postgres.IsNoRows(err) {
			return fmt.Errorf("load cart line: %w", err)
		}
		if existing+quantity > stock {
			return apperr.InsufficientStock(productID, name, stock, existing+quantity)
		}

		return tx.QueryRow(ctx, `
			INSERT INTO cart_items(id, user_id, product_id, quantity)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (user_id, product_id)
			DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity, updated_at = NOW()
			RETURNING id`, uuid.NewString(), userID, productID, quantity).Scan(&id)
	})
	if err != nil {
		return Item{}, err
	}
	return r.GetItem(ctx, id)
}

func (r *Repo) GetItem(ctx context.Context, id string) (Item, error) {
	it, err := scanItem(r.DB.QueryRow(ctx, itemSelect+` WHERE c.id=$1`, id))
	if postgres.IsNoRows(err) {
		return Item{}, apperr.NotFound("cart item %s not found", id)
	}
	if err != nil {
		return Item{}, fmt.Errorf("get cart item: %w", err)
	}
	return it, nil
}

func (r *Repo) SetQuantity(ctx context.Context, id string, quantity int) (Item, error) {
	err := postgres.InTx(ctx, r.DB, func(tx pgx.Tx) error {
		var productID string
		err := tx.QueryRow(ctx, `SELECT product_id FROM cart_items WHERE id=$1 FOR UPDATE`, id).Scan(&productID)
		if postgres.IsNoRows(err) {
			return apperr.NotFound("cart item %s not found", id)
		}
		if err != nil {
			return fmt.Errorf("load cart line: %w", err)
		}

		name, stock, err := lockProduct(ctx, tx, productID)
		if err != nil {
			return err
		}
		if quantity > stock {
			return apperr.InsufficientStock(productID, name, stock, quantity)
		}
		_, err = tx.Exec(ctx, `UPDATE cart_items SET quantity=$2, updated_at=NOW() WHERE id=$1`, id, quantity)
		return err
	})
	if err != nil {
		return Item{}, err
	}
	return r.GetItem(ctx, id)
}

func (r *Repo) DeleteItem(ctx context.Context, id string) error {
	ct, err := r.DB.Exec(ctx, `DELETE FROM cart_items WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete cart item: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperr.NotFound("cart item %s not found", id)
	}
	return nil
}

func (r *Repo) ListItems(ctx context.Context, userID string) ([]Item, error) {
	rows, err := r.DB.Query(ctx, itemSelect+` WHERE c.user_id=$1 ORDER BY c.created_at, c.id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list cart: %w", err)
	}
	defer rows.Close()

	out := []Item{}
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (r *Repo) Clear(ctx context.Context, userID string) error {
	if _, err := r.DB.Exec(ctx, `DELETE FROM cart_items WHERE user_id=$1`, userID); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}
