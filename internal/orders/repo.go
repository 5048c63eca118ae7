package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/ariefcatur/go-shop-api/internal/apperr"
	"github.com/ariefcatur/go-shop-api/internal/catalog"
	"github.com/ariefcatur/go-shop-api/internal/postgres"
)

type Repo struct{ DB *pgxpool.Pool }

func (r *Repo) CreatePending(ctx context.Context, userID string, lines []Line) (Order, error) {
	lines = NormalizeLines(lines)
	if len(lines) == 0 {
		return Order{}, apperr.EmptyCart()
	}

	o := Order{
		ID:            uuid.NewString(),
		UserID:        userID,
		PaymentStatus: StatusPending,
		PaymentMethod: PaymentMethodInvoice,
	}
	err := postgres.InTx(ctx, r.DB, func(tx pgx.Tx) error {
		o.Items = make([]Item, 0, len(lines))
		for _, l := range lines {
			if l.Quantity < 1 {
				return apperr.Validation("quantity for product %s must be at least 1", l.ProductID)
			}
			it, err := decrement(ctx, tx, l)
			if err != nil {
				return err
			}
			o.Items = append(o.Items, it)
		}
		o.TotalAmount = SumItems(o.Items)

		err := tx.QueryRow(ctx, `
			INSERT INTO orders(id, user_id, total_amount, payment_status, payment_method)
			VALUES ($1, $2, $3::text::numeric, $4, $5)
			RETURNING created_at, updated_at`,
			o.ID, o.UserID, o.TotalAmount.StringFixed(2), string(o.PaymentStatus), o.PaymentMethod,
		).Scan(&o.CreatedAt, &o.UpdatedAt)
		if err != nil {
			return fmt.Errorf("insert order: %w", err)
		}

		for _, it := range o.Items {
			if _, err := tx.Exec(ctx, `
				INSERT INTO order_items(order_id, product_id, product_name, quantity, price)
				VALUES ($1, $2, $3, $4, $5::text::numeric)`,
				o.ID, it.ProductID, it.ProductName, it.Quantity, it.Price.StringFixed(2)); err != nil {
				return fmt.Errorf("insert order item: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return Order{}, err
	}
	return o, nil
}

// decrement takes l.Quantity units off the product row and snapshots name and price
// from the same row version.
func decrement(ctx context.Context, tx pgx.Tx, l Line) (Item, error) {
	it := Item{ProductID: l.ProductID, Quantity: l.Quantity}
	var price string
	err := tx.QueryRow(ctx, `
		UPDATE products SET stock = stock - $2, updated_at = NOW()
		WHERE id = $1 AND stock >= $2
		RETURNING name, price::text`, l.ProductID, l.Quantity).Scan(&it.ProductName, &price)
	if err == nil {
		it.Price, err = decimal.NewFromString(price)
		if err != nil {
			return Item{}, fmt.Errorf("parse price %q: %w", price, err)
		}
		return it, nil
	}
	if !postgres.IsNoRows(err) {
		return Item{}, fmt.Errorf("decrement stock: %w", err)
	}

	var name string
	var stock int
	err = tx.QueryRow(ctx, `SELECT name, stock FROM products WHERE id=$1`, l.ProductID).Scan(&name, &stock)
	if postgres.IsNoRows(err) {
		return Item{}, apperr.NotFound("product %s not found", l.ProductID)
	}
	if err != nil {
		return Item{}, fmt.Errorf("read stock: %w", err)
	}
	return Item{}, apperr.InsufficientStock(l.ProductID, name, stock, l.Quantity)
}

const orderColumns = `id, user_id, total_amount::text, payment_status, payment_method,
	invoice_id, invoice_url, created_at, updated_at`

func scanOrder(row pgx.Row) (Order, error) {
	var o Order
	var total, status string
	if err := row.Scan(&o.ID, &o.UserID, &total, &status, &o.PaymentMethod,
		&o.InvoiceID, &o.InvoiceURL, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return Order{}, err
	}
	d, err := decimal.NewFromString(total)
	if err != nil {
		return Order{}, fmt.Errorf("parse total %q: %w", total, err)
	}
	o.TotalAmount = d
	o.PaymentStatus = PaymentStatus(status)
	return o, nil
}

func (r *Repo) Get(ctx context.Context, id string) (Order, error) {
	o, err := scanOrder(r.DB.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id=$1`, id))
	if postgres.IsNoRows(err) {
		return Order{}, apperr.NotFound("order %s not found", id)
	}
	if err != nil {
		return Order{}, fmt.Errorf("get order: %w", err)
	}
	byID, err := r.loadItems(ctx, []string{o.ID})
	if err != nil {
		return Order{}, err
	}
	o.Items = byID[o.ID]
	return o, nil
}

func (r *Repo) ListByUser(ctx context.Context, userID string) ([]Order, error) {
	return r.list(ctx, `SELECT `+orderColumns+` FROM orders WHERE user_id=$1 ORDER BY created_at DESC, id`, userID)
}

func (r *Repo) ListAll(ctx context.Context, page catalog.Page) ([]Order, int, error) {
	page = page.Normalize()
	var total int
	if err := r.DB.QueryRow(ctx, `SELECT COUNT(*) FROM orders`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}
	out, err := r.list(ctx, `SELECT `+orderColumns+` FROM orders ORDER BY created_at DESC, id LIMIT $1 OFFSET $2`,
		page.Limit, page.Offset())
	return out, total, err
}

func (r *Repo) ListStalePending(ctx context.Context, before time.Time, limit int) ([]Order, error) {
	return r.list(ctx, `SELECT `+orderColumns+` FROM orders
		WHERE payment_status = 'PENDING' AND created_at < $1
		ORDER BY created_at LIMIT $2`, before, limit)
}

func (r *Repo) list(ctx context.Context, q string, args ...any) ([]Order, error) {
	rows, err := r.DB.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	out := []Order{}
	ids := []string{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, o)
		ids = append(ids, o.ID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return out, nil
	}

	byID, err := r.loadItems(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Items = byID[out[i].ID]
	}
	return out, nil
}

func (r *Repo) loadItems(ctx context.Context, orderIDs []string) (map[string][]Item, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT order_id, product_id, product_name, quantity, price::text
		FROM order_items WHERE order_id = ANY($1) ORDER BY order_id, product_id`, orderIDs)
	if err != nil {
		return nil, fmt.Errorf("load order items: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]Item, len(orderIDs))
	for rows.Next() {
		var orderID, price string
		var it Item
		if err := rows.Scan(&orderID, &it.ProductID, &it.ProductName, &it.Quantity, &price); err != nil {
			return nil, err
		}
		if it.Price, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("parse price %q: %w", price, err)
		}
		out[orderID] = append(out[orderID], it)
	}
	return out, rows.Err()
}

func (r *Repo) AttachInvoice(ctx context.Context, id, invoiceID, invoiceURL string) error {
	ct, err := r.DB.Exec(ctx, `
		UPDATE orders SET invoice_id=$2, invoice_url=$3, updated_at=NOW()
		WHERE id=$1 AND payment_status='PENDING'`, id, invoiceID, invoiceURL)
	if err != nil {
		return fmt.Errorf("attach invoice: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperr.Conflict("order %s is no longer pending", id)
	}
	return nil
}

func (r *Repo) MarkPaid(ctx context.Context, id string) (bool, error) {
	ct, err := r.DB.Exec(ctx, `
		UPDATE orders SET payment_status='PAID', updated_at=NOW()
		WHERE id=$1 AND payment_status='PENDING'`, id)
	if err != nil {
		return false, fmt.Errorf("mark paid: %w", err)
	}
	return ct.RowsAffected() == 1, nil
}
