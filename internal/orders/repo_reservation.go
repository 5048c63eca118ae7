package orders

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/ariefcatur/go-shop-api/internal/postgres"
)

// FailAndRelease flips a PENDING order to FAILED and puts its items back on the
// shelf. The status guard makes a second call a no-op, so stock is returned once.
func (r *Repo) FailAndRelease(ctx context.Context, id string) (bool, error) {
	released := false
	err := postgres.InTx(ctx, r.DB, func(tx pgx.Tx) error {
		ct, err := tx.Exec(ctx, `
			UPDATE orders SET payment_status='FAILED', updated_at=NOW()
			WHERE id=$1 AND payment_status='PENDING'`, id)
		if err != nil {
			return fmt.Errorf("fail order: %w", err)
		}
		if ct.RowsAffected() == 0 {
			return nil
		}

		rows, err := tx.Query(ctx, `SELECT product_id, quantity FROM order_items WHERE order_id=$1 ORDER BY product_id`, id)
		if err != nil {
			return fmt.Errorf("load order items: %w", err)
		}
		var lines []Line
		for rows.Next() {
			var l Line
			if err := rows.Scan(&l.ProductID, &l.Quantity); err != nil {
				rows.Close()
				return err
			}
			lines = append(lines, l)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		for _, l := range lines {
			if _, err := tx.Exec(ctx, `UPDATE products SET stock = stock + $2, updated_at = NOW() WHERE id=$1`,
				l.ProductID, l.Quantity); err != nil {
				return fmt.Errorf("release stock: %w", err)
			}
		}
		released = true
		return nil
	})
	return released, err
}
