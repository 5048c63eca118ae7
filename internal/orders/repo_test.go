package orders_test

import (
	"context"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ariefcatur/go-shop-api/internal/apperr"
	"github.com/ariefcatur/go-shop-api/internal/orders"
	"github.com/ariefcatur/go-shop-api/internal/postgres"
)

func getPool(t *testing.T) *pgxpool.Pool {
	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		t.Skip("POSTGRES_DSN not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	pool, err := postgres.Connect(ctx, dsn)
	if err != nil {
		t.Skipf("Postgres not available: %v", err)
	}
	schema, err := os.ReadFile("../../db/schema.sql")
	if err != nil {
		t.Fatalf("read schema: %v", err)
	}
	if _, err := pool.Exec(context.Background(), string(schema)); err != nil {
		t.Fatalf("apply schema: %v", err)
	}
	return pool
}

func seed(t *testing.T, pool *pgxpool.Pool, stock int) (userID, productID string) {
	ctx := context.Background()
	userID, productID = uuid.NewString(), uuid.NewString()
	if _, err := pool.Exec(ctx, `INSERT INTO users(id, name, email, password_hash) VALUES ($1, 'T', $2, 'x')`,
		userID, userID+"@example.com"); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	if _, err := pool.Exec(ctx, `INSERT INTO products(id, name, price, stock) VALUES ($1, 'Widget', 9.99, $2)`,
		productID, stock); err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return userID, productID
}

func stockOf(t *testing.T, pool *pgxpool.Pool, productID string) int {
	var n int
	if err := pool.QueryRow(context.Background(), `SELECT stock FROM products WHERE id=$1`, productID).Scan(&n); err != nil {
		t.Fatalf("read stock: %v", err)
	}
	return n
}

func TestRepo_CreatePendingNeverOversells(t *testing.T) {
	pool := getPool(t)
	defer pool.Close()
	repo := &orders.Repo{DB: pool}
	userID, productID := seed(t, pool, 3)

	var wins, short atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.CreatePending(context.Background(), userID, []orders.Line{{ProductID: productID, Quantity: 1}})
			switch {
			case err == nil:
				wins.Add(1)
			case errors.Is(err, apperr.ErrInsufficientStock):
				short.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if wins.Load() != 3 || short.Load() != 7 {
		t.Fatalf("expected 3 orders and 7 rejections, got %d/%d", wins.Load(), short.Load())
	}
	if n := stockOf(t, pool, productID); n != 0 {
		t.Errorf("expected stock 0, got %d", n)
	}
}

func TestRepo_FailAndReleaseOnce(t *testing.T) {
	pool := getPool(t)
	defer pool.Close()
	repo := &orders.Repo{DB: pool}
	ctx := context.Background()
	userID, productID := seed(t, pool, 5)

	o, err := repo.CreatePending(ctx, userID, []orders.Line{{ProductID: productID, Quantity: 2}})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if o.TotalAmount.StringFixed(2) != "19.98" || o.Items[0].ProductName != "Widget" {
		t.Errorf("unexpected snapshot %+v", o)
	}

	for i, want := range []bool{true, false} {
		got, err := repo.FailAndRelease(ctx, o.ID)
		if err != nil || got != want {
			t.Fatalf("call %d: released=%v err=%v, want %v", i, got, err, want)
		}
	}
	if n := stockOf(t, pool, productID); n != 5 {
		t.Errorf("expected stock back at 5, got %d", n)
	}

	paid, err := repo.MarkPaid(ctx, o.ID)
	if err != nil || paid {
		t.Errorf("a failed order must not become paid, paid=%v err=%v", paid, err)
	}

	got, err := repo.Get(ctx, o.ID)
	if err != nil || got.PaymentStatus != orders.StatusFailed || len(got.Items) != 1 {
		t.Errorf("unexpected order after release %+v err=%v", got, err)
	}
}
