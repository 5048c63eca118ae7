package users_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/ariefcatur/go-shop-api/internal/apperr"
	"github.com/ariefcatur/go-shop-api/internal/catalog"
	"github.com/ariefcatur/go-shop-api/internal/memory"
	"github.com/ariefcatur/go-shop-api/internal/users"
)

func seed(t *testing.T, repo users.Repository, n int) []users.User {
	t.Helper()
	out := make([]users.User, 0, n)
	for i := 0; i < n; i++ {
		u := users.User{
			ID:        fmt.Sprintf("u-%02d", i),
			Name:      fmt.Sprintf("User %d", i),
			Email:     fmt.Sprintf("user%d@example.com", i),
			Role:      users.RoleCustomer,
			CreatedAt: time.Date(2026, 1, 1, 0, i, 0, 0, time.UTC),
		}
		if err := repo.Create(context.Background(), u); err != nil {
			t.Fatalf("seed: %v", err)
		}
		out = append(out, u)
	}
	return out
}

func TestParseRole(t *testing.T) {
	cases := map[string]users.Role{"admin": users.RoleAdmin, " CUSTOMER ": users.RoleCustomer}
	for in, want := range cases {
		got, err := users.ParseRole(in)
		if err != nil || got != want {
			t.Errorf("ParseRole(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := users.ParseRole("owner"); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestChangeRole_NotSelf(t *testing.T) {
	repo := memory.New().Users()
	us := seed(t, repo, 2)
	svc := users.NewService(repo)
	ctx := context.Background()

	if _, err := svc.ChangeRole(ctx, us[0].ID, us[0].ID, users.RoleAdmin); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("expected self role change to be rejected, got %v", err)
	}
	got, err := svc.ChangeRole(ctx, us[0].ID, us[1].ID, users.RoleAdmin)
	if err != nil {
		t.Fatalf("change role: %v", err)
	}
	if got.Role != users.RoleAdmin {
		t.Errorf("expected ADMIN, got %s", got.Role)
	}
	if _, err := svc.ChangeRole(ctx, us[0].ID, "missing", users.RoleAdmin); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected NotFound, got %v", err)
	}
}

func TestDelete_NotSelf(t *testing.T) {
	repo := memory.New().Users()
	us := seed(t, repo, 2)
	svc := users.NewService(repo)
	ctx := context.Background()

	if err := svc.Delete(ctx, us[0].ID, us[0].ID); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("expected self delete to be rejected, got %v", err)
	}
	if err := svc.Delete(ctx, us[0].ID, us[1].ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.Get(ctx, us[1].ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected deleted user to be gone, got %v", err)
	}
}

func TestList_Paginates(t *testing.T) {
	repo := memory.New().Users()
	seed(t, repo, 5)
	svc := users.NewService(repo)

	page, err := svc.List(context.Background(), catalog.Page{Page: 2, Limit: 2})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Total != 5 || len(page.Items) != 2 || page.Page != 2 || page.Limit != 2 {
		t.Errorf("unexpected page %+v", page)
	}
}
