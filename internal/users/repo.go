package users

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ariefcatur/go-shop-api/internal/apperr"
	"github.com/ariefcatur/go-shop-api/internal/catalog"
	"github.com/ariefcatur/go-shop-api/internal/postgres"
)

type Repo struct{ DB *pgxpool.Pool }

const userColumns = `id, name, email, password_hash, role, created_at`

func scanUser(row pgx.Row) (User, error) {
	var u User
	var role string
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &role, &u.CreatedAt); err != nil {
		return User{}, err
	}
	u.Role = Role(role)
	return u, nil
}

func (r *Repo) Create(ctx context.Context, u User) error {
	err := r.DB.QueryRow(ctx, `
		INSERT INTO users(id, name, email, password_hash, role)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`, u.ID, u.Name, u.Email, u.PasswordHash, string(u.Role)).Scan(&u.CreatedAt)
	if postgres.IsUniqueViolation(err) {
		return apperr.Conflict("email %s is already registered", u.Email)
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *Repo) GetByID(ctx context.Context, id string) (User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id=$1`, id)
}

func (r *Repo) GetByEmail(ctx context.Context, email string) (User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE email=$1`, NormalizeEmail(email))
}

func (r *Repo) getOne(ctx context.Context, q, arg string) (User, error) {
	u, err := scanUser(r.DB.QueryRow(ctx, q, arg))
	if postgres.IsNoRows(err) {
		return User{}, apperr.NotFound("user not found")
	}
	if err != nil {
		return User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (r *Repo) List(ctx context.Context, page catalog.Page) ([]User, int, error) {
	page = page.Normalize()
	var total int
	if err := r.DB.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}
	rows, err := r.DB.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at, id LIMIT $1 OFFSET $2`,
		page.Limit, page.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	out := []User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, u)
	}
	return out, total, rows.Err()
}

func (r *Repo) UpdateRole(ctx context.Context, id string, role Role) error {
	return r.exec(ctx, `UPDATE users SET role=$2 WHERE id=$1`, id, string(role))
}

func (r *Repo) UpdatePassword(ctx context.Context, id, hash string) error {
	return r.exec(ctx, `UPDATE users SET password_hash=$2 WHERE id=$1`, id, hash)
}

func (r *Repo) Delete(ctx context.Context, id string) error {
	err := r.exec(ctx, `DELETE FROM users WHERE id=$1`, id)
	if postgres.IsForeignKeyViolation(err) {
		return apperr.Conflict("user %s has orders and cannot be deleted", id)
	}
	return err
}

func (r *Repo) exec(ctx context.Context, q string, args ...any) error {
	ct, err := r.DB.Exec(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperr.NotFound("user not found")
	}
	return nil
}
