package memory

import (
	"context"
	"sort"

	"github.com/ariefcatur/go-shop-api/internal/apperr"
	"github.com/ariefcatur/go-shop-api/internal/catalog"
	"github.com/ariefcatur/go-shop-api/internal/users"
)

type UserRepo struct{ db *DB }

func (r *UserRepo) Create(ctx context.Context, u users.User) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, x := range r.db.users {
		if x.Email == u.Email {
			return apperr.Conflict("email %s is already registered", u.Email)
		}
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = r.db.now()
	}
	r.db.users[u.ID] = u
	return nil
}

func (r *UserRepo) GetByID(ctx context.Context, id string) (users.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	u, ok := r.db.users[id]
	if !ok {
		return users.User{}, apperr.NotFound("user not found")
	}
	return u, nil
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (users.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	email = users.NormalizeEmail(email)
	for _, u := range r.db.users {
		if u.Email == email {
			return u, nil
		}
	}
	return users.User{}, apperr.NotFound("user not found")
}

func (r *UserRepo) List(ctx context.Context, page catalog.Page) ([]users.User, int, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	all := make([]users.User, 0, len(r.db.users))
	for _, u := range r.db.users {
		all = append(all, u)
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.Before(all[j].CreatedAt)
		}
		return all[i].ID < all[j].ID
	})
	return paginate(all, page), len(all), nil
}

func (r *UserRepo) UpdateRole(ctx context.Context, id string, role users.Role) error {
	return r.update(id, func(u *users.User) { u.Role = role })
}

func (r *UserRepo) UpdatePassword(ctx context.Context, id, hash string) error {
	return r.update(id, func(u *users.User) { u.PasswordHash = hash })
}

func (r *UserRepo) update(id string, fn func(*users.User)) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	u, ok := r.db.users[id]
	if !ok {
		return apperr.NotFound("user not found")
	}
	fn(&u)
	r.db.users[id] = u
	return nil
}

func (r *UserRepo) Delete(ctx context.Context, id string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.users[id]; !ok {
		return apperr.NotFound("user not found")
	}
	for _, o := range r.db.orders {
		if o.UserID == id {
			return apperr.Conflict("user %s has orders and cannot be deleted", id)
		}
	}
	for cid, it := range r.db.cartItems {
		if it.UserID == id {
			delete(r.db.cartItems, cid)
		}
	}
	delete(r.db.users, id)
	return nil
}
