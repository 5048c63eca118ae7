package users

import (
	"context"

	"github.com/ariefcatur/go-shop-api/internal/apperr"
	"github.com/ariefcatur/go-shop-api/internal/catalog"
)

// Service holds the admin-side user operations.
type Service struct {
	Repo Repository
}

func NewService(repo Repository) *Service { return &Service{Repo: repo} }

type UserPage struct {
	Items []User `json:"items"`
	Total int    `json:"total"`
	Page  int    `json:"page"`
	Limit int    `json:"limit"`
}

func (s *Service) List(ctx context.Context, page catalog.Page) (UserPage, error) {
	page = page.Normalize()
	items, total, err := s.Repo.List(ctx, page)
	if err != nil {
		return UserPage{}, apperr.Persistence(err, "list users")
	}
	return UserPage{Items: items, Total: total, Page: page.Page, Limit: page.Limit}, nil
}

func (s *Service) Get(ctx context.Context, id string) (User, error) {
	u, err := s.Repo.GetByID(ctx, id)
	return u, apperr.Persistence(err, "load user")
}

// ChangeRole sets the role of id. Admins cannot change their own role.
func (s *Service) ChangeRole(ctx context.Context, actorID, id string, role Role) (User, error) {
	if actorID == id {
		return User{}, apperr.Validation("you cannot change your own role")
	}
	if err := s.Repo.UpdateRole(ctx, id, role); err != nil {
		return User{}, apperr.Persistence(err, "update role")
	}
	return s.Get(ctx, id)
}

func (s *Service) Delete(ctx context.Context, actorID, id string) error {
	if actorID == id {
		return apperr.Validation("you cannot delete your own account")
	}
	return apperr.Persistence(s.Repo.Delete(ctx, id), "delete user")
}
