package auth

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/ariefcatur/go-shop-api/internal/apperr"
	"github.com/ariefcatur/go-shop-api/internal/users"
)

type Service struct {
	Users   users.Repository
	Tokens  *Tokens
	Revoked RevocationStore
	Log     *zap.Logger
	Cost    int
}

func NewService(repo users.Repository, tokens *Tokens, revoked RevocationStore, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{Users: repo, Tokens: tokens, Revoked: revoked, Log: log, Cost: bcrypt.DefaultCost}
}

type RegisterInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type Session struct {
	Token     string     `json:"token"`
	ExpiresAt time.Time  `json:"expires_at"`
	User      users.User `json:"user"`
}

// Register creates a CUSTOMER account.
func (s *Service) Register(ctx context.Context, in RegisterInput) (users.User, error) {
	return s.create(ctx, in, users.RoleCustomer)
}

func (s *Service) create(ctx context.Context, in RegisterInput, role users.Role) (users.User, error) {
	email := users.NormalizeEmail(in.Email)
	if err := ValidateName(in.Name); err != nil {
		return users.User{}, err
	}
	if err := ValidateEmail(email); err != nil {
		return users.User{}, err
	}
	if err := ValidatePassword(in.Password); err != nil {
		return users.User{}, err
	}
	hash, err := HashPassword(in.Password, s.Cost)
	if err != nil {
		return users.User{}, err
	}
	u := users.User{
		ID:           uuid.NewString(),
		Name:         strings.TrimSpace(in.Name),
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.Users.Create(ctx, u); err != nil {
		return users.User{}, apperr.Persistence(err, "create user")
	}
	return u, nil
}

// Login never reveals whether the email exists.
func (s *Service) Login(ctx context.Context, email, password string) (Session, error) {
	u, err := s.Users.GetByEmail(ctx, users.NormalizeEmail(email))
	if apperr.KindOf(err) == apperr.KindNotFound {
		return Session{}, apperr.Unauthorized("invalid email or password")
	}
	if err != nil {
		return Session{}, apperr.Persistence(err, "load user")
	}
	ok, err := CheckPassword(u.PasswordHash, password)
	if err != nil {
		s.Log.Warn("stored password hash unreadable", zap.String("user_id", u.ID), zap.Error(err))
	}
	if !ok {
		return Session{}, apperr.Unauthorized("invalid email or password")
	}

	token, claims, err := s.Tokens.Issue(u)
	if err != nil {
		return Session{}, err
	}
	return Session{Token: token, ExpiresAt: claims.ExpiresAt.Time, User: u}, nil
}

// Authenticate parses a bearer token and rejects revoked ones.
func (s *Service) Authenticate(ctx context.Context, raw string) (Claims, error) {
	claims, err := s.Tokens.Parse(raw)
	if err != nil {
		return Claims{}, err
	}
	revoked, err := s.Revoked.IsRevoked(ctx, claims.ID)
	if err != nil {
		return Claims{}, apperr.Persistence(err, "check token revocation")
	}
	if revoked {
		return Claims{}, apperr.Unauthorized("token has been revoked")
	}
	return claims, nil
}

func (s *Service) Logout(ctx context.Context, c Claims) error {
	var exp time.Time
	if c.ExpiresAt != nil {
		exp = c.ExpiresAt.Time
	}
	return apperr.Persistence(s.Revoked.Revoke(ctx, c.ID, exp), "revoke token")
}

func (s *Service) Me(ctx context.Context, userID string) (users.User, error) {
	u, err := s.Users.GetByID(ctx, userID)
	return u, apperr.Persistence(err, "load user")
}

func (s *Service) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	u, err := s.Users.GetByID(ctx, userID)
	if err != nil {
		return apperr.Persistence(err, "load user")
	}
	ok, _ := CheckPassword(u.PasswordHash, oldPassword)
	if !ok {
		return apperr.Unauthorized("current password is incorrect")
	}
	if err := ValidatePassword(newPassword); err != nil {
		return err
	}
	if oldPassword == newPassword {
		return apperr.Validation("new password must differ from the current one")
	}
	hash, err := HashPassword(newPassword, s.Cost)
	if err != nil {
		return err
	}
	return apperr.Persistence(s.Users.UpdatePassword(ctx, userID, hash), "update password")
}

// EnsureAdmin creates the bootstrap ADMIN account, or promotes an existing account
// with that email. It reports whether anything changed.
func (s *Service) EnsureAdmin(ctx context.Context, email, password string) (bool, error) {
	if email == "" || password == "" {
		return false, nil
	}
	u, err := s.Users.GetByEmail(ctx, users.NormalizeEmail(email))
	switch {
	case err == nil && u.Role == users.RoleAdmin:
		return false, nil
	case err == nil:
		if err := s.Users.UpdateRole(ctx, u.ID, users.RoleAdmin); err != nil {
			return false, apperr.Persistence(err, "promote admin")
		}
		return true, nil
	case apperr.KindOf(err) != apperr.KindNotFound:
		return false, apperr.Persistence(err, "load admin")
	}

	if _, err := s.create(ctx, RegisterInput{Name: "Administrator", Email: email, Password: password}, users.RoleAdmin); err != nil {
		return false, err
	}
	return true, nil
}
