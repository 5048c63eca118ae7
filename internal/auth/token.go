package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/ariefcatur/go-shop-api/internal/apperr"
	"github.com/ariefcatur/go-shop-api/internal/users"
)

type Claims struct {
	Role  users.Role `json:"role"`
	Email string     `json:"email"`
	jwt.RegisteredClaims
}

// UserID is the subject of the token.
func (c Claims) UserID() string { return c.Subject }

func (c Claims) IsAdmin() bool { return c.Role == users.RoleAdmin }

// Tokens issues and verifies HS256 bearer tokens.
type Tokens struct {
	Secret []byte
	TTL    time.Duration
	Issuer string
	Now    func() time.Time
}

func NewTokens(secret []byte, ttl time.Duration, issuer string) *Tokens {
	return &Tokens{Secret: secret, TTL: ttl, Issuer: issuer, Now: time.Now}
}

func (t *Tokens) Issue(u users.User) (string, Claims, error) {
	if len(t.Secret) == 0 {
		return "", Claims{}, errors.New("jwt secret is not configured")
	}
	now := t.Now()
	claims := Claims{
		Role:  u.Role,
		Email: u.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   u.ID,
			Issuer:    t.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.TTL)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.Secret)
	if err != nil {
		return "", Claims{}, err
	}
	return signed, claims, nil
}

// Parse verifies signature, algorithm and expiry. It does not consult revocations.
func (t *Tokens) Parse(raw string) (Claims, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(raw, &claims, func(tok *jwt.Token) (any, error) {
		return t.Secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(t.Now),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return Claims{}, apperr.Unauthorized("invalid or expired token")
	}
	if claims.ID == "" || claims.Subject == "" {
		return Claims{}, apperr.Unauthorized("token is missing required claims")
	}
	return claims, nil
}
