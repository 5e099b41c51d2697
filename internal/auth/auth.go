package auth

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

// Claims represents the identity token claims. Subject carries the stable user id.
type Claims struct {
	UserID string `json:"user_id,omitempty"`
	Email  string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Identity returns the stable user id of the token, preferring the explicit claim over sub.
func (c *Claims) Identity() string {
	if c.UserID != "" {
		return c.UserID
	}
	return c.Subject
}

// TokenValidator verifies bearer tokens issued by the identity provider.
type TokenValidator interface {
	ValidateToken(tokenString string) (*Claims, error)
}

// TokenGenerator issues tokens; used by the dev `token` command and tests.
type TokenGenerator interface {
	GenerateAccessToken(userID string, email string) (string, error)
}

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
	ErrMissingToken = errors.New("missing token")
)
