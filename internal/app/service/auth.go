package service

import (
	"errors"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

//go:generate mockgen -source=auth.go -destination=../../mocks/auth_mock.go -package=mocks

// AuthIface defines the interface for JWT authentication used in middleware.
type AuthIface interface {
	BuildJWTString() (string, string, error)
	ParseClaims(c *http.Cookie) (*Claims, error)
	ParseRawJWT(tokenString string) (*Claims, error)
}

// Claims represents the claims that are included in the JWT token.
type Claims struct {
	jwt.RegisteredClaims
	// UserID identifies the owner of ledger records.
	UserID string `json:"user_id"`
}

// TokenExp defines the expiration time of the JWT token (1 year).
const TokenExp = time.Hour * 24 * 365

// ErrInvalidToken is returned for tokens that fail verification or carry no user.
var ErrInvalidToken = errors.New("invalid token")

// Auth issues and verifies the self-signed identity tokens. There are no
// accounts: a visitor without a token simply gets a new user id.
type Auth struct {
	secret []byte
	now    func() time.Time
}

// NewAuth creates an Auth signing with the given secret.
func NewAuth(secret string) *Auth {
	return &Auth{
		secret: []byte(secret),
		now:    time.Now,
	}
}

// BuildJWTString generates a new user id and a token carrying it.
func (a *Auth) BuildJWTString() (string, string, error) {
	userID := "user_" + uuid.New().String()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(a.now().Add(TokenExp)),
			IssuedAt:  jwt.NewNumericDate(a.now()),
		},
		UserID: userID,
	})

	tokenString, err := token.SignedString(a.secret)
	if err != nil {
		return "", "", err
	}

	return tokenString, userID, nil
}

// ParseClaims parses the JWT token stored in an HTTP cookie.
func (a *Auth) ParseClaims(c *http.Cookie) (*Claims, error) {
	return a.ParseRawJWT(c.Value)
}

// ParseRawJWT verifies a token string and returns its claims.
func (a *Auth) ParseRawJWT(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return a.secret, nil
	})
	if err != nil {
		return nil, err
	}

	if !token.Valid || claims.UserID == "" {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
