package service_test

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/require"

	"github.com/atinyakov/dogify/internal/app/service"
)

const testSecret = "test-secret"

func TestBuildJWTString(t *testing.T) {
	auth := service.NewAuth(testSecret)

	tokenStr, userID, err := auth.BuildJWTString()

	require.NoError(t, err)
	require.NotEmpty(t, tokenStr)
	require.True(t, strings.HasPrefix(userID, "user_"))

	token, err := jwt.ParseWithClaims(tokenStr, &service.Claims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(testSecret), nil
	})
	require.NoError(t, err)
	require.True(t, token.Valid)

	claims, ok := token.Claims.(*service.Claims)
	require.True(t, ok)
	require.Equal(t, userID, claims.UserID)
	require.WithinDuration(t, time.Now().Add(service.TokenExp), claims.ExpiresAt.Time, time.Minute)
}

func TestBuildJWTString_UniqueUsers(t *testing.T) {
	auth := service.NewAuth(testSecret)

	_, first, err := auth.BuildJWTString()
	require.NoError(t, err)
	_, second, err := auth.BuildJWTString()
	require.NoError(t, err)

	require.NotEqual(t, first, second)
}

func TestParseClaims(t *testing.T) {
	auth := service.NewAuth(testSecret)

	t.Run("valid token", func(t *testing.T) {
		userID := "test-user-id"
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, service.Claims{
			RegisteredClaims: jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(service.TokenExp)),
			},
			UserID: userID,
		})

		signedToken, err := token.SignedString([]byte(testSecret))
		require.NoError(t, err)

		claims, err := auth.ParseClaims(&http.Cookie{Name: "token", Value: signedToken})
		require.NoError(t, err)
		require.Equal(t, userID, claims.UserID)
	})

	t.Run("invalid token", func(t *testing.T) {
		claims, err := auth.ParseClaims(&http.Cookie{Name: "token", Value: "invalid.token.here"})
		require.Error(t, err)
		require.Nil(t, claims)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := service.NewAuth("other-secret")
		tokenStr, _, err := other.BuildJWTString()
		require.NoError(t, err)

		claims, err := auth.ParseRawJWT(tokenStr)
		require.Error(t, err)
		require.Nil(t, claims)
	})

	t.Run("expired token", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, service.Claims{
			RegisteredClaims: jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
			},
			UserID: "u1",
		})
		signedToken, err := token.SignedString([]byte(testSecret))
		require.NoError(t, err)

		_, err = auth.ParseRawJWT(signedToken)
		require.Error(t, err)
	})

	t.Run("missing user id", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, service.Claims{})
		signedToken, err := token.SignedString([]byte(testSecret))
		require.NoError(t, err)

		_, err = auth.ParseRawJWT(signedToken)
		require.ErrorIs(t, err, service.ErrInvalidToken)
	})
}
