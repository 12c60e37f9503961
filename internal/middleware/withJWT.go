// Package middleware provides the HTTP middleware of the dogify server:
// cookie based identity, request logging, compression, metrics, rate
// limiting and the trusted subnet guard.
package middleware

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/atinyakov/dogify/internal/app/service"
)

// ContextKey is a custom type used for keys in the context.
type ContextKey string

// UserIDKey is the key used to store and retrieve the owner id from the context.
const UserIDKey ContextKey = "userID"

// TokenCookie is the cookie carrying the identity token.
const TokenCookie = "token"

// issuedKey marks an owner id minted for the current request.
const issuedKey ContextKey = "issued"

// IdentityIssued reports whether WithJWT minted the owner id for this request
// instead of reading it from a valid cookie.
func IdentityIssued(ctx context.Context) bool {
	issued, _ := ctx.Value(issuedKey).(bool)
	return issued
}

// ContextWithUserID returns ctx carrying the owner id.
func ContextWithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}

// InjectUserID adds the user ID to the request context.
func InjectUserID(req *http.Request, userID string) *http.Request {
	return req.WithContext(ContextWithUserID(req.Context(), userID))
}

// UserID returns the owner id stored by WithJWT, or "" when there is none.
func UserID(ctx context.Context) string {
	userID, _ := ctx.Value(UserIDKey).(string)
	return userID
}

// WithJWT identifies the visitor by the "token" cookie. A missing, expired
// or forged token is replaced with a fresh one, so every request reaching
// the next handler carries a non-empty owner id.
func WithJWT(auth service.AuthIface, logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cookie, err := r.Cookie(TokenCookie); err == nil {
				claims, err := auth.ParseClaims(cookie)
				if err == nil {
					next.ServeHTTP(w, InjectUserID(r, claims.UserID))
					return
				}
				logger.Debug("replacing invalid token", zap.Error(err))
			}

			tokenString, userID, err := auth.BuildJWTString()
			if err != nil {
				logger.Error("failed to issue token", zap.Error(err))
				w.WriteHeader(http.StatusInternalServerError)
				return
			}

			http.SetCookie(w, &http.Cookie{
				Name:     TokenCookie,
				Value:    tokenString,
				Expires:  time.Now().Add(service.TokenExp),
				HttpOnly: true,
				Path:     "/",
			})

			r = r.WithContext(context.WithValue(r.Context(), issuedKey, true))
			next.ServeHTTP(w, InjectUserID(r, userID))
		})
	}
}
