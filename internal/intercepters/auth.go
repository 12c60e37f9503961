package intercepters

import (
	"context"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/atinyakov/dogify/internal/app/service"
	"github.com/atinyakov/dogify/internal/middleware"
)

const (
	// AuthorizationMetadata carries "Bearer <token>".
	AuthorizationMetadata = "authorization"

	// NewTokenTrailer carries the token issued to a caller that sent none.
	NewTokenTrailer = "new-token"
)

// bearerToken returns the token from the authorization metadata. The
// "Bearer" scheme is optional and case-insensitive.
func bearerToken(ctx context.Context) (string, bool) {
	md, _ := metadata.FromIncomingContext(ctx)
	values := md.Get(AuthorizationMetadata)
	if len(values) == 0 || strings.TrimSpace(values[0]) == "" {
		return "", false
	}

	raw := strings.TrimSpace(values[0])
	if scheme, token, ok := strings.Cut(raw, " "); ok && strings.EqualFold(scheme, "bearer") {
		return strings.TrimSpace(token), true
	}
	return raw, true
}

// WithJWT puts the caller's owner id into the context. Callers without a
// token get a new identity, returned in the new-token trailer. A token that
// does not verify is rejected, so a typo never silently hides a user's images.
func WithJWT(auth service.AuthIface) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, _ *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		token, ok := bearerToken(ctx)
		if !ok {
			issued, owner, err := auth.BuildJWTString()
			if err != nil {
				return nil, status.Error(codes.Internal, "cannot issue identity token")
			}
			// fails only outside a real server stream, e.g. in direct calls
			_ = grpc.SetTrailer(ctx, metadata.Pairs(NewTokenTrailer, issued))

			return handler(middleware.ContextWithUserID(ctx, owner), req)
		}

		claims, err := auth.ParseRawJWT(token)
		if err != nil {
			return nil, status.Errorf(codes.Unauthenticated, "invalid token: %v", err)
		}

		return handler(middleware.ContextWithUserID(ctx, claims.UserID), req)
	}
}
