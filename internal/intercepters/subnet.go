package intercepters

import (
	"context"
	"net"
	"slices"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"github.com/atinyakov/dogify/internal/middleware"
)

// RealIPMetadata is set by a fronting proxy to the caller's address.
const RealIPMetadata = "x-real-ip"

type realIPKey struct{}

// RealIP returns the caller address stored by SubnetIPInterceptor.
func RealIP(ctx context.Context) string {
	ip, _ := ctx.Value(realIPKey{}).(string)
	return ip
}

func callerIP(ctx context.Context) string {
	md, _ := metadata.FromIncomingContext(ctx)
	if ips := md.Get(RealIPMetadata); len(ips) > 0 && ips[0] != "" {
		return ips[0]
	}

	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		if host, _, err := net.SplitHostPort(p.Addr.String()); err == nil {
			return host
		}
	}
	return ""
}

// SubnetIPInterceptor stores the caller address in the context: the
// x-real-ip metadata when present, the peer's host otherwise.
func SubnetIPInterceptor(ctx context.Context, req interface{}, _ *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	if ip := callerIP(ctx); ip != "" {
		ctx = context.WithValue(ctx, realIPKey{}, ip)
	}
	return handler(ctx, req)
}

// WithTrustedSubnet rejects calls to methods unless the address stored by
// SubnetIPInterceptor lies in subnet. An empty subnet trusts nobody.
func WithTrustedSubnet(subnet string, methods ...string) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		if slices.Contains(methods, info.FullMethod) && !middleware.InSubnet(subnet, RealIP(ctx)) {
			return nil, status.Error(codes.PermissionDenied, "untrusted subnet")
		}
		return handler(ctx, req)
	}
}
