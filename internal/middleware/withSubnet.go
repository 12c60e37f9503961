package middleware

import (
	"net"
	"net/http"
)

// RealIPHeader carries the client address set by the fronting proxy.
const RealIPHeader = "X-Real-IP"

// InSubnet reports whether ip belongs to the CIDR subnet. An empty or
// malformed subnet trusts nobody.
func InSubnet(subnet, ip string) bool {
	if subnet == "" {
		return false
	}

	_, network, err := net.ParseCIDR(subnet)
	if err != nil {
		return false
	}

	addr := net.ParseIP(ip)
	return addr != nil && network.Contains(addr)
}

// WithSubnet only lets through requests whose X-Real-IP lies in the trusted subnet.
func WithSubnet(subnet string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !InSubnet(subnet, r.Header.Get(RealIPHeader)) {
				w.WriteHeader(http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
