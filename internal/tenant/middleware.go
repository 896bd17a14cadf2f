package tenant

import (
	"net"
	"net/http"
	"strings"
	"unicode/utf8"
)

const maxTenantIDLength = 128

// Middleware resolves the tenant from X-Tenant-ID, falling back to the
// client IP, and stores it in the request context. The header is trusted as
// is; deployments must have an upstream proxy set or strip it.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		info := &Info{}
		if id := strings.TrimSpace(r.Header.Get(HeaderTenantID)); id != "" {
			info.ID, info.FromHeader = truncateID(id), true
		} else {
			info.ID = "ip:" + clientIP(r)
		}
		next.ServeHTTP(w, r.WithContext(ContextWithTenant(r.Context(), info)))
	})
}

// clientIP strips the port from RemoteAddr. chi's RealIP middleware, when
// installed upstream, has already rewritten RemoteAddr from proxy headers.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// truncateID cuts id to at most maxTenantIDLength bytes without splitting a rune.
func truncateID(id string) string {
	if len(id) <= maxTenantIDLength {
		return id
	}
	cut := maxTenantIDLength
	for cut > 0 && !utf8.RuneStart(id[cut]) {
		cut--
	}
	return id[:cut]
}
