// internal/middleware/security.go
//
// Security-header middleware for the application's own pages and API.
//
// Injects:
//
//   • Strict-Transport-Security  –  only on HTTPS requests
//   • Content-Security-Policy   –  self-only, inline styles allowed for the
//                                   builder preview
//   • X-Frame-Options           –  click-jacking defence
//   • X-Content-Type-Options    –  MIME-sniffing defence
//   • Referrer-Policy           –  drops path/query from Referer
//   • Permissions-Policy        –  disables powerful features by default
//
// Notes
// -----
// • Headers are set before next.ServeHTTP; a handler may still override any
//   of them.
// • Published sites are served without these headers; their HTML is the
//   customer's.
// • Oxford commas, two spaces after periods.

package middleware

import (
	"net/http"
	"strings"
)

// Security sets security headers for every response.
func Security(next http.Handler) http.Handler {
	const (
		hsts = "max-age=63072000; includeSubDomains"
		csp  = "default-src 'self'; img-src 'self' data: https:; " +
			"style-src 'self' 'unsafe-inline'; frame-src 'self'; object-src 'none'; " +
			"base-uri 'self'; frame-ancestors 'self'; form-action 'self' https://checkout.stripe.com"
		xfo   = "SAMEORIGIN"
		nosn  = "nosniff"
		refer = "strict-origin-when-cross-origin"
		perm  = "geolocation=(), microphone=(), camera=()"
	)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		if isHTTPS(r) {
			h.Set("Strict-Transport-Security", hsts)
		}
		h.Set("Content-Security-Policy", csp)
		h.Set("X-Frame-Options", xfo)
		h.Set("X-Content-Type-Options", nosn)
		h.Set("Referrer-Policy", refer)
		h.Set("Permissions-Policy", perm)
		next.ServeHTTP(w, r)
	})
}

// SecurityExcept is Security for every path outside the given prefixes.
// Published sites under /s/ pass through bare.
func SecurityExcept(prefixes ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		secured := Security(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, p := range prefixes {
				if strings.HasPrefix(r.URL.Path, p) {
					next.ServeHTTP(w, r)
					return
				}
			}
			secured.ServeHTTP(w, r)
		})
	}
}
