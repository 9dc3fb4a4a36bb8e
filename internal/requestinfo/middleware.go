// internal/requestinfo/middleware.go
//
// HTTP middleware that enriches each request with *RequestInfo.
//
/*
Context
--------
This handler sits right after chi's RealIP and before the access log, so
the log line and every handler see the same parsed values.  For every
request it:

  1. Parses the User-Agent header and Accept-Language list.
  2. Takes the client IP from r.RemoteAddr, which RealIP has already
     rewritten from X-Forwarded-For or X-Real-IP.
  3. Performs a GeoLite2 lookup when a database is configured.
  4. Stores a `*RequestInfo` value on the request context.

Notes
-----
  • All look-ups are read-only, so the middleware is safe under heavy
    concurrency.
  • Oxford commas, two spaces after periods.  No em dash.
*/
package requestinfo

import (
	"net"
	"net/http"
	"time"

	"github.com/yanizio/sitesmith/internal/ua"
)

/*──────────────────────────── middleware ───────────────────────────────────*/

// Enrich returns middleware bound to geo, which may be nil.
func Enrich(geo *GeoDB) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			info := &RequestInfo{
				UA:        ua.Parse(r.UserAgent(), r.Header.Get("Accept-Language")),
				Geo:       geo.Lookup(clientIP(r)),
				Timestamp: time.Now().UTC(),
			}
			next.ServeHTTP(w, r.WithContext(WithInfo(r.Context(), info)))
		})
	}
}

/*──────────────────────────── client IP helper ─────────────────────────────*/

// clientIP parses r.RemoteAddr, with or without a port.
func clientIP(r *http.Request) net.IP {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return net.ParseIP(host)
	}
	return net.ParseIP(r.RemoteAddr)
}
