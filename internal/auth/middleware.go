// internal/auth/middleware.go
//
// Identify attaches the caller; Require turns anonymity into a 401 for
// JSON routes.  Page routes rely on the entitlement gate instead, which
// redirects to sign-in.

package auth

import (
	"errors"
	"net/http"

	"github.com/yanizio/sitesmith/internal/httpx"
	"github.com/yanizio/sitesmith/internal/logger"
)

// Resolver turns a request into a caller.  *Verifier satisfies it.
type Resolver interface {
	FromRequest(r *http.Request) (*Caller, error)
}

// Identify resolves the caller when a credential is present.  Failures
// are logged at debug and the request continues anonymously.
func Identify(res Resolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c, err := res.FromRequest(r)
			if err != nil {
				if !errors.Is(err, ErrNoToken) {
					logger.FromContext(r.Context()).Debugw("access token rejected", "err", err)
				}
				next.ServeHTTP(w, r)
				return
			}

			ctx := WithCaller(r.Context(), c)
			ctx = logger.WithContext(ctx, logger.FromContext(ctx).With("user_id", c.UserID))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Require rejects anonymous requests with 401.
func Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := CallerFrom(r.Context()); !ok {
			httpx.Error(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}
