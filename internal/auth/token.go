// internal/auth/token.go
//
// Verification of identity-provider access tokens.
//
/*
Context
--------
Sign-in happens at the identity provider.  It hands the browser an HS256
JWT whose `sub` is the user id; the same token reaches us either as an
`Authorization: Bearer` header (API calls) or as the provider's access
token cookie (page navigations).  Both carriers feed one Verifier, so the
rules for "who is calling" live in exactly one place.

Notes
-----
  • Only HMAC signing methods are accepted; an `alg: none` or RSA token
    is rejected before the key is consulted.
  • Audience is optional; when configured, tokens without it fail.
  • Oxford commas, two spaces after periods.
*/
package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrNoToken means the request carried no credential at all.
	ErrNoToken = errors.New("auth: no access token")
	// ErrTokenExpired is returned for well-formed tokens past exp.
	ErrTokenExpired = errors.New("auth: token expired")
	// ErrTokenInvalid covers signature, algorithm, and claim failures.
	ErrTokenInvalid = errors.New("auth: token invalid")
)

// Claims are the access-token fields we read.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Verifier validates tokens signed with the provider's shared secret.
type Verifier struct {
	secret     []byte
	audience   string
	cookieName string
}

// NewVerifier builds a Verifier.  secret must be non-empty.
func NewVerifier(secret, audience, cookieName string) (*Verifier, error) {
	if secret == "" {
		return nil, errors.New("auth: jwt secret is required")
	}
	return &Verifier{
		secret:     []byte(secret),
		audience:   audience,
		cookieName: cookieName,
	}, nil
}

// Verify parses raw and returns the caller it names.
func (v *Verifier) Verify(raw string) (*Caller, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}),
		jwt.WithExpirationRequired(),
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return v.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if !tok.Valid || claims.Subject == "" {
		return nil, ErrTokenInvalid
	}

	return &Caller{UserID: claims.Subject, Email: claims.Email}, nil
}

// FromRequest extracts the token from the Bearer header, falling back to
// the configured cookie, and verifies it.
func (v *Verifier) FromRequest(r *http.Request) (*Caller, error) {
	raw := bearerToken(r)
	if raw == "" && v.cookieName != "" {
		if ck, err := r.Cookie(v.cookieName); err == nil {
			raw = ck.Value
		}
	}
	if raw == "" {
		return nil, ErrNoToken
	}
	return v.Verify(raw)
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) < 7 || !strings.EqualFold(h[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(h[7:])
}
