package customdomain

import (
	"errors"
	"strings"
	"unicode"
)

// ErrInvalidHostname is returned before any network call when the input
// cannot be a hostname.
var ErrInvalidHostname = errors.New("invalid hostname")

// NormalizeHostname trims, lowercases, and strips a leading scheme.  When a
// scheme was present, anything after the host (path, query, fragment) is
// dropped too; without one, a "/" is an error, since "example.com/shop"
// most likely means the user pasted the wrong thing.  A trailing dot is
// removed.
//
// The result must be non-empty, contain no whitespace and no "/", and
// contain at least one ".".
func NormalizeHostname(raw string) (string, error) {
	h := strings.ToLower(strings.TrimSpace(raw))

	if i := strings.Index(h, "://"); i >= 0 {
		h = h[i+3:]
		if j := strings.IndexAny(h, "/?#"); j >= 0 {
			h = h[:j]
		}
	}
	h = strings.TrimSuffix(h, ".")

	switch {
	case h == "":
		return "", ErrInvalidHostname
	case strings.IndexFunc(h, unicode.IsSpace) >= 0:
		return "", ErrInvalidHostname
	case strings.Contains(h, "/"):
		return "", ErrInvalidHostname
	case !strings.Contains(h, "."):
		return "", ErrInvalidHostname
	}
	return h, nil
}
