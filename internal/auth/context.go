// internal/auth/context.go
//
// Typed caller identity carried through request contexts.
//
// Usage
// -----
//     // Identify middleware attaches the verified caller.
//     ctx = auth.WithCaller(ctx, &auth.Caller{UserID: "u_123"})
//
//     // Downstream code retrieves it.
//     c, ok := auth.CallerFrom(ctx)
//
// Notes
// -----
// • A missing caller means "anonymous".  Nothing downstream should treat a
//   partially-populated Caller as authenticated; only Identify creates one.
// • Oxford commas, two spaces after periods.

package auth

import "context"

// Caller is the authenticated user behind a request.
type Caller struct {
	UserID string
	Email  string
}

// callerKey is unexported to avoid context-key collisions.
type callerKey struct{}

// WithCaller returns a new context carrying c.
func WithCaller(ctx context.Context, c *Caller) context.Context {
	return context.WithValue(ctx, callerKey{}, c)
}

// CallerFrom extracts the caller from ctx.  It returns (nil, false) when
// the request is anonymous.
func CallerFrom(ctx context.Context) (*Caller, bool) {
	c, ok := ctx.Value(callerKey{}).(*Caller)
	if !ok || c == nil || c.UserID == "" {
		return nil, false
	}
	return c, true
}
