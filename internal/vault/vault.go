// internal/vault/vault.go
//
// KV-v2 secret lookups for config references.
//
// Context
// -------
// Config values may be written as `vault:<mount>/<path>#<key>`.  The
// loader hands each one to Resolve.  Several keys usually live in the
// same secret (the Stripe API key and webhook secret, for instance), so
// a secret is fetched once and its fields are served from memory for
// the rest of the boot.  Nothing is renewed; secrets change on restart.
//
// Environment
// -----------
//   - VAULT_ADDR   – scheme and host of the Vault server.
//   - VAULT_TOKEN  – token (the SDK falls back to ~/.vault-token).
//
// Oxford commas, two spaces after periods.
package vault

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	vault "github.com/hashicorp/vault/api"
	"go.uber.org/zap"
)

// Prefix marks a config string as a Vault reference.
const Prefix = "vault:"

// ErrMalformedRef is returned for references missing a path or key.
var ErrMalformedRef = errors.New("malformed vault reference")

// Ref points at one field of a KV-v2 secret.
type Ref struct {
	Mount string // "secret"
	Path  string // "sitesmith/stripe"
	Key   string // "secret_key"
}

func (r Ref) String() string { return Prefix + r.Mount + "/" + r.Path + "#" + r.Key }

// IsRef reports whether s should be resolved through Vault.
func IsRef(s string) bool { return strings.HasPrefix(s, Prefix) }

// ParseRef splits `vault:<mount>/<path>#<key>`.
func ParseRef(s string) (Ref, error) {
	body, ok := strings.CutPrefix(s, Prefix)
	if !ok {
		return Ref{}, fmt.Errorf("%w: %q lacks %q", ErrMalformedRef, s, Prefix)
	}
	full, key, _ := strings.Cut(body, "#")
	mount, path := splitMount(full)
	if mount == "" || path == "" || key == "" {
		return Ref{}, fmt.Errorf("%w: %q", ErrMalformedRef, s)
	}
	return Ref{Mount: mount, Path: path, Key: key}, nil
}

// Client reads secrets and memoises them per secret path.  Safe for
// concurrent use.
type Client struct {
	api *vault.Client
	log *zap.SugaredLogger

	mu   sync.Mutex
	seen map[string]map[string]any
}

// New builds a client from the standard VAULT_* environment.
func New(log *zap.SugaredLogger) (*Client, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	cfg := vault.DefaultConfig()
	if err := cfg.ReadEnvironment(); err != nil {
		return nil, fmt.Errorf("vault env: %w", err)
	}
	api, err := vault.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("vault client: %w", err)
	}
	log.Debugw("vault client ready", "addr", cfg.Address)
	return &Client{api: api, log: log, seen: map[string]map[string]any{}}, nil
}

// Resolve returns the string at ref.
func (c *Client) Resolve(ctx context.Context, ref Ref) (string, error) {
	data, err := c.secret(ctx, ref.Mount, ref.Path)
	if err != nil {
		return "", err
	}
	raw, ok := data[ref.Key]
	if !ok {
		return "", fmt.Errorf("vault: key %q not in %s/%s", ref.Key, ref.Mount, ref.Path)
	}
	s, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("vault: %s is %T, want string", ref, raw)
	}
	return s, nil
}

// GetKV is Resolve for a "<mount>/<path>" string and a key.
func (c *Client) GetKV(ctx context.Context, secretPath, key string) (string, error) {
	mount, path := splitMount(secretPath)
	if mount == "" || path == "" || key == "" {
		return "", fmt.Errorf("%w: %q#%q", ErrMalformedRef, secretPath, key)
	}
	return c.Resolve(ctx, Ref{Mount: mount, Path: path, Key: key})
}

func (c *Client) secret(ctx context.Context, mount, path string) (map[string]any, error) {
	id := mount + "/" + path

	c.mu.Lock()
	defer c.mu.Unlock()
	if data, ok := c.seen[id]; ok {
		return data, nil
	}
	sec, err := c.api.KVv2(mount).Get(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("vault get %s: %w", id, err)
	}
	c.seen[id] = sec.Data
	c.log.Debugw("vault secret read", "path", id, "keys", len(sec.Data))
	return sec.Data, nil
}

func splitMount(p string) (mount, rel string) {
	p = strings.Trim(p, "/")
	if p == "" {
		return "", ""
	}
	mount, rel, _ = strings.Cut(p, "/")
	return mount, rel
}
