// internal/config/loader_test.go
//
// Loader tests: YAML + env layering, vault reference resolution, and
// fail-fast validation.
//
// Run: go test ./internal/config -v

package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const baseYAML = `
http:
  public_base_url: "https://app.example.test"
database:
  driver: sqlite3
  dsn: "file::memory:"
auth:
  jwt_secret: "0123456789abcdef0123"
stripe:
  secret_key: "sk_test_x"
  webhook_secret: "whsec_x"
  price_id: "price_x"
provider:
  token: "tok"
  project_id: "prj_1"
  timeout: 5s
`

func writeRoot(t *testing.T, yaml string) string {
	t.Helper()
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "conf"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, "conf", "global.yaml"), []byte(yaml), 0o644); err != nil {
		t.Fatalf("write yaml: %v", err)
	}
	return root
}

type fakeSecrets map[string]string

func (f fakeSecrets) GetKV(_ context.Context, path, key string) (string, error) {
	v, ok := f[path+"#"+key]
	if !ok {
		return "", errors.New("missing secret")
	}
	return v, nil
}

func TestLoadLayers(t *testing.T) {
	root := writeRoot(t, baseYAML)
	t.Setenv("SITESMITH_HTTP__LISTEN_ADDR", "127.0.0.1:9000")

	cfg, err := LoadFrom(context.Background(), root, fakeSecrets{})
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.HTTP.ListenAddr != "127.0.0.1:9000" {
		t.Errorf("env override not applied: %q", cfg.HTTP.ListenAddr)
	}
	if cfg.Provider.Timeout != 5*time.Second {
		t.Errorf("provider timeout = %v", cfg.Provider.Timeout)
	}
	if cfg.Gate.SignInPath != "/login" || len(cfg.Gate.ProtectedPrefixes) != 2 {
		t.Errorf("defaults lost: %+v", cfg.Gate)
	}
	if cfg.Provider.BaseURL != "https://api.vercel.com" {
		t.Errorf("provider base url default lost: %q", cfg.Provider.BaseURL)
	}
	if cfg.Paths.Root != root || cfg.Log.Dir != filepath.Join(root, "logs") {
		t.Errorf("paths not filled: %+v %q", cfg.Paths, cfg.Log.Dir)
	}
}

func TestLoadResolvesVaultRefs(t *testing.T) {
	yaml := strings.Replace(baseYAML, `secret_key: "sk_test_x"`, `secret_key: "vault:secret/sitesmith/stripe#key"`, 1)
	root := writeRoot(t, yaml)

	cfg, err := LoadFrom(context.Background(), root, fakeSecrets{
		"secret/sitesmith/stripe#key": "sk_live_from_vault",
	})
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.Stripe.SecretKey != "sk_live_from_vault" {
		t.Fatalf("secret not resolved: %q", cfg.Stripe.SecretKey)
	}
}

func TestLoadRejectsMalformedVaultRef(t *testing.T) {
	yaml := strings.Replace(baseYAML, `token: "tok"`, `token: "vault:secret/provider"`, 1)
	root := writeRoot(t, yaml)

	if _, err := LoadFrom(context.Background(), root, fakeSecrets{}); err == nil {
		t.Fatal("expected malformed reference error")
	}
}

func TestLoadValidationFails(t *testing.T) {
	yaml := strings.Replace(baseYAML, `price_id: "price_x"`, `price_id: ""`, 1)
	root := writeRoot(t, yaml)

	_, err := LoadFrom(context.Background(), root, fakeSecrets{})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), "PriceID") {
		t.Errorf("error should name the field: %v", err)
	}
}
