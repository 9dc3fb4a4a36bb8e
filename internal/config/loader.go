// internal/config/loader.go
//
// Configuration loader.
//
/*
Context
--------
`Load()` builds one immutable `Config` struct from four layers (highest
precedence last):

  0. Compiled-in defaults (`Defaults()`) via the koanf structs provider.
  1. Optional `.env` file at `<root>/conf/.env`.
  2. `conf/global.yaml`.
  3. Environment variables prefixed `SITESMITH_`, where `__` maps to "."
     (e.g., `SITESMITH_HTTP__LISTEN_ADDR → http.listen_addr`).

Once merged, every string value that starts with `vault:` is swapped for
the secret it names, then the tree is unmarshalled, enriched with the
runtime root path, and validated.

Instrumentation
---------------
  • DEBUG spans: root discovery, YAML read, vault resolution.
  • ERROR spans: YAML parse, env overlay, unmarshal, validation failures.
  • INFO span: final "config loaded" with key highlights.
  • Logs use the global *sugared* logger (`zap.S()`) so early boot issues
    surface even before the file logger is installed.

Notes
-----
  • `rootDir()` climbs the cwd tree until it finds `conf/global.yaml`;
    this lets `go run ./cmd/web` work from any sub-directory.
  • A missing YAML file is fine when every required key comes from env.
  • Oxford commas, two spaces after periods.
*/
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	koanf "github.com/knadh/koanf/v2"
	"go.uber.org/zap"

	"github.com/yanizio/sitesmith/internal/vault"
)

const envPrefix = "SITESMITH_"

/*──────────────────────────── root discovery ───────────────────────────────*/

// rootDir resolves SITESMITH_ROOT or climbs directories until
// conf/global.yaml is found.  Falls back to the executable heuristic for
// the production layout (<root>/bin/web).
func rootDir() string {
	if r := os.Getenv("SITESMITH_ROOT"); r != "" {
		return r
	}

	wd, _ := os.Getwd()
	dir := wd
	for {
		if _, err := os.Stat(filepath.Join(dir, "conf", "global.yaml")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir { // reached filesystem root
			break
		}
		dir = parent
	}

	exe, _ := os.Executable()
	if filepath.Base(filepath.Dir(exe)) == "bin" {
		return filepath.Dir(filepath.Dir(exe))
	}
	return wd
}

/*─────────────────────────────── loader ───────────────────────────────────*/

// Load resolves the root directory and builds Config.  A Vault client is
// only created when at least one value carries a `vault:` reference.
func Load(ctx context.Context) (*Config, error) {
	return LoadFrom(ctx, rootDir(), nil)
}

// LoadFrom builds Config from an explicit root.  A nil secrets source
// means "dial Vault from VAULT_ADDR/VAULT_TOKEN on first use".
func LoadFrom(ctx context.Context, root string, secrets SecretSource) (*Config, error) {
	zap.S().Debugw("config root resolved", "root", root)

	// .env (optional, no error if missing)
	_ = godotenv.Load(filepath.Join(root, "conf", ".env"))

	k := koanf.New(".")

	if err := k.Load(structs.Provider(Defaults(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}

	yamlPath := filepath.Join(root, "conf", "global.yaml")
	if err := k.Load(file.Provider(yamlPath), yaml.Parser()); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			zap.S().Errorw("config yaml load failed", "file", yamlPath, "err", err)
			return nil, err
		}
		zap.S().Debugw("config yaml missing, using defaults and env", "file", yamlPath)
	} else {
		zap.S().Debugw("config yaml loaded", "file", yamlPath)
	}

	// Env overrides: SITESMITH_HTTP__LISTEN_ADDR → http.listen_addr
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(s, envPrefix)
		return strings.ToLower(strings.ReplaceAll(s, "__", "."))
	}), nil); err != nil {
		zap.S().Errorw("config env overlay failed", "err", err)
		return nil, err
	}

	if err := resolveSecrets(ctx, k, secrets); err != nil {
		zap.S().Errorw("config vault resolution failed", "err", err)
		return nil, err
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		zap.S().Errorw("config unmarshal failed", "err", err)
		return nil, err
	}

	cfg.Paths.Root = root
	if cfg.Log.Dir == "" {
		cfg.Log.Dir = filepath.Join(root, "logs")
	}
	if err := validateStruct(&cfg); err != nil {
		zap.S().Errorw("config validation failed", "err", err)
		return nil, err
	}

	zap.S().Infow("config loaded",
		"listen_addr", cfg.HTTP.ListenAddr,
		"force_https", cfg.HTTP.ForceHTTPS,
		"db_driver", cfg.Database.Driver,
		"root", cfg.Paths.Root,
	)
	return &cfg, nil
}

/*──────────────────────────── vault refs ──────────────────────────────────*/

// SecretSource returns one key of a KV-v2 secret.  *vault.Client
// satisfies it.
type SecretSource interface {
	GetKV(ctx context.Context, secretPath, key string) (string, error)
}

// resolveSecrets replaces every `vault:<mount>/<path>#<key>` string.
// The real client is built lazily, so configs without references never
// need VAULT_ADDR.
func resolveSecrets(ctx context.Context, k *koanf.Koanf, src SecretSource) error {
	for key, raw := range k.All() {
		s, ok := raw.(string)
		if !ok || !vault.IsRef(s) {
			continue
		}

		ref, err := vault.ParseRef(s)
		if err != nil {
			return fmt.Errorf("config %s: %w", key, err)
		}

		if src == nil {
			cli, err := vault.New(zap.S())
			if err != nil {
				return err
			}
			src = cli
		}

		val, err := src.GetKV(ctx, ref.Mount+"/"+ref.Path, ref.Key)
		if err != nil {
			return fmt.Errorf("config %s: %w", key, err)
		}
		if err := k.Set(key, val); err != nil {
			return err
		}
		zap.S().Debugw("config value resolved from vault", "key", key, "path", ref.Mount+"/"+ref.Path)
	}
	return nil
}
