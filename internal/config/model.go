// internal/config/model.go
//
// Typed configuration model for Sitesmith.
//
// Context
// -------
// These structs define the shape of the configuration tree that
// `internal/config/loader.go` builds from four overlay layers:
//
//   • compiled-in defaults                        – `Defaults()`,
//   • optional `.env`                             – dotenv values,
//   • `conf/global.yaml`                          – primary static file,
//   • `SITESMITH_`-prefixed environment overrides – highest precedence.
//
// Any value whose string begins with the prefix `vault:` is resolved
// through the Vault client *before* unmarshalling, so the model never
// stores Vault URIs, only plain strings.
//
// Notes
// -----
//   • Struct tags use `koanf:"…"`, not `yaml:"…"`.  Koanf ignores `yaml`
//     tags unless configured otherwise.
//   • The `Paths` block is filled at runtime; YAML must not try to set it.
//   • Oxford commas, two spaces after periods.  No em-dash.

package config

import "time"

//
// HTTP section
//

// HTTP holds web-server tunables.
//
// AppHosts lists the hostnames that serve the builder itself.  Any other
// Host header is treated as a customer domain and routed to the public
// site server.
type HTTP struct {
	ListenAddr    string        `koanf:"listen_addr"     validate:"required,hostname_port"`
	ForceHTTPS    bool          `koanf:"force_https"`
	PublicBaseURL string        `koanf:"public_base_url" validate:"required,url"`
	AppHosts      []string      `koanf:"app_hosts"`
	CORSOrigins   []string      `koanf:"cors_origins"`
	ReadTimeout   time.Duration `koanf:"read_timeout"`
	WriteTimeout  time.Duration `koanf:"write_timeout"`
	IdleTimeout   time.Duration `koanf:"idle_timeout"`
}

//
// Database section
//

// Database selects the driver and pool sizes.  The DSN usually carries a
// `vault:` reference in production so credentials stay out of flat files.
type Database struct {
	Driver       string `koanf:"driver"         validate:"required,oneof=mysql pgx sqlite3"`
	DSN          string `koanf:"dsn"            validate:"required"`
	MaxOpenConns int    `koanf:"max_open_conns" validate:"gte=1"`
	MaxIdleConns int    `koanf:"max_idle_conns" validate:"gte=0"`
	AutoMigrate  bool   `koanf:"auto_migrate"`
}

//
// Identity section
//

// Auth configures verification of identity-provider access tokens.
type Auth struct {
	JWTSecret  string `koanf:"jwt_secret"  validate:"required,min=16"`
	Audience   string `koanf:"audience"`
	CookieName string `koanf:"cookie_name" validate:"required"`
	SignInURL  string `koanf:"sign_in_url"`
}

// Gate lists the page prefixes that require an active subscription and
// the two redirect targets.
type Gate struct {
	ProtectedPrefixes []string `koanf:"protected_prefixes" validate:"min=1,dive,startswith=/"`
	SignInPath        string   `koanf:"sign_in_path"       validate:"required,startswith=/"`
	BillingPath       string   `koanf:"billing_path"       validate:"required,startswith=/"`
}

//
// Third-party services
//

// Stripe holds payment-processor credentials.
type Stripe struct {
	SecretKey     string `koanf:"secret_key"     validate:"required"`
	WebhookSecret string `koanf:"webhook_secret" validate:"required"`
	PriceID       string `koanf:"price_id"       validate:"required"`
	SuccessPath   string `koanf:"success_path"   validate:"required,startswith=/"`
	CancelPath    string `koanf:"cancel_path"    validate:"required,startswith=/"`
}

// Provider points at the hosting provider's project-domains API.
type Provider struct {
	BaseURL   string        `koanf:"base_url"   validate:"required,url"`
	Token     string        `koanf:"token"      validate:"required"`
	ProjectID string        `koanf:"project_id" validate:"required"`
	TeamID    string        `koanf:"team_id"`
	Timeout   time.Duration `koanf:"timeout"`
}

// LLM points at an OpenAI-compatible chat-completions endpoint.  The API
// key is supplied by the caller on every request, never configured here.
type LLM struct {
	BaseURL   string        `koanf:"base_url"   validate:"required,url"`
	Model     string        `koanf:"model"      validate:"required"`
	MaxTokens int           `koanf:"max_tokens" validate:"gte=0"`
	Timeout   time.Duration `koanf:"timeout"`
}

// Templates locates the generation template catalog.  Empty means the
// embedded default catalog.
type Templates struct {
	CatalogPath string `koanf:"catalog_path"`
}

//
// Ambient
//

// Log tunes the zap/lumberjack logger.
type Log struct {
	Dir   string `koanf:"dir"`
	Level string `koanf:"level" validate:"oneof=debug info warn error"`
}

// GeoIP is optional; empty DBPath disables country lookups.
type GeoIP struct {
	DBPath string `koanf:"db_path"`
}

// Theme selects the override directory for page templates.
type Theme struct {
	Name string `koanf:"name"`
}

//
// Paths section (runtime only)
//

// Paths is resolved at runtime, never set in YAML or env.
type Paths struct {
	Root string // SITESMITH_ROOT or discovered parent
}

//
// Root aggregate
//

// Config is the immutable aggregate returned by Load().  It is passed
// explicitly to every constructor that needs it.
type Config struct {
	HTTP      HTTP      `koanf:"http"`
	Database  Database  `koanf:"database"`
	Auth      Auth      `koanf:"auth"`
	Gate      Gate      `koanf:"gate"`
	Stripe    Stripe    `koanf:"stripe"`
	Provider  Provider  `koanf:"provider"`
	LLM       LLM       `koanf:"llm"`
	Templates Templates `koanf:"templates"`
	Log       Log       `koanf:"log"`
	GeoIP     GeoIP     `koanf:"geoip"`
	Theme     Theme     `koanf:"theme"`
	Paths     Paths     `koanf:"-"` // not loaded from config files
}

// Defaults returns the compiled-in baseline loaded before any file.
func Defaults() Config {
	return Config{
		HTTP: HTTP{
			ListenAddr:    ":8080",
			PublicBaseURL: "http://localhost:8080",
			AppHosts:      []string{"localhost", "127.0.0.1"},
			ReadTimeout:   10 * time.Second,
			WriteTimeout:  60 * time.Second,
			IdleTimeout:   60 * time.Second,
		},
		Database: Database{
			Driver:       "mysql",
			MaxOpenConns: 15,
			MaxIdleConns: 5,
		},
		Auth: Auth{
			CookieName: "sb-access-token",
		},
		Gate: Gate{
			ProtectedPrefixes: []string{"/dashboard", "/builder"},
			SignInPath:        "/login",
			BillingPath:       "/billing",
		},
		Stripe: Stripe{
			SuccessPath: "/dashboard",
			CancelPath:  "/billing",
		},
		Provider: Provider{
			BaseURL: "https://api.vercel.com",
			Timeout: 15 * time.Second,
		},
		LLM: LLM{
			BaseURL:   "https://api.openai.com/v1",
			Model:     "gpt-4o-mini",
			MaxTokens: 4096,
			Timeout:   50 * time.Second,
		},
		Log:   Log{Level: "info"},
		Theme: Theme{Name: "default"},
	}
}
