// internal/app/app.go
//
// Wiring: services, component runtime, and the root router.
//
/*
Context
--------
New builds every service once from Config and hands them to the registered
components through a shared *component.Runtime.  The result is one
http.Handler for the server.

Middleware order (outermost first)
----------------------------------
  1. RequestID, RealIP            – chi; RealIP feeds the IP below.
  2. requestinfo.Enrich           – UA, language, and GeoIP.
  3. AccessLog, Instrument        – per-request logger and metrics.
  4. Recoverer                    – panics become 500s.
  5. ForceHTTPS                   – 308 to https outside loopback.
  6. CORS                         – only when origins are configured.
  7. hosting.Dispatch             – customer domains leave here.
  8. auth.Identify                – attaches the caller, if any.
  9. csrf.Protect                 – cookie-driven writes need a token.
 10. Gate                         – page routes needing a subscription.
 11. SecurityExcept("/s/")        – headers for the app's own surfaces.

Notes
-----
  • Provider and Gateway in Options replace the real HTTP clients in
    tests.
  • Oxford commas, two spaces after periods.
*/
package app

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/yanizio/sitesmith/internal/auth"
	"github.com/yanizio/sitesmith/internal/billing"
	"github.com/yanizio/sitesmith/internal/component"
	"github.com/yanizio/sitesmith/internal/config"
	"github.com/yanizio/sitesmith/internal/csrf"
	"github.com/yanizio/sitesmith/internal/customdomain"
	"github.com/yanizio/sitesmith/internal/domainprovider"
	"github.com/yanizio/sitesmith/internal/entitlement"
	"github.com/yanizio/sitesmith/internal/generate"
	"github.com/yanizio/sitesmith/internal/hosting"
	"github.com/yanizio/sitesmith/internal/httpx"
	"github.com/yanizio/sitesmith/internal/middleware"
	"github.com/yanizio/sitesmith/internal/requestinfo"
	"github.com/yanizio/sitesmith/internal/site"
	"github.com/yanizio/sitesmith/internal/view"
)

// csrfMaxAge bounds how long a dashboard tab can sit before its writes
// need a reload.
const csrfMaxAge = 12 * time.Hour

// Options overrides external clients.  Zero values mean "build from
// Config".
type Options struct {
	Provider customdomain.Provider
	Gateway  billing.Gateway
}

// App is the assembled application.
type App struct {
	Handler http.Handler
	Runtime *component.Runtime
	geo     *requestinfo.GeoDB
}

// New wires services and routes.  Components must already be registered
// (blank imports in main).
func New(cfg *config.Config, db *sqlx.DB, log *zap.SugaredLogger, opt Options) (*App, error) {
	verifier, err := auth.NewVerifier(cfg.Auth.JWTSecret, cfg.Auth.Audience, cfg.Auth.CookieName)
	if err != nil {
		return nil, fmt.Errorf("auth: %w", err)
	}

	provider := opt.Provider
	if provider == nil {
		p := cfg.Provider
		provider = domainprovider.New(p.BaseURL, p.Token, p.ProjectID, p.TeamID, p.Timeout)
	}
	gateway := opt.Gateway
	if gateway == nil {
		gateway = billing.NewStripeGateway(cfg.Stripe.SecretKey)
	}

	catalog, err := generate.LoadCatalog(rooted(cfg.Paths.Root, cfg.Templates.CatalogPath))
	if err != nil {
		return nil, fmt.Errorf("template catalog: %w", err)
	}

	views, err := view.New(themeDir(cfg))
	if err != nil {
		return nil, fmt.Errorf("views: %w", err)
	}

	geo, err := requestinfo.OpenGeo(rooted(cfg.Paths.Root, cfg.GeoIP.DBPath))
	if err != nil {
		// GeoIP is optional enrichment; run without it.
		log.Warnw("geoip database not opened", "path", cfg.GeoIP.DBPath, "err", err)
		geo = nil
	}

	// Domains check ownership against the repository directly, so the
	// two services do not need each other at construction time.
	subs := entitlement.NewRepository(db)
	siteRepo := site.NewRepository(db)
	domains := customdomain.NewService(customdomain.NewRepository(db), provider, siteRepo)
	sites := site.NewService(siteRepo, domains)

	host := hosting.New(sites, appHosts(cfg.HTTP))
	sites.OnChange(host.Invalidate)
	domains.OnChange(host.Invalidate)

	rt := &component.Runtime{
		Config:  cfg,
		DB:      db,
		Log:     log,
		Views:   views,
		CSRF:    csrf.NewSigner(cfg.Auth.JWTSecret, csrfMaxAge),
		Gate:    entitlement.NewGate(subs, cfg.Gate.ProtectedPrefixes, cfg.Gate.SignInPath, cfg.Gate.BillingPath),
		Sites:   sites,
		Domains: domains,
		Billing: billing.NewService(gateway, subs, billing.Options{
			PriceID:       cfg.Stripe.PriceID,
			WebhookSecret: cfg.Stripe.WebhookSecret,
			PublicBaseURL: cfg.HTTP.PublicBaseURL,
			SuccessPath:   cfg.Stripe.SuccessPath,
			CancelPath:    cfg.Stripe.CancelPath,
		}),
		Generator: generate.New(cfg.LLM.BaseURL, cfg.LLM.Model, cfg.LLM.MaxTokens, cfg.LLM.Timeout, catalog),
		Hosting:   host,
	}

	for _, c := range component.All() {
		if err := c.Init(rt); err != nil {
			_ = geo.Close()
			return nil, fmt.Errorf("component %s: %w", c.Name(), err)
		}
	}

	a := &App{Runtime: rt, geo: geo}
	a.Handler = a.router(verifier)
	log.Infow("app wired", "components", len(component.All()), "templates", len(catalog.List()))
	return a, nil
}

// Close releases the GeoIP reader.
func (a *App) Close() error { return a.geo.Close() }

func (a *App) router(verifier *auth.Verifier) http.Handler {
	cfg := a.Runtime.Config
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(requestinfo.Enrich(a.geo))
	r.Use(middleware.AccessLog(a.Runtime.Log))
	r.Use(middleware.Instrument)
	r.Use(chimw.Recoverer)
	r.Use(middleware.ForceHTTPS(cfg.HTTP.ForceHTTPS))
	if len(cfg.HTTP.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.HTTP.CORSOrigins,
			AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Authorization", "Content-Type", csrf.Header},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}
	r.Use(a.Runtime.Hosting.Dispatch)
	r.Use(auth.Identify(verifier))
	r.Use(csrf.Protect(a.Runtime.CSRF, cfg.Auth.CookieName))
	r.Use(a.Runtime.Gate.Middleware)
	r.Use(middleware.SecurityExcept("/s/"))

	r.Get("/healthz", a.health)
	r.Handle("/metrics", promhttp.Handler())

	for _, c := range component.All() {
		c.Routes(r)
	}

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httpx.Error(w, http.StatusNotFound, "not found")
	})
	return r
}

func (a *App) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := a.Runtime.DB.PingContext(ctx); err != nil {
		httpx.Fail(w, r, http.StatusServiceUnavailable, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

/*──────────────────────────── helpers ─────────────────────────────────────*/

// appHosts is the configured list plus the public base URL's host.
func appHosts(h config.HTTP) []string {
	hosts := append([]string{}, h.AppHosts...)
	if u, err := url.Parse(h.PublicBaseURL); err == nil && u.Host != "" {
		hosts = append(hosts, u.Host)
	}
	return hosts
}

// themeDir is <root>/themes/<name>/templates, or "" for embedded only.
func themeDir(cfg *config.Config) string {
	if cfg.Theme.Name == "" || cfg.Paths.Root == "" {
		return ""
	}
	return filepath.Join(cfg.Paths.Root, "themes", cfg.Theme.Name, "templates")
}

// rooted resolves a relative path against root.  Empty stays empty.
func rooted(root, p string) string {
	if p == "" || filepath.IsAbs(p) || root == "" {
		return p
	}
	return filepath.Join(root, p)
}
