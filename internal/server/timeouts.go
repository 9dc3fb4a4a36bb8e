// internal/server/timeouts.go
//
// HTTP server helper with robust timeouts.
//
// Production hardening recommends:
//
//   • ReadTimeout   – abort slow-loris headers and bodies
//   • WriteTimeout  – cap total response time; must outlast the slowest
//                     generation call
//   • IdleTimeout   – close keep-alives on idle clients
//
// Zero values in config fall back to the defaults below.
//

package server

import (
	"net/http"
	"time"

	"github.com/yanizio/sitesmith/internal/config"
)

const (
	defaultRead  = 10 * time.Second
	defaultWrite = 60 * time.Second
	defaultIdle  = 60 * time.Second
)

// New constructs an *http.Server from the HTTP config block.
func New(cfg config.HTTP, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: pick(cfg.ReadTimeout, defaultRead),
		ReadTimeout:       pick(cfg.ReadTimeout, defaultRead),
		WriteTimeout:      pick(cfg.WriteTimeout, defaultWrite),
		IdleTimeout:       pick(cfg.IdleTimeout, defaultIdle),
	}
}

func pick(v, def time.Duration) time.Duration {
	if v > 0 {
		return v
	}
	return def
}
