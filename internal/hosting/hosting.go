// internal/hosting/hosting.go
//
// Public serving of published sites.
//
/*
Context
--------
Published HTML is reachable two ways:

  • /s/{id} on the app host, for previews and sites without a domain.
  • Any request whose Host is a verified custom domain.  Dispatch runs
    before the app router, so every non-app host is answered here.

Concurrent requests for the same host collapse into one database read via
singleflight.  Nothing is kept once the read returns.  Flights are keyed
by a change generation: Invalidate bumps it whenever a site or domain
changes in this process, so a request arriving after a publish never
joins a read that started before it.

Notes
-----
  • Only GET and HEAD are served on custom domains.
  • Lookup errors are logged, never shown to visitors.
  • Oxford commas, two spaces after periods.
*/
package hosting

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/singleflight"

	"github.com/yanizio/sitesmith/internal/logger"
	"github.com/yanizio/sitesmith/internal/metrics"
	"github.com/yanizio/sitesmith/internal/site"
)

// Source reads published snapshots.
type Source interface {
	PublishedByID(ctx context.Context, id string) (string, error)
	PublishedByHost(ctx context.Context, host string) (string, error)
}

// Server answers public site requests.
type Server struct {
	src      Source
	sfg      singleflight.Group
	gen      atomic.Uint64
	appHosts map[string]struct{}
}

// New builds a Server.  appHosts are the hostnames of the application
// itself; requests for them pass through Dispatch untouched.
func New(src Source, appHosts []string) *Server {
	s := &Server{src: src, appHosts: make(map[string]struct{}, len(appHosts))}
	for _, h := range appHosts {
		s.appHosts[CanonicalHost(h)] = struct{}{}
	}
	return s
}

// Invalidate starts a new generation of lookups.  Reads already in
// flight finish for their own callers only.
func (s *Server) Invalidate() { s.gen.Add(1) }

// CanonicalHost lowercases host and strips any port and trailing dot.
func CanonicalHost(host string) string {
	host = strings.TrimSpace(host)
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	return strings.TrimSuffix(strings.ToLower(host), ".")
}

// IsAppHost reports whether host belongs to the application.
func (s *Server) IsAppHost(host string) bool {
	_, ok := s.appHosts[CanonicalHost(host)]
	return ok
}

// Dispatch serves custom-domain requests and forwards app-host requests
// to next.
func (s *Server) Dispatch(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.IsAppHost(r.Host) {
			next.ServeHTTP(w, r)
			return
		}
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
			return
		}
		host := CanonicalHost(r.Host)
		s.serve(w, r, "host:"+host, func(ctx context.Context) (string, error) {
			return s.src.PublishedByHost(ctx, host)
		})
	})
}

// ServeByID handles GET /s/{id}.
func (s *Server) ServeByID(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.serve(w, r, "id:"+id, func(ctx context.Context) (string, error) {
		return s.src.PublishedByID(ctx, id)
	})
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request, key string, load func(context.Context) (string, error)) {
	flight := strconv.FormatUint(s.gen.Load(), 10) + "|" + key

	// Shared callers must not inherit the first caller's cancellation.
	ctx := context.WithoutCancel(r.Context())
	v, err, _ := s.sfg.Do(flight, func() (any, error) { return load(ctx) })

	switch {
	case errors.Is(err, site.ErrNotFound):
		metrics.HostingLookupsTotal.WithLabelValues("miss").Inc()
		http.NotFound(w, r)
		return
	case err != nil:
		metrics.HostingLookupsTotal.WithLabelValues("error").Inc()
		logger.FromContext(r.Context()).Errorw("published site lookup failed", "key", key, "err", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	metrics.HostingLookupsTotal.WithLabelValues("hit").Inc()
	write(w, r, v.(string))
}

func write(w http.ResponseWriter, r *http.Request, doc string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	if r.Method != http.MethodHead {
		_, _ = w.Write([]byte(doc))
	}
}
