// internal/middleware/accesslog.go
//
// Request logging and route metrics.
//
/*
Context
--------
AccessLog attaches a request-scoped zap logger (request_id, method, path)
to the context, so anything below can call logger.FromContext(ctx) and get
correlated lines.  After the handler returns it writes one line with the
status, size, latency, and the UA and Geo fields from requestinfo.

Instrument records the Prometheus counters and histogram.  It labels by
chi route pattern, never raw path, to keep cardinality bounded.

Notes
-----
  • Both wrap the writer with chi's WrapResponseWriter.
  • Oxford commas, two spaces after periods.
*/
package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/yanizio/sitesmith/internal/logger"
	"github.com/yanizio/sitesmith/internal/metrics"
	"github.com/yanizio/sitesmith/internal/requestinfo"
)

// AccessLog logs one line per request through base.
func AccessLog(base *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			reqLog := base.With(
				"request_id", chimw.GetReqID(r.Context()),
				"method", r.Method,
				"path", r.URL.Path,
			)
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(logger.WithContext(r.Context(), reqLog)))

			fields := []any{
				"host", r.Host,
				"status", status(ww),
				"bytes", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
			}
			if info := requestinfo.FromContext(r.Context()); info != nil {
				fields = append(fields,
					"ip", info.Geo.IP.String(),
					"country", info.Geo.CountryISO,
					"browser", info.UA.Browser,
					"device", info.UA.Device,
					"bot", info.UA.IsBot,
				)
			}
			reqLog.Infow("http request", fields...)
		})
	}
}

// Instrument records request count and latency per route pattern.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil {
			if p := rc.RoutePattern(); p != "" {
				route = p
			}
		}
		metrics.HTTPRequestsTotal.WithLabelValues(route, r.Method, strconv.Itoa(status(ww))).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}

// status treats "never written" as 200, matching net/http.
func status(ww chimw.WrapResponseWriter) int {
	if s := ww.Status(); s != 0 {
		return s
	}
	return http.StatusOK
}
