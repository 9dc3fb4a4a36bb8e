// Package metrics holds Prometheus instruments that are used across
// Sitesmith.  All collectors are registered with the global registry, so
// importing this package is enough to expose them on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "sitesmith"

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route pattern, method, and status code.",
		}, []string{"route", "method", "code"})

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"})

	GateDecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gate_decisions_total",
			Help:      "Entitlement gate outcomes on protected paths (allow, sign_in, billing).",
		}, []string{"decision"})

	ProviderRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "domain_provider_requests_total",
			Help:      "Hosting-provider API calls by operation and outcome.",
		}, []string{"op", "outcome"})

	DomainUnreconciledTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "domain_unreconciled_total",
			Help:      "Domains registered with the provider whose row could not be written.",
		})

	GenerateTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generate_total",
			Help:      "Site generation calls by outcome.",
		}, []string{"outcome"})

	WebhookEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stripe_webhook_events_total",
			Help:      "Stripe webhook events by type and outcome.",
		}, []string{"type", "outcome"})

	HostingLookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "hosting_lookups_total",
			Help:      "Published-site lookups by custom domain host (hit, miss, error).",
		}, []string{"outcome"})
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		GateDecisionsTotal,
		ProviderRequestsTotal,
		DomainUnreconciledTotal,
		GenerateTotal,
		WebhookEventsTotal,
		HostingLookupsTotal,
	)
}
