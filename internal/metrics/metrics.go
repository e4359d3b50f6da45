// Package metrics declares the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Resolutions counts patch replays by result ("ok" or "error").
	Resolutions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "entityschema_resolutions_total",
		Help: "Total number of schema resolutions computed, by result",
	}, []string{"result"})

	ResolveDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "entityschema_resolve_duration_seconds",
		Help:    "Time spent replaying patches over the baseline",
		Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
	})

	// CacheLookups counts resolver cache lookups by outcome ("hit" or "miss").
	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "entityschema_cache_lookups_total",
		Help: "Total number of resolver cache lookups, by outcome",
	}, []string{"outcome"})

	// Reloads counts data directory reloads by result.
	Reloads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "entityschema_store_reloads_total",
		Help: "Total number of schema store reloads, by result",
	}, []string{"result"})

	Subscriptions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "entityschema_subscriptions",
		Help: "Number of open schema subscriptions",
	})

	Requests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "entityschema_http_requests_total",
		Help: "Total number of HTTP requests, by route and status code",
	}, []string{"route", "code"})
)
