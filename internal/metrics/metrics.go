// Package metrics provides Prometheus metrics for the member portal.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// LoginTotal counts login attempts by identity kind and outcome.
	LoginTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "portal",
			Name:      "login_total",
			Help:      "Total number of login attempts",
		},
		[]string{"kind", "outcome"},
	)

	// ValidationTotal counts session validations by result.
	ValidationTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "portal",
			Name:      "session_validation_total",
			Help:      "Total number of session validations",
		},
		[]string{"result"},
	)

	// ValidationDuration measures the round trip to the session store.
	ValidationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "portal",
			Name:      "session_validation_duration_seconds",
			Help:      "Duration of session validations in seconds",
			Buckets:   prometheus.DefBuckets,
		},
	)

	// AreaEntryTotal counts protected area entry decisions.
	AreaEntryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "portal",
			Name:      "area_entry_total",
			Help:      "Total number of protected area entry attempts",
		},
		[]string{"area", "decision"},
	)

	// LogoutTotal counts logouts, forced ones included.
	LogoutTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "portal",
			Name:      "logout_total",
			Help:      "Total number of session logouts",
		},
		[]string{"reason"},
	)

	// SessionsPurged counts rows removed by the expiry purge.
	SessionsPurged = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "portal",
			Name:      "sessions_purged_total",
			Help:      "Total number of expired sessions purged",
		},
	)

	// RateLimitedTotal counts login requests rejected by the rate limiter.
	RateLimitedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "portal",
			Name:      "login_rate_limited_total",
			Help:      "Total number of rate limited login attempts",
		},
	)
)
