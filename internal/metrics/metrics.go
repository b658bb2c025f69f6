// file: internal/metrics/metrics.go
// version: 1.2.0
// guid: 51e85c12-e468-4691-bddb-7eb52f464c76

package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "media_acquirer"

var (
	registerOnce sync.Once

	releasesEvaluated = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "releases_evaluated_total",
		Help:      "Total number of release candidates evaluated by media type",
	}, []string{"media_type"})
	releasesRejected = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "releases_rejected_total",
		Help:      "Total number of release candidates rejected by reason",
	}, []string{"reason"})
	blacklistEntries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "blacklist_entries_total",
		Help:      "Total number of releases blacklisted by failure type",
	}, []string{"failure_type"})
	blacklistSwept = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "blacklist_swept_total",
		Help:      "Total number of expired blacklist entries removed",
	})
	backendRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "backend_requests_total",
		Help:      "Total number of download backend calls by kind, method and outcome",
	}, []string{"kind", "method", "outcome"})
	backendDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "backend_request_duration_seconds",
		Help:      "Histogram of download backend call durations in seconds",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2, 11), // 10ms up to ~10s
	}, []string{"kind"})
	sessionRefreshes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "backend_session_refreshes_total",
		Help:      "Total number of re-logins and session token refreshes by backend kind",
	}, []string{"kind"})
	submissions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "submissions_total",
		Help:      "Total number of releases handed to a download backend by outcome",
	}, []string{"backend", "outcome"})

	httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Total number of API requests by route and status code",
	}, []string{"route", "code"})
	httpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "Histogram of API request durations in seconds",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route"})
	rateLimited = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_rate_limited_total",
		Help:      "Total number of API requests rejected by the rate limiter",
	})

	activeJobs = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "download_jobs",
		Help:      "Current number of tracked download jobs by status",
	}, []string{"status"})
)

// Register initializes metrics with the global Prometheus registry (idempotent)
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(releasesEvaluated, releasesRejected, blacklistEntries, blacklistSwept,
			backendRequests, backendDuration, sessionRefreshes, submissions,
			httpRequests, httpDuration, rateLimited, activeJobs)
	})
}

// Decision helpers
func AddEvaluated(mediaType string, n int) {
	releasesEvaluated.WithLabelValues(mediaType).Add(float64(n))
}
func RecordRejection(reason string) { AddRejected(reason, 1) }
func AddRejected(reason string, n int) {
	releasesRejected.WithLabelValues(reason).Add(float64(n))
}

// Blacklist helpers
func RecordBlacklisted(failureType string) { blacklistEntries.WithLabelValues(failureType).Inc() }
func AddSwept(n int)                       { blacklistSwept.Add(float64(n)) }

// Backend helpers
func ObserveBackendRequest(kind, method string, err error, d time.Duration) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	backendRequests.WithLabelValues(kind, method, outcome).Inc()
	backendDuration.WithLabelValues(kind).Observe(d.Seconds())
}
func IncSessionRefresh(kind string) { sessionRefreshes.WithLabelValues(kind).Inc() }
func IncSubmission(backend, outcome string) {
	submissions.WithLabelValues(backend, outcome).Inc()
}

// HTTP helpers
func ObserveHTTPRequest(route string, code int, d time.Duration) {
	httpRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
	httpDuration.WithLabelValues(route).Observe(d.Seconds())
}
func IncRateLimited() { rateLimited.Inc() }

// SetJobs replaces the job gauge with the given per-status counts.
func SetJobs(counts map[string]int) {
	activeJobs.Reset()
	for status, n := range counts {
		activeJobs.WithLabelValues(status).Set(float64(n))
	}
}
