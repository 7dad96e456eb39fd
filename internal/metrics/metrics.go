package metrics

import (
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "where2meet"

var (
	httpRequestsTotal      *prometheus.CounterVec
	resultsTotal           *prometheus.CounterVec
	recommendationFailures *prometheus.CounterVec
	votesTotal             *prometheus.CounterVec
	recommendationLatency  prometheus.Histogram
	registerOnce           sync.Once
)

// Register initializes Prometheus metrics on the default registry.
func Register() {
	registerOnce.Do(func() {
		httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total HTTP requests processed by the API.",
		}, []string{"method", "path", "status"})

		resultsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "results_total",
			Help:      "Poll result computations by final stage.",
		}, []string{"outcome"})

		recommendationFailures = promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recommendation_failures_total",
			Help:      "Place lookups that degraded to an empty list.",
		}, []string{"reason"})

		votesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "votes_total",
			Help:      "Votes accepted by the store.",
		}, []string{"kind"})

		recommendationLatency = promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "recommendation_duration_seconds",
			Help:      "Latency of one place lookup.",
			Buckets:   prometheus.DefBuckets,
		})
	})
}

// IncRequest increments the http_requests_total counter with the given labels.
func IncRequest(method, path string, status int) {
	if httpRequestsTotal == nil {
		return
	}
	httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
}

func IncResult(outcome string) {
	if resultsTotal == nil {
		return
	}
	resultsTotal.WithLabelValues(outcome).Inc()
}

func IncRecommendationFailure(reason string) {
	if recommendationFailures == nil {
		return
	}
	recommendationFailures.WithLabelValues(reason).Inc()
}

func IncVote(kind string) {
	if votesTotal == nil {
		return
	}
	votesTotal.WithLabelValues(kind).Inc()
}

func ObserveRecommendation(seconds float64) {
	if recommendationLatency == nil {
		return
	}
	recommendationLatency.Observe(seconds)
}
