package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests by route and status",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	RecommendationRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommendation_runs_total",
			Help: "Recommendation and match runs by variant and outcome",
		},
		[]string{"variant", "outcome"},
	)

	RecommendationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "recommendation_duration_seconds",
			Help:    "Duration of a full recommendation run in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"variant"},
	)

	ScholarshipsScored = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "scholarships_scored_total",
			Help: "Total scholarship/profile pairs scored",
		},
	)

	DocumentParseTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "document_parse_total",
			Help: "Document parse jobs by final status",
		},
		[]string{"status"},
	)

	DocumentParseDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "document_parse_duration_seconds",
			Help:    "Duration of document text extraction and parsing",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
	)

	WorkerMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_messages_total",
			Help: "Queue messages seen by the parse worker by outcome",
		},
		[]string{"outcome"},
	)

	ParseJobsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "parse_jobs_active",
			Help: "Parse jobs currently being processed",
		},
	)
)

// ObserveRecommendation records one engine run.
func ObserveRecommendation(variant string, started time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	RecommendationRuns.WithLabelValues(variant, outcome).Inc()
	RecommendationDuration.WithLabelValues(variant).Observe(time.Since(started).Seconds())
}

// ObserveParse records one finished parse job.
func ObserveParse(status string, started time.Time) {
	DocumentParseTotal.WithLabelValues(status).Inc()
	DocumentParseDuration.Observe(time.Since(started).Seconds())
}

// ObserveWorkerMessage counts one queue message outcome (received, completed, failed, dropped).
func ObserveWorkerMessage(outcome string) {
	WorkerMessages.WithLabelValues(outcome).Inc()
}

// Middleware records request count and latency keyed by the matched route template.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := c.Request.Method
		HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(c.Writer.Status())).Inc()
		HTTPRequestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	}
}

// Handler exposes the default registry in Prometheus text format.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
