// Package metrics provides Prometheus metrics for Card Nexus.
// Scrape these at /metrics for Grafana dashboards and alerting.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP Metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cardnexus_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cardnexus_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// Import Metrics
	ImportRecordsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cardnexus_import_records_total",
			Help: "Card records processed by the importer",
		},
		[]string{"outcome"}, // "created", "updated", "failed", "invalid"
	)

	ImportFilesSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cardnexus_import_files_skipped_total",
			Help: "Import input files skipped because they were missing or unreadable",
		},
	)

	ImportRunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cardnexus_import_run_duration_seconds",
			Help:    "Time taken by one import run",
			Buckets: []float64{1, 5, 15, 30, 60, 300, 900},
		},
	)

	// Card API Metrics
	CardAPIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cardnexus_card_api_requests_total",
			Help: "Requests made to the upstream card API",
		},
		[]string{"result"}, // "success" or "failed"
	)

	// Marketplace Metrics
	ListingsExpiredTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cardnexus_listings_expired_total",
			Help: "Listings moved to expired by the scheduler",
		},
	)

	TransactionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cardnexus_transactions_total",
			Help: "Marketplace transactions by status change",
		},
		[]string{"status"}, // "pending", "completed", "cancelled"
	)

	// Card Database Metrics
	CardDatabaseSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cardnexus_card_database_size",
			Help: "Number of cards in the catalog",
		},
	)
)

// GinMiddleware records request counts and latency. The route template is
// used as the path label to keep cardinality bounded.
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		HTTPRequestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		HTTPRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}
