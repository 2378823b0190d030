package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "roadpack",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests processed",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "roadpack",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"method", "path"})

	// Pipeline metrics
	RecordsClassified = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "roadpack",
		Subsystem: "pipeline",
		Name:      "records_classified_total",
		Help:      "Total records produced by the classifier, per category",
	}, []string{"category"})

	LinesDropped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "roadpack",
		Subsystem: "pipeline",
		Name:      "lines_dropped_total",
		Help:      "Total malformed input lines dropped",
	})

	SpillBytes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "roadpack",
		Subsystem: "pipeline",
		Name:      "spill_bytes_total",
		Help:      "Total bytes written to heavy-category scratch sinks",
	}, []string{"category"})

	BuildDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "roadpack",
		Subsystem: "pipeline",
		Name:      "build_duration_seconds",
		Help:      "Duration of one region bundle build",
		Buckets:   []float64{1, 5, 15, 60, 300, 900, 3600},
	}, []string{"region"})

	// Loader metrics
	RowsLoaded = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "roadpack",
		Subsystem: "loader",
		Name:      "rows_total",
		Help:      "Total rows inserted into region stores, per table",
	}, []string{"table"})

	LoadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "roadpack",
		Subsystem: "loader",
		Name:      "loads_total",
		Help:      "Total region load attempts by outcome",
	}, []string{"status"})

	// Cache metrics
	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "roadpack",
		Subsystem: "cache",
		Name:      "hits_total",
		Help:      "Total cache hits",
	}, []string{"operation"})

	CacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "roadpack",
		Subsystem: "cache",
		Name:      "misses_total",
		Help:      "Total cache misses",
	}, []string{"operation"})
)

// Middleware records request metrics.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Response().StatusCode())
		path := c.Route().Path
		if path == "" {
			path = c.Path()
		}
		method := c.Method()

		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpRequestDuration.WithLabelValues(method, path).Observe(duration)

		return err
	}
}

// Handler returns a Fiber handler serving the Prometheus /metrics endpoint.
func Handler() fiber.Handler {
	handler := promhttp.Handler()
	return func(c *fiber.Ctx) error {
		fasthttpadaptor.NewFastHTTPHandler(handler)(c.Context())
		return nil
	}
}
