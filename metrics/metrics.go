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
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "arkmap",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests processed",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "arkmap",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"method", "path"})

	// Map view metrics
	LayoutDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "arkmap",
		Subsystem: "layout",
		Name:      "compute_duration_seconds",
		Help:      "Duration of cluster layout computation",
		Buckets:   []float64{0.00001, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
	})

	LayoutClusters = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "arkmap",
		Subsystem: "layout",
		Name:      "clusters",
		Help:      "Number of clusters per computed layout",
		Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
	})

	GestureEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "arkmap",
		Subsystem: "view",
		Name:      "gesture_events_total",
		Help:      "Gesture events received, by kind and whether they had an effect",
	}, []string{"kind", "applied"})

	Commands = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "arkmap",
		Subsystem: "view",
		Name:      "commands_total",
		Help:      "View commands executed",
	}, []string{"command"})

	ActiveViews = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "arkmap",
		Subsystem: "runner",
		Name:      "active_views",
		Help:      "Currently mounted map views",
	})

	ViewsEvicted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "arkmap",
		Subsystem: "runner",
		Name:      "views_evicted_total",
		Help:      "Views unmounted by the runner, by reason",
	}, []string{"reason"})

	CatalogLoads = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "arkmap",
		Subsystem: "runner",
		Name:      "catalog_loads_total",
		Help:      "Catalog lookups, by result",
	}, []string{"result"})

	ActiveWebSockets = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "arkmap",
		Subsystem: "ws",
		Name:      "active_connections",
		Help:      "Current number of active WebSocket connections",
	})
)

// ObserveLayout records one layout computation.
func ObserveLayout(d time.Duration, clusters int) {
	LayoutDuration.Observe(d.Seconds())
	LayoutClusters.Observe(float64(clusters))
}

// Middleware records request metrics.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		method := c.Request.Method
		status := strconv.Itoa(c.Writer.Status())

		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpRequestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	}
}

// Handler serves the Prometheus /metrics endpoint.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
