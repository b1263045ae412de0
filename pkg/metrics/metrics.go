// Package metrics exposes Prometheus metrics for the HTTP layer and the
// activity feeds.
package metrics

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector owns a private registry so several collectors can coexist in
// one process (tests).
type Collector struct {
	registry *prometheus.Registry

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	activeRequests      prometheus.Gauge

	feedRequestsTotal *prometheus.CounterVec
	feedDocsReturned  *prometheus.HistogramVec
	activityEvents    *prometheus.CounterVec
	websocketClients  prometheus.GaugeFunc
}

func NewCollector(serviceName string, websocketClients func() int) *Collector {
	ns := strings.ReplaceAll(serviceName, "-", "_")
	reg := prometheus.NewRegistry()

	c := &Collector{
		registry: reg,

		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "endpoint", "status"}),
		httpRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),
		activeRequests: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: ns,
			Name:      "active_requests",
			Help:      "Number of in-flight HTTP requests",
		}),
		feedRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "feed_requests_total",
			Help:      "Feed queries by channel and outcome",
		}, []string{"channel", "status"}),
		feedDocsReturned: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns,
			Name:      "feed_docs_returned",
			Help:      "Matching activities per feed query before pagination",
			Buckets:   []float64{0, 1, 5, 10, 20, 50, 100, 250, 500},
		}, []string{"channel"}),
		activityEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "activity_events_total",
			Help:      "Activity events delivered to this instance, by type",
		}, []string{"type"}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		c.httpRequestsTotal,
		c.httpRequestDuration,
		c.activeRequests,
		c.feedRequestsTotal,
		c.feedDocsReturned,
		c.activityEvents,
	)
	if websocketClients != nil {
		c.websocketClients = prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: ns,
			Name:      "websocket_clients",
			Help:      "Open websocket connections",
		}, func() float64 { return float64(websocketClients()) })
		reg.MustRegister(c.websocketClients)
	}
	return c
}

// Middleware records request counts and latency per route.
func (c *Collector) Middleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()
		c.activeRequests.Inc()
		defer c.activeRequests.Dec()

		ctx.Next()

		endpoint := ctx.FullPath()
		if endpoint == "" {
			endpoint = "unknown"
		}
		method := ctx.Request.Method
		c.httpRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(ctx.Writer.Status())).Inc()
		c.httpRequestDuration.WithLabelValues(method, endpoint).Observe(time.Since(start).Seconds())
	}
}

func (c *Collector) Handler() gin.HandlerFunc {
	h := promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
	return func(ctx *gin.Context) {
		h.ServeHTTP(ctx.Writer, ctx.Request)
	}
}

// FeedServed records one feed query. err is the query error, if any.
func (c *Collector) FeedServed(channel string, matched int, err error) {
	if c == nil {
		return
	}
	if err != nil {
		c.feedRequestsTotal.WithLabelValues(channel, "error").Inc()
		return
	}
	c.feedRequestsTotal.WithLabelValues(channel, "ok").Inc()
	c.feedDocsReturned.WithLabelValues(channel).Observe(float64(matched))
}

func (c *Collector) ActivityEvent(activityType string) {
	if c == nil {
		return
	}
	c.activityEvents.WithLabelValues(activityType).Inc()
}

func (c *Collector) Registry() *prometheus.Registry { return c.registry }
