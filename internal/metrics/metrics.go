// Package metrics registers Prometheus instruments: HTTP request counters
// and latency histograms plus a collector over the database pool counters.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	requestCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "teledash_http_requests_total",
		Help: "Total HTTP requests served",
	}, []string{"method", "path", "status"})

	responseTime = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "teledash_http_response_time_seconds",
		Help:    "HTTP request latency in seconds",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"method", "path", "status"})

	cacheHits = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "teledash_stats_cache_hits_total",
		Help: "Stats responses served from the memoized first page",
	})

	cacheMisses = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "teledash_stats_cache_misses_total",
		Help: "Stats requests that had to query the store",
	})
)

// Init registers all instruments with the default registry.
func Init() {
	prometheus.MustRegister(requestCounter)
	prometheus.MustRegister(responseTime)
	prometheus.MustRegister(cacheHits)
	prometheus.MustRegister(cacheMisses)
}

// RecordCacheHit counts a stats response served without touching the store.
func RecordCacheHit() { cacheHits.Inc() }

// RecordCacheMiss counts a stats response computed from the store.
func RecordCacheMiss() { cacheMisses.Inc() }

// Middleware instruments every request by method, route and status.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		requestCounter.WithLabelValues(c.Request.Method, path, status).Inc()
		responseTime.WithLabelValues(c.Request.Method, path, status).Observe(time.Since(start).Seconds())
	}
}

// Handler serves the /metrics endpoint.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}

// PoolCollector exports the pgx pool counters on each scrape.
type PoolCollector struct {
	stat func() *pgxpool.Stat

	totalConns     *prometheus.Desc
	idleConns      *prometheus.Desc
	acquiredConns  *prometheus.Desc
	emptyAcquires  *prometheus.Desc
	acquireCount   *prometheus.Desc
	acquireSeconds *prometheus.Desc
}

// NewPoolCollector builds a collector over the given stat snapshot func and
// registers it with the default registry.
func NewPoolCollector(stat func() *pgxpool.Stat) *PoolCollector {
	pc := &PoolCollector{
		stat: stat,
		totalConns: prometheus.NewDesc(
			"teledash_db_pool_total_conns", "Connections currently in the pool", nil, nil),
		idleConns: prometheus.NewDesc(
			"teledash_db_pool_idle_conns", "Idle connections in the pool", nil, nil),
		acquiredConns: prometheus.NewDesc(
			"teledash_db_pool_acquired_conns", "Connections currently checked out", nil, nil),
		emptyAcquires: prometheus.NewDesc(
			"teledash_db_pool_empty_acquires_total", "Acquires that had to wait for a free connection", nil, nil),
		acquireCount: prometheus.NewDesc(
			"teledash_db_pool_acquires_total", "Total connection acquires", nil, nil),
		acquireSeconds: prometheus.NewDesc(
			"teledash_db_pool_acquire_seconds_total", "Total time spent acquiring connections", nil, nil),
	}
	prometheus.MustRegister(pc)
	return pc
}

func (pc *PoolCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- pc.totalConns
	ch <- pc.idleConns
	ch <- pc.acquiredConns
	ch <- pc.emptyAcquires
	ch <- pc.acquireCount
	ch <- pc.acquireSeconds
}

func (pc *PoolCollector) Collect(ch chan<- prometheus.Metric) {
	s := pc.stat()
	ch <- prometheus.MustNewConstMetric(pc.totalConns, prometheus.GaugeValue, float64(s.TotalConns()))
	ch <- prometheus.MustNewConstMetric(pc.idleConns, prometheus.GaugeValue, float64(s.IdleConns()))
	ch <- prometheus.MustNewConstMetric(pc.acquiredConns, prometheus.GaugeValue, float64(s.AcquiredConns()))
	ch <- prometheus.MustNewConstMetric(pc.emptyAcquires, prometheus.CounterValue, float64(s.EmptyAcquireCount()))
	ch <- prometheus.MustNewConstMetric(pc.acquireCount, prometheus.CounterValue, float64(s.AcquireCount()))
	ch <- prometheus.MustNewConstMetric(pc.acquireSeconds, prometheus.CounterValue, s.AcquireDuration().Seconds())
}
