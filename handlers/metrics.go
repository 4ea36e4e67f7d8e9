package handlers

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics are the server's Prometheus instruments. A nil *Metrics records nothing.
type Metrics struct {
	requests         *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	votesInserted    prometheus.Counter
	voteConflicts    prometheus.Counter
	submissions      prometheus.Counter
	websocketClients prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "cryptid_http_requests_total",
			Help: "number of HTTP requests by route and status",
		}, []string{"method", "route", "status"}),
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cryptid_http_request_duration_seconds",
			Help:    "HTTP request latency by route",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		votesInserted: factory.NewCounter(prometheus.CounterOpts{
			Name: "cryptid_votes_inserted_total",
			Help: "number of votes stored",
		}),
		voteConflicts: factory.NewCounter(prometheus.CounterOpts{
			Name: "cryptid_vote_conflicts_total",
			Help: "number of votes rejected by the uniqueness constraint",
		}),
		submissions: factory.NewCounter(prometheus.CounterOpts{
			Name: "cryptid_submissions_total",
			Help: "number of sighting reports stored",
		}),
		websocketClients: factory.NewGauge(prometheus.GaugeOpts{
			Name: "cryptid_websocket_clients",
			Help: "number of connected tally subscribers",
		}),
	}
}

// Middleware records every request under its route template
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		if m == nil {
			return
		}
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := c.Request.Method
		m.requests.WithLabelValues(method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.requestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	}
}

func (m *Metrics) VoteInserted() {
	if m != nil {
		m.votesInserted.Inc()
	}
}

func (m *Metrics) VoteConflict() {
	if m != nil {
		m.voteConflicts.Inc()
	}
}

func (m *Metrics) SubmissionStored() {
	if m != nil {
		m.submissions.Inc()
	}
}

// SetWebsocketClients matches websocket.Hub.OnCountChanged
func (m *Metrics) SetWebsocketClients(n int) {
	if m != nil {
		m.websocketClients.Set(float64(n))
	}
}

// MetricsHandler serves the Prometheus exposition of g
func MetricsHandler(g prometheus.Gatherer) gin.HandlerFunc {
	return gin.WrapH(promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
}
