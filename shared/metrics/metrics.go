package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "coliving"

var (
	assignments = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "assignments_total",
		Help:      "Room assignment decisions by result.",
	}, []string{"result"})

	ledgerUpdates = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ledger_updates_total",
		Help:      "Rent ledger transitions by kind and outcome.",
	}, []string{"kind", "outcome"})

	notifications = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notifications_total",
		Help:      "Rent notifications by kind and result.",
	}, []string{"kind", "result"})

	httpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)

func init() {
	prometheus.MustRegister(assignments, ledgerUpdates, notifications, httpDuration)
}

// Assignment records an occupancy decision ("accepted", "full", ...)
func Assignment(result string) {
	assignments.WithLabelValues(result).Inc()
}

// LedgerUpdate records a ledger transition
func LedgerUpdate(kind, outcome string) {
	ledgerUpdates.WithLabelValues(kind, outcome).Inc()
}

// Notification records a notification hand-off
func Notification(kind, result string) {
	notifications.WithLabelValues(kind, result).Inc()
}

// Middleware observes request durations per route
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		httpDuration.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}

// Handler serves the default registry
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
