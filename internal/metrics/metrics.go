// Package metrics exposes watcher and API counters to Prometheus.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/example/lab-resource-manager/internal/notify"
)

// Collector records poll cycles and API traffic. It satisfies
// application.PollObserver.
type Collector struct {
	pollCycles           prometheus.Counter
	pollFailures         prometheus.Counter
	pollLatency          prometheus.Histogram
	events               *prometheus.CounterVec
	notificationFailures *prometheus.CounterVec
	httpRequests         *prometheus.CounterVec
}

// NewCollector registers every metric on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		pollCycles: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "labres_poll_cycles_total",
			Help: "Number of calendar poll cycles.",
		}),
		pollFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "labres_poll_failures_total",
			Help: "Number of poll cycles aborted by a fetch failure.",
		}),
		pollLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "labres_poll_latency_seconds",
			Help:    "Duration of a poll cycle including notifications.",
			Buckets: prometheus.DefBuckets,
		}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "labres_events_total",
			Help: "Reservation change events by kind.",
		}, []string{"kind"}),
		notificationFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "labres_notification_failures_total",
			Help: "Change events whose notification failed, by kind.",
		}, []string{"kind"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "labres_http_requests_total",
			Help: "API responses by method and status code.",
		}, []string{"method", "status_code"}),
	}

	reg.MustRegister(
		c.pollCycles,
		c.pollFailures,
		c.pollLatency,
		c.events,
		c.notificationFailures,
		c.httpRequests,
	)
	return c
}

// ObservePoll records one completed or aborted poll cycle.
func (c *Collector) ObservePoll(duration time.Duration, err error) {
	c.pollCycles.Inc()
	if err != nil {
		c.pollFailures.Inc()
	}
	c.pollLatency.Observe(duration.Seconds())
}

func (c *Collector) ObserveEvent(kind notify.Kind) {
	c.events.WithLabelValues(string(kind)).Inc()
}

func (c *Collector) ObserveNotificationFailure(kind notify.Kind) {
	c.notificationFailures.WithLabelValues(string(kind)).Inc()
}

// ObserveRequest records the status of one API response.
func (c *Collector) ObserveRequest(method string, statusCode int) {
	c.httpRequests.WithLabelValues(method, strconv.Itoa(statusCode)).Inc()
}

// Handler returns the scrape handler for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
