// Package metrics holds the Prometheus collectors for the realtime core.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "realtime"

type Metrics struct {
	liveConnections prometheus.Gauge
	handshakes      *prometheus.CounterVec // result: accepted, anonymous, malformed, revoked, invalid, error
	pushes          *prometheus.CounterVec // queue, result: delivered, failed
	dropped         *prometheus.CounterVec // topic; no live session for the recipient
	publishFailures *prometheus.CounterVec // topic
	subscriberErrs  *prometheus.CounterVec // topic, reason: decode, routing, panic
	httpDuration    *prometheus.HistogramVec
	httpRequests    *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		liveConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "live_connections",
			Help:      "Authenticated connections currently registered.",
		}),
		handshakes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "handshakes_total",
			Help:      "Connection handshakes by outcome.",
		}, []string{"result"}),
		pushes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pushes_total",
			Help:      "Frames pushed to live connections.",
		}, []string{"queue", "result"}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dropped_total",
			Help:      "Broker events with no live session for the recipient.",
		}, []string{"topic"}),
		publishFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_failures_total",
			Help:      "Broker publishes that failed after the entity was stored.",
		}, []string{"topic"}),
		subscriberErrs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "subscriber_errors_total",
			Help:      "Broker events the subscriber could not route.",
		}, []string{"topic", "reason"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		}, []string{"path", "method", "status"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"path", "method", "status"}),
	}
	for _, c := range []prometheus.Collector{
		m.liveConnections, m.handshakes, m.pushes, m.dropped,
		m.publishFailures, m.subscriberErrs, m.httpDuration, m.httpRequests,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) SetLiveConnections(n int) {
	if m == nil {
		return
	}
	m.liveConnections.Set(float64(n))
}

func (m *Metrics) Handshake(result string) {
	if m == nil {
		return
	}
	m.handshakes.WithLabelValues(result).Inc()
}

func (m *Metrics) Push(queue string, ok bool) {
	if m == nil {
		return
	}
	result := "delivered"
	if !ok {
		result = "failed"
	}
	m.pushes.WithLabelValues(queue, result).Inc()
}

func (m *Metrics) Dropped(topic string) {
	if m == nil {
		return
	}
	m.dropped.WithLabelValues(topic).Inc()
}

func (m *Metrics) PublishFailed(topic string) {
	if m == nil {
		return
	}
	m.publishFailures.WithLabelValues(topic).Inc()
}

func (m *Metrics) SubscriberError(topic, reason string) {
	if m == nil {
		return
	}
	m.subscriberErrs.WithLabelValues(topic, reason).Inc()
}

func (m *Metrics) ObserveHTTP(path, method, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpDuration.WithLabelValues(path, method, status).Observe(elapsed.Seconds())
	m.httpRequests.WithLabelValues(path, method, status).Inc()
}
