package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.SetLiveConnections(3)
		m.Handshake("accepted")
		m.Push("/user/queue/messages", true)
		m.Dropped("messaging")
		m.PublishFailed("messaging")
		m.SubscriberError("messaging", "decode")
		m.ObserveHTTP("/v1/messages", "POST", "201", time.Millisecond)
	})
}

func TestCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := New(reg)
	require.NoError(t, err)

	m.Handshake("revoked")
	m.Handshake("revoked")
	m.Push("/user/queue/notifications", false)
	m.SetLiveConnections(5)

	assert.Equal(t, 2.0, value(t, m.handshakes.WithLabelValues("revoked")))
	assert.Equal(t, 1.0, value(t, m.pushes.WithLabelValues("/user/queue/notifications", "failed")))
	assert.Equal(t, 5.0, value(t, m.liveConnections))
}

func TestNew_DoubleRegistrationFails(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := New(reg)
	require.NoError(t, err)
	_, err = New(reg)
	assert.Error(t, err)
}

func value(t *testing.T, c prometheus.Metric) float64 {
	t.Helper()
	var pb dto.Metric
	require.NoError(t, c.Write(&pb))
	if pb.Counter != nil {
		return pb.GetCounter().GetValue()
	}
	return pb.GetGauge().GetValue()
}
