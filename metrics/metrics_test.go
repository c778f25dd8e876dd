package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCountersAreRecorded(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.Registration("doctor", "success")
	m.Registration("doctor", "success")
	m.Registration("doctor", "DUPLICATE_EMAIL")
	m.IdentifierIssued("clinic", "counter")
	m.IncrementOTPSent()
	m.IncrementBookings()
	m.ObserveRegister(time.Now())

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Registrations.WithLabelValues("doctor", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Registrations.WithLabelValues("doctor", "DUPLICATE_EMAIL")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.IdentifiersIssued.WithLabelValues("clinic", "counter")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OTPSent))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Bookings))
}

func TestNilMetricsAreNoops(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Registration("doctor", "success")
		m.IdentifierIssued("doctor", "timestamp")
		m.IncrementOTPSent()
		m.IncrementBookings()
		m.ObserveRegister(time.Now())
	})
}
