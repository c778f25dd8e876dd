package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks registrations, issued identifiers and the booking flow.
// All methods are safe on a nil receiver so tests can omit metrics.
type Metrics struct {
	Registrations     *prometheus.CounterVec
	IdentifiersIssued *prometheus.CounterVec
	OTPSent           prometheus.Counter
	Bookings          prometheus.Counter
	RegisterDuration  prometheus.Histogram
}

// New registers all metrics on reg. Pass prometheus.NewRegistry() in tests to
// avoid duplicate registration panics.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Registrations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "docto_registrations_total",
			Help: "Registration attempts by entity kind and outcome",
		}, []string{"kind", "outcome"}),
		IdentifiersIssued: f.NewCounterVec(prometheus.CounterOpts{
			Name: "docto_identifiers_issued_total",
			Help: "Identifiers issued by entity kind and scheme",
		}, []string{"kind", "scheme"}),
		OTPSent: f.NewCounter(prometheus.CounterOpts{
			Name: "docto_otp_sent_total",
			Help: "One-time passwords sent to patients",
		}),
		Bookings: f.NewCounter(prometheus.CounterOpts{
			Name: "docto_bookings_total",
			Help: "Bookings submitted through clinic QR codes",
		}),
		RegisterDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "docto_register_duration_seconds",
			Help:    "Duration of doctor registration including password hashing",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
	}
}

func (m *Metrics) Registration(kind, outcome string) {
	if m == nil {
		return
	}
	m.Registrations.WithLabelValues(kind, outcome).Inc()
}

func (m *Metrics) IdentifierIssued(kind, scheme string) {
	if m == nil {
		return
	}
	m.IdentifiersIssued.WithLabelValues(kind, scheme).Inc()
}

func (m *Metrics) IncrementOTPSent() {
	if m == nil {
		return
	}
	m.OTPSent.Inc()
}

func (m *Metrics) IncrementBookings() {
	if m == nil {
		return
	}
	m.Bookings.Inc()
}

// ObserveRegister records the duration of a registration.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveRegister(start time.Time) {
	if m == nil {
		return
	}
	m.RegisterDuration.Observe(time.Since(start).Seconds())
}
