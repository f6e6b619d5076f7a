// Package metrics exposes Prometheus instruments for enrollment admission.
package metrics

import (
	"github.com/Shivanand-hulikatti/volunteer-enrollment/internal/model"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "enrollment"

// OutcomeEnrolled labels accepted enrollment attempts; rejected attempts are
// labelled with their error kind.
const OutcomeEnrolled = "enrolled"

// Metrics holds the enrollment instruments. A nil *Metrics records nothing.
type Metrics struct {
	attempts    *prometheus.CounterVec
	transitions *prometheus.CounterVec
	groups      prometheus.Counter
	groupSize   prometheus.Histogram
}

// New creates the instruments and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "attempts_total",
			Help:      "Enrollment attempts by outcome.",
		}, []string{"outcome"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "status_transitions_total",
			Help:      "Applied enrollment status transitions by target status.",
		}, []string{"to"}),
		groups: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "group_registrations_total",
			Help:      "Group registration calls.",
		}),
		groupSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "group_size",
			Help:      "Participants per group registration call.",
			Buckets:   []float64{1, 2, 3, 4, 5, 8, 13, 21},
		}),
	}
	reg.MustRegister(m.attempts, m.transitions, m.groups, m.groupSize)
	return m
}

// ObserveEnrollment records the outcome of one CreateEnrollment call.
func (m *Metrics) ObserveEnrollment(err error) {
	if m == nil {
		return
	}
	outcome := OutcomeEnrolled
	if err != nil {
		outcome = string(model.KindOf(err))
	}
	m.attempts.WithLabelValues(outcome).Inc()
}

// ObserveTransition records an applied status change.
func (m *Metrics) ObserveTransition(to model.Status) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(string(to)).Inc()
}

// ObserveGroup records one group registration of the given size.
func (m *Metrics) ObserveGroup(size int) {
	if m == nil {
		return
	}
	m.groups.Inc()
	m.groupSize.Observe(float64(size))
}
