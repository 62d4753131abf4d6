package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// MatchingMetrics tracks outcomes of matching runs. A nil receiver is a no-op
// so services can run without a registry in tests.
type MatchingMetrics struct {
	runs          *prometheus.CounterVec
	matches       prometheus.Counter
	skips         *prometheus.CounterVec
	applyFailures prometheus.Counter
	emailFailures prometheus.Counter
	rentals       *prometheus.CounterVec
}

// NewMatchingMetrics registers matching metrics on reg.
func NewMatchingMetrics(reg prometheus.Registerer) *MatchingMetrics {
	if reg == nil {
		return &MatchingMetrics{}
	}
	m := &MatchingMetrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "matching",
			Name:      "runs_total",
			Help:      "Matching runs by mode.",
		}, []string{"mode"}),
		matches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "matching",
			Name:      "matches_created_total",
			Help:      "Booking matches persisted.",
		}),
		skips: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "matching",
			Name:      "bookings_skipped_total",
			Help:      "Bookings skipped by reason.",
		}, []string{"reason"}),
		applyFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "matching",
			Name:      "apply_failures_total",
			Help:      "Match plans that failed to persist.",
		}),
		emailFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "matching",
			Name:      "owner_email_failures_total",
			Help:      "Owner match emails that failed to send.",
		}),
		rentals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rentals",
			Name:      "ensured_total",
			Help:      "Rentals ensured for accepted matches by outcome.",
		}, []string{"outcome"}),
	}
	reg.MustRegister(m.runs, m.matches, m.skips, m.applyFailures, m.emailFailures, m.rentals)
	return m
}

func (m *MatchingMetrics) IncRun(dryRun bool) {
	if m == nil || m.runs == nil {
		return
	}
	mode := "live"
	if dryRun {
		mode = "dry_run"
	}
	m.runs.WithLabelValues(mode).Inc()
}

func (m *MatchingMetrics) AddMatches(n int) {
	if m == nil || m.matches == nil || n <= 0 {
		return
	}
	m.matches.Add(float64(n))
}

func (m *MatchingMetrics) IncSkip(reason string) {
	if m == nil || m.skips == nil {
		return
	}
	m.skips.WithLabelValues(normalizeLabel(reason)).Inc()
}

func (m *MatchingMetrics) IncApplyFailure() {
	if m == nil || m.applyFailures == nil {
		return
	}
	m.applyFailures.Inc()
}

func (m *MatchingMetrics) IncEmailFailure() {
	if m == nil || m.emailFailures == nil {
		return
	}
	m.emailFailures.Inc()
}

// IncRental records "created" or "updated".
func (m *MatchingMetrics) IncRental(outcome string) {
	if m == nil || m.rentals == nil {
		return
	}
	m.rentals.WithLabelValues(normalizeLabel(outcome)).Inc()
}
