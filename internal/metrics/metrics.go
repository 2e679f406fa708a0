// Package metrics holds the Prometheus collectors of the processing core.
// All methods are safe on a nil *Metrics, which records nothing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"loanops/internal/breaker"
	"loanops/internal/model"
)

// Job outcome labels.
const (
	OutcomeCreated = "created"
	OutcomeReused  = "reused"
	OutcomeRetried = "retried"
	OutcomeSkipped = "skipped"
)

type Metrics struct {
	stageTransitions  *prometheus.CounterVec
	jobs              *prometheus.CounterVec
	jobCompletions    *prometheus.CounterVec
	breakerState      *prometheus.GaugeVec
	breakerRejections *prometheus.CounterVec
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		stageTransitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "processing_stage_transitions_total",
				Help: "Persisted processing stage changes.",
			},
			[]string{"from", "to"},
		),
		jobs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "processing_jobs_total",
				Help: "Job creation attempts by kind and outcome.",
			},
			[]string{"kind", "outcome"},
		),
		jobCompletions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "processing_job_results_total",
				Help: "Job results reported by workers.",
			},
			[]string{"kind", "status"},
		),
		breakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "circuit_breaker_state",
				Help: "Circuit breaker state (0 closed, 1 open, 2 half-open).",
			},
			[]string{"name"},
		),
		breakerRejections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "circuit_breaker_rejections_total",
				Help: "Calls rejected because the breaker was open.",
			},
			[]string{"name"},
		),
	}

	for _, c := range []prometheus.Collector{
		m.stageTransitions, m.jobs, m.jobCompletions, m.breakerState, m.breakerRejections,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) StageTransition(from, to model.ProcessingStage) {
	if m == nil {
		return
	}
	m.stageTransitions.WithLabelValues(string(from), string(to)).Inc()
}

func (m *Metrics) JobCreation(kind, outcome string) {
	if m == nil {
		return
	}
	m.jobs.WithLabelValues(kind, outcome).Inc()
}

func (m *Metrics) JobResult(kind string, status model.JobStatus) {
	if m == nil {
		return
	}
	m.jobCompletions.WithLabelValues(kind, string(status)).Inc()
}

func (m *Metrics) BreakerRejected(name string) {
	if m == nil {
		return
	}
	m.breakerRejections.WithLabelValues(name).Inc()
}

// ObserveBreaker is a breaker.Observer that mirrors state into the gauge.
func (m *Metrics) ObserveBreaker(name string, _, to breaker.State) {
	if m == nil {
		return
	}
	m.breakerState.WithLabelValues(name).Set(float64(to))
}
