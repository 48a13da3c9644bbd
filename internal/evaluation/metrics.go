package evaluation

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/fyrsmithlabs/claimd/internal/alignment"
	"github.com/fyrsmithlabs/claimd/internal/constraint"
)

var (
	// EvaluationsTotal counts claim verdicts.
	// Labels: decision (ACCEPTED, REJECTED)
	EvaluationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "claimd",
			Subsystem: "evaluation",
			Name:      "evaluations_total",
			Help:      "Total number of claim evaluations by decision",
		},
		[]string{"decision"},
	)

	// Duration tracks request latency.
	// Labels: operation (evaluate, analyze, score, index)
	Duration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "claimd",
			Subsystem: "evaluation",
			Name:      "duration_seconds",
			Help:      "Duration of evaluation service operations in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"operation"},
	)

	// ErrorsTotal counts failed operations.
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "claimd",
			Subsystem: "evaluation",
			Name:      "errors_total",
			Help:      "Total number of failed evaluation service operations",
		},
		[]string{"operation"},
	)

	// ConstraintsExtracted counts constraints by kind.
	ConstraintsExtracted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "claimd",
			Subsystem: "evaluation",
			Name:      "constraints_extracted_total",
			Help:      "Total number of policy constraints extracted by kind",
		},
		[]string{"kind"},
	)

	// Contradictions counts violated constraints by kind.
	Contradictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "claimd",
			Subsystem: "evaluation",
			Name:      "contradictions_total",
			Help:      "Total number of patient-policy contradictions by kind",
		},
		[]string{"kind"},
	)

	// EngineReloads counts vocabulary table swaps.
	EngineReloads = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "claimd",
			Subsystem: "evaluation",
			Name:      "engine_reloads_total",
			Help:      "Total number of decision engine reloads",
		},
	)
)

func observe(operation string, start time.Time, err error) {
	Duration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	if err != nil {
		ErrorsTotal.WithLabelValues(operation).Inc()
	}
}

func recordConstraints(constraints []constraint.Constraint, alignments []alignment.Alignment) {
	for _, c := range constraints {
		ConstraintsExtracted.WithLabelValues(string(c.Kind)).Inc()
	}
	for _, a := range alignments {
		if a.Contradiction {
			Contradictions.WithLabelValues(string(a.Constraint.Kind)).Inc()
		}
	}
}
