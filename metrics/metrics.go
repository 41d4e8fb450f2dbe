package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Step outcome label values
const (
	OutcomeSuccess  = "success"
	OutcomeFailed   = "failed"
	OutcomeNonFatal = "non_fatal"
)

var (
	StepDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "launchseq_step_duration_seconds",
			Help:    "Time taken by each bootstrap step",
			Buckets: []float64{.001, .005, .01, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"step"},
	)

	StepOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "launchseq_step_outcomes_total",
			Help: "Total number of bootstrap step executions by outcome",
		},
		[]string{"step", "outcome"},
	)

	LaunchOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "launchseq_launch_outcomes_total",
			Help: "Total number of bootstrap runs by final status",
		},
		[]string{"status"},
	)

	JournalWriteFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "launchseq_journal_write_failures_total",
			Help: "Total number of launch journal write failures",
		},
	)
)
