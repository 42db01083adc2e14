package engine

import "github.com/prometheus/client_golang/prometheus"

// Completion source label values.
const (
	sourceTimer  = "timer"
	sourceUpdate = "update"
)

var (
	tasksCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tasker_tasks_created_total",
			Help: "Total number of tasks created.",
		},
	)

	tasksCompleted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tasker_tasks_completed_total",
			Help: "Total number of transitions to completed, by source.",
		},
		[]string{"source"},
	)

	completionsAbandoned = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tasker_completions_abandoned_total",
			Help: "Deferred completions dropped because the task no longer existed.",
		},
	)

	pendingCompletions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "tasker_pending_completions",
			Help: "Number of armed completion timers that have not fired yet.",
		},
	)
)

func init() {
	prometheus.MustRegister(tasksCreated)
	prometheus.MustRegister(tasksCompleted)
	prometheus.MustRegister(completionsAbandoned)
	prometheus.MustRegister(pendingCompletions)

	tasksCompleted.WithLabelValues(sourceTimer)
	tasksCompleted.WithLabelValues(sourceUpdate)
}
