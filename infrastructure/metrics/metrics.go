// Package metrics exposes the process-wide Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// JobsStarted counts pipelines that have begun running
	JobsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tubecutter_jobs_started_total",
		Help: "Number of processing pipelines started.",
	})

	// JobsFinished counts pipelines by terminal status
	JobsFinished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tubecutter_jobs_finished_total",
		Help: "Number of processing pipelines finished, by terminal status.",
	}, []string{"status"})

	// SelectionsFinished counts selection extractions by terminal status
	SelectionsFinished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tubecutter_selections_finished_total",
		Help: "Number of selection extractions finished, by terminal status.",
	}, []string{"status"})

	// PushesDelivered counts notification pushes by delivery outcome
	PushesDelivered = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tubecutter_pushes_total",
		Help: "Number of notification pushes, by delivery outcome.",
	}, []string{"outcome"})
)
