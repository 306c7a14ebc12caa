package workflow

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	executionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "galleryflow_workflow_executions_total",
		Help: "Workflow executions by operation and outcome.",
	}, []string{"operation", "outcome"})

	compensationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "galleryflow_workflow_compensations_total",
		Help: "Compensation passes after fatal step failures, by final status.",
	}, []string{"operation", "status"})

	softFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "galleryflow_workflow_soft_failures_total",
		Help: "Non-fatal step failures that were logged and skipped.",
	}, []string{"operation", "step"})
)
