package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	loansIssuedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "loan_workflow_issued_total",
		Help: "Successfully issued loans",
	})

	loansReturnedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "loan_workflow_returned_total",
		Help: "Successfully returned loans",
	})

	loansExtendedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "loan_workflow_extended_total",
		Help: "Successfully extended loans",
	})

	compensationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "loan_workflow_compensations_total",
		Help: "Compensating availability adjustments after a failed workflow step",
	}, []string{"workflow", "outcome"})

	sweepMarkedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "loan_sweep_marked_overdue_total",
		Help: "Loans reclassified to OVERDUE by the sweeper",
	})

	sweepSkippedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "loan_sweep_skipped_stale_total",
		Help: "Sweep writes skipped because the loan changed concurrently",
	})
)
