// Package services – saga metrics
//
// Counters tracking saga outcomes. Label cardinality is a fixed, small set
// of outcome strings so the series stay bounded.
package services

import "github.com/prometheus/client_golang/prometheus"

var (
	// transferSagas counts transfer-saga invocations by outcome:
	// completed, withdraw_failed, create_failed, compensated.
	transferSagas = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "transfer_sagas_total",
			Help: "Total number of transfer saga invocations by outcome.",
		},
		[]string{"outcome"},
	)

	// sagaCompensations counts compensating deposits by outcome:
	// applied, failed. A failed compensation is the alerting signal for
	// manual reconciliation.
	sagaCompensations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "saga_compensations_total",
			Help: "Total number of compensating deposits by outcome.",
		},
		[]string{"outcome"},
	)

	// depositClosures counts closure-saga results by outcome:
	// closed, replay, payout_failed.
	depositClosures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deposit_closures_total",
			Help: "Total number of closure saga invocations by outcome.",
		},
		[]string{"outcome"},
	)
)

func init() {
	prometheus.MustRegister(transferSagas, sagaCompensations, depositClosures)
}
