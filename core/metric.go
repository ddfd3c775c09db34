package core

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/tabulae/txtabs/internal/utils"
)

func init() {
	utils.PromRegistry().MustRegister(
		receivedTxsCounter,
		knownTxsCounter,
		invalidTxsCounterVec,
		evictedTxsCounter,
		rejectedTxGauge,
		pendingTxGauge,
		queuedTxGauge,
		stagedTxGauge,
	)
}

var (
	receivedTxsCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "txtabs",
			Subsystem: "txPool",
			Name:      "received",
			Help:      "number of transactions received",
		},
	)

	knownTxsCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "txtabs",
			Subsystem: "txPool",
			Name:      "known",
			Help:      "number of known transactions received",
		},
	)

	invalidTxsCounterVec = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "txtabs",
			Subsystem: "txPool",
			Name:      "invalid",
			Help:      "transactions failed validation",
		},
		[]string{"err"},
	)

	evictedTxsCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "txtabs",
			Subsystem: "txPool",
			Name:      "evicted",
			Help:      "number of transactions evicted for inactivity",
		},
	)

	rejectedTxGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "txtabs",
			Subsystem: "txPool",
			Name:      "rejected",
			Help:      "number of rejected transactions retained in the wastebasket",
		},
	)

	pendingTxGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "txtabs",
			Subsystem: "txPool",
			Name:      "pending",
			Help:      "number of pending transactions",
		},
	)

	queuedTxGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "txtabs",
			Subsystem: "txPool",
			Name:      "queued",
			Help:      "number of queued transactions",
		},
	)

	stagedTxGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "txtabs",
			Subsystem: "txPool",
			Name:      "staged",
			Help:      "number of staged transactions",
		},
	)
)
