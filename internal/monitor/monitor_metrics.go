package monitor

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// ScansTotal counts completed scans by resulting risk level.
	ScansTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bridgewatch",
			Name:      "scans_total",
			Help:      "Total bridge scans completed by risk level.",
		},
		[]string{"risk_level"},
	)

	// ScanDuration observes end-to-end scan latency.
	ScanDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "bridgewatch",
			Name:      "scan_duration_seconds",
			Help:      "Bridge scan duration in seconds.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5},
		},
	)

	// SignatureValidationsTotal counts signature validations by outcome.
	SignatureValidationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bridgewatch",
			Name:      "signature_validations_total",
			Help:      "Total signature validations by outcome.",
		},
		[]string{"result"},
	)

	// ForgeryIndicatorsTotal counts raised forgery indicators by name.
	ForgeryIndicatorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bridgewatch",
			Name:      "forgery_indicators_total",
			Help:      "Total forgery indicators raised by indicator name.",
		},
		[]string{"indicator"},
	)

	// AttackMatchesTotal counts attack pattern matches by pattern name.
	AttackMatchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bridgewatch",
			Name:      "attack_matches_total",
			Help:      "Total attack pattern matches by pattern.",
		},
		[]string{"pattern"},
	)

	// ReplayCacheEntries tracks the current replay cache size.
	ReplayCacheEntries = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "bridgewatch",
			Name:      "replay_cache_entries",
			Help:      "Current number of replay cache entries.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		ScansTotal,
		ScanDuration,
		SignatureValidationsTotal,
		ForgeryIndicatorsTotal,
		AttackMatchesTotal,
		ReplayCacheEntries,
	)
}
