package policymodule

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	decisionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "playadvisor",
		Name:      "decisions_total",
		Help:      "Playback policy decisions by preferred method.",
	}, []string{"method"})

	deferralsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "playadvisor",
		Name:      "deferrals_total",
		Help:      "Decisions deferred to the default policy on low confidence.",
	})

	ruleFaultsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "playadvisor",
		Name:      "rule_faults_total",
		Help:      "Compatibility rules isolated after a panic.",
	}, []string{"rule"})

	outcomesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "playadvisor",
		Name:      "outcomes_total",
		Help:      "Playback outcomes applied to the learning loop by class.",
	}, []string{"class"})

	recalibrationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "playadvisor",
		Name:      "recalibrations_total",
		Help:      "Bulk client recalibrations performed.",
	})

	decisionConfidence = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "playadvisor",
		Name:      "decision_confidence",
		Help:      "Confidence of returned (non-default) policies.",
		Buckets:   prometheus.LinearBuckets(0.4, 0.05, 13),
	})
)

func recordDecision(policy PlaybackPolicy) {
	method := "transcode"
	switch {
	case policy.AllowDirectPlay:
		method = "direct_play"
	case policy.AllowDirectStream:
		method = "direct_stream"
	}
	decisionsTotal.WithLabelValues(method).Inc()
	decisionConfidence.Observe(policy.Confidence)
}

func recordDeferral() {
	deferralsTotal.Inc()
}

func recordRuleFault(rule string) {
	ruleFaultsTotal.WithLabelValues(rule).Inc()
}

func recordLearningUpdate(class OutcomeClass) {
	outcomesTotal.WithLabelValues(string(class)).Inc()
}

func recordRecalibration() {
	recalibrationsTotal.Inc()
}
