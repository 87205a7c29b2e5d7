package search

import "github.com/prometheus/client_golang/prometheus"

// Round outcomes, used as the "outcome" label of donor_search_rounds_total.
const (
	OutcomeContinue  = "continue"
	OutcomeRetry     = "retry"
	OutcomeReinstate = "reinstate"
	OutcomeComplete  = "complete"
	OutcomeDeferred  = "deferred"
	OutcomeSatisfied = "satisfied"
	OutcomeInactive  = "inactive"
	OutcomeExpired   = "expired"
	OutcomeStale     = "stale"
	OutcomeError     = "error"
)

var (
	roundsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "donor_search_rounds_total",
			Help: "Search rounds processed, by outcome.",
		},
		[]string{"outcome"},
	)

	donorsNotified = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "donor_search_donors_notified_total",
			Help: "Donors selected and sent a notification.",
		},
	)

	dispatchFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "donor_search_dispatch_failures_total",
			Help: "Notifications the dispatcher failed to accept.",
		},
	)

	roundDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "donor_search_round_duration_seconds",
			Help:    "Wall time of one search round.",
			Buckets: prometheus.DefBuckets,
		},
	)

	searchesStarted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "donor_search_initiated_total",
			Help: "Searches started by request events, by reason (created|reopened).",
		},
		[]string{"reason"},
	)
)

func init() {
	prometheus.MustRegister(roundsTotal, donorsNotified, dispatchFailures, roundDuration, searchesStarted)
}
