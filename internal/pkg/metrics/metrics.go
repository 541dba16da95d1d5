package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ReconciliationDefaults counts fields that fell through every source and
	// were resolved from the default table.
	ReconciliationDefaults = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "carbooking_reconciliation_defaults_total",
		Help: "Reservation fields resolved from the default table, by field",
	}, []string{"field"})

	// Commits counts commit attempts by result.
	Commits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "carbooking_commits_total",
		Help: "Reservation commit attempts by result",
	}, []string{"result"})

	CommitDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "carbooking_commit_duration_seconds",
		Help:    "Backend round trip of a reservation commit",
		Buckets: prometheus.ExponentialBuckets(0.005, 2, 10),
	})

	// StagingWrites counts staging store writes by slot.
	StagingWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "carbooking_staging_writes_total",
		Help: "Staging store writes by slot and operation",
	}, []string{"slot", "op"})

	ProfileRefreshes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "carbooking_profile_refresh_total",
		Help: "Background profile refresh ticks by result",
	}, []string{"result"})
)
