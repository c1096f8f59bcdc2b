// Package metrics exposes Prometheus collectors for the sync pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SyncAccounts counts per-account sync outcomes.
	SyncAccounts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mailhub_sync_accounts_total",
			Help: "Accounts processed by sync, by outcome",
		},
		[]string{"status"}, // status: ok, fetch_failed
	)

	// SyncDuration observes the duration of a full sync pass.
	SyncDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "mailhub_sync_duration_seconds",
			Help:    "Duration of a full sync pass in seconds",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12), // 50ms to ~100s
		},
	)

	// MessagesClassified counts classification results by category.
	MessagesClassified = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mailhub_messages_classified_total",
			Help: "Messages classified, by category",
		},
		[]string{"category"},
	)

	// ClassificationFailures counts messages whose classification failed.
	ClassificationFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mailhub_classification_failures_total",
			Help: "Messages left unclassified because the provider failed",
		},
	)

	// MessagesDropped counts promotional messages discarded by auto-delete.
	MessagesDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mailhub_messages_dropped_total",
			Help: "Promotional messages dropped before storage",
		},
	)

	// MessagesStored counts messages newly inserted into the store.
	MessagesStored = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mailhub_messages_stored_total",
			Help: "Messages inserted by the deduplicating insert",
		},
	)

	// Notifications counts notification events emitted.
	Notifications = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mailhub_notifications_total",
			Help: "Notification events emitted during sync",
		},
	)

	// ProviderCallDuration observes classification provider latency.
	ProviderCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mailhub_provider_call_seconds",
			Help:    "Classification provider call latency in seconds",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms to ~25s
		},
		[]string{"provider", "status"}, // status: ok, error
	)
)

// RecordProviderCall records the latency of one provider request.
func RecordProviderCall(provider, status string, duration time.Duration) {
	ProviderCallDuration.WithLabelValues(provider, status).Observe(duration.Seconds())
}

// RecordAccount records the outcome of syncing one account.
func RecordAccount(status string) {
	SyncAccounts.WithLabelValues(status).Inc()
}

// RecordClassified records one classification result.
func RecordClassified(category string) {
	MessagesClassified.WithLabelValues(category).Inc()
}
