// Package observability provides metrics and tracing.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// StoreOperationDuration records store latency by operation and outcome.
	StoreOperationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "teamsemu_store_operation_duration_seconds",
		Help:    "Store operation latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "result"})

	// EntitiesCreated counts created posts and replies.
	EntitiesCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "teamsemu_entities_created_total",
		Help: "Total number of posts and replies created",
	}, []string{"kind"})

	// EntitiesDeleted counts deleted posts and replies, cascaded replies excluded.
	EntitiesDeleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "teamsemu_entities_deleted_total",
		Help: "Total number of posts and replies deleted",
	}, []string{"kind"})

	// RedisErrors counts Redis errors by command.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "teamsemu_redis_errors_total",
		Help: "Total number of Redis errors by command",
	}, []string{"command"})

	// RateLimitRejections counts requests rejected by the write limiter.
	RateLimitRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "teamsemu_rate_limit_rejections_total",
		Help: "Total number of requests rejected by the rate limiter",
	}, []string{"resource"})
)

// TrackStoreOperation returns a function that records the operation latency
// when called, labelled with the outcome of *errp.
func TrackStoreOperation(operation string, errp *error) func() {
	start := time.Now()
	return func() {
		result := "ok"
		if errp != nil && *errp != nil {
			result = "error"
		}
		StoreOperationDuration.WithLabelValues(operation, result).Observe(time.Since(start).Seconds())
	}
}
