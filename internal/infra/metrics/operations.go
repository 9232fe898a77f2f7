package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(usersProcessedTotal, operationsTotal) }

var (
	usersProcessedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "users_processed_total",
			Help: "Users touched by bulk operations, labeled by outcome.",
		},
		[]string{"operation", "result"}, // result: updated, deleted, skipped, failed, dry_run
	)

	operationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bulk_operations_total",
			Help: "Bulk operations run, labeled by final status.",
		},
		[]string{"operation", "status"}, // status: ok, partial, error
	)
)

func AddUsersProcessed(operation, result string, n int) {
	if n <= 0 {
		return
	}
	usersProcessedTotal.WithLabelValues(norm(operation), norm(result)).Add(float64(n))
}

func IncOperation(operation, status string) {
	operationsTotal.WithLabelValues(norm(operation), norm(status)).Inc()
}
