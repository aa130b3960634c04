package outbox

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

// What happened to a dead letter.
const (
	actionParked      = "parked"
	actionReplayed    = "replayed"
	actionRescheduled = "rescheduled"
	actionQuarantined = "quarantined"
)

var (
	dlqEntriesCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "class_sequencer",
		Subsystem: "dlq",
		Name:      "entries_total",
		Help:      "Dead-lettered sequence events, by event type, failed stage and action taken.",
	}, []string{"event_type", "stage", "action"})

	dlqBacklogGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "class_sequencer",
		Subsystem: "dlq",
		Name:      "backlog",
		Help:      "Dead letters still awaiting replay, by event type and failed stage.",
	}, []string{"event_type", "stage"})
)

func init() {
	prometheus.MustRegister(dlqEntriesCounter, dlqBacklogGauge)
}

func recordDLQAction(eventType, stage, action string) {
	dlqEntriesCounter.WithLabelValues(eventType, stage, action).Inc()
}

// refreshBacklog replaces the backlog gauge with the current unquarantined counts.
func refreshBacklog(ctx context.Context, pool *pgxpool.Pool) {
	rows, err := pool.Query(ctx, `SELECT event_type, failed_stage, COUNT(*)
        FROM outbox_dlq
        WHERE quarantined_at IS NULL
        GROUP BY event_type, failed_stage`)
	if err != nil {
		return
	}
	defer rows.Close()

	dlqBacklogGauge.Reset()
	for rows.Next() {
		var (
			eventType, stage string
			count            int
		)
		if err := rows.Scan(&eventType, &stage, &count); err != nil {
			return
		}
		dlqBacklogGauge.WithLabelValues(eventType, stage).Set(float64(count))
	}
}
