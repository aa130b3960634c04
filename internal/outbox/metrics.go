package outbox

import "github.com/prometheus/client_golang/prometheus"

// Delivery outcomes of an outbox row.
const (
	outcomePublished    = "published"
	outcomeDeadLettered = "dead_lettered"
)

var (
	eventsCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "class_sequencer",
		Subsystem: "outbox",
		Name:      "events_total",
		Help:      "Sequence events drained from the outbox, by event type and delivery outcome.",
	}, []string{"event_type", "outcome"})

	batchDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "class_sequencer",
		Subsystem: "outbox",
		Name:      "batch_duration_seconds",
		Help:      "Time spent claiming, publishing and marking one outbox batch.",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10),
	})
)

func init() {
	prometheus.MustRegister(eventsCounter, batchDuration)
}

func recordOutcome(messages []Message, outcome string) {
	for _, msg := range messages {
		eventsCounter.WithLabelValues(msg.EventType, outcome).Inc()
	}
}
