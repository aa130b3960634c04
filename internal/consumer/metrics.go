package consumer

import "github.com/prometheus/client_golang/prometheus"

const (
	outcomeProcessed    = "processed"
	outcomeDeadLettered = "dead_lettered"
)

var (
	messagesCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "class_sequencer",
		Subsystem: "consumer",
		Name:      "events_total",
		Help:      "Sequence events committed by the usage consumer, by event type and outcome.",
	}, []string{"event_type", "outcome"})

	handlerErrorCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "class_sequencer",
		Subsystem: "consumer",
		Name:      "handler_errors_total",
		Help:      "Failed handler attempts, retries included, by event type.",
	}, []string{"event_type"})

	decodeErrorCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "class_sequencer",
		Subsystem: "consumer",
		Name:      "decode_errors_total",
		Help:      "Records without outbox framing or headers, by topic.",
	}, []string{"topic"})

	skippedCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "class_sequencer",
		Subsystem: "consumer",
		Name:      "messages_skipped_total",
		Help:      "Events acknowledged without producing usage records, by reason.",
	}, []string{"reason"})

	lastMessageGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "class_sequencer",
		Subsystem: "consumer",
		Name:      "last_message_timestamp_seconds",
		Help:      "Publish time of the latest handled event, by event type.",
	}, []string{"event_type"})
)

func init() {
	prometheus.MustRegister(messagesCounter, handlerErrorCounter, decodeErrorCounter, skippedCounter, lastMessageGauge)
}

func recordOutcome(msg Message, outcome string) {
	messagesCounter.WithLabelValues(msg.EventType, outcome).Inc()
	if outcome == outcomeProcessed && !msg.Timestamp.IsZero() {
		lastMessageGauge.WithLabelValues(msg.EventType).Set(float64(msg.Timestamp.Unix()))
	}
}

func recordHandlerError(msg Message) {
	handlerErrorCounter.WithLabelValues(msg.EventType).Inc()
}

func recordDecodeError(topic string) {
	decodeErrorCounter.WithLabelValues(topic).Inc()
}

func recordSkipped(reason string) {
	skippedCounter.WithLabelValues(reason).Inc()
}
