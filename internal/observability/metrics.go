package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	sequencesGenerated = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "class_sequencer",
		Subsystem: "engine",
		Name:      "sequences_generated_total",
		Help:      "Generated class sequences partitioned by difficulty and build outcome.",
	}, []string{"difficulty", "outcome"})
	sequenceMovements = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "class_sequencer",
		Subsystem: "engine",
		Name:      "sequence_movements",
		Help:      "Number of movements placed per generated sequence.",
		Buckets:   []float64{1, 2, 3, 4, 6, 8, 10, 12, 16, 20},
	}, []string{"difficulty"})
	sequenceSafetyScore = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "class_sequencer",
		Subsystem: "engine",
		Name:      "sequence_safety_score",
		Help:      "Validator safety score of generated sequences.",
		Buckets:   []float64{0, 0.2, 0.4, 0.6, 0.8, 0.9, 0.95, 1},
	})
	lastGeneratedGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "class_sequencer",
		Subsystem: "engine",
		Name:      "last_sequence_generated_timestamp_seconds",
		Help:      "Unix timestamp of the most recently generated sequence.",
	})
	repositoryFallbacks = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "class_sequencer",
		Subsystem: "engine",
		Name:      "repository_fallbacks_total",
		Help:      "Collaborator failures replaced by a fallback, partitioned by collaborator.",
	}, []string{"repository"})
	qualityLogFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "class_sequencer",
		Subsystem: "quality",
		Name:      "log_failures_total",
		Help:      "Quality log writes that failed and were dropped.",
	})
	transitionCacheLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "class_sequencer",
		Subsystem: "cache",
		Name:      "transition_lookups_total",
		Help:      "Transition cache lookups partitioned by result.",
	}, []string{"result"})
	usageRecorded = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "class_sequencer",
		Subsystem: "persistence",
		Name:      "last_usage_recorded_timestamp_seconds",
		Help:      "Unix timestamp of the most recent usage ledger append.",
	})
)

func init() {
	prometheus.MustRegister(
		sequencesGenerated,
		sequenceMovements,
		sequenceSafetyScore,
		lastGeneratedGauge,
		repositoryFallbacks,
		qualityLogFailures,
		transitionCacheLookups,
		usageRecorded,
	)
}

// RecordSequenceGenerated tracks the shape of a generated sequence.
func RecordSequenceGenerated(difficulty, outcome string, movements int, safetyScore float64, ts time.Time) {
	sequencesGenerated.WithLabelValues(difficulty, outcome).Inc()
	sequenceMovements.WithLabelValues(difficulty).Observe(float64(movements))
	sequenceSafetyScore.Observe(safetyScore)
	if !ts.IsZero() {
		lastGeneratedGauge.Set(float64(ts.Unix()))
	}
}

// RecordRepositoryFallback counts a collaborator failure that was absorbed.
func RecordRepositoryFallback(repository string) {
	repositoryFallbacks.WithLabelValues(repository).Inc()
}

// RecordQualityLogFailure counts a dropped quality log write.
func RecordQualityLogFailure() {
	qualityLogFailures.Inc()
}

// RecordUsageAppended updates the usage ledger watermark gauge.
func RecordUsageAppended(ts time.Time) {
	if ts.IsZero() {
		return
	}
	usageRecorded.Set(float64(ts.Unix()))
}

// RecordTransitionCacheLookup counts a transition cache hit or miss.
func RecordTransitionCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	transitionCacheLookups.WithLabelValues(result).Inc()
}
