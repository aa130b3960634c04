package sequencing

import (
	"math"
	"time"

	"github.com/Lauraredmond/pilates-class-generator-sub000/internal/domain"
)

const (
	// UnseenMovementWeight is assigned to movements absent from the usage ledger.
	UnseenMovementWeight = 1e9

	// FoundationalBoost multiplies the foundational movement weight for beginners.
	FoundationalBoost = 3.0

	// BeginnerSessionThreshold is the class count below which a user counts as a beginner.
	BeginnerSessionThreshold = 10
)

type movementUsage struct {
	sessions map[string]struct{}
	lastUsed time.Time
}

// DistinctSessions counts the classes present in a usage ledger.
func DistinctSessions(history []domain.UsageRecord) int {
	sessions := make(map[string]struct{})
	for _, record := range history {
		sessions[record.SessionKey()] = struct{}{}
	}
	return len(sessions)
}

// ComputeUsageWeights scores candidates so that stale and rarely used movements are preferred.
func ComputeUsageWeights(history []domain.UsageRecord, candidates []domain.Movement, now time.Time) map[string]float64 {
	usage := make(map[string]*movementUsage)
	allSessions := make(map[string]struct{})
	for _, record := range history {
		key := record.SessionKey()
		allSessions[key] = struct{}{}
		entry, ok := usage[record.MovementID]
		if !ok {
			entry = &movementUsage{sessions: make(map[string]struct{})}
			usage[record.MovementID] = entry
		}
		entry.sessions[key] = struct{}{}
		if record.SessionAt.After(entry.lastUsed) {
			entry.lastUsed = record.SessionAt
		}
	}

	totalClasses := len(allSessions)
	weights := make(map[string]float64, len(candidates))
	for _, movement := range candidates {
		entry, ok := usage[movement.ID]
		if !ok || totalClasses == 0 {
			weights[movement.ID] = UnseenMovementWeight
			continue
		}
		usagePercentage := 100 * float64(len(entry.sessions)) / float64(totalClasses)
		days := float64(calendarDaysBetween(entry.lastUsed, now))
		weights[movement.ID] = math.Pow(days+1, 2) / math.Pow(usagePercentage+1, 1.5)
	}
	return weights
}

// ApplyFoundationalBoost triples the weight of the foundational movement in place.
func ApplyFoundationalBoost(weights map[string]float64, foundationalID string) {
	if foundationalID == "" {
		return
	}
	if weight, ok := weights[foundationalID]; ok {
		weights[foundationalID] = weight * FoundationalBoost
	}
}

// calendarDaysBetween counts UTC date boundaries from then to now, never negative.
func calendarDaysBetween(then, now time.Time) int {
	start := truncateDay(then)
	end := truncateDay(now)
	days := int(end.Sub(start).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
