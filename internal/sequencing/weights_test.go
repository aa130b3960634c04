package sequencing

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Lauraredmond/pilates-class-generator-sub000/internal/domain"
)

func TestComputeUsageWeightsUnseenMovements(t *testing.T) {
	now := time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)
	weights := ComputeUsageWeights(nil, testCatalog(), now)
	require.Len(t, weights, len(testCatalog()))
	for id, w := range weights {
		require.Equal(t, UnseenMovementWeight, w, id)
	}
}

func TestComputeUsageWeightsFavoursStaleMovements(t *testing.T) {
	now := time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)
	history := []domain.UsageRecord{
		{UserID: "u1", MovementID: "hundred", SessionID: "s1", SessionAt: time.Date(2025, time.March, 1, 9, 0, 0, 0, time.UTC)},
		{UserID: "u1", MovementID: "hundred", SessionID: "s2", SessionAt: time.Date(2025, time.March, 7, 23, 0, 0, 0, time.UTC)},
		{UserID: "u1", MovementID: "swan", SessionID: "s2", SessionAt: time.Date(2025, time.March, 7, 23, 0, 0, 0, time.UTC)},
		{UserID: "u1", MovementID: "saw", SessionID: "s3", SessionAt: time.Date(2025, time.March, 10, 8, 0, 0, 0, time.UTC)},
		{UserID: "u1", MovementID: "roll-up", SessionID: "s4", SessionAt: time.Date(2025, time.February, 8, 8, 0, 0, 0, time.UTC)},
	}
	weights := ComputeUsageWeights(history, testCatalog(), now)

	// hundred: 2 of 4 classes, last seen 3 days ago.
	require.InDelta(t, math.Pow(4, 2)/math.Pow(51, 1.5), weights["hundred"], 1e-9)
	// saw: used today.
	require.InDelta(t, 1/math.Pow(26, 1.5), weights["saw"], 1e-9)
	require.Greater(t, weights["roll-up"], weights["swan"])
	require.Equal(t, UnseenMovementWeight, weights["teaser"])
}

func TestComputeUsageWeightsClampsFutureSessions(t *testing.T) {
	now := time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)
	history := []domain.UsageRecord{
		{UserID: "u1", MovementID: "swan", SessionID: "s1", SessionAt: now.Add(72 * time.Hour)},
	}
	weights := ComputeUsageWeights(history, testCatalog(), now)
	require.InDelta(t, 1/math.Pow(101, 1.5), weights["swan"], 1e-12)
}

func TestDistinctSessions(t *testing.T) {
	at := time.Date(2025, time.March, 1, 9, 0, 0, 0, time.UTC)
	history := []domain.UsageRecord{
		{MovementID: "a", SessionID: "s1", SessionAt: at},
		{MovementID: "b", SessionID: "s1", SessionAt: at},
		{MovementID: "a", SessionID: "s2", SessionAt: at},
		{MovementID: "c", SessionAt: at.Add(time.Hour)},
	}
	require.Equal(t, 3, DistinctSessions(history))
	require.Zero(t, DistinctSessions(nil))
}

func TestApplyFoundationalBoost(t *testing.T) {
	weights := map[string]float64{"hundred": 2, "swan": 5}
	ApplyFoundationalBoost(weights, "hundred")
	require.Equal(t, 6.0, weights["hundred"])
	require.Equal(t, 5.0, weights["swan"])

	ApplyFoundationalBoost(weights, "missing")
	ApplyFoundationalBoost(weights, "")
	require.Len(t, weights, 2)
}
