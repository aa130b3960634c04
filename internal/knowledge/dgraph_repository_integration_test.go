//go:build integration

package knowledge

import (
	"context"
	"io"
	"log"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Lauraredmond/pilates-class-generator-sub000/internal/cache"
	"github.com/Lauraredmond/pilates-class-generator-sub000/internal/domain"
	"github.com/Lauraredmond/pilates-class-generator-sub000/internal/sequencing"
	"github.com/Lauraredmond/pilates-class-generator-sub000/internal/testsupport"
)

func TestDgraphRepositorySeedListAndDelete(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	endpoint := testsupport.StartDgraph(ctx, t)

	catalog, err := DefaultCatalog()
	require.NoError(t, err)

	repo := NewDgraphRepository(endpoint, 10*time.Second)
	require.NoError(t, repo.Seed(ctx, catalog))

	want := make([]string, 0)
	for _, m := range catalog.Movements {
		if m.Difficulty <= domain.Beginner {
			want = append(want, m.ID)
		}
	}

	var got []string
	require.Eventually(t, func() bool {
		movements, err := repo.ListMovements(ctx, domain.Beginner, nil)
		if err != nil {
			return false
		}
		got = got[:0]
		for _, m := range movements {
			got = append(got, m.ID)
		}
		return len(got) == len(want)
	}, 30*time.Second, time.Second, "seeded movements not visible")
	require.Equal(t, want, got, "movements come back in catalog order")

	first := catalog.Movements[0]
	movements, err := repo.ListMovements(ctx, domain.Advanced, []string{first.ID})
	require.NoError(t, err)
	for _, m := range movements {
		require.NotEqual(t, first.ID, m.ID)
	}

	require.NotEmpty(t, catalog.Transitions)
	tr := catalog.Transitions[0]
	stored, err := repo.GetTransition(ctx, " "+tr.FromPosition+" ", tr.ToPosition)
	require.NoError(t, err)
	require.NotNil(t, stored)
	require.Equal(t, tr.Narrative, stored.Narrative)
	require.Equal(t, tr.DurationSeconds, stored.DurationSeconds)

	missing, err := repo.GetTransition(ctx, "nowhere", "elsewhere")
	require.NoError(t, err)
	require.Nil(t, missing)

	// Re-seeding must not duplicate nodes.
	require.NoError(t, repo.Seed(ctx, catalog))
	again, err := repo.ListMovements(ctx, domain.Beginner, nil)
	require.NoError(t, err)
	require.Len(t, again, len(want))

	require.NoError(t, repo.DeleteMovement(ctx, first.ID))
	afterDelete, err := repo.ListMovements(ctx, domain.Advanced, nil)
	require.NoError(t, err)
	for _, m := range afterDelete {
		require.NotEqual(t, first.ID, m.ID)
	}
}

func TestSequencingServiceAgainstDgraph(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	endpoint := testsupport.StartDgraph(ctx, t)

	catalog, err := DefaultCatalog()
	require.NoError(t, err)

	graph := NewDgraphRepository(endpoint, 10*time.Second)
	require.NoError(t, graph.Seed(ctx, catalog))

	local := NewInMemoryRepository(catalog)
	seed := uint64(5)
	request := sequencing.GenerateRequest{TargetMinutes: 30, Difficulty: "intermediate", Seed: &seed}

	newService := func(movements domain.MovementRepository, transitions domain.TransitionRepository) *sequencing.Service {
		return sequencing.NewService(sequencing.Dependencies{
			Movements:   movements,
			Transitions: cache.NewTransitionCache(transitions, 64, time.Minute),
		}, sequencing.WithLogger(log.New(io.Discard, "", 0)))
	}

	var fromGraph *sequencing.GeneratedSequence
	require.Eventually(t, func() bool {
		fromGraph, err = newService(graph, graph).GenerateSequence(ctx, request)
		return err == nil
	}, 30*time.Second, time.Second, "generate against dgraph")

	fromMemory, err := newService(local, local).GenerateSequence(ctx, request)
	require.NoError(t, err)

	ids := func(g *sequencing.GeneratedSequence) []string {
		out := make([]string, 0)
		for _, m := range g.Movements() {
			out = append(out, m.ID)
		}
		return out
	}
	require.Equal(t, ids(fromMemory), ids(fromGraph), "same catalog and seed select the same movements")
}
