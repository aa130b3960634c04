//go:build integration

package testsupport

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestStartDgraphRegistersCatalogTypes(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	endpoint := StartDgraph(ctx, t)

	types, err := CatalogTypes(ctx, endpoint)
	require.NoError(t, err)
	require.ElementsMatch(t, catalogTypes, types)
}
