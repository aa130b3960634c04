//go:build integration

package testsupport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// catalogTypes must exist before a test may seed the movement graph.
var catalogTypes = []string{"Movement", "Transition"}

// StartDgraph launches a standalone Dgraph, applies db/dgraph/schema/movement.schema and waits
// until the catalog types are queryable. The container is terminated when the test ends.
func StartDgraph(ctx context.Context, t *testing.T) string {
	t.Helper()

	schema, err := os.ReadFile(repoPath(t, "db/dgraph/schema/movement.schema"))
	require.NoError(t, err)

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "dgraph/standalone:v23.1.0",
			ExposedPorts: []string{"8080/tcp"},
			WaitingFor: wait.ForHTTP("/health").
				WithPort("8080/tcp").
				WithStatusCodeMatcher(func(status int) bool { return status < 500 }),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	endpoint, err := container.PortEndpoint(ctx, "8080/tcp", "http")
	require.NoError(t, err)

	client := &http.Client{Timeout: 5 * time.Second}
	require.Eventually(t, func() bool {
		if err := alter(ctx, client, endpoint, schema); err != nil {
			t.Logf("dgraph schema not applied yet: %v", err)
			return false
		}
		types, err := CatalogTypes(ctx, endpoint)
		return err == nil && len(types) == len(catalogTypes)
	}, 60*time.Second, time.Second, "dgraph catalog schema failed to apply")
	return endpoint
}

func alter(ctx context.Context, client *http.Client, endpoint string, schema []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint+"/alter", bytes.NewReader(schema))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/dql")
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("alter: %s", resp.Status)
	}
	return nil
}

// CatalogTypes returns the Movement and Transition type names Dgraph knows about.
func CatalogTypes(ctx context.Context, endpoint string) ([]string, error) {
	query, err := json.Marshal(map[string]string{
		"query": `schema(type: [Movement, Transition]) { name }`,
	})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint+"/query", bytes.NewReader(query))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("schema query: %s", resp.Status)
	}

	var body struct {
		Data struct {
			Types []struct {
				Name string `json:"name"`
			} `json:"types"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(body.Data.Types))
	for _, typ := range body.Data.Types {
		names = append(names, typ.Name)
	}
	return names, nil
}
