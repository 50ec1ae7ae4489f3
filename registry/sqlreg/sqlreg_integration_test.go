//go:build integration
// +build integration

package sqlreg

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/coordhq/cluster/registry"
	"github.com/stretchr/testify/require"
)

func TestSQLAdapterLifecycle(t *testing.T) {
	uri := os.Getenv("CLUSTER_SQL_TEST_DSN")
	if uri == "" {
		t.Skip("CLUSTER_SQL_TEST_DSN not set")
	}

	ctx := context.Background()
	a, err := Dial(ctx, uri)
	require.NoError(t, err)
	defer a.Close(ctx, nil)

	h, err := a.OpenNamespace(ctx, []string{"widgets", "integration-test"})
	require.NoError(t, err)

	require.NoError(t, a.PutWithTTL(ctx, h, "inst-a", 2, 30*time.Second, registry.PutOptions{}))

	members, err := a.List(ctx, h)
	require.NoError(t, err)
	require.Contains(t, members, "inst-a")

	require.NoError(t, a.Delete(ctx, h, "inst-a"))
}
