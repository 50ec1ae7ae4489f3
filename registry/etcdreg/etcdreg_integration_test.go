//go:build integration
// +build integration

package etcdreg

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/coordhq/cluster/registry"
	"github.com/stretchr/testify/require"
)

func TestEtcdAdapterLifecycle(t *testing.T) {
	endpoint := os.Getenv("CLUSTER_ETCD_TEST_ENDPOINT")
	if endpoint == "" {
		t.Skip("CLUSTER_ETCD_TEST_ENDPOINT not set")
	}

	ctx := context.Background()
	a, err := Dial(ctx, endpoint)
	require.NoError(t, err)
	defer a.Close(ctx, nil)

	h, err := a.OpenNamespace(ctx, []string{"widgets", "integration-test"})
	require.NoError(t, err)

	require.NoError(t, a.PutWithTTL(ctx, h, "inst-a", 2, 30*time.Second, registry.PutOptions{}))

	members, err := a.List(ctx, h)
	require.NoError(t, err)
	require.Contains(t, members, "inst-a")
	require.Equal(t, 2, members["inst-a"].WorkerCount)

	require.NoError(t, a.Delete(ctx, h, "inst-a"))
}
