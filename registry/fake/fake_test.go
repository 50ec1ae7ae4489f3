package fake

import (
	"context"
	"testing"
	"time"

	"github.com/coordhq/cluster/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPutListDelete(t *testing.T) {
	a := New()
	ctx := context.Background()
	h, err := a.OpenNamespace(ctx, []string{"widgets", "production"})
	require.NoError(t, err)

	require.NoError(t, a.PutWithTTL(ctx, h, "inst-a", 2, time.Minute, registry.PutOptions{}))
	members, err := a.List(ctx, h)
	require.NoError(t, err)
	assert.Len(t, members, 1)
	assert.Equal(t, 2, members["inst-a"].WorkerCount)

	require.NoError(t, a.Delete(ctx, h, "inst-a"))
	members, err = a.List(ctx, h)
	require.NoError(t, err)
	assert.Empty(t, members)
}

func TestPutWithTTLMustExist(t *testing.T) {
	a := New()
	ctx := context.Background()
	h, err := a.OpenNamespace(ctx, []string{"widgets", "production"})
	require.NoError(t, err)

	err = a.PutWithTTL(ctx, h, "inst-a", 1, time.Minute, registry.PutOptions{MustExist: true})
	assert.ErrorIs(t, err, registry.ErrNotFound)

	require.NoError(t, a.PutWithTTL(ctx, h, "inst-a", 1, time.Minute, registry.PutOptions{}))
	require.NoError(t, a.PutWithTTL(ctx, h, "inst-a", 1, time.Minute, registry.PutOptions{MustExist: true}))
}

func TestWaitForChangeWakesOnPut(t *testing.T) {
	a := New()
	ctx := context.Background()
	h, err := a.OpenNamespace(ctx, []string{"widgets", "production"})
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		done <- a.WaitForChange(ctx, h, registry.WaitOptions{})
	}()

	time.Sleep(10 * time.Millisecond)
	require.NoError(t, a.PutWithTTL(ctx, h, "inst-a", 1, time.Minute, registry.PutOptions{}))

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("WaitForChange did not wake on Put")
	}
}

func TestWaitForChangeRespectsContextCancellation(t *testing.T) {
	a := New()
	ctx, cancel := context.WithCancel(context.Background())
	h, err := a.OpenNamespace(ctx, []string{"widgets", "production"})
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		done <- a.WaitForChange(ctx, h, registry.WaitOptions{})
	}()
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("WaitForChange did not return on context cancellation")
	}
}

func TestListExcludesExpired(t *testing.T) {
	a := New()
	ctx := context.Background()
	h, err := a.OpenNamespace(ctx, []string{"widgets", "production"})
	require.NoError(t, err)

	require.NoError(t, a.PutWithTTL(ctx, h, "inst-a", 1, -time.Second, registry.PutOptions{}))
	members, err := a.List(ctx, h)
	require.NoError(t, err)
	assert.Empty(t, members)
}
