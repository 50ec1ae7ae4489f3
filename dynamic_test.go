package cluster

import (
	"context"
	"testing"
	"time"

	"github.com/coordhq/cluster/registry/fake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRebalanceOnNewMember(t *testing.T) {
	adapter := fake.New()

	balanced := make(chan State, 8)
	a := newTestCluster(t, WithRegistry("etcd://fake"), WithWorkers(2), WithBalancer(func(s State) { balanced <- s }))
	a.adapter = adapter
	require.NoError(t, a.Join(context.Background()))
	defer a.Leave(context.Background())

	<-balanced // initial solo balance

	b := newTestCluster(t, WithRegistry("etcd://fake"), WithWorkers(3))
	b.adapter = adapter
	require.NoError(t, b.Join(context.Background()))
	defer b.Leave(context.Background())

	select {
	case s := <-balanced:
		assert.Equal(t, 5, s.Total)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for rebalance after second member joined")
	}
}

func TestLeaveStopsLoopsPromptly(t *testing.T) {
	adapter := fake.New()
	c := newTestCluster(t, WithRegistry("etcd://fake"), WithWorkers(1))
	c.adapter = adapter
	require.NoError(t, c.Join(context.Background()))

	done := make(chan struct{})
	go func() {
		c.Leave(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Leave did not return promptly; ping/watch loops failed to stop on cancellation")
	}
}

func TestMemberEvictionTriggersRebalance(t *testing.T) {
	adapter := fake.New()

	balanced := make(chan State, 8)
	a := newTestCluster(t, WithRegistry("etcd://fake"), WithWorkers(1), WithBalancer(func(s State) { balanced <- s }))
	a.adapter = adapter
	require.NoError(t, a.Join(context.Background()))
	defer a.Leave(context.Background())
	<-balanced

	b := newTestCluster(t, WithRegistry("etcd://fake"), WithWorkers(1))
	b.adapter = adapter
	require.NoError(t, b.Join(context.Background()))
	<-balanced // a rebalances to total=2

	require.NoError(t, b.adapter.Delete(context.Background(), b.handle, b.id.instanceID))

	select {
	case s := <-balanced:
		assert.Equal(t, 1, s.Total)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for rebalance after member departure")
	}
}
