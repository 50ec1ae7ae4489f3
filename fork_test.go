package cluster

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAfterForkChildResetsInstanceUnderForkBoth(t *testing.T) {
	c := newTestCluster(t, WithForkMode(ForkBoth))
	first := c.InstanceID()

	c.AfterForkChild()

	assert.NotEqual(t, first, c.InstanceID())
}

func TestAfterForkChildLeavesInstanceUnderForkChild(t *testing.T) {
	c := newTestCluster(t, WithForkMode(ForkChild))
	first := c.InstanceID()

	c.AfterForkChild()

	assert.Equal(t, first, c.InstanceID())
}

func TestPrepareForkAndAfterForkParentAreNoops(t *testing.T) {
	c := newTestCluster(t, WithRegistry("static:"), WithWorkers(1))
	require.NoError(t, c.StaticSetTotal(1))
	require.NoError(t, c.Join(context.Background()))

	assert.NotPanics(t, func() {
		c.PrepareFork()
		c.AfterForkParent()
	})
}
