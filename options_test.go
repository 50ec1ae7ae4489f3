package cluster

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOptionsApply(t *testing.T) {
	o := newOptions()
	opts := []Option{
		WithEnvironment("staging"),
		WithPartition("east"),
		WithInstanceID("fixed-id"),
		WithRegistry("static:"),
		WithWorkers(4),
		WithTTL(60),
		WithRefresh(10),
		WithPassive(true),
		WithVerbose(true),
		WithForkMode(ForkBoth),
	}
	for _, opt := range opts {
		opt(o)
	}

	assert.Equal(t, "staging", o.environment)
	assert.Equal(t, "east", o.partition)
	assert.Equal(t, "fixed-id", o.instanceID)
	assert.Equal(t, "static:", o.registryURI)
	assert.Equal(t, 4, o.workers)
	assert.Equal(t, 60, o.ttlSeconds)
	assert.Equal(t, 10, o.refreshSeconds)
	assert.True(t, o.passive)
	assert.True(t, o.verbose)
	assert.Equal(t, ForkBoth, o.forkMode)
	assert.True(t, o.forkModeSet)
}

func TestNewAppliesOptions(t *testing.T) {
	c := newTestCluster(t, WithEnvironment("staging"), WithWorkers(3))
	assert.Equal(t, "staging", c.id.env)
	assert.Equal(t, 3, c.cfg.workers)
}

func TestNewRejectsEmptyKey(t *testing.T) {
	_, err := New("")
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestNewRejectsOverLongKey(t *testing.T) {
	key := make([]byte, maxTokenLen+1)
	for i := range key {
		key[i] = 'k'
	}
	_, err := New(string(key))
	assert.ErrorIs(t, err, ErrInvalid)
}
