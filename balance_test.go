package cluster

import (
	"testing"
	"time"

	"github.com/coordhq/cluster/registry"
	"github.com/stretchr/testify/assert"
)

func rec(workers int) registry.Record {
	return registry.Record{WorkerCount: workers, UpdatedAt: time.Now()}
}

func TestAssignContiguousRanges(t *testing.T) {
	members := map[string]registry.Record{
		"b-instance": rec(2),
		"a-instance": rec(3),
		"c-instance": rec(1),
	}

	a := assign(members, "a-instance")
	assert.Equal(t, assignment{index: 0, workers: 3, total: 6}, a)

	b := assign(members, "b-instance")
	assert.Equal(t, assignment{index: 3, workers: 2, total: 6}, b)

	c := assign(members, "c-instance")
	assert.Equal(t, assignment{index: 5, workers: 1, total: 6}, c)
}

func TestAssignExcludesNonPositiveWorkerCounts(t *testing.T) {
	members := map[string]registry.Record{
		"a-instance": rec(2),
		"passive":    rec(0),
		"b-instance": rec(2),
	}

	total := assign(members, "a-instance").total
	assert.Equal(t, 4, total)

	passive := assign(members, "passive")
	assert.Equal(t, -1, passive.index)
}

func TestAssignSelfAbsent(t *testing.T) {
	members := map[string]registry.Record{
		"a-instance": rec(2),
	}
	result := assign(members, "not-there")
	assert.Equal(t, -1, result.index)
	assert.Equal(t, 2, result.total)
}

func TestAssignEmpty(t *testing.T) {
	result := assign(map[string]registry.Record{}, "solo")
	assert.Equal(t, assignment{index: -1, workers: 0, total: 0}, result)
}
