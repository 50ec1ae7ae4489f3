package cluster

import (
	"sort"

	"github.com/coordhq/cluster/registry"
)

// assignment is the result of one deterministic assignment pass (spec §4.3,
// C6): the first worker index this instance owns, how many it owns, and the
// total worker count summed across every active member.
type assignment struct {
	index   int
	workers int
	total   int
}

// assign implements the Assignment Algorithm: sort every non-passive
// member's instance ID ascending (plain ASCII/byte-wise ordering, matching
// the original C implementation's use of strcmp over the etcd key names),
// then accumulate worker counts in that order so every member is handed a
// contiguous, non-overlapping range. A member whose WorkerCount is
// non-positive is treated as passive and excluded from the accumulation
// entirely — it never receives a range and does not shift anyone else's.
//
// selfID must be present in members for a non-passive result; if selfID is
// absent (e.g. the record has not yet propagated back from the registry)
// assign returns index -1 so the caller can retry on the next pass rather
// than publish a wrong answer.
func assign(members map[string]registry.Record, selfID string) assignment {
	ids := make([]string, 0, len(members))
	for id, rec := range members {
		if rec.WorkerCount <= 0 {
			continue
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)

	total := 0
	for _, id := range ids {
		total += members[id].WorkerCount
	}

	offset := 0
	for _, id := range ids {
		count := members[id].WorkerCount
		if id == selfID {
			return assignment{index: offset, workers: count, total: total}
		}
		offset += count
	}
	return assignment{index: -1, workers: 0, total: total}
}
