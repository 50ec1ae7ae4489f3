package cluster

import "sync"

// phase is the lifecycle state of a Cluster handle (spec §4.6).
type phase int

const (
	phaseNew phase = iota
	phaseJoining
	phaseJoined
	phaseLeaving
	phaseGone
)

func (p phase) String() string {
	switch p {
	case phaseNew:
		return "new"
	case phaseJoining:
		return "joining"
	case phaseJoined:
		return "joined"
	case phaseLeaving:
		return "leaving"
	case phaseGone:
		return "gone"
	default:
		return "unknown"
	}
}

// State is a point-in-time snapshot of this instance's position within the
// cluster (spec §4.3, "Assignment Algorithm" outputs).
type State struct {
	// Index is the first worker index this instance owns, or -1 if no
	// balance pass has completed yet or the instance is passive.
	Index int
	// Workers is the number of worker indexes this instance owns.
	Workers int
	// Total is the sum of worker counts across all active (non-passive)
	// members most recently observed.
	Total int
	// Passive reports whether this instance contributes no worker range.
	Passive bool
}

// clusterState is the shared, lock-guarded state mutated by the ping loop
// (C4) and the watch/balance loop (C5), and read by the public accessors
// (spec §4.3, C3). Every field access outside of construction must hold mu.
type clusterState struct {
	mu sync.RWMutex

	ph phase

	// assignment, written only through applyAssignment under a write lock.
	index   int
	workers int
	total   int

	// lastErr records the most recent adapter error surfaced to callers via
	// LastError, for diagnostics (spec §7, error surface).
	lastErr error
}

func newClusterState() *clusterState {
	return &clusterState{ph: phaseNew, index: -1}
}

func (s *clusterState) snapshot(passive bool) State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return State{
		Index:   s.index,
		Workers: s.workers,
		Total:   s.total,
		Passive: passive,
	}
}

func (s *clusterState) setPhase(p phase) {
	s.mu.Lock()
	s.ph = p
	s.mu.Unlock()
}

func (s *clusterState) getPhase() phase {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ph
}

func (s *clusterState) setLastErr(err error) {
	s.mu.Lock()
	s.lastErr = err
	s.mu.Unlock()
}

func (s *clusterState) getLastErr() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

// applyAssignment updates the assignment fields under a write lock and
// returns the resulting snapshot, for the caller to pass to the rebalance
// callback once the lock has been released (spec §4.5: "callback invoked
// with no lock held").
func (s *clusterState) applyAssignment(index, workers, total int, passive bool) State {
	s.mu.Lock()
	s.index = index
	s.workers = workers
	s.total = total
	s.mu.Unlock()
	return State{Index: index, Workers: workers, Total: total, Passive: passive}
}
