package cluster

// PrepareFork should be called immediately before a fork()-like process
// duplication. On every standard Go runtime this is a no-op: Go programs
// cannot safely fork() and continue running the runtime in the child (the
// goroutine scheduler and GC do not survive it), so PrepareFork exists only
// for a host that re-executes itself or shells out to a fork-based worker
// model via a C shim and wants symmetrical hook names to pair with
// AfterForkParent/AfterForkChild (spec §4.6, C7).
func (c *Cluster) PrepareFork() {}

// AfterForkParent should be called in the parent immediately after a fork.
// Under ForkChild, membership logically belongs to the child now, so the
// parent's loops are left untouched here and the caller is expected to
// Leave/Destroy the parent handle itself if it intends to stop owning
// membership. Under ForkParent and ForkBoth, nothing changes in the
// parent.
func (c *Cluster) AfterForkParent() {}

// AfterForkChild should be called in the child immediately after a fork,
// before any further use of this handle. Under ForkBoth, the child is given
// a fresh instance ID so it does not collide with the parent's still-live
// membership record; ResetInstance only succeeds while still "new", so a
// handle that forked after Join must Leave and rejoin to pick up the new
// identity. Under ForkChild and ForkParent the identity is left as-is.
func (c *Cluster) AfterForkChild() {
	if c.cfg.forkMode == ForkBoth {
		_ = c.ResetInstance()
	}
}
