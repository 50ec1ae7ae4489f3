package cluster

// joinStatic activates the static back-end: membership is assumed fixed
// and known ahead of time via StaticSetIndex/StaticSetTotal, so there is no
// registry I/O and no loops are spawned (grounded on the original static
// back-end, which does nothing beyond validating bounds).
func (c *Cluster) joinStatic() error {
	if c.cfg.passive {
		c.state.applyAssignment(-1, 0, c.cfg.staticTotal, true)
		return nil
	}
	if c.cfg.staticTotal < 1 {
		return newError("Join", KindFatalConfig, ErrFatalConfig)
	}
	if c.cfg.staticIndex+c.cfg.workers > c.cfg.staticTotal {
		return newError("Join", KindFatalConfig, ErrFatalConfig)
	}
	assignment := State{Index: c.cfg.staticIndex, Workers: c.cfg.workers, Total: c.cfg.staticTotal}
	c.state.applyAssignment(assignment.Index, assignment.Workers, assignment.Total, false)
	if c.balancer != nil {
		c.balancer(assignment)
	}
	return nil
}

// leaveStatic has nothing to tear down: no registry handle, no loops.
func (c *Cluster) leaveStatic() error {
	return nil
}
