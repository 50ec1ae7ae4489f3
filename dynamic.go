package cluster

import (
	"context"
	"time"

	"github.com/coordhq/cluster/registry"
)

// joinDynamic opens the configured adapter and, unless this is a passive
// join, publishes an initial membership record and performs one synchronous
// balance pass so Join does not return with a stale -1 assignment (spec
// §4.5, "Initial balance"); a passive join starts at index -1 and total 0.
// It then spawns the watch loop and (for non-passive joins only) the ping
// loop for the life of the join.
func (c *Cluster) joinDynamic(ctx context.Context) error {
	// adapter may already be set by a test injecting a fake registry.Adapter
	// directly, bypassing the URI-based dispatch in openAdapter.
	adapter := c.adapter
	if adapter == nil {
		var err error
		adapter, err = c.openAdapter(ctx)
		if err != nil {
			return newError("Join", KindAdapter, err)
		}
	}

	handle, err := adapter.OpenNamespace(ctx, c.id.namespace())
	if err != nil {
		return newError("Join", KindAdapter, err)
	}

	// A passive instance joins for visibility only: it never contributes
	// workers and never pings, so it never publishes a membership record in
	// the first place (spec §3, §4.4 preconditions: ping loop is "joined,
	// not passive, dynamic back-end").
	if !c.cfg.passive {
		ttl := time.Duration(c.cfg.ttlSeconds) * time.Second
		if err := adapter.PutWithTTL(ctx, handle, c.id.instanceID, c.cfg.workers, ttl, registry.PutOptions{}); err != nil {
			_ = adapter.Close(ctx, handle)
			return newError("Join", KindAdapter, err)
		}
	}

	c.adapter = adapter
	c.handle = handle

	if !c.cfg.passive {
		if err := c.runBalancePass(ctx); err != nil {
			c.logger.Logf(PriWarning, "cluster: initial balance pass failed, will retry from watch loop: %v", err)
		}
	} else {
		c.state.applyAssignment(-1, 0, 0, true)
	}

	c.loopCtx, c.loopCancel = context.WithCancel(context.Background())

	c.wg.Add(1)
	go c.watchLoop()
	if !c.cfg.passive {
		c.wg.Add(1)
		go c.pingLoop()
	}

	return nil
}

// leaveDynamic stops both loops, removes the published record, and closes
// the adapter handle.
func (c *Cluster) leaveDynamic(ctx context.Context) error {
	c.loopCancel()
	c.wg.Wait()

	var err error
	if dErr := c.adapter.Delete(ctx, c.handle, c.id.instanceID); dErr != nil {
		err = newError("Leave", KindAdapter, dErr)
	}
	if cErr := c.adapter.Close(ctx, c.handle); cErr != nil && err == nil {
		err = newError("Leave", KindAdapter, cErr)
	}
	return err
}

// runBalancePass lists the namespace, computes this instance's assignment,
// applies it, and invokes the rebalance callback with no lock held (spec
// §4.5, "Rebalance callback contract").
func (c *Cluster) runBalancePass(ctx context.Context) error {
	start := time.Now()
	ctx, end := c.instr.startSpan(ctx, "cluster.balance")
	defer end()

	members, err := c.adapter.List(ctx, c.handle)
	if err != nil {
		c.state.setLastErr(err)
		return err
	}

	prevIndex := c.Index()
	result := assign(members, c.id.instanceID)
	snapshot := c.state.applyAssignment(result.index, result.workers, result.total, c.cfg.passive)
	c.instr.recordBalance(ctx, start)

	c.setMu.Lock()
	verbose, balancer := c.cfg.verbose, c.balancer
	c.setMu.Unlock()

	if verbose {
		c.logVerboseMembers(members)
	}

	// Passes that leave this instance unassigned are not reported, except
	// the one that takes an existing assignment away.
	if balancer != nil && (result.index >= 0 || prevIndex >= 0) {
		balancer(snapshot)
	}
	return nil
}

// logVerboseMembers logs one debug line per member, marking this instance's
// own entry with "*" in place of the original's "  %s" vs "* %s" distinction
// (original_source/etcd.c).
func (c *Cluster) logVerboseMembers(members map[string]registry.Record) {
	for id, rec := range members {
		marker := " "
		if id == c.id.instanceID {
			marker = "*"
		}
		c.logger.Logf(PriDebug, "cluster: %s member instance=%s workers=%d updated=%s", marker, id, rec.WorkerCount, rec.UpdatedAt.Format(time.RFC3339))
	}
}
