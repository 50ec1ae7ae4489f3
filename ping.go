package cluster

import (
	"context"
	"errors"
	"time"

	"github.com/coordhq/cluster/registry"
)

// pingLoop refreshes this instance's membership record every
// refresh_seconds, detects eviction via MustExist, and retries after a
// fixed backoff on transient adapter errors (spec §4.4, C4). It runs until
// c.loopCtx is cancelled, which Leave does via loopCancel. joinDynamic only
// spawns this loop for a non-passive join.
func (c *Cluster) pingLoop() {
	defer c.wg.Done()

	ticks := 0
	refreshTicks := c.cfg.refreshSeconds
	if refreshTicks < 1 {
		refreshTicks = 1
	}

	ttl := time.Duration(c.cfg.ttlSeconds) * time.Second
	workerCount := c.cfg.workers

	ticker := time.NewTicker(pingTickSleep)
	defer ticker.Stop()

	for {
		select {
		case <-c.loopCtx.Done():
			c.finalDelete()
			return
		case <-ticker.C:
		}

		ticks++
		if ticks < refreshTicks {
			continue
		}
		ticks = 0

		ctx, cancel := context.WithTimeout(c.loopCtx, ttl)
		ctx, end := c.instr.startSpan(ctx, "cluster.ping")
		err := c.adapter.PutWithTTL(ctx, c.handle, c.id.instanceID, workerCount, ttl, registry.PutOptions{MustExist: true})
		end()
		cancel()

		c.instr.recordPing(context.Background(), err)

		if err != nil {
			c.state.setLastErr(err)
			if errors.Is(err, registry.ErrNotFound) {
				c.logger.Logf(PriErr, "cluster: membership record evicted, republishing: instance=%s", c.id.instanceID)
				if putErr := c.republish(ttl, workerCount); putErr != nil {
					c.logger.Logf(PriErr, "cluster: republish failed: %v", putErr)
				}
				continue
			}
			c.logger.Logf(PriWarning, "cluster: ping failed, retrying in %s: %v", pingRetrySleep, err)
			select {
			case <-time.After(pingRetrySleep):
			case <-c.loopCtx.Done():
				c.finalDelete()
				return
			}
			// Retry on the next tick rather than after another full refresh
			// period.
			ticks = refreshTicks - 1
		}
	}
}

func (c *Cluster) republish(ttl time.Duration, workerCount int) error {
	ctx, cancel := context.WithTimeout(context.Background(), ttl)
	defer cancel()
	return c.adapter.PutWithTTL(ctx, c.handle, c.id.instanceID, workerCount, ttl, registry.PutOptions{})
}

// finalDelete removes this instance's record on the way out. Errors are
// logged, not surfaced, since the caller (Leave) already performs its own
// authoritative Delete once both loops have stopped.
func (c *Cluster) finalDelete() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.adapter.Delete(ctx, c.handle, c.id.instanceID); err != nil {
		c.logger.Logf(PriDebug, "cluster: ping loop shutdown delete: %v", err)
	}
}
