package cluster

import (
	"context"
	"time"

	"github.com/coordhq/cluster/registry"
)

// watchLoop blocks on the registry for membership changes and recomputes
// this instance's assignment whenever one occurs, backing off on error and
// forcing a periodic balance pass so a relational back-end's polling
// emulation of wait_for_change cannot starve a rebalance indefinitely
// (spec §4.5, C5). It runs until c.loopCtx is cancelled.
func (c *Cluster) watchLoop() {
	defer c.wg.Done()

	for {
		ctx, cancel := context.WithTimeout(c.loopCtx, maxBalanceWaitSeconds)
		err := c.adapter.WaitForChange(ctx, c.handle, registry.WaitOptions{Recursive: true})
		cancel()

		if c.loopCtx.Err() != nil {
			return
		}

		if err != nil {
			if err == context.DeadlineExceeded {
				// MAX_BALANCE_WAIT_SECONDS elapsed with no signalled change;
				// force a balance pass anyway (spec §4.5 step 6).
				if balErr := c.runBalancePass(c.loopCtx); balErr != nil {
					c.logger.Logf(PriWarning, "cluster: forced balance pass failed: %v", balErr)
				}
				continue
			}
			c.state.setLastErr(err)
			c.logger.Logf(PriWarning, "cluster: watch failed, retrying in %s: %v", watchErrSleep, err)
			select {
			case <-time.After(watchErrSleep):
			case <-c.loopCtx.Done():
				return
			}
			continue
		}

		if balErr := c.runBalancePass(c.loopCtx); balErr != nil {
			c.logger.Logf(PriWarning, "cluster: balance pass failed: %v", balErr)
		}
	}
}
