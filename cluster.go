package cluster

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/coordhq/cluster/registry"
	"github.com/coordhq/cluster/registry/etcdreg"
	"github.com/coordhq/cluster/registry/sqlreg"
)

// backend distinguishes the static back-end (no registry I/O, fixed
// membership known ahead of time) from the dynamic back-end (a
// registry.Adapter-backed cluster that balances itself at runtime).
type backend int

const (
	backendUnset backend = iota
	backendStatic
	backendDynamic
)

// Cluster coordinates this process's membership in a named cluster and its
// resulting worker-index assignment. The zero value is not usable; build
// one with New.
type Cluster struct {
	id    *identity
	cfg   *config
	state *clusterState

	logger   Logger
	balancer BalanceFunc
	instr    *instrumentation

	// setMu serialises the Set* configuration methods and the busy check
	// they all perform against state.getPhase().
	setMu sync.Mutex

	bk      backend
	adapter registry.Adapter
	handle  registry.Handle

	wg         sync.WaitGroup
	loopCtx    context.Context
	loopCancel context.CancelFunc
}

// New constructs a Cluster identified by clusterKey, applying opts in
// order. The returned Cluster is in the "new" state and must be joined with
// Join or JoinPassive before it does anything (spec §4.6).
func New(clusterKey string, opts ...Option) (*Cluster, error) {
	if clusterKey == "" {
		return nil, invalidErr("New", fmt.Errorf("cluster_key must not be empty"))
	}
	if err := checkTokenLen("cluster_key", clusterKey); err != nil {
		return nil, invalidErr("New", err)
	}
	o := newOptions()
	for _, opt := range opts {
		opt(o)
	}

	id := newIdentity(clusterKey)
	if o.environment != "" {
		if err := checkTokenLen("environment", o.environment); err != nil {
			return nil, invalidErr("New", err)
		}
		id.env = o.environment
	}
	if err := checkTokenLen("partition", o.partition); err != nil {
		return nil, invalidErr("New", err)
	}
	id.partition = o.partition
	if o.instanceID != "" {
		if err := checkTokenLen("instance_id", o.instanceID); err != nil {
			return nil, invalidErr("New", err)
		}
		id.instanceID = o.instanceID
	}

	cfg := newConfig()
	cfg.workers = o.workers
	cfg.ttlSeconds = o.ttlSeconds
	cfg.refreshSeconds = o.refreshSeconds
	cfg.passive = o.passive
	cfg.verbose = o.verbose
	cfg.registryURI = o.registryURI
	if o.forkModeSet {
		cfg.forkMode = o.forkMode
	}

	logger := o.logger
	if logger == nil {
		logger = defaultLogger
	}

	c := &Cluster{
		id:       id,
		cfg:      cfg,
		state:    newClusterState(),
		logger:   logger,
		balancer: o.balancer,
		instr:    newInstrumentation(o.meter, o.tracer),
	}
	return c, nil
}

// requireNew reports a busy error unless this handle is still in the "new"
// state, i.e. has never been joined (spec §4.6: configuration is immutable
// once joining has begun).
func (c *Cluster) requireNew(op string) error {
	switch c.state.getPhase() {
	case phaseNew:
		return nil
	case phaseGone:
		return newError(op, KindBusy, ErrAlreadyGone)
	default:
		return busyErr(op)
	}
}

// SetEnvironment changes the environment namespace segment. Must be called
// before Join.
func (c *Cluster) SetEnvironment(env string) error {
	c.setMu.Lock()
	defer c.setMu.Unlock()
	if err := c.requireNew("SetEnvironment"); err != nil {
		return err
	}
	if err := checkTokenLen("environment", env); err != nil {
		return invalidErr("SetEnvironment", err)
	}
	c.id.env = env
	return nil
}

// SetPartition changes the partition namespace segment. Must be called
// before Join.
func (c *Cluster) SetPartition(partition string) error {
	c.setMu.Lock()
	defer c.setMu.Unlock()
	if err := c.requireNew("SetPartition"); err != nil {
		return err
	}
	if err := checkTokenLen("partition", partition); err != nil {
		return invalidErr("SetPartition", err)
	}
	c.id.partition = partition
	return nil
}

// SetInstanceID overrides the instance identifier. Must be called before
// Join.
func (c *Cluster) SetInstanceID(id string) error {
	c.setMu.Lock()
	defer c.setMu.Unlock()
	if err := c.requireNew("SetInstanceID"); err != nil {
		return err
	}
	if id == "" {
		return invalidErr("SetInstanceID", fmt.Errorf("instance id must not be empty"))
	}
	if err := checkTokenLen("instance_id", id); err != nil {
		return invalidErr("SetInstanceID", err)
	}
	c.id.instanceID = id
	return nil
}

// SetRegistry sets the registry URI used at Join time to select and
// configure a back-end adapter. Must be called before Join.
func (c *Cluster) SetRegistry(uri string) error {
	c.setMu.Lock()
	defer c.setMu.Unlock()
	if err := c.requireNew("SetRegistry"); err != nil {
		return err
	}
	c.cfg.registryURI = uri
	return nil
}

// SetWorkers sets the number of worker slots this instance contributes.
// Must be called before Join.
func (c *Cluster) SetWorkers(n int) error {
	c.setMu.Lock()
	defer c.setMu.Unlock()
	if err := c.requireNew("SetWorkers"); err != nil {
		return err
	}
	if n < 1 {
		return invalidErr("SetWorkers", fmt.Errorf("workers must be >= 1, got %d", n))
	}
	c.cfg.workers = n
	return nil
}

// SetTTL sets the membership record's lease lifetime in seconds. Must be
// called before Join.
func (c *Cluster) SetTTL(seconds int) error {
	c.setMu.Lock()
	defer c.setMu.Unlock()
	if err := c.requireNew("SetTTL"); err != nil {
		return err
	}
	c.cfg.ttlSeconds = seconds
	return nil
}

// SetRefresh sets the ping loop's heartbeat period in seconds. Must be
// called before Join.
func (c *Cluster) SetRefresh(seconds int) error {
	c.setMu.Lock()
	defer c.setMu.Unlock()
	if err := c.requireNew("SetRefresh"); err != nil {
		return err
	}
	c.cfg.refreshSeconds = seconds
	return nil
}

// SetFork sets the fork-around behaviour. Must be called before Join.
func (c *Cluster) SetFork(mode ForkMode) error {
	c.setMu.Lock()
	defer c.setMu.Unlock()
	if err := c.requireNew("SetFork"); err != nil {
		return err
	}
	c.cfg.forkMode = mode
	return nil
}

// SetVerbose toggles per-member debug logging of balance passes. Safe to
// call at any time.
func (c *Cluster) SetVerbose(verbose bool) {
	c.setMu.Lock()
	c.cfg.verbose = verbose
	c.setMu.Unlock()
}

// SetLogger installs a custom Logger. Safe to call at any time.
func (c *Cluster) SetLogger(logger Logger) {
	c.setMu.Lock()
	if logger == nil {
		logger = defaultLogger
	}
	c.logger = logger
	c.setMu.Unlock()
}

// SetBalancer installs the rebalance callback. Safe to call at any time;
// takes effect from the next balance pass onward.
func (c *Cluster) SetBalancer(fn BalanceFunc) {
	c.setMu.Lock()
	c.balancer = fn
	c.setMu.Unlock()
}

// StaticSetIndex sets this instance's fixed worker index under the static
// back-end. Must be called before Join.
func (c *Cluster) StaticSetIndex(index int) error {
	c.setMu.Lock()
	defer c.setMu.Unlock()
	if err := c.requireNew("StaticSetIndex"); err != nil {
		return err
	}
	if index < 0 {
		return invalidErr("StaticSetIndex", fmt.Errorf("static index must be >= 0, got %d", index))
	}
	c.cfg.staticIndex = index
	return nil
}

// StaticSetTotal sets the fixed total worker count under the static
// back-end. Must be called before Join.
func (c *Cluster) StaticSetTotal(total int) error {
	c.setMu.Lock()
	defer c.setMu.Unlock()
	if err := c.requireNew("StaticSetTotal"); err != nil {
		return err
	}
	if total < 1 {
		return invalidErr("StaticSetTotal", fmt.Errorf("static total must be >= 1, got %d", total))
	}
	c.cfg.staticTotal = total
	return nil
}

// Partition returns the currently configured partition segment, or "" if
// none is set.
func (c *Cluster) Partition() string {
	c.setMu.Lock()
	defer c.setMu.Unlock()
	return c.id.partition
}

// InstanceID returns this handle's instance identifier.
func (c *Cluster) InstanceID() string {
	c.setMu.Lock()
	defer c.setMu.Unlock()
	return c.id.instanceID
}

// ResetInstance discards the current instance identifier and generates a
// fresh one. Only valid before Join; primarily used around ForkBoth so a
// forked child does not publish under its parent's identity (spec §4.6).
func (c *Cluster) ResetInstance() error {
	c.setMu.Lock()
	defer c.setMu.Unlock()
	if err := c.requireNew("ResetInstance"); err != nil {
		return err
	}
	c.id.instanceID = generateInstanceID()
	return nil
}

// State returns a snapshot of this instance's current worker-index
// assignment.
func (c *Cluster) State() State {
	return c.state.snapshot(c.cfg.passive)
}

// Index returns this instance's first owned worker index, or -1 if no
// assignment has been made yet.
func (c *Cluster) Index() int { return c.State().Index }

// IndexOf returns the worker index owned by this instance's ordinal-th
// worker slot, i.e. Index()+ordinal (spec §6, "index(worker_ordinal)"). It
// returns a not-joined error if this handle has not completed a join.
func (c *Cluster) IndexOf(ordinal int) (int, error) {
	if c.state.getPhase() != phaseJoined {
		return 0, notJoinedErr("IndexOf")
	}
	return c.Index() + ordinal, nil
}

// Workers returns the number of worker indexes this instance owns.
func (c *Cluster) Workers() int { return c.State().Workers }

// Total returns the most recently observed cluster-wide worker total.
func (c *Cluster) Total() int { return c.State().Total }

// LastError returns the most recent adapter-level error observed by the
// ping or watch loop, for diagnostics. It does not clear on read.
func (c *Cluster) LastError() error { return c.state.getLastErr() }

// resolveBackend classifies cfg.registryURI into a back-end selection
// (spec §4.1: "selected at runtime by registry URI scheme").
func (c *Cluster) resolveBackend() (backend, error) {
	uri := c.cfg.registryURI
	switch {
	case uri == "" || strings.HasPrefix(uri, "static:"):
		return backendStatic, nil
	case strings.HasPrefix(uri, "http://"), strings.HasPrefix(uri, "https://"), strings.HasPrefix(uri, "etcd://"):
		return backendDynamic, nil
	case strings.HasPrefix(uri, "postgres://"), strings.HasPrefix(uri, "postgresql://"):
		return backendDynamic, nil
	default:
		return backendUnset, invalidErr("Join", fmt.Errorf("unrecognised registry URI scheme: %q", uri))
	}
}

// openAdapter constructs the registry.Adapter implied by cfg.registryURI.
func (c *Cluster) openAdapter(ctx context.Context) (registry.Adapter, error) {
	uri := c.cfg.registryURI
	switch {
	case strings.HasPrefix(uri, "postgres://"), strings.HasPrefix(uri, "postgresql://"):
		return sqlreg.Dial(ctx, uri)
	default:
		return etcdreg.Dial(ctx, normalizeEtcdURI(uri))
	}
}

func normalizeEtcdURI(uri string) string {
	return strings.TrimPrefix(uri, "etcd://")
}

// Join brings this instance into the cluster as an active, worker-bearing
// member (spec §4.6, new -> joining -> joined).
func (c *Cluster) Join(ctx context.Context) error {
	return c.join(ctx, false)
}

// JoinPassive brings this instance into the cluster for observation only:
// it contributes no workers and is excluded from worker-index accumulation
// (spec §4.3). On the dynamic back-end it publishes no membership record and
// runs no ping loop.
func (c *Cluster) JoinPassive(ctx context.Context) error {
	return c.join(ctx, true)
}

func (c *Cluster) join(ctx context.Context, passive bool) error {
	c.setMu.Lock()
	if err := c.requireNew("Join"); err != nil {
		c.setMu.Unlock()
		return err
	}
	c.cfg.passive = passive
	if err := c.cfg.validate(); err != nil {
		c.setMu.Unlock()
		return invalidErr("Join", err)
	}
	bk, err := c.resolveBackend()
	if err != nil {
		c.setMu.Unlock()
		return err
	}
	c.bk = bk
	c.setMu.Unlock()

	c.state.setPhase(phaseJoining)
	c.logger.Logf(PriInfo, "cluster: joining namespace=%s instance=%s", strings.Join(c.id.namespace(), "/"), c.id.instanceID)

	var joinErr error
	if bk == backendStatic {
		joinErr = c.joinStatic()
	} else {
		joinErr = c.joinDynamic(ctx)
	}
	if joinErr != nil {
		c.state.setPhase(phaseNew)
		return joinErr
	}
	c.state.setPhase(phaseJoined)
	return nil
}

// Leave winds the instance down: stops the ping/watch loops (dynamic) or
// clears the fixed assignment (static), removes the published membership
// record, and returns the handle to a rejoinable "new" state (spec §4.6,
// joined -> leaving -> new).
func (c *Cluster) Leave(ctx context.Context) error {
	ph := c.state.getPhase()
	if ph != phaseJoined {
		// Leaving twice, or leaving a handle that was never joined, is a
		// no-op (spec §6, leave's Errors column is empty; Testable
		// Property 5, idempotent leave).
		return nil
	}
	c.state.setPhase(phaseLeaving)

	var err error
	if c.bk == backendStatic {
		err = c.leaveStatic()
	} else {
		err = c.leaveDynamic(ctx)
	}

	c.state.applyAssignment(-1, 0, 0, c.cfg.passive)
	c.state.setPhase(phaseNew)
	return err
}

// Destroy permanently retires this handle. If still joined, it leaves
// first. After Destroy, Join, ResetInstance and the error-returning Set*
// and StaticSet* methods fail with ErrAlreadyGone, IndexOf fails with
// ErrNotJoined, and Leave and Destroy return nil.
func (c *Cluster) Destroy(ctx context.Context) error {
	if c.state.getPhase() == phaseJoined {
		if err := c.Leave(ctx); err != nil {
			c.logger.Logf(PriWarning, "cluster: leave during destroy: %v", err)
		}
	}
	c.state.setPhase(phaseGone)
	return nil
}
