package cluster

import (
	otelmetric "go.opentelemetry.io/otel/metric"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// BalanceFunc is invoked once on a successful static Join, and on the
// dynamic back-end after every successful balance pass that leaves this
// instance with an index, plus once after a pass that takes an assigned
// index away (State.Index == -1); passes that find this instance still
// unassigned do not invoke it (spec §4.5,
// "Rebalance callback contract"). It is never called with the cluster's
// internal lock held and is never called concurrently with itself.
type BalanceFunc func(State)

// Option configures a Cluster at construction time, following the same
// functional-option shape the teacher SDK uses throughout its public API.
type Option func(*options)

// options accumulates the result of applying a chain of Option values
// before New builds the Cluster itself.
type options struct {
	environment    string
	partition      string
	instanceID     string
	registryURI    string
	workers        int
	ttlSeconds     int
	refreshSeconds int
	passive        bool
	verbose        bool
	forkMode       ForkMode
	forkModeSet    bool
	logger         Logger
	balancer       BalanceFunc
	meter          otelmetric.Meter
	tracer         oteltrace.Tracer
}

func newOptions() *options {
	return &options{
		environment:    DefaultEnvironment,
		workers:        DefaultWorkers,
		ttlSeconds:     DefaultTTLSeconds,
		refreshSeconds: DefaultRefreshSeconds,
	}
}

// WithEnvironment sets the environment segment of the cluster namespace
// (spec §3, default "production").
func WithEnvironment(env string) Option {
	return func(o *options) { o.environment = env }
}

// WithPartition sets the optional partition segment of the cluster
// namespace, splitting one cluster_key into independently balanced
// sub-clusters (spec §3).
func WithPartition(partition string) Option {
	return func(o *options) { o.partition = partition }
}

// WithInstanceID overrides the randomly generated instance identifier.
// Mainly useful for tests and for re-establishing a known identity across
// a fork (spec §4.6).
func WithInstanceID(id string) Option {
	return func(o *options) { o.instanceID = id }
}

// WithRegistry sets the registry URI used to select and configure the
// back-end adapter at Join time (spec §4.1: scheme dispatch).
func WithRegistry(uri string) Option {
	return func(o *options) { o.registryURI = uri }
}

// WithWorkers sets the number of worker slots this instance contributes
// to the cluster (spec §3, must be >= 1).
func WithWorkers(n int) Option {
	return func(o *options) { o.workers = n }
}

// WithTTL sets the membership record's lease lifetime in seconds.
func WithTTL(seconds int) Option {
	return func(o *options) { o.ttlSeconds = seconds }
}

// WithRefresh sets the ping loop's heartbeat period in seconds. Must be
// less than the TTL.
func WithRefresh(seconds int) Option {
	return func(o *options) { o.refreshSeconds = seconds }
}

// WithPassive sets the passive flag that State reports before a join. Join
// and JoinPassive each set the flag themselves (false and true
// respectively), so this option does not change how either of them joins.
func WithPassive(passive bool) Option {
	return func(o *options) { o.passive = passive }
}

// WithVerbose enables per-member debug logging of each balance pass.
func WithVerbose(verbose bool) Option {
	return func(o *options) { o.verbose = verbose }
}

// WithForkMode sets how membership behaves around fork()-like process
// duplication (spec §4.6).
func WithForkMode(mode ForkMode) Option {
	return func(o *options) { o.forkMode = mode; o.forkModeSet = true }
}

// WithLogger installs a custom Logger. The default is a stderr logger that
// only emits PriCrit and above, matching the original library's fallback.
func WithLogger(logger Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithBalancer installs the rebalance callback; BalanceFunc describes when
// it is invoked.
func WithBalancer(fn BalanceFunc) Option {
	return func(o *options) { o.balancer = fn }
}

// WithMeter installs an OpenTelemetry Meter used to record ping and balance
// instrumentation (spec SPEC_FULL domain stack; no-op if unset).
func WithMeter(meter otelmetric.Meter) Option {
	return func(o *options) { o.meter = meter }
}

// WithTracer installs an OpenTelemetry Tracer used to span ping and balance
// operations (no-op if unset).
func WithTracer(tracer oteltrace.Tracer) Option {
	return func(o *options) { o.tracer = tracer }
}
