// Package registry defines the narrow capability the cluster core requires
// from a backing coordination service, and the Membership Record shape
// published into it (spec §4.1, §4.2, C1/C2).
//
// The core never talks to etcd or a database directly; it only talks to an
// Adapter. Two concrete adapters are provided as sibling packages:
// registry/etcdreg (a directory-style service, backed by etcd) and
// registry/sqlreg (a relational database, backed by PostgreSQL via pgx).
package registry

import (
	"context"
	"time"
)

// Record is the per-instance data published to the registry (spec §3,
// "Published Membership Record"): the minimal surface any adapter's List
// must be able to produce.
type Record struct {
	InstanceID  string
	WorkerCount int
	UpdatedAt   time.Time
	ExpiresAt   time.Time
}

// Expired reports whether this record's lease has elapsed as of now.
func (r Record) Expired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}

// Handle identifies an open namespace on the backing registry. Adapters
// define their own concrete handle type; the core only ever holds it
// opaquely and passes it back into the other Adapter methods.
type Handle any

// PutOptions configures a PutWithTTL call.
type PutOptions struct {
	// MustExist, when true, causes PutWithTTL to fail if the key is not
	// already present — used by refreshes to detect eviction (spec §4.4
	// step 3: "must_exist=true makes a stale or evicted record detectable
	// as an error").
	MustExist bool
}

// WaitOptions configures a WaitForChange call.
type WaitOptions struct {
	// Recursive indicates descendants of the namespace (not just direct
	// children) should be watched. The core always sets this (spec §4.5
	// step 2: "wait_for_change(..., recursive=true)").
	Recursive bool
}

// Adapter is the capability the cluster core consumes from a registry
// back-end (spec §4.1). Implementations must be safe for concurrent use:
// PutWithTTL (from the ping loop) and WaitForChange (from the watch loop)
// are invoked concurrently against the same Handle for the life of a joined
// dynamic cluster.
type Adapter interface {
	// OpenNamespace creates the namespace identified by the given path
	// segments if absent, or opens it if already present. Idempotent.
	OpenNamespace(ctx context.Context, segments []string) (Handle, error)

	// PutWithTTL publishes or refreshes this instance's membership record
	// under key, with the given worker count and TTL. When opts.MustExist
	// is true, the call fails if the key is not already present.
	PutWithTTL(ctx context.Context, h Handle, key string, workerCount int, ttl time.Duration, opts PutOptions) error

	// Delete removes key from the namespace. Deleting an absent key is not
	// an error.
	Delete(ctx context.Context, h Handle, key string) error

	// List returns a snapshot of all current (non-expired, where the
	// back-end can determine that itself) records in the namespace, keyed
	// by instance ID.
	List(ctx context.Context, h Handle) (map[string]Record, error)

	// WaitForChange blocks until some descendant of the namespace changes,
	// or returns promptly with an error for a recoverable failure. It must
	// be safely callable concurrently with PutWithTTL on the same Handle.
	WaitForChange(ctx context.Context, h Handle, opts WaitOptions) error

	// Close releases resources associated with h. Closing an already-closed
	// handle is a no-op.
	Close(ctx context.Context, h Handle) error
}
