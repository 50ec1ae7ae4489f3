// Package fake provides a deterministic, in-memory registry.Adapter for
// tests that exercise the ping/watch loops and lifecycle controller without
// a live etcd or PostgreSQL instance, in the spirit of the pack's in-memory
// fake-cluster test doubles (grounded on the mutex-protected, map-backed
// fake registry pattern used for gossip-cluster simulation in the wider
// example corpus).
package fake

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/coordhq/cluster/registry"
)

// Adapter is an in-memory registry.Adapter. The zero value is ready to use.
// A single Adapter can back multiple namespaces (one per OpenNamespace call
// with distinct segments) and is safe for concurrent use.
type Adapter struct {
	mu         sync.Mutex
	namespaces map[string]*namespaceState
}

type namespaceState struct {
	mu      sync.Mutex
	records map[string]registry.Record
	closed  bool
	version uint64
	waiters []chan struct{}
}

// New returns a ready-to-use fake Adapter.
func New() *Adapter {
	return &Adapter{namespaces: make(map[string]*namespaceState)}
}

type handle struct {
	key string
	ns  *namespaceState
}

func (a *Adapter) OpenNamespace(_ context.Context, segments []string) (registry.Handle, error) {
	key := strings.Join(segments, "/")
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.namespaces == nil {
		a.namespaces = make(map[string]*namespaceState)
	}
	ns, ok := a.namespaces[key]
	if !ok {
		ns = &namespaceState{records: make(map[string]registry.Record)}
		a.namespaces[key] = ns
	}
	return &handle{key: key, ns: ns}, nil
}

func (a *Adapter) PutWithTTL(_ context.Context, h registry.Handle, key string, workerCount int, ttl time.Duration, opts registry.PutOptions) error {
	ns := h.(*handle).ns
	ns.mu.Lock()
	defer ns.mu.Unlock()
	if ns.closed {
		return registry.ErrClosed
	}
	if _, exists := ns.records[key]; opts.MustExist && !exists {
		return registry.ErrNotFound
	}
	now := time.Now().UTC()
	ns.records[key] = registry.Record{
		InstanceID:  key,
		WorkerCount: workerCount,
		UpdatedAt:   now,
		ExpiresAt:   now.Add(ttl),
	}
	ns.bump()
	return nil
}

func (a *Adapter) Delete(_ context.Context, h registry.Handle, key string) error {
	ns := h.(*handle).ns
	ns.mu.Lock()
	defer ns.mu.Unlock()
	if ns.closed {
		return registry.ErrClosed
	}
	if _, ok := ns.records[key]; !ok {
		return nil
	}
	delete(ns.records, key)
	ns.bump()
	return nil
}

func (a *Adapter) List(_ context.Context, h registry.Handle) (map[string]registry.Record, error) {
	ns := h.(*handle).ns
	ns.mu.Lock()
	defer ns.mu.Unlock()
	if ns.closed {
		return nil, registry.ErrClosed
	}
	now := time.Now()
	out := make(map[string]registry.Record, len(ns.records))
	for k, r := range ns.records {
		if r.Expired(now) {
			continue
		}
		out[k] = r
	}
	return out, nil
}

func (a *Adapter) WaitForChange(ctx context.Context, h registry.Handle, _ registry.WaitOptions) error {
	ns := h.(*handle).ns
	ch := ns.subscribe()
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (a *Adapter) Close(_ context.Context, h registry.Handle) error {
	ns := h.(*handle).ns
	ns.mu.Lock()
	defer ns.mu.Unlock()
	ns.closed = true
	ns.bump()
	return nil
}

// bump wakes every current waiter; callers must hold ns.mu.
func (ns *namespaceState) bump() {
	ns.version++
	for _, w := range ns.waiters {
		close(w)
	}
	ns.waiters = nil
}

func (ns *namespaceState) subscribe() <-chan struct{} {
	ns.mu.Lock()
	defer ns.mu.Unlock()
	ch := make(chan struct{})
	ns.waiters = append(ns.waiters, ch)
	return ch
}

// Expire force-expires key in the namespace identified by segments, for
// tests simulating a crashed instance (spec S3: "B crashes (stops pinging)").
// It backdates the record's expiry rather than waiting out a TTL, so tests don't need to
// sleep out real TTLs to exercise liveness-on-departure.
func (a *Adapter) Expire(segments []string, key string) {
	nsKey := strings.Join(segments, "/")
	a.mu.Lock()
	ns, ok := a.namespaces[nsKey]
	a.mu.Unlock()
	if !ok {
		return
	}
	ns.mu.Lock()
	defer ns.mu.Unlock()
	if r, ok := ns.records[key]; ok {
		r.ExpiresAt = time.Now().Add(-time.Second)
		ns.records[key] = r
		ns.bump()
	}
}
