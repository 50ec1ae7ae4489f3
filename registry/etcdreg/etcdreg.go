// Package etcdreg implements registry.Adapter on top of an etcd cluster:
// a fresh lease granted on every PutWithTTL, membership keys scoped under the
// namespace prefix, and prefix Watch driving WaitForChange. Grounded on the
// teacher SDK's registry.Client (lease-per-registration, prefix discovery,
// prefix watch with a resync-on-event loop).
package etcdreg

import (
	"context"
	"fmt"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/coordhq/cluster/registry"
	clientv3 "go.etcd.io/etcd/client/v3"
)

// Adapter implements registry.Adapter against a live etcd cluster.
type Adapter struct {
	client *clientv3.Client
}

// Dial connects to the etcd cluster named by endpoints (a single URI, or a
// comma-separated list of host:port endpoints with any scheme stripped).
func Dial(ctx context.Context, uri string) (*Adapter, error) {
	endpoints := parseEndpoints(uri)
	if len(endpoints) == 0 {
		return nil, fmt.Errorf("etcdreg: no endpoints in registry URI %q", uri)
	}

	cfg := clientv3.Config{
		Endpoints:   endpoints,
		DialTimeout: 5 * time.Second,
	}
	tlsConfig, err := tlsFromEnv()
	if err != nil {
		return nil, err
	}
	cfg.TLS = tlsConfig

	cli, err := clientv3.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("etcdreg: dial: %w", err)
	}

	checkCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if _, err := cli.Get(checkCtx, "health-check"); err != nil && err != context.DeadlineExceeded {
		cli.Close()
		return nil, fmt.Errorf("etcdreg: health check: %w", err)
	}

	return &Adapter{client: cli}, nil
}

func parseEndpoints(uri string) []string {
	uri = strings.TrimPrefix(uri, "http://")
	uri = strings.TrimPrefix(uri, "https://")
	var out []string
	for _, ep := range strings.Split(uri, ",") {
		ep = strings.TrimSpace(ep)
		if ep != "" {
			out = append(out, ep)
		}
	}
	return out
}

type handle struct {
	prefix string
}

// OpenNamespace is idempotent: etcd has no notion of a directory to create,
// so this just joins the path segments into the key prefix every other
// method scopes itself under.
func (a *Adapter) OpenNamespace(_ context.Context, segments []string) (registry.Handle, error) {
	return &handle{prefix: "/" + path.Join(segments...) + "/"}, nil
}

func (a *Adapter) key(h registry.Handle, instanceID string) string {
	return h.(*handle).prefix + instanceID
}

// PutWithTTL grants a fresh lease scoped to ttl and writes the record under
// it. With opts.MustExist it first confirms the key is currently present
// using a transaction guard, so a record evicted between heartbeats (lease
// expiry, or an operator deleting it by hand) surfaces as ErrNotFound
// instead of silently recreating itself.
func (a *Adapter) PutWithTTL(ctx context.Context, h registry.Handle, instanceID string, workerCount int, ttl time.Duration, opts registry.PutOptions) error {
	lease, err := a.client.Grant(ctx, int64(ttl.Seconds()))
	if err != nil {
		return fmt.Errorf("etcdreg: grant lease: %w", err)
	}

	key := a.key(h, instanceID)
	value := strconv.Itoa(workerCount)

	if opts.MustExist {
		txn := a.client.Txn(ctx).
			If(clientv3.Compare(clientv3.CreateRevision(key), ">", 0)).
			Then(clientv3.OpPut(key, value, clientv3.WithLease(lease.ID)))
		resp, err := txn.Commit()
		if err != nil {
			return fmt.Errorf("etcdreg: put with ttl: %w", err)
		}
		if !resp.Succeeded {
			return registry.ErrNotFound
		}
		return nil
	}

	if _, err := a.client.Put(ctx, key, value, clientv3.WithLease(lease.ID)); err != nil {
		return fmt.Errorf("etcdreg: put with ttl: %w", err)
	}
	return nil
}

func (a *Adapter) Delete(ctx context.Context, h registry.Handle, instanceID string) error {
	_, err := a.client.Delete(ctx, a.key(h, instanceID))
	if err != nil {
		return fmt.Errorf("etcdreg: delete: %w", err)
	}
	return nil
}

func (a *Adapter) List(ctx context.Context, h registry.Handle) (map[string]registry.Record, error) {
	prefix := h.(*handle).prefix
	resp, err := a.client.Get(ctx, prefix, clientv3.WithPrefix())
	if err != nil {
		return nil, fmt.Errorf("etcdreg: list: %w", err)
	}

	out := make(map[string]registry.Record, len(resp.Kvs))
	now := time.Now()
	for _, kv := range resp.Kvs {
		id := strings.TrimPrefix(string(kv.Key), prefix)
		count, err := strconv.Atoi(string(kv.Value))
		if err != nil {
			continue
		}
		out[id] = registry.Record{
			InstanceID:  id,
			WorkerCount: count,
			UpdatedAt:   now,
			// etcd's own lease expiry is authoritative for liveness: a key
			// this List call observed is, by definition, still live, so
			// Expired() against this record should never trip.
			ExpiresAt: now.Add(24 * time.Hour),
		}
	}
	return out, nil
}

// WaitForChange blocks on a single etcd watch event under the namespace
// prefix and returns as soon as one arrives, letting the caller decide
// whether to re-list immediately.
func (a *Adapter) WaitForChange(ctx context.Context, h registry.Handle, _ registry.WaitOptions) error {
	prefix := h.(*handle).prefix
	watchChan := a.client.Watch(ctx, prefix, clientv3.WithPrefix())
	select {
	case resp, ok := <-watchChan:
		if !ok {
			return fmt.Errorf("etcdreg: watch channel closed")
		}
		if err := resp.Err(); err != nil {
			return fmt.Errorf("etcdreg: watch: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (a *Adapter) Close(_ context.Context, _ registry.Handle) error {
	return a.client.Close()
}
