// Package sqlreg implements registry.Adapter on top of a relational
// database reachable via pgx: membership lives as rows in a cluster_node
// table, TTL is a plain expires column checked at read time rather than an
// active lease, and WaitForChange emulates a push notification by polling
// for rows updated since the last poll. Grounded on the original
// relational back-end (sql.c): same table shape, same
// BALANCE_SLEEP_SECONDS/MAX_BALANCE_WAIT_SECONDS polling cadence.
package sqlreg

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/coordhq/cluster/registry"
	"github.com/jackc/pgx/v5/pgxpool"
)

// pollInterval and maxPollWait mirror CLUSTER_SQL_BALANCE_SLEEP and
// CLUSTER_SQL_MAX_BALANCEWAIT from the original relational back-end.
const (
	pollInterval = 5 * time.Second
	maxPollWait  = 30 * time.Second
)

// Adapter implements registry.Adapter against a PostgreSQL database.
type Adapter struct {
	pool *pgxpool.Pool
}

// Dial connects to the database named by uri and ensures the cluster_node
// schema is present at the target version.
func Dial(ctx context.Context, uri string) (*Adapter, error) {
	pool, err := pgxpool.New(ctx, uri)
	if err != nil {
		return nil, fmt.Errorf("sqlreg: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("sqlreg: ping: %w", err)
	}

	a := &Adapter{pool: pool}
	if err := a.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("sqlreg: migrate schema: %w", err)
	}
	return a, nil
}

// handle scopes every query to one (key, env) pair, matching the original
// back-end's two-column namespace. Any partition segment is folded into
// key so a partitioned cluster still gets its own disjoint set of rows.
type handle struct {
	key string
	env string

	mu       sync.Mutex
	lastPoll time.Time
	lastSeen time.Time
}

func (a *Adapter) OpenNamespace(_ context.Context, segments []string) (registry.Handle, error) {
	if len(segments) < 2 {
		return nil, fmt.Errorf("sqlreg: namespace requires at least 2 segments, got %d", len(segments))
	}
	env := segments[len(segments)-1]
	key := strings.Join(segments[:len(segments)-1], "/")
	return &handle{key: key, env: env}, nil
}

func (a *Adapter) PutWithTTL(ctx context.Context, h registry.Handle, instanceID string, workerCount int, ttl time.Duration, opts registry.PutOptions) error {
	hd := h.(*handle)
	now := time.Now().UTC()
	expires := now.Add(ttl)

	if opts.MustExist {
		tag, err := a.pool.Exec(ctx,
			`UPDATE cluster_node SET threads = $1, updated = $2, expires = $3
			 WHERE id = $4 AND key = $5 AND env = $6`,
			workerCount, now, expires, instanceID, hd.key, hd.env)
		if err != nil {
			return fmt.Errorf("sqlreg: put with ttl: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return registry.ErrNotFound
		}
		return nil
	}

	_, err := a.pool.Exec(ctx,
		`INSERT INTO cluster_node (id, key, env, threads, updated, expires)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (id, key, env) DO UPDATE SET threads = EXCLUDED.threads, updated = EXCLUDED.updated, expires = EXCLUDED.expires`,
		instanceID, hd.key, hd.env, workerCount, now, expires)
	if err != nil {
		return fmt.Errorf("sqlreg: put with ttl: %w", err)
	}
	return nil
}

func (a *Adapter) Delete(ctx context.Context, h registry.Handle, instanceID string) error {
	hd := h.(*handle)
	_, err := a.pool.Exec(ctx,
		`DELETE FROM cluster_node WHERE id = $1 AND key = $2 AND env = $3`,
		instanceID, hd.key, hd.env)
	if err != nil {
		return fmt.Errorf("sqlreg: delete: %w", err)
	}
	return nil
}

func (a *Adapter) List(ctx context.Context, h registry.Handle) (map[string]registry.Record, error) {
	hd := h.(*handle)
	rows, err := a.pool.Query(ctx,
		`SELECT id, threads, updated, expires FROM cluster_node WHERE key = $1 AND env = $2 AND expires >= $3`,
		hd.key, hd.env, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("sqlreg: list: %w", err)
	}
	defer rows.Close()

	out := make(map[string]registry.Record)
	for rows.Next() {
		var rec registry.Record
		if err := rows.Scan(&rec.InstanceID, &rec.WorkerCount, &rec.UpdatedAt, &rec.ExpiresAt); err != nil {
			return nil, fmt.Errorf("sqlreg: scan row: %w", err)
		}
		out[rec.InstanceID] = rec
	}
	return out, rows.Err()
}

// WaitForChange polls cluster_node every pollInterval for rows updated
// since the previous poll, and returns promptly (with no error) once
// maxPollWait has elapsed even if nothing changed, forcing the caller's
// periodic balance pass (spec §4.5 step 6; original back-end's
// CLUSTER_SQL_MAX_BALANCEWAIT).
func (a *Adapter) WaitForChange(ctx context.Context, h registry.Handle, _ registry.WaitOptions) error {
	hd := h.(*handle)
	hd.mu.Lock()
	since := hd.lastSeen
	lastForced := hd.lastPoll
	hd.mu.Unlock()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		now := time.Now().UTC()
		var changed bool
		var err error
		if since.IsZero() {
			changed, err = a.anyRow(ctx, hd, now, nil)
		} else {
			changed, err = a.anyRow(ctx, hd, now, &since)
		}
		if err != nil {
			return err
		}

		hd.mu.Lock()
		hd.lastSeen = now
		hd.mu.Unlock()

		if changed {
			return nil
		}
		if lastForced.IsZero() || now.Sub(lastForced) >= maxPollWait {
			hd.mu.Lock()
			hd.lastPoll = now
			hd.mu.Unlock()
			return nil
		}
		since = now
	}
}

func (a *Adapter) anyRow(ctx context.Context, hd *handle, now time.Time, since *time.Time) (bool, error) {
	var query string
	var args []any
	if since == nil {
		query = `SELECT 1 FROM cluster_node WHERE key = $1 AND env = $2 AND expires >= $3 LIMIT 1`
		args = []any{hd.key, hd.env, now}
	} else {
		query = `SELECT 1 FROM cluster_node WHERE key = $1 AND env = $2 AND expires >= $3 AND updated >= $4 LIMIT 1`
		args = []any{hd.key, hd.env, now, *since}
	}
	rows, err := a.pool.Query(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("sqlreg: poll: %w", err)
	}
	defer rows.Close()
	has := rows.Next()
	return has, rows.Err()
}

func (a *Adapter) Close(_ context.Context, _ registry.Handle) error {
	a.pool.Close()
	return nil
}
