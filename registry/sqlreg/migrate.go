package sqlreg

import "context"

// schemaVersion is the target cluster_node schema version, ported from
// CLUSTER_SQL_SCHEMA_VERSION in the original relational back-end.
const schemaVersion = 4

type migration struct {
	version int
	ddl     []string
}

// migrations is applied forward-only and in order, following the original
// back-end's versioned DDL steps (version 1 creates the table if absent,
// versions 2-4 each add one index).
var migrations = []migration{
	{
		version: 1,
		ddl: []string{
			`CREATE TABLE IF NOT EXISTS cluster_node (
				id VARCHAR(32) NOT NULL,
				key VARCHAR(64) NOT NULL,
				env VARCHAR(64) NOT NULL,
				threads INT NOT NULL DEFAULT 0,
				updated TIMESTAMPTZ NOT NULL,
				expires TIMESTAMPTZ NOT NULL,
				PRIMARY KEY (id, key, env)
			)`,
		},
	},
	{
		version: 2,
		ddl:     []string{`CREATE INDEX IF NOT EXISTS cluster_node_key_env ON cluster_node (key, env)`},
	},
	{
		version: 3,
		ddl:     []string{`CREATE INDEX IF NOT EXISTS cluster_node_expires ON cluster_node (expires)`},
	},
	{
		version: 4,
		ddl:     []string{`CREATE INDEX IF NOT EXISTS cluster_node_updated ON cluster_node (updated)`},
	},
}

// migrate applies every migration in order against a bare connection. It
// does not track an applied-version table (the upstream project drove this
// from libsql's own migration runner); instead every statement uses
// IF NOT EXISTS / IF EXISTS guards so it is safe to run on every Dial.
func (a *Adapter) migrate(ctx context.Context) error {
	for _, m := range migrations {
		for _, stmt := range m.ddl {
			if _, err := a.pool.Exec(ctx, stmt); err != nil {
				return err
			}
		}
	}
	return nil
}
