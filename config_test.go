package cluster

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigValidate(t *testing.T) {
	cfg := newConfig()
	require.NoError(t, cfg.validate())

	cfg.refreshSeconds = cfg.ttlSeconds
	assert.Error(t, cfg.validate())

	cfg = newConfig()
	cfg.workers = 0
	assert.Error(t, cfg.validate())
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cluster.yaml")
	contents := "cluster_key: widgets\nenvironment: staging\nworkers: 4\nttl_seconds: 90\nrefresh_seconds: 15\nfork_mode: both\n"
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	fc, err := LoadConfigFile(dir)
	require.NoError(t, err)
	assert.Equal(t, "widgets", fc.ClusterKey)
	assert.Equal(t, "staging", fc.Environment)
	assert.Equal(t, 4, fc.Workers)
	assert.Equal(t, 90, fc.TTLSeconds)
	assert.Equal(t, 15, fc.RefreshSeconds)
	assert.Equal(t, ForkBoth, fc.ForkModeValue())
}

func TestLoadConfigFileMissing(t *testing.T) {
	_, err := LoadConfigFile(t.TempDir())
	assert.Error(t, err)
}

func TestFileConfigOptions(t *testing.T) {
	fc := &FileConfig{
		Environment:    "staging",
		Workers:        3,
		TTLSeconds:     60,
		RefreshSeconds: 10,
		Verbose:        true,
	}
	opts := fc.Options()
	assert.NotEmpty(t, opts)

	o := newOptions()
	for _, opt := range opts {
		opt(o)
	}
	assert.Equal(t, "staging", o.environment)
	assert.Equal(t, 3, o.workers)
	assert.Equal(t, 60, o.ttlSeconds)
	assert.Equal(t, 10, o.refreshSeconds)
	assert.True(t, o.verbose)
}
