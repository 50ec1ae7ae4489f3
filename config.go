package cluster

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultWorkers is the default number of workers an instance contributes.
	DefaultWorkers = 1

	// DefaultTTLSeconds is the default lease lifetime of a membership record.
	DefaultTTLSeconds = 120

	// DefaultRefreshSeconds is the default heartbeat period.
	DefaultRefreshSeconds = 30

	// pingRetrySleep is how long the ping loop sleeps after a transient
	// failure before retrying (spec §4.4 step 5).
	pingRetrySleep = 5 * time.Second

	// pingTickSleep is the 1s tick the ping loop sleeps between checks of
	// whether refresh_seconds has elapsed (spec §4.4 step 2).
	pingTickSleep = 1 * time.Second

	// watchErrSleep is how long the watch loop sleeps after a wait_for_change
	// error before retrying (spec §4.5 step 3).
	watchErrSleep = 30 * time.Second

	// balanceSleepSeconds is BALANCE_SLEEP_SECONDS from the relational
	// back-end's wait_for_change emulation (spec §4.1).
	balanceSleepSeconds = 5 * time.Second

	// maxBalanceWaitSeconds is MAX_BALANCE_WAIT_SECONDS: the watch loop
	// bounds each wait for changes by it and forces a balance pass when it
	// elapses, whatever the back-end (spec §4.5 step 6).
	maxBalanceWaitSeconds = 30 * time.Second
)

// ForkMode controls how cluster membership behaves around fork()-like
// process duplication (spec §3, §4.6). On platforms without a usable
// fork() (essentially all Go runtimes, per spec Design Notes) PrepareFork
// and AfterForkParent are no-ops, and AfterForkChild only regenerates the
// instance ID under ForkBoth while the handle is still new; it exists so a host that
// does shell out to a fork-based worker model (e.g. via a C shim, or by
// re-executing itself) can still express the desired semantics.
type ForkMode int

const (
	// ForkChild keeps membership in the child only (default).
	ForkChild ForkMode = iota
	// ForkParent keeps membership in the parent only.
	ForkParent
	// ForkBoth keeps membership in both, assigning the child a fresh instance ID.
	ForkBoth
)

// config holds the mutable-before-join configuration from spec §3.
type config struct {
	workers      int
	ttlSeconds   int
	refreshSeconds int
	verbose      bool
	forkMode     ForkMode
	passive      bool
	staticIndex  int
	staticTotal  int
	registryURI  string
}

func newConfig() *config {
	return &config{
		workers:        DefaultWorkers,
		ttlSeconds:     DefaultTTLSeconds,
		refreshSeconds: DefaultRefreshSeconds,
		forkMode:       ForkChild,
	}
}

func (c *config) validate() error {
	if c.refreshSeconds >= c.ttlSeconds {
		return fmt.Errorf("refresh_seconds (%d) must be less than ttl_seconds (%d)", c.refreshSeconds, c.ttlSeconds)
	}
	if c.workers < 1 {
		return fmt.Errorf("inst_workers must be >= 1, got %d", c.workers)
	}
	return nil
}

// FileConfig is the shape of a cluster.yaml file loaded by LoadConfigFile.
// It mirrors the teacher SDK's component.yaml loader (component/config.go)
// rather than anything in the original C source, which only ever read
// configuration from direct API calls or CLI flags.
type FileConfig struct {
	ClusterKey     string `yaml:"cluster_key"`
	Environment    string `yaml:"environment,omitempty"`
	Partition      string `yaml:"partition,omitempty"`
	InstanceID     string `yaml:"instance_id,omitempty"`
	Registry       string `yaml:"registry,omitempty"`
	Workers        int    `yaml:"workers,omitempty"`
	TTLSeconds     int    `yaml:"ttl_seconds,omitempty"`
	RefreshSeconds int    `yaml:"refresh_seconds,omitempty"`
	Passive        bool   `yaml:"passive,omitempty"`
	Verbose        bool   `yaml:"verbose,omitempty"`
	ForkMode       string `yaml:"fork_mode,omitempty"`
}

// ForkModeValue parses the ForkMode string from a FileConfig, defaulting to
// ForkChild for an empty or unrecognised value.
func (fc *FileConfig) ForkModeValue() ForkMode {
	switch fc.ForkMode {
	case "parent":
		return ForkParent
	case "both":
		return ForkBoth
	default:
		return ForkChild
	}
}

// LoadConfigFile reads and parses a cluster.yaml file from the given path.
// If path is a directory, it looks for cluster.yaml or cluster.yml within it,
// following the teacher SDK's component.Load directory-vs-file handling.
func LoadConfigFile(path string) (*FileConfig, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("cluster: stat config path: %w", err)
	}

	configPath := path
	if info.IsDir() {
		yamlPath := filepath.Join(path, "cluster.yaml")
		if _, err := os.Stat(yamlPath); err == nil {
			configPath = yamlPath
		} else {
			ymlPath := filepath.Join(path, "cluster.yml")
			if _, err := os.Stat(ymlPath); err != nil {
				return nil, fmt.Errorf("cluster: no cluster.yaml or cluster.yml found in %s", path)
			}
			configPath = ymlPath
		}
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("cluster: read config file: %w", err)
	}

	var fc FileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("cluster: parse config file: %w", err)
	}
	return &fc, nil
}

// Options returns the Option values implied by this FileConfig, ready to
// pass to New alongside any programmatic overrides.
func (fc *FileConfig) Options() []Option {
	opts := make([]Option, 0, 8)
	if fc.Environment != "" {
		opts = append(opts, WithEnvironment(fc.Environment))
	}
	if fc.Partition != "" {
		opts = append(opts, WithPartition(fc.Partition))
	}
	if fc.InstanceID != "" {
		opts = append(opts, WithInstanceID(fc.InstanceID))
	}
	if fc.Registry != "" {
		opts = append(opts, WithRegistry(fc.Registry))
	}
	if fc.Workers > 0 {
		opts = append(opts, WithWorkers(fc.Workers))
	}
	if fc.TTLSeconds > 0 {
		opts = append(opts, WithTTL(fc.TTLSeconds))
	}
	if fc.RefreshSeconds > 0 {
		opts = append(opts, WithRefresh(fc.RefreshSeconds))
	}
	if fc.Passive {
		opts = append(opts, WithPassive(true))
	}
	if fc.Verbose {
		opts = append(opts, WithVerbose(true))
	}
	opts = append(opts, WithForkMode(fc.ForkModeValue()))
	return opts
}
