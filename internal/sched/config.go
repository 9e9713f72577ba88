package sched

import (
	"fmt"
	"os"
	"strings"

	yaml "github.com/goccy/go-yaml"
)

// Config mirrors config.yml
type Config struct {
	CPUs           int        `yaml:"cpus"`            // 4 (by default)
	Policy         string     `yaml:"policy"`          // gedf | gfp | fpus | pfp
	CoordinatorCPU int        `yaml:"coordinator_cpu"` // where global tasks are parked at submission
	Capacity       int        `yaml:"capacity"`        // size of the task id space
	EventBuffer    int        `yaml:"event_buffer"`
	Overhead       Overhead   `yaml:"overhead"`
	TickMS         int        `yaml:"tick_ms"` // simulator tick length
	Log            LogConfig  `yaml:"log"`
	Tasks          []TaskSpec `yaml:"tasks"` // demo workload for the CLI
}

// LogConfig selects the level and handler format of the process logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// TaskSpec describes one task of the demo workload.
type TaskSpec struct {
	ID       TaskID `yaml:"id"`
	C        int64  `yaml:"c"`
	T        int64  `yaml:"t"`
	D        int64  `yaml:"d"` // defaults to T
	Priority int64  `yaml:"priority"`
	Affinity uint64 `yaml:"affinity"`
}

// Params converts the entry into timing parameters; D defaults to T.
func (s TaskSpec) Params() Params {
	d := s.D
	if d == 0 {
		d = s.T
	}
	return Params{C: s.C, T: s.T, D: d, Priority: s.Priority, Affinity: s.Affinity}
}

// If the config file is not found, we use default values
func DefaultConfig() Config {
	return Config{
		CPUs:        4,
		Policy:      PolicyGEDF,
		Capacity:    1024,
		EventBuffer: 256,
		TickMS:      5,
		Log:         LogConfig{Level: "info", Format: "text"},
	}
}

// Load reads YAML and overrides defaults; empty path = defaults only
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.clamp()
	return cfg, nil
}

// Validate rejects a CPU layout the scheduler cannot manage. Load clamps file
// values; Validate catches overrides applied after loading.
func (c Config) Validate() error {
	if c.CPUs <= 0 {
		return fmt.Errorf("%w: cpu count %d", ErrInvalidCPU, c.CPUs)
	}
	if c.CoordinatorCPU < 0 || c.CoordinatorCPU >= c.CPUs {
		return fmt.Errorf("%w: coordinator cpu %d of %d", ErrInvalidCPU, c.CoordinatorCPU, c.CPUs)
	}
	return nil
}

// sanity clamps
func (c *Config) clamp() {
	if c.CPUs <= 0 {
		c.CPUs = 1
	}
	if c.CoordinatorCPU < 0 || c.CoordinatorCPU >= c.CPUs {
		c.CoordinatorCPU = 0
	}
	if c.Capacity <= 0 {
		c.Capacity = 1024
	}
	if c.EventBuffer < 0 {
		c.EventBuffer = 0
	}
	if c.TickMS <= 0 {
		c.TickMS = 5
	}
	if c.Overhead.PerCPU < 0 {
		c.Overhead.PerCPU = 0
	}
	if c.Overhead.PerTask < 0 {
		c.Overhead.PerTask = 0
	}
	c.Policy = strings.ToLower(strings.TrimSpace(c.Policy))
	if c.Policy == "" {
		c.Policy = PolicyGEDF
	}
}
