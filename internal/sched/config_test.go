package sched

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)

	cfg, err = Load(filepath.Join(t.TempDir(), "missing.yml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	data := `
cpus: 0
policy: " PFP "
coordinator_cpu: 7
event_buffer: 16
overhead:
  per_cpu: 2
  per_task: -1
log:
  level: debug
  format: json
tasks:
  - {id: 1, c: 2, t: 10, priority: 3}
  - {id: 2, c: 1, t: 5, d: 4, affinity: 2}
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 1, cfg.CPUs)
	assert.Equal(t, PolicyPFP, cfg.Policy)
	assert.Equal(t, 0, cfg.CoordinatorCPU)
	assert.Equal(t, 16, cfg.EventBuffer)
	assert.Equal(t, 1024, cfg.Capacity)
	assert.Equal(t, Overhead{PerCPU: 2}, cfg.Overhead)
	assert.Equal(t, LogConfig{Level: "debug", Format: "json"}, cfg.Log)

	require.Len(t, cfg.Tasks, 2)
	assert.Equal(t, Params{C: 2, T: 10, D: 10, Priority: 3}, cfg.Tasks[0].Params())
	assert.Equal(t, Params{C: 1, T: 5, D: 4, Affinity: 2}, cfg.Tasks[1].Params())
}

func TestLoad_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte("cpus: [1, 2\n"), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestNew_UnknownPolicy(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Policy = "round-robin"
	_, err := New(cfg, nil)
	assert.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	var testCases = []struct {
		description string
		cpus        int
		coordinator int
		expectErr   bool
	}{
		{description: "defaults", cpus: 4},
		{description: "last cpu coordinates", cpus: 2, coordinator: 1},
		{description: "no cpus", cpus: 0, expectErr: true},
		{description: "negative cpus", cpus: -1, expectErr: true},
		{description: "coordinator out of range", cpus: 2, coordinator: 2, expectErr: true},
		{description: "negative coordinator", cpus: 2, coordinator: -1, expectErr: true},
	}
	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.CPUs, cfg.CoordinatorCPU = tc.cpus, tc.coordinator
			err := cfg.Validate()
			if tc.expectErr {
				assert.ErrorIs(t, err, ErrInvalidCPU)
				return
			}
			assert.NoError(t, err)
		})
	}
}
