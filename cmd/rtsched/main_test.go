package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rtsched/internal/sched"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := rootCmd()
	root.SetArgs(args)
	root.SetOut(&out)
	root.SetErr(io.Discard)
	err := root.Execute()
	return out.String(), err
}

func writeConfig(t *testing.T, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
	return path
}

func TestAnalyze_RejectsBadCPUCount(t *testing.T) {
	for _, cpus := range []string{"0", "-1"} {
		_, err := execute(t, "analyze", "--config", "", "--cpus", cpus, "--log-level", "error")
		assert.ErrorIs(t, err, sched.ErrInvalidCPU, "--cpus %s", cpus)
	}
}

func TestRun_RejectsBadCPUCount(t *testing.T) {
	_, err := execute(t, "run", "--config", "", "--cpus", "-1", "--log-level", "error")
	assert.ErrorIs(t, err, sched.ErrInvalidCPU)
}

func TestAnalyze(t *testing.T) {
	path := writeConfig(t, `
cpus: 2
tasks:
  - {id: 1, c: 20, t: 20, priority: 1}
  - {id: 2, c: 2, t: 5, priority: 5}
`)
	out, err := execute(t, "analyze", "--config", path, "--log-level", "error")
	require.NoError(t, err)

	assert.Contains(t, out, "task    1: cpu 0 utilization 1.000")
	assert.Contains(t, out, "task    2: cpu 1 utilization 0.400")
	assert.Contains(t, out, "cpu 1: utilization 0.400")
	assert.Contains(t, out, "task    2: response time 2 (deadline 5)")
}

func TestRun_WritesTrace(t *testing.T) {
	path := writeConfig(t, `
cpus: 1
policy: gedf
coordinator_cpu: 0
tasks:
  - {id: 1, c: 1, t: 5}
`)
	trace := filepath.Join(t.TempDir(), "trace.json")
	out, err := execute(t, "run", "--config", path, "--ticks", "10", "--trace", trace, "--log-level", "error")
	require.NoError(t, err)
	assert.Contains(t, out, "released=2 completed=2 missed=0")

	_, err = os.Stat(trace)
	assert.NoError(t, err)
}
