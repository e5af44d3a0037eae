package simconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_FillsDefaultsAndOverridesFromYAML(t *testing.T) {
	path := writeConfig(t, `
simulation:
  N_TICKS: 100
  Scheduler: bestfit
  Autoscaler: react
  ClusterSetup: clusters.csv
autoscaler:
  SERVER_SPEED: 2.5
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, int64(100), cfg.Simulation.NTicks)
	assert.Equal(t, "bestfit", cfg.Simulation.Scheduler)
	assert.Equal(t, 2.5, cfg.Autoscaler.ServerSpeed)
	// Untouched default survives alongside the override.
	assert.Equal(t, int64(10), cfg.CentralQueue.NTicksMonitorSiteStatus)
}

func TestLoad_RejectsMissingNTicks(t *testing.T) {
	path := writeConfig(t, `
simulation:
  Scheduler: bestfit
  ClusterSetup: clusters.csv
`)

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_RejectsUnknownScheduler(t *testing.T) {
	path := writeConfig(t, `
simulation:
  N_TICKS: 10
  Scheduler: bogus
  ClusterSetup: clusters.csv
`)

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_RejectsUnknownTopLevelKey(t *testing.T) {
	path := writeConfig(t, `
simulation:
  N_TICKS: 10
  Scheduler: bestfit
  ClusterSetup: clusters.csv
bogus_section:
  foo: 1
`)

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_EmptyAutoscalerNameIsValid(t *testing.T) {
	path := writeConfig(t, `
simulation:
  N_TICKS: 10
  Scheduler: bestfit
  ClusterSetup: clusters.csv
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "", cfg.Simulation.Autoscaler)
}
