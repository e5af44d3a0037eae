package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveConfig_BareIntegerWithoutGWFIsAnError(t *testing.T) {
	gwfPath = ""
	_, err := resolveConfig("100")
	assert.Error(t, err)
}

func TestResolveConfig_AdHocInvocationSynthesizesClusters(t *testing.T) {
	dir := t.TempDir()
	gwf := filepath.Join(dir, "workload.csv")
	require.NoError(t, os.WriteFile(gwf, []byte("WorkflowID, JobID, SubmitTime, RunTime, NProcs, ReqNProcs, Dependencies\n, 0, 0, 5, 1, 1, \n"), 0o644))

	gwfPath = gwf
	clusterCount = 3
	defer func() { gwfPath = ""; clusterCount = 1 }()

	cfg, err := resolveConfig("100")
	require.NoError(t, err)
	assert.Equal(t, int64(100), cfg.Simulation.NTicks)
	assert.Equal(t, gwf, cfg.Simulation.GWF)

	rows, err := os.ReadFile(cfg.Simulation.ClusterSetup)
	require.NoError(t, err)
	assert.Contains(t, string(rows), "cluster-2")
}

func TestResolveConfig_ConfigFilePathLoadsFromDisk(t *testing.T) {
	dir := t.TempDir()
	clusters := filepath.Join(dir, "clusters.csv")
	require.NoError(t, os.WriteFile(clusters, []byte("ClusterID, Cluster, Resource, Speed, Gwf\nsite-a, c1, 4, 1.0, \n"), 0o644))

	path := filepath.Join(dir, "config.yaml")
	content := "simulation:\n  N_TICKS: 50\n  Scheduler: bestfit\n  ClusterSetup: " + clusters + "\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := resolveConfig(path)
	require.NoError(t, err)
	assert.Equal(t, int64(50), cfg.Simulation.NTicks)
}
