package simulation

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fedsched/metasim/simconfig"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestSimulate_RunsAWorkloadToCompletion(t *testing.T) {
	dir := t.TempDir()

	gwf := writeFile(t, dir, "workload.csv", "WorkflowID, JobID, SubmitTime, RunTime, NProcs, ReqNProcs, Dependencies\n"+
		"1, 0, 0, 5, 1, 1, \n"+
		"1, 1, 0, 5, 1, 1, 0\n")
	clusters := writeFile(t, dir, "clusters.csv", "ClusterID, Cluster, Resource, Speed, Gwf\n"+
		"site-a, c1, 4, 1.0, \n")

	cfg := simconfig.Default()
	cfg.Simulation.NTicks = 1000
	cfg.Simulation.Scheduler = "bestfit"
	cfg.Simulation.ClusterSetup = clusters
	cfg.Simulation.GWF = gwf
	cfg.Simulation.OutputDir = filepath.Join(dir, "out")

	logger := logrus.New()
	logger.SetOutput(os.Stderr)

	summary, err := Simulate(cfg, logger)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.TotalWorkflows)
	assert.Equal(t, 2, summary.TotalTasks)
	assert.Equal(t, 1, summary.CompletedWorkflows)
	assert.Equal(t, int64(2), summary.FinishedTasks)

	for _, name := range []string{"autoscale_ops.log", "elasticity_metrics.txt", "cost_metrics.txt", "elasticity_overview.txt", "user_workflow_metrics.txt"} {
		_, err := os.Stat(filepath.Join(cfg.Simulation.OutputDir, name))
		assert.NoError(t, err, "expected %s to be written", name)
	}
}

func TestSimulate_RunsWithAnAutoscalerAttached(t *testing.T) {
	dir := t.TempDir()

	gwf := writeFile(t, dir, "workload.csv", "WorkflowID, JobID, SubmitTime, RunTime, NProcs, ReqNProcs, Dependencies\n"+
		", 0, 0, 5, 1, 1, \n"+
		", 1, 10, 5, 1, 1, \n")
	clusters := writeFile(t, dir, "clusters.csv", "ClusterID, Cluster, Resource, Speed, Gwf\n"+
		"site-a, c1, 2, 1.0, \n")

	cfg := simconfig.Default()
	cfg.Simulation.NTicks = 500
	cfg.Simulation.Scheduler = "worstfit"
	cfg.Simulation.Autoscaler = "react"
	cfg.Simulation.ClusterSetup = clusters
	cfg.Simulation.GWF = gwf
	cfg.Autoscaler.NTicksPerEvaluate = 30

	logger := logrus.New()
	logger.SetOutput(os.Stderr)

	summary, err := Simulate(cfg, logger)
	require.NoError(t, err)
	assert.Equal(t, int64(2), summary.FinishedTasks)
}
