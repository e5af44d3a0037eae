// Package simulation wires every domain package into one runnable
// simulation: it loads a workload and cluster catalog, builds the kernel
// and its entities, drives the event loop to completion, and writes the
// run's output artifacts.
package simulation

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/fedsched/metasim/autoscaler"
	"github.com/fedsched/metasim/centralqueue"
	"github.com/fedsched/metasim/kernel"
	"github.com/fedsched/metasim/model"
	"github.com/fedsched/metasim/resourcemanager"
	"github.com/fedsched/metasim/scheduler"
	"github.com/fedsched/metasim/simconfig"
	"github.com/fedsched/metasim/site"
	"github.com/fedsched/metasim/systemmonitor"
	"github.com/fedsched/metasim/workload"
)

// Summary is everything a caller (the CLI, or a test) might want to report
// about a finished run, beyond what's already on disk.
type Summary struct {
	TicksRun          int64
	TotalWorkflows    int
	CompletedWorkflows int
	TotalTasks        int
	FinishedTasks     int64
	KPI               autoscaler.KPI
	FinalCapacity     int64
}

// siteDirectory adapts resourcemanager.Manager.Sites to scheduler.SiteDirectory.
type siteDirectory struct {
	rm *resourcemanager.Manager
}

func (d siteDirectory) SiteByID(id kernel.EntityID) (*site.Site, bool) {
	for _, s := range d.rm.Sites() {
		if s.ID() == id {
			return s, true
		}
	}
	return nil, false
}

// Simulate runs one complete simulation from cfg and returns its summary.
// Every output artifact named in cfg.Simulation.OutputDir is written before
// returning; a blank OutputDir skips file output entirely (useful for
// tests that only care about the returned Summary).
func Simulate(cfg simconfig.Config, logger *logrus.Logger) (*Summary, error) {
	rows, err := workload.LoadClusterSetup(cfg.Simulation.ClusterSetup)
	if err != nil {
		return nil, fmt.Errorf("simulation: %w", err)
	}

	wl, err := workload.Load(rows, cfg.Simulation.GWF)
	if err != nil {
		return nil, fmt.Errorf("simulation: %w", err)
	}

	k := kernel.NewKernel()

	var rm *resourcemanager.Manager
	queueEntity := k.Register(func(id kernel.EntityID) kernel.SimEntity {
		return centralqueue.New(id, k, cfg.CentralQueue.NTicksMonitorSiteStatus, func() []centralqueue.SiteView {
			if rm == nil {
				return nil
			}
			sites := rm.Sites()
			views := make([]centralqueue.SiteView, len(sites))
			for i, s := range sites {
				views[i] = s
			}
			return views
		})
	})
	queue := queueEntity.(*centralqueue.CentralQueue)

	catalog := make([]resourcemanager.ClusterInfo, len(rows))
	for i, r := range rows {
		catalog[i] = r.ClusterInfo
	}
	rm = resourcemanager.New(k, queue, queue.ID(), cfg.SiteMonitor.NTicksBetweenMonitoring, catalog, false)

	k.Register(func(id kernel.EntityID) kernel.SimEntity {
		return scheduler.New(id, k, scheduler.NewAllocator(cfg.Simulation.Scheduler), queue, siteDirectory{rm}, cfg.CentralQueue.NTicksMonitorSiteStatus)
	})

	monitorEntity := k.Register(func(id kernel.EntityID) kernel.SimEntity {
		return systemmonitor.New(id, k, rm, queue, cfg.SystemMonitor.NTicksUpdateStatistics)
	})
	monitor := monitorEntity.(*systemmonitor.Monitor)

	outDir := cfg.Simulation.OutputDir
	var opsLog io.Writer = io.Discard
	var opsLogFile *os.File
	if outDir != "" {
		if err := os.MkdirAll(outDir, 0o755); err != nil {
			return nil, fmt.Errorf("simulation: %w", err)
		}
		opsLogFile, err = os.Create(filepath.Join(outDir, "autoscale_ops.log"))
		if err != nil {
			return nil, fmt.Errorf("simulation: %w", err)
		}
		defer opsLogFile.Close()
		opsLog = opsLogFile
	}

	var scaler *autoscaler.Autoscaler
	if cfg.Simulation.Autoscaler != "" {
		strategy := autoscaler.NewStrategy(cfg.Simulation.Autoscaler, autoscaler.Config{
			Speed:            cfg.Autoscaler.ServerSpeed,
			HistPercentile:   cfg.Autoscaler.HistPercentile,
			TokenMaxCapacity: cfg.Autoscaler.TokenMaxCapacity,
		})
		scalerEntity := k.Register(func(id kernel.EntityID) kernel.SimEntity {
			return autoscaler.New(id, k, strategy, rm, monitor, logger, cfg.Autoscaler.NTicksPerEvaluate, opsLog)
		})
		scaler = scalerEntity.(*autoscaler.Autoscaler)
	}

	tasks := make([]*model.Task, 0, len(wl.Tasks))
	for _, t := range wl.Tasks {
		tasks = append(tasks, t)
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].ID < tasks[j].ID })

	queue.SetWorkflows(wl.Workflows)
	queue.SetTaskList(tasks, false)

	k.ForcedStop = monitor.ShouldStop

	k.Start(cfg.Simulation.NTicks)

	_, finished := queue.Counts()

	summary := &Summary{
		TicksRun:      k.Clock,
		TotalWorkflows: len(wl.Workflows),
		TotalTasks:    len(wl.Tasks),
		FinishedTasks: finished,
		FinalCapacity: rm.CurrentCapacity(),
	}
	if scaler != nil {
		summary.KPI = scaler.KPI
	}

	completed := 0
	for _, w := range wl.Workflows {
		if w.Status == model.WorkflowFinished {
			completed++
		}
	}
	summary.CompletedWorkflows = completed

	if outDir != "" {
		if err := writeElasticityMetrics(outDir, summary, cfg); err != nil {
			return nil, err
		}
		if err := writeCostMetrics(outDir, summary); err != nil {
			return nil, err
		}
		if err := writeElasticityOverview(outDir, summary); err != nil {
			return nil, err
		}
		if err := writeUserWorkflowMetrics(outDir, wl, summary); err != nil {
			return nil, err
		}
	}

	return summary, nil
}

// writeElasticityMetrics writes the per-run elasticity line: the eight
// running KPI totals an evaluation accumulates, followed by the run's
// horizon and the capacity of the sites still running when the run ended
// (Summary.FinalCapacity) — the last two columns every downstream analysis
// joins the per-run line against.
func writeElasticityMetrics(outDir string, s *Summary, cfg simconfig.Config) error {
	f, err := os.Create(filepath.Join(outDir, "elasticity_metrics.txt"))
	if err != nil {
		return fmt.Errorf("simulation: %w", err)
	}
	defer f.Close()

	k := s.KPI
	_, err = fmt.Fprintf(f, "%f %f %f %f %f %f %f %f %d %d\n",
		k.Underprovisioning, k.Overprovisioning,
		k.UnderprovisioningNormalized, k.OverprovisioningNormalized,
		k.OverprovisioningMU, k.TimeUnderprovisioning, k.TimeOverprovisioning,
		k.InstabilityK, cfg.Simulation.NTicks, s.FinalCapacity)
	return err
}

// writeCostMetrics writes the charged-CPU-hour total the autoscaler's KPI
// accumulated, followed by the capacity of the sites still running when the
// run ended (Summary.FinalCapacity).
func writeCostMetrics(outDir string, s *Summary) error {
	f, err := os.Create(filepath.Join(outDir, "cost_metrics.txt"))
	if err != nil {
		return fmt.Errorf("simulation: %w", err)
	}
	defer f.Close()

	_, err = fmt.Fprintf(f, "%f %d\n", s.KPI.AverageChargedCPUHours, s.FinalCapacity)
	return err
}

// writeElasticityOverview writes the KPI totals elasticity_metrics.txt
// leaves out: the instability counted from the demand side, and the
// average resource level held across every evaluation.
func writeElasticityOverview(outDir string, s *Summary) error {
	f, err := os.Create(filepath.Join(outDir, "elasticity_overview.txt"))
	if err != nil {
		return fmt.Errorf("simulation: %w", err)
	}
	defer f.Close()

	_, err = fmt.Fprintf(f, "%f %f\n", s.KPI.InstabilityKPrime, s.KPI.AverageResources)
	return err
}

// writeUserWorkflowMetrics writes the throughput summary line followed by
// one line per completed workflow: id, makespan, response time and
// critical-path length.
func writeUserWorkflowMetrics(outDir string, wl *workload.Workload, s *Summary) error {
	f, err := os.Create(filepath.Join(outDir, "user_workflow_metrics.txt"))
	if err != nil {
		return fmt.Errorf("simulation: %w", err)
	}
	defer f.Close()

	var throughput float64
	if s.TicksRun > 0 {
		throughput = float64(s.FinishedTasks) / (float64(s.TicksRun) / 3600)
	}
	if _, err := fmt.Fprintf(f, "%d %d %f\n", s.CompletedWorkflows, s.TotalWorkflows, throughput); err != nil {
		return err
	}

	ids := make([]int64, 0, len(wl.Workflows))
	for id := range wl.Workflows {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		w := wl.Workflows[id]
		if w.Status != model.WorkflowFinished {
			continue
		}
		if _, err := fmt.Fprintf(f, "%d %d %d %d\n", w.ID, w.Makespan(), w.ResponseTime(), w.CriticalPathLength); err != nil {
			return err
		}
	}
	return nil
}
