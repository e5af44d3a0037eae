// Package systemmonitor aggregates load and capacity signals across every
// site and the central queue, for the autoscaler to act on and for the
// simulation driver to know when there is nothing left to do.
package systemmonitor

import (
	"github.com/fedsched/metasim/centralqueue"
	"github.com/fedsched/metasim/kernel"
	"github.com/fedsched/metasim/model"
	"github.com/fedsched/metasim/site"
)

// ResourceManager is the subset of resourcemanager.Manager the monitor
// needs: the live site list and the ability to drop ones it finds shut
// down during a refresh pass.
type ResourceManager interface {
	Sites() []*site.Site
	DropSite(s *site.Site)
}

// Monitor periodically sweeps every site and the central queue to answer
// aggregate questions about system load, and is the thing that notices a
// fully-drained simulation. Grounded on
// original_source/core/SimMonitors.py SystemMonitor.
type Monitor struct {
	kernel.Base

	rm    ResourceManager
	queue *centralqueue.CentralQueue

	reportInterval int64

	tasksTooLarge int64

	handlers kernel.HandlerTable
}

// New constructs a Monitor that refreshes every reportInterval ticks.
func New(id kernel.EntityID, k *kernel.Kernel, rm ResourceManager, queue *centralqueue.CentralQueue, reportInterval int64) *Monitor {
	m := &Monitor{
		Base:           kernel.NewBase(id, k),
		rm:             rm,
		queue:          queue,
		reportInterval: reportInterval,
	}
	m.handlers = kernel.HandlerTable{
		kernel.SysMonMonitor: m.handleMonitor,
	}
	return m
}

// Activate schedules the first refresh.
func (m *Monitor) Activate() {
	m.Emit(m.ID(), kernel.SysMonMonitor, nil)
}

// Dispatch routes an event to its handler.
func (m *Monitor) Dispatch(ev kernel.Event) { m.Handle(m.handlers, ev) }

func (m *Monitor) handleMonitor(kernel.Event) {
	m.refresh()
	m.EmitAt(m.Now()+m.reportInterval, m.ID(), kernel.SysMonMonitor, nil)
}

// refresh drops any site the resource manager has shut down but not yet
// forgotten, and recounts tasks whose CPU demand exceeds every site's
// capacity — they can never be placed and are worth surfacing rather than
// silently stalling the queue forever.
func (m *Monitor) refresh() {
	m.tasksTooLarge = m.countTasksTooLarge()
	for _, s := range m.rm.Sites() {
		if s.Status() == site.StatusShutdown {
			m.rm.DropSite(s)
		}
	}
}

func (m *Monitor) countTasksTooLarge() int64 {
	var maxCapacity int64
	for _, s := range m.rm.Sites() {
		if s.Status() != site.StatusShutdown && s.Resources > maxCapacity {
			maxCapacity = s.Resources
		}
	}

	var count int64
	for _, t := range m.queue.PendingTasks() {
		if t.CPUs > maxCapacity {
			count++
		}
	}
	return count
}

// CountTasksTooLarge reports how many pending tasks exceed the capacity of
// every currently running site, as of the last refresh.
func (m *Monitor) CountTasksTooLarge() int64 { return m.tasksTooLarge }

// TotalLoad sums the CPU demand of every task still in the system: running
// on a site, or waiting in the central queue.
func (m *Monitor) TotalLoad() int64 {
	var total int64
	for _, s := range m.rm.Sites() {
		if s.Status() == site.StatusShutdown {
			continue
		}
		total += s.Resources - s.FreeResources()
	}
	total += m.PendingTasksLoad()
	return total
}

// PendingTasksLoad sums the CPU demand of tasks not yet placed on any site.
func (m *Monitor) PendingTasksLoad() int64 {
	var total int64
	for _, t := range m.queue.PendingTasks() {
		total += t.CPUs
	}
	return total
}

// CountIdleResources sums the CPU budget of every site sitting completely
// unused — idle running sites contribute their whole capacity.
func (m *Monitor) CountIdleResources() int64 {
	var total int64
	for _, s := range m.rm.Sites() {
		if s.Status() == site.StatusRunning && s.IsIdle() {
			total += s.Resources
		}
	}
	return total
}

// PendingTasks exposes the central queue's not-yet-placed task set, for
// strategies that need individual task shapes rather than aggregate load.
func (m *Monitor) PendingTasks() []*model.Task { return m.queue.PendingTasks() }

// ActiveWorkflows exposes every workflow that has been submitted but not
// yet finished.
func (m *Monitor) ActiveWorkflows() []*model.Workflow { return m.queue.Workflows() }

// TasksByID exposes the full task table, for walking dependency edges.
func (m *Monitor) TasksByID() map[int64]*model.Task { return m.queue.TasksByID() }

// HasTasksToCome reports whether any task is still pending or running
// anywhere in the system.
func (m *Monitor) HasTasksToCome() bool {
	if m.queue.PendingCount() > 0 {
		return true
	}
	for _, s := range m.rm.Sites() {
		if s.Status() == site.StatusRunning && !s.IsIdle() {
			return true
		}
	}
	return false
}

// ShouldStop reports whether the simulation has nothing left to do: no
// tasks pending or running anywhere, and every submitted task has been
// accounted for as finished. Wired to kernel.Kernel.ForcedStop by the
// simulation driver.
func (m *Monitor) ShouldStop() bool {
	if m.HasTasksToCome() {
		return false
	}
	submitted, finished := m.queue.Counts()
	return submitted == finished
}
