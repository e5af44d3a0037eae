// Package centralqueue implements the admission and readiness pipeline that
// sits between workflow submission and per-site dispatch: tasks wait for
// their dependencies and their submission time, then become eligible for a
// Scheduler to place.
package centralqueue

import (
	"sort"

	"github.com/fedsched/metasim/kernel"
	"github.com/fedsched/metasim/model"
	"github.com/fedsched/metasim/site"
)

// SiteView is the subset of site.Site the central queue needs to build its
// placement index, kept narrow so centralqueue does not need to import the
// concrete site package beyond this.
type SiteView interface {
	ID() kernel.EntityID
	Status() site.Status
	FreeResources() int64
	QueuedResources() int64
}

// TaskDoneUserPayload mirrors site.TaskDoneUserPayload; duplicated here as
// the wire type the central queue's handler decodes, keeping the two
// packages from needing to agree on anything but the event type.
type TaskDoneUserPayload = site.TaskDoneUserPayload

// CentralQueue is the admission point for tasks: it partitions them into
// those still waiting on a dependency, those whose dependencies are met but
// whose submission time hasn't arrived, and those ready for a Scheduler to
// place. The three-way split (rather than a flatter queue) keeps a
// dependency-blocked task from needing to be re-scanned every time the
// submission clock ticks forward, and vice versa.
type CentralQueue struct {
	kernel.Base

	monitorInterval int64
	sites           func() []SiteView

	tasksByID     map[int64]*model.Task
	workflowsByID map[int64]*model.Workflow

	pendingDependencies map[int64]*model.Task
	submittedFuture     []*model.Task // sorted ascending by TsSubmit
	ready               []*model.Task

	submittedTasksCount int64
	finishedTasksCount  int64

	Index *SiteIndex

	handlers kernel.HandlerTable
}

// New constructs an empty central queue. sites is called each monitor tick
// to rebuild the site-stat index from scratch.
func New(id kernel.EntityID, k *kernel.Kernel, monitorInterval int64, sites func() []SiteView) *CentralQueue {
	q := &CentralQueue{
		Base:                kernel.NewBase(id, k),
		monitorInterval:     monitorInterval,
		sites:               sites,
		tasksByID:           make(map[int64]*model.Task),
		workflowsByID:       make(map[int64]*model.Workflow),
		pendingDependencies: make(map[int64]*model.Task),
		Index:               NewSiteIndex(),
	}
	q.handlers = kernel.HandlerTable{
		kernel.MonitorSiteStatus: q.handleMonitorSiteStatus,
		kernel.TaskDoneUser:      q.handleTaskDone,
	}
	return q
}

// Activate schedules the first site-status monitor tick.
func (q *CentralQueue) Activate() {
	q.Emit(q.ID(), kernel.MonitorSiteStatus, nil)
}

// Dispatch routes an event to its handler.
func (q *CentralQueue) Dispatch(ev kernel.Event) { q.Handle(q.handlers, ev) }

// SetWorkflows registers the workflow objects tasks may belong to.
func (q *CentralQueue) SetWorkflows(workflows map[int64]*model.Workflow) {
	q.workflowsByID = workflows
}

// SetTaskList admits the initial batch of tasks. When shiftToZero is true,
// every task's submission time is shifted so the earliest submission lands
// at zero — the driver decides this explicitly rather than relying on a
// default, since the reference engine's own default and its actual call
// site disagree.
func (q *CentralQueue) SetTaskList(tasks []*model.Task, shiftToZero bool) {
	if shiftToZero && len(tasks) > 0 {
		min := tasks[0].TsSubmit
		for _, t := range tasks {
			if t.TsSubmit < min {
				min = t.TsSubmit
			}
		}
		for _, t := range tasks {
			t.TsSubmit -= min
			if t.TsSubmit < 0 {
				t.TsSubmit = 0
			}
		}
	}

	for _, t := range tasks {
		q.tasksByID[t.ID] = t
		q.submittedTasksCount++
		q.classify(t)
	}
}

// Extend re-admits tasks that were interrupted by a site shutdown.
// submittedTasksCount is decremented first so that resubmission never
// inflates the submitted-vs-finished invariant the system monitor relies on
// to detect a fully drained run.
func (q *CentralQueue) Extend(tasks []*model.Task) {
	q.submittedTasksCount -= int64(len(tasks))
	for _, t := range tasks {
		q.submittedTasksCount++
		q.classify(t)
	}
}

// classify places a task into pendingDependencies, submittedFuture or
// ready depending on its current dependency and submission state.
func (q *CentralQueue) classify(t *model.Task) {
	if len(t.Dependencies) > 0 {
		q.pendingDependencies[t.ID] = t
		return
	}
	if t.TsSubmit > q.Now() {
		q.insertSubmittedFuture(t)
		return
	}
	q.ready = append(q.ready, t)
}

func (q *CentralQueue) insertSubmittedFuture(t *model.Task) {
	i := sort.Search(len(q.submittedFuture), func(i int) bool { return q.submittedFuture[i].TsSubmit >= t.TsSubmit })
	q.submittedFuture = append(q.submittedFuture, nil)
	copy(q.submittedFuture[i+1:], q.submittedFuture[i:])
	q.submittedFuture[i] = t
}

// TasksToSchedule promotes every submitted-future task whose time has come
// into the ready set and returns the full ready set for a Scheduler to
// consume. Promotion stops early once the number of minimal (1-cpu) tasks
// promoted so far reaches total available capacity, since none of the
// remaining future tasks could be placed this round either.
func (q *CentralQueue) TasksToSchedule() []*model.Task {
	minimalTaskAmount := int64(0)
	total := q.Index.TotalAvailable()

	for len(q.submittedFuture) > 0 {
		head := q.submittedFuture[0]
		if head.TsSubmit > q.Now() {
			break
		}
		q.submittedFuture = q.submittedFuture[1:]
		q.ready = append(q.ready, head)

		if head.CPUs == 1 {
			minimalTaskAmount++
		}
		if minimalTaskAmount >= total {
			break
		}
	}

	return q.ready
}

// RemoveReady drops a placed task from the ready set. Schedulers call this
// after successfully placing a task.
func (q *CentralQueue) RemoveReady(taskID int64) {
	for i, t := range q.ready {
		if t.ID == taskID {
			q.ready = append(q.ready[:i], q.ready[i+1:]...)
			return
		}
	}
}

// Ready exposes the current ready set without mutating it.
func (q *CentralQueue) Ready() []*model.Task { return q.ready }

// Counts returns the submitted and finished task totals.
func (q *CentralQueue) Counts() (submitted, finished int64) {
	return q.submittedTasksCount, q.finishedTasksCount
}

// TasksByID exposes the full task table, keyed by id, for consumers that
// need to walk dependency edges (e.g. a critical-path estimate).
func (q *CentralQueue) TasksByID() map[int64]*model.Task { return q.tasksByID }

// Workflows returns every workflow that has been submitted but not yet
// finished.
func (q *CentralQueue) Workflows() []*model.Workflow {
	out := make([]*model.Workflow, 0, len(q.workflowsByID))
	for _, w := range q.workflowsByID {
		if w.Status != model.WorkflowFinished {
			out = append(out, w)
		}
	}
	return out
}

// PendingTasks returns every task not yet placed on a site: those blocked
// on a dependency, those waiting for their submission time, and those
// ready for a Scheduler to place.
func (q *CentralQueue) PendingTasks() []*model.Task {
	out := make([]*model.Task, 0, len(q.pendingDependencies)+len(q.submittedFuture)+len(q.ready))
	for _, t := range q.pendingDependencies {
		out = append(out, t)
	}
	out = append(out, q.submittedFuture...)
	out = append(out, q.ready...)
	return out
}

// PendingCount is len(PendingTasks()) without the allocation, used by the
// system monitor's "tasks still to come" check.
func (q *CentralQueue) PendingCount() int {
	return len(q.pendingDependencies) + len(q.submittedFuture) + len(q.ready)
}

func (q *CentralQueue) handleMonitorSiteStatus(kernel.Event) {
	q.Index.Reset()
	for _, s := range q.sites() {
		if s.Status() == site.StatusShutdown {
			continue
		}
		free := s.FreeResources() - s.QueuedResources()
		q.Index.Add(SiteStat{SiteID: s.ID(), Free: free})
	}

	q.EmitAt(q.Now()+q.monitorInterval, q.ID(), kernel.MonitorSiteStatus, nil)
}

// AddSiteStat incrementally registers a newly-provisioned site, used by the
// resource manager instead of waiting for the next full rebuild.
func (q *CentralQueue) AddSiteStat(s SiteStat) { q.Index.Add(s) }

// RemoveSiteStat incrementally deregisters a site that has shut down.
func (q *CentralQueue) RemoveSiteStat(id kernel.EntityID) { q.Index.Remove(id) }

func (q *CentralQueue) handleTaskDone(ev kernel.Event) {
	payload := ev.Payload.(TaskDoneUserPayload)
	task := payload.Task

	q.finishedTasksCount++

	if task.HasWorkflow() {
		if workflow, ok := q.workflowsByID[task.WorkflowID]; ok {
			if task.IsEntry() && !workflow.Started() {
				workflow.Start(task.TsStart)
			}
			if task.IsExit() {
				workflow.Completed(task.TsEnd, q.tasksByID)
			}
		}
	}

	for _, childID := range task.Children {
		child, ok := q.tasksByID[childID]
		if !ok {
			continue
		}
		child.RemoveDependency(task.ID)
		if len(child.Dependencies) == 0 {
			delete(q.pendingDependencies, child.ID)
			if child.TsSubmit > q.Now() {
				q.insertSubmittedFuture(child)
			} else {
				q.ready = append(q.ready, child)
			}
		}
	}
}
