// Package site implements a single compute site: an FCFS local task queue
// dispatched against a fixed CPU budget, plus the per-site counters the
// system monitor aggregates.
package site

import (
	"github.com/fedsched/metasim/kernel"
	"github.com/fedsched/metasim/model"
)

// Status is the provisioning state of a Site.
type Status int

const (
	StatusRunning Status = iota
	StatusShutdown
)

// TaskDoneSitePayload is carried by a TaskDoneSite event so the site can
// find the task that just finished without scanning every running task.
type TaskDoneSitePayload struct {
	RunningTaskIndex int64
}

// TaskDoneUserPayload is carried by a TaskDoneUser event emitted to the
// central queue when a task completes.
type TaskDoneUserPayload struct {
	Task *model.Task
}

// AddTaskPayload is carried by an AddTask event, placing a task into a
// site's local FCFS queue.
type AddTaskPayload struct {
	Task *model.Task
}

// Site is a provisioned pool of CPUs that runs tasks dispatched to it by a
// Scheduler, FCFS, with no preemption: the head of the queue blocks
// everything behind it until enough CPUs free up.
type Site struct {
	kernel.Base

	Name          string
	Resources     int64
	ResourceSpeed float64 // ticks charged are runtime/speed, ceiling-rounded
	status        Status

	usedResources int64
	taskQueue     []*model.Task
	runningTasks  map[int64]*model.Task // keyed by a monotonic per-site index, not task id

	nextRunningIndex int64
	reportInterval   int64

	centralQueueID kernel.EntityID

	Monitor *Monitor

	handlers kernel.HandlerTable
}

// New constructs a site with the given resource capacity and dispatch
// speed, wired to report task completions to centralQueueID.
func New(id kernel.EntityID, k *kernel.Kernel, name string, resources int64, speed float64, reportInterval int64, centralQueueID kernel.EntityID) *Site {
	s := &Site{
		Base:           kernel.NewBase(id, k),
		Name:           name,
		Resources:      resources,
		ResourceSpeed:  speed,
		status:         StatusRunning,
		runningTasks:   make(map[int64]*model.Task),
		reportInterval: reportInterval,
		centralQueueID: centralQueueID,
	}
	s.Monitor = NewMonitor(s, reportInterval)

	s.handlers = kernel.HandlerTable{
		kernel.AddTask:        s.handleAddTask,
		kernel.SiteReschedule: s.handleReschedule,
		kernel.TaskDoneSite:   s.handleTaskDone,
		kernel.SiteMonitor:    s.handleMonitor,
	}
	return s
}

// Status reports whether the site is accepting work.
func (s *Site) Status() Status { return s.status }

// FreeResources is the CPU budget not currently allocated to a running
// task. It does not account for tasks still sitting in the local queue —
// callers that need that (the central queue's capacity estimate) subtract
// QueuedResources themselves.
func (s *Site) FreeResources() int64 { return s.Resources - s.usedResources }

// QueuedResources is the CPU demand of tasks accepted onto this site but
// not yet dispatched.
func (s *Site) QueuedResources() int64 {
	var sum int64
	for _, t := range s.taskQueue {
		sum += t.CPUs
	}
	return sum
}

// IsIdle reports whether the site has no running and no queued work.
func (s *Site) IsIdle() bool { return len(s.runningTasks) == 0 && len(s.taskQueue) == 0 }

// Activate enqueues the site's first periodic monitor tick.
func (s *Site) Activate() {
	s.Emit(s.ID(), kernel.SiteMonitor, nil)
}

// Dispatch routes an event to its handler. Once shut down, a site no longer
// reacts to anything — this matches a provisioned-then-decommissioned site
// that may still have stale events in flight addressed to it.
func (s *Site) Dispatch(ev kernel.Event) {
	if s.status == StatusShutdown {
		return
	}
	s.Handle(s.handlers, ev)
}

func (s *Site) handleAddTask(ev kernel.Event) {
	payload := ev.Payload.(AddTaskPayload)
	task := payload.Task

	s.Monitor.stats.TotalNTasksIn++
	s.Monitor.stats.LRTUNTasksIn++
	s.Monitor.addArrivedTask(s.Now())

	task.QueueAtSite(int64(s.ID()))
	s.taskQueue = append(s.taskQueue, task)

	s.Emit(s.ID(), kernel.SiteReschedule, nil)
}

// handleReschedule drains the FCFS queue while the head task fits in the
// free budget, dispatching each one in turn. Runtime is converted to ticks
// via ceil(runtime/speed), matching a site whose CPUs run slower or faster
// than nominal.
func (s *Site) handleReschedule(kernel.Event) {
	for len(s.taskQueue) > 0 {
		head := s.taskQueue[0]
		if head.CPUs > s.FreeResources() {
			break
		}
		s.taskQueue = s.taskQueue[1:]

		runTicks := int64(float64(head.Runtime) / s.ResourceSpeed)
		if float64(head.Runtime) > float64(runTicks)*s.ResourceSpeed {
			runTicks++
		}

		tsStart := s.Now()
		tsEnd := tsStart + runTicks
		head.Run(tsStart, tsEnd)

		s.usedResources += head.CPUs
		s.Monitor.stats.TotalNTasksStarted++
		s.Monitor.stats.LRTUNTasksStarted++

		idx := s.nextRunningIndex
		s.nextRunningIndex++
		s.runningTasks[idx] = head

		s.EmitAt(tsEnd, s.ID(), kernel.TaskDoneSite, TaskDoneSitePayload{RunningTaskIndex: idx})
	}
}

func (s *Site) handleTaskDone(ev kernel.Event) {
	payload := ev.Payload.(TaskDoneSitePayload)
	task, ok := s.runningTasks[payload.RunningTaskIndex]
	if !ok {
		return
	}
	delete(s.runningTasks, payload.RunningTaskIndex)

	task.Stop()
	s.usedResources -= task.CPUs

	elapsed := task.TsEnd - task.TsStart
	s.Monitor.stats.TotalConsumedCPUTime += elapsed * task.CPUs
	lrtu := elapsed
	if lrtu > s.reportInterval {
		lrtu = s.reportInterval
	}
	s.Monitor.stats.LRTUConsumedCPUTime += lrtu * task.CPUs
	s.Monitor.stats.TotalNTasksFinished++
	s.Monitor.stats.LRTUNTasksFinished++

	s.Emit(s.centralQueueID, kernel.TaskDoneUser, TaskDoneUserPayload{Task: task})
	s.Emit(s.ID(), kernel.SiteReschedule, nil)
}

func (s *Site) handleMonitor(kernel.Event) {
	s.EmitAt(s.Now()+s.reportInterval, s.ID(), kernel.SiteMonitor, nil)
}

// Shutdown decommissions the site. Idle sites shut down immediately; sites
// with work in flight interrupt every running and queued task (returning
// them to the central queue via extend) before going dark. extend receives
// running and queued tasks as two separate lists so the caller can account
// for resubmission without losing the distinction between the two.
func (s *Site) Shutdown(extend func(running, queued []*model.Task)) {
	s.status = StatusShutdown
	if s.IsIdle() {
		return
	}

	running := make([]*model.Task, 0, len(s.runningTasks))
	for _, t := range s.runningTasks {
		t.Interrupt()
		running = append(running, t)
	}
	queued := make([]*model.Task, 0, len(s.taskQueue))
	for _, t := range s.taskQueue {
		t.Interrupt()
		queued = append(queued, t)
	}

	extend(running, queued)

	s.runningTasks = make(map[int64]*model.Task)
	s.taskQueue = nil
	s.usedResources = 0
}
