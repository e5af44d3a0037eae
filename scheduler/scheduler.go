// Package scheduler implements the allocation policies that place ready
// tasks from the central queue onto sites.
package scheduler

import (
	"fmt"

	"github.com/fedsched/metasim/centralqueue"
	"github.com/fedsched/metasim/kernel"
	"github.com/fedsched/metasim/model"
	"github.com/fedsched/metasim/site"
)

// SiteDirectory resolves a site id to the Site itself, so a scheduler can
// dispatch an AddTask event to it.
type SiteDirectory interface {
	SiteByID(id kernel.EntityID) (*site.Site, bool)
}

// Allocator places ready tasks onto sites, walking an ascending- or
// descending-ordered view of site capacity. Concrete policies (Best-Fit,
// Worst-Fit, Fill-Worst-Fit) each implement this differently.
type Allocator interface {
	// Name identifies the policy for configuration and logging.
	Name() string
	// Schedule is called once per auto-reschedule tick; it is responsible
	// for placing as many ready tasks as it can and removing them from the
	// queue's ready set.
	Schedule(tsNow int64, queue *centralqueue.CentralQueue, dir SiteDirectory)
}

// Scheduler periodically asks its Allocator to place ready tasks, at a
// fixed cadence independent of any other event in the system.
type Scheduler struct {
	kernel.Base

	allocator            Allocator
	queue                *centralqueue.CentralQueue
	dir                  SiteDirectory
	ticksBetweenReschedule int64

	handlers kernel.HandlerTable
}

// New constructs a Scheduler wired to a specific Allocator.
func New(id kernel.EntityID, k *kernel.Kernel, allocator Allocator, queue *centralqueue.CentralQueue, dir SiteDirectory, ticksBetweenReschedule int64) *Scheduler {
	s := &Scheduler{
		Base:                   kernel.NewBase(id, k),
		allocator:              allocator,
		queue:                  queue,
		dir:                    dir,
		ticksBetweenReschedule: ticksBetweenReschedule,
	}
	s.handlers = kernel.HandlerTable{
		kernel.SchedulerReschedule: s.handleReschedule,
	}
	return s
}

// Activate schedules the first auto-reschedule tick.
func (s *Scheduler) Activate() {
	s.Emit(s.ID(), kernel.SchedulerReschedule, nil)
}

// Dispatch routes an event to its handler.
func (s *Scheduler) Dispatch(ev kernel.Event) { s.Handle(s.handlers, ev) }

func (s *Scheduler) handleReschedule(kernel.Event) {
	s.allocator.Schedule(s.Now(), s.queue, s.dir)

	next := s.Now() + s.ticksBetweenReschedule
	s.EmitAt(next, s.ID(), kernel.SchedulerReschedule, nil)
}

// placeTask hands task to a chosen site by dispatching an AddTask event to
// it directly, outside the event queue, and marks it no longer ready.
func placeTask(tsNow int64, queue *centralqueue.CentralQueue, dir SiteDirectory, stat centralqueue.SiteStat, task *model.Task) {
	target, ok := dir.SiteByID(stat.SiteID)
	if !ok {
		return
	}
	target.Dispatch(kernel.Event{
		Ts:   tsNow,
		Dest: stat.SiteID,
		Type: kernel.AddTask,
		Payload: site.AddTaskPayload{Task: task},
	})
	queue.RemoveReady(task.ID)
}

// New-style allocators are registered by name via NewAllocator, matching
// the factory-plus-validity-map idiom used throughout this codebase for
// pluggable policies.
var registry = map[string]func() Allocator{
	"bestfit":      func() Allocator { return NewBestFit() },
	"worstfit":     func() Allocator { return NewWorstFit() },
	"fillworstfit": func() Allocator { return NewFillWorstFit() },
}

// NewAllocator builds the named allocation policy, panicking if name is not
// one of the registered policies.
func NewAllocator(name string) Allocator {
	build, ok := registry[name]
	if !ok {
		panic(fmt.Sprintf("scheduler: unknown allocation policy %q, valid names: %v", name, ValidAllocatorNames()))
	}
	return build()
}

// IsValidAllocatorName reports whether name is a registered allocation
// policy.
func IsValidAllocatorName(name string) bool {
	_, ok := registry[name]
	return ok
}

// ValidAllocatorNames returns the registered allocation policy names.
func ValidAllocatorNames() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	return names
}
