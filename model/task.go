// Package model holds the domain entities shared across the simulator:
// tasks, their dependency workflows, and the critical-path analysis used by
// the Token autoscalers.
package model

// TaskStatus is the lifecycle stage of a Task.
type TaskStatus int

const (
	StatusSubmitted TaskStatus = iota
	StatusQueued
	StatusRunning
	StatusFinished
)

// Task is a single schedulable unit of work inside a Workflow. Runtime and
// CPU demand are clamped to at least 1 at construction, matching the
// reference loader's treatment of malformed trace rows.
type Task struct {
	ID         int64
	WorkflowID int64 // -1 when the task does not belong to a workflow
	TsSubmit   int64
	Runtime    int64
	CPUs       int64

	Dependencies map[int64]struct{}
	Children     []int64

	Status     TaskStatus
	RunningAt  int64 // site id, -1 when not queued/running anywhere
	TsStart    int64
	TsEnd      int64
}

// NewTask constructs a Task with runtime and cpu demand floored at 1.
func NewTask(id, workflowID, tsSubmit, runtime, cpus int64, deps map[int64]struct{}) *Task {
	if runtime < 1 {
		runtime = 1
	}
	if cpus < 1 {
		cpus = 1
	}
	if deps == nil {
		deps = make(map[int64]struct{})
	}
	return &Task{
		ID:           id,
		WorkflowID:   workflowID,
		TsSubmit:     tsSubmit,
		Runtime:      runtime,
		CPUs:         cpus,
		Dependencies: deps,
		Status:       StatusSubmitted,
		RunningAt:    -1,
		TsStart:      -1,
		TsEnd:        -1,
	}
}

// HasWorkflow reports whether the task belongs to a workflow. WorkflowID 0
// is a valid id, so this must not be a simple zero check.
func (t *Task) HasWorkflow() bool { return t.WorkflowID >= 0 }

// IsEntry reports whether the task has no unresolved dependencies left to
// satisfy. RemoveDependency drains dependencies as parents finish, so this
// holds for a root of the workflow's DAG and also for any task whose
// parents have all finished.
func (t *Task) IsEntry() bool { return len(t.Dependencies) == 0 }

// IsExit reports whether no other task lists this one as a dependency.
func (t *Task) IsExit() bool { return len(t.Children) == 0 }

// QueueAtSite marks the task as accepted into a site's local queue, ahead of
// actually running.
func (t *Task) QueueAtSite(siteID int64) {
	t.Status = StatusQueued
	t.RunningAt = siteID
}

// Run marks the task as dispatched for execution over [tsStart, tsEnd).
func (t *Task) Run(tsStart, tsEnd int64) {
	t.Status = StatusRunning
	t.TsStart = tsStart
	t.TsEnd = tsEnd
}

// Interrupt reverts the task to its pre-queue state, used when the site it
// was queued or running at shuts down before completion.
func (t *Task) Interrupt() {
	t.Status = StatusSubmitted
	t.RunningAt = -1
	t.TsStart = -1
	t.TsEnd = -1
}

// Stop marks the task as finished.
func (t *Task) Stop() {
	t.Status = StatusFinished
}

// RemoveDependency resolves one of the task's unmet dependencies, called
// when the named parent task finishes.
func (t *Task) RemoveDependency(parentID int64) {
	delete(t.Dependencies, parentID)
}
