package model

// WorkflowStatus is the lifecycle stage of a Workflow.
type WorkflowStatus int

const (
	WorkflowSubmitted WorkflowStatus = iota
	WorkflowStarted
	WorkflowFinished
)

// Workflow groups a set of dependent tasks and tracks their aggregate
// lifecycle: it starts the moment its first (entry) task begins running and
// is considered finished once every exit task (a task nothing depends on)
// has finished.
type Workflow struct {
	ID       int64
	TaskIDs  []int64
	Status   WorkflowStatus
	TsSubmit int64 // earliest TsSubmit among the workflow's tasks, set at load time
	TsStart  int64
	TsFinish int64

	// CriticalPathLength and CriticalPathTaskCount are computed once when
	// the workflow is loaded (see CriticalPath) and reused by autoscaler
	// strategies that need a cheap, non-recursive estimate of the
	// workflow's depth and width instead of recomputing it every
	// evaluation.
	CriticalPathLength    int64
	CriticalPathTaskCount int64
}

// NewWorkflow returns a workflow in the Submitted state over the given task
// ids.
func NewWorkflow(id int64, taskIDs []int64) *Workflow {
	return &Workflow{ID: id, TaskIDs: taskIDs, Status: WorkflowSubmitted}
}

// Started reports whether the workflow has left the Submitted state.
func (w *Workflow) Started() bool { return w.Status != WorkflowSubmitted }

// Start transitions the workflow to Started at tsNow. Calling it on an
// already-started workflow is a programming error.
func (w *Workflow) Start(tsNow int64) {
	if w.Status != WorkflowSubmitted {
		panic("model: workflow already started")
	}
	w.TsStart = tsNow
	w.Status = WorkflowStarted
}

// Completed reports whether every exit task in tasksByID has finished,
// checking tasks directly rather than caching a running count so that it
// stays correct regardless of the order tasks finish in. Once true it
// latches the workflow into WorkflowFinished and records tsNow as the
// finish time, exactly once.
func (w *Workflow) Completed(tsNow int64, tasksByID map[int64]*Task) bool {
	if w.Status == WorkflowFinished {
		return true
	}
	for _, id := range w.TaskIDs {
		task := tasksByID[id]
		if task.IsExit() && task.Status != StatusFinished {
			return false
		}
	}
	w.Status = WorkflowFinished
	w.TsFinish = tsNow
	return true
}

// Makespan is the wall-clock span of the workflow's execution, valid only
// once it has finished.
func (w *Workflow) Makespan() int64 { return w.TsFinish - w.TsStart }

// ResponseTime is the total time from the first task's submission to the
// workflow's completion, valid only once it has finished.
func (w *Workflow) ResponseTime() int64 {
	return (w.TsStart - w.TsSubmit) + w.Makespan()
}
