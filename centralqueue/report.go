package centralqueue

import (
	"fmt"
	"io"

	"github.com/fedsched/metasim/model"
)

// ReportStats writes the user-workflow metrics artifact: a header line of
// (#completed, #total, throughput-in-tasks-per-hour) followed by one line
// per completed workflow of (id, makespan, response time, critical path
// length).
func (q *CentralQueue) ReportStats(w io.Writer) error {
	var completed []*model.Workflow
	for _, wf := range q.workflowsByID {
		if wf.Status == model.WorkflowFinished {
			completed = append(completed, wf)
		}
	}

	var throughput float64
	if q.Now() > 0 {
		throughput = float64(q.finishedTasksCount) / (float64(q.Now()) / 3600.0)
	}
	if _, err := fmt.Fprintf(w, "%d %d %g\n", len(completed), len(q.workflowsByID), throughput); err != nil {
		return err
	}

	for _, wf := range completed {
		if _, err := fmt.Fprintf(w, "%d %d %d %d\n", wf.ID, wf.Makespan(), wf.ResponseTime(), wf.CriticalPathLength); err != nil {
			return err
		}
	}
	return nil
}
