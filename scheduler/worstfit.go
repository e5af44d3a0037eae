package scheduler

import (
	"github.com/fedsched/metasim/centralqueue"
	"github.com/fedsched/metasim/model"
)

// WorstFit places each ready task on the site with the most free capacity,
// spreading load evenly rather than packing tightly.
type WorstFit struct{}

// NewWorstFit constructs a Worst-Fit allocator.
func NewWorstFit() *WorstFit { return &WorstFit{} }

// Name identifies this policy.
func (WorstFit) Name() string { return "worstfit" }

// Schedule walks the ready set, always placing the current task on the
// biggest available site, skipping expired leased instances.
func (WorstFit) Schedule(tsNow int64, queue *centralqueue.CentralQueue, dir SiteDirectory) {
	local := queue.Index.Clone()

	for _, task := range append([]*model.Task(nil), queue.TasksToSchedule()...) {
		entries := local.Descending()

		for _, stat := range entries {
			if stat.Expired(tsNow) {
				continue
			}
			if stat.Free < task.CPUs {
				break
			}
			placeTask(tsNow, queue, dir, stat, task)
			local.SetFree(stat.SiteID, stat.Free-task.CPUs)
			break
		}
	}
}
