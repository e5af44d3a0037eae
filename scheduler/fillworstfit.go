package scheduler

import (
	"github.com/fedsched/metasim/centralqueue"
	"github.com/fedsched/metasim/model"
)

// FillWorstFit packs as many ready tasks as fit onto the single
// largest-capacity site before moving on to the next, trading WorstFit's
// even spread for fewer sites touched per reschedule tick.
type FillWorstFit struct{}

// NewFillWorstFit constructs a Fill-Worst-Fit allocator.
func NewFillWorstFit() *FillWorstFit { return &FillWorstFit{} }

// Name identifies this policy.
func (FillWorstFit) Name() string { return "fillworstfit" }

// Schedule walks sites from most to least free capacity; for each site it
// drains as many of the remaining ready tasks as still fit before advancing
// to the next site.
func (FillWorstFit) Schedule(tsNow int64, queue *centralqueue.CentralQueue, dir SiteDirectory) {
	local := queue.Index.Clone()
	tasks := append([]*model.Task(nil), queue.TasksToSchedule()...)

	for _, stat := range local.Descending() {
		if stat.Expired(tsNow) {
			continue
		}
		free := stat.Free

		remaining := tasks[:0]
		for _, task := range tasks {
			if free >= task.CPUs {
				placeTask(tsNow, queue, dir, stat, task)
				free -= task.CPUs
				continue
			}
			remaining = append(remaining, task)
		}
		tasks = remaining
		local.SetFree(stat.SiteID, free)

		if len(tasks) == 0 {
			return
		}
	}
}
