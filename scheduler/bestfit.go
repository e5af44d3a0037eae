package scheduler

import (
	"github.com/fedsched/metasim/centralqueue"
	"github.com/fedsched/metasim/model"
)

// BestFit places each ready task on the smallest site it still fits in,
// found by bisecting the ascending free-resource index. This minimizes
// fragmentation at the cost of concentrating load on small sites first.
type BestFit struct{}

// NewBestFit constructs a Best-Fit allocator.
func NewBestFit() *BestFit { return &BestFit{} }

// Name identifies this policy.
func (BestFit) Name() string { return "bestfit" }

// Schedule places as many ready tasks as fit, one at a time, always
// choosing the tightest-fitting available site for each task in turn. A
// local clone of the placement index tracks capacity consumed within this
// tick, since the authoritative index only refreshes on its own monitor
// cadence.
func (BestFit) Schedule(tsNow int64, queue *centralqueue.CentralQueue, dir SiteDirectory) {
	local := queue.Index.Clone()

	for _, task := range append([]*model.Task(nil), queue.TasksToSchedule()...) {
		entries := local.Ascending()
		start := local.BisectLeftAscending(task.CPUs)

		for i := start; i < len(entries); i++ {
			stat := entries[i]
			if stat.Expired(tsNow) {
				continue
			}
			placeTask(tsNow, queue, dir, stat, task)
			local.SetFree(stat.SiteID, stat.Free-task.CPUs)
			break
		}
	}
}
