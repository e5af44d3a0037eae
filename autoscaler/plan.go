package autoscaler

import (
	"math"
	"sort"

	"github.com/fedsched/metasim/model"
)

// Plan estimates the level of parallelism needed by simulating FCFS
// placement of all pending tasks across per-processor plans: each task
// joins the first plan already free at the current tick, or opens a new
// plan if none is. The number of plans opened is the predicted capacity.
// Grounded on plan_autoscaler.py.
type Plan struct {
	Speed float64
}

// NewPlan constructs a Plan strategy at the given per-resource speed.
func NewPlan(speed float64) *Plan { return &Plan{Speed: speed} }

// Name identifies this policy.
func (*Plan) Name() string { return "plan" }

// Evaluate simulates the pending tasks as they would be spread across
// FCFS plans and requests capacity to match the number of plans used.
func (p *Plan) Evaluate(tsNow int64, rm ResourceManager, sm SystemMonitor) Decision {
	tasks := append([]*model.Task(nil), sm.PendingTasks()...)
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].TsSubmit < tasks[j].TsSubmit })

	var planFreeAt []int64
	for _, task := range tasks {
		runTicks := int64(math.Ceil(float64(task.Runtime) / p.Speed))

		placed := false
		for i, freeAt := range planFreeAt {
			if freeAt <= tsNow {
				planFreeAt[i] = tsNow + runTicks
				placed = true
				break
			}
		}
		if !placed {
			planFreeAt = append(planFreeAt, tsNow+runTicks)
		}
	}

	needed := int64(len(planFreeAt))
	capacity := rm.CurrentCapacity()

	switch {
	case needed > capacity:
		return Decision{Prediction: needed, Target: needed - capacity, Op: 1}
	case capacity-needed > 2:
		return Decision{Prediction: needed, Target: capacity - needed, Op: -1}
	default:
		return Decision{Prediction: needed, Target: 0, Op: 0}
	}
}
