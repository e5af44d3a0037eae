package autoscaler

import "math"

// React is a purely reactive strategy: it compares current pending load
// against current capacity and immediately requests whatever capacity
// closes the gap, with no forecasting. Grounded on react_autoscaler.py.
type React struct {
	// Speed is the per-resource processing rate used to convert a load
	// figure into a resource count (SERVER_SPEED in the reference).
	Speed float64
}

// NewReact constructs a React strategy at the given per-resource speed.
func NewReact(speed float64) *React { return &React{Speed: speed} }

// Name identifies this policy.
func (*React) Name() string { return "react" }

// Evaluate scales up when the load due this tick exceeds current capacity,
// adding a small safety margin (+2), and scales down only when there is a
// comfortable surplus (more than 2 spare resources), to avoid thrashing.
func (r *React) Evaluate(_ int64, rm ResourceManager, sm SystemMonitor) Decision {
	load := float64(sm.PendingTasksLoad())
	capacity := rm.CurrentCapacity()

	needed := int64(math.Ceil(load/r.Speed)) + 2
	prediction := needed

	switch {
	case needed > capacity:
		return Decision{Prediction: prediction, Target: needed - capacity, Op: 1}
	case capacity-needed > 2:
		return Decision{Prediction: prediction, Target: capacity - needed, Op: -1}
	default:
		return Decision{Prediction: prediction, Target: 0, Op: 0}
	}
}
