package autoscaler

import (
	"math"

	"github.com/fedsched/metasim/model"
)

// tokenLOPEstimate sums, over every active workflow, the number of tasks
// that could plausibly be "in flight" at once given the workflow's
// critical-path depth: a wide-but-shallow workflow contributes more
// parallelism than a narrow-but-deep one of the same size. The total is
// capped at maxCapacity, mirroring TOKEN_MAX_CAPACITY in the reference.
func tokenLOPEstimate(workflows []*model.Workflow, lengthOf func(w *model.Workflow) (pathLen, pathTasks int64), maxCapacity int64) int64 {
	var total int64
	for _, w := range workflows {
		pathLen, pathTasks := lengthOf(w)
		if pathLen <= 0 {
			pathLen = 1
		}
		width := int64(math.Ceil(float64(len(w.TaskIDs)) / float64(pathLen)))
		if width < pathTasks {
			width = pathTasks
		}
		total += width
		if total >= maxCapacity {
			return maxCapacity
		}
	}
	return total
}

// Token estimates level of parallelism by recomputing each active
// workflow's critical path on every evaluation. Grounded on
// token_autoscaler.py, but ported onto the non-recursive model.CriticalPath
// instead of the original's recursive compute_upward_ranks, which risked a
// stack overflow on deep dependency chains.
type Token struct {
	Speed       float64
	MaxCapacity int64
}

// NewToken constructs a Token strategy.
func NewToken(speed float64, maxCapacity int64) *Token {
	return &Token{Speed: speed, MaxCapacity: maxCapacity}
}

// Name identifies this policy.
func (*Token) Name() string { return "token" }

// Evaluate recomputes each workflow's critical path this tick and derives a
// capacity target from the resulting level-of-parallelism estimate.
func (t *Token) Evaluate(_ int64, rm ResourceManager, sm SystemMonitor) Decision {
	byID := sm.TasksByID()
	needed := tokenLOPEstimate(sm.ActiveWorkflows(), func(w *model.Workflow) (int64, int64) {
		return model.CriticalPath(w.TaskIDs, byID)
	}, t.MaxCapacity)

	return tokenDecision(needed, rm.CurrentCapacity())
}

// TokenMod is identical to Token except it reuses each workflow's
// precomputed CriticalPathLength/CriticalPathTaskCount (set once at load
// time) instead of recomputing them every evaluation. Grounded on
// token_mod_autoscaler.py, which differs from token_autoscaler.py in
// exactly this one respect.
type TokenMod struct {
	Speed       float64
	MaxCapacity int64
}

// NewTokenMod constructs a TokenMod strategy.
func NewTokenMod(speed float64, maxCapacity int64) *TokenMod {
	return &TokenMod{Speed: speed, MaxCapacity: maxCapacity}
}

// Name identifies this policy.
func (*TokenMod) Name() string { return "token_mod" }

// Evaluate derives a capacity target from each workflow's already-computed
// critical path fields.
func (t *TokenMod) Evaluate(_ int64, rm ResourceManager, sm SystemMonitor) Decision {
	needed := tokenLOPEstimate(sm.ActiveWorkflows(), func(w *model.Workflow) (int64, int64) {
		return w.CriticalPathLength, w.CriticalPathTaskCount
	}, t.MaxCapacity)

	return tokenDecision(needed, rm.CurrentCapacity())
}

func tokenDecision(needed, capacity int64) Decision {
	switch {
	case needed > capacity:
		return Decision{Prediction: needed, Target: needed - capacity, Op: 1}
	case capacity-needed > 2:
		return Decision{Prediction: needed, Target: capacity - needed, Op: -1}
	default:
		return Decision{Prediction: needed, Target: 0, Op: 0}
	}
}
