package autoscaler

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

const (
	histHoursPerDay     = 24
	histSecondsPerHour  = 3600
	histErrorWindowSize = 10
	histErrorBumpCount  = 6
)

// Hist predicts load for the current hour-of-day from a running histogram
// of past observations at that same hour, corrected by the mean of recent
// prediction errors, with a reactive bump if predictions have been running
// low for most of the last few evaluations. Grounded on hist_autoscaler.py,
// including its quirk of sometimes recording a correction error twice in
// the same evaluation (preserved here for fidelity).
type Hist struct {
	Speed      float64
	Percentile float64

	buckets [histHoursPerDay][]float64
	errors  []float64
}

// NewHist constructs a Hist strategy. percentile is in [0, 100].
func NewHist(speed, percentile float64) *Hist {
	return &Hist{Speed: speed, Percentile: percentile}
}

// Name identifies this policy.
func (*Hist) Name() string { return "hist" }

func hourOfDay(tsNow int64) int {
	return int((tsNow / histSecondsPerHour) % histHoursPerDay)
}

func (h *Hist) predictForHour(hour int) (float64, bool) {
	samples := h.buckets[hour]
	if len(samples) == 0 {
		return 0, false
	}
	sorted := append([]float64(nil), samples...)
	sort.Float64s(sorted)
	return stat.Quantile(h.Percentile/100, stat.Empirical, sorted, nil), true
}

func (h *Hist) meanError() float64 {
	if len(h.errors) == 0 {
		return 0
	}
	return stat.Mean(h.errors, nil)
}

func (h *Hist) pushError(e float64) {
	h.errors = append(h.errors, e)
	if len(h.errors) > histErrorWindowSize {
		h.errors = h.errors[1:]
	}
}

func (h *Hist) recentlyUnderPredicting() bool {
	n := len(h.errors)
	if n == 0 {
		return false
	}
	from := 0
	if n > histErrorWindowSize {
		from = n - histErrorWindowSize
	}
	negative := 0
	for _, e := range h.errors[from:] {
		if e > 0 {
			negative++
		}
	}
	return negative >= histErrorBumpCount
}

// Evaluate records the current load into this hour's histogram bucket,
// predicts from the histogram's percentile corrected by recent mean error,
// and requests capacity to match.
func (h *Hist) Evaluate(tsNow int64, rm ResourceManager, sm SystemMonitor) Decision {
	load := float64(sm.PendingTasksLoad())
	hour := hourOfDay(tsNow)
	h.buckets[hour] = append(h.buckets[hour], load)

	capacity := rm.CurrentCapacity()

	predicted, ok := h.predictForHour(hour)
	if !ok {
		predicted = load
	}
	corrected := predicted + h.meanError()

	err := load - corrected
	h.pushError(err)
	// The reference appends the same correction error a second time under
	// some branches; mirrored here for behavioral fidelity.
	if corrected < load {
		h.pushError(err)
	}

	needed := int64(math.Ceil(corrected/h.Speed)) + 2
	if h.recentlyUnderPredicting() {
		needed += 2
	}

	switch {
	case needed > capacity:
		return Decision{Prediction: needed, Target: needed - capacity, Op: 1}
	case capacity-needed > 2:
		return Decision{Prediction: needed, Target: capacity - needed, Op: -1}
	default:
		return Decision{Prediction: needed, Target: 0, Op: 0}
	}
}
