package autoscaler

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

const regWindowSize = 72

// Reg fits a degree-2 polynomial to a sliding window of recent (time, load)
// samples and, when currently over-provisioned, sizes any release from the
// fitted curve's value at the current tick rather than from the latest raw
// sample.
// Grounded on reg_autoscaler.py; numpy.polyfit(deg=2) is ported onto
// gonum.org/v1/gonum/mat's least-squares solve over a Vandermonde matrix,
// since gonum/stat only exposes degree-1 regression.
type Reg struct {
	Speed float64

	times  []float64
	loads  []float64
	sample float64
}

// NewReg constructs a Reg strategy at the given per-resource speed.
func NewReg(speed float64) *Reg { return &Reg{Speed: speed} }

// Name identifies this policy.
func (*Reg) Name() string { return "reg" }

func (r *Reg) pushSample(tsNow int64, load float64) {
	r.times = append(r.times, float64(tsNow))
	r.loads = append(r.loads, load)
	if len(r.times) > regWindowSize {
		r.times = r.times[1:]
		r.loads = r.loads[1:]
	}
}

// fit solves for the degree-2 coefficients [c0 c1 c2] minimizing squared
// error of c0 + c1*t + c2*t^2 against the stored samples, returning ok=false
// if there are too few points to fit.
func (r *Reg) fit() (coeffs []float64, ok bool) {
	n := len(r.times)
	if n < 3 {
		return nil, false
	}

	a := mat.NewDense(n, 3, nil)
	b := mat.NewVecDense(n, nil)
	for i, t := range r.times {
		a.Set(i, 0, 1)
		a.Set(i, 1, t)
		a.Set(i, 2, t*t)
		b.SetVec(i, r.loads[i])
	}

	var qr mat.QR
	qr.Factorize(a)
	var x mat.VecDense
	if err := qr.SolveVecTo(&x, false, b); err != nil {
		return nil, false
	}
	return []float64{x.AtVec(0), x.AtVec(1), x.AtVec(2)}, true
}

func evalPoly(coeffs []float64, t float64) float64 {
	return coeffs[0] + coeffs[1]*t + coeffs[2]*t*t
}

// Evaluate only forecasts when the site pool is currently over-provisioned;
// otherwise it reacts immediately like React, since a projection is only
// useful to decide whether a surplus will persist.
func (r *Reg) Evaluate(tsNow int64, rm ResourceManager, sm SystemMonitor) Decision {
	load := float64(sm.PendingTasksLoad())
	capacity := rm.CurrentCapacity()
	r.pushSample(tsNow, load)

	needed := int64(math.Ceil(load/r.Speed)) + 2

	if needed >= capacity {
		if needed > capacity {
			return Decision{Prediction: needed, Target: needed - capacity, Op: 1}
		}
		return Decision{Prediction: needed, Target: 0, Op: 0}
	}

	coeffs, ok := r.fit()
	if !ok {
		surplus := capacity - needed
		if surplus > 2 {
			return Decision{Prediction: needed, Target: surplus, Op: -1}
		}
		return Decision{Prediction: needed, Target: 0, Op: 0}
	}

	projected := evalPoly(coeffs, float64(tsNow))
	projectedNeeded := int64(math.Ceil(projected/r.Speed)) + 2
	if projectedNeeded < 0 {
		projectedNeeded = 0
	}

	surplus := capacity - projectedNeeded
	if surplus > 2 {
		return Decision{Prediction: projectedNeeded, Target: surplus, Op: -1}
	}
	return Decision{Prediction: projectedNeeded, Target: 0, Op: 0}
}
