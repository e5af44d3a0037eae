package autoscaler

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

const (
	conpaasWindowSize  = 30
	conpaasSmoothAlpha = 0.3
)

// ConPaaS forecasts load as a weighted average of three simple predictors —
// a naive last-value autoregression, a linear trend fit over a sliding
// window, and an exponentially smoothed average — then sizes capacity to
// the blended forecast. Grounded on conpaas_autoscaler.py, which delegates
// its AR/regression/smoothing legs to an external conpaas_sources package
// not present in the retrieval pack; this is a from-scratch
// reimplementation of those three techniques, not a reproduction of that
// package's exact behavior, using gonum.org/v1/gonum/stat for the
// regression leg.
type ConPaaS struct {
	Speed float64

	samples  []float64
	smoothed float64
	haveEWMA bool
}

// NewConPaaS constructs a ConPaaS strategy.
func NewConPaaS(speed float64) *ConPaaS { return &ConPaaS{Speed: speed} }

// Name identifies this policy.
func (*ConPaaS) Name() string { return "conpaas" }

func (c *ConPaaS) pushSample(load float64) {
	c.samples = append(c.samples, load)
	if len(c.samples) > conpaasWindowSize {
		c.samples = c.samples[1:]
	}
	if !c.haveEWMA {
		c.smoothed = load
		c.haveEWMA = true
	} else {
		c.smoothed = conpaasSmoothAlpha*load + (1-conpaasSmoothAlpha)*c.smoothed
	}
}

func (c *ConPaaS) linearForecast() float64 {
	n := len(c.samples)
	if n < 2 {
		return c.samples[n-1]
	}
	xs := make([]float64, n)
	for i := range xs {
		xs[i] = float64(i)
	}
	alpha, beta := stat.LinearRegression(xs, c.samples, nil, false)
	return alpha + beta*float64(n)
}

// Evaluate blends the three forecasts with equal weight and requests
// capacity to cover the result.
func (c *ConPaaS) Evaluate(_ int64, rm ResourceManager, sm SystemMonitor) Decision {
	load := float64(sm.PendingTasksLoad())
	c.pushSample(load)

	lastValue := c.samples[len(c.samples)-1]
	linear := c.linearForecast()
	forecast := (lastValue + linear + c.smoothed) / 3

	needed := int64(math.Ceil(math.Max(0, forecast)/c.Speed)) + 2
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
