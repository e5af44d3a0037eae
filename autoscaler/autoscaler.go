// Package autoscaler implements the elasticity policies that periodically
// compare predicted demand against provisioned capacity and ask the
// resource manager to grow or shrink the site pool, tracking the resulting
// over/under-provisioning KPIs.
package autoscaler

import (
	"fmt"
	"io"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/fedsched/metasim/kernel"
	"github.com/fedsched/metasim/model"
)

// ResourceManager is the subset of resourcemanager.Manager an autoscaler
// strategy needs: read current capacity and request best-effort changes to
// it. Kept narrow so this package doesn't need to import resourcemanager.
type ResourceManager interface {
	CurrentCapacity() int64
	StartUpBestEffort(capacity int64, fixCapacity bool) int64
	ReleaseResourcesBestEffort(capacity int64, onlyIdle bool, fixCapacity bool) int64
}

// SystemMonitor is the subset of systemmonitor.Monitor an autoscaler
// strategy needs for demand signals.
type SystemMonitor interface {
	TotalLoad() int64
	PendingTasksLoad() int64
	CountIdleResources() int64
	// PendingTasks returns the tasks not yet placed on a site (entry tasks
	// plus anything already marked ready), for strategies that need to
	// reason about individual task shapes rather than aggregate load.
	PendingTasks() []*model.Task
	// ActiveWorkflows returns workflows that have been submitted but not
	// yet finished, for strategies that estimate parallelism from
	// workflow shape rather than raw task counts.
	ActiveWorkflows() []*model.Workflow
	// TasksByID returns every task known to the simulation, keyed by id,
	// so a strategy can walk a workflow's dependency graph.
	TasksByID() map[int64]*model.Task
}

// Decision is what a Strategy's Evaluate returns each tick: the predicted
// target capacity, and the +1/-1/0 direction the autoscaler acted in. The
// Autoscaler entity performs the actual start-up/release call and KPI
// bookkeeping; Strategy only decides the target.
type Decision struct {
	Prediction int64
	Target     int64 // magnitude requested from start-up/release, always >= 0
	Op         int   // +1 scale up, -1 scale down, 0 no change
}

// Strategy is one elasticity policy's prediction rule. Implementations hold
// whatever history they need (sliding windows, histograms, PID state)
// between calls.
type Strategy interface {
	Name() string
	Evaluate(tsNow int64, rm ResourceManager, sm SystemMonitor) Decision
}

// KPI accumulates the elasticity metrics defined by the engine's contract,
// updated once per evaluation tick with DELTA_T = N_TICKS_PER_EVALUATE.
type KPI struct {
	Underprovisioning           float64
	Overprovisioning            float64
	UnderprovisioningNormalized float64
	OverprovisioningNormalized  float64
	OverprovisioningMU          float64
	TimeUnderprovisioning       float64
	TimeOverprovisioning        float64
	InstabilityK                float64
	InstabilityKPrime           float64
	AverageResources            float64
	AverageChargedCPUHours      float64

	lastSupply float64
	lastDemand float64
}

func sign(x float64) int {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	default:
		return 0
	}
}

func clamp01(x int) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return float64(x)
}

// Update folds one evaluation's demand/supply pair into the running KPI
// totals. steps is the 1-based count of evaluations so far. Instability
// compares the direction supply and demand moved since the previous
// evaluation, so it is not counted on the very first one, matching the
// reference's guard against comparing against an undefined previous state.
func (k *KPI) Update(steps int64, demand, supply float64, deltaT int64, idleResources int64, chargePeriod int64, chargeCost float64, epsilon float64) {
	dt := float64(deltaT)

	k.Underprovisioning += math.Max(0, demand-supply) * dt
	k.Overprovisioning += math.Max(0, supply-demand) * dt

	k.UnderprovisioningNormalized += math.Max(0, demand-supply) / math.Max(demand, epsilon) * dt
	k.OverprovisioningNormalized += math.Max(0, supply-demand) / math.Max(supply, epsilon) * dt

	k.OverprovisioningMU += float64(idleResources) * dt

	k.TimeUnderprovisioning += clamp01(sign(demand-supply)) * dt
	k.TimeOverprovisioning += clamp01(sign(supply-demand)) * dt

	if steps > 1 {
		dirSupply, dirDemand := sign(supply-k.lastSupply), sign(demand-k.lastDemand)
		k.InstabilityK += clamp01(dirSupply-dirDemand) * dt
		k.InstabilityKPrime += clamp01(dirDemand-dirSupply) * dt
	}
	k.lastSupply, k.lastDemand = supply, demand

	k.AverageResources += supply * dt
	k.AverageChargedCPUHours += math.Ceil(float64(deltaT)/float64(chargePeriod)) * chargeCost * supply
}

// Autoscaler is the periodic SimEntity that drives a Strategy: every
// ticksPerEvaluate ticks it asks the strategy for a Decision, applies it
// through ResourceManager, logs the operation and folds the result into
// KPI.
type Autoscaler struct {
	kernel.Base

	strategy         Strategy
	rm               ResourceManager
	sm               SystemMonitor
	logger           *logrus.Logger
	ticksPerEvaluate int64
	chargePeriod     int64
	chargeCost       float64
	epsilon          float64

	opsLog io.Writer

	steps int64
	KPI   KPI

	handlers kernel.HandlerTable
}

// New constructs an Autoscaler wired to strategy. opsLog receives one line
// per evaluation in the reference's autoscale_ops format; pass io.Discard
// to suppress it.
func New(id kernel.EntityID, k *kernel.Kernel, strategy Strategy, rm ResourceManager, sm SystemMonitor, logger *logrus.Logger, ticksPerEvaluate int64, opsLog io.Writer) *Autoscaler {
	a := &Autoscaler{
		Base:             kernel.NewBase(id, k),
		strategy:         strategy,
		rm:               rm,
		sm:               sm,
		logger:           logger,
		ticksPerEvaluate: ticksPerEvaluate,
		chargePeriod:     3600,
		chargeCost:       1,
		epsilon:          1,
		opsLog:           opsLog,
	}
	a.handlers = kernel.HandlerTable{
		kernel.AutoScaleEvaluate: a.handleEvaluate,
	}
	return a
}

// Activate schedules the first evaluation.
func (a *Autoscaler) Activate() {
	a.EmitAt(a.Now()+a.ticksPerEvaluate, a.ID(), kernel.AutoScaleEvaluate, nil)
}

// Dispatch routes an event to its handler.
func (a *Autoscaler) Dispatch(ev kernel.Event) { a.Handle(a.handlers, ev) }

func (a *Autoscaler) handleEvaluate(kernel.Event) {
	a.steps++

	currentCapacity := a.rm.CurrentCapacity()
	decision := a.strategy.Evaluate(a.Now(), a.rm, a.sm)

	var mutation int64
	switch decision.Op {
	case 1:
		mutation = a.rm.StartUpBestEffort(decision.Target, false)
	case -1:
		mutation = a.rm.ReleaseResourcesBestEffort(decision.Target, true, false)
	}

	a.logOp(currentCapacity, mutation, decision.Target, decision.Op)

	supply := float64(currentCapacity) + float64(mutation)*float64(decision.Op)
	demand := float64(a.sm.TotalLoad())
	a.KPI.Update(a.steps, demand, supply, a.ticksPerEvaluate, a.sm.CountIdleResources(), a.chargePeriod, a.chargeCost, a.epsilon)

	if a.logger != nil {
		a.logger.WithFields(logrus.Fields{
			"strategy":   a.strategy.Name(),
			"capacity":   currentCapacity,
			"mutation":   mutation,
			"prediction": decision.Prediction,
		}).Debug("autoscale evaluate")
	}

	a.EmitAt(a.Now()+a.ticksPerEvaluate, a.ID(), kernel.AutoScaleEvaluate, nil)
}

func (a *Autoscaler) logOp(prevCapacity, mutation, target int64, op int) {
	if a.opsLog == nil {
		return
	}
	fmt.Fprintf(a.opsLog, "%d, %d, %d, %d\n",
		a.Now(),
		prevCapacity+int64(op)*mutation,
		prevCapacity+int64(op)*target,
		a.sm.PendingTasksLoad(),
	)
}
