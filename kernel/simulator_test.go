package kernel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder is a minimal SimEntity used to exercise the kernel loop.
type recorder struct {
	Base
	activated bool
	received  []Event
}

func newRecorder(id EntityID, k *Kernel) *recorder {
	r := &recorder{Base: NewBase(id, k)}
	return r
}

func (r *recorder) Activate() { r.activated = true }

func (r *recorder) Dispatch(ev Event) { r.received = append(r.received, ev) }

func TestKernel_ActivatesAllEntitiesBeforeDispatch(t *testing.T) {
	k := NewKernel()
	var rec *recorder
	k.Register(func(id EntityID) SimEntity {
		rec = newRecorder(id, k)
		return rec
	})

	k.Start(0)

	assert.True(t, rec.activated)
}

func TestKernel_DispatchesInTimestampOrder(t *testing.T) {
	k := NewKernel()
	var rec *recorder
	id := k.Reserve()
	k.Registry.Set(id, func() SimEntity {
		rec = newRecorder(id, k)
		return rec
	}())

	k.Schedule(Event{Ts: 5, Dest: id, Type: AddTask})
	k.Schedule(Event{Ts: 2, Dest: id, Type: AddTask})
	k.Start(10)

	require.Len(t, rec.received, 2)
	assert.Equal(t, int64(2), rec.received[0].Ts)
	assert.Equal(t, int64(5), rec.received[1].Ts)
	assert.Equal(t, int64(5), k.Clock)
}

func TestKernel_StopsAtHorizon(t *testing.T) {
	k := NewKernel()
	var rec *recorder
	k.Register(func(id EntityID) SimEntity {
		rec = newRecorder(id, k)
		return rec
	})

	k.Schedule(Event{Ts: 100, Dest: rec.ID(), Type: AddTask})
	k.Start(10)

	assert.Empty(t, rec.received, "event past the horizon must not be dispatched")
}

func TestKernel_DiscardsEventsForUnregisteredEntity(t *testing.T) {
	k := NewKernel()
	id := k.Reserve() // never registered

	k.Schedule(Event{Ts: 1, Dest: id, Type: AddTask})

	assert.NotPanics(t, func() { k.Start(5) })
}

func TestKernel_ForcedStopHaltsBeforeHorizon(t *testing.T) {
	k := NewKernel()
	var rec *recorder
	k.Register(func(id EntityID) SimEntity {
		rec = newRecorder(id, k)
		return rec
	})
	k.Schedule(Event{Ts: 1, Dest: rec.ID(), Type: AddTask})
	k.Schedule(Event{Ts: 2, Dest: rec.ID(), Type: AddTask})

	stopped := false
	k.ForcedStop = func() bool {
		if len(rec.received) >= 1 {
			stopped = true
			return true
		}
		return false
	}

	k.Start(10)

	assert.True(t, stopped)
	assert.Len(t, rec.received, 1)
}

func TestBase_EmitAtPanicsOnPastTimestamp(t *testing.T) {
	k := NewKernel()
	k.Clock = 10
	b := NewBase(1, k)

	assert.Panics(t, func() { b.EmitAt(5, 1, AddTask, nil) })
}

func TestBase_HandlePanicsOnUnregisteredType(t *testing.T) {
	b := NewBase(1, NewKernel())
	assert.Panics(t, func() {
		b.Handle(HandlerTable{AddTask: func(Event) {}}, Event{Type: SiteMonitor})
	})
}
