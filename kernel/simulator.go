package kernel

import "fmt"

// Kernel drives the discrete-event loop: it owns the clock, the event
// queue and the entity registry, and knows nothing about what any event
// payload means.
type Kernel struct {
	Clock    int64
	Queue    *EventQueue
	Registry *EntityRegistry

	// ForcedStop, when set, is polled before every dispatch; returning true
	// ends the run even if events remain queued. Domain code (the system
	// monitor, in this engine) wires this up to its own "nothing left to
	// do" condition rather than the kernel knowing about it directly.
	ForcedStop func() bool
}

// NewKernel returns a kernel with an empty queue and registry, clock at 0.
func NewKernel() *Kernel {
	return &Kernel{
		Queue:    NewEventQueue(),
		Registry: NewEntityRegistry(),
	}
}

// Reserve hands out a fresh entity id.
func (k *Kernel) Reserve() EntityID {
	return k.Registry.Reserve()
}

// Register reserves an id, builds the entity via build, and finalizes its
// registration. build receives its own id up front so it can construct
// self-referencing handler closures before the SimEntity interface value
// exists.
func (k *Kernel) Register(build func(EntityID) SimEntity) SimEntity {
	id := k.Reserve()
	e := build(id)
	k.Registry.Set(id, e)
	return e
}

// Schedule enqueues ev for future dispatch.
func (k *Kernel) Schedule(ev Event) {
	k.Queue.Schedule(ev)
}

// Drop removes an entity from the registry; events still queued for it are
// discarded when they are dispatched, not when it is dropped.
func (k *Kernel) Drop(id EntityID) {
	k.Registry.Remove(id)
}

// Start activates every registered entity and then drains the event queue
// until one of: the ForcedStop callback returns true, the queue empties, or
// the next event's timestamp exceeds tsEnd. Events addressed to an entity
// that is no longer registered are silently discarded. The clock never
// moves backwards; an event popped with a timestamp behind the current
// clock indicates a bug in whatever scheduled it and panics rather than
// silently corrupting ordering.
func (k *Kernel) Start(tsEnd int64) {
	for _, e := range k.Registry.All() {
		e.Activate()
	}

	for {
		if k.ForcedStop != nil && k.ForcedStop() {
			return
		}

		ev, ok := k.Queue.Peek()
		if !ok || ev.Ts > tsEnd {
			return
		}

		ev, _ = k.Queue.Pop()
		if ev.Ts < k.Clock {
			panic(fmt.Sprintf("kernel: event %s scheduled behind current clock %d", ev, k.Clock))
		}
		k.Clock = ev.Ts

		dest, ok := k.Registry.Get(ev.Dest)
		if !ok {
			continue
		}
		dest.Dispatch(ev)
	}
}
