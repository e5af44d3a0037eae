package kernel

import "fmt"

// SimEntity is anything that can live in the entity registry and receive
// dispatched events: sites, the central queue, the resource manager, the
// scheduler, the autoscaler and the system monitor all implement it.
type SimEntity interface {
	ID() EntityID
	Activate()
	Dispatch(Event)
}

// HandlerTable maps an event type to the function that handles it. Entities
// build one of these at construction time and route Dispatch through it via
// Base.Handle.
type HandlerTable map[EventType]func(Event)

// Base is embedded by concrete entities to get their identity and a
// convenience API for talking back to the kernel, mirroring the capability
// mix-in pattern used throughout the reference engine (an entity "has a"
// simulator handle rather than inheriting one).
type Base struct {
	id EntityID
	K  *Kernel
}

// NewBase wires a Base to its reserved id and owning kernel. Concrete
// entities call this first, before building the closures in their handler
// table, since those closures typically capture &Base via the entity.
func NewBase(id EntityID, k *Kernel) Base {
	return Base{id: id, K: k}
}

// ID returns the entity's identity in the registry.
func (b *Base) ID() EntityID { return b.id }

// Now returns the kernel's current simulated time.
func (b *Base) Now() int64 { return b.K.Clock }

// Emit schedules an event addressed to dest at the current time.
func (b *Base) Emit(dest EntityID, typ EventType, payload any) {
	b.EmitAt(b.Now(), dest, typ, payload)
}

// EmitAt schedules an event addressed to dest at an arbitrary future time.
// Scheduling into the past is a programming error and panics.
func (b *Base) EmitAt(ts int64, dest EntityID, typ EventType, payload any) {
	if ts < b.Now() {
		panic(fmt.Sprintf("kernel: entity %d scheduled %s at ts=%d before current clock %d", b.id, typ, ts, b.Now()))
	}
	b.K.Schedule(Event{Ts: ts, Src: b.id, Dest: dest, Type: typ, Payload: payload})
}

// Handle looks up ev.Type in handlers and invokes it, panicking if the event
// type was never registered. Every SimEntity's Dispatch method should funnel
// through this so that an unregistered event type is always a loud failure
// rather than a silently dropped message.
func (b *Base) Handle(handlers HandlerTable, ev Event) {
	fn, ok := handlers[ev.Type]
	if !ok {
		panic(fmt.Sprintf("kernel: entity %d has no handler for event type %s", b.id, ev.Type))
	}
	fn(ev)
}
