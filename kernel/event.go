// Package kernel implements the discrete-event simulation engine: the event
// queue, entity registry and dispatch loop. It knows nothing about tasks,
// sites or scheduling policies — those live in the domain packages built on
// top of it.
package kernel

import "fmt"

// EntityID identifies an entity registered with a Kernel. The zero value is
// never issued by Reserve, so it doubles as an "unset" sentinel.
type EntityID int64

// EventType enumerates the kinds of events that travel through the engine.
// Ordering among same-timestamp events is controlled by eventPriority below,
// not by the numeric value of the type itself.
type EventType int

const (
	TaskDoneSite EventType = iota + 1
	TaskDoneUser
	MonitorSiteStatus
	AutoScaleEvaluate
	SchedulerReschedule
	AddTask
	SiteReschedule
	UpdateStatistics
	SysMonMonitor
	SiteMonitor
)

func (t EventType) String() string {
	switch t {
	case TaskDoneSite:
		return "TaskDoneSite"
	case TaskDoneUser:
		return "TaskDoneUser"
	case MonitorSiteStatus:
		return "MonitorSiteStatus"
	case AutoScaleEvaluate:
		return "AutoScaleEvaluate"
	case SchedulerReschedule:
		return "SchedulerReschedule"
	case AddTask:
		return "AddTask"
	case SiteReschedule:
		return "SiteReschedule"
	case UpdateStatistics:
		return "UpdateStatistics"
	case SysMonMonitor:
		return "SysMonMonitor"
	case SiteMonitor:
		return "SiteMonitor"
	default:
		return fmt.Sprintf("EventType(%d)", int(t))
	}
}

// eventPriority breaks ties between events scheduled for the same tick.
// Lower value is dispatched first. Values mirror the reference scheduler's
// fixed event-class ordering so that a tie between, say, a task completion
// and a monitor tick resolves the same way every run.
var eventPriority = map[EventType]int{
	TaskDoneSite:        1,
	TaskDoneUser:        2,
	MonitorSiteStatus:   3,
	AutoScaleEvaluate:   4,
	SchedulerReschedule: 5,
	AddTask:             6,
	SiteReschedule:      7,
	UpdateStatistics:    8,
	SysMonMonitor:       9,
	SiteMonitor:         10,
}

// Event is a single scheduled occurrence in the simulation. Payload carries
// whatever domain-specific data the handler needs; it must be a value usable
// with ==, since the queue compares payloads when deduplicating identical
// trailing events at the same timestamp.
type Event struct {
	Ts      int64
	Src     EntityID
	Dest    EntityID
	Type    EventType
	Payload any

	seq uint64 // insertion order, used as the final tie-break
}

func (e Event) String() string {
	return fmt.Sprintf("Event{ts=%d %s %d->%d}", e.Ts, e.Type, e.Src, e.Dest)
}
