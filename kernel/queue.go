package kernel

import "container/heap"

// EventQueue is a priority queue of Events ordered by (Ts, type priority,
// insertion order). It additionally suppresses a newly-scheduled event when
// it is an exact duplicate (same Dest/Type/Payload) of the event most
// recently scheduled for the same timestamp and not yet drained — mirroring
// the reference engine's per-timestamp bucket, which collapses runs of
// identical events instead of queueing them one by one. The suppression
// window is exactly the live bucket for that timestamp: once every event at
// a timestamp has been popped, the bucket is forgotten and a later event
// reusing that timestamp (impossible once the clock has advanced, but
// reachable while it is still current) is never compared against stale
// history.
type EventQueue struct {
	heap    eventHeap
	nextSeq uint64

	lastAtTs  map[int64]Event
	countAtTs map[int64]int
}

// NewEventQueue returns an empty queue ready for use.
func NewEventQueue() *EventQueue {
	return &EventQueue{
		lastAtTs:  make(map[int64]Event),
		countAtTs: make(map[int64]int),
	}
}

// Len reports the number of events currently queued.
func (q *EventQueue) Len() int { return q.heap.Len() }

// Schedule inserts ev into the queue, unless it is a duplicate of the event
// most recently scheduled for ev.Ts that has not yet been popped.
func (q *EventQueue) Schedule(ev Event) {
	if last, ok := q.lastAtTs[ev.Ts]; ok {
		if last.Dest == ev.Dest && last.Type == ev.Type && last.Payload == ev.Payload {
			return
		}
	}

	ev.seq = q.nextSeq
	q.nextSeq++

	heap.Push(&q.heap, ev)
	q.lastAtTs[ev.Ts] = ev
	q.countAtTs[ev.Ts]++
}

// Peek returns the next event to be dispatched without removing it. ok is
// false when the queue is empty.
func (q *EventQueue) Peek() (Event, bool) {
	if q.heap.Len() == 0 {
		return Event{}, false
	}
	return q.heap.items[0], true
}

// Pop removes and returns the next event to be dispatched. ok is false when
// the queue is empty.
func (q *EventQueue) Pop() (Event, bool) {
	if q.heap.Len() == 0 {
		return Event{}, false
	}
	ev := heap.Pop(&q.heap).(Event)

	q.countAtTs[ev.Ts]--
	if q.countAtTs[ev.Ts] == 0 {
		delete(q.countAtTs, ev.Ts)
		delete(q.lastAtTs, ev.Ts)
	}

	return ev, true
}

// eventHeap implements container/heap.Interface over a slice of Events,
// ordered by (Ts, type priority, seq).
type eventHeap struct {
	items []Event
}

func (h *eventHeap) Len() int { return len(h.items) }

func (h *eventHeap) Less(i, j int) bool {
	a, b := h.items[i], h.items[j]
	if a.Ts != b.Ts {
		return a.Ts < b.Ts
	}
	pa, pb := eventPriority[a.Type], eventPriority[b.Type]
	if pa != pb {
		return pa < pb
	}
	return a.seq < b.seq
}

func (h *eventHeap) Swap(i, j int) { h.items[i], h.items[j] = h.items[j], h.items[i] }

func (h *eventHeap) Push(x any) { h.items = append(h.items, x.(Event)) }

func (h *eventHeap) Pop() any {
	old := h.items
	n := len(old)
	item := old[n-1]
	h.items = old[:n-1]
	return item
}
