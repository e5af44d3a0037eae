package site

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fedsched/metasim/kernel"
	"github.com/fedsched/metasim/model"
)

func newTestSite(t *testing.T, resources int64, speed float64) (*Site, *kernel.Kernel) {
	t.Helper()
	k := kernel.NewKernel()
	qID := k.Reserve()
	var s *Site
	k.Register(func(id kernel.EntityID) kernel.SimEntity {
		s = New(id, k, "site-a", resources, speed, 100, qID)
		return s
	})
	return s, k
}

// drainTo dispatches every self-scheduled event addressed to s up to and
// including tsEnd, advancing the kernel clock as it goes. It does not call
// Activate, so it can be used to advance a site under test step by step
// without re-triggering its initial setup each time.
func drainTo(t *testing.T, k *kernel.Kernel, s *Site, tsEnd int64) {
	t.Helper()
	for {
		ev, ok := k.Queue.Peek()
		if !ok || ev.Ts > tsEnd {
			return
		}
		ev, _ = k.Queue.Pop()
		k.Clock = ev.Ts
		if ev.Dest != s.ID() {
			continue
		}
		s.Dispatch(ev)
	}
}

func task(id, cpus, runtime int64) *model.Task {
	return model.NewTask(id, -1, 0, runtime, cpus, nil)
}

func TestSite_RunsTaskAndReportsCompletionToCentralQueue(t *testing.T) {
	s, k := newTestSite(t, 8, 1)

	s.Dispatch(kernel.Event{Type: kernel.AddTask, Payload: AddTaskPayload{Task: task(1, 4, 10)}})
	// Accepted into the FCFS queue, but not yet dispatched onto the CPU
	// budget until the reschedule event this triggers is drained.
	require.Equal(t, int64(8), s.FreeResources())
	require.Equal(t, int64(4), s.QueuedResources())

	drainTo(t, k, s, 10)

	assert.Equal(t, int64(8), s.FreeResources())
	assert.True(t, s.IsIdle())
}

func TestSite_FCFSQueueBlocksOnInsufficientResources(t *testing.T) {
	s, k := newTestSite(t, 4, 1)

	s.Dispatch(kernel.Event{Type: kernel.AddTask, Payload: AddTaskPayload{Task: task(1, 4, 10)}})
	s.Dispatch(kernel.Event{Type: kernel.AddTask, Payload: AddTaskPayload{Task: task(2, 2, 5)}})

	// Neither task has been dispatched onto the CPU budget yet — both sit
	// in the FCFS queue until the reschedule event fires.
	assert.Equal(t, int64(4), s.FreeResources())
	assert.Equal(t, int64(6), s.QueuedResources())

	drainTo(t, k, s, 10)

	// Task 1 (cpus=4) occupies the whole budget from ts=0 until it
	// finishes at ts=10, at which point task 2 (cpus=2) is immediately
	// dispatched into the freed capacity by the same reschedule pass.
	assert.Equal(t, int64(2), s.FreeResources())
	assert.Equal(t, int64(0), s.QueuedResources())
	assert.False(t, s.IsIdle())

	drainTo(t, k, s, 15)

	assert.Equal(t, int64(4), s.FreeResources())
	assert.True(t, s.IsIdle())
}

func TestSite_RunTicksScaleWithFractionalSpeed(t *testing.T) {
	s, k := newTestSite(t, 4, 0.5)

	s.Dispatch(kernel.Event{Type: kernel.AddTask, Payload: AddTaskPayload{Task: task(1, 2, 5)}})

	drainTo(t, k, s, 9)
	assert.False(t, s.IsIdle())

	drainTo(t, k, s, 10)
	assert.True(t, s.IsIdle())
}

func TestSite_ShutdownInterruptsRunningAndQueuedTasks(t *testing.T) {
	s, k := newTestSite(t, 4, 1)

	s.Dispatch(kernel.Event{Type: kernel.AddTask, Payload: AddTaskPayload{Task: task(1, 4, 10)}})
	s.Dispatch(kernel.Event{Type: kernel.AddTask, Payload: AddTaskPayload{Task: task(2, 4, 5)}})

	// Drain the reschedule triggered by the first AddTask so task 1 is
	// actually running (consuming the whole budget) before shutdown,
	// leaving task 2 still sitting in the FCFS queue behind it.
	drainTo(t, k, s, 0)

	var extendedRunning, extendedQueued []*model.Task
	s.Shutdown(func(running, queued []*model.Task) {
		extendedRunning = running
		extendedQueued = queued
	})

	require.Len(t, extendedRunning, 1)
	require.Len(t, extendedQueued, 1)
	assert.Equal(t, model.StatusSubmitted, extendedRunning[0].Status)
	assert.Equal(t, int64(-1), extendedRunning[0].RunningAt)
	assert.Equal(t, StatusShutdown, s.Status())
	assert.True(t, s.IsIdle())

	s.Dispatch(kernel.Event{Type: kernel.AddTask, Payload: AddTaskPayload{Task: task(3, 1, 1)}})
	assert.True(t, s.IsIdle())
}

func TestSite_IdleShutdownDoesNotCallExtend(t *testing.T) {
	s, _ := newTestSite(t, 4, 1)
	called := false
	s.Shutdown(func(running, queued []*model.Task) { called = true })
	assert.False(t, called)
	assert.Equal(t, StatusShutdown, s.Status())
}
