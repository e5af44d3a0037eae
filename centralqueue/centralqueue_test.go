package centralqueue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fedsched/metasim/kernel"
	"github.com/fedsched/metasim/model"
)

func newTestQueue(k *kernel.Kernel) *CentralQueue {
	id := k.Reserve()
	q := New(id, k, 5, func() []SiteView { return nil })
	k.Registry.Set(id, q)
	return q
}

func TestCentralQueue_ClassifiesByDependencyThenSubmitTime(t *testing.T) {
	k := kernel.NewKernel()
	q := newTestQueue(k)

	ready := model.NewTask(1, -1, 0, 1, 1, nil)
	future := model.NewTask(2, -1, 100, 1, 1, nil)
	blocked := model.NewTask(3, -1, 0, 1, 1, map[int64]struct{}{1: {}})

	q.SetTaskList([]*model.Task{ready, future, blocked}, false)

	assert.Len(t, q.ready, 1)
	assert.Equal(t, int64(1), q.ready[0].ID)
	assert.Len(t, q.submittedFuture, 1)
	assert.Len(t, q.pendingDependencies, 1)
}

func TestCentralQueue_TasksToSchedulePromotesDueSubmissions(t *testing.T) {
	k := kernel.NewKernel()
	q := newTestQueue(k)
	q.Index.Add(SiteStat{SiteID: 99, Free: 100})

	future := model.NewTask(1, -1, 10, 1, 1, nil)
	q.SetTaskList([]*model.Task{future}, false)
	assert.Empty(t, q.Ready())

	k.Clock = 10
	ready := q.TasksToSchedule()

	require.Len(t, ready, 1)
	assert.Equal(t, int64(1), ready[0].ID)
}

func TestCentralQueue_TaskDoneResolvesChildDependency(t *testing.T) {
	k := kernel.NewKernel()
	q := newTestQueue(k)

	parent := model.NewTask(1, -1, 0, 1, 1, nil)
	child := model.NewTask(2, -1, 0, 1, 1, map[int64]struct{}{1: {}})
	parent.Children = []int64{2}
	parent.Stop()

	q.tasksByID[1] = parent
	q.tasksByID[2] = child
	q.pendingDependencies[2] = child

	q.handleTaskDone(kernel.Event{Payload: TaskDoneUserPayload{Task: parent}})

	assert.NotContains(t, q.pendingDependencies, int64(2))
	require.Len(t, q.ready, 1)
	assert.Equal(t, int64(2), q.ready[0].ID)
}

func TestCentralQueue_ExtendDecrementsSubmittedCountBeforeReadmitting(t *testing.T) {
	k := kernel.NewKernel()
	q := newTestQueue(k)
	q.submittedTasksCount = 5

	interrupted := model.NewTask(1, -1, 0, 1, 1, nil)
	q.Extend([]*model.Task{interrupted})

	assert.Equal(t, int64(5), q.submittedTasksCount)
	assert.Len(t, q.ready, 1)
}

func TestCentralQueue_WorkflowMarkedStartedAtEntryTaskFinish(t *testing.T) {
	k := kernel.NewKernel()
	q := newTestQueue(k)

	entry := model.NewTask(1, 0, 0, 5, 1, nil)
	entry.Run(0, 5)
	entry.Stop()

	wf := model.NewWorkflow(0, []int64{1})
	q.tasksByID[1] = entry
	q.workflowsByID[0] = wf

	q.handleTaskDone(kernel.Event{Payload: TaskDoneUserPayload{Task: entry}})

	assert.True(t, wf.Started())
	assert.Equal(t, int64(0), wf.TsStart)
}
