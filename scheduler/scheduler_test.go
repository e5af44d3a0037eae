package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fedsched/metasim/centralqueue"
	"github.com/fedsched/metasim/kernel"
	"github.com/fedsched/metasim/model"
	"github.com/fedsched/metasim/site"
)

type fakeDirectory struct {
	sites map[kernel.EntityID]*site.Site
}

func (f fakeDirectory) SiteByID(id kernel.EntityID) (*site.Site, bool) {
	s, ok := f.sites[id]
	return s, ok
}

func newQueueWithSites(t *testing.T, k *kernel.Kernel, free ...int64) (*centralqueue.CentralQueue, fakeDirectory) {
	t.Helper()
	qID := k.Reserve()
	q := centralqueue.New(qID, k, 10, func() []centralqueue.SiteView { return nil })
	k.Registry.Set(qID, q)

	dir := fakeDirectory{sites: make(map[kernel.EntityID]*site.Site)}
	for _, f := range free {
		var s *site.Site
		k.Register(func(id kernel.EntityID) kernel.SimEntity {
			s = site.New(id, k, "site", f, 1, 10, qID)
			return s
		})
		dir.sites[s.ID()] = s
		q.Index.Add(centralqueue.SiteStat{SiteID: s.ID(), Free: f})
	}
	return q, dir
}

func readyTask(id, cpus int64) *model.Task {
	return model.NewTask(id, -1, 0, 10, cpus, nil)
}

func TestBestFit_ChoosesSmallestSiteThatFits(t *testing.T) {
	k := kernel.NewKernel()
	q, dir := newQueueWithSites(t, k, 4, 8, 16)
	q.SetTaskList([]*model.Task{readyTask(1, 3)}, false)

	NewBestFit().Schedule(0, q, dir)

	require.Empty(t, q.Ready())
	var placedOn int64
	for id, s := range dir.sites {
		if s.QueuedResources() > 0 {
			placedOn = s.Resources
			_ = id
		}
	}
	assert.Equal(t, int64(4), placedOn)
}

func TestWorstFit_ChoosesLargestSite(t *testing.T) {
	k := kernel.NewKernel()
	q, dir := newQueueWithSites(t, k, 4, 8, 16)
	q.SetTaskList([]*model.Task{readyTask(1, 3)}, false)

	NewWorstFit().Schedule(0, q, dir)

	require.Empty(t, q.Ready())
	var placedOn int64
	for _, s := range dir.sites {
		if s.QueuedResources() > 0 {
			placedOn = s.Resources
		}
	}
	assert.Equal(t, int64(16), placedOn)
}

func TestFillWorstFit_PacksMultipleTasksIntoOneSiteBeforeMovingOn(t *testing.T) {
	k := kernel.NewKernel()
	q, dir := newQueueWithSites(t, k, 4, 10)
	q.SetTaskList([]*model.Task{readyTask(1, 4), readyTask(2, 4), readyTask(3, 4)}, false)

	NewFillWorstFit().Schedule(0, q, dir)

	require.Empty(t, q.Ready())
	var used []int64
	for _, s := range dir.sites {
		used = append(used, s.QueuedResources())
	}
	assert.Contains(t, used, int64(8))
	assert.Contains(t, used, int64(4))
}

func TestNewAllocator_PanicsOnUnknownName(t *testing.T) {
	assert.Panics(t, func() { NewAllocator("bogus") })
}

func TestNewAllocator_BuildsRegisteredPolicies(t *testing.T) {
	for _, name := range ValidAllocatorNames() {
		assert.Equal(t, name, NewAllocator(name).Name())
	}
}
