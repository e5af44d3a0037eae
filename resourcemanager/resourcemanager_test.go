package resourcemanager

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fedsched/metasim/centralqueue"
	"github.com/fedsched/metasim/kernel"
	"github.com/fedsched/metasim/model"
)

func newTestManager(t *testing.T, catalog []ClusterInfo, allowDuplicates bool) (*Manager, *kernel.Kernel) {
	t.Helper()
	k := kernel.NewKernel()
	qID := k.Reserve()
	q := centralqueue.New(qID, k, 5, func() []centralqueue.SiteView { return nil })
	k.Registry.Set(qID, q)

	m := New(k, q, qID, 1, catalog, allowDuplicates)
	return m, k
}

func TestManager_ProvisionsEntireCatalogAtStartup(t *testing.T) {
	m, _ := newTestManager(t, []ClusterInfo{{ClusterID: "a", NProcs: 4}, {ClusterID: "b", NProcs: 8}}, false)

	assert.Len(t, m.Sites(), 2)
	assert.Equal(t, int64(12), m.CurrentCapacity())
}

func TestManager_MaximumCapacityPanicsWithDuplicates(t *testing.T) {
	m, _ := newTestManager(t, []ClusterInfo{{ClusterID: "a", NProcs: 4}}, true)
	assert.Panics(t, func() { m.MaximumCapacity() })
}

func TestManager_StartUpBestEffortReturnsZeroWhenFullyProvisioned(t *testing.T) {
	m, _ := newTestManager(t, []ClusterInfo{{ClusterID: "a", NProcs: 4}}, false)
	added := m.StartUpBestEffort(10, false)
	assert.Equal(t, int64(0), added)
}

func TestManager_ReleaseResourcesBestEffortShutsDownIdleSites(t *testing.T) {
	m, _ := newTestManager(t, []ClusterInfo{{ClusterID: "a", NProcs: 4}, {ClusterID: "b", NProcs: 8}}, false)

	released := m.ReleaseResourcesBestEffort(4, true, false)

	require.Equal(t, int64(4), released)
	assert.Equal(t, int64(8), m.CurrentCapacity())
}

func TestManager_DropSitePanicsUnlessShutdown(t *testing.T) {
	m, _ := newTestManager(t, []ClusterInfo{{ClusterID: "a", NProcs: 4}}, false)
	assert.Panics(t, func() { m.DropSite(m.Sites()[0]) })
}

func TestManager_DropSiteRemovesFromRegistryAndSiteList(t *testing.T) {
	m, k := newTestManager(t, []ClusterInfo{{ClusterID: "a", NProcs: 4}}, false)
	s := m.Sites()[0]
	s.Shutdown(func(running, queued []*model.Task) {})

	m.DropSite(s)

	assert.Empty(t, m.Sites())
	_, ok := k.Registry.Get(s.ID())
	assert.False(t, ok)
}
