package centralqueue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSiteIndex_AscendingOrderAndBisect(t *testing.T) {
	idx := NewSiteIndex()
	idx.Add(SiteStat{SiteID: 1, Free: 10})
	idx.Add(SiteStat{SiteID: 2, Free: 5})
	idx.Add(SiteStat{SiteID: 3, Free: 20})

	asc := idx.Ascending()
	require.Len(t, asc, 3)
	assert.Equal(t, []int64{5, 10, 20}, []int64{asc[0].Free, asc[1].Free, asc[2].Free})

	i := idx.BisectLeftAscending(10)
	assert.Equal(t, int64(10), asc[i].Free)

	assert.Equal(t, int64(35), idx.TotalAvailable())
}

func TestSiteIndex_Descending(t *testing.T) {
	idx := NewSiteIndex()
	idx.Add(SiteStat{SiteID: 1, Free: 10})
	idx.Add(SiteStat{SiteID: 2, Free: 5})

	desc := idx.Descending()
	assert.Equal(t, int64(10), desc[0].Free)
	assert.Equal(t, int64(5), desc[1].Free)
}

func TestSiteIndex_SetFreeReordersAndUpdatesTotal(t *testing.T) {
	idx := NewSiteIndex()
	idx.Add(SiteStat{SiteID: 1, Free: 10})
	idx.Add(SiteStat{SiteID: 2, Free: 5})

	idx.SetFree(2, 50)

	asc := idx.Ascending()
	assert.Equal(t, int64(10), asc[0].Free)
	assert.Equal(t, int64(50), asc[1].Free)
	assert.Equal(t, int64(60), idx.TotalAvailable())
}

func TestSiteIndex_RemoveUpdatesTotal(t *testing.T) {
	idx := NewSiteIndex()
	idx.Add(SiteStat{SiteID: 1, Free: 10})
	idx.Add(SiteStat{SiteID: 2, Free: 5})

	idx.Remove(1)

	assert.Equal(t, 1, idx.Len())
	assert.Equal(t, int64(5), idx.TotalAvailable())
}
