package centralqueue

import (
	"sort"

	"github.com/fedsched/metasim/kernel"
)

// SiteStat is a snapshot of one site's placement-relevant state, rebuilt
// periodically by the central queue's site-status monitor and updated
// incrementally by SiteIndex.Add/Remove/SetFree.
type SiteStat struct {
	SiteID         kernel.EntityID
	Name           string
	Free           int64
	LeasedInstance bool
	ExpirationTs   int64 // zero when the site is not a leased, expiring instance
}

// Expired reports whether a leased site's lease has run out as of tsNow,
// making it ineligible for new placements even though it still reports
// free capacity.
func (s SiteStat) Expired(tsNow int64) bool {
	return s.LeasedInstance && s.ExpirationTs > 0 && s.ExpirationTs <= tsNow
}

// SiteIndex keeps site placement stats in a slice sorted ascending by free
// resources, with binary-search insertion — a sorted vector rather than a
// balanced tree, since cluster sizes in this domain are tens of sites, not
// millions.
type SiteIndex struct {
	entries        []SiteStat
	totalAvailable int64
}

// NewSiteIndex returns an empty index.
func NewSiteIndex() *SiteIndex {
	return &SiteIndex{}
}

// TotalAvailable is the sum of free resources across every indexed site.
func (idx *SiteIndex) TotalAvailable() int64 { return idx.totalAvailable }

// Len reports how many sites are indexed.
func (idx *SiteIndex) Len() int { return len(idx.entries) }

// Clone returns an independent copy, so a scheduler can track placements it
// has made within a single reschedule tick without disturbing the index the
// next monitor rebuild will read.
func (idx *SiteIndex) Clone() *SiteIndex {
	out := &SiteIndex{totalAvailable: idx.totalAvailable}
	out.entries = append([]SiteStat(nil), idx.entries...)
	return out
}

// Reset clears the index, used by the periodic full-rebuild monitor tick.
func (idx *SiteIndex) Reset() {
	idx.entries = nil
	idx.totalAvailable = 0
}

func (idx *SiteIndex) insertionPoint(free int64) int {
	return sort.Search(len(idx.entries), func(i int) bool { return idx.entries[i].Free >= free })
}

// Add inserts a new site stat, keeping ascending order by Free.
func (idx *SiteIndex) Add(s SiteStat) {
	i := idx.insertionPoint(s.Free)
	idx.entries = append(idx.entries, SiteStat{})
	copy(idx.entries[i+1:], idx.entries[i:])
	idx.entries[i] = s
	idx.totalAvailable += s.Free
}

func (idx *SiteIndex) indexOf(siteID kernel.EntityID) int {
	for i, e := range idx.entries {
		if e.SiteID == siteID {
			return i
		}
	}
	return -1
}

// Remove drops siteID from the index, if present.
func (idx *SiteIndex) Remove(siteID kernel.EntityID) {
	i := idx.indexOf(siteID)
	if i < 0 {
		return
	}
	idx.totalAvailable -= idx.entries[i].Free
	idx.entries = append(idx.entries[:i], idx.entries[i+1:]...)
}

// SetFree updates siteID's free-resource figure, re-sorting its position to
// keep the ascending invariant.
func (idx *SiteIndex) SetFree(siteID kernel.EntityID, free int64) {
	i := idx.indexOf(siteID)
	if i < 0 {
		return
	}
	s := idx.entries[i]
	idx.totalAvailable += free - s.Free
	s.Free = free
	idx.entries = append(idx.entries[:i], idx.entries[i+1:]...)

	j := idx.insertionPoint(s.Free)
	idx.entries = append(idx.entries, SiteStat{})
	copy(idx.entries[j+1:], idx.entries[j:])
	idx.entries[j] = s
}

// Ascending returns the indexed sites from least to most free capacity.
// Best-Fit walks this from the bisect-left point for the task's cpu demand.
func (idx *SiteIndex) Ascending() []SiteStat {
	out := make([]SiteStat, len(idx.entries))
	copy(out, idx.entries)
	return out
}

// Descending returns the indexed sites from most to least free capacity.
// Worst-Fit and Fill-Worst-Fit walk sites in this order.
func (idx *SiteIndex) Descending() []SiteStat {
	out := make([]SiteStat, len(idx.entries))
	for i, e := range idx.entries {
		out[len(idx.entries)-1-i] = e
	}
	return out
}

// BisectLeftAscending returns the index of the first ascending entry with
// Free >= target, i.e. the starting point for a Best-Fit scan.
func (idx *SiteIndex) BisectLeftAscending(target int64) int {
	return idx.insertionPoint(target)
}
