// Package resourcemanager provisions and decommissions sites against a
// catalog of available clusters, using best-effort subset-sum packing to
// hit capacity targets requested by an autoscaler.
package resourcemanager

import (
	"fmt"

	"github.com/fedsched/metasim/centralqueue"
	"github.com/fedsched/metasim/kernel"
	"github.com/fedsched/metasim/model"
	"github.com/fedsched/metasim/site"
)

// ClusterInfo is one entry in the cluster-setup catalog: a site that can be
// provisioned, named ClusterID, offering NProcs CPUs at ResourceSpeed.
type ClusterInfo struct {
	ClusterID     string
	NProcs        int64
	ResourceSpeed float64
}

// Manager provisions Sites from a fixed catalog (or, when AllowDuplicates is
// set, an unbounded supply of copies of it) and registers/deregisters them
// with the kernel and the central queue's site index as they come and go.
type Manager struct {
	k               *kernel.Kernel
	centralQueueID  kernel.EntityID
	queue           *centralqueue.CentralQueue
	reportInterval  int64
	AllowDuplicates bool

	catalog     []ClusterInfo
	sites       []*site.Site
	nextSiteSeq int64
}

// New constructs a manager over catalog (sorted ascending by NProcs, as the
// reference does, so best-effort provisioning explores smaller sites
// first) and immediately provisions every catalog entry — a federated
// cluster starts with its full member set online.
func New(k *kernel.Kernel, queue *centralqueue.CentralQueue, centralQueueID kernel.EntityID, reportInterval int64, catalog []ClusterInfo, allowDuplicates bool) *Manager {
	sorted := append([]ClusterInfo(nil), catalog...)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j-1].NProcs > sorted[j].NProcs; j-- {
			sorted[j-1], sorted[j] = sorted[j], sorted[j-1]
		}
	}

	m := &Manager{
		k:               k,
		centralQueueID:  centralQueueID,
		queue:           queue,
		reportInterval:  reportInterval,
		AllowDuplicates: allowDuplicates,
		catalog:         sorted,
	}
	m.startAllAvailableSites()
	return m
}

// Sites returns every site the manager has provisioned, including shut-down
// ones not yet dropped.
func (m *Manager) Sites() []*site.Site { return m.sites }

// CurrentCapacity sums the CPU budget of every running site.
func (m *Manager) CurrentCapacity() int64 {
	var total int64
	for _, s := range m.sites {
		if s.Status() == site.StatusRunning {
			total += s.Resources
		}
	}
	return total
}

// MaximumCapacity sums the CPU budget of every provisioned site (running, or
// shut down but not yet dropped) plus every not-yet-provisioned catalog
// entry. It is undefined when AllowDuplicates is
// set — an unbounded supply has no maximum — and panics rather than
// returning a misleading number, preserving the reference implementation's
// explicit refusal to answer in that mode.
func (m *Manager) MaximumCapacity() int64 {
	if m.AllowDuplicates {
		panic("resourcemanager: MaximumCapacity is undefined when duplicate provisioning is allowed")
	}
	var total int64
	for _, s := range m.sites {
		total += s.Resources
	}
	for _, c := range m.availableSites() {
		total += c.NProcs
	}
	return total
}

func (m *Manager) availableSites() []ClusterInfo {
	if m.AllowDuplicates {
		return m.catalog
	}
	running := make(map[string]struct{}, len(m.sites))
	for _, s := range m.sites {
		running[s.Name] = struct{}{}
	}
	var out []ClusterInfo
	for _, c := range m.catalog {
		if _, ok := running[c.ClusterID]; !ok {
			out = append(out, c)
		}
	}
	return out
}

func (m *Manager) startAllAvailableSites() int64 {
	var resources int64
	for _, c := range m.availableSites() {
		resources += m.provisionSite(c)
	}
	return resources
}

func (m *Manager) provisionSite(info ClusterInfo) int64 {
	name := info.ClusterID
	if m.AllowDuplicates {
		name = fmt.Sprintf("%s_%d", info.ClusterID, m.nextSiteSeq)
	}
	m.nextSiteSeq++

	speed := info.ResourceSpeed
	if speed == 0 {
		speed = 1
	}

	var newSite *site.Site
	m.k.Register(func(id kernel.EntityID) kernel.SimEntity {
		newSite = site.New(id, m.k, name, info.NProcs, speed, m.reportInterval, m.centralQueueID)
		return newSite
	})

	m.sites = append(m.sites, newSite)
	m.queue.AddSiteStat(centralqueue.SiteStat{SiteID: newSite.ID(), Name: name, Free: newSite.FreeResources()})

	return newSite.Resources
}

// StartUpBestEffort provisions sites whose combined capacity comes as close
// to capacity as possible without exceeding it (unless fixCapacity is set,
// in which case nothing is provisioned unless an exact match exists). It
// returns the CPU capacity actually added.
func (m *Manager) StartUpBestEffort(capacity int64, fixCapacity bool) int64 {
	if !m.AllowDuplicates && len(m.sites) == len(m.catalog) {
		return 0
	}

	available := m.availableSites()
	items := make([]Item, len(available))
	for i, c := range available {
		items[i] = Item{Key: c.NProcs, Payload: c}
	}

	chosen := ClosestToSum(items, capacity, m.AllowDuplicates, false)
	sum := sumItemKeys(chosen)
	if fixCapacity && sum != capacity {
		return 0
	}

	var resources int64
	for _, it := range chosen {
		resources += m.provisionSite(it.Payload.(ClusterInfo))
	}
	return resources
}

// ReleaseResourcesBestEffort shuts down sites whose combined capacity comes
// as close to capacity as possible. When onlyIdle is true, only idle
// running sites are considered, chosen purely by capacity; otherwise every
// running site is a candidate and ties are broken toward releasing
// non-idle capacity least. Returns the CPU capacity actually released.
func (m *Manager) ReleaseResourcesBestEffort(capacity int64, onlyIdle bool, fixCapacity bool) int64 {
	var running []*site.Site
	for _, s := range m.sites {
		if s.Status() == site.StatusRunning {
			running = append(running, s)
		}
	}

	var toStop []*site.Site
	if onlyIdle {
		var idle []*site.Site
		for _, s := range running {
			if s.IsIdle() {
				idle = append(idle, s)
			}
		}
		items := make([]Item, len(idle))
		for i, s := range idle {
			items[i] = Item{Key: s.Resources, Payload: s}
		}
		chosen := ClosestToSum(items, capacity, false, false)
		for _, it := range chosen {
			toStop = append(toStop, it.Payload.(*site.Site))
		}
	} else {
		items := make([]Item, len(running))
		for i, s := range running {
			// Key2 approximates used_resources/resources, scaled to an
			// integer permille so ClosestToSum2's tie-break prefers
			// releasing the least-utilized site among equally-sized
			// candidates.
			usedFraction := int64(0)
			if s.Resources > 0 {
				usedFraction = (s.Resources - s.FreeResources()) * 1000 / s.Resources
			}
			items[i] = Item{Key: s.Resources, Key2: usedFraction, Payload: s}
		}
		chosen := ClosestToSum2(items, capacity)
		for _, it := range chosen {
			toStop = append(toStop, it.Payload.(*site.Site))
		}
	}

	sum := sumSiteResources(toStop)
	if fixCapacity && sum != capacity {
		return 0
	}

	var resources int64
	for _, s := range toStop {
		if onlyIdle && !s.IsIdle() {
			if fixCapacity {
				break
			}
			continue
		}
		resources += s.Resources
		m.shutdownSite(s)
	}
	return resources
}

func (m *Manager) shutdownSite(s *site.Site) {
	s.Shutdown(func(running, queued []*model.Task) {
		interrupted := append(append([]*model.Task(nil), running...), queued...)
		if len(interrupted) > 0 {
			m.queue.Extend(interrupted)
		}
	})
	m.queue.RemoveSiteStat(s.ID())
}

// DropSite removes a shut-down site from the registry entirely. Called by
// the system monitor during its periodic refresh, once a shutdown site has
// been observed.
func (m *Manager) DropSite(s *site.Site) {
	if s.Status() != site.StatusShutdown {
		panic("resourcemanager: only shut-down sites can be dropped")
	}
	m.k.Drop(s.ID())
	for i, existing := range m.sites {
		if existing == s {
			m.sites = append(m.sites[:i], m.sites[i+1:]...)
			return
		}
	}
}

func sumItemKeys(items []Item) int64 {
	var s int64
	for _, it := range items {
		s += it.Key
	}
	return s
}

func sumSiteResources(sites []*site.Site) int64 {
	var s int64
	for _, site := range sites {
		s += site.Resources
	}
	return s
}
