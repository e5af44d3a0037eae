package site

import (
	"sort"
)

// Stats holds the running and last-reporting-time-unit (LRTU) counters a
// Monitor accumulates for its site. Total* fields never reset; LRTU*
// fields are zeroed only by ResetLRTU, which the simulation does not call,
// so they accumulate over the whole run.
type Stats struct {
	TotalNTasksIn        int64
	TotalNTasksStarted   int64
	TotalNTasksFinished  int64
	TotalNInterrupted    int64
	TotalConsumedCPUTime int64

	LRTUNTasksIn        int64
	LRTUNTasksStarted   int64
	LRTUNTasksFinished  int64
	LRTUConsumedCPUTime int64
}

// Monitor tracks arrival history and throughput counters for one site,
// supporting arrival-rate estimation from per-hour arrival history
// (EstimateArrivalForTs). No autoscaler strategy calls it.
type Monitor struct {
	site           *Site
	reportInterval int64

	stats Stats

	arrivalWindowSeconds int64
	recentArrivals       []int64 // timestamps, ascending

	// arrivalsPerDay[day] is a 24-slot histogram of arrival counts by
	// hour-of-day, used to estimate future arrival rate from history.
	arrivalsPerDay map[int64][24]int64
}

// NewMonitor returns a monitor for site, with a five-minute default arrival
// tracking window (overridable via SetArrivalWindow).
func NewMonitor(s *Site, reportInterval int64) *Monitor {
	return &Monitor{
		site:                 s,
		reportInterval:       reportInterval,
		arrivalWindowSeconds: 5 * 60,
		arrivalsPerDay:       make(map[int64][24]int64),
	}
}

// SetArrivalWindow overrides how far back, in seconds, recent-arrival
// tracking looks.
func (m *Monitor) SetArrivalWindow(seconds int64) { m.arrivalWindowSeconds = seconds }

// Stats returns the monitor's current counters.
func (m *Monitor) Stats() Stats { return m.stats }

// ResetLRTU zeroes the last-reporting-time-unit counters.
func (m *Monitor) ResetLRTU() {
	m.stats.LRTUNTasksIn = 0
	m.stats.LRTUNTasksStarted = 0
	m.stats.LRTUNTasksFinished = 0
	m.stats.LRTUConsumedCPUTime = 0
}

// RunningConsumedCPUTime sums the CPU-time consumed so far by tasks still
// in flight (not yet finished), as of tsNow.
func (m *Monitor) RunningConsumedCPUTime(tsNow int64) int64 {
	var total int64
	for _, t := range m.site.runningTasks {
		total += (tsNow - t.TsStart) * t.CPUs
	}
	return total
}

func (m *Monitor) removeOldArrivals(tsNow int64) {
	cutoff := tsNow - m.arrivalWindowSeconds
	idx := sort.Search(len(m.recentArrivals), func(i int) bool { return m.recentArrivals[i] >= cutoff })
	m.recentArrivals = m.recentArrivals[idx:]
}

// ArrivalsInWindow reports how many tasks have arrived within the tracking
// window as of tsNow.
func (m *Monitor) ArrivalsInWindow(tsNow int64) int {
	m.removeOldArrivals(tsNow)
	return len(m.recentArrivals)
}

func hourAndDay(ts int64) (hour, day int64) {
	return (ts / 3600) % 24, ts / 86400
}

func (m *Monitor) addArrivedTask(ts int64) {
	m.removeOldArrivals(ts)
	m.recentArrivals = append(m.recentArrivals, ts)

	hour, day := hourAndDay(ts)
	bucket := m.arrivalsPerDay[day]
	bucket[hour]++
	m.arrivalsPerDay[day] = bucket
}

// EstimateArrivalForTs returns the given percentile (0-100) of arrivals
// observed at this hour-of-day over the lookback window, or 0 if there is
// no history yet.
func (m *Monitor) EstimateArrivalForTs(ts int64, percentile float64, lookbackDays int64) float64 {
	hour, day := hourAndDay(ts)

	var samples []float64
	start := day - lookbackDays
	if start < 0 {
		start = 0
	}
	for d := start; d < day; d++ {
		if bucket, ok := m.arrivalsPerDay[d]; ok {
			samples = append(samples, float64(bucket[hour]))
		}
	}
	if len(samples) == 0 {
		return 0
	}
	return percentileOf(samples, percentile)
}

// percentileOf computes the given percentile (0-100) over samples using
// linear interpolation between closest ranks, the same convention as
// numpy.percentile's default.
func percentileOf(samples []float64, percentile float64) float64 {
	sorted := append([]float64(nil), samples...)
	sort.Float64s(sorted)

	if len(sorted) == 1 {
		return sorted[0]
	}

	rank := (percentile / 100) * float64(len(sorted)-1)
	lo := int(rank)
	hi := lo + 1
	if hi >= len(sorted) {
		return sorted[len(sorted)-1]
	}
	frac := rank - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}
