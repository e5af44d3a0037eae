package model

import "sort"

// TopoSortTasks returns the ids of tasks in dependency order (a task always
// appears after every task it depends on), using an explicit worklist
// (Kahn's algorithm) rather than recursion so that arbitrarily deep DAGs
// never risk a stack overflow. Ties among tasks that become ready at the
// same step are broken by ascending id, so the result is deterministic
// across runs.
func TopoSortTasks(tasks []*Task) []int64 {
	byID := make(map[int64]*Task, len(tasks))
	remaining := make(map[int64]int, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t
		remaining[t.ID] = len(t.Dependencies)
	}

	var ready []int64
	for id, deg := range remaining {
		if deg == 0 {
			ready = append(ready, id)
		}
	}
	sort.Slice(ready, func(i, j int) bool { return ready[i] < ready[j] })

	order := make([]int64, 0, len(tasks))
	for len(ready) > 0 {
		sort.Slice(ready, func(i, j int) bool { return ready[i] < ready[j] })
		id := ready[0]
		ready = ready[1:]
		order = append(order, id)

		for _, childID := range byID[id].Children {
			remaining[childID]--
			if remaining[childID] == 0 {
				ready = append(ready, childID)
			}
		}
	}

	return order
}

// CriticalPath computes the length (in wall-clock ticks, from the earliest
// submission to the latest finish) and the number of tasks on the longest
// dependency chain, for a workflow whose tasks and dependency edges are
// given by taskIDs/byID. Finish time for a task is its own submission time
// (or, if later, the finish time of its slowest-finishing parent) plus its
// runtime; this walks taskIDs in topological order so every parent's finish
// time is already known by the time a child is processed — no recursion.
func CriticalPath(taskIDs []int64, byID map[int64]*Task) (length int64, taskCount int64) {
	order := TopoSortTasks(taskIDsToTasks(taskIDs, byID))

	finish := make(map[int64]int64, len(order))
	pathLen := make(map[int64]int64, len(order))

	var minSubmit int64
	first := true
	var maxFinish int64
	var criticalID int64

	for _, id := range order {
		task := byID[id]
		if first || task.TsSubmit < minSubmit {
			minSubmit = task.TsSubmit
		}
		first = false

		var bestParentFinish int64
		var bestParentPath int64
		for parentID := range task.Dependencies {
			if pf, ok := finish[parentID]; ok && pf > bestParentFinish {
				bestParentFinish = pf
				bestParentPath = pathLen[parentID]
			}
		}

		start := task.TsSubmit
		if bestParentFinish > start {
			start = bestParentFinish
		}
		finish[id] = start + task.Runtime
		if len(task.Dependencies) == 0 {
			pathLen[id] = 1
		} else {
			pathLen[id] = bestParentPath + 1
		}

		if finish[id] > maxFinish {
			maxFinish = finish[id]
			criticalID = id
		}
	}

	if len(order) == 0 {
		return 0, 0
	}
	return maxFinish - minSubmit, pathLen[criticalID]
}

func taskIDsToTasks(ids []int64, byID map[int64]*Task) []*Task {
	out := make([]*Task, 0, len(ids))
	for _, id := range ids {
		out = append(out, byID[id])
	}
	return out
}
