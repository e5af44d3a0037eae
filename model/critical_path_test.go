package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func dep(ids ...int64) map[int64]struct{} {
	m := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		m[id] = struct{}{}
	}
	return m
}

func link(parent, child *Task) {
	parent.Children = append(parent.Children, child.ID)
}

// TestCriticalPath_TwoParallelChains: A->B (runtimes 5+5) and C->D (runtimes
// 3+3), same submit time. A->B is critical: length 10 with 2 tasks.
func TestCriticalPath_TwoParallelChains(t *testing.T) {
	a := NewTask(1, 0, 0, 5, 1, nil)
	b := NewTask(2, 0, 0, 5, 1, dep(1))
	c := NewTask(3, 0, 0, 3, 1, nil)
	d := NewTask(4, 0, 0, 3, 1, dep(3))
	link(a, b)
	link(c, d)

	byID := map[int64]*Task{1: a, 2: b, 3: c, 4: d}
	length, count := CriticalPath([]int64{1, 2, 3, 4}, byID)

	assert.Equal(t, int64(10), length)
	assert.Equal(t, int64(2), count)
}

// TestCriticalPath_DiamondDependency: A->{B,C}->D. Both paths through the
// diamond have 3 tasks; runtimes are equal so length is determined by the
// shared entry/exit plus one branch.
func TestCriticalPath_DiamondDependency(t *testing.T) {
	a := NewTask(1, 0, 0, 2, 1, nil)
	b := NewTask(2, 0, 0, 4, 1, dep(1))
	c := NewTask(3, 0, 0, 4, 1, dep(1))
	d := NewTask(4, 0, 0, 2, 1, dep(2, 3))
	link(a, b)
	link(a, c)
	link(b, d)
	link(c, d)

	byID := map[int64]*Task{1: a, 2: b, 3: c, 4: d}
	length, count := CriticalPath([]int64{1, 2, 3, 4}, byID)

	assert.Equal(t, int64(8), length)
	assert.Equal(t, int64(3), count)
}

// TestCriticalPath_StaggeredSubmission: an independent single task that
// finishes later than a two-task chain determines the length, even though
// it is not itself the longest chain by task count.
func TestCriticalPath_StaggeredSubmission(t *testing.T) {
	a := NewTask(1, 0, 0, 2, 1, nil)
	b := NewTask(2, 0, 2, 2, 1, dep(1))
	c := NewTask(3, 0, 1, 10, 1, nil)
	link(a, b)

	byID := map[int64]*Task{1: a, 2: b, 3: c}
	length, count := CriticalPath([]int64{1, 2, 3}, byID)

	assert.Equal(t, int64(11), length)
	assert.Equal(t, int64(1), count)
}

func TestTopoSortTasks_OrdersParentsBeforeChildren(t *testing.T) {
	a := NewTask(1, 0, 0, 1, 1, nil)
	b := NewTask(2, 0, 0, 1, 1, dep(1))
	c := NewTask(3, 0, 0, 1, 1, dep(2))
	link(a, b)
	link(b, c)

	order := TopoSortTasks([]*Task{c, b, a})

	assert.Equal(t, []int64{1, 2, 3}, order)
}
