package resourcemanager

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func sumOf(items []Item) int64 {
	var s int64
	for _, it := range items {
		s += it.Key
	}
	return s
}

func TestClosestToSum_ExactMatch(t *testing.T) {
	items := []Item{{Key: 4}, {Key: 8}, {Key: 2}}
	got := ClosestToSum(items, 10, false, false)
	assert.Equal(t, int64(10), sumOf(got))
}

func TestClosestToSum_NoExactMatchStaysUnder(t *testing.T) {
	items := []Item{{Key: 3}, {Key: 3}, {Key: 3}}
	got := ClosestToSum(items, 8, false, false)
	assert.LessOrEqual(t, sumOf(got), int64(8))
	assert.Equal(t, int64(6), sumOf(got))
}

func TestClosestToSum_GtPrefersClosestFromAbove(t *testing.T) {
	items := []Item{{Key: 5}, {Key: 6}}
	got := ClosestToSum(items, 4, false, true)
	assert.Equal(t, int64(5), sumOf(got))
}

func TestClosestToSum_WithDuplicatesReusesItems(t *testing.T) {
	items := []Item{{Key: 3}}
	got := ClosestToSum(items, 9, true, false)
	assert.Equal(t, int64(9), sumOf(got))
	assert.Len(t, got, 3)
}

func TestClosestToSum2_NeverExceedsTarget(t *testing.T) {
	items := []Item{{Key: 7, Key2: 1}, {Key: 4, Key2: 5}, {Key: 4, Key2: 0}}
	got := ClosestToSum2(items, 8)
	assert.LessOrEqual(t, sumOf(got), int64(8))
}

func TestClosestToSum2_TieBreaksOnSmallerSecondaryKey(t *testing.T) {
	items := []Item{{Key: 5, Key2: 10, Payload: "expensive"}, {Key: 5, Key2: 1, Payload: "cheap"}}
	got := ClosestToSum2(items, 5)
	assert.Len(t, got, 1)
	assert.Equal(t, "cheap", got[0].Payload)
}
