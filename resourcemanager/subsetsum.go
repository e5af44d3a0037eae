package resourcemanager

import "sort"

// Item is anything subset-sum can select, keyed by an integer weight
// (cpu/resource count) and carrying an opaque payload back to the caller.
type Item struct {
	Key     int64
	Key2    int64 // secondary tie-break key, used only by ClosestToSum2
	Payload any
}

// ClosestToSum selects a subset of items whose Key values sum as close to
// target as the available combinations allow. Items are tried in the order
// given — callers that want a specific exploration order (e.g. smallest
// sites first) sort before calling, matching the reference's "assumes lst
// is sorted" contract. When gt is true, a sum that overshoots target is
// preferred over one that falls short, and vice versa when gt is false.
// withDuplicates allows reusing the same item arbitrarily many times.
func ClosestToSum(items []Item, target int64, withDuplicates bool, gt bool) []Item {
	if withDuplicates {
		return closestWithDuplicates(items, target, gt)
	}
	return closestWithoutDuplicates(items, target, gt)
}

// closestWithoutDuplicates is a direct port of the reachable-sums dynamic
// program: for each item, every sum reached before that item was
// considered (visited highest-first, so an item is never folded into the
// same combination twice) is extended by it. An exact match returns
// immediately; otherwise the best overshoot (gt) or undershoot (!gt) seen
// is returned.
func closestWithoutDuplicates(items []Item, target int64, gt bool) []Item {
	reachable := map[int64][]Item{0: nil}

	var closestSum int64
	haveClosest := false
	var closestList []Item

	for _, item := range items {
		sums := sortedKeysDesc(reachable)

		for _, number := range sums {
			result := number + item.Key
			combo := append(append([]Item(nil), reachable[number]...), item)

			switch {
			case result > target:
				if gt && (!haveClosest || result < closestSum) {
					closestSum = result
					closestList = combo
					haveClosest = true
				}
			case result == target:
				return combo
			default:
				if !gt && (!haveClosest || result > closestSum) {
					closestSum = result
					closestList = combo
					haveClosest = true
				}
				reachable[result] = combo
			}
		}
	}

	return closestList
}

// closestWithDuplicates repeats the same expansion as
// closestWithoutDuplicates, but keeps iterating every reachable sum against
// every item (largest item first) until a full pass adds nothing new,
// allowing an item to appear in a combination more than once.
func closestWithDuplicates(items []Item, target int64, gt bool) []Item {
	reachable := map[int64][]Item{0: nil}

	var closestSum int64
	haveClosest := false
	var closestList []Item

	order := append([]Item(nil), items...)
	sort.Slice(order, func(i, j int) bool { return order[i].Key > order[j].Key })

	for {
		addedSomething := false
		for _, number := range sortedKeysDesc(reachable) {
			for _, item := range order {
				result := number + item.Key
				combo := append(append([]Item(nil), reachable[number]...), item)

				if result > target {
					if gt && (!haveClosest || result < closestSum) {
						closestSum = result
						closestList = combo
						haveClosest = true
					}
					continue
				}
				if result == target {
					return combo
				}
				if !gt && (!haveClosest || result > closestSum) {
					closestSum = result
					closestList = combo
					haveClosest = true
				}
				if _, exists := reachable[result]; !exists {
					reachable[result] = combo
					addedSomething = true
				}
			}
		}
		if !addedSomething {
			break
		}
	}

	return closestList
}

func sortedKeysDesc(reachable map[int64][]Item) []int64 {
	keys := make([]int64, 0, len(reachable))
	for k := range reachable {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] > keys[j] })
	return keys
}

// ClosestToSum2 is like ClosestToSum without duplicates, except ties in the
// primary key sum are broken in favor of the combination with the smaller
// secondary (Key2) sum, and the result is never allowed to exceed target.
// Each item's pass considers every sum reachable before that item was
// visited (highest sum first, so an item is never folded into the same
// combination twice); a newly-reached sum only overwrites an
// already-reachable one when it carries a smaller Key2 total.
func ClosestToSum2(items []Item, target int64) []Item {
	type reach struct {
		items []Item
		key2  int64
	}
	reachable := map[int64]reach{0: {}}

	var exact []Item
	haveExact := false
	exactKey2 := int64(0)

	var closest []Item
	haveClosest := false
	closestSum := int64(0)
	closestKey2 := int64(0)

	for _, item := range items {
		sums := make([]int64, 0, len(reachable))
		for s := range reachable {
			sums = append(sums, s)
		}
		sort.Slice(sums, func(i, j int) bool { return sums[i] > sums[j] })

		for _, s := range sums {
			prev := reachable[s]
			result := s + item.Key
			if result > target {
				continue
			}
			combo := append(append([]Item(nil), prev.items...), item)
			key2Sum := prev.key2 + item.Key2

			if result == target {
				if !haveExact || key2Sum < exactKey2 {
					exact = combo
					haveExact = true
					exactKey2 = key2Sum
				}
				continue
			}

			if !haveClosest || result > closestSum || (result == closestSum && key2Sum < closestKey2) {
				closest = combo
				closestSum = result
				closestKey2 = key2Sum
				haveClosest = true
			}
			if existing, ok := reachable[result]; !ok || existing.key2 > key2Sum {
				reachable[result] = reach{items: combo, key2: key2Sum}
			}
		}
	}

	if haveExact {
		return exact
	}
	return closest
}
