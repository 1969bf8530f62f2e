package service

import "shuffle_arena/internal/domain/model"

// rotateSlots moves slots among the incomplete members in roster order: the
// member at position i takes the slot held by the member at position i+1,
// wrapping around. Completed members keep their slot. It reports whether any
// slot moved; with one or zero incomplete members nothing does.
func rotateSlots(members []model.Member) bool {
	var open []int
	for i := range members {
		if !members[i].Completed {
			open = append(open, i)
		}
	}
	if len(open) <= 1 {
		return false
	}

	slots := make([]int, len(open))
	for i, idx := range open {
		slots[i] = members[idx].Slot
	}
	for i, idx := range open {
		members[idx].Slot = slots[(i+1)%len(slots)]
	}
	return true
}
