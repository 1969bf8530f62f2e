package service

import (
	"shuffle_arena/internal/domain/model"
	"testing"
)

func members(slots []int, completed []bool) []model.Member {
	out := make([]model.Member, len(slots))
	for i := range slots {
		out[i] = model.Member{Handle: string(rune('A' + i)), Slot: slots[i], Completed: completed[i]}
	}
	return out
}

func TestRotateSlots(t *testing.T) {
	tests := []struct {
		name      string
		slots     []int
		completed []bool
		want      []int
		permuted  bool
	}{
		{"all incomplete", []int{0, 1, 2}, []bool{false, false, false}, []int{1, 2, 0}, true},
		{"all incomplete after one rotation", []int{1, 2, 0}, []bool{false, false, false}, []int{2, 0, 1}, true},
		{"last member completed swaps the other two", []int{0, 1, 2}, []bool{false, false, true}, []int{1, 0, 2}, true},
		{"middle member completed", []int{0, 1, 2}, []bool{false, true, false}, []int{2, 1, 0}, true},
		{"lone straggler keeps slot", []int{2, 0, 1}, []bool{true, false, true}, []int{2, 0, 1}, false},
		{"everyone completed", []int{0, 1, 2}, []bool{true, true, true}, []int{0, 1, 2}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ms := members(tt.slots, tt.completed)
			permuted := rotateSlots(ms)
			if permuted != tt.permuted {
				t.Fatalf("permuted = %v, want %v", permuted, tt.permuted)
			}
			for i, m := range ms {
				if m.Slot != tt.want[i] {
					t.Fatalf("member %s slot = %d, want %d", m.Handle, m.Slot, tt.want[i])
				}
				if m.Completed != tt.completed[i] {
					t.Fatalf("member %s completion changed", m.Handle)
				}
			}
		})
	}
}

func TestRotateSlotsIsPermutation(t *testing.T) {
	ms := members([]int{0, 1, 2}, []bool{false, false, false})
	for round := 0; round < 6; round++ {
		rotateSlots(ms)
		seen := map[int]bool{}
		for _, m := range ms {
			seen[m.Slot] = true
		}
		if len(seen) != 3 {
			t.Fatalf("round %d: slots not a permutation: %+v", round, ms)
		}
	}
	// three rotations of three members return to the start
	for i, m := range ms {
		if m.Slot != i {
			t.Fatalf("after six rotations member %d holds slot %d", i, m.Slot)
		}
	}
}
