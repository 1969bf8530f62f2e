package model

import (
	"maps"
	"time"
)

// TeamSize is fixed: one member per difficulty tier.
const TeamSize = 3

type Member struct {
	Handle    string    `json:"handle"`
	Slot      int       `json:"slot"` // index into Team.AssignedProblems
	Completed bool      `json:"completed"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Team struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Slug    string   `json:"slug"`
	Members []Member `json:"members"`

	// AssignedProblems holds one problem id per tier, indexed by slot.
	// Empty until the session starts.
	AssignedProblems []string `json:"assigned_problems"`
	// Code is problem id -> language -> source.
	Code         map[string]map[string]string `json:"code"`
	LastLanguage map[string]string            `json:"last_language"`

	CurrentRound   int        `json:"current_round"`
	RoundStartedAt *time.Time `json:"round_started_at,omitempty"`
	EventStartedAt *time.Time `json:"event_started_at,omitempty"`
	Active         bool       `json:"active"`
	EventExpired   bool       `json:"event_expired"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// MemberIndex returns the roster index of handle, or -1.
func (t *Team) MemberIndex(handle string) int {
	for i := range t.Members {
		if t.Members[i].Handle == handle {
			return i
		}
	}
	return -1
}

// ProblemForSlot returns the problem id assigned to slot, or "" when the
// team has no assignment yet.
func (t *Team) ProblemForSlot(slot int) string {
	if slot < 0 || slot >= len(t.AssignedProblems) {
		return ""
	}
	return t.AssignedProblems[slot]
}

func (t *Team) HasProblem(problemID string) bool {
	for _, id := range t.AssignedProblems {
		if id == problemID {
			return true
		}
	}
	return false
}

func (t *Team) AllCompleted() bool {
	if len(t.Members) == 0 {
		return false
	}
	for _, m := range t.Members {
		if !m.Completed {
			return false
		}
	}
	return true
}

func (t *Team) CompletedCount() int {
	n := 0
	for _, m := range t.Members {
		if m.Completed {
			n++
		}
	}
	return n
}

// ResetToInactive restores the registration state: no assignment, no code,
// no rounds, every member back on their roster-position slot.
func (t *Team) ResetToInactive(now time.Time) {
	for i := range t.Members {
		t.Members[i].Slot = i
		t.Members[i].Completed = false
		t.Members[i].UpdatedAt = now
	}
	t.AssignedProblems = nil
	t.Code = map[string]map[string]string{}
	t.LastLanguage = map[string]string{}
	t.CurrentRound = 0
	t.RoundStartedAt = nil
	t.EventStartedAt = nil
	t.Active = false
	t.EventExpired = false
	t.CompletedAt = nil
	t.UpdatedAt = now
}

// Clone returns a deep copy.
func (t *Team) Clone() *Team {
	c := *t
	c.Members = append([]Member(nil), t.Members...)
	c.AssignedProblems = append([]string(nil), t.AssignedProblems...)
	c.Code = make(map[string]map[string]string, len(t.Code))
	for pid, byLang := range t.Code {
		c.Code[pid] = maps.Clone(byLang)
	}
	c.LastLanguage = maps.Clone(t.LastLanguage)
	if c.LastLanguage == nil {
		c.LastLanguage = map[string]string{}
	}
	c.RoundStartedAt = cloneTime(t.RoundStartedAt)
	c.EventStartedAt = cloneTime(t.EventStartedAt)
	c.CompletedAt = cloneTime(t.CompletedAt)
	return &c
}

func cloneTime(p *time.Time) *time.Time {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
