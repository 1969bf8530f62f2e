package model

import (
	"testing"
	"time"
)

func sampleTeam() *Team {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	return &Team{
		ID:   "t1",
		Name: "Alpha",
		Members: []Member{
			{Handle: "A", Slot: 1},
			{Handle: "B", Slot: 2, Completed: true},
			{Handle: "C", Slot: 0},
		},
		AssignedProblems: []string{"e", "m", "h"},
		Code:             map[string]map[string]string{"e": {"python": "print(1)"}},
		LastLanguage:     map[string]string{"e": "python"},
		CurrentRound:     4,
		RoundStartedAt:   &now,
		EventStartedAt:   &now,
		Active:           true,
	}
}

func TestCloneIsDeep(t *testing.T) {
	orig := sampleTeam()
	c := orig.Clone()

	c.Members[0].Slot = 2
	c.AssignedProblems[0] = "x"
	c.Code["e"]["python"] = "changed"
	c.LastLanguage["e"] = "go"
	*c.RoundStartedAt = c.RoundStartedAt.Add(time.Hour)

	if orig.Members[0].Slot != 1 || orig.AssignedProblems[0] != "e" {
		t.Fatal("slices shared with clone")
	}
	if orig.Code["e"]["python"] != "print(1)" || orig.LastLanguage["e"] != "python" {
		t.Fatal("maps shared with clone")
	}
	if !orig.RoundStartedAt.Equal(*orig.EventStartedAt) {
		t.Fatal("time pointer shared with clone")
	}
}

func TestResetToInactive(t *testing.T) {
	team := sampleTeam()
	team.ResetToInactive(time.Now())

	if team.Active || team.EventExpired || team.CurrentRound != 0 {
		t.Fatalf("team not inactive: %+v", team)
	}
	if team.AssignedProblems != nil || len(team.Code) != 0 || team.RoundStartedAt != nil || team.EventStartedAt != nil {
		t.Fatal("session state not cleared")
	}
	for i, m := range team.Members {
		if m.Slot != i || m.Completed {
			t.Fatalf("member %d not reset: %+v", i, m)
		}
	}
}

func TestTeamHelpers(t *testing.T) {
	team := sampleTeam()
	if team.MemberIndex("C") != 2 || team.MemberIndex("Z") != -1 {
		t.Fatal("MemberIndex")
	}
	if team.ProblemForSlot(2) != "h" || team.ProblemForSlot(3) != "" {
		t.Fatal("ProblemForSlot")
	}
	if !team.HasProblem("m") || team.HasProblem("zzz") {
		t.Fatal("HasProblem")
	}
	if team.AllCompleted() || team.CompletedCount() != 1 {
		t.Fatal("completion helpers")
	}
}
