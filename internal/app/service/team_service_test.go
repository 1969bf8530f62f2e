package service

import (
	"context"
	"errors"
	"shuffle_arena/internal/common"
	"shuffle_arena/internal/domain/model"
	"shuffle_arena/internal/domain/repository"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

func TestRegisterTeamValidation(t *testing.T) {
	svc := NewTeamService(repository.NewMemoryTeamRepository(), clockwork.NewFakeClock())
	ctx := context.Background()

	tests := []struct {
		name string
		req  RegisterTeamRequest
		want error
	}{
		{"missing name", RegisterTeamRequest{Name: "  ", Members: []string{"a", "b", "c"}}, common.ErrValidation},
		{"two members", RegisterTeamRequest{Name: "X", Members: []string{"a", "b"}}, common.ErrValidation},
		{"blank handle", RegisterTeamRequest{Name: "X", Members: []string{"a", " ", "c"}}, common.ErrValidation},
		{"duplicate handle", RegisterTeamRequest{Name: "X", Members: []string{"a", "B", "b"}}, common.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.RegisterTeam(ctx, tt.req); !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}

	team, err := svc.RegisterTeam(ctx, RegisterTeamRequest{Name: "Team Rocket", Members: []string{"jess", "james", "meowth"}})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if team.Slug != "team-rocket" || team.Active || team.Members[2].Slot != 2 {
		t.Fatalf("unexpected team: %+v", team)
	}
	if _, err := svc.RegisterTeam(ctx, RegisterTeamRequest{Name: "team rocket", Members: []string{"a", "b", "c"}}); !errors.Is(err, common.ErrConflict) {
		t.Fatalf("expected slug conflict, got %v", err)
	}
}

func TestResetTeamRestoresRegistrationState(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	team := h.startedTeam(t)
	_, _ = h.rounds.SaveCode(ctx, team.ID, "A", "easy", "python", "x")
	_, _ = h.rounds.Rotate(ctx, team.ID)
	h.teamSvc.SetNotifier(h.notifier)

	reset, err := h.teamSvc.ResetTeam(ctx, team.ID)
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	if reset.Active || reset.CurrentRound != 0 || len(reset.Code) != 0 || reset.AssignedProblems != nil {
		t.Fatalf("team not reset: %+v", reset)
	}
	for i, m := range reset.Members {
		if m.Slot != i {
			t.Fatalf("member %s slot %d after reset", m.Handle, m.Slot)
		}
	}
	if len(h.notifier.forgot) != 1 || h.notifier.forgot[0] != team.ID {
		t.Fatalf("reset should drop timers: %v", h.notifier.forgot)
	}

	// a reset team can start again
	if _, err := h.rounds.StartSession(ctx, team.ID, "B"); err != nil {
		t.Fatalf("restart: %v", err)
	}
}

func TestStandingsOrder(t *testing.T) {
	ctx := context.Background()
	clock := clockwork.NewFakeClockAt(testStart)
	repo := repository.NewMemoryTeamRepository()
	svc := NewTeamService(repo, clock)

	early, late := testStart.Add(time.Minute), testStart.Add(2*time.Minute)
	seed := []struct {
		name      string
		completed int
		doneAt    *time.Time
	}{
		{"Slow", 1, nil},
		{"Late", 3, &late},
		{"Busy", 2, nil},
		{"Early", 3, &early},
	}
	for _, s := range seed {
		team, err := svc.RegisterTeam(ctx, RegisterTeamRequest{Name: s.name, Members: []string{"a", "b", "c"}})
		if err != nil {
			t.Fatal(err)
		}
		_, _ = repo.UpdateTeam(ctx, team.ID, func(tm *model.Team) error {
			for i := 0; i < s.completed; i++ {
				tm.Members[i].Completed = true
			}
			tm.CompletedAt = s.doneAt
			return nil
		})
	}

	standings, err := svc.Standings(ctx)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"Early", "Late", "Busy", "Slow"}
	for i, e := range standings {
		if e.TeamName != want[i] || e.Rank != i+1 {
			t.Fatalf("position %d = %s (rank %d), want %s", i, e.TeamName, e.Rank, want[i])
		}
	}
}

func TestProblemServiceValidation(t *testing.T) {
	ctx := context.Background()
	svc := NewProblemService(repository.NewMemoryProblemRepository(), repository.NewMemoryTeamRepository(), clockwork.NewFakeClock())
	cases := []TestCaseInput{{Input: "1", ExpectedOutput: "2"}, {Input: "2", ExpectedOutput: "4"}}

	if _, err := svc.CreateProblem(ctx, ProblemRequest{Title: "", Difficulty: model.DifficultyEasy, TestCases: cases}); !errors.Is(err, common.ErrValidation) {
		t.Fatalf("expected validation error for title, got %v", err)
	}
	if _, err := svc.CreateProblem(ctx, ProblemRequest{Title: "X", Difficulty: "Brutal", TestCases: cases}); !errors.Is(err, common.ErrValidation) {
		t.Fatalf("expected validation error for difficulty, got %v", err)
	}
	if _, err := svc.CreateProblem(ctx, ProblemRequest{Title: "X", Difficulty: model.DifficultyHard}); !errors.Is(err, common.ErrValidation) {
		t.Fatalf("expected validation error for test cases, got %v", err)
	}

	p, err := svc.CreateProblem(ctx, ProblemRequest{Title: "Double It", Difficulty: model.DifficultyEasy, TestCases: cases})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if p.Slug != "double-it" || len(p.TestCases) != 2 || p.TestCases[1].SortOrder != 1 {
		t.Fatalf("unexpected problem: %+v", p)
	}

	updated, err := svc.UpdateProblem(ctx, p.ID, ProblemRequest{Title: "Triple It", Difficulty: model.DifficultyMedium, TestCases: cases[:1]})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	got, _ := svc.GetProblem(ctx, p.ID)
	if got.Title != "Triple It" || got.Difficulty != model.DifficultyMedium || len(got.TestCases) != 1 || updated.Slug != "triple-it" {
		t.Fatalf("update not stored: %+v", got)
	}

	if _, err := svc.ListProblems(ctx, "Brutal"); !errors.Is(err, common.ErrBadRequest) {
		t.Fatalf("expected bad request for unknown filter, got %v", err)
	}
	list, _ := svc.ListProblems(ctx, model.DifficultyMedium)
	if len(list) != 1 {
		t.Fatalf("expected one medium problem, got %d", len(list))
	}
}

func TestCatalogEditsKeepRunningTeamIntact(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	team := h.startedTeam(t)
	svc := NewProblemService(h.problems, h.teams, h.clock)
	cases := []TestCaseInput{{Input: "1", ExpectedOutput: "2"}}

	if err := svc.DeleteProblem(ctx, "easy"); !errors.Is(err, common.ErrConflict) {
		t.Fatalf("deleting an assigned problem: expected conflict, got %v", err)
	}
	view, err := h.rounds.CheckShuffle(ctx, team.ID, "A", 1)
	if err != nil || view.Problem == nil || view.Problem.ID != "easy" {
		t.Fatalf("team lost its problem: %+v %v", view, err)
	}

	_, err = svc.UpdateProblem(ctx, "medium", ProblemRequest{Title: "Medium one", Difficulty: model.DifficultyEasy, TestCases: cases})
	if !errors.Is(err, common.ErrConflict) {
		t.Fatalf("moving an assigned problem to another tier: expected conflict, got %v", err)
	}
	// same tier edits are fine
	if _, err := svc.UpdateProblem(ctx, "medium", ProblemRequest{Title: "Medium renamed", Difficulty: model.DifficultyMedium, TestCases: cases}); err != nil {
		t.Fatalf("same-tier edit: %v", err)
	}

	current := h.load(t, team.ID)
	for slot, id := range current.AssignedProblems {
		p, err := h.problems.FindProblemByID(ctx, id)
		if err != nil {
			t.Fatalf("slot %d: %v", slot, err)
		}
		if p.Difficulty != model.Tiers[slot] {
			t.Fatalf("slot %d holds a %s problem", slot, p.Difficulty)
		}
	}

	// unassigned problems stay freely editable
	spare, err := svc.CreateProblem(ctx, ProblemRequest{Title: "Spare", Difficulty: model.DifficultyEasy, TestCases: cases})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.UpdateProblem(ctx, spare.ID, ProblemRequest{Title: "Spare", Difficulty: model.DifficultyHard, TestCases: cases}); err != nil {
		t.Fatalf("retiering an unassigned problem: %v", err)
	}
	if err := svc.DeleteProblem(ctx, spare.ID); err != nil {
		t.Fatalf("deleting an unassigned problem: %v", err)
	}

	if _, err := h.teamSvc.ResetTeam(ctx, team.ID); err != nil {
		t.Fatal(err)
	}
	if err := svc.DeleteProblem(ctx, "easy"); err != nil {
		t.Fatalf("delete after reset: %v", err)
	}
}
