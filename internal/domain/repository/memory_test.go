package repository

import (
	"context"
	"errors"
	"shuffle_arena/internal/common"
	"shuffle_arena/internal/domain/model"
	"strings"
	"sync"
	"testing"
	"time"
)

func newTeam(id, slug string) *model.Team {
	return &model.Team{
		ID:   id,
		Name: strings.ToUpper(slug),
		Slug: slug,
		Members: []model.Member{
			{Handle: "a", Slot: 0}, {Handle: "b", Slot: 1}, {Handle: "c", Slot: 2},
		},
		Code:         map[string]map[string]string{},
		LastLanguage: map[string]string{},
	}
}

func TestMemoryTeamRepositorySlugConflict(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryTeamRepository()
	if err := repo.CreateTeam(ctx, newTeam("1", "alpha")); err != nil {
		t.Fatalf("create: %v", err)
	}
	err := repo.CreateTeam(ctx, newTeam("2", "alpha"))
	if !errors.Is(err, common.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestMemoryTeamRepositoryUpdateIsolation(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryTeamRepository()
	_ = repo.CreateTeam(ctx, newTeam("1", "alpha"))

	got, _ := repo.FindTeamByID(ctx, "1")
	got.Members[0].Slot = 2 // must not leak into storage

	boom := errors.New("boom")
	_, err := repo.UpdateTeam(ctx, "1", func(team *model.Team) error {
		team.CurrentRound = 99
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected mutation error, got %v", err)
	}

	stored, _ := repo.FindTeamByID(ctx, "1")
	if stored.Members[0].Slot != 0 || stored.CurrentRound != 0 {
		t.Fatalf("stored team modified: %+v", stored)
	}

	if _, err := repo.UpdateTeam(ctx, "missing", func(*model.Team) error { return nil }); !errors.Is(err, common.ErrTeamNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestMemoryTeamRepositoryConcurrentUpdates(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryTeamRepository()
	_ = repo.CreateTeam(ctx, newTeam("1", "alpha"))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = repo.UpdateTeam(ctx, "1", func(team *model.Team) error {
				team.CurrentRound++
				return nil
			})
		}()
	}
	wg.Wait()

	team, _ := repo.FindTeamByID(ctx, "1")
	if team.CurrentRound != 50 {
		t.Fatalf("lost updates: round=%d", team.CurrentRound)
	}
}

func TestMemoryTeamRepositoryListActive(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryTeamRepository()
	_ = repo.CreateTeam(ctx, newTeam("1", "alpha"))
	active := newTeam("2", "beta")
	active.Active = true
	_ = repo.CreateTeam(ctx, active)

	all, _ := repo.ListTeams(ctx)
	only, _ := repo.ListActiveTeams(ctx)
	if len(all) != 2 || len(only) != 1 || only[0].ID != "2" {
		t.Fatalf("unexpected lists: all=%d active=%v", len(all), only)
	}

	if err := repo.DeleteTeam(ctx, "1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := repo.FindTeamBySlug(ctx, "alpha"); !errors.Is(err, common.ErrTeamNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
}

func TestMemoryProblemRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryProblemRepository()
	p := &model.Problem{
		ID: "p1", Title: "Two Sum", Slug: "two-sum", Difficulty: model.DifficultyEasy,
		TestCases: []model.TestCase{
			{ID: "b", Input: "2", ExpectedOutput: "4", SortOrder: 1},
			{ID: "a", Input: "1", ExpectedOutput: "2", SortOrder: 0},
		},
	}
	if err := repo.CreateProblem(ctx, p); err != nil {
		t.Fatalf("create: %v", err)
	}
	dup := &model.Problem{ID: "p2", Slug: "two-sum", Difficulty: model.DifficultyHard}
	if err := repo.CreateProblem(ctx, dup); !errors.Is(err, common.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}

	got, err := repo.FindProblemByID(ctx, "p1")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.TestCases[0].ID != "a" {
		t.Fatalf("test cases not ordered: %+v", got.TestCases)
	}

	ids, _ := repo.ListProblemIDsByDifficulty(ctx, model.DifficultyEasy)
	if len(ids) != 1 || ids[0] != "p1" {
		t.Fatalf("ids by difficulty: %v", ids)
	}
	hard, _ := repo.ListProblems(ctx, model.DifficultyHard)
	if len(hard) != 0 {
		t.Fatalf("expected no hard problems, got %d", len(hard))
	}

	if err := repo.DeleteProblem(ctx, "p1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := repo.FindProblemByID(ctx, "p1"); !errors.Is(err, common.ErrProblemNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestMemorySubmissionRepositoryPaging(t *testing.T) {
	ctx := context.Background()
	repo := NewMemorySubmissionRepository()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		team := "t1"
		if i%2 == 1 {
			team = "t2"
		}
		_ = repo.CreateSubmission(ctx, &model.Submission{
			ID: string(rune('a' + i)), TeamID: team, SubmittedAt: base.Add(time.Duration(i) * time.Minute),
		})
	}

	subs, total, _ := repo.ListSubmissions(ctx, "", 2, 0)
	if total != 5 || len(subs) != 2 || subs[0].ID != "e" {
		t.Fatalf("unexpected first page: total=%d subs=%+v", total, subs)
	}
	subs, total, _ = repo.ListSubmissions(ctx, "t2", 10, 0)
	if total != 2 || subs[0].ID != "d" || subs[1].ID != "b" {
		t.Fatalf("unexpected team filter: total=%d subs=%+v", total, subs)
	}
	subs, _, _ = repo.ListSubmissions(ctx, "", 10, 10)
	if len(subs) != 0 {
		t.Fatalf("expected empty page past end, got %d", len(subs))
	}

	n, _ := repo.DeleteAllSubmissions(ctx)
	if n != 5 {
		t.Fatalf("deleted %d, want 5", n)
	}
}

func TestMemorySettingsRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewMemorySettingsRepository()
	if _, err := repo.GetSettings(ctx); !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	_ = repo.SaveSettings(ctx, model.EventSettings{RotationIntervalSeconds: 60, EventDurationSeconds: 600})
	s, err := repo.GetSettings(ctx)
	if err != nil || s.RotationIntervalSeconds != 60 || s.EventDurationSeconds != 600 {
		t.Fatalf("unexpected settings: %+v err=%v", s, err)
	}
}
