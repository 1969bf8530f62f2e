package service

import (
	"cmp"
	"context"
	"shuffle_arena/internal/common"
	"shuffle_arena/internal/domain/model"
	"shuffle_arena/internal/domain/repository"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// TeamService covers the administrative side of the roster.
type TeamService struct {
	teams    repository.TeamRepository
	clock    clockwork.Clock
	notifier DeadlineNotifier
}

func NewTeamService(teams repository.TeamRepository, clock clockwork.Clock) *TeamService {
	return &TeamService{teams: teams, clock: clock, notifier: noopNotifier{}}
}

func (s *TeamService) SetNotifier(n DeadlineNotifier) {
	if n == nil {
		n = noopNotifier{}
	}
	s.notifier = n
}

type RegisterTeamRequest struct {
	Name    string   `json:"name"`
	Members []string `json:"members"`
}

func (s *TeamService) RegisterTeam(ctx context.Context, req RegisterTeamRequest) (*model.Team, error) {
	name := strings.TrimSpace(req.Name)
	teamSlug := slug.Make(name)
	if name == "" || teamSlug == "" {
		return nil, common.Errorf("team name is required: %w", common.ErrValidation)
	}
	if len(req.Members) != model.TeamSize {
		return nil, common.Errorf("a team needs exactly %d members: %w", model.TeamSize, common.ErrValidation)
	}

	now := s.clock.Now()
	seen := make(map[string]bool, model.TeamSize)
	members := make([]model.Member, 0, model.TeamSize)
	for i, raw := range req.Members {
		handle := strings.TrimSpace(raw)
		if handle == "" {
			return nil, common.Errorf("member handle %d is empty: %w", i+1, common.ErrValidation)
		}
		key := strings.ToLower(handle)
		if seen[key] {
			return nil, common.Errorf("duplicate member handle %q: %w", handle, common.ErrValidation)
		}
		seen[key] = true
		members = append(members, model.Member{Handle: handle, Slot: i, UpdatedAt: now})
	}

	team := &model.Team{
		ID:           uuid.NewString(),
		Name:         name,
		Slug:         teamSlug,
		Members:      members,
		Code:         map[string]map[string]string{},
		LastLanguage: map[string]string{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.teams.CreateTeam(ctx, team); err != nil {
		return nil, err
	}
	log.Info().Str("team_id", team.ID).Str("team", team.Name).Msg("team registered")
	return team, nil
}

func (s *TeamService) GetTeam(ctx context.Context, id string) (*model.Team, error) {
	return s.teams.FindTeamByID(ctx, id)
}

func (s *TeamService) ListTeams(ctx context.Context) ([]model.Team, error) {
	return s.teams.ListTeams(ctx)
}

func (s *TeamService) DeleteTeam(ctx context.Context, id string) error {
	if err := s.teams.DeleteTeam(ctx, id); err != nil {
		return err
	}
	s.notifier.Forget(id)
	log.Info().Str("team_id", id).Msg("team deleted")
	return nil
}

// ResetTeam returns the team to the state it had right after registration.
func (s *TeamService) ResetTeam(ctx context.Context, id string) (*model.Team, error) {
	team, err := s.teams.UpdateTeam(ctx, id, func(t *model.Team) error {
		t.ResetToInactive(s.clock.Now())
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.notifier.Forget(id)
	log.Info().Str("team_id", id).Msg("team reset")
	return team, nil
}

// ResetAllTeams resets every team and returns how many were reset.
func (s *TeamService) ResetAllTeams(ctx context.Context) (int, error) {
	teams, err := s.teams.ListTeams(ctx)
	if err != nil {
		return 0, err
	}
	for _, t := range teams {
		if _, err := s.ResetTeam(ctx, t.ID); err != nil {
			return 0, common.Errorf("reset team %s: %w", t.ID, err)
		}
	}
	return len(teams), nil
}

// Standings ranks finished teams first by completion time, then the rest by
// completed members.
func (s *TeamService) Standings(ctx context.Context) ([]model.StandingEntry, error) {
	teams, err := s.teams.ListTeams(ctx)
	if err != nil {
		return nil, err
	}

	entries := make([]model.StandingEntry, 0, len(teams))
	for _, t := range teams {
		entries = append(entries, model.StandingEntry{
			TeamID:           t.ID,
			TeamName:         t.Name,
			MembersCompleted: t.CompletedCount(),
			CurrentRound:     t.CurrentRound,
			Active:           t.Active,
			EventExpired:     t.EventExpired,
			CompletedAt:      t.CompletedAt,
		})
	}

	slices.SortStableFunc(entries, func(a, b model.StandingEntry) int {
		switch {
		case a.CompletedAt != nil && b.CompletedAt != nil:
			return a.CompletedAt.Compare(*b.CompletedAt)
		case a.CompletedAt != nil:
			return -1
		case b.CompletedAt != nil:
			return 1
		}
		if c := cmp.Compare(b.MembersCompleted, a.MembersCompleted); c != 0 {
			return c
		}
		return cmp.Compare(a.TeamName, b.TeamName)
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries, nil
}
