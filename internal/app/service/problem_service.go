package service

import (
	"context"
	"fmt"
	"shuffle_arena/internal/common"
	"shuffle_arena/internal/domain/model"
	"shuffle_arena/internal/domain/repository"
	"strings"

	"github.com/google/uuid"
	"github.com/gosimple/slug" // For slug generation
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

type ProblemService struct {
	problemRepo repository.ProblemRepository
	teamRepo    repository.TeamRepository
	clock       clockwork.Clock
}

func NewProblemService(problemRepo repository.ProblemRepository, teamRepo repository.TeamRepository, clock clockwork.Clock) *ProblemService {
	return &ProblemService{problemRepo: problemRepo, teamRepo: teamRepo, clock: clock}
}

type TestCaseInput struct {
	Input          string `json:"input"`
	ExpectedOutput string `json:"expected_output"`
}

type ProblemRequest struct {
	Title       string                  `json:"title"`
	Description string                  `json:"description"`
	Difficulty  model.ProblemDifficulty `json:"difficulty"`
	TestCases   []TestCaseInput         `json:"test_cases"`
}

func (req ProblemRequest) validate() error {
	if strings.TrimSpace(req.Title) == "" || slug.Make(req.Title) == "" {
		return common.Errorf("problem title is required: %w", common.ErrValidation)
	}
	if !req.Difficulty.Valid() {
		return common.Errorf("difficulty must be Easy, Medium or Hard: %w", common.ErrValidation)
	}
	if len(req.TestCases) == 0 {
		return common.Errorf("at least one test case is required: %w", common.ErrValidation)
	}
	return nil
}

// testCases assigns fresh ids and keeps the request order.
func (req ProblemRequest) testCases() []model.TestCase {
	out := make([]model.TestCase, len(req.TestCases))
	for i, tc := range req.TestCases {
		out[i] = model.TestCase{
			ID:             uuid.NewString(),
			Input:          tc.Input,
			ExpectedOutput: tc.ExpectedOutput,
			SortOrder:      i,
		}
	}
	return out
}

func (s *ProblemService) CreateProblem(ctx context.Context, req ProblemRequest) (*model.Problem, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	now := s.clock.Now()
	problem := &model.Problem{
		ID:          uuid.NewString(),
		Title:       strings.TrimSpace(req.Title),
		Slug:        slug.Make(req.Title),
		Description: req.Description,
		Difficulty:  req.Difficulty,
		TestCases:   req.testCases(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.problemRepo.CreateProblem(ctx, problem); err != nil {
		return nil, common.Errorf("failed to create problem: %w", err)
	}
	log.Info().Str("problem_id", problem.ID).Str("difficulty", string(problem.Difficulty)).Msg("problem created")
	return problem, nil
}

// UpdateProblem replaces every editable field, test cases included. Teams
// keep referencing the problem by id, so in-flight sessions see the edit.
// The difficulty of an assigned problem is fixed: it decides the slot.
func (s *ProblemService) UpdateProblem(ctx context.Context, id string, req ProblemRequest) (*model.Problem, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	existing, err := s.problemRepo.FindProblemByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing.Difficulty != req.Difficulty {
		team, err := s.assignedTo(ctx, id)
		if err != nil {
			return nil, err
		}
		if team != nil {
			return nil, common.Errorf("problem %s is assigned to team %s, its difficulty cannot change: %w", id, team.Name, common.ErrConflict)
		}
	}
	existing.Title = strings.TrimSpace(req.Title)
	existing.Slug = slug.Make(req.Title)
	existing.Description = req.Description
	existing.Difficulty = req.Difficulty
	existing.TestCases = req.testCases()
	existing.UpdatedAt = s.clock.Now()

	if err := s.problemRepo.UpdateProblem(ctx, existing); err != nil {
		return nil, common.Errorf("failed to update problem: %w", err)
	}
	return existing, nil
}

// DeleteProblem refuses to remove a problem any team still holds; reset the
// team first.
func (s *ProblemService) DeleteProblem(ctx context.Context, id string) error {
	team, err := s.assignedTo(ctx, id)
	if err != nil {
		return err
	}
	if team != nil {
		return common.Errorf("problem %s is assigned to team %s: %w", id, team.Name, common.ErrConflict)
	}
	return s.problemRepo.DeleteProblem(ctx, id)
}

// assignedTo returns the first team holding problemID, or nil.
func (s *ProblemService) assignedTo(ctx context.Context, problemID string) (*model.Team, error) {
	teams, err := s.teamRepo.ListTeams(ctx)
	if err != nil {
		return nil, fmt.Errorf("list teams: %w", err)
	}
	for i := range teams {
		if teams[i].HasProblem(problemID) {
			return &teams[i], nil
		}
	}
	return nil, nil
}

func (s *ProblemService) GetProblem(ctx context.Context, id string) (*model.Problem, error) {
	return s.problemRepo.FindProblemByID(ctx, id)
}

func (s *ProblemService) ListProblems(ctx context.Context, difficulty model.ProblemDifficulty) ([]model.Problem, error) {
	if difficulty != "" && !difficulty.Valid() {
		return nil, common.Errorf("unknown difficulty %q: %w", difficulty, common.ErrBadRequest)
	}
	return s.problemRepo.ListProblems(ctx, difficulty)
}
