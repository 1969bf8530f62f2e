package repository

import (
	"cmp"
	"context"
	"fmt"
	"shuffle_arena/internal/common"
	"shuffle_arena/internal/domain/model"
	"slices"
	"sync"
)

// Memory repositories back STORAGE_DRIVER=memory and the service tests.
// Every read returns a copy so callers never alias stored state.

type memoryProblemRepository struct {
	mu       sync.RWMutex
	problems map[string]model.Problem
}

func NewMemoryProblemRepository() ProblemRepository {
	return &memoryProblemRepository{problems: map[string]model.Problem{}}
}

func cloneProblem(p model.Problem) model.Problem {
	p.TestCases = append([]model.TestCase(nil), p.TestCases...)
	return p
}

func (r *memoryProblemRepository) slugTaken(slug, exceptID string) bool {
	for id, p := range r.problems {
		if p.Slug == slug && id != exceptID {
			return true
		}
	}
	return false
}

func (r *memoryProblemRepository) CreateProblem(_ context.Context, p *model.Problem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.problems[p.ID]; ok || r.slugTaken(p.Slug, "") {
		return fmt.Errorf("problem with this slug already exists: %w", common.ErrConflict)
	}
	r.problems[p.ID] = cloneProblem(*p)
	return nil
}

func (r *memoryProblemRepository) UpdateProblem(_ context.Context, p *model.Problem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.problems[p.ID]
	if !ok {
		return common.ErrProblemNotFound
	}
	if r.slugTaken(p.Slug, p.ID) {
		return fmt.Errorf("problem with this slug already exists: %w", common.ErrConflict)
	}
	updated := cloneProblem(*p)
	updated.CreatedAt = existing.CreatedAt
	r.problems[p.ID] = updated
	return nil
}

func (r *memoryProblemRepository) DeleteProblem(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.problems[id]; !ok {
		return common.ErrProblemNotFound
	}
	delete(r.problems, id)
	return nil
}

func (r *memoryProblemRepository) FindProblemByID(_ context.Context, id string) (*model.Problem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.problems[id]
	if !ok {
		return nil, common.ErrProblemNotFound
	}
	c := cloneProblem(p)
	slices.SortStableFunc(c.TestCases, func(a, b model.TestCase) int { return cmp.Compare(a.SortOrder, b.SortOrder) })
	return &c, nil
}

func (r *memoryProblemRepository) ListProblems(_ context.Context, difficulty model.ProblemDifficulty) ([]model.Problem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []model.Problem{}
	for _, p := range r.problems {
		if difficulty != "" && p.Difficulty != difficulty {
			continue
		}
		p.TestCases = nil
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b model.Problem) int {
		if c := cmp.Compare(a.Difficulty, b.Difficulty); c != 0 {
			return c
		}
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return out, nil
}

func (r *memoryProblemRepository) ListProblemIDsByDifficulty(_ context.Context, difficulty model.ProblemDifficulty) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var ids []string
	for id, p := range r.problems {
		if p.Difficulty == difficulty {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids, nil
}

type memoryTeamRepository struct {
	mu    sync.Mutex
	teams map[string]*model.Team
	order []string
}

func NewMemoryTeamRepository() TeamRepository {
	return &memoryTeamRepository{teams: map[string]*model.Team{}}
}

func (r *memoryTeamRepository) CreateTeam(_ context.Context, t *model.Team) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.teams[t.ID]; ok {
		return fmt.Errorf("team id already exists: %w", common.ErrConflict)
	}
	for _, existing := range r.teams {
		if existing.Slug == t.Slug {
			return fmt.Errorf("team with this name already exists: %w", common.ErrConflict)
		}
	}
	r.teams[t.ID] = t.Clone()
	r.order = append(r.order, t.ID)
	return nil
}

func (r *memoryTeamRepository) FindTeamByID(_ context.Context, id string) (*model.Team, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.teams[id]
	if !ok {
		return nil, common.ErrTeamNotFound
	}
	return t.Clone(), nil
}

func (r *memoryTeamRepository) FindTeamBySlug(_ context.Context, slug string) (*model.Team, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.teams {
		if t.Slug == slug {
			return t.Clone(), nil
		}
	}
	return nil, common.ErrTeamNotFound
}

func (r *memoryTeamRepository) ListTeams(_ context.Context) ([]model.Team, error) {
	return r.list(false), nil
}

func (r *memoryTeamRepository) ListActiveTeams(_ context.Context) ([]model.Team, error) {
	return r.list(true), nil
}

func (r *memoryTeamRepository) list(activeOnly bool) []model.Team {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []model.Team{}
	for _, id := range r.order {
		t := r.teams[id]
		if activeOnly && !t.Active {
			continue
		}
		out = append(out, *t.Clone())
	}
	return out
}

// UpdateTeam holds the repository lock for the whole mutation; fn must not
// call back into the repository.
func (r *memoryTeamRepository) UpdateTeam(_ context.Context, id string, fn TeamMutation) (*model.Team, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.teams[id]
	if !ok {
		return nil, common.ErrTeamNotFound
	}
	working := stored.Clone()
	if err := fn(working); err != nil {
		return nil, err
	}
	r.teams[id] = working
	return working.Clone(), nil
}

func (r *memoryTeamRepository) DeleteTeam(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.teams[id]; !ok {
		return common.ErrTeamNotFound
	}
	delete(r.teams, id)
	r.order = slices.DeleteFunc(r.order, func(s string) bool { return s == id })
	return nil
}

type memorySubmissionRepository struct {
	mu   sync.RWMutex
	subs []model.Submission
}

func NewMemorySubmissionRepository() SubmissionRepository {
	return &memorySubmissionRepository{}
}

func (r *memorySubmissionRepository) CreateSubmission(_ context.Context, s *model.Submission) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subs = append(r.subs, *s)
	return nil
}

func (r *memorySubmissionRepository) GetSubmissionByID(_ context.Context, id string) (*model.Submission, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.subs {
		if s.ID == id {
			return &s, nil
		}
	}
	return nil, common.ErrSubmissionNotFound
}

func (r *memorySubmissionRepository) ListSubmissions(_ context.Context, teamID string, limit, offset int) ([]model.Submission, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	matched := []model.Submission{}
	for i := len(r.subs) - 1; i >= 0; i-- {
		if teamID == "" || r.subs[i].TeamID == teamID {
			matched = append(matched, r.subs[i])
		}
	}
	slices.SortStableFunc(matched, func(a, b model.Submission) int { return b.SubmittedAt.Compare(a.SubmittedAt) })

	total := len(matched)
	if offset >= total {
		return []model.Submission{}, total, nil
	}
	end := total
	if limit > 0 && offset+limit < total {
		end = offset + limit
	}
	return matched[offset:end], total, nil
}

func (r *memorySubmissionRepository) DeleteAllSubmissions(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := int64(len(r.subs))
	r.subs = nil
	return n, nil
}

type memorySettingsRepository struct {
	mu       sync.RWMutex
	settings *model.EventSettings
}

func NewMemorySettingsRepository() SettingsRepository {
	return &memorySettingsRepository{}
}

func (r *memorySettingsRepository) GetSettings(_ context.Context) (*model.EventSettings, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.settings == nil {
		return nil, common.ErrNotFound
	}
	s := *r.settings
	return &s, nil
}

func (r *memorySettingsRepository) SaveSettings(_ context.Context, s model.EventSettings) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.settings = &s
	return nil
}
