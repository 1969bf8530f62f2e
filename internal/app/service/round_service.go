package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"shuffle_arena/internal/common"
	"shuffle_arena/internal/domain/model"
	"shuffle_arena/internal/domain/repository"
	"shuffle_arena/internal/platform/judge"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// JudgeGateway executes one source file against one stdin.
type JudgeGateway interface {
	Execute(ctx context.Context, req judge.Request) (*judge.Response, error)
}

// TokenIssuer mints the member token handed out on login.
type TokenIssuer interface {
	Generate(teamID, handle string, now time.Time) (string, error)
}

// DeadlineNotifier is told whenever a team's timers may have moved.
type DeadlineNotifier interface {
	Track(team model.Team)
	Forget(teamID string)
	Resync()
}

type noopNotifier struct{}

func (noopNotifier) Track(model.Team) {}
func (noopNotifier) Forget(string)    {}
func (noopNotifier) Resync()          {}

// errNoChange aborts a team update that turned out to have nothing to write.
var errNoChange = errors.New("no change")

// RoundService owns the round lifecycle of every team.
type RoundService struct {
	teams       repository.TeamRepository
	problems    repository.ProblemRepository
	submissions repository.SubmissionRepository
	settings    *SettingsCache
	gateway     JudgeGateway
	tokens      TokenIssuer
	clock       clockwork.Clock

	judgeTimeout   time.Duration
	maxConcurrency int
	notifier       DeadlineNotifier
	intN           func(n int) int
}

type RoundServiceDeps struct {
	Teams       repository.TeamRepository
	Problems    repository.ProblemRepository
	Submissions repository.SubmissionRepository
	Settings    *SettingsCache
	Gateway     JudgeGateway
	Tokens      TokenIssuer
	Clock       clockwork.Clock

	JudgeTimeout        time.Duration
	JudgeMaxConcurrency int
}

func NewRoundService(deps RoundServiceDeps) *RoundService {
	s := &RoundService{
		teams:          deps.Teams,
		problems:       deps.Problems,
		submissions:    deps.Submissions,
		settings:       deps.Settings,
		gateway:        deps.Gateway,
		tokens:         deps.Tokens,
		clock:          deps.Clock,
		judgeTimeout:   deps.JudgeTimeout,
		maxConcurrency: deps.JudgeMaxConcurrency,
		notifier:       noopNotifier{},
		intN:           rand.Intn,
	}
	if s.clock == nil {
		s.clock = clockwork.NewRealClock()
	}
	if s.judgeTimeout <= 0 {
		s.judgeTimeout = 30 * time.Second
	}
	if s.maxConcurrency <= 0 {
		s.maxConcurrency = 8
	}
	return s
}

// SetNotifier registers the component that keeps server-side timers.
func (s *RoundService) SetNotifier(n DeadlineNotifier) {
	if n == nil {
		n = noopNotifier{}
	}
	s.notifier = n
}

// SessionView is what a member sees of their team at a point in time.
type SessionView struct {
	TeamID   string `json:"team_id"`
	TeamName string `json:"team_name"`
	Member   string `json:"member"`

	Problem      *model.Problem    `json:"problem,omitempty"`
	Slot         int               `json:"slot"`
	Code         map[string]string `json:"code"`
	LastLanguage string            `json:"last_language,omitempty"`
	Completed    bool              `json:"completed"`

	CurrentRound             int  `json:"current_round"`
	RemainingRotationSeconds int  `json:"remaining_rotation_seconds"`
	RemainingEventSeconds    int  `json:"remaining_event_seconds"`
	Active                   bool `json:"active"`
	EventExpired             bool `json:"event_expired"`
	TeamCompleted            bool `json:"team_completed"`

	Members []model.Member `json:"members"`
}

type SaveCodeResult struct {
	Saved            bool `json:"saved"`
	AlreadyCompleted bool `json:"already_completed"`
}

type RotateResult struct {
	CurrentRound int  `json:"current_round"`
	Permuted     bool `json:"permuted"`
}

type RunResult struct {
	ProblemID        string                 `json:"problem_id"`
	Results          []model.TestCaseResult `json:"results"`
	PassedCount      int                    `json:"passed_count"`
	TotalCount       int                    `json:"total_count"`
	AllPassed        bool                   `json:"all_passed"`
	SubmissionID     string                 `json:"submission_id,omitempty"`
	MemberCompleted  bool                   `json:"member_completed"`
	AllTeamCompleted bool                   `json:"all_team_completed"`
}

type ShuffleResult struct {
	ShuffleHappened bool `json:"shuffle_happened"`
	SessionView
}

type LoginResult struct {
	Valid    bool   `json:"valid"`
	Active   bool   `json:"active"`
	TeamID   string `json:"team_id,omitempty"`
	TeamName string `json:"team_name,omitempty"`
	Member   string `json:"member,omitempty"`
	Token    string `json:"token,omitempty"`
}

// Login resolves a team by name and reports whether handle belongs to it.
// Unknown teams and members yield Valid=false rather than an error.
func (s *RoundService) Login(ctx context.Context, teamName, handle string) (*LoginResult, error) {
	teamSlug := slug.Make(teamName)
	handle = strings.TrimSpace(handle)
	if teamSlug == "" || handle == "" {
		return nil, common.Errorf("team name and member handle are required: %w", common.ErrValidation)
	}

	team, err := s.teams.FindTeamBySlug(ctx, teamSlug)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return &LoginResult{Valid: false}, nil
		}
		return nil, fmt.Errorf("login: %w", err)
	}
	if team.MemberIndex(handle) < 0 {
		return &LoginResult{Valid: false, TeamID: team.ID, TeamName: team.Name}, nil
	}

	res := &LoginResult{Valid: true, Active: team.Active, TeamID: team.ID, TeamName: team.Name, Member: handle}
	if s.tokens != nil {
		token, err := s.tokens.Generate(team.ID, handle, s.clock.Now())
		if err != nil {
			return nil, fmt.Errorf("failed to generate member token: %w", err)
		}
		res.Token = token
	}
	return res, nil
}

// StartSession activates the team on the first call and returns the
// caller's view. Later calls only read.
func (s *RoundService) StartSession(ctx context.Context, teamID, handle string) (*SessionView, error) {
	team, err := s.teams.FindTeamByID(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if team.MemberIndex(handle) < 0 {
		return nil, common.ErrMemberNotFound
	}

	if !team.Active {
		assigned, err := s.pickProblems(ctx)
		if err != nil {
			return nil, err
		}

		activated := false
		team, err = s.teams.UpdateTeam(ctx, teamID, func(t *model.Team) error {
			if t.Active {
				return nil
			}
			if len(t.Members) != model.TeamSize {
				return common.Errorf("team %s has %d members: %w", t.ID, len(t.Members), common.ErrValidation)
			}
			now := s.clock.Now()
			for i := range t.Members {
				t.Members[i].Slot = i
				t.Members[i].Completed = false
				t.Members[i].UpdatedAt = now
			}
			t.AssignedProblems = assigned
			t.Code = map[string]map[string]string{}
			t.LastLanguage = map[string]string{}
			t.CurrentRound = 1
			t.RoundStartedAt = &now
			t.EventStartedAt = &now
			t.Active = true
			t.EventExpired = false
			t.CompletedAt = nil
			t.UpdatedAt = now
			activated = true
			return nil
		})
		if err != nil {
			return nil, err
		}
		if activated {
			log.Info().Str("team_id", team.ID).Strs("problems", team.AssignedProblems).Str("member", handle).
				Msg("team session started")
			s.notifier.Track(*team)
		}
	}

	return s.buildView(ctx, team, handle)
}

// pickProblems draws one problem per tier uniformly at random, in slot order.
func (s *RoundService) pickProblems(ctx context.Context) ([]string, error) {
	assigned := make([]string, 0, model.TeamSize)
	for _, tier := range model.Tiers {
		ids, err := s.problems.ListProblemIDsByDifficulty(ctx, tier)
		if err != nil {
			return nil, fmt.Errorf("list %s problems: %w", tier, err)
		}
		if len(ids) == 0 {
			return nil, common.Errorf("no %s problem available: %w", tier, common.ErrInsufficientCatalog)
		}
		assigned = append(assigned, ids[s.intN(len(ids))])
	}
	return assigned, nil
}

func (s *RoundService) buildView(ctx context.Context, team *model.Team, handle string) (*SessionView, error) {
	idx := team.MemberIndex(handle)
	if idx < 0 {
		return nil, common.ErrMemberNotFound
	}
	settings, err := s.settings.Get(ctx)
	if err != nil {
		return nil, err
	}
	member := team.Members[idx]
	now := s.clock.Now()

	view := &SessionView{
		TeamID:                   team.ID,
		TeamName:                 team.Name,
		Member:                   member.Handle,
		Slot:                     member.Slot,
		Code:                     map[string]string{},
		Completed:                member.Completed,
		CurrentRound:             team.CurrentRound,
		RemainingRotationSeconds: remainingSeconds(team.RoundStartedAt, settings.RotationInterval(), now),
		RemainingEventSeconds:    remainingSeconds(team.EventStartedAt, settings.EventDuration(), now),
		Active:                   team.Active,
		EventExpired:             team.EventExpired,
		TeamCompleted:            team.CompletedAt != nil,
		Members:                  team.Members,
	}

	problemID := team.ProblemForSlot(member.Slot)
	if problemID == "" {
		return view, nil
	}
	problem, err := s.problems.FindProblemByID(ctx, problemID)
	if err != nil {
		return nil, fmt.Errorf("load problem %s for team %s: %w", problemID, team.ID, err)
	}
	// expected outputs stay server side
	problem.TestCases = nil
	view.Problem = problem
	for lang, src := range team.Code[problemID] {
		view.Code[lang] = src
	}
	view.LastLanguage = team.LastLanguage[problemID]
	return view, nil
}

// SaveCode stores code for (problemID, language). A completed member's write
// is dropped and reported as AlreadyCompleted.
func (s *RoundService) SaveCode(ctx context.Context, teamID, handle, problemID, language, code string) (*SaveCodeResult, error) {
	alreadyCompleted := false
	_, err := s.teams.UpdateTeam(ctx, teamID, func(t *model.Team) error {
		idx := t.MemberIndex(handle)
		if idx < 0 {
			return common.ErrMemberNotFound
		}
		if problemID == "" {
			return common.ErrMissingProblemReference
		}
		if t.Members[idx].Completed {
			alreadyCompleted = true
			return errNoChange
		}
		if language == "" {
			return common.Errorf("language is required: %w", common.ErrValidation)
		}
		lang, ok := judge.LookupLanguage(language)
		if !ok {
			return common.Errorf("unsupported language %q: %w", language, common.ErrValidation)
		}
		if !t.HasProblem(problemID) {
			return common.Errorf("problem %s is not assigned to this team: %w", problemID, common.ErrValidation)
		}

		if t.Code == nil {
			t.Code = map[string]map[string]string{}
		}
		if t.Code[problemID] == nil {
			t.Code[problemID] = map[string]string{}
		}
		t.Code[problemID][lang.Slug] = code
		if t.LastLanguage == nil {
			t.LastLanguage = map[string]string{}
		}
		t.LastLanguage[problemID] = lang.Slug

		now := s.clock.Now()
		t.Members[idx].UpdatedAt = now
		t.UpdatedAt = now
		return nil
	})
	if errors.Is(err, errNoChange) {
		return &SaveCodeResult{Saved: false, AlreadyCompleted: alreadyCompleted}, nil
	}
	if err != nil {
		return nil, err
	}
	return &SaveCodeResult{Saved: true}, nil
}

// Rotate advances the team one round, permuting slots among incomplete
// members. Every call advances, so duplicate triggers advance twice.
func (s *RoundService) Rotate(ctx context.Context, teamID string) (*RotateResult, error) {
	res := &RotateResult{}
	team, err := s.teams.UpdateTeam(ctx, teamID, func(t *model.Team) error {
		if !t.Active {
			return common.ErrTeamInactive
		}
		res.Permuted = s.advanceRound(t)
		res.CurrentRound = t.CurrentRound
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Info().Str("team_id", teamID).Int("round", res.CurrentRound).Bool("permuted", res.Permuted).
		Msg("team rotated")
	s.notifier.Track(*team)
	return res, nil
}

// RotateIfDue rotates only if the team is still on expectedRound and that
// round's interval has elapsed. It reports whether a rotation happened.
func (s *RoundService) RotateIfDue(ctx context.Context, teamID string, expectedRound int) (bool, error) {
	settings, err := s.settings.Get(ctx)
	if err != nil {
		return false, err
	}
	var round int
	var permuted bool
	team, err := s.teams.UpdateTeam(ctx, teamID, func(t *model.Team) error {
		if !t.Active || t.EventExpired || t.CompletedAt != nil || t.CurrentRound != expectedRound {
			return errNoChange
		}
		if s.clock.Now().Before(deadline(t.RoundStartedAt, settings.RotationInterval())) {
			return errNoChange
		}
		permuted = s.advanceRound(t)
		round = t.CurrentRound
		return nil
	})
	if errors.Is(err, errNoChange) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	log.Info().Str("team_id", teamID).Int("round", round).Bool("permuted", permuted).
		Msg("team rotated by timer")
	s.notifier.Track(*team)
	return true, nil
}

func (s *RoundService) advanceRound(t *model.Team) bool {
	now := s.clock.Now()
	permuted := rotateSlots(t.Members)
	if permuted {
		for i := range t.Members {
			if !t.Members[i].Completed {
				t.Members[i].UpdatedAt = now
			}
		}
	}
	t.CurrentRound++
	t.RoundStartedAt = &now
	t.UpdatedAt = now
	return permuted
}

// CheckShuffle reports whether the team has rotated past clientRound and
// returns the caller's current view. It never writes.
func (s *RoundService) CheckShuffle(ctx context.Context, teamID, handle string, clientRound int) (*ShuffleResult, error) {
	team, err := s.teams.FindTeamByID(ctx, teamID)
	if err != nil {
		return nil, err
	}
	view, err := s.buildView(ctx, team, handle)
	if err != nil {
		return nil, err
	}
	return &ShuffleResult{ShuffleHappened: team.CurrentRound > clientRound, SessionView: *view}, nil
}

// ExpireEvent marks the team's event as over. Repeated calls are harmless.
func (s *RoundService) ExpireEvent(ctx context.Context, teamID, handle string) (*SessionView, error) {
	team, err := s.teams.UpdateTeam(ctx, teamID, func(t *model.Team) error {
		if t.MemberIndex(handle) < 0 {
			return common.ErrMemberNotFound
		}
		if t.EventExpired {
			return errNoChange
		}
		t.EventExpired = true
		t.UpdatedAt = s.clock.Now()
		return nil
	})
	if errors.Is(err, errNoChange) {
		team, err = s.teams.FindTeamByID(ctx, teamID)
	} else if err == nil {
		log.Info().Str("team_id", teamID).Str("member", handle).Msg("team event expired")
		s.notifier.Track(*team)
	}
	if err != nil {
		return nil, err
	}
	return s.buildView(ctx, team, handle)
}

// ExpireIfDue marks the event expired once its duration has elapsed.
func (s *RoundService) ExpireIfDue(ctx context.Context, teamID string) (bool, error) {
	settings, err := s.settings.Get(ctx)
	if err != nil {
		return false, err
	}
	_, err = s.teams.UpdateTeam(ctx, teamID, func(t *model.Team) error {
		if !t.Active || t.EventExpired {
			return errNoChange
		}
		now := s.clock.Now()
		if now.Before(deadline(t.EventStartedAt, settings.EventDuration())) {
			return errNoChange
		}
		t.EventExpired = true
		t.UpdatedAt = now
		return nil
	})
	if errors.Is(err, errNoChange) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	log.Info().Str("team_id", teamID).Msg("team event expired by timer")
	s.notifier.Forget(teamID)
	return true, nil
}

// Run judges code against every test case of the member's current problem.
// A run that passed its expiry check is recorded even if the event ends
// while it is being judged.
func (s *RoundService) Run(ctx context.Context, teamID, handle, code, language string) (*RunResult, error) {
	lang, ok := judge.LookupLanguage(language)
	if !ok {
		return nil, common.Errorf("unsupported language %q: %w", language, common.ErrValidation)
	}

	team, err := s.teams.FindTeamByID(ctx, teamID)
	if err != nil {
		return nil, err
	}
	idx := team.MemberIndex(handle)
	if idx < 0 {
		return nil, common.ErrMemberNotFound
	}
	if !team.Active {
		return nil, common.ErrTeamInactive
	}
	if team.EventExpired {
		return nil, common.ErrEventExpired
	}
	settings, err := s.settings.Get(ctx)
	if err != nil {
		return nil, err
	}
	if !s.clock.Now().Before(deadline(team.EventStartedAt, settings.EventDuration())) {
		return nil, common.ErrEventExpired
	}

	problemID := team.ProblemForSlot(team.Members[idx].Slot)
	problem, err := s.problems.FindProblemByID(ctx, problemID)
	if err != nil {
		return nil, err
	}
	if len(problem.TestCases) == 0 {
		return nil, common.ErrNoTestCases
	}

	// The client going away does not stop judging or recording.
	execCtx := context.WithoutCancel(ctx)
	results := s.judgeAll(execCtx, problem, code, lang.ID)

	res := &RunResult{ProblemID: problem.ID, Results: results, TotalCount: len(results)}
	for _, r := range results {
		if r.Passed {
			res.PassedCount++
		}
	}
	res.AllPassed = res.PassedCount == res.TotalCount

	logger := log.With().Str("team_id", teamID).Str("member", handle).Str("problem_id", problem.ID).Logger()
	logger.Info().Int("passed", res.PassedCount).Int("total", res.TotalCount).Msg("run judged")

	if res.PassedCount == 0 {
		return res, nil
	}

	sub := &model.Submission{
		ID:              uuid.NewString(),
		TeamID:          teamID,
		MemberHandle:    handle,
		ProblemID:       problem.ID,
		Code:            code,
		Language:        lang.Slug,
		Passed:          res.AllPassed,
		PassedTestCases: res.PassedCount,
		TotalTestCases:  res.TotalCount,
		SubmittedAt:     s.clock.Now(),
	}
	if err := s.submissions.CreateSubmission(execCtx, sub); err != nil {
		logger.Error().Err(err).Msg("failed to record submission")
	} else {
		res.SubmissionID = sub.ID
	}

	if !res.AllPassed {
		return res, nil
	}

	updated, err := s.teams.UpdateTeam(execCtx, teamID, func(t *model.Team) error {
		i := t.MemberIndex(handle)
		if i < 0 {
			return common.ErrMemberNotFound
		}
		m := &t.Members[i]
		if m.Completed {
			return errNoChange
		}
		if t.ProblemForSlot(m.Slot) != problem.ID {
			// rotated away while judging
			return errNoChange
		}
		now := s.clock.Now()
		m.Completed = true
		m.UpdatedAt = now
		if t.AllCompleted() && t.CompletedAt == nil {
			t.CompletedAt = &now
		}
		t.UpdatedAt = now
		return nil
	})
	switch {
	case errors.Is(err, errNoChange):
		current, ferr := s.teams.FindTeamByID(execCtx, teamID)
		if ferr != nil {
			return nil, ferr
		}
		if i := current.MemberIndex(handle); i >= 0 {
			res.MemberCompleted = current.Members[i].Completed
		}
		res.AllTeamCompleted = current.CompletedAt != nil
		if !res.MemberCompleted {
			logger.Warn().Msg("member rotated off the problem before completion was recorded")
		}
	case err != nil:
		return nil, fmt.Errorf("record completion: %w", err)
	default:
		res.MemberCompleted = true
		res.AllTeamCompleted = updated.CompletedAt != nil
		logger.Info().Bool("team_completed", res.AllTeamCompleted).Msg("member completed problem")
		s.notifier.Track(*updated)
	}
	return res, nil
}

// judgeAll runs every test case concurrently. Gateway failures become failed
// results; they never abort the batch.
func (s *RoundService) judgeAll(ctx context.Context, problem *model.Problem, code string, languageID int) []model.TestCaseResult {
	results := make([]model.TestCaseResult, len(problem.TestCases))
	var g errgroup.Group
	g.SetLimit(s.maxConcurrency)

	for i, tc := range problem.TestCases {
		i, tc := i, tc
		g.Go(func() error {
			results[i] = s.judgeOne(ctx, problem, tc, code, languageID)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (s *RoundService) judgeOne(ctx context.Context, problem *model.Problem, tc model.TestCase, code string, languageID int) model.TestCaseResult {
	out := model.TestCaseResult{Input: tc.Input, ExpectedOutput: tc.ExpectedOutput}

	callCtx, cancel := context.WithTimeout(ctx, s.judgeTimeout)
	defer cancel()

	resp, err := s.gateway.Execute(callCtx, judge.Request{
		SourceCode:   code,
		LanguageID:   languageID,
		Stdin:        tc.Input,
		CPUTimeLimit: problem.Difficulty.CPUTimeLimit(),
	})
	if err != nil {
		log.Warn().Err(err).Str("problem_id", problem.ID).Str("test_case_id", tc.ID).Msg("judge call failed")
		msg := err.Error()
		out.Status = "Judge Error"
		out.Error = &msg
		return out
	}

	out.Status = resp.Status.Description
	out.ActualOutput = resp.Output()
	out.ExecutionTimeMs = resp.TimeMs()
	out.MemoryKb = resp.Memory
	out.Passed = resp.Accepted() && strings.TrimSpace(out.ActualOutput) == strings.TrimSpace(tc.ExpectedOutput)
	return out
}
