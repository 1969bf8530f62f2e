package worker

import (
	"container/heap"
	"context"
	"errors"
	"fmt"
	"shuffle_arena/internal/app/service"
	"shuffle_arena/internal/common"
	"shuffle_arena/internal/domain/model"
	"shuffle_arena/internal/domain/repository"
	"shuffle_arena/internal/platform/lock"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// lockRetryDelay is how long a deadline waits after losing its lock to
// another instance before it is looked at again.
const lockRetryDelay = time.Second

// RoundEngine is the part of the round service the worker drives.
type RoundEngine interface {
	RotateIfDue(ctx context.Context, teamID string, expectedRound int) (bool, error)
	ExpireIfDue(ctx context.Context, teamID string) (bool, error)
}

// RoundWorker fires rotations and event expiry on the server clock so teams
// advance even when no client is polling. Client-triggered rotations still
// work; both paths go through the engine's due checks.
type RoundWorker struct {
	engine   RoundEngine
	teams    repository.TeamRepository
	settings *service.SettingsCache
	locker   lock.Locker
	clock    clockwork.Clock

	mu       sync.Mutex
	current  model.EventSettings
	queue    deadlineQueue
	byTeam   map[string]*deadline
	wake     chan struct{}
	resyncCh chan struct{}
}

var _ service.DeadlineNotifier = (*RoundWorker)(nil)

func NewRoundWorker(engine RoundEngine, teams repository.TeamRepository, settings *service.SettingsCache, locker lock.Locker, clock clockwork.Clock) *RoundWorker {
	if locker == nil {
		locker = lock.NoopLocker{}
	}
	return &RoundWorker{
		engine:   engine,
		teams:    teams,
		settings: settings,
		locker:   locker,
		clock:    clock,
		byTeam:   map[string]*deadline{},
		wake:     make(chan struct{}, 1),
		resyncCh: make(chan struct{}, 1),
	}
}

// Run blocks until ctx is cancelled.
func (w *RoundWorker) Run(ctx context.Context) error {
	if err := w.Reload(ctx); err != nil {
		return fmt.Errorf("initial round schedule: %w", err)
	}
	log.Info().Int("teams", w.Pending()).Msg("round worker started")

	for {
		var timer clockwork.Timer
		var fire <-chan time.Time
		if next, ok := w.nextDeadline(); ok {
			d := next.Sub(w.clock.Now())
			if d < 0 {
				d = 0
			}
			timer = w.clock.NewTimer(d)
			fire = timer.Chan()
		}

		select {
		case <-ctx.Done():
			stopTimer(timer)
			log.Info().Msg("round worker stopping")
			return nil
		case <-w.wake:
			stopTimer(timer)
		case <-w.resyncCh:
			stopTimer(timer)
			if err := w.Reload(ctx); err != nil {
				log.Error().Err(err).Msg("failed to reload round schedule")
			}
		case <-fire:
			w.FireDue(ctx)
		}
	}
}

func stopTimer(t clockwork.Timer) {
	if t == nil {
		return
	}
	if !t.Stop() {
		select {
		case <-t.Chan():
		default:
		}
	}
}

// Reload rebuilds the schedule from the store and the current settings.
func (w *RoundWorker) Reload(ctx context.Context) error {
	settings, err := w.settings.Get(ctx)
	if err != nil {
		return err
	}
	teams, err := w.teams.ListActiveTeams(ctx)
	if err != nil {
		return err
	}

	w.mu.Lock()
	w.current = settings
	w.queue = nil
	w.byTeam = map[string]*deadline{}
	for _, t := range teams {
		w.trackLocked(t)
	}
	w.mu.Unlock()
	w.signal(w.wake)
	return nil
}

// Track schedules the next deadline for team, replacing any earlier one.
func (w *RoundWorker) Track(team model.Team) {
	w.mu.Lock()
	w.trackLocked(team)
	w.mu.Unlock()
	w.signal(w.wake)
}

func (w *RoundWorker) trackLocked(team model.Team) {
	w.removeLocked(team.ID)
	if !team.Active || team.EventExpired || team.RoundStartedAt == nil || team.EventStartedAt == nil {
		return
	}
	rotation := team.RoundStartedAt.Add(w.current.RotationInterval())
	end := team.EventStartedAt.Add(w.current.EventDuration())

	d := &deadline{teamID: team.ID, round: team.CurrentRound, at: rotation}
	// a finished team no longer rotates but its event still ends
	if team.CompletedAt != nil || !end.After(rotation) {
		d.at = end
		d.expire = true
	}
	heap.Push(&w.queue, d)
	w.byTeam[team.ID] = d
}

func (w *RoundWorker) Forget(teamID string) {
	w.mu.Lock()
	w.removeLocked(teamID)
	w.mu.Unlock()
	w.signal(w.wake)
}

func (w *RoundWorker) removeLocked(teamID string) {
	if d, ok := w.byTeam[teamID]; ok {
		heap.Remove(&w.queue, d.index)
		delete(w.byTeam, teamID)
	}
}

// Resync asks the run loop to reload the whole schedule, used after the
// event settings change.
func (w *RoundWorker) Resync() {
	w.signal(w.resyncCh)
}

func (w *RoundWorker) signal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

// Pending reports how many teams have a scheduled deadline.
func (w *RoundWorker) Pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.queue)
}

func (w *RoundWorker) nextDeadline() (time.Time, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.queue) == 0 {
		return time.Time{}, false
	}
	return w.queue[0].at, true
}

// FireDue handles every deadline at or before now and returns how many it
// handled.
func (w *RoundWorker) FireDue(ctx context.Context) int {
	now := w.clock.Now()
	var due []*deadline
	w.mu.Lock()
	for len(w.queue) > 0 && !w.queue[0].at.After(now) {
		d := heap.Pop(&w.queue).(*deadline)
		delete(w.byTeam, d.teamID)
		due = append(due, d)
	}
	w.mu.Unlock()

	for _, d := range due {
		w.fire(ctx, d)
	}
	return len(due)
}

func (w *RoundWorker) fire(ctx context.Context, d *deadline) {
	logger := log.With().Str("team_id", d.teamID).Int("round", d.round).Bool("expire", d.expire).Logger()

	key := fmt.Sprintf("%s:%d", d.teamID, d.round)
	if d.expire {
		key = d.teamID + ":expire"
	}
	release, ok, err := w.locker.TryLock(ctx, key)
	if err != nil {
		// the engine's due checks keep a lockless fire safe
		logger.Warn().Err(err).Msg("deadline lock unavailable, firing without it")
		release = func() {}
	} else if !ok {
		logger.Debug().Msg("deadline held by another instance")
		w.retryLater(d)
		return
	}
	defer release()

	if d.expire {
		_, err = w.engine.ExpireIfDue(ctx, d.teamID)
	} else {
		_, err = w.engine.RotateIfDue(ctx, d.teamID, d.round)
	}
	if err != nil && !errors.Is(err, common.ErrNotFound) {
		logger.Error().Err(err).Msg("deadline handling failed")
		w.retryLater(d)
		return
	}

	w.refresh(ctx, d.teamID)
}

func (w *RoundWorker) retryLater(d *deadline) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.byTeam[d.teamID]; ok {
		return
	}
	d.at = w.clock.Now().Add(lockRetryDelay)
	heap.Push(&w.queue, d)
	w.byTeam[d.teamID] = d
}

// refresh re-reads the team so the schedule follows whatever the store now
// says, including changes made by other instances.
func (w *RoundWorker) refresh(ctx context.Context, teamID string) {
	team, err := w.teams.FindTeamByID(ctx, teamID)
	if err != nil {
		if !errors.Is(err, common.ErrNotFound) {
			log.Error().Err(err).Str("team_id", teamID).Msg("failed to reload team after deadline")
		}
		w.Forget(teamID)
		return
	}
	settings, err := w.settings.Get(ctx)
	if err != nil {
		log.Error().Err(err).Msg("failed to read settings after deadline")
	}

	now := w.clock.Now()
	w.mu.Lock()
	if err == nil {
		w.current = settings
	}
	w.trackLocked(*team)
	// never hand the loop a deadline it has just handled
	if d, ok := w.byTeam[teamID]; ok && !d.at.After(now) {
		d.at = now.Add(lockRetryDelay)
		heap.Fix(&w.queue, d.index)
	}
	w.mu.Unlock()
	w.signal(w.wake)
}

type deadline struct {
	teamID string
	round  int
	at     time.Time
	expire bool
	index  int
}

// deadlineQueue is a min-heap of deadlines ordered by time.
type deadlineQueue []*deadline

func (q deadlineQueue) Len() int { return len(q) }

func (q deadlineQueue) Less(i, j int) bool { return q[i].at.Before(q[j].at) }

func (q deadlineQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *deadlineQueue) Push(x any) {
	d := x.(*deadline)
	d.index = len(*q)
	*q = append(*q, d)
}

func (q *deadlineQueue) Pop() any {
	old := *q
	n := len(old)
	d := old[n-1]
	old[n-1] = nil
	d.index = -1
	*q = old[:n-1]
	return d
}
