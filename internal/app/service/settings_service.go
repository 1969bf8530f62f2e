package service

import (
	"context"
	"shuffle_arena/internal/common"
	"shuffle_arena/internal/domain/model"
	"shuffle_arena/internal/domain/repository"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

type SettingsService struct {
	repo     repository.SettingsRepository
	cache    *SettingsCache
	clock    clockwork.Clock
	notifier DeadlineNotifier
}

func NewSettingsService(repo repository.SettingsRepository, cache *SettingsCache, clock clockwork.Clock) *SettingsService {
	return &SettingsService{repo: repo, cache: cache, clock: clock, notifier: noopNotifier{}}
}

func (s *SettingsService) SetNotifier(n DeadlineNotifier) {
	if n == nil {
		n = noopNotifier{}
	}
	s.notifier = n
}

type UpdateSettingsRequest struct {
	RotationIntervalSeconds int `json:"rotation_interval_seconds"`
	EventDurationSeconds    int `json:"event_duration_seconds"`
}

func (s *SettingsService) GetSettings(ctx context.Context) (model.EventSettings, error) {
	return s.cache.Get(ctx)
}

// UpdateSettings stores new timings. The cache is dropped before returning
// so the caller reads its own write, and running timers are rescheduled.
func (s *SettingsService) UpdateSettings(ctx context.Context, req UpdateSettingsRequest) (model.EventSettings, error) {
	if req.RotationIntervalSeconds <= 0 || req.EventDurationSeconds <= 0 {
		return model.EventSettings{}, common.Errorf("rotation interval and event duration must be positive: %w", common.ErrValidation)
	}
	settings := model.EventSettings{
		RotationIntervalSeconds: req.RotationIntervalSeconds,
		EventDurationSeconds:    req.EventDurationSeconds,
		UpdatedAt:               s.clock.Now(),
	}
	if err := s.repo.SaveSettings(ctx, settings); err != nil {
		return model.EventSettings{}, common.Errorf("failed to save settings: %w", err)
	}
	s.cache.Invalidate()
	s.notifier.Resync()

	log.Info().Int("rotation_interval_seconds", settings.RotationIntervalSeconds).
		Int("event_duration_seconds", settings.EventDurationSeconds).Msg("event settings updated")
	return settings, nil
}
