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

type countingSettingsRepo struct {
	repository.SettingsRepository
	reads int
}

func (r *countingSettingsRepo) GetSettings(ctx context.Context) (*model.EventSettings, error) {
	r.reads++
	return r.SettingsRepository.GetSettings(ctx)
}

var testDefaults = model.EventSettings{RotationIntervalSeconds: 600, EventDurationSeconds: 3600}

func TestSettingsCacheTTL(t *testing.T) {
	ctx := context.Background()
	clock := clockwork.NewFakeClockAt(time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC))
	repo := &countingSettingsRepo{SettingsRepository: repository.NewMemorySettingsRepository()}
	_ = repo.SaveSettings(ctx, model.EventSettings{RotationIntervalSeconds: 120, EventDurationSeconds: 900})
	cache := NewSettingsCache(repo, clock, 5*time.Second, testDefaults)

	for i := 0; i < 3; i++ {
		s, err := cache.Get(ctx)
		if err != nil || s.RotationIntervalSeconds != 120 {
			t.Fatalf("get: %+v %v", s, err)
		}
	}
	if repo.reads != 1 {
		t.Fatalf("expected 1 store read within ttl, got %d", repo.reads)
	}

	// a write by someone else stays invisible until the ttl passes
	_ = repo.SaveSettings(ctx, model.EventSettings{RotationIntervalSeconds: 60, EventDurationSeconds: 900})
	clock.Advance(4 * time.Second)
	if s, _ := cache.Get(ctx); s.RotationIntervalSeconds != 120 {
		t.Fatalf("expected stale value inside ttl, got %d", s.RotationIntervalSeconds)
	}
	clock.Advance(time.Second)
	if s, _ := cache.Get(ctx); s.RotationIntervalSeconds != 60 {
		t.Fatalf("expected refreshed value after ttl, got %d", s.RotationIntervalSeconds)
	}
}

func TestSettingsCacheInvalidate(t *testing.T) {
	ctx := context.Background()
	clock := clockwork.NewFakeClock()
	repo := repository.NewMemorySettingsRepository()
	cache := NewSettingsCache(repo, clock, time.Hour, testDefaults)

	s, err := cache.Get(ctx)
	if err != nil || s != testDefaults {
		t.Fatalf("expected defaults, got %+v %v", s, err)
	}

	_ = repo.SaveSettings(ctx, model.EventSettings{RotationIntervalSeconds: 30, EventDurationSeconds: 300})
	cache.Invalidate()
	if s, _ := cache.Get(ctx); s.RotationIntervalSeconds != 30 {
		t.Fatalf("invalidate did not force a reload: %+v", s)
	}
}

type failingSettingsRepo struct{ repository.SettingsRepository }

func (failingSettingsRepo) GetSettings(context.Context) (*model.EventSettings, error) {
	return nil, errors.New("db down")
}

func TestSettingsCacheStoreError(t *testing.T) {
	cache := NewSettingsCache(failingSettingsRepo{}, clockwork.NewFakeClock(), time.Second, testDefaults)
	if _, err := cache.Get(context.Background()); err == nil || errors.Is(err, common.ErrNotFound) {
		t.Fatalf("expected store error, got %v", err)
	}
}

func TestSettingsServiceUpdate(t *testing.T) {
	ctx := context.Background()
	clock := clockwork.NewFakeClock()
	repo := repository.NewMemorySettingsRepository()
	cache := NewSettingsCache(repo, clock, time.Hour, testDefaults)
	notifier := &recordingNotifier{}
	svc := NewSettingsService(repo, cache, clock)
	svc.SetNotifier(notifier)

	if _, err := cache.Get(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.UpdateSettings(ctx, UpdateSettingsRequest{RotationIntervalSeconds: 0, EventDurationSeconds: 10}); !errors.Is(err, common.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := svc.UpdateSettings(ctx, UpdateSettingsRequest{RotationIntervalSeconds: 45, EventDurationSeconds: 900}); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, _ := svc.GetSettings(ctx)
	if got.RotationIntervalSeconds != 45 || got.EventDurationSeconds != 900 {
		t.Fatalf("writer did not read its own write: %+v", got)
	}
	if notifier.resyncs != 1 {
		t.Fatalf("expected one resync, got %d", notifier.resyncs)
	}
}
