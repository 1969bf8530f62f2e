package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"shuffle_arena/internal/common"
	"shuffle_arena/internal/domain/model"
)

type SettingsRepository interface {
	// GetSettings returns common.ErrNotFound when nothing has been saved yet.
	GetSettings(ctx context.Context) (*model.EventSettings, error)
	SaveSettings(ctx context.Context, settings model.EventSettings) error
}

type pgSettingsRepository struct {
	db *sql.DB
}

func NewPgSettingsRepository(db *sql.DB) SettingsRepository {
	return &pgSettingsRepository{db: db}
}

func (r *pgSettingsRepository) GetSettings(ctx context.Context) (*model.EventSettings, error) {
	s := &model.EventSettings{}
	err := r.db.QueryRowContext(ctx,
		`SELECT rotation_interval_seconds, event_duration_seconds, updated_at FROM event_settings WHERE id = 1`,
	).Scan(&s.RotationIntervalSeconds, &s.EventDurationSeconds, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgSettingsRepository.GetSettings: %w", err)
	}
	return s, nil
}

func (r *pgSettingsRepository) SaveSettings(ctx context.Context, s model.EventSettings) error {
	query := `INSERT INTO event_settings (id, rotation_interval_seconds, event_duration_seconds, updated_at)
	          VALUES (1, $1, $2, $3)
	          ON CONFLICT (id) DO UPDATE SET
	              rotation_interval_seconds = EXCLUDED.rotation_interval_seconds,
	              event_duration_seconds = EXCLUDED.event_duration_seconds,
	              updated_at = EXCLUDED.updated_at`
	if _, err := r.db.ExecContext(ctx, query, s.RotationIntervalSeconds, s.EventDurationSeconds, s.UpdatedAt); err != nil {
		return fmt.Errorf("pgSettingsRepository.SaveSettings: %w", err)
	}
	return nil
}
