package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"shuffle_arena/internal/common"
	"shuffle_arena/internal/domain/model"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// TeamMutation edits a team in place. Returning an error aborts the update.
type TeamMutation func(team *model.Team) error

type TeamRepository interface {
	CreateTeam(ctx context.Context, team *model.Team) error
	FindTeamByID(ctx context.Context, id string) (*model.Team, error)
	FindTeamBySlug(ctx context.Context, slug string) (*model.Team, error)
	ListTeams(ctx context.Context) ([]model.Team, error)
	ListActiveTeams(ctx context.Context) ([]model.Team, error)
	// UpdateTeam applies fn to the current stored team and persists the
	// result atomically with respect to other UpdateTeam calls for the same id.
	UpdateTeam(ctx context.Context, id string, fn TeamMutation) (*model.Team, error)
	DeleteTeam(ctx context.Context, id string) error
}

type pgTeamRepository struct {
	db *sql.DB
}

func NewPgTeamRepository(db *sql.DB) TeamRepository {
	return &pgTeamRepository{db: db}
}

const teamColumns = `id, name, slug, members, assigned_problems, code, last_language, current_round,
       round_started_at, event_started_at, active, event_expired, completed_at, created_at, updated_at`

type teamDocs struct {
	members, assigned, code, lastLang []byte
}

func encodeTeamDocs(t *model.Team) (*teamDocs, error) {
	var d teamDocs
	var err error
	if d.members, err = json.Marshal(t.Members); err != nil {
		return nil, fmt.Errorf("encode members: %w", err)
	}
	assigned := t.AssignedProblems
	if assigned == nil {
		assigned = []string{}
	}
	if d.assigned, err = json.Marshal(assigned); err != nil {
		return nil, fmt.Errorf("encode assigned problems: %w", err)
	}
	code := t.Code
	if code == nil {
		code = map[string]map[string]string{}
	}
	if d.code, err = json.Marshal(code); err != nil {
		return nil, fmt.Errorf("encode code: %w", err)
	}
	lastLang := t.LastLanguage
	if lastLang == nil {
		lastLang = map[string]string{}
	}
	if d.lastLang, err = json.Marshal(lastLang); err != nil {
		return nil, fmt.Errorf("encode last language: %w", err)
	}
	return &d, nil
}

func scanTeam(row interface{ Scan(...any) error }) (*model.Team, error) {
	t := &model.Team{}
	var d teamDocs
	var roundStartedAt, eventStartedAt, completedAt sql.NullTime
	err := row.Scan(&t.ID, &t.Name, &t.Slug, &d.members, &d.assigned, &d.code, &d.lastLang, &t.CurrentRound,
		&roundStartedAt, &eventStartedAt, &t.Active, &t.EventExpired, &completedAt, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(d.members, &t.Members); err != nil {
		return nil, fmt.Errorf("decode members: %w", err)
	}
	if err := json.Unmarshal(d.assigned, &t.AssignedProblems); err != nil {
		return nil, fmt.Errorf("decode assigned problems: %w", err)
	}
	if len(t.AssignedProblems) == 0 {
		t.AssignedProblems = nil
	}
	if err := json.Unmarshal(d.code, &t.Code); err != nil {
		return nil, fmt.Errorf("decode code: %w", err)
	}
	if err := json.Unmarshal(d.lastLang, &t.LastLanguage); err != nil {
		return nil, fmt.Errorf("decode last language: %w", err)
	}
	t.RoundStartedAt = nullTimePtr(roundStartedAt)
	t.EventStartedAt = nullTimePtr(eventStartedAt)
	t.CompletedAt = nullTimePtr(completedAt)
	return t, nil
}

func nullTimePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	v := nt.Time
	return &v
}

func (r *pgTeamRepository) CreateTeam(ctx context.Context, t *model.Team) error {
	d, err := encodeTeamDocs(t)
	if err != nil {
		return fmt.Errorf("pgTeamRepository.CreateTeam: %w", err)
	}
	query := `INSERT INTO teams (` + teamColumns + `)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`
	_, err = r.db.ExecContext(ctx, query, t.ID, t.Name, t.Slug, string(d.members), string(d.assigned), string(d.code), string(d.lastLang), t.CurrentRound,
		t.RoundStartedAt, t.EventStartedAt, t.Active, t.EventExpired, t.CompletedAt, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("team with this name already exists: %w", common.ErrConflict)
		}
		return fmt.Errorf("pgTeamRepository.CreateTeam: %w", err)
	}
	return nil
}

func (r *pgTeamRepository) FindTeamByID(ctx context.Context, id string) (*model.Team, error) {
	t, err := scanTeam(r.db.QueryRowContext(ctx, `SELECT `+teamColumns+` FROM teams WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrTeamNotFound
		}
		return nil, fmt.Errorf("pgTeamRepository.FindTeamByID: %w", err)
	}
	return t, nil
}

func (r *pgTeamRepository) FindTeamBySlug(ctx context.Context, slug string) (*model.Team, error) {
	t, err := scanTeam(r.db.QueryRowContext(ctx, `SELECT `+teamColumns+` FROM teams WHERE slug = $1`, slug))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrTeamNotFound
		}
		return nil, fmt.Errorf("pgTeamRepository.FindTeamBySlug: %w", err)
	}
	return t, nil
}

func (r *pgTeamRepository) ListTeams(ctx context.Context) ([]model.Team, error) {
	return r.listTeams(ctx, `SELECT `+teamColumns+` FROM teams ORDER BY created_at`)
}

func (r *pgTeamRepository) ListActiveTeams(ctx context.Context) ([]model.Team, error) {
	return r.listTeams(ctx, `SELECT `+teamColumns+` FROM teams WHERE active ORDER BY created_at`)
}

func (r *pgTeamRepository) listTeams(ctx context.Context, query string) ([]model.Team, error) {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("pgTeamRepository.listTeams query: %w", err)
	}
	defer rows.Close()

	teams := []model.Team{}
	for rows.Next() {
		t, err := scanTeam(rows)
		if err != nil {
			return nil, fmt.Errorf("pgTeamRepository.listTeams scan: %w", err)
		}
		teams = append(teams, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pgTeamRepository.listTeams rows.Err: %w", err)
	}
	return teams, nil
}

func (r *pgTeamRepository) UpdateTeam(ctx context.Context, id string, fn TeamMutation) (*model.Team, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("pgTeamRepository.UpdateTeam begin: %w", err)
	}
	defer tx.Rollback()

	t, err := scanTeam(tx.QueryRowContext(ctx, `SELECT `+teamColumns+` FROM teams WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrTeamNotFound
		}
		return nil, fmt.Errorf("pgTeamRepository.UpdateTeam select: %w", err)
	}

	if err := fn(t); err != nil {
		return nil, err
	}

	d, err := encodeTeamDocs(t)
	if err != nil {
		return nil, fmt.Errorf("pgTeamRepository.UpdateTeam: %w", err)
	}
	query := `UPDATE teams SET name = $1, members = $2, assigned_problems = $3, code = $4, last_language = $5,
	              current_round = $6, round_started_at = $7, event_started_at = $8, active = $9,
	              event_expired = $10, completed_at = $11, updated_at = $12
	          WHERE id = $13`
	_, err = tx.ExecContext(ctx, query, t.Name, string(d.members), string(d.assigned), string(d.code), string(d.lastLang),
		t.CurrentRound, t.RoundStartedAt, t.EventStartedAt, t.Active,
		t.EventExpired, t.CompletedAt, t.UpdatedAt, id)
	if err != nil {
		return nil, fmt.Errorf("pgTeamRepository.UpdateTeam exec: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("pgTeamRepository.UpdateTeam commit: %w", err)
	}
	return t, nil
}

func (r *pgTeamRepository) DeleteTeam(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM teams WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("pgTeamRepository.DeleteTeam: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return common.ErrTeamNotFound
	}
	return nil
}
