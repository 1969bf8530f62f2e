package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"shuffle_arena/internal/common"
	"shuffle_arena/internal/domain/model"

	"github.com/jackc/pgx/v5/pgconn"
)

type ProblemRepository interface {
	CreateProblem(ctx context.Context, problem *model.Problem) error
	UpdateProblem(ctx context.Context, problem *model.Problem) error
	DeleteProblem(ctx context.Context, id string) error
	// FindProblemByID returns the problem with its ordered test cases.
	FindProblemByID(ctx context.Context, id string) (*model.Problem, error)
	// ListProblems returns problems without test cases; empty difficulty means all.
	ListProblems(ctx context.Context, difficulty model.ProblemDifficulty) ([]model.Problem, error)
	ListProblemIDsByDifficulty(ctx context.Context, difficulty model.ProblemDifficulty) ([]string, error)
}

type pgProblemRepository struct {
	db *sql.DB
}

func NewPgProblemRepository(db *sql.DB) ProblemRepository {
	return &pgProblemRepository{db: db}
}

func (r *pgProblemRepository) CreateProblem(ctx context.Context, p *model.Problem) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("pgProblemRepository.CreateProblem begin: %w", err)
	}
	defer tx.Rollback()

	query := `INSERT INTO problems (id, title, slug, description, difficulty, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if _, err := tx.ExecContext(ctx, query, p.ID, p.Title, p.Slug, p.Description, p.Difficulty, p.CreatedAt, p.UpdatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // Unique constraint for slug
			return fmt.Errorf("problem with this slug already exists: %w", common.ErrConflict)
		}
		return fmt.Errorf("pgProblemRepository.CreateProblem: %w", err)
	}
	if err := insertTestCases(ctx, tx, p.ID, p.TestCases); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *pgProblemRepository) UpdateProblem(ctx context.Context, p *model.Problem) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("pgProblemRepository.UpdateProblem begin: %w", err)
	}
	defer tx.Rollback()

	query := `UPDATE problems SET title = $1, slug = $2, description = $3, difficulty = $4, updated_at = $5
              WHERE id = $6`
	res, err := tx.ExecContext(ctx, query, p.Title, p.Slug, p.Description, p.Difficulty, p.UpdatedAt, p.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("problem with this slug already exists: %w", common.ErrConflict)
		}
		return fmt.Errorf("pgProblemRepository.UpdateProblem: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return common.ErrProblemNotFound
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM test_cases WHERE problem_id = $1`, p.ID); err != nil {
		return fmt.Errorf("pgProblemRepository.UpdateProblem clear test cases: %w", err)
	}
	if err := insertTestCases(ctx, tx, p.ID, p.TestCases); err != nil {
		return err
	}
	return tx.Commit()
}

func insertTestCases(ctx context.Context, tx *sql.Tx, problemID string, testCases []model.TestCase) error {
	if len(testCases) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO test_cases (id, problem_id, input, expected_output, sort_order) VALUES ($1, $2, $3, $4, $5)`)
	if err != nil {
		return fmt.Errorf("insertTestCases prepare: %w", err)
	}
	defer stmt.Close()

	for _, tc := range testCases {
		if _, err := stmt.ExecContext(ctx, tc.ID, problemID, tc.Input, tc.ExpectedOutput, tc.SortOrder); err != nil {
			return fmt.Errorf("insertTestCases exec for test case %s: %w", tc.ID, err)
		}
	}
	return nil
}

func (r *pgProblemRepository) DeleteProblem(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM problems WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("pgProblemRepository.DeleteProblem: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return common.ErrProblemNotFound
	}
	return nil
}

func (r *pgProblemRepository) FindProblemByID(ctx context.Context, id string) (*model.Problem, error) {
	query := `SELECT id, title, slug, description, difficulty, created_at, updated_at
              FROM problems WHERE id = $1`

	p := &model.Problem{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&p.ID, &p.Title, &p.Slug, &p.Description, &p.Difficulty, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrProblemNotFound
		}
		return nil, fmt.Errorf("pgProblemRepository.FindProblemByID: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `SELECT id, input, expected_output, sort_order
              FROM test_cases WHERE problem_id = $1 ORDER BY sort_order ASC`, id)
	if err != nil {
		return nil, fmt.Errorf("pgProblemRepository.FindProblemByID test cases: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var tc model.TestCase
		if err := rows.Scan(&tc.ID, &tc.Input, &tc.ExpectedOutput, &tc.SortOrder); err != nil {
			return nil, fmt.Errorf("pgProblemRepository.FindProblemByID scan test case: %w", err)
		}
		p.TestCases = append(p.TestCases, tc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pgProblemRepository.FindProblemByID rows.Err: %w", err)
	}
	return p, nil
}

func (r *pgProblemRepository) ListProblems(ctx context.Context, difficulty model.ProblemDifficulty) ([]model.Problem, error) {
	query := `SELECT id, title, slug, description, difficulty, created_at, updated_at FROM problems`
	var args []interface{}
	if difficulty != "" {
		query += ` WHERE difficulty = $1`
		args = append(args, difficulty)
	}
	query += ` ORDER BY difficulty, created_at`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("pgProblemRepository.ListProblems query: %w", err)
	}
	defer rows.Close()

	problems := []model.Problem{}
	for rows.Next() {
		var p model.Problem
		if err := rows.Scan(&p.ID, &p.Title, &p.Slug, &p.Description, &p.Difficulty, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("pgProblemRepository.ListProblems scan: %w", err)
		}
		problems = append(problems, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pgProblemRepository.ListProblems rows.Err: %w", err)
	}
	return problems, nil
}

func (r *pgProblemRepository) ListProblemIDsByDifficulty(ctx context.Context, difficulty model.ProblemDifficulty) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM problems WHERE difficulty = $1 ORDER BY id`, difficulty)
	if err != nil {
		return nil, fmt.Errorf("pgProblemRepository.ListProblemIDsByDifficulty query: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("pgProblemRepository.ListProblemIDsByDifficulty scan: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pgProblemRepository.ListProblemIDsByDifficulty rows.Err: %w", err)
	}
	return ids, nil
}
