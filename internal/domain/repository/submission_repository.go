package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"shuffle_arena/internal/common"
	"shuffle_arena/internal/domain/model"
)

// SubmissionRepository is the append-only ledger of judged runs.
type SubmissionRepository interface {
	CreateSubmission(ctx context.Context, sub *model.Submission) error
	GetSubmissionByID(ctx context.Context, id string) (*model.Submission, error)
	// ListSubmissions returns newest first; empty teamID means every team.
	ListSubmissions(ctx context.Context, teamID string, limit, offset int) ([]model.Submission, int, error)
	DeleteAllSubmissions(ctx context.Context) (int64, error)
}

type pgSubmissionRepository struct {
	db *sql.DB
}

func NewPgSubmissionRepository(db *sql.DB) SubmissionRepository {
	return &pgSubmissionRepository{db: db}
}

func (r *pgSubmissionRepository) CreateSubmission(ctx context.Context, s *model.Submission) error {
	query := `INSERT INTO submissions (id, team_id, member_handle, problem_id, code, language, passed, passed_test_cases, total_test_cases, submitted_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := r.db.ExecContext(ctx, query, s.ID, s.TeamID, s.MemberHandle, s.ProblemID, s.Code, s.Language,
		s.Passed, s.PassedTestCases, s.TotalTestCases, s.SubmittedAt)
	if err != nil {
		return fmt.Errorf("pgSubmissionRepository.CreateSubmission: %w", err)
	}
	return nil
}

const submissionColumns = `id, team_id, member_handle, problem_id, code, language, passed, passed_test_cases, total_test_cases, submitted_at`

func scanSubmission(row interface{ Scan(...any) error }, s *model.Submission) error {
	return row.Scan(&s.ID, &s.TeamID, &s.MemberHandle, &s.ProblemID, &s.Code, &s.Language,
		&s.Passed, &s.PassedTestCases, &s.TotalTestCases, &s.SubmittedAt)
}

func (r *pgSubmissionRepository) GetSubmissionByID(ctx context.Context, id string) (*model.Submission, error) {
	s := &model.Submission{}
	err := scanSubmission(r.db.QueryRowContext(ctx, `SELECT `+submissionColumns+` FROM submissions WHERE id = $1`, id), s)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrSubmissionNotFound
		}
		return nil, fmt.Errorf("pgSubmissionRepository.GetSubmissionByID: %w", err)
	}
	return s, nil
}

func (r *pgSubmissionRepository) ListSubmissions(ctx context.Context, teamID string, limit, offset int) ([]model.Submission, int, error) {
	where := ""
	args := []interface{}{}
	if teamID != "" {
		where = ` WHERE team_id = $1`
		args = append(args, teamID)
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM submissions`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("pgSubmissionRepository.ListSubmissions count: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM submissions%s ORDER BY submitted_at DESC LIMIT $%d OFFSET $%d`,
		submissionColumns, where, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("pgSubmissionRepository.ListSubmissions query: %w", err)
	}
	defer rows.Close()

	subs := []model.Submission{}
	for rows.Next() {
		var s model.Submission
		if err := scanSubmission(rows, &s); err != nil {
			return nil, 0, fmt.Errorf("pgSubmissionRepository.ListSubmissions scan: %w", err)
		}
		subs = append(subs, s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("pgSubmissionRepository.ListSubmissions rows.Err: %w", err)
	}
	return subs, total, nil
}

func (r *pgSubmissionRepository) DeleteAllSubmissions(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM submissions`)
	if err != nil {
		return 0, fmt.Errorf("pgSubmissionRepository.DeleteAllSubmissions: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
