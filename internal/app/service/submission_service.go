package service

import (
	"context"
	"shuffle_arena/internal/domain/model"
	"shuffle_arena/internal/domain/repository"

	"github.com/rs/zerolog/log"
)

// SubmissionService is the read and purge side of the ledger. Entries are
// written only by RoundService.Run.
type SubmissionService struct {
	submissionRepo repository.SubmissionRepository
}

func NewSubmissionService(subRepo repository.SubmissionRepository) *SubmissionService {
	return &SubmissionService{submissionRepo: subRepo}
}

type SubmissionPage struct {
	Submissions []model.Submission `json:"submissions"`
	Total       int                `json:"total"`
	Page        int                `json:"page"`
	PageSize    int                `json:"page_size"`
}

func (s *SubmissionService) ListSubmissions(ctx context.Context, teamID string, page, pageSize int) (*SubmissionPage, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 200 {
		pageSize = 50
	}
	offset := (page - 1) * pageSize

	subs, total, err := s.submissionRepo.ListSubmissions(ctx, teamID, pageSize, offset)
	if err != nil {
		return nil, err
	}
	return &SubmissionPage{Submissions: subs, Total: total, Page: page, PageSize: pageSize}, nil
}

func (s *SubmissionService) GetSubmission(ctx context.Context, id string) (*model.Submission, error) {
	return s.submissionRepo.GetSubmissionByID(ctx, id)
}

func (s *SubmissionService) PurgeSubmissions(ctx context.Context) (int64, error) {
	n, err := s.submissionRepo.DeleteAllSubmissions(ctx)
	if err != nil {
		return 0, err
	}
	log.Warn().Int64("deleted", n).Msg("submission ledger purged")
	return n, nil
}
