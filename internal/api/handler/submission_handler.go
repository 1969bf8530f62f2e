package handler

import (
	"net/http"
	"shuffle_arena/internal/app/service"
	"shuffle_arena/internal/common"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/hlog"
)

// SubmissionHandler reports on the submission ledger. Mounted under the admin group.
type SubmissionHandler struct {
	submissionService *service.SubmissionService
}

func NewSubmissionHandler(ss *service.SubmissionService) *SubmissionHandler {
	return &SubmissionHandler{submissionService: ss}
}

func (h *SubmissionHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.listSubmissions) // ?team_id=&page=&pageSize=
	r.Get("/{submissionID}", h.getSubmission)
	r.Delete("/", h.purgeSubmissions)
}

func (h *SubmissionHandler) listSubmissions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	pageSize, _ := strconv.Atoi(q.Get("pageSize"))

	res, err := h.submissionService.ListSubmissions(r.Context(), q.Get("team_id"), page, pageSize)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, res)
}

func (h *SubmissionHandler) getSubmission(w http.ResponseWriter, r *http.Request) {
	sub, err := h.submissionService.GetSubmission(r.Context(), chi.URLParam(r, "submissionID"))
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, sub)
}

func (h *SubmissionHandler) purgeSubmissions(w http.ResponseWriter, r *http.Request) {
	n, err := h.submissionService.PurgeSubmissions(r.Context())
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	hlog.FromRequest(r).Warn().Int64("deleted", n).Msg("submission ledger purged")
	common.RespondWithJSON(w, http.StatusOK, map[string]int64{"deleted": n})
}
