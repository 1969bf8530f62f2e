package handler

import (
	"net/http"
	"shuffle_arena/internal/app/service"
	"shuffle_arena/internal/common"
	"shuffle_arena/internal/platform/judge"

	"github.com/go-chi/chi/v5"
)

// PublicHandler serves the unauthenticated read-only endpoints.
type PublicHandler struct {
	teamService *service.TeamService
}

func NewPublicHandler(ts *service.TeamService) *PublicHandler {
	return &PublicHandler{teamService: ts}
}

func (h *PublicHandler) RegisterRoutes(r chi.Router) {
	r.Get("/languages", h.listLanguages)
	r.Get("/standings", h.standings)
}

func (h *PublicHandler) listLanguages(w http.ResponseWriter, r *http.Request) {
	common.RespondWithJSON(w, http.StatusOK, judge.Languages())
}

func (h *PublicHandler) standings(w http.ResponseWriter, r *http.Request) {
	standings, err := h.teamService.Standings(r.Context())
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, standings)
}
