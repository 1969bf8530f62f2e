package handler

import (
	"encoding/json"
	"net/http"
	"shuffle_arena/internal/app/service"
	"shuffle_arena/internal/common"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/hlog"
)

// TeamHandler is the admin surface for team registration and resets.
type TeamHandler struct {
	teamService *service.TeamService
}

func NewTeamHandler(ts *service.TeamService) *TeamHandler {
	return &TeamHandler{teamService: ts}
}

func (h *TeamHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.listTeams)
	r.Post("/", h.registerTeam)
	r.Post("/reset", h.resetAll)
	r.Get("/{teamID}", h.getTeam)
	r.Delete("/{teamID}", h.deleteTeam)
	r.Post("/{teamID}/reset", h.resetTeam)
}

func (h *TeamHandler) registerTeam(w http.ResponseWriter, r *http.Request) {
	var req service.RegisterTeamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	team, err := h.teamService.RegisterTeam(r.Context(), req)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, team)
}

func (h *TeamHandler) listTeams(w http.ResponseWriter, r *http.Request) {
	teams, err := h.teamService.ListTeams(r.Context())
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, teams)
}

func (h *TeamHandler) getTeam(w http.ResponseWriter, r *http.Request) {
	team, err := h.teamService.GetTeam(r.Context(), chi.URLParam(r, "teamID"))
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, team)
}

func (h *TeamHandler) deleteTeam(w http.ResponseWriter, r *http.Request) {
	if err := h.teamService.DeleteTeam(r.Context(), chi.URLParam(r, "teamID")); err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *TeamHandler) resetTeam(w http.ResponseWriter, r *http.Request) {
	team, err := h.teamService.ResetTeam(r.Context(), chi.URLParam(r, "teamID"))
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, team)
}

func (h *TeamHandler) resetAll(w http.ResponseWriter, r *http.Request) {
	n, err := h.teamService.ResetAllTeams(r.Context())
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	hlog.FromRequest(r).Warn().Int("teams", n).Msg("all teams reset")
	common.RespondWithJSON(w, http.StatusOK, map[string]int{"reset": n})
}
