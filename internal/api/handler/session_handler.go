package handler

import (
	"encoding/json"
	"net/http"
	"shuffle_arena/internal/api/middleware"
	"shuffle_arena/internal/app/service"
	"shuffle_arena/internal/common"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// SessionHandler exposes the round engine to team members.
type SessionHandler struct {
	rounds *service.RoundService
}

func NewSessionHandler(rounds *service.RoundService) *SessionHandler {
	return &SessionHandler{rounds: rounds}
}

// RegisterRoutes mounts login publicly and everything else behind a member token.
func (h *SessionHandler) RegisterRoutes(r chi.Router) {
	r.Post("/login", h.login)

	r.Group(func(member chi.Router) {
		member.Use(middleware.MemberAuthenticator)
		member.Post("/start", h.start)
		member.Put("/code", h.saveCode)
		member.Post("/rotate", h.rotate)
		member.Post("/run", h.run)
		member.Get("/shuffle", h.checkShuffle)
		member.Post("/expire", h.expire)
	})
}

type loginRequest struct {
	TeamName string `json:"team_name"`
	Member   string `json:"member"`
}

type saveCodeRequest struct {
	ProblemID string `json:"problem_id"`
	Language  string `json:"language"`
	Code      string `json:"code"`
}

type runRequest struct {
	Language string `json:"language"`
	Code     string `json:"code"`
}

func (h *SessionHandler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	res, err := h.rounds.Login(r.Context(), req.TeamName, req.Member)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, res)
}

// identity reads the member set by MemberAuthenticator.
func identity(w http.ResponseWriter, r *http.Request) (teamID, member string, ok bool) {
	teamID, ok1 := middleware.GetTeamIDFromContext(r.Context())
	member, ok2 := middleware.GetMemberFromContext(r.Context())
	if !ok1 || !ok2 {
		common.RespondWithError(w, http.StatusUnauthorized, "Missing member context")
		return "", "", false
	}
	return teamID, member, true
}

func (h *SessionHandler) start(w http.ResponseWriter, r *http.Request) {
	teamID, member, ok := identity(w, r)
	if !ok {
		return
	}
	view, err := h.rounds.StartSession(r.Context(), teamID, member)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, view)
}

func (h *SessionHandler) saveCode(w http.ResponseWriter, r *http.Request) {
	teamID, member, ok := identity(w, r)
	if !ok {
		return
	}
	var req saveCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	res, err := h.rounds.SaveCode(r.Context(), teamID, member, req.ProblemID, req.Language, req.Code)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, res)
}

func (h *SessionHandler) rotate(w http.ResponseWriter, r *http.Request) {
	teamID, _, ok := identity(w, r)
	if !ok {
		return
	}
	res, err := h.rounds.Rotate(r.Context(), teamID)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, res)
}

func (h *SessionHandler) run(w http.ResponseWriter, r *http.Request) {
	teamID, member, ok := identity(w, r)
	if !ok {
		return
	}
	var req runRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	res, err := h.rounds.Run(r.Context(), teamID, member, req.Code, req.Language)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, res)
}

func (h *SessionHandler) checkShuffle(w http.ResponseWriter, r *http.Request) {
	teamID, member, ok := identity(w, r)
	if !ok {
		return
	}
	clientRound, err := strconv.Atoi(r.URL.Query().Get("client_round"))
	if err != nil || clientRound < 0 {
		common.RespondWithError(w, http.StatusBadRequest, "client_round must be a non-negative integer")
		return
	}
	res, err := h.rounds.CheckShuffle(r.Context(), teamID, member, clientRound)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, res)
}

func (h *SessionHandler) expire(w http.ResponseWriter, r *http.Request) {
	teamID, member, ok := identity(w, r)
	if !ok {
		return
	}
	view, err := h.rounds.ExpireEvent(r.Context(), teamID, member)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, view)
}
