package handler

import (
	"encoding/json"
	"net/http"
	"shuffle_arena/internal/app/service"
	"shuffle_arena/internal/common"
	"shuffle_arena/internal/domain/model"

	"github.com/go-chi/chi/v5"
)

// ProblemHandler manages the problem catalog. Mounted under the admin group.
type ProblemHandler struct {
	problemService *service.ProblemService
}

func NewProblemHandler(ps *service.ProblemService) *ProblemHandler {
	return &ProblemHandler{problemService: ps}
}

func (h *ProblemHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.listProblems)
	r.Post("/", h.createProblem)
	r.Get("/{problemID}", h.getProblem)
	r.Put("/{problemID}", h.updateProblem)
	r.Delete("/{problemID}", h.deleteProblem)
}

func (h *ProblemHandler) createProblem(w http.ResponseWriter, r *http.Request) {
	var req service.ProblemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}

	problem, err := h.problemService.CreateProblem(r.Context(), req)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, problem)
}

func (h *ProblemHandler) updateProblem(w http.ResponseWriter, r *http.Request) {
	var req service.ProblemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}

	problem, err := h.problemService.UpdateProblem(r.Context(), chi.URLParam(r, "problemID"), req)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, problem)
}

func (h *ProblemHandler) listProblems(w http.ResponseWriter, r *http.Request) {
	difficulty := model.ProblemDifficulty(r.URL.Query().Get("difficulty"))

	problems, err := h.problemService.ListProblems(r.Context(), difficulty)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	type problemsResponse struct {
		Problems []model.Problem `json:"problems"`
		Total    int             `json:"total"`
	}
	common.RespondWithJSON(w, http.StatusOK, problemsResponse{Problems: problems, Total: len(problems)})
}

func (h *ProblemHandler) getProblem(w http.ResponseWriter, r *http.Request) {
	problem, err := h.problemService.GetProblem(r.Context(), chi.URLParam(r, "problemID"))
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, problem)
}

func (h *ProblemHandler) deleteProblem(w http.ResponseWriter, r *http.Request) {
	if err := h.problemService.DeleteProblem(r.Context(), chi.URLParam(r, "problemID")); err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
