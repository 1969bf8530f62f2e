package handler

import (
	"encoding/json"
	"net/http"
	"shuffle_arena/internal/app/service"
	"shuffle_arena/internal/common"

	"github.com/go-chi/chi/v5"
)

type SettingsHandler struct {
	settingsService *service.SettingsService
}

func NewSettingsHandler(ss *service.SettingsService) *SettingsHandler {
	return &SettingsHandler{settingsService: ss}
}

func (h *SettingsHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.getSettings)
	r.Put("/", h.updateSettings)
}

func (h *SettingsHandler) getSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.settingsService.GetSettings(r.Context())
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, settings)
}

func (h *SettingsHandler) updateSettings(w http.ResponseWriter, r *http.Request) {
	var req service.UpdateSettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	settings, err := h.settingsService.UpdateSettings(r.Context(), req)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, settings)
}
