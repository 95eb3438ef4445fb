// internal/handler/campaign_handler.go
package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	appErrors "github.com/casamarket/wacampaigns-backend/internal/errors"
	"github.com/casamarket/wacampaigns-backend/internal/service"
)

// CampaignHandler exposes the campaign lifecycle over HTTP. Every
// response is a {success, message, ...} envelope.
type CampaignHandler struct {
	Service *service.CampaignService
	Log     *zap.SugaredLogger
}

func NewCampaignHandler(svc *service.CampaignService, log *zap.SugaredLogger) *CampaignHandler {
	return &CampaignHandler{Service: svc, Log: log}
}

// Routes mounts the campaign endpoints on a chi router.
func (h *CampaignHandler) Routes(r chi.Router) {
	r.Post("/campaigns", h.Create)
	r.Get("/campaigns", h.List)
	r.Get("/campaigns/{id}", h.Get)
	r.Put("/campaigns/{id}", h.Update)
	r.Delete("/campaigns/{id}", h.Delete)
	r.Post("/campaigns/{id}/start", h.Start)
	r.Post("/campaigns/{id}/pause", h.Pause)
	r.Post("/campaigns/{id}/resume", h.Resume)
	r.Post("/campaigns/{id}/reset", h.Reset)
}

func (h *CampaignHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req service.CreateCampaignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	campaign, err := h.Service.CreateCampaign(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"success":  true,
		"message":  "campaign created",
		"campaign": campaign,
	})
}

func (h *CampaignHandler) List(w http.ResponseWriter, r *http.Request) {
	views, err := h.Service.ListCampaigns()
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"message":   "ok",
		"campaigns": views,
	})
}

func (h *CampaignHandler) Get(w http.ResponseWriter, r *http.Request) {
	campaign, err := h.Service.GetCampaign(chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"message":  "ok",
		"campaign": campaign,
	})
}

func (h *CampaignHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req service.UpdateCampaignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	campaign, err := h.Service.UpdateCampaign(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"message":  "campaign updated",
		"campaign": campaign,
	})
}

func (h *CampaignHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.DeleteCampaign(chi.URLParam(r, "id")); err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "campaign deleted",
	})
}

func (h *CampaignHandler) Start(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.Service.StartCampaign(id); err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "campaign started",
	})
}

func (h *CampaignHandler) Pause(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.PauseCampaign(chi.URLParam(r, "id")); err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "campaign paused",
	})
}

func (h *CampaignHandler) Resume(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.ResumeCampaign(chi.URLParam(r, "id")); err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "campaign resumed",
	})
}

func (h *CampaignHandler) Reset(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.ResetCampaign(chi.URLParam(r, "id")); err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "campaign reset",
	})
}

func (h *CampaignHandler) writeServiceError(w http.ResponseWriter, err error) {
	var notFound *appErrors.ErrCampaignNotFound
	var validation *appErrors.ErrValidation
	switch {
	case errors.As(err, &notFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &validation):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.Log.Errorw("campaign operation failed", "err", err)
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{
		"success": false,
		"message": message,
	})
}
