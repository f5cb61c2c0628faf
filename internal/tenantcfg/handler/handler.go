// Package handler exposes the tenant policy admin endpoints.
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"certtrack/internal/tenantcfg/models"
	"certtrack/internal/tenantcfg/service"
	"certtrack/internal/transport/http/shared"
	dErrors "certtrack/pkg/domain-errors"
	"certtrack/pkg/requestcontext"
)

// Handler handles tenant config endpoints.
type Handler struct {
	configs *service.Service
	logger  *slog.Logger
}

// New creates a tenant config Handler.
func New(configs *service.Service, logger *slog.Logger) *Handler {
	return &Handler{configs: configs, logger: logger}
}

// Register mounts the tenant config routes. The router already enforces
// authentication.
func (h *Handler) Register(r chi.Router) {
	r.Get("/tenant-config", h.handleGet)
	r.Put("/tenant-config", h.handleUpdate)
}

type configResponse struct {
	ReminderOffsetDays    []int `json:"reminder_offset_days"`
	ExpiringThresholdDays int   `json:"expiring_threshold_days"`
}

func toConfigResponse(cfg *models.TenantConfig) configResponse {
	return configResponse{
		ReminderOffsetDays:    cfg.ReminderOffsetDays,
		ExpiringThresholdDays: cfg.ExpiringThresholdDays,
	}
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.configs.Get(r.Context())
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toConfigResponse(cfg))
}

type updateRequest struct {
	ReminderOffsetDays    []int `json:"reminder_offset_days"`
	ExpiringThresholdDays int   `json:"expiring_threshold_days"`
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	cfg, err := h.configs.Update(ctx, service.UpdateParams{
		ReminderOffsetDays:    req.ReminderOffsetDays,
		ExpiringThresholdDays: req.ExpiringThresholdDays,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "update tenant config failed",
			"request_id", requestcontext.RequestID(ctx), "error", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toConfigResponse(cfg))
}
