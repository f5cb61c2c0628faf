// Package handler exposes the magic-link surface: admin issuance routes and
// the public token-authenticated upload routes.
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"certtrack/internal/magiclink/models"
	"certtrack/internal/magiclink/service"
	"certtrack/internal/transport/http/shared"
	id "certtrack/pkg/domain"
	dErrors "certtrack/pkg/domain-errors"
	"certtrack/pkg/requestcontext"
)

// Handler handles magic-link endpoints.
type Handler struct {
	links  *service.Service
	logger *slog.Logger
}

// New creates a magic-link Handler.
func New(links *service.Service, logger *slog.Logger) *Handler {
	return &Handler{links: links, logger: logger}
}

// RegisterAdmin mounts the authenticated issuance routes.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Post("/certs/{certID}/upload-link", h.handleIssueLink)
	r.Post("/certs/{certID}/reupload-request", h.handleRequestReupload)
}

// RegisterPublic mounts the token-authenticated upload routes. The token in
// the path is the only credential; no session middleware applies.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Post("/upload/{token}/evidence", h.handleCreateEvidence)
	r.Post("/upload/{token}/evidence/{evidenceID}/finalize", h.handleFinalize)
}

type issueLinkRequest struct {
	TTLHours int `json:"ttl_hours,omitempty"`
}

type linkResponse struct {
	Token     string    `json:"token"`
	CertID    string    `json:"cert_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

func toLinkResponse(link *models.MagicLink) linkResponse {
	return linkResponse{
		Token:     link.Token.String(),
		CertID:    link.CertID.String(),
		ExpiresAt: link.ExpiresAt,
	}
}

func (h *Handler) handleIssueLink(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	certID, err := id.ParseCertificationID(chi.URLParam(r, "certID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	var req issueLinkRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
			return
		}
	}

	link, err := h.links.IssueLink(ctx, certID, time.Duration(req.TTLHours)*time.Hour)
	if err != nil {
		h.logger.WarnContext(ctx, "issue upload link failed",
			"request_id", requestcontext.RequestID(ctx), "cert_id", certID, "error", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, toLinkResponse(link))
}

func (h *Handler) handleRequestReupload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	certID, err := id.ParseCertificationID(chi.URLParam(r, "certID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	link, err := h.links.RequestReupload(ctx, certID)
	if err != nil {
		h.logger.WarnContext(ctx, "re-upload request failed",
			"request_id", requestcontext.RequestID(ctx), "cert_id", certID, "error", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, toLinkResponse(link))
}

type createEvidenceRequest struct {
	FileName    string `json:"file_name"`
	ContentType string `json:"content_type"`
}

func (h *Handler) handleCreateEvidence(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	token, err := id.ParseLinkToken(chi.URLParam(r, "token"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	var req createEvidenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	slot, err := h.links.CreateEvidenceViaLink(ctx, token, req.FileName, req.ContentType)
	if err != nil {
		h.logger.WarnContext(ctx, "create evidence via link failed",
			"request_id", requestcontext.RequestID(ctx), "error", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, map[string]string{
		"evidence_id": slot.Evidence.ID.String(),
		"upload_url":  slot.UploadURL,
	})
}

type finalizeViaLinkRequest struct {
	Checksum string `json:"checksum"`
	Size     int64  `json:"size"`
}

func (h *Handler) handleFinalize(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	token, err := id.ParseLinkToken(chi.URLParam(r, "token"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	evidenceID, err := id.ParseEvidenceID(chi.URLParam(r, "evidenceID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	var req finalizeViaLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	evidence, err := h.links.FinalizeViaLink(ctx, token, evidenceID, req.Checksum, req.Size)
	if err != nil {
		h.logger.WarnContext(ctx, "finalize via link failed",
			"request_id", requestcontext.RequestID(ctx), "evidence_id", evidenceID, "error", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]string{
		"evidence_id": evidence.ID.String(),
		"status":      string(evidence.Status),
	})
}
