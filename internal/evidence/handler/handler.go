// Package handler exposes evidence upload and review endpoints for
// authenticated users.
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"certtrack/internal/evidence/models"
	"certtrack/internal/evidence/service"
	"certtrack/internal/transport/http/shared"
	id "certtrack/pkg/domain"
	dErrors "certtrack/pkg/domain-errors"
	"certtrack/pkg/requestcontext"
)

// Handler handles evidence endpoints.
type Handler struct {
	evidence *service.Service
	logger   *slog.Logger
}

// New creates an evidence Handler.
func New(evidence *service.Service, logger *slog.Logger) *Handler {
	return &Handler{evidence: evidence, logger: logger}
}

// Register mounts the evidence routes. The router already enforces
// authentication.
func (h *Handler) Register(r chi.Router) {
	r.Post("/certs/{certID}/evidence", h.handleIssueSlot)
	r.Post("/evidence/{evidenceID}/finalize", h.handleFinalize)
	r.Get("/evidence/{evidenceID}", h.handleGet)
	r.Post("/certs/{certID}/evidence/{evidenceID}/approve", h.handleApprove)
	r.Post("/certs/{certID}/evidence/{evidenceID}/reject", h.handleReject)
	r.Put("/certs/{certID}/current-evidence", h.handleSetCurrent)
}

type issueSlotRequest struct {
	FileName    string `json:"file_name"`
	ContentType string `json:"content_type"`
}

type slotResponse struct {
	Evidence  evidenceResponse `json:"evidence"`
	UploadURL string           `json:"upload_url"`
}

type evidenceResponse struct {
	ID              string     `json:"id"`
	CertID          string     `json:"cert_id"`
	FileName        string     `json:"file_name"`
	ContentType     string     `json:"content_type"`
	Size            *int64     `json:"size,omitempty"`
	Checksum        *string    `json:"checksum,omitempty"`
	UploadedAt      *time.Time `json:"uploaded_at,omitempty"`
	Status          string     `json:"status"`
	RejectionReason string     `json:"rejection_reason,omitempty"`
}

func toEvidenceResponse(evidence *models.Evidence) evidenceResponse {
	return evidenceResponse{
		ID:              evidence.ID.String(),
		CertID:          evidence.CertID.String(),
		FileName:        evidence.FileName,
		ContentType:     evidence.ContentType,
		Size:            evidence.Size,
		Checksum:        evidence.Checksum,
		UploadedAt:      evidence.UploadedAt,
		Status:          string(evidence.Status),
		RejectionReason: evidence.RejectionReason,
	}
}

func (h *Handler) handleIssueSlot(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	certID, err := id.ParseCertificationID(chi.URLParam(r, "certID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	var req issueSlotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	slot, err := h.evidence.IssueUploadSlot(ctx, certID, req.FileName, req.ContentType)
	if err != nil {
		h.logger.WarnContext(ctx, "issue upload slot failed",
			"request_id", requestcontext.RequestID(ctx), "cert_id", certID, "error", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, slotResponse{
		Evidence:  toEvidenceResponse(slot.Evidence),
		UploadURL: slot.UploadURL,
	})
}

type finalizeRequest struct {
	Checksum string `json:"checksum"`
	Size     int64  `json:"size"`
}

func (h *Handler) handleFinalize(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	evidenceID, err := id.ParseEvidenceID(chi.URLParam(r, "evidenceID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	var req finalizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	evidence, err := h.evidence.FinalizeUpload(ctx, evidenceID, req.Checksum, req.Size)
	if err != nil {
		h.logger.WarnContext(ctx, "finalize upload failed",
			"request_id", requestcontext.RequestID(ctx), "evidence_id", evidenceID, "error", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toEvidenceResponse(evidence))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	evidenceID, err := id.ParseEvidenceID(chi.URLParam(r, "evidenceID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	evidence, err := h.evidence.Get(r.Context(), evidenceID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toEvidenceResponse(evidence))
}

func (h *Handler) handleApprove(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	certID, evidenceID, err := pathIDs(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	evidence, err := h.evidence.Approve(ctx, certID, evidenceID)
	if err != nil {
		h.logger.WarnContext(ctx, "approve evidence failed",
			"request_id", requestcontext.RequestID(ctx), "evidence_id", evidenceID, "error", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toEvidenceResponse(evidence))
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) handleReject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	certID, evidenceID, err := pathIDs(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	var req rejectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	evidence, err := h.evidence.Reject(ctx, certID, evidenceID, req.Reason)
	if err != nil {
		h.logger.WarnContext(ctx, "reject evidence failed",
			"request_id", requestcontext.RequestID(ctx), "evidence_id", evidenceID, "error", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toEvidenceResponse(evidence))
}

type setCurrentRequest struct {
	EvidenceID string `json:"evidence_id"`
}

func (h *Handler) handleSetCurrent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	certID, err := id.ParseCertificationID(chi.URLParam(r, "certID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	var req setCurrentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	evidenceID, err := id.ParseEvidenceID(req.EvidenceID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	cert, err := h.evidence.SetCurrent(ctx, certID, evidenceID)
	if err != nil {
		h.logger.WarnContext(ctx, "set current evidence failed",
			"request_id", requestcontext.RequestID(ctx), "evidence_id", evidenceID, "error", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]string{
		"cert_id":             cert.ID.String(),
		"current_evidence_id": cert.CurrentEvidenceID.String(),
	})
}

func pathIDs(r *http.Request) (id.CertificationID, id.EvidenceID, error) {
	certID, err := id.ParseCertificationID(chi.URLParam(r, "certID"))
	if err != nil {
		return id.CertificationID{}, id.EvidenceID{}, err
	}
	evidenceID, err := id.ParseEvidenceID(chi.URLParam(r, "evidenceID"))
	if err != nil {
		return id.CertificationID{}, id.EvidenceID{}, err
	}
	return certID, evidenceID, nil
}
