// Package handler exposes certification admin and read endpoints.
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"certtrack/internal/certification/models"
	"certtrack/internal/certification/service"
	"certtrack/internal/transport/http/shared"
	id "certtrack/pkg/domain"
	dErrors "certtrack/pkg/domain-errors"
	"certtrack/pkg/requestcontext"
)

// Handler handles certification endpoints.
type Handler struct {
	certs  *service.Service
	logger *slog.Logger
}

// New creates a certification Handler.
func New(certs *service.Service, logger *slog.Logger) *Handler {
	return &Handler{certs: certs, logger: logger}
}

// Register mounts the certification routes. The router already enforces
// authentication.
func (h *Handler) Register(r chi.Router) {
	r.Post("/certs", h.handleCreate)
	r.Get("/certs/{certID}", h.handleGet)
	r.Patch("/certs/{certID}/expiry", h.handleUpdateExpiry)
}

type createRequest struct {
	SchoolID    string `json:"school_id"`
	PersonID    string `json:"person_id"`
	CertTypeKey string `json:"cert_type_key"`
	IssueDate   string `json:"issue_date,omitempty"`
	ExpiryDate  string `json:"expiry_date"`
}

type certResponse struct {
	ID                string     `json:"id"`
	SchoolID          string     `json:"school_id"`
	PersonID          string     `json:"person_id"`
	CertTypeKey       string     `json:"cert_type_key"`
	IssueDate         *string    `json:"issue_date,omitempty"`
	ExpiryDate        string     `json:"expiry_date"`
	Status            string     `json:"status"`
	StatusComputedAt  time.Time  `json:"status_computed_at"`
	CurrentEvidenceID *string    `json:"current_evidence_id,omitempty"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

func toCertResponse(cert *models.Certification) certResponse {
	resp := certResponse{
		ID:               cert.ID.String(),
		SchoolID:         cert.SchoolID.String(),
		PersonID:         cert.PersonID.String(),
		CertTypeKey:      cert.CertTypeKey,
		ExpiryDate:       cert.ExpiryDate.UTC().Format("2006-01-02"),
		Status:           string(cert.Status),
		StatusComputedAt: cert.StatusComputedAt,
		UpdatedAt:        cert.UpdatedAt,
	}
	if cert.IssueDate != nil {
		issued := cert.IssueDate.UTC().Format("2006-01-02")
		resp.IssueDate = &issued
	}
	if cert.CurrentEvidenceID != nil {
		evidenceID := cert.CurrentEvidenceID.String()
		resp.CurrentEvidenceID = &evidenceID
	}
	return resp
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	schoolID, err := id.ParseSchoolID(req.SchoolID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	personID, err := id.ParsePersonID(req.PersonID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	expiry, err := parseDate(req.ExpiryDate)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	var issueDate *time.Time
	if req.IssueDate != "" {
		issued, err := parseDate(req.IssueDate)
		if err != nil {
			shared.WriteError(w, err)
			return
		}
		issueDate = &issued
	}

	cert, err := h.certs.Create(ctx, service.CreateParams{
		SchoolID:    schoolID,
		PersonID:    personID,
		CertTypeKey: req.CertTypeKey,
		IssueDate:   issueDate,
		ExpiryDate:  expiry,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "create certification failed",
			"request_id", requestcontext.RequestID(ctx), "error", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, toCertResponse(cert))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	certID, err := id.ParseCertificationID(chi.URLParam(r, "certID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	cert, err := h.certs.Get(r.Context(), certID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toCertResponse(cert))
}

type updateExpiryRequest struct {
	ExpiryDate string `json:"expiry_date"`
}

func (h *Handler) handleUpdateExpiry(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	certID, err := id.ParseCertificationID(chi.URLParam(r, "certID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	var req updateExpiryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	expiry, err := parseDate(req.ExpiryDate)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	cert, err := h.certs.UpdateExpiry(ctx, certID, expiry)
	if err != nil {
		h.logger.WarnContext(ctx, "update expiry failed",
			"request_id", requestcontext.RequestID(ctx), "cert_id", certID, "error", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toCertResponse(cert))
}

func parseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02", s, time.UTC)
	if err != nil {
		return time.Time{}, dErrors.Newf(dErrors.CodeValidation, "date %q must be YYYY-MM-DD", s)
	}
	return t, nil
}
