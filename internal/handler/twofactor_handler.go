package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"secops-service/internal/service"
)

// TwoFactorHandler handles HTTP requests for the 2FA lifecycle
type TwoFactorHandler struct {
	svc *service.TwoFactorService
}

func NewTwoFactorHandler(svc *service.TwoFactorService) *TwoFactorHandler {
	return &TwoFactorHandler{svc: svc}
}

type twoFactorRequest struct {
	UserID   string `json:"user_id,omitempty"`
	UserType string `json:"user_type,omitempty"`
	Token    string `json:"token,omitempty"`
	Code     string `json:"code,omitempty"`
}

func (h *TwoFactorHandler) RegisterRoutes(router chi.Router) {
	router.Route("/security/2fa", func(r chi.Router) {
		r.Post("/setup", h.Setup)
		r.Post("/verify", h.Verify)
		r.Post("/disable", h.Disable)
		r.Post("/backup-code", h.UseBackupCode)
		r.Get("/status", h.Status)
	})
}

func (h *TwoFactorHandler) Setup(w http.ResponseWriter, r *http.Request) {
	identity := identityFromContext(r.Context())

	var req twoFactorRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, err, "Invalid request body")
		return
	}
	subject := subjectFromPayload(identity, req.UserID, req.UserType)

	setup, err := h.svc.Setup(r.Context(), identity, subject)
	if err != nil {
		respondWithError(w, getStatusCode(err), err, "Failed to start two-factor setup")
		return
	}

	respondWithJSON(w, http.StatusOK, successResponse(setup, "Two-factor setup started"))
}

// Verify proves possession of the secret. The first successful verification
// carries the backup codes, the only time they are shown in plaintext;
// later verifications return an empty set.
func (h *TwoFactorHandler) Verify(w http.ResponseWriter, r *http.Request) {
	identity := identityFromContext(r.Context())

	var req twoFactorRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, err, "Invalid request body")
		return
	}
	subject := subjectFromPayload(identity, req.UserID, req.UserType)

	codes, err := h.svc.Verify(r.Context(), identity, subject, req.Token)
	if err != nil {
		respondWithError(w, getStatusCode(err), err, "Failed to verify two-factor code")
		return
	}

	respondWithJSON(w, http.StatusOK, successResponse(map[string]interface{}{
		"verified":     true,
		"backup_codes": codes,
	}, "Two-factor code verified"))
}

func (h *TwoFactorHandler) Disable(w http.ResponseWriter, r *http.Request) {
	identity := identityFromContext(r.Context())

	var req twoFactorRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, err, "Invalid request body")
		return
	}
	subject := subjectFromPayload(identity, req.UserID, req.UserType)

	if err := h.svc.Disable(r.Context(), identity, subject); err != nil {
		respondWithError(w, getStatusCode(err), err, "Failed to disable two-factor authentication")
		return
	}

	respondWithJSON(w, http.StatusOK, successResponse(nil, "Two-factor authentication disabled"))
}

func (h *TwoFactorHandler) UseBackupCode(w http.ResponseWriter, r *http.Request) {
	identity := identityFromContext(r.Context())

	var req twoFactorRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, err, "Invalid request body")
		return
	}
	subject := subjectFromPayload(identity, req.UserID, req.UserType)

	if err := h.svc.UseBackupCode(r.Context(), identity, subject, req.Code); err != nil {
		respondWithError(w, getStatusCode(err), err, "Backup code rejected")
		return
	}

	respondWithJSON(w, http.StatusOK, successResponse(map[string]bool{"accepted": true}, "Backup code accepted"))
}

func (h *TwoFactorHandler) Status(w http.ResponseWriter, r *http.Request) {
	identity := identityFromContext(r.Context())
	subject := subjectFromRequest(r, identity)

	status, err := h.svc.Status(r.Context(), identity, subject)
	if err != nil {
		respondWithError(w, getStatusCode(err), err, "Failed to get two-factor status")
		return
	}

	respondWithJSON(w, http.StatusOK, successResponse(status, "Two-factor status retrieved"))
}
