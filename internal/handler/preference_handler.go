package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"secops-service/internal/service"
)

// PreferenceHandler handles HTTP requests for security preferences
type PreferenceHandler struct {
	svc *service.PreferenceService
}

func NewPreferenceHandler(svc *service.PreferenceService) *PreferenceHandler {
	return &PreferenceHandler{svc: svc}
}

func (h *PreferenceHandler) RegisterRoutes(router chi.Router) {
	router.Get("/security/preferences", h.Get)
	router.Post("/security/preferences", h.Update)
}

func (h *PreferenceHandler) Get(w http.ResponseWriter, r *http.Request) {
	identity := identityFromContext(r.Context())
	subject := subjectFromRequest(r, identity)

	pref, err := h.svc.Get(r.Context(), identity, subject)
	if err != nil {
		respondWithError(w, getStatusCode(err), err, "Failed to get security preferences")
		return
	}

	respondWithJSON(w, http.StatusOK, successResponse(pref, "Security preferences retrieved"))
}

func (h *PreferenceHandler) Update(w http.ResponseWriter, r *http.Request) {
	identity := identityFromContext(r.Context())

	var req struct {
		UserID   string `json:"user_id,omitempty"`
		UserType string `json:"user_type,omitempty"`
		service.PreferenceUpdateRequest
	}
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, err, "Invalid request body")
		return
	}
	subject := subjectFromPayload(identity, req.UserID, req.UserType)

	pref, err := h.svc.Update(r.Context(), identity, subject, &req.PreferenceUpdateRequest)
	if err != nil {
		respondWithError(w, getStatusCode(err), err, "Failed to update security preferences")
		return
	}

	respondWithJSON(w, http.StatusOK, successResponse(pref, "Security preferences updated"))
}
