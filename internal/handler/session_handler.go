package handler

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"secops-service/internal/models"
	"secops-service/internal/service"
)

// SessionHandler handles the action-dispatched session endpoint
type SessionHandler struct {
	svc *service.SessionService
}

func NewSessionHandler(svc *service.SessionService) *SessionHandler {
	return &SessionHandler{svc: svc}
}

type sessionActionRequest struct {
	Action       string `json:"action"`
	UserID       string `json:"user_id"`
	UserType     string `json:"user_type"`
	SessionToken string `json:"session_token,omitempty"`
	IPAddress    string `json:"ip_address,omitempty"`
	UserAgent    string `json:"user_agent,omitempty"`
}

func (h *SessionHandler) RegisterRoutes(router chi.Router) {
	router.Post("/security/session", h.Dispatch)
	router.Get("/security/sessions", h.ListSessions)
}

// Dispatch routes one session action. Unknown actions are rejected with 400.
func (h *SessionHandler) Dispatch(w http.ResponseWriter, r *http.Request) {
	identity := identityFromContext(r.Context())

	var req sessionActionRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, err, "Invalid request body")
		return
	}

	subject := models.Subject{UserID: req.UserID, UserType: req.UserType}
	activity := &service.SessionActivityRequest{
		SessionToken: req.SessionToken,
		IPAddress:    req.IPAddress,
		UserAgent:    req.UserAgent,
	}

	switch req.Action {
	case models.SessionTrackActivity:
		if err := h.svc.Track(r.Context(), identity, subject, activity); err != nil {
			respondWithError(w, getStatusCode(err), err, "Failed to track session activity")
			return
		}
		respondWithJSON(w, http.StatusOK, successResponse(nil, "Session activity tracked"))

	case models.SessionUpdateActivity:
		if err := h.svc.Update(r.Context(), identity, subject, activity); err != nil {
			respondWithError(w, getStatusCode(err), err, "Failed to update session activity")
			return
		}
		respondWithJSON(w, http.StatusOK, successResponse(nil, "Session activity updated"))

	case models.SessionDetectSuspicious:
		result, err := h.svc.DetectSuspicious(r.Context(), identity, subject)
		if err != nil {
			respondWithError(w, getStatusCode(err), err, "Failed to run suspicious activity check")
			return
		}
		respondWithJSON(w, http.StatusOK, successResponse(result, "Suspicious activity check complete"))

	case models.SessionInvalidateSessions:
		count, err := h.svc.Invalidate(r.Context(), identity, subject)
		if err != nil {
			respondWithError(w, getStatusCode(err), err, "Failed to invalidate sessions")
			return
		}
		respondWithJSON(w, http.StatusOK, successResponse(map[string]int{"invalidated": count}, "Sessions invalidated"))

	default:
		err := fmt.Errorf("unknown session action %q", req.Action)
		respondWithError(w, http.StatusBadRequest, err, "Unknown session action")
	}
}

func (h *SessionHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	identity := identityFromContext(r.Context())
	subject := subjectFromRequest(r, identity)

	sessions, err := h.svc.ListSessions(r.Context(), identity, subject)
	if err != nil {
		respondWithError(w, getStatusCode(err), err, "Failed to list sessions")
		return
	}

	respondWithJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    sessions,
		Meta:    &Meta{Total: len(sessions)},
	})
}
