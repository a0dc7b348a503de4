package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"secops-service/internal/service"
)

// NotificationHandler handles HTTP requests for security notifications
type NotificationHandler struct {
	svc *service.NotificationService
}

func NewNotificationHandler(svc *service.NotificationService) *NotificationHandler {
	return &NotificationHandler{svc: svc}
}

func (h *NotificationHandler) RegisterRoutes(router chi.Router) {
	router.Route("/security/notifications", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Post("/{notificationID}/read", h.MarkRead)
		r.Post("/mark-all-read", h.MarkAllRead)
	})
}

func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	identity := identityFromContext(r.Context())
	subject := subjectFromRequest(r, identity)

	notifications, err := h.svc.List(r.Context(), identity, subject)
	if err != nil {
		respondWithError(w, getStatusCode(err), err, "Failed to list notifications")
		return
	}

	respondWithJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    notifications,
		Meta:    &Meta{Total: len(notifications)},
	})
}

func (h *NotificationHandler) Create(w http.ResponseWriter, r *http.Request) {
	identity := identityFromContext(r.Context())

	var req struct {
		UserID   string `json:"user_id,omitempty"`
		UserType string `json:"user_type,omitempty"`
		service.NotificationCreateRequest
	}
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, err, "Invalid request body")
		return
	}
	subject := subjectFromPayload(identity, req.UserID, req.UserType)

	if err := h.svc.Create(r.Context(), identity, subject, &req.NotificationCreateRequest); err != nil {
		respondWithError(w, getStatusCode(err), err, "Failed to create notification")
		return
	}

	respondWithJSON(w, http.StatusCreated, successResponse(nil, "Notification created"))
}

func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	identity := identityFromContext(r.Context())
	subject := subjectFromRequest(r, identity)
	notificationID := chi.URLParam(r, "notificationID")

	if err := h.svc.MarkRead(r.Context(), identity, subject, notificationID); err != nil {
		respondWithError(w, getStatusCode(err), err, "Failed to mark notification read")
		return
	}

	respondWithJSON(w, http.StatusOK, successResponse(nil, "Notification marked read"))
}

func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	identity := identityFromContext(r.Context())
	subject := subjectFromRequest(r, identity)

	count, err := h.svc.MarkAllRead(r.Context(), identity, subject)
	if err != nil {
		respondWithError(w, getStatusCode(err), err, "Failed to mark notifications read")
		return
	}

	respondWithJSON(w, http.StatusOK, successResponse(map[string]int{"marked": count}, "Notifications marked read"))
}
