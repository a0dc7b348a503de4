package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"secops-service/internal/service"
)

// IncidentHandler handles HTTP requests for incident responses
type IncidentHandler struct {
	svc *service.IncidentService
}

func NewIncidentHandler(svc *service.IncidentService) *IncidentHandler {
	return &IncidentHandler{svc: svc}
}

func (h *IncidentHandler) RegisterRoutes(router chi.Router) {
	router.Route("/security/incidents", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Get("/{incidentID}", h.Get)
		r.Patch("/{incidentID}/status", h.UpdateStatus)
	})
}

func (h *IncidentHandler) Create(w http.ResponseWriter, r *http.Request) {
	identity := identityFromContext(r.Context())

	var req service.IncidentCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, err, "Invalid request body")
		return
	}

	incident, err := h.svc.Create(r.Context(), identity, &req)
	if err != nil {
		respondWithError(w, getStatusCode(err), err, "Failed to create incident")
		return
	}

	respondWithJSON(w, http.StatusCreated, successResponse(incident, "Incident created"))
}

func (h *IncidentHandler) List(w http.ResponseWriter, r *http.Request) {
	identity := identityFromContext(r.Context())

	limit, err := limitParam(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err, "Invalid limit parameter")
		return
	}
	query := r.URL.Query()

	incidents, err := h.svc.List(r.Context(), identity, service.IncidentListFilter{
		Status:   query.Get("status"),
		Priority: query.Get("priority"),
		Limit:    limit,
	})
	if err != nil {
		respondWithError(w, getStatusCode(err), err, "Failed to list incidents")
		return
	}

	respondWithJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    incidents,
		Meta:    &Meta{Total: len(incidents)},
	})
}

func (h *IncidentHandler) Get(w http.ResponseWriter, r *http.Request) {
	identity := identityFromContext(r.Context())
	incidentID := chi.URLParam(r, "incidentID")

	incident, err := h.svc.Get(r.Context(), identity, incidentID)
	if err != nil {
		respondWithError(w, getStatusCode(err), err, "Failed to get incident")
		return
	}

	respondWithJSON(w, http.StatusOK, successResponse(incident, "Incident retrieved"))
}

func (h *IncidentHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	identity := identityFromContext(r.Context())
	incidentID := chi.URLParam(r, "incidentID")

	var req struct {
		Status string `json:"status"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, err, "Invalid request body")
		return
	}

	incident, err := h.svc.UpdateStatus(r.Context(), identity, incidentID, req.Status)
	if err != nil {
		respondWithError(w, getStatusCode(err), err, "Failed to update incident status")
		return
	}

	respondWithJSON(w, http.StatusOK, successResponse(incident, "Incident status updated"))
}
