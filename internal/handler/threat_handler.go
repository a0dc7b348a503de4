package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"secops-service/internal/service"
)

// ThreatHandler handles HTTP requests for the threat detection registry
type ThreatHandler struct {
	svc *service.ThreatService
}

func NewThreatHandler(svc *service.ThreatService) *ThreatHandler {
	return &ThreatHandler{svc: svc}
}

func (h *ThreatHandler) RegisterRoutes(router chi.Router) {
	router.Route("/security/threats", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Record)
		r.Get("/search", h.Search)
		r.Get("/{threatID}", h.Get)
		r.Patch("/{threatID}/status", h.UpdateStatus)
	})
}

func (h *ThreatHandler) Record(w http.ResponseWriter, r *http.Request) {
	identity := identityFromContext(r.Context())

	var req service.ThreatCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, err, "Invalid request body")
		return
	}

	threat, err := h.svc.Record(r.Context(), identity, &req)
	if err != nil {
		respondWithError(w, getStatusCode(err), err, "Failed to record threat")
		return
	}

	respondWithJSON(w, http.StatusCreated, successResponse(threat, "Threat recorded"))
}

func (h *ThreatHandler) List(w http.ResponseWriter, r *http.Request) {
	identity := identityFromContext(r.Context())

	limit, err := limitParam(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err, "Invalid limit parameter")
		return
	}
	query := r.URL.Query()

	threats, err := h.svc.List(r.Context(), identity, service.ThreatListFilter{
		Status:   query.Get("status"),
		Severity: query.Get("severity"),
		Limit:    limit,
	})
	if err != nil {
		respondWithError(w, getStatusCode(err), err, "Failed to list threats")
		return
	}

	respondWithJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    threats,
		Meta:    &Meta{Total: len(threats)},
	})
}

func (h *ThreatHandler) Get(w http.ResponseWriter, r *http.Request) {
	identity := identityFromContext(r.Context())
	threatID := chi.URLParam(r, "threatID")

	threat, err := h.svc.Get(r.Context(), identity, threatID)
	if err != nil {
		respondWithError(w, getStatusCode(err), err, "Failed to get threat")
		return
	}

	respondWithJSON(w, http.StatusOK, successResponse(threat, "Threat retrieved"))
}

func (h *ThreatHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	identity := identityFromContext(r.Context())
	threatID := chi.URLParam(r, "threatID")

	var req struct {
		Status string `json:"status"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, err, "Invalid request body")
		return
	}

	threat, err := h.svc.UpdateStatus(r.Context(), identity, threatID, req.Status)
	if err != nil {
		respondWithError(w, getStatusCode(err), err, "Failed to update threat status")
		return
	}

	respondWithJSON(w, http.StatusOK, successResponse(threat, "Threat status updated"))
}

func (h *ThreatHandler) Search(w http.ResponseWriter, r *http.Request) {
	identity := identityFromContext(r.Context())
	query := r.URL.Query()

	threats, err := h.svc.Search(r.Context(), identity,
		query.Get("q"), query.Get("severity"), query.Get("status"))
	if err != nil {
		respondWithError(w, getStatusCode(err), err, "Threat search failed")
		return
	}

	respondWithJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    threats,
		Meta:    &Meta{Total: len(threats)},
	})
}
