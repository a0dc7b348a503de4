package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"secops-service/internal/service"
)

// GDPRHandler handles HTTP requests for the data-request lifecycle
type GDPRHandler struct {
	svc *service.GDPRService
}

func NewGDPRHandler(svc *service.GDPRService) *GDPRHandler {
	return &GDPRHandler{svc: svc}
}

// RegisterPublicRoutes mounts the unauthenticated submission endpoint. A data
// subject must not need an account to exercise their rights.
func (h *GDPRHandler) RegisterPublicRoutes(router chi.Router) {
	router.Post("/security/gdpr/data-request", h.Submit)
}

func (h *GDPRHandler) RegisterRoutes(router chi.Router) {
	router.Get("/security/gdpr/data-requests", h.List)
	router.Get("/security/gdpr/data-request/{requestID}", h.Get)
	router.Post("/security/gdpr/data-request/{requestID}/process", h.Process)
}

func (h *GDPRHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req service.DataRequestSubmission
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, err, "Invalid request body")
		return
	}

	request, err := h.svc.Submit(r.Context(), &req)
	if err != nil {
		respondWithError(w, getStatusCode(err), err, "Failed to submit data request")
		return
	}

	respondWithJSON(w, http.StatusCreated, successResponse(request, "Data request submitted"))
}

func (h *GDPRHandler) List(w http.ResponseWriter, r *http.Request) {
	identity := identityFromContext(r.Context())

	limit, err := limitParam(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err, "Invalid limit parameter")
		return
	}

	requests, err := h.svc.List(r.Context(), identity, service.DataRequestListFilter{
		Status: r.URL.Query().Get("status"),
		Limit:  limit,
	})
	if err != nil {
		respondWithError(w, getStatusCode(err), err, "Failed to list data requests")
		return
	}

	respondWithJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    requests,
		Meta:    &Meta{Total: len(requests)},
	})
}

func (h *GDPRHandler) Get(w http.ResponseWriter, r *http.Request) {
	identity := identityFromContext(r.Context())
	requestID := chi.URLParam(r, "requestID")

	request, err := h.svc.Get(r.Context(), identity, requestID)
	if err != nil {
		respondWithError(w, getStatusCode(err), err, "Failed to get data request")
		return
	}

	respondWithJSON(w, http.StatusOK, successResponse(request, "Data request retrieved"))
}

// Process triggers the request-type dispatch. The transition is consumed
// even when the dispatch fails, so a second call always conflicts.
func (h *GDPRHandler) Process(w http.ResponseWriter, r *http.Request) {
	identity := identityFromContext(r.Context())
	requestID := chi.URLParam(r, "requestID")

	request, err := h.svc.Process(r.Context(), identity, requestID)
	if err != nil {
		respondWithError(w, getStatusCode(err), err, "Failed to process data request")
		return
	}

	respondWithJSON(w, http.StatusOK, successResponse(request, "Data request processed"))
}
