package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"secops-service/internal/service"
)

// DashboardHandler serves the aggregated security posture and the audit trail
type DashboardHandler struct {
	dashboard  *service.DashboardService
	compliance *service.ComplianceService
}

func NewDashboardHandler(dashboard *service.DashboardService, compliance *service.ComplianceService) *DashboardHandler {
	return &DashboardHandler{
		dashboard:  dashboard,
		compliance: compliance,
	}
}

func (h *DashboardHandler) RegisterRoutes(router chi.Router) {
	router.Get("/security/dashboard", h.Overview)
	router.Get("/security/audit-log", h.AuditLog)
}

func (h *DashboardHandler) Overview(w http.ResponseWriter, r *http.Request) {
	identity := identityFromContext(r.Context())

	overview, err := h.dashboard.Overview(r.Context(), identity)
	if err != nil {
		respondWithError(w, getStatusCode(err), err, "Failed to build dashboard overview")
		return
	}

	respondWithJSON(w, http.StatusOK, successResponse(overview, "Dashboard overview"))
}

func (h *DashboardHandler) AuditLog(w http.ResponseWriter, r *http.Request) {
	identity := identityFromContext(r.Context())
	query := r.URL.Query()

	limit := 0
	if raw := query.Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, err, "Invalid limit")
			return
		}
		limit = parsed
	}

	entries, err := h.compliance.ListAuditTrail(r.Context(), identity, query.Get("day"), limit)
	if err != nil {
		respondWithError(w, getStatusCode(err), err, "Failed to list audit trail")
		return
	}

	respondWithJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    entries,
		Meta:    &Meta{Total: len(entries)},
	})
}
