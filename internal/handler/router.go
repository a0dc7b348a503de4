package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"secops-service/internal/config"
	"secops-service/internal/service"
	"secops-service/internal/util"
)

// Handlers bundles every HTTP handler the router mounts.
type Handlers struct {
	Auth         *service.AuthService
	TwoFactor    *TwoFactorHandler
	Threat       *ThreatHandler
	Incident     *IncidentHandler
	GDPR         *GDPRHandler
	Session      *SessionHandler
	Notification *NotificationHandler
	Preference   *PreferenceHandler
	Dashboard    *DashboardHandler
}

// requireHTTPS rejects any request that wasn't made over TLS
func requireHTTPS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.TLS == nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUpgradeRequired)
			w.Write([]byte(`{"error":"https required"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// NewRouter creates and configures the Chi router with all middleware and routes
func NewRouter(cfg *config.Config, h *Handlers, logger *zap.Logger) chi.Router {
	router := chi.NewRouter()

	if cfg.Server.EnableTLS {
		router.Use(requireHTTPS)
	}

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(LoggerMiddleware(logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		util.Info("Health check requested")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy","service":"secops-service"}`))
	})

	router.Route("/api/v1", func(r chi.Router) {
		// Public: GDPR submission needs no account.
		h.GDPR.RegisterPublicRoutes(r)

		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware(h.Auth))

			h.TwoFactor.RegisterRoutes(r)
			h.Threat.RegisterRoutes(r)
			h.Incident.RegisterRoutes(r)
			h.GDPR.RegisterRoutes(r)
			h.Session.RegisterRoutes(r)
			h.Notification.RegisterRoutes(r)
			h.Preference.RegisterRoutes(r)
			h.Dashboard.RegisterRoutes(r)
		})
	})

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"endpoint not found"}`))
	})

	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusMethodNotAllowed)
		w.Write([]byte(`{"error":"method not allowed"}`))
	})

	return router
}
