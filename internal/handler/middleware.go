package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"secops-service/internal/models"
	"secops-service/internal/service"
	"secops-service/internal/util"
)

type contextKey string

const identityKey contextKey = "identity"

// AuthMiddleware resolves the bearer token to an admin identity and stores
// it on the request context. Requests without a valid token get 401.
func AuthMiddleware(auth *service.AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			identity, err := auth.ResolveIdentity(r.Context(), token)
			if err != nil {
				respondWithError(w, getStatusCode(err), err, "Authentication failed")
				return
			}

			ctx := context.WithValue(r.Context(), identityKey, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func identityFromContext(ctx context.Context) *models.Identity {
	identity, _ := ctx.Value(identityKey).(*models.Identity)
	return identity
}

// subjectFromPayload builds the target subject from body fields, falling back
// to the caller's own identity when the body names no subject.
func subjectFromPayload(identity *models.Identity, userID, userType string) models.Subject {
	if userID == "" && identity != nil {
		return models.Subject{UserID: identity.AdminID, UserType: models.UserTypeAdmin}
	}
	if userType == "" {
		userType = models.UserTypeAdmin
	}
	return models.Subject{UserID: userID, UserType: userType}
}

// subjectFromRequest reads the target subject from query parameters, falling
// back to the caller's own identity when none is named.
func subjectFromRequest(r *http.Request, identity *models.Identity) models.Subject {
	userID := r.URL.Query().Get("user_id")
	userType := r.URL.Query().Get("user_type")
	if userID == "" && identity != nil {
		return models.Subject{UserID: identity.AdminID, UserType: models.UserTypeAdmin}
	}
	if userType == "" {
		userType = models.UserTypeAdmin
	}
	return models.Subject{UserID: userID, UserType: userType}
}

// LoggerMiddleware creates a middleware that logs HTTP requests
func LoggerMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			defer func() {
				logger.Info("HTTP request",
					util.String("method", r.Method),
					util.String("path", r.URL.Path),
					util.String("remote_addr", r.RemoteAddr),
					util.Int("status", ww.Status()),
					util.Duration("duration", time.Since(start)),
					util.String("user_agent", r.UserAgent()),
				)
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
