package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gocql/gocql"
	"go.uber.org/zap"

	"secops-service/internal/config"
	"secops-service/internal/models"
	"secops-service/internal/repository/scylla"
	"secops-service/internal/util"
)

// TokenStore caches resolved identities keyed by bearer token.
type TokenStore interface {
	GetIdentity(sessionToken string) (*models.Identity, error)
	SetIdentity(sessionToken string, identity *models.Identity, ttl time.Duration) error
	InvalidateUserTokens(userID string) error
}

// AuthService resolves bearer session tokens to admin identities. Sessions
// live in Scylla; resolved identities are cached in Redis for a short TTL so
// the hot path stays off the primary store.
type AuthService struct {
	sessions scylla.AdminSessionRepository
	tokens   TokenStore
	cacheTTL time.Duration
}

func NewAuthService(sessions scylla.AdminSessionRepository, tokens TokenStore, cfg *config.Config) *AuthService {
	return &AuthService{
		sessions: sessions,
		tokens:   tokens,
		cacheTTL: cfg.Security.SessionCacheTTL,
	}
}

func (s *AuthService) ResolveIdentity(ctx context.Context, sessionToken string) (*models.Identity, error) {
	if sessionToken == "" {
		return nil, ErrUnauthorized
	}

	if s.tokens != nil {
		if identity, err := s.tokens.GetIdentity(sessionToken); err == nil {
			return identity, nil
		}
	}

	session, err := s.sessions.Get(ctx, sessionToken)
	if err != nil {
		if gocqlNotFound(err) {
			return nil, ErrUnauthorized
		}
		return nil, fmt.Errorf("failed to resolve session: %w", err)
	}

	now := time.Now().UTC()
	if !session.IsActive || now.After(session.ExpiresAt) {
		return nil, ErrUnauthorized
	}

	identity := &models.Identity{
		AdminID:      session.AdminID,
		Role:         session.Role,
		SessionToken: sessionToken,
	}

	if err := s.sessions.Touch(ctx, sessionToken, now); err != nil {
		util.Warn("Failed to touch admin session",
			zap.String("admin_id", session.AdminID),
			zap.Error(err))
	}

	if s.tokens != nil {
		if err := s.tokens.SetIdentity(sessionToken, identity, s.cacheTTL); err != nil {
			util.Warn("Failed to cache resolved identity",
				zap.String("admin_id", session.AdminID),
				zap.Error(err))
		}
	}

	return identity, nil
}

// RequireManager gates the admin-only surfaces.
func RequireManager(identity *models.Identity) error {
	if identity == nil {
		return ErrUnauthorized
	}
	if !identity.Role.CanManageSecurity() {
		return ErrPermissionDenied
	}
	return nil
}

// RequireSelfOrSuperAdmin gates the per-subject surfaces: a caller may act on
// their own records, a SUPER_ADMIN on anyone's.
func RequireSelfOrSuperAdmin(identity *models.Identity, subject models.Subject) error {
	if identity == nil {
		return ErrUnauthorized
	}
	if identity.Role == models.RoleSuperAdmin {
		return nil
	}
	if subject.UserType == models.UserTypeAdmin && subject.UserID == identity.AdminID {
		return nil
	}
	return ErrPermissionDenied
}

func gocqlNotFound(err error) bool {
	return errors.Is(err, gocql.ErrNotFound)
}
