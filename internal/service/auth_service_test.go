package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"secops-service/internal/models"
)

func TestResolveIdentity(t *testing.T) {
	now := time.Now().UTC()

	sessions := newFakeAdminSessionRepo()
	require.NoError(t, sessions.Create(context.Background(), &models.AdminSession{
		SessionToken: "tok-live",
		AdminID:      "admin-1",
		Role:         models.RoleAdmin,
		CreatedAt:    now.Add(-time.Hour),
		ExpiresAt:    now.Add(time.Hour),
		IsActive:     true,
	}))
	require.NoError(t, sessions.Create(context.Background(), &models.AdminSession{
		SessionToken: "tok-expired",
		AdminID:      "admin-2",
		Role:         models.RoleAdmin,
		ExpiresAt:    now.Add(-time.Minute),
		IsActive:     true,
	}))
	require.NoError(t, sessions.Create(context.Background(), &models.AdminSession{
		SessionToken: "tok-revoked",
		AdminID:      "admin-3",
		Role:         models.RoleAdmin,
		ExpiresAt:    now.Add(time.Hour),
		IsActive:     false,
	}))

	tokens := newFakeTokenStore()
	svc := NewAuthService(sessions, tokens, testConfig())

	t.Run("resolves and caches a live session", func(t *testing.T) {
		identity, err := svc.ResolveIdentity(context.Background(), "tok-live")
		require.NoError(t, err)
		assert.Equal(t, "admin-1", identity.AdminID)
		assert.Equal(t, models.RoleAdmin, identity.Role)
		assert.Contains(t, tokens.identities, "tok-live")
	})

	t.Run("serves a cached identity without touching the store", func(t *testing.T) {
		touchedBefore := sessions.touched
		identity, err := svc.ResolveIdentity(context.Background(), "tok-live")
		require.NoError(t, err)
		assert.Equal(t, "admin-1", identity.AdminID)
		assert.Equal(t, touchedBefore, sessions.touched)
	})

	t.Run("rejects empty token", func(t *testing.T) {
		_, err := svc.ResolveIdentity(context.Background(), "")
		assert.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("rejects unknown token", func(t *testing.T) {
		_, err := svc.ResolveIdentity(context.Background(), "tok-missing")
		assert.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("rejects expired session", func(t *testing.T) {
		_, err := svc.ResolveIdentity(context.Background(), "tok-expired")
		assert.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("rejects deactivated session", func(t *testing.T) {
		_, err := svc.ResolveIdentity(context.Background(), "tok-revoked")
		assert.ErrorIs(t, err, ErrUnauthorized)
	})
}

func TestRequireManager(t *testing.T) {
	assert.ErrorIs(t, RequireManager(nil), ErrUnauthorized)
	assert.ErrorIs(t, RequireManager(analyst()), ErrPermissionDenied)
	assert.NoError(t, RequireManager(manager()))
	assert.NoError(t, RequireManager(superAdmin()))
}

func TestRequireSelfOrSuperAdmin(t *testing.T) {
	self := models.Subject{UserID: "admin-ops", UserType: models.UserTypeAdmin}
	other := models.Subject{UserID: "cust-9", UserType: models.UserTypeCustomer}

	assert.ErrorIs(t, RequireSelfOrSuperAdmin(nil, self), ErrUnauthorized)
	assert.NoError(t, RequireSelfOrSuperAdmin(manager(), self))
	assert.ErrorIs(t, RequireSelfOrSuperAdmin(manager(), other), ErrPermissionDenied)
	assert.NoError(t, RequireSelfOrSuperAdmin(superAdmin(), other))

	// Matching user_id is not enough for a non-admin subject type.
	impostor := models.Subject{UserID: "admin-ops", UserType: models.UserTypeCustomer}
	assert.ErrorIs(t, RequireSelfOrSuperAdmin(manager(), impostor), ErrPermissionDenied)
}
