package scylla

import (
	"context"
	"fmt"
	"time"

	"github.com/gocql/gocql"
	"go.uber.org/zap"

	"secops-service/internal/models"
	"secops-service/internal/util"
)

type adminSessionRepository struct {
	client *ScyllaClient
}

func NewAdminSessionRepository(client *ScyllaClient) AdminSessionRepository {
	return &adminSessionRepository{client: client}
}

func (r *adminSessionRepository) Get(ctx context.Context, sessionToken string) (*models.AdminSession, error) {
	session := &models.AdminSession{}

	query := r.client.Prepared.GetAdminSession.Bind(sessionToken).WithContext(ctx)

	err := r.client.ScanWithRetry(query,
		&session.SessionToken, &session.AdminID, &session.Role, &session.IPAddress,
		&session.CreatedAt, &session.LastActivity, &session.ExpiresAt, &session.IsActive)

	if err != nil {
		if err == gocql.ErrNotFound {
			return nil, fmt.Errorf("admin session not found: %w", gocql.ErrNotFound)
		}
		util.Error("Failed to get admin session", zap.Error(err))
		return nil, fmt.Errorf("failed to get admin session: %w", err)
	}

	return session, nil
}

func (r *adminSessionRepository) Create(ctx context.Context, session *models.AdminSession) error {
	query := r.client.Prepared.CreateAdminSession.Bind(
		session.SessionToken, session.AdminID, session.Role, session.IPAddress,
		session.CreatedAt, session.LastActivity, session.ExpiresAt, session.IsActive).WithContext(ctx)

	if err := r.client.ExecuteWithRetry(query, 3); err != nil {
		util.Error("Failed to create admin session",
			zap.String("admin_id", session.AdminID),
			zap.Error(err))
		return fmt.Errorf("failed to create admin session: %w", err)
	}

	return nil
}

func (r *adminSessionRepository) Touch(ctx context.Context, sessionToken string, at time.Time) error {
	query := r.client.Prepared.TouchAdminSession.Bind(at, sessionToken).WithContext(ctx)

	if err := r.client.ExecuteWithRetry(query, 3); err != nil {
		util.Error("Failed to touch admin session", zap.Error(err))
		return fmt.Errorf("failed to touch admin session: %w", err)
	}

	return nil
}

func (r *adminSessionRepository) Deactivate(ctx context.Context, sessionToken string) error {
	query := r.client.Prepared.DeactivateAdminSession.Bind(sessionToken).WithContext(ctx)

	if err := r.client.ExecuteWithRetry(query, 3); err != nil {
		util.Error("Failed to deactivate admin session", zap.Error(err))
		return fmt.Errorf("failed to deactivate admin session: %w", err)
	}

	return nil
}
