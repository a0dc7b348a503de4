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

type sessionRepository struct {
	client *ScyllaClient
}

func NewSessionRepository(client *ScyllaClient) SessionRepository {
	return &sessionRepository{client: client}
}

func (r *sessionRepository) CreateSession(ctx context.Context, session *models.ActiveSession) error {
	query := r.client.Prepared.CreateActiveSession.Bind(
		session.Bucket, session.UserID, session.UserType, session.SessionToken,
		session.IPAddress, session.UserAgent, session.CreatedAt,
		session.LastActivity, session.IsActive).WithContext(ctx)

	if err := r.client.ExecuteWithRetry(query, 3); err != nil {
		util.Error("Failed to create active session",
			zap.String("user_id", session.UserID),
			zap.String("user_type", session.UserType),
			zap.Error(err))
		return fmt.Errorf("failed to create active session: %w", err)
	}

	return nil
}

func (r *sessionRepository) TouchSession(ctx context.Context, session *models.ActiveSession) error {
	query := r.client.Prepared.TouchActiveSession.Bind(
		session.LastActivity, session.IPAddress, session.UserAgent,
		session.Bucket, session.UserID, session.UserType, session.SessionToken).WithContext(ctx)

	if err := r.client.ExecuteWithRetry(query, 3); err != nil {
		util.Error("Failed to touch active session",
			zap.String("user_id", session.UserID),
			zap.Error(err))
		return fmt.Errorf("failed to touch active session: %w", err)
	}

	return nil
}

func (r *sessionRepository) ListSessions(ctx context.Context, bucket int, userID, userType string) ([]*models.ActiveSession, error) {
	iter := r.client.Prepared.ListActiveSessions.Bind(bucket, userID, userType).WithContext(ctx).Iter()

	var sessions []*models.ActiveSession
	for {
		session := &models.ActiveSession{}
		if !iter.Scan(&session.Bucket, &session.UserID, &session.UserType, &session.SessionToken,
			&session.IPAddress, &session.UserAgent, &session.CreatedAt,
			&session.LastActivity, &session.IsActive) {
			break
		}
		sessions = append(sessions, session)
	}

	if err := iter.Close(); err != nil {
		util.Error("Failed to list active sessions",
			zap.String("user_id", userID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to list active sessions: %w", err)
	}

	return sessions, nil
}

func (r *sessionRepository) RecordActivity(ctx context.Context, activity *models.SessionActivity) error {
	query := r.client.Prepared.RecordActivity.Bind(
		activity.Bucket, activity.UserID, activity.UserType, activity.OccurredAt,
		activity.ID, activity.SessionToken, activity.Action,
		activity.IPAddress, activity.UserAgent).WithContext(ctx)

	if err := r.client.ExecuteWithRetry(query, 3); err != nil {
		util.Error("Failed to record session activity",
			zap.String("user_id", activity.UserID),
			zap.String("action", activity.Action),
			zap.Error(err))
		return fmt.Errorf("failed to record session activity: %w", err)
	}

	return nil
}

func (r *sessionRepository) ListActivitySince(ctx context.Context, bucket int, userID, userType string, since time.Time) ([]*models.SessionActivity, error) {
	iter := r.client.Prepared.ListActivitySince.Bind(bucket, userID, userType, since).WithContext(ctx).Iter()

	var activities []*models.SessionActivity
	for {
		activity := &models.SessionActivity{}
		if !iter.Scan(&activity.Bucket, &activity.UserID, &activity.UserType, &activity.OccurredAt,
			&activity.ID, &activity.SessionToken, &activity.Action,
			&activity.IPAddress, &activity.UserAgent) {
			break
		}
		activities = append(activities, activity)
	}

	if err := iter.Close(); err != nil {
		util.Error("Failed to list session activity",
			zap.String("user_id", userID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to list session activity: %w", err)
	}

	return activities, nil
}

// InvalidateAll deactivates every active session for the subject and writes
// the audit entry in the same logged batch. Returns how many sessions were
// deactivated.
func (r *sessionRepository) InvalidateAll(ctx context.Context, bucket int, userID, userType string, audit *models.ComplianceAuditLog) (int, error) {
	sessions, err := r.ListSessions(ctx, bucket, userID, userType)
	if err != nil {
		return 0, fmt.Errorf("failed to load sessions for invalidation: %w", err)
	}

	batch := r.client.Batch(gocql.LoggedBatch).WithContext(ctx)

	count := 0
	for _, session := range sessions {
		if !session.IsActive {
			continue
		}
		batch.Query(r.client.Prepared.DeactivateSession.Statement(),
			bucket, userID, userType, session.SessionToken)
		count++
	}

	bindAudit(batch, r.client.Prepared.CreateAuditEntry.Statement(), audit)

	if err := r.client.ExecuteBatch(batch); err != nil {
		util.Error("Failed to invalidate sessions",
			zap.String("user_id", userID),
			zap.String("user_type", userType),
			zap.Error(err))
		return 0, fmt.Errorf("failed to invalidate sessions: %w", err)
	}

	util.Info("All sessions invalidated for subject",
		zap.String("user_id", userID),
		zap.String("user_type", userType),
		zap.Int("session_count", count))

	return count, nil
}
