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

type notificationRepository struct {
	client *ScyllaClient
}

func NewNotificationRepository(client *ScyllaClient) NotificationRepository {
	return &notificationRepository{client: client}
}

func (r *notificationRepository) Create(ctx context.Context, notification *models.SecurityNotification) error {
	query := r.client.Prepared.CreateNotification.Bind(
		notification.Bucket, notification.UserID, notification.UserType,
		notification.CreatedAt, notification.ID, notification.Category,
		notification.Severity, notification.Title, notification.Body,
		notification.IsRead, notification.ReadAt).WithContext(ctx)

	if err := r.client.ExecuteWithRetry(query, 3); err != nil {
		util.Error("Failed to create security notification",
			zap.String("user_id", notification.UserID),
			zap.String("category", notification.Category),
			zap.Error(err))
		return fmt.Errorf("failed to create security notification: %w", err)
	}

	return nil
}

// List returns notifications newest first, the clustering order of the
// table. A limit of zero or less reads the whole partition; the mark-read
// paths depend on that to reach rows past the first page.
func (r *notificationRepository) List(ctx context.Context, bucket int, userID, userType string, limit int) ([]*models.SecurityNotification, error) {
	query := r.client.Prepared.ListAllNotifications.Bind(bucket, userID, userType)
	if limit > 0 {
		query = r.client.Prepared.ListNotifications.Bind(bucket, userID, userType, limit)
	}
	iter := query.WithContext(ctx).Iter()

	var notifications []*models.SecurityNotification
	for {
		notification := &models.SecurityNotification{}
		if !iter.Scan(&notification.Bucket, &notification.UserID, &notification.UserType,
			&notification.CreatedAt, &notification.ID, &notification.Category,
			&notification.Severity, &notification.Title, &notification.Body,
			&notification.IsRead, &notification.ReadAt) {
			break
		}
		notifications = append(notifications, notification)
	}

	if err := iter.Close(); err != nil {
		util.Error("Failed to list security notifications",
			zap.String("user_id", userID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to list security notifications: %w", err)
	}

	return notifications, nil
}

func (r *notificationRepository) MarkRead(ctx context.Context, notification *models.SecurityNotification, at time.Time) error {
	query := r.client.Prepared.MarkNotification.Bind(
		at, notification.Bucket, notification.UserID, notification.UserType,
		notification.CreatedAt, notification.ID).WithContext(ctx)

	if err := r.client.ExecuteWithRetry(query, 3); err != nil {
		util.Error("Failed to mark notification read",
			zap.String("notification_id", notification.ID),
			zap.Error(err))
		return fmt.Errorf("failed to mark notification read: %w", err)
	}

	return nil
}

// MarkManyRead flips a set of notifications in one unlogged batch. All rows
// share the subject's partition so the batch stays single-partition.
func (r *notificationRepository) MarkManyRead(ctx context.Context, notifications []*models.SecurityNotification, at time.Time) error {
	if len(notifications) == 0 {
		return nil
	}

	batch := r.client.Batch(gocql.UnloggedBatch).WithContext(ctx)
	for _, notification := range notifications {
		batch.Query(r.client.Prepared.MarkNotification.Statement(),
			at, notification.Bucket, notification.UserID, notification.UserType,
			notification.CreatedAt, notification.ID)
	}

	if err := r.client.ExecuteBatch(batch); err != nil {
		util.Error("Failed to mark notifications read",
			zap.Int("count", len(notifications)),
			zap.Error(err))
		return fmt.Errorf("failed to mark notifications read: %w", err)
	}

	return nil
}
