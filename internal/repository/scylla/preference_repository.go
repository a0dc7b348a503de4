package scylla

import (
	"context"
	"fmt"

	"github.com/gocql/gocql"
	"go.uber.org/zap"

	"secops-service/internal/models"
	"secops-service/internal/util"
)

type preferenceRepository struct {
	client *ScyllaClient
}

func NewPreferenceRepository(client *ScyllaClient) PreferenceRepository {
	return &preferenceRepository{client: client}
}

func (r *preferenceRepository) Get(ctx context.Context, bucket int, userID, userType string) (*models.UserSecurityPreference, error) {
	pref := &models.UserSecurityPreference{}

	query := r.client.Prepared.GetPreference.Bind(bucket, userID, userType).WithContext(ctx)

	err := r.client.ScanWithRetry(query,
		&pref.Bucket, &pref.UserID, &pref.UserType, &pref.TwoFactorEnabled,
		&pref.LoginAlerts, &pref.SecurityAlerts, &pref.SessionTimeoutMinutes,
		&pref.UpdatedAt)

	if err != nil {
		if err == gocql.ErrNotFound {
			return nil, fmt.Errorf("security preference not found for %s/%s: %w", userID, userType, gocql.ErrNotFound)
		}
		util.Error("Failed to get security preference",
			zap.String("user_id", userID),
			zap.String("user_type", userType),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get security preference: %w", err)
	}

	return pref, nil
}

func (r *preferenceRepository) Upsert(ctx context.Context, pref *models.UserSecurityPreference) error {
	query := r.client.Prepared.UpsertPreference.Bind(
		pref.Bucket, pref.UserID, pref.UserType, pref.TwoFactorEnabled,
		pref.LoginAlerts, pref.SecurityAlerts, pref.SessionTimeoutMinutes,
		pref.UpdatedAt).WithContext(ctx)

	if err := r.client.ExecuteWithRetry(query, 3); err != nil {
		util.Error("Failed to upsert security preference",
			zap.String("user_id", pref.UserID),
			zap.String("user_type", pref.UserType),
			zap.Error(err))
		return fmt.Errorf("failed to upsert security preference: %w", err)
	}

	return nil
}
