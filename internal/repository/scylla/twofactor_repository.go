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

type twoFactorRepository struct {
	client *ScyllaClient
}

func NewTwoFactorRepository(client *ScyllaClient) TwoFactorRepository {
	return &twoFactorRepository{client: client}
}

func (r *twoFactorRepository) Get(ctx context.Context, bucket int, userID, userType string) (*models.TwoFactorAuth, error) {
	tfa := &models.TwoFactorAuth{}

	query := r.client.Prepared.GetTwoFactor.Bind(bucket, userID, userType).WithContext(ctx)

	err := r.client.ScanWithRetry(query,
		&tfa.Bucket, &tfa.UserID, &tfa.UserType, &tfa.Method, &tfa.SecretEncrypted,
		&tfa.SecretDEK, &tfa.SecretKeyID, &tfa.Verified, &tfa.BackupCodeHashes,
		&tfa.BackupCodesIssued, &tfa.CreatedAt, &tfa.VerifiedAt)

	if err != nil {
		if err == gocql.ErrNotFound {
			return nil, fmt.Errorf("two-factor enrollment not found for %s/%s: %w", userID, userType, gocql.ErrNotFound)
		}
		util.Error("Failed to get two-factor enrollment",
			zap.String("user_id", userID),
			zap.String("user_type", userType),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get two-factor enrollment: %w", err)
	}

	return tfa, nil
}

func (r *twoFactorRepository) Create(ctx context.Context, tfa *models.TwoFactorAuth) error {
	query := r.client.Prepared.CreateTwoFactor.Bind(
		tfa.Bucket, tfa.UserID, tfa.UserType, tfa.Method, tfa.SecretEncrypted,
		tfa.SecretDEK, tfa.SecretKeyID, tfa.Verified, tfa.BackupCodeHashes,
		tfa.BackupCodesIssued, tfa.CreatedAt, tfa.VerifiedAt).WithContext(ctx)

	if err := r.client.ExecuteWithRetry(query, 3); err != nil {
		util.Error("Failed to create two-factor enrollment",
			zap.String("user_id", tfa.UserID),
			zap.String("user_type", tfa.UserType),
			zap.Error(err))
		return fmt.Errorf("failed to create two-factor enrollment: %w", err)
	}

	util.Info("Two-factor enrollment created",
		zap.String("user_id", tfa.UserID),
		zap.String("user_type", tfa.UserType))

	return nil
}

// MarkVerified flips the enrollment to enabled and records the audit entry
// in the same logged batch.
func (r *twoFactorRepository) MarkVerified(ctx context.Context, bucket int, userID, userType string, at time.Time, audit *models.ComplianceAuditLog) error {
	batch := r.client.Batch(gocql.LoggedBatch).WithContext(ctx)

	batch.Query(r.client.Prepared.VerifyTwoFactor.Statement(), true, at, bucket, userID, userType)
	bindAudit(batch, r.client.Prepared.CreateAuditEntry.Statement(), audit)

	if err := r.client.ExecuteBatch(batch); err != nil {
		util.Error("Failed to verify two-factor enrollment",
			zap.String("user_id", userID),
			zap.String("user_type", userType),
			zap.Error(err))
		return fmt.Errorf("failed to verify two-factor enrollment: %w", err)
	}

	util.Info("Two-factor authentication enabled",
		zap.String("user_id", userID),
		zap.String("user_type", userType))

	return nil
}

func (r *twoFactorRepository) UpdateBackupCodes(ctx context.Context, bucket int, userID, userType string, hashes []string, issued bool) error {
	query := r.client.Prepared.UpdateBackupCodes.Bind(hashes, issued, bucket, userID, userType).WithContext(ctx)

	if err := r.client.ExecuteWithRetry(query, 3); err != nil {
		util.Error("Failed to update backup codes",
			zap.String("user_id", userID),
			zap.String("user_type", userType),
			zap.Error(err))
		return fmt.Errorf("failed to update backup codes: %w", err)
	}

	return nil
}

// Delete removes the enrollment row entirely, which is the disabled state.
func (r *twoFactorRepository) Delete(ctx context.Context, bucket int, userID, userType string, audit *models.ComplianceAuditLog) error {
	batch := r.client.Batch(gocql.LoggedBatch).WithContext(ctx)

	batch.Query(r.client.Prepared.DeleteTwoFactor.Statement(), bucket, userID, userType)
	bindAudit(batch, r.client.Prepared.CreateAuditEntry.Statement(), audit)

	if err := r.client.ExecuteBatch(batch); err != nil {
		util.Error("Failed to delete two-factor enrollment",
			zap.String("user_id", userID),
			zap.String("user_type", userType),
			zap.Error(err))
		return fmt.Errorf("failed to delete two-factor enrollment: %w", err)
	}

	util.Info("Two-factor authentication disabled",
		zap.String("user_id", userID),
		zap.String("user_type", userType))

	return nil
}
