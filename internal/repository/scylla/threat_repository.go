package scylla

import (
	"context"
	"fmt"

	"github.com/gocql/gocql"
	"go.uber.org/zap"

	"secops-service/internal/models"
	"secops-service/internal/util"
)

type threatRepository struct {
	client *ScyllaClient
}

func NewThreatRepository(client *ScyllaClient) ThreatRepository {
	return &threatRepository{client: client}
}

// Create writes the threat and its audit entry in one logged batch so the
// compliance trail can never miss a recorded detection.
func (r *threatRepository) Create(ctx context.Context, threat *models.ThreatDetection, audit *models.ComplianceAuditLog) error {
	batch := r.client.Batch(gocql.LoggedBatch).WithContext(ctx)

	batch.Query(r.client.Prepared.CreateThreat.Statement(),
		threat.Bucket, threat.ID, threat.ThreatType, threat.Severity,
		threat.Source, threat.Description, threat.Indicators,
		threat.Status, threat.FirstDetected)

	bindAudit(batch, r.client.Prepared.CreateAuditEntry.Statement(), audit)

	if err := r.client.ExecuteBatch(batch); err != nil {
		util.Error("Failed to create threat detection",
			zap.String("threat_id", threat.ID),
			zap.String("threat_type", threat.ThreatType),
			zap.Error(err))
		return fmt.Errorf("failed to create threat detection: %w", err)
	}

	util.Info("Threat detection recorded",
		zap.String("threat_id", threat.ID),
		zap.String("threat_type", threat.ThreatType),
		zap.String("severity", string(threat.Severity)))

	return nil
}

func (r *threatRepository) GetByID(ctx context.Context, bucket int, id string) (*models.ThreatDetection, error) {
	threat := &models.ThreatDetection{}

	query := r.client.Prepared.GetThreat.Bind(bucket, id).WithContext(ctx)

	err := r.client.ScanWithRetry(query,
		&threat.Bucket, &threat.ID, &threat.ThreatType, &threat.Severity,
		&threat.Source, &threat.Description, &threat.Indicators,
		&threat.Status, &threat.FirstDetected)

	if err != nil {
		if err == gocql.ErrNotFound {
			return nil, fmt.Errorf("threat not found with ID %s: %w", id, gocql.ErrNotFound)
		}
		util.Error("Failed to get threat detection",
			zap.String("threat_id", id),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get threat detection: %w", err)
	}

	return threat, nil
}

func (r *threatRepository) UpdateStatus(ctx context.Context, bucket int, id string, status models.ThreatStatus) error {
	query := r.client.Prepared.UpdateThreatStatus.Bind(status, bucket, id).WithContext(ctx)

	if err := r.client.ExecuteWithRetry(query, 3); err != nil {
		util.Error("Failed to update threat status",
			zap.String("threat_id", id),
			zap.String("status", string(status)),
			zap.Error(err))
		return fmt.Errorf("failed to update threat status: %w", err)
	}

	return nil
}

func (r *threatRepository) List(ctx context.Context, buckets []int) ([]*models.ThreatDetection, error) {
	iter := r.client.Prepared.ListThreats.Bind(buckets).WithContext(ctx).Iter()

	var threats []*models.ThreatDetection
	for {
		threat := &models.ThreatDetection{}
		if !iter.Scan(&threat.Bucket, &threat.ID, &threat.ThreatType, &threat.Severity,
			&threat.Source, &threat.Description, &threat.Indicators,
			&threat.Status, &threat.FirstDetected) {
			break
		}
		threats = append(threats, threat)
	}

	if err := iter.Close(); err != nil {
		util.Error("Failed to list threat detections", zap.Error(err))
		return nil, fmt.Errorf("failed to list threat detections: %w", err)
	}

	return threats, nil
}
