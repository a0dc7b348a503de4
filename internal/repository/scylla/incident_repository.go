package scylla

import (
	"context"
	"fmt"

	"github.com/gocql/gocql"
	"go.uber.org/zap"

	"secops-service/internal/models"
	"secops-service/internal/util"
)

type incidentRepository struct {
	client *ScyllaClient
}

func NewIncidentRepository(client *ScyllaClient) IncidentRepository {
	return &incidentRepository{client: client}
}

func (r *incidentRepository) Create(ctx context.Context, incident *models.IncidentResponse, audit *models.ComplianceAuditLog) error {
	batch := r.client.Batch(gocql.LoggedBatch).WithContext(ctx)

	batch.Query(r.client.Prepared.CreateIncident.Statement(),
		incident.Bucket, incident.ID, incident.TriggerEventID, incident.ResponseType,
		incident.Priority, incident.Status, incident.Title, incident.Description,
		incident.ActionsPlan, incident.CreatedAt)

	bindAudit(batch, r.client.Prepared.CreateAuditEntry.Statement(), audit)

	if err := r.client.ExecuteBatch(batch); err != nil {
		util.Error("Failed to create incident response",
			zap.String("incident_id", incident.ID),
			zap.String("trigger_event_id", incident.TriggerEventID),
			zap.Error(err))
		return fmt.Errorf("failed to create incident response: %w", err)
	}

	util.Info("Incident response created",
		zap.String("incident_id", incident.ID),
		zap.String("priority", string(incident.Priority)))

	return nil
}

func (r *incidentRepository) GetByID(ctx context.Context, bucket int, id string) (*models.IncidentResponse, error) {
	incident := &models.IncidentResponse{}

	query := r.client.Prepared.GetIncident.Bind(bucket, id).WithContext(ctx)

	err := r.client.ScanWithRetry(query,
		&incident.Bucket, &incident.ID, &incident.TriggerEventID, &incident.ResponseType,
		&incident.Priority, &incident.Status, &incident.Title, &incident.Description,
		&incident.ActionsPlan, &incident.CreatedAt)

	if err != nil {
		if err == gocql.ErrNotFound {
			return nil, fmt.Errorf("incident not found with ID %s: %w", id, gocql.ErrNotFound)
		}
		util.Error("Failed to get incident response",
			zap.String("incident_id", id),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get incident response: %w", err)
	}

	return incident, nil
}

func (r *incidentRepository) UpdateStatus(ctx context.Context, bucket int, id string, status models.IncidentStatus, audit *models.ComplianceAuditLog) error {
	batch := r.client.Batch(gocql.LoggedBatch).WithContext(ctx)

	batch.Query(r.client.Prepared.UpdateIncidentStatus.Statement(), status, bucket, id)
	bindAudit(batch, r.client.Prepared.CreateAuditEntry.Statement(), audit)

	if err := r.client.ExecuteBatch(batch); err != nil {
		util.Error("Failed to update incident status",
			zap.String("incident_id", id),
			zap.String("status", string(status)),
			zap.Error(err))
		return fmt.Errorf("failed to update incident status: %w", err)
	}

	util.Info("Incident status updated",
		zap.String("incident_id", id),
		zap.String("status", string(status)))

	return nil
}

func (r *incidentRepository) List(ctx context.Context, buckets []int) ([]*models.IncidentResponse, error) {
	iter := r.client.Prepared.ListIncidents.Bind(buckets).WithContext(ctx).Iter()

	var incidents []*models.IncidentResponse
	for {
		incident := &models.IncidentResponse{}
		if !iter.Scan(&incident.Bucket, &incident.ID, &incident.TriggerEventID, &incident.ResponseType,
			&incident.Priority, &incident.Status, &incident.Title, &incident.Description,
			&incident.ActionsPlan, &incident.CreatedAt) {
			break
		}
		incidents = append(incidents, incident)
	}

	if err := iter.Close(); err != nil {
		util.Error("Failed to list incident responses", zap.Error(err))
		return nil, fmt.Errorf("failed to list incident responses: %w", err)
	}

	return incidents, nil
}
