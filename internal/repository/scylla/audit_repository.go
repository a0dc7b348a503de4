package scylla

import (
	"context"
	"fmt"

	"github.com/gocql/gocql"
	"go.uber.org/zap"

	"secops-service/internal/models"
	"secops-service/internal/util"
)

type auditRepository struct {
	client *ScyllaClient
}

func NewAuditRepository(client *ScyllaClient) AuditRepository {
	return &auditRepository{client: client}
}

// bindAudit appends the audit insert to a batch so repositories can commit a
// mutation and its trail entry atomically.
func bindAudit(batch *gocql.Batch, stmt string, entry *models.ComplianceAuditLog) {
	batch.Query(stmt,
		entry.Day, entry.CreatedAt, entry.ID, entry.ActorID, entry.ActorType,
		entry.Action, entry.ResourceType, entry.ResourceID, entry.BeforeState,
		entry.AfterState, entry.Justification, entry.IPAddress)
}

func (r *auditRepository) Create(ctx context.Context, entry *models.ComplianceAuditLog) error {
	query := r.client.Prepared.CreateAuditEntry.Bind(
		entry.Day, entry.CreatedAt, entry.ID, entry.ActorID, entry.ActorType,
		entry.Action, entry.ResourceType, entry.ResourceID, entry.BeforeState,
		entry.AfterState, entry.Justification, entry.IPAddress).WithContext(ctx)

	if err := r.client.ExecuteWithRetry(query, 3); err != nil {
		util.Error("Failed to append audit entry",
			zap.String("action", entry.Action),
			zap.String("resource_id", entry.ResourceID),
			zap.Error(err))
		return fmt.Errorf("failed to append audit entry: %w", err)
	}

	return nil
}

// ListByDay returns entries for one day partition, newest first.
func (r *auditRepository) ListByDay(ctx context.Context, day string, limit int) ([]*models.ComplianceAuditLog, error) {
	iter := r.client.Prepared.ListAuditEntries.Bind(day, limit).WithContext(ctx).Iter()

	var entries []*models.ComplianceAuditLog
	for {
		entry := &models.ComplianceAuditLog{}
		if !iter.Scan(&entry.Day, &entry.CreatedAt, &entry.ID, &entry.ActorID, &entry.ActorType,
			&entry.Action, &entry.ResourceType, &entry.ResourceID, &entry.BeforeState,
			&entry.AfterState, &entry.Justification, &entry.IPAddress) {
			break
		}
		entries = append(entries, entry)
	}

	if err := iter.Close(); err != nil {
		util.Error("Failed to list audit entries",
			zap.String("day", day),
			zap.Error(err))
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}

	return entries, nil
}
