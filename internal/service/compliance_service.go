package service

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/google/uuid"

	"secops-service/internal/bucketing"
	"secops-service/internal/config"
	"secops-service/internal/models"
	"secops-service/internal/repository/scylla"
)

// ComplianceService exposes the read side of the audit trail. Writes happen
// inside the repositories, batched with the mutation they record.
type ComplianceService struct {
	repo      scylla.AuditRepository
	buckets   *bucketing.BucketingManager
	listLimit int
}

func NewComplianceService(repo scylla.AuditRepository, buckets *bucketing.BucketingManager, cfg *config.Config) *ComplianceService {
	return &ComplianceService{
		repo:      repo,
		buckets:   buckets,
		listLimit: cfg.Security.ListLimit,
	}
}

// ListAuditTrail returns the trail for one day, defaulting to today.
func (s *ComplianceService) ListAuditTrail(ctx context.Context, identity *models.Identity, day string, limit int) ([]*models.ComplianceAuditLog, error) {
	if err := RequireManager(identity); err != nil {
		return nil, err
	}

	if day == "" {
		day = s.buckets.Day(time.Now().UTC())
	} else if _, err := time.Parse("2006-01-02", day); err != nil {
		return nil, fmt.Errorf("%w: day must be YYYY-MM-DD", ErrInvalidInput)
	}

	if limit <= 0 || limit > s.listLimit {
		limit = s.listLimit
	}

	return s.repo.ListByDay(ctx, day, limit)
}

// newAudit builds the trail entry that repositories batch alongside the
// mutation it records.
func newAudit(buckets *bucketing.BucketingManager, identity *models.Identity, action, resourceType, resourceID, beforeState, afterState, justification string, ip net.IP) *models.ComplianceAuditLog {
	now := time.Now().UTC()
	actorID := ""
	actorType := "system"
	if identity != nil {
		actorID = identity.AdminID
		actorType = models.UserTypeAdmin
	}

	return &models.ComplianceAuditLog{
		Day:           buckets.Day(now),
		ID:            uuid.New().String(),
		ActorID:       actorID,
		ActorType:     actorType,
		Action:        action,
		ResourceType:  resourceType,
		ResourceID:    resourceID,
		BeforeState:   beforeState,
		AfterState:    afterState,
		Justification: justification,
		IPAddress:     ip,
		CreatedAt:     now,
	}
}
