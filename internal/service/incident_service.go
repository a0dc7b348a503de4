package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"secops-service/internal/bucketing"
	"secops-service/internal/config"
	"secops-service/internal/models"
	"secops-service/internal/repository/scylla"
)

// IncidentCreateRequest opens a response to a detected threat or analytics
// event. TriggerEventID is stored verbatim, there is no referential check.
type IncidentCreateRequest struct {
	TriggerEventID string `json:"trigger_event_id,omitempty"`
	ResponseType   string `json:"response_type"`
	Priority       string `json:"priority"`
	Title          string `json:"title"`
	Description    string `json:"description,omitempty"`
	ActionsPlan    string `json:"actions_plan,omitempty"`
}

// IncidentService manages the incident response lifecycle.
type IncidentService struct {
	repo      scylla.IncidentRepository
	events    EventPublisher
	buckets   *bucketing.BucketingManager
	listLimit int
}

func NewIncidentService(repo scylla.IncidentRepository, events EventPublisher, buckets *bucketing.BucketingManager, cfg *config.Config) *IncidentService {
	return &IncidentService{
		repo:      repo,
		events:    events,
		buckets:   buckets,
		listLimit: cfg.Security.ListLimit,
	}
}

func (s *IncidentService) Create(ctx context.Context, identity *models.Identity, req *IncidentCreateRequest) (*models.IncidentResponse, error) {
	if err := RequireManager(identity); err != nil {
		return nil, err
	}

	priority := models.IncidentPriority(strings.ToUpper(req.Priority))
	if !priority.Valid() {
		return nil, fmt.Errorf("%w: unknown priority %q", ErrInvalidInput, req.Priority)
	}
	if req.Title == "" || req.ResponseType == "" {
		return nil, fmt.Errorf("%w: title and response_type are required", ErrInvalidInput)
	}

	id := uuid.New().String()
	incident := &models.IncidentResponse{
		Bucket:         s.buckets.EventBucket(id),
		ID:             id,
		TriggerEventID: req.TriggerEventID,
		ResponseType:   req.ResponseType,
		Priority:       priority,
		Status:         models.IncidentOpen,
		Title:          req.Title,
		Description:    req.Description,
		ActionsPlan:    req.ActionsPlan,
		CreatedAt:      time.Now().UTC(),
	}

	audit := newAudit(s.buckets, identity, models.AuditIncidentCreated, "incident_response", incident.ID,
		"", string(incident.Status), "", nil)

	if err := s.repo.Create(ctx, incident, audit); err != nil {
		return nil, err
	}

	if s.events != nil {
		s.events.Publish(newEvent(models.EventIncidentOpened, severityForPriority(priority),
			identity.AdminID, "incident_response", incident.ID, incident.ResponseType))
	}

	return incident, nil
}

func (s *IncidentService) Get(ctx context.Context, identity *models.Identity, id string) (*models.IncidentResponse, error) {
	if err := RequireManager(identity); err != nil {
		return nil, err
	}

	incident, err := s.repo.GetByID(ctx, s.buckets.EventBucket(id), id)
	if err != nil {
		if gocqlNotFound(err) {
			return nil, fmt.Errorf("%w: incident %s", ErrNotFound, id)
		}
		return nil, err
	}
	return incident, nil
}

// IncidentListFilter narrows List. Empty fields match everything; Limit is
// clamped to the configured cap.
type IncidentListFilter struct {
	Status   string
	Priority string
	Limit    int
}

// List returns incidents newest first, filtered and clamped after the
// bucket fan-in.
func (s *IncidentService) List(ctx context.Context, identity *models.Identity, filter IncidentListFilter) ([]*models.IncidentResponse, error) {
	if err := RequireManager(identity); err != nil {
		return nil, err
	}

	var status models.IncidentStatus
	if filter.Status != "" {
		status = models.IncidentStatus(strings.ToUpper(filter.Status))
		if !status.Valid() {
			return nil, fmt.Errorf("%w: unknown incident status %q", ErrInvalidInput, filter.Status)
		}
	}
	var priority models.IncidentPriority
	if filter.Priority != "" {
		priority = models.IncidentPriority(strings.ToUpper(filter.Priority))
		if !priority.Valid() {
			return nil, fmt.Errorf("%w: unknown priority %q", ErrInvalidInput, filter.Priority)
		}
	}

	incidents, err := s.repo.List(ctx, allBuckets(s.buckets.EventBuckets()))
	if err != nil {
		return nil, err
	}

	out := make([]*models.IncidentResponse, 0, len(incidents))
	for _, incident := range incidents {
		if status != "" && incident.Status != status {
			continue
		}
		if priority != "" && incident.Priority != priority {
			continue
		}
		out = append(out, incident)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	if limit := clampLimit(filter.Limit, s.listLimit); len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *IncidentService) UpdateStatus(ctx context.Context, identity *models.Identity, id, status string) (*models.IncidentResponse, error) {
	if err := RequireManager(identity); err != nil {
		return nil, err
	}

	next := models.IncidentStatus(strings.ToUpper(status))
	if !next.Valid() {
		return nil, fmt.Errorf("%w: unknown incident status %q", ErrInvalidInput, status)
	}

	incident, err := s.Get(ctx, identity, id)
	if err != nil {
		return nil, err
	}

	if incident.Status == next {
		return incident, nil
	}

	audit := newAudit(s.buckets, identity, models.AuditIncidentStatusSet, "incident_response", incident.ID,
		string(incident.Status), string(next), "", nil)

	if err := s.repo.UpdateStatus(ctx, incident.Bucket, incident.ID, next, audit); err != nil {
		return nil, err
	}
	incident.Status = next

	return incident, nil
}

func severityForPriority(priority models.IncidentPriority) models.ThreatSeverity {
	switch priority {
	case models.PriorityCritical:
		return models.SeverityCritical
	case models.PriorityHigh:
		return models.SeverityHigh
	case models.PriorityMedium:
		return models.SeverityMedium
	default:
		return models.SeverityLow
	}
}
