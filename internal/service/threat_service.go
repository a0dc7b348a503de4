package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"secops-service/internal/bucketing"
	"secops-service/internal/config"
	"secops-service/internal/models"
	"secops-service/internal/repository/scylla"
	"secops-service/internal/util"
)

// ThreatSearcher is the search index behind GET /security/threats/search.
type ThreatSearcher interface {
	Index(ctx context.Context, threat *models.ThreatDetection) error
	Search(ctx context.Context, text, severity, status string, limit int) ([]*models.ThreatDetection, error)
}

// ThreatCreateRequest records a detected threat.
type ThreatCreateRequest struct {
	ThreatType  string            `json:"threat_type"`
	Severity    string            `json:"severity"`
	Source      string            `json:"source"`
	Description string            `json:"description"`
	Indicators  map[string]string `json:"indicators,omitempty"`
}

// ThreatService is the threat detection registry. Scylla is authoritative,
// Elasticsearch mirrors rows for search, and every recording lands an audit
// entry in the same batch.
type ThreatService struct {
	repo      scylla.ThreatRepository
	search    ThreatSearcher
	events    EventPublisher
	buckets   *bucketing.BucketingManager
	listLimit int
}

func NewThreatService(repo scylla.ThreatRepository, search ThreatSearcher, events EventPublisher, buckets *bucketing.BucketingManager, cfg *config.Config) *ThreatService {
	return &ThreatService{
		repo:      repo,
		search:    search,
		events:    events,
		buckets:   buckets,
		listLimit: cfg.Security.ListLimit,
	}
}

func (s *ThreatService) Record(ctx context.Context, identity *models.Identity, req *ThreatCreateRequest) (*models.ThreatDetection, error) {
	if err := RequireManager(identity); err != nil {
		return nil, err
	}

	severity := models.ThreatSeverity(strings.ToUpper(req.Severity))
	if !severity.Valid() {
		return nil, fmt.Errorf("%w: unknown severity %q", ErrInvalidInput, req.Severity)
	}
	if req.ThreatType == "" || req.Source == "" {
		return nil, fmt.Errorf("%w: threat_type and source are required", ErrInvalidInput)
	}

	id := uuid.New().String()
	threat := &models.ThreatDetection{
		Bucket:        s.buckets.EventBucket(id),
		ID:            id,
		ThreatType:    req.ThreatType,
		Severity:      severity,
		Source:        req.Source,
		Description:   req.Description,
		Indicators:    req.Indicators,
		Status:        models.ThreatOpen,
		FirstDetected: time.Now().UTC(),
	}

	audit := newAudit(s.buckets, identity, models.AuditThreatCreated, "threat_detection", threat.ID,
		"", string(threat.Status), "", nil)

	if err := s.repo.Create(ctx, threat, audit); err != nil {
		return nil, err
	}

	if s.search != nil {
		if err := s.search.Index(ctx, threat); err != nil {
			util.Warn("Failed to index threat for search",
				zap.String("threat_id", threat.ID),
				zap.Error(err))
		}
	}
	if s.events != nil {
		s.events.Publish(newEvent(models.EventThreatDetected, threat.Severity,
			identity.AdminID, "threat_detection", threat.ID, threat.ThreatType))
	}

	return threat, nil
}

func (s *ThreatService) Get(ctx context.Context, identity *models.Identity, id string) (*models.ThreatDetection, error) {
	if err := RequireManager(identity); err != nil {
		return nil, err
	}

	threat, err := s.repo.GetByID(ctx, s.buckets.EventBucket(id), id)
	if err != nil {
		if gocqlNotFound(err) {
			return nil, fmt.Errorf("%w: threat %s", ErrNotFound, id)
		}
		return nil, err
	}
	return threat, nil
}

// ThreatListFilter narrows List. Empty fields match everything; Limit is
// clamped to the configured cap.
type ThreatListFilter struct {
	Status   string
	Severity string
	Limit    int
}

// List returns threats newest first. Rows fan in from every bucket, so
// ordering and the limit are applied here rather than in CQL.
func (s *ThreatService) List(ctx context.Context, identity *models.Identity, filter ThreatListFilter) ([]*models.ThreatDetection, error) {
	if err := RequireManager(identity); err != nil {
		return nil, err
	}

	var status models.ThreatStatus
	if filter.Status != "" {
		status = models.ThreatStatus(strings.ToUpper(filter.Status))
		if !status.Valid() {
			return nil, fmt.Errorf("%w: unknown threat status %q", ErrInvalidInput, filter.Status)
		}
	}
	var severity models.ThreatSeverity
	if filter.Severity != "" {
		severity = models.ThreatSeverity(strings.ToUpper(filter.Severity))
		if !severity.Valid() {
			return nil, fmt.Errorf("%w: unknown severity %q", ErrInvalidInput, filter.Severity)
		}
	}

	threats, err := s.repo.List(ctx, allBuckets(s.buckets.EventBuckets()))
	if err != nil {
		return nil, err
	}

	out := make([]*models.ThreatDetection, 0, len(threats))
	for _, threat := range threats {
		if status != "" && threat.Status != status {
			continue
		}
		if severity != "" && threat.Severity != severity {
			continue
		}
		out = append(out, threat)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].FirstDetected.After(out[j].FirstDetected)
	})

	if limit := clampLimit(filter.Limit, s.listLimit); len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *ThreatService) UpdateStatus(ctx context.Context, identity *models.Identity, id, status string) (*models.ThreatDetection, error) {
	if err := RequireManager(identity); err != nil {
		return nil, err
	}

	next := models.ThreatStatus(strings.ToUpper(status))
	if !next.Valid() {
		return nil, fmt.Errorf("%w: unknown threat status %q", ErrInvalidInput, status)
	}

	threat, err := s.Get(ctx, identity, id)
	if err != nil {
		return nil, err
	}

	if threat.Status == next {
		return threat, nil
	}

	if err := s.repo.UpdateStatus(ctx, threat.Bucket, threat.ID, next); err != nil {
		return nil, err
	}
	threat.Status = next

	if s.search != nil {
		if err := s.search.Index(ctx, threat); err != nil {
			util.Warn("Failed to reindex threat after status change",
				zap.String("threat_id", threat.ID),
				zap.Error(err))
		}
	}

	return threat, nil
}

// Search queries the Elasticsearch mirror. Severity and status filters are
// optional.
func (s *ThreatService) Search(ctx context.Context, identity *models.Identity, text, severity, status string) ([]*models.ThreatDetection, error) {
	if err := RequireManager(identity); err != nil {
		return nil, err
	}
	if s.search == nil {
		return nil, fmt.Errorf("%w: threat search index not configured", ErrNotSupported)
	}

	if severity != "" {
		severity = strings.ToUpper(severity)
		if !models.ThreatSeverity(severity).Valid() {
			return nil, fmt.Errorf("%w: unknown severity %q", ErrInvalidInput, severity)
		}
	}
	if status != "" {
		status = strings.ToUpper(status)
		if !models.ThreatStatus(status).Valid() {
			return nil, fmt.Errorf("%w: unknown threat status %q", ErrInvalidInput, status)
		}
	}

	return s.search.Search(ctx, text, severity, status, s.listLimit)
}

// clampLimit folds absent and oversized limits into the configured cap.
func clampLimit(limit, ceiling int) int {
	if limit <= 0 || limit > ceiling {
		return ceiling
	}
	return limit
}

func allBuckets(n int) []int {
	buckets := make([]int, n)
	for i := range buckets {
		buckets[i] = i
	}
	return buckets
}
