package service

import (
	"context"
	"encoding/json"
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

// DataRequestSubmission is the public GDPR submission. A data subject does
// not need an account to exercise their rights, so there is no auth on this
// path.
type DataRequestSubmission struct {
	Email       string            `json:"email"`
	RequestType string            `json:"request_type"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// accessReport is the held-data summary compiled for an ACCESS_REQUEST and
// stored in the request's response_data.
type accessReport struct {
	Email            string                         `json:"email"`
	UserID           string                         `json:"user_id"`
	UserType         string                         `json:"user_type"`
	CompiledAt       time.Time                      `json:"compiled_at"`
	SessionCount     int                            `json:"session_count"`
	ActiveSessions   int                            `json:"active_sessions"`
	Notifications    int                            `json:"notification_count"`
	TwoFactorEnabled bool                           `json:"two_factor_enabled"`
	Preferences      *models.UserSecurityPreference `json:"preferences,omitempty"`
}

// erasureReceipt records what a DELETION_REQUEST actually removed.
type erasureReceipt struct {
	Email               string    `json:"email"`
	UserID              string    `json:"user_id"`
	UserType            string    `json:"user_type"`
	ErasedAt            time.Time `json:"erased_at"`
	SessionsInvalidated int       `json:"sessions_invalidated"`
	TwoFactorRemoved    bool      `json:"two_factor_removed"`
}

// GDPRService manages the data-request lifecycle: PENDING at submission,
// then exactly one admin-triggered transition to PROCESSED or REJECTED.
type GDPRService struct {
	repo          scylla.DataRequestRepository
	sessions      scylla.SessionRepository
	twoFactor     scylla.TwoFactorRepository
	notifications scylla.NotificationRepository
	prefs         scylla.PreferenceRepository
	events        EventPublisher
	buckets       *bucketing.BucketingManager
	listLimit     int
}

func NewGDPRService(
	repo scylla.DataRequestRepository,
	sessions scylla.SessionRepository,
	twoFactor scylla.TwoFactorRepository,
	notifications scylla.NotificationRepository,
	prefs scylla.PreferenceRepository,
	events EventPublisher,
	buckets *bucketing.BucketingManager,
	cfg *config.Config,
) *GDPRService {
	return &GDPRService{
		repo:          repo,
		sessions:      sessions,
		twoFactor:     twoFactor,
		notifications: notifications,
		prefs:         prefs,
		events:        events,
		buckets:       buckets,
		listLimit:     cfg.Security.ListLimit,
	}
}

func (s *GDPRService) Submit(ctx context.Context, req *DataRequestSubmission) (*models.DataProcessingRequest, error) {
	email := strings.TrimSpace(strings.ToLower(req.Email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: a valid email is required", ErrInvalidInput)
	}

	requestType := models.RequestType(strings.ToUpper(req.RequestType))
	if !requestType.Valid() {
		return nil, fmt.Errorf("%w: unknown request type %q", ErrInvalidInput, req.RequestType)
	}

	request := &models.DataProcessingRequest{
		ID:          uuid.New().String(),
		Email:       email,
		RequestType: requestType,
		Status:      models.RequestPending,
		Metadata:    req.Metadata,
		CreatedAt:   time.Now().UTC(),
	}

	bucket := s.buckets.EventBucket(request.ID)
	if err := s.repo.Create(ctx, bucket, request); err != nil {
		return nil, err
	}

	return request, nil
}

func (s *GDPRService) Get(ctx context.Context, identity *models.Identity, id string) (*models.DataProcessingRequest, error) {
	if err := RequireManager(identity); err != nil {
		return nil, err
	}

	request, err := s.repo.GetByID(ctx, s.buckets.EventBucket(id), id)
	if err != nil {
		if gocqlNotFound(err) {
			return nil, fmt.Errorf("%w: data request %s", ErrNotFound, id)
		}
		return nil, err
	}
	return request, nil
}

// DataRequestListFilter narrows List. An empty status matches everything;
// Limit is clamped to the configured cap.
type DataRequestListFilter struct {
	Status string
	Limit  int
}

// List returns data requests newest first, filtered and clamped after the
// bucket fan-in.
func (s *GDPRService) List(ctx context.Context, identity *models.Identity, filter DataRequestListFilter) ([]*models.DataProcessingRequest, error) {
	if err := RequireManager(identity); err != nil {
		return nil, err
	}

	var status models.RequestStatus
	if filter.Status != "" {
		status = models.RequestStatus(strings.ToUpper(filter.Status))
		if status != models.RequestPending && !status.Terminal() {
			return nil, fmt.Errorf("%w: unknown request status %q", ErrInvalidInput, filter.Status)
		}
	}

	requests, err := s.repo.List(ctx, allBuckets(s.buckets.EventBuckets()))
	if err != nil {
		return nil, err
	}

	out := make([]*models.DataProcessingRequest, 0, len(requests))
	for _, request := range requests {
		if status != "" && request.Status != status {
			continue
		}
		out = append(out, request)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	if limit := clampLimit(filter.Limit, s.listLimit); len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Process applies the single permitted transition, dispatching on request
// type: ACCESS_REQUEST compiles a held-data report, DELETION_REQUEST erases
// the subject's security records, anything else is not handled automatically.
// A dispatch failure still consumes the transition: the request lands in
// REJECTED with the error captured in response_data, and the audit entry is
// written either way. Processing a terminal request is a conflict.
func (s *GDPRService) Process(ctx context.Context, identity *models.Identity, id string) (*models.DataProcessingRequest, error) {
	if err := RequireManager(identity); err != nil {
		return nil, err
	}

	request, err := s.Get(ctx, identity, id)
	if err != nil {
		return nil, err
	}

	if request.Status.Terminal() {
		return nil, fmt.Errorf("%w: request %s is already %s", ErrConflict, id, request.Status)
	}

	responseData, procErr := s.dispatch(ctx, identity, request)

	now := time.Now().UTC()
	before := request.Status
	request.ProcessedBy = identity.AdminID
	request.ProcessedAt = &now

	action := models.AuditGDPRProcessed
	justification := ""
	severity := models.SeverityLow
	if procErr != nil {
		request.Status = models.RequestRejected
		request.ResponseData = procErr.Error()
		action = models.AuditGDPRRejected
		justification = procErr.Error()
		severity = models.SeverityHigh
	} else {
		request.Status = models.RequestProcessed
		request.ResponseData = responseData
	}

	audit := newAudit(s.buckets, identity, action, "data_processing_request", request.ID,
		string(before), string(request.Status), justification, nil)

	bucket := s.buckets.EventBucket(request.ID)
	if err := s.repo.Resolve(ctx, bucket, request, audit); err != nil {
		return nil, err
	}

	if s.events != nil {
		s.events.Publish(newEvent(models.EventGDPRTransition, severity,
			identity.AdminID, "data_processing_request", request.ID, string(request.Status)))
	}

	if procErr != nil {
		return nil, procErr
	}
	return request, nil
}

func (s *GDPRService) dispatch(ctx context.Context, identity *models.Identity, request *models.DataProcessingRequest) (string, error) {
	switch request.RequestType {
	case models.AccessRequest:
		return s.compileAccessReport(ctx, request)
	case models.DeletionRequest:
		return s.eraseSubjectData(ctx, identity, request)
	default:
		return "", fmt.Errorf("%w: %s is not handled automatically yet", ErrNotSupported, request.RequestType)
	}
}

func (s *GDPRService) compileAccessReport(ctx context.Context, request *models.DataProcessingRequest) (string, error) {
	subject := s.subjectFor(request)
	bucket := s.buckets.SubjectBucket(subject)

	report := accessReport{
		Email:      request.Email,
		UserID:     subject.UserID,
		UserType:   subject.UserType,
		CompiledAt: time.Now().UTC(),
	}

	sessions, err := s.sessions.ListSessions(ctx, bucket, subject.UserID, subject.UserType)
	if err != nil {
		return "", fmt.Errorf("listing sessions: %w", err)
	}
	report.SessionCount = len(sessions)
	for _, sess := range sessions {
		if sess.IsActive {
			report.ActiveSessions++
		}
	}

	notifications, err := s.notifications.List(ctx, bucket, subject.UserID, subject.UserType, s.listLimit)
	if err != nil {
		return "", fmt.Errorf("listing notifications: %w", err)
	}
	report.Notifications = len(notifications)

	tfa, err := s.twoFactor.Get(ctx, bucket, subject.UserID, subject.UserType)
	if err != nil && !gocqlNotFound(err) {
		return "", fmt.Errorf("reading 2fa enrollment: %w", err)
	}
	report.TwoFactorEnabled = tfa != nil && tfa.Verified

	pref, err := s.prefs.Get(ctx, bucket, subject.UserID, subject.UserType)
	if err != nil && !gocqlNotFound(err) {
		return "", fmt.Errorf("reading preferences: %w", err)
	}
	report.Preferences = pref

	payload, err := json.Marshal(report)
	if err != nil {
		return "", fmt.Errorf("encoding access report: %w", err)
	}
	return string(payload), nil
}

func (s *GDPRService) eraseSubjectData(ctx context.Context, identity *models.Identity, request *models.DataProcessingRequest) (string, error) {
	subject := s.subjectFor(request)
	bucket := s.buckets.SubjectBucket(subject)

	receipt := erasureReceipt{
		Email:    request.Email,
		UserID:   subject.UserID,
		UserType: subject.UserType,
		ErasedAt: time.Now().UTC(),
	}

	sessionAudit := newAudit(s.buckets, identity, models.AuditSessionsInvalidated, "active_session",
		subject.UserID, "", "", "erasure for data request "+request.ID, nil)
	count, err := s.sessions.InvalidateAll(ctx, bucket, subject.UserID, subject.UserType, sessionAudit)
	if err != nil {
		return "", fmt.Errorf("invalidating sessions: %w", err)
	}
	receipt.SessionsInvalidated = count

	tfa, err := s.twoFactor.Get(ctx, bucket, subject.UserID, subject.UserType)
	if err != nil && !gocqlNotFound(err) {
		return "", fmt.Errorf("reading 2fa enrollment: %w", err)
	}
	if tfa != nil {
		before := TwoFactorPendingSetup
		if tfa.Verified {
			before = TwoFactorEnabled
		}
		tfaAudit := newAudit(s.buckets, identity, models.AuditTwoFactorDisabled, "two_factor_auth",
			subject.UserID, before, TwoFactorDisabled, "erasure for data request "+request.ID, nil)
		if err := s.twoFactor.Delete(ctx, bucket, subject.UserID, subject.UserType, tfaAudit); err != nil {
			return "", fmt.Errorf("removing 2fa enrollment: %w", err)
		}
		receipt.TwoFactorRemoved = true
	}

	payload, err := json.Marshal(receipt)
	if err != nil {
		return "", fmt.Errorf("encoding erasure receipt: %w", err)
	}
	return string(payload), nil
}

// subjectFor maps a data request onto the subject key the security tables use.
// Submitters who know their portal identity put it in the request metadata;
// otherwise the email stands in as a customer-typed subject id.
func (s *GDPRService) subjectFor(request *models.DataProcessingRequest) models.Subject {
	if userID := request.Metadata["user_id"]; userID != "" {
		userType := request.Metadata["user_type"]
		if !models.ValidUserType(userType) {
			userType = models.UserTypeCustomer
		}
		return models.Subject{UserID: userID, UserType: userType}
	}
	return models.Subject{UserID: request.Email, UserType: models.UserTypeCustomer}
}
