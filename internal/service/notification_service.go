package service

import (
	"context"
	"fmt"
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

// Notifier is the internal surface other services use to raise a security
// notification for a subject.
type Notifier interface {
	Notify(ctx context.Context, subject models.Subject, category string, severity models.ThreatSeverity, title, body string) error
}

// NotificationService manages per-subject security notifications.
type NotificationService struct {
	repo      scylla.NotificationRepository
	buckets   *bucketing.BucketingManager
	listLimit int
}

func NewNotificationService(repo scylla.NotificationRepository, buckets *bucketing.BucketingManager, cfg *config.Config) *NotificationService {
	return &NotificationService{
		repo:      repo,
		buckets:   buckets,
		listLimit: cfg.Security.ListLimit,
	}
}

// Notify creates an unread notification for the subject. Called by the other
// security services; there is no public create endpoint.
func (s *NotificationService) Notify(ctx context.Context, subject models.Subject, category string, severity models.ThreatSeverity, title, body string) error {
	notification := &models.SecurityNotification{
		Bucket:    s.buckets.SubjectBucket(subject),
		UserID:    subject.UserID,
		UserType:  subject.UserType,
		ID:        uuid.New().String(),
		Category:  category,
		Severity:  severity,
		Title:     title,
		Body:      body,
		IsRead:    false,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.repo.Create(ctx, notification); err != nil {
		return err
	}

	util.Debug("Security notification raised",
		zap.String("user_id", subject.UserID),
		zap.String("category", category))
	return nil
}

// NotificationCreateRequest is the authenticated create payload.
type NotificationCreateRequest struct {
	Category string `json:"category"`
	Severity string `json:"severity"`
	Title    string `json:"title"`
	Body     string `json:"body,omitempty"`
}

// Create raises a notification through the HTTP surface. Same gate as the
// read side: a caller may notify themselves, a SUPER_ADMIN anyone.
func (s *NotificationService) Create(ctx context.Context, identity *models.Identity, subject models.Subject, req *NotificationCreateRequest) error {
	if err := RequireSelfOrSuperAdmin(identity, subject); err != nil {
		return err
	}
	if !models.ValidUserType(subject.UserType) {
		return fmt.Errorf("%w: unknown user type %q", ErrInvalidInput, subject.UserType)
	}

	severity := models.ThreatSeverity(strings.ToUpper(req.Severity))
	if !severity.Valid() {
		return fmt.Errorf("%w: unknown severity %q", ErrInvalidInput, req.Severity)
	}
	if req.Title == "" || req.Category == "" {
		return fmt.Errorf("%w: category and title are required", ErrInvalidInput)
	}

	return s.Notify(ctx, subject, req.Category, severity, req.Title, req.Body)
}

func (s *NotificationService) List(ctx context.Context, identity *models.Identity, subject models.Subject) ([]*models.SecurityNotification, error) {
	if err := RequireSelfOrSuperAdmin(identity, subject); err != nil {
		return nil, err
	}
	if !models.ValidUserType(subject.UserType) {
		return nil, fmt.Errorf("%w: unknown user type %q", ErrInvalidInput, subject.UserType)
	}

	bucket := s.buckets.SubjectBucket(subject)
	return s.repo.List(ctx, bucket, subject.UserID, subject.UserType, s.listLimit)
}

// MarkRead flips one notification to read. Marking an already-read
// notification succeeds without touching the row. The lookup reads the whole
// partition: the target may sit past the read-path page.
func (s *NotificationService) MarkRead(ctx context.Context, identity *models.Identity, subject models.Subject, notificationID string) error {
	if err := RequireSelfOrSuperAdmin(identity, subject); err != nil {
		return err
	}

	bucket := s.buckets.SubjectBucket(subject)
	notifications, err := s.repo.List(ctx, bucket, subject.UserID, subject.UserType, 0)
	if err != nil {
		return err
	}

	for _, notification := range notifications {
		if notification.ID != notificationID {
			continue
		}
		if notification.IsRead {
			return nil
		}
		return s.repo.MarkRead(ctx, notification, time.Now().UTC())
	}

	return fmt.Errorf("%w: notification %s", ErrNotFound, notificationID)
}

// MarkAllRead flips every unread notification for the subject, however many
// there are; the sweep is not bounded by the read-path page size. Idempotent:
// a second call finds nothing unread and succeeds. Returns how many rows
// were flipped.
func (s *NotificationService) MarkAllRead(ctx context.Context, identity *models.Identity, subject models.Subject) (int, error) {
	if err := RequireSelfOrSuperAdmin(identity, subject); err != nil {
		return 0, err
	}

	bucket := s.buckets.SubjectBucket(subject)
	notifications, err := s.repo.List(ctx, bucket, subject.UserID, subject.UserType, 0)
	if err != nil {
		return 0, err
	}

	var unread []*models.SecurityNotification
	for _, notification := range notifications {
		if !notification.IsRead {
			unread = append(unread, notification)
		}
	}

	if len(unread) == 0 {
		return 0, nil
	}

	if err := s.repo.MarkManyRead(ctx, unread, time.Now().UTC()); err != nil {
		return 0, err
	}

	return len(unread), nil
}
