package scylla

import (
	"context"
	"time"

	"secops-service/internal/models"
)

// ThreatRepository defines persistence for detected threats
type ThreatRepository interface {
	Create(ctx context.Context, threat *models.ThreatDetection, audit *models.ComplianceAuditLog) error
	GetByID(ctx context.Context, bucket int, id string) (*models.ThreatDetection, error)
	UpdateStatus(ctx context.Context, bucket int, id string, status models.ThreatStatus) error
	List(ctx context.Context, buckets []int) ([]*models.ThreatDetection, error)
}

// IncidentRepository defines persistence for incident responses
type IncidentRepository interface {
	Create(ctx context.Context, incident *models.IncidentResponse, audit *models.ComplianceAuditLog) error
	GetByID(ctx context.Context, bucket int, id string) (*models.IncidentResponse, error)
	UpdateStatus(ctx context.Context, bucket int, id string, status models.IncidentStatus, audit *models.ComplianceAuditLog) error
	List(ctx context.Context, buckets []int) ([]*models.IncidentResponse, error)
}

// DataRequestRepository defines persistence for GDPR data processing requests
type DataRequestRepository interface {
	Create(ctx context.Context, bucket int, request *models.DataProcessingRequest) error
	GetByID(ctx context.Context, bucket int, id string) (*models.DataProcessingRequest, error)
	Resolve(ctx context.Context, bucket int, request *models.DataProcessingRequest, audit *models.ComplianceAuditLog) error
	List(ctx context.Context, buckets []int) ([]*models.DataProcessingRequest, error)
}

// TwoFactorRepository defines persistence for TOTP enrollments
type TwoFactorRepository interface {
	Get(ctx context.Context, bucket int, userID, userType string) (*models.TwoFactorAuth, error)
	Create(ctx context.Context, tfa *models.TwoFactorAuth) error
	MarkVerified(ctx context.Context, bucket int, userID, userType string, at time.Time, audit *models.ComplianceAuditLog) error
	UpdateBackupCodes(ctx context.Context, bucket int, userID, userType string, hashes []string, issued bool) error
	Delete(ctx context.Context, bucket int, userID, userType string, audit *models.ComplianceAuditLog) error
}

// PreferenceRepository defines persistence for per-subject security preferences
type PreferenceRepository interface {
	Get(ctx context.Context, bucket int, userID, userType string) (*models.UserSecurityPreference, error)
	Upsert(ctx context.Context, pref *models.UserSecurityPreference) error
}

// SessionRepository defines persistence for tracked sessions and their activity trail
type SessionRepository interface {
	CreateSession(ctx context.Context, session *models.ActiveSession) error
	TouchSession(ctx context.Context, session *models.ActiveSession) error
	ListSessions(ctx context.Context, bucket int, userID, userType string) ([]*models.ActiveSession, error)
	RecordActivity(ctx context.Context, activity *models.SessionActivity) error
	ListActivitySince(ctx context.Context, bucket int, userID, userType string, since time.Time) ([]*models.SessionActivity, error)
	InvalidateAll(ctx context.Context, bucket int, userID, userType string, audit *models.ComplianceAuditLog) (int, error)
}

// NotificationRepository defines persistence for security notifications.
// A List limit of zero or less means no limit.
type NotificationRepository interface {
	Create(ctx context.Context, notification *models.SecurityNotification) error
	List(ctx context.Context, bucket int, userID, userType string, limit int) ([]*models.SecurityNotification, error)
	MarkRead(ctx context.Context, notification *models.SecurityNotification, at time.Time) error
	MarkManyRead(ctx context.Context, notifications []*models.SecurityNotification, at time.Time) error
}

// AuditRepository defines persistence for the append-only compliance trail
type AuditRepository interface {
	Create(ctx context.Context, entry *models.ComplianceAuditLog) error
	ListByDay(ctx context.Context, day string, limit int) ([]*models.ComplianceAuditLog, error)
}

// AdminSessionRepository defines persistence for back-office admin sessions
type AdminSessionRepository interface {
	Get(ctx context.Context, sessionToken string) (*models.AdminSession, error)
	Create(ctx context.Context, session *models.AdminSession) error
	Touch(ctx context.Context, sessionToken string, at time.Time) error
	Deactivate(ctx context.Context, sessionToken string) error
}
