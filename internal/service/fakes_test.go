package service

import (
	"context"
	"time"

	"github.com/gocql/gocql"

	"secops-service/internal/bucketing"
	"secops-service/internal/config"
	"secops-service/internal/models"
)

func testConfig() *config.Config {
	return &config.Config{
		Environment: "development",
		Hashing: config.HashingConfig{
			Argon2MemoryCost:  8192,
			Argon2TimeCost:    1,
			Argon2Parallelism: 1,
		},
		Bucketing: config.BucketingConfig{
			IdentityBuckets: 8,
			EventBuckets:    4,
		},
		Security: config.SecurityConfig{
			SuspiciousIPThreshold: 3,
			ActivityWindow:        24 * time.Hour,
			BackupCodeCount:       10,
			TOTPIssuer:            "SecOps",
			ListLimit:             50,
			SessionCacheTTL:       5 * time.Minute,
		},
	}
}

func testBuckets() *bucketing.BucketingManager {
	return bucketing.NewBucketingManager(testConfig())
}

func superAdmin() *models.Identity {
	return &models.Identity{AdminID: "admin-root", Role: models.RoleSuperAdmin, SessionToken: "tok-root"}
}

func manager() *models.Identity {
	return &models.Identity{AdminID: "admin-ops", Role: models.RoleAdmin, SessionToken: "tok-ops"}
}

func analyst() *models.Identity {
	return &models.Identity{AdminID: "admin-watch", Role: models.RoleAnalyst, SessionToken: "tok-watch"}
}

type subjectKey struct {
	userID   string
	userType string
}

// fakeThreatRepo is an in-memory ThreatRepository.
type fakeThreatRepo struct {
	threats map[string]*models.ThreatDetection
	audits  []*models.ComplianceAuditLog
}

func newFakeThreatRepo() *fakeThreatRepo {
	return &fakeThreatRepo{threats: make(map[string]*models.ThreatDetection)}
}

func (f *fakeThreatRepo) Create(_ context.Context, threat *models.ThreatDetection, audit *models.ComplianceAuditLog) error {
	copied := *threat
	f.threats[threat.ID] = &copied
	f.audits = append(f.audits, audit)
	return nil
}

func (f *fakeThreatRepo) GetByID(_ context.Context, _ int, id string) (*models.ThreatDetection, error) {
	threat, ok := f.threats[id]
	if !ok {
		return nil, gocql.ErrNotFound
	}
	copied := *threat
	return &copied, nil
}

func (f *fakeThreatRepo) UpdateStatus(_ context.Context, _ int, id string, status models.ThreatStatus) error {
	threat, ok := f.threats[id]
	if !ok {
		return gocql.ErrNotFound
	}
	threat.Status = status
	return nil
}

func (f *fakeThreatRepo) List(_ context.Context, _ []int) ([]*models.ThreatDetection, error) {
	out := make([]*models.ThreatDetection, 0, len(f.threats))
	for _, threat := range f.threats {
		copied := *threat
		out = append(out, &copied)
	}
	return out, nil
}

type fakeIncidentRepo struct {
	incidents map[string]*models.IncidentResponse
	audits    []*models.ComplianceAuditLog
}

func newFakeIncidentRepo() *fakeIncidentRepo {
	return &fakeIncidentRepo{incidents: make(map[string]*models.IncidentResponse)}
}

func (f *fakeIncidentRepo) Create(_ context.Context, incident *models.IncidentResponse, audit *models.ComplianceAuditLog) error {
	copied := *incident
	f.incidents[incident.ID] = &copied
	f.audits = append(f.audits, audit)
	return nil
}

func (f *fakeIncidentRepo) GetByID(_ context.Context, _ int, id string) (*models.IncidentResponse, error) {
	incident, ok := f.incidents[id]
	if !ok {
		return nil, gocql.ErrNotFound
	}
	copied := *incident
	return &copied, nil
}

func (f *fakeIncidentRepo) UpdateStatus(_ context.Context, _ int, id string, status models.IncidentStatus, audit *models.ComplianceAuditLog) error {
	incident, ok := f.incidents[id]
	if !ok {
		return gocql.ErrNotFound
	}
	incident.Status = status
	f.audits = append(f.audits, audit)
	return nil
}

func (f *fakeIncidentRepo) List(_ context.Context, _ []int) ([]*models.IncidentResponse, error) {
	out := make([]*models.IncidentResponse, 0, len(f.incidents))
	for _, incident := range f.incidents {
		copied := *incident
		out = append(out, &copied)
	}
	return out, nil
}

type fakeDataRequestRepo struct {
	requests map[string]*models.DataProcessingRequest
	audits   []*models.ComplianceAuditLog
}

func newFakeDataRequestRepo() *fakeDataRequestRepo {
	return &fakeDataRequestRepo{requests: make(map[string]*models.DataProcessingRequest)}
}

func (f *fakeDataRequestRepo) Create(_ context.Context, _ int, request *models.DataProcessingRequest) error {
	copied := *request
	f.requests[request.ID] = &copied
	return nil
}

func (f *fakeDataRequestRepo) GetByID(_ context.Context, _ int, id string) (*models.DataProcessingRequest, error) {
	request, ok := f.requests[id]
	if !ok {
		return nil, gocql.ErrNotFound
	}
	copied := *request
	return &copied, nil
}

func (f *fakeDataRequestRepo) Resolve(_ context.Context, _ int, request *models.DataProcessingRequest, audit *models.ComplianceAuditLog) error {
	copied := *request
	f.requests[request.ID] = &copied
	f.audits = append(f.audits, audit)
	return nil
}

func (f *fakeDataRequestRepo) List(_ context.Context, _ []int) ([]*models.DataProcessingRequest, error) {
	out := make([]*models.DataProcessingRequest, 0, len(f.requests))
	for _, request := range f.requests {
		copied := *request
		out = append(out, &copied)
	}
	return out, nil
}

type fakeTwoFactorRepo struct {
	rows   map[subjectKey]*models.TwoFactorAuth
	audits []*models.ComplianceAuditLog
}

func newFakeTwoFactorRepo() *fakeTwoFactorRepo {
	return &fakeTwoFactorRepo{rows: make(map[subjectKey]*models.TwoFactorAuth)}
}

func (f *fakeTwoFactorRepo) Get(_ context.Context, _ int, userID, userType string) (*models.TwoFactorAuth, error) {
	row, ok := f.rows[subjectKey{userID, userType}]
	if !ok {
		return nil, gocql.ErrNotFound
	}
	copied := *row
	copied.BackupCodeHashes = append([]string(nil), row.BackupCodeHashes...)
	return &copied, nil
}

func (f *fakeTwoFactorRepo) Create(_ context.Context, tfa *models.TwoFactorAuth) error {
	copied := *tfa
	f.rows[subjectKey{tfa.UserID, tfa.UserType}] = &copied
	return nil
}

func (f *fakeTwoFactorRepo) MarkVerified(_ context.Context, _ int, userID, userType string, at time.Time, audit *models.ComplianceAuditLog) error {
	row, ok := f.rows[subjectKey{userID, userType}]
	if !ok {
		return gocql.ErrNotFound
	}
	row.Verified = true
	row.VerifiedAt = &at
	f.audits = append(f.audits, audit)
	return nil
}

func (f *fakeTwoFactorRepo) UpdateBackupCodes(_ context.Context, _ int, userID, userType string, hashes []string, issued bool) error {
	row, ok := f.rows[subjectKey{userID, userType}]
	if !ok {
		return gocql.ErrNotFound
	}
	row.BackupCodeHashes = append([]string(nil), hashes...)
	row.BackupCodesIssued = issued
	return nil
}

func (f *fakeTwoFactorRepo) Delete(_ context.Context, _ int, userID, userType string, audit *models.ComplianceAuditLog) error {
	delete(f.rows, subjectKey{userID, userType})
	f.audits = append(f.audits, audit)
	return nil
}

type fakePreferenceRepo struct {
	rows map[subjectKey]*models.UserSecurityPreference
}

func newFakePreferenceRepo() *fakePreferenceRepo {
	return &fakePreferenceRepo{rows: make(map[subjectKey]*models.UserSecurityPreference)}
}

func (f *fakePreferenceRepo) Get(_ context.Context, _ int, userID, userType string) (*models.UserSecurityPreference, error) {
	pref, ok := f.rows[subjectKey{userID, userType}]
	if !ok {
		return nil, gocql.ErrNotFound
	}
	copied := *pref
	return &copied, nil
}

func (f *fakePreferenceRepo) Upsert(_ context.Context, pref *models.UserSecurityPreference) error {
	copied := *pref
	f.rows[subjectKey{pref.UserID, pref.UserType}] = &copied
	return nil
}

type fakeSessionRepo struct {
	sessions   []*models.ActiveSession
	activities []*models.SessionActivity
	audits     []*models.ComplianceAuditLog
}

func (f *fakeSessionRepo) CreateSession(_ context.Context, session *models.ActiveSession) error {
	copied := *session
	f.sessions = append(f.sessions, &copied)
	return nil
}

func (f *fakeSessionRepo) TouchSession(_ context.Context, session *models.ActiveSession) error {
	for _, existing := range f.sessions {
		if existing.SessionToken == session.SessionToken {
			existing.LastActivity = session.LastActivity
			return nil
		}
	}
	return nil
}

func (f *fakeSessionRepo) ListSessions(_ context.Context, _ int, userID, userType string) ([]*models.ActiveSession, error) {
	var out []*models.ActiveSession
	for _, session := range f.sessions {
		if session.UserID == userID && session.UserType == userType {
			copied := *session
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (f *fakeSessionRepo) RecordActivity(_ context.Context, activity *models.SessionActivity) error {
	copied := *activity
	f.activities = append(f.activities, &copied)
	return nil
}

func (f *fakeSessionRepo) ListActivitySince(_ context.Context, _ int, userID, userType string, since time.Time) ([]*models.SessionActivity, error) {
	var out []*models.SessionActivity
	for _, activity := range f.activities {
		if activity.UserID == userID && activity.UserType == userType && !activity.OccurredAt.Before(since) {
			copied := *activity
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (f *fakeSessionRepo) InvalidateAll(_ context.Context, _ int, userID, userType string, audit *models.ComplianceAuditLog) (int, error) {
	count := 0
	for _, session := range f.sessions {
		if session.UserID == userID && session.UserType == userType && session.IsActive {
			session.IsActive = false
			count++
		}
	}
	f.audits = append(f.audits, audit)
	return count, nil
}

type fakeNotificationRepo struct {
	notifications []*models.SecurityNotification
}

func (f *fakeNotificationRepo) Create(_ context.Context, notification *models.SecurityNotification) error {
	copied := *notification
	f.notifications = append(f.notifications, &copied)
	return nil
}

func (f *fakeNotificationRepo) List(_ context.Context, _ int, userID, userType string, limit int) ([]*models.SecurityNotification, error) {
	var out []*models.SecurityNotification
	for _, notification := range f.notifications {
		if notification.UserID == userID && notification.UserType == userType {
			copied := *notification
			out = append(out, &copied)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeNotificationRepo) MarkRead(_ context.Context, notification *models.SecurityNotification, at time.Time) error {
	for _, existing := range f.notifications {
		if existing.ID == notification.ID {
			existing.IsRead = true
			existing.ReadAt = &at
		}
	}
	return nil
}

func (f *fakeNotificationRepo) MarkManyRead(ctx context.Context, notifications []*models.SecurityNotification, at time.Time) error {
	for _, notification := range notifications {
		if err := f.MarkRead(ctx, notification, at); err != nil {
			return err
		}
	}
	return nil
}

type fakeAuditRepo struct {
	entries []*models.ComplianceAuditLog
}

func (f *fakeAuditRepo) Create(_ context.Context, entry *models.ComplianceAuditLog) error {
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeAuditRepo) ListByDay(_ context.Context, day string, limit int) ([]*models.ComplianceAuditLog, error) {
	var out []*models.ComplianceAuditLog
	for _, entry := range f.entries {
		if entry.Day == day {
			out = append(out, entry)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

type fakeAdminSessionRepo struct {
	rows    map[string]*models.AdminSession
	touched int
}

func newFakeAdminSessionRepo() *fakeAdminSessionRepo {
	return &fakeAdminSessionRepo{rows: make(map[string]*models.AdminSession)}
}

func (f *fakeAdminSessionRepo) Get(_ context.Context, sessionToken string) (*models.AdminSession, error) {
	session, ok := f.rows[sessionToken]
	if !ok {
		return nil, gocql.ErrNotFound
	}
	copied := *session
	return &copied, nil
}

func (f *fakeAdminSessionRepo) Create(_ context.Context, session *models.AdminSession) error {
	copied := *session
	f.rows[session.SessionToken] = &copied
	return nil
}

func (f *fakeAdminSessionRepo) Touch(_ context.Context, sessionToken string, at time.Time) error {
	if session, ok := f.rows[sessionToken]; ok {
		session.LastActivity = at
	}
	f.touched++
	return nil
}

func (f *fakeAdminSessionRepo) Deactivate(_ context.Context, sessionToken string) error {
	if session, ok := f.rows[sessionToken]; ok {
		session.IsActive = false
	}
	return nil
}

type fakeTokenStore struct {
	identities  map[string]*models.Identity
	invalidated []string
}

func newFakeTokenStore() *fakeTokenStore {
	return &fakeTokenStore{identities: make(map[string]*models.Identity)}
}

func (f *fakeTokenStore) GetIdentity(sessionToken string) (*models.Identity, error) {
	identity, ok := f.identities[sessionToken]
	if !ok {
		return nil, gocql.ErrNotFound
	}
	return identity, nil
}

func (f *fakeTokenStore) SetIdentity(sessionToken string, identity *models.Identity, _ time.Duration) error {
	f.identities[sessionToken] = identity
	return nil
}

func (f *fakeTokenStore) InvalidateUserTokens(userID string) error {
	f.invalidated = append(f.invalidated, userID)
	return nil
}

type notified struct {
	subject  models.Subject
	category string
	severity models.ThreatSeverity
	title    string
}

type fakeNotifier struct {
	raised []notified
}

func (f *fakeNotifier) Notify(_ context.Context, subject models.Subject, category string, severity models.ThreatSeverity, title, _ string) error {
	f.raised = append(f.raised, notified{subject: subject, category: category, severity: severity, title: title})
	return nil
}

type fakePublisher struct {
	events []*models.SecurityEvent
}

func (f *fakePublisher) Publish(event *models.SecurityEvent) {
	f.events = append(f.events, event)
}

type fakeStats struct {
	byType     map[string]uint64
	bySeverity map[string]uint64
}

func (f *fakeStats) CountEventsByType(_ context.Context, _ time.Time) (map[string]uint64, error) {
	return f.byType, nil
}

func (f *fakeStats) CountEventsBySeverity(_ context.Context, _ time.Time) (map[string]uint64, error) {
	return f.bySeverity, nil
}

type fakeSearcher struct {
	indexed []*models.ThreatDetection
	results []*models.ThreatDetection
}

func (f *fakeSearcher) Index(_ context.Context, threat *models.ThreatDetection) error {
	copied := *threat
	f.indexed = append(f.indexed, &copied)
	return nil
}

func (f *fakeSearcher) Search(_ context.Context, _, _, _ string, _ int) ([]*models.ThreatDetection, error) {
	return f.results, nil
}
