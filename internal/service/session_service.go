package service

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"secops-service/internal/bucketing"
	"secops-service/internal/config"
	"secops-service/internal/models"
	"secops-service/internal/repository/scylla"
	"secops-service/internal/util"
)

// SessionActivityRequest is the payload for the track and update actions.
type SessionActivityRequest struct {
	SessionToken string `json:"session_token"`
	IPAddress    string `json:"ip_address"`
	UserAgent    string `json:"user_agent,omitempty"`
}

// SuspiciousActivityResult reports the multi-IP heuristic for a subject.
// Reasons is empty when nothing is flagged.
type SuspiciousActivityResult struct {
	Suspicious  bool     `json:"suspicious"`
	DistinctIPs int      `json:"distinct_ips"`
	Threshold   int      `json:"threshold"`
	IPs         []string `json:"ips,omitempty"`
	Reasons     []string `json:"reasons"`
}

// SessionService tracks session activity and applies the multi-IP anomaly
// heuristic: activity from strictly more than the configured number of
// distinct IPs inside the window flags the subject.
type SessionService struct {
	repo      scylla.SessionRepository
	tokens    TokenStore
	notifier  Notifier
	events    EventPublisher
	buckets   *bucketing.BucketingManager
	threshold int
	window    time.Duration
}

func NewSessionService(
	repo scylla.SessionRepository,
	tokens TokenStore,
	notifier Notifier,
	events EventPublisher,
	buckets *bucketing.BucketingManager,
	cfg *config.Config,
) *SessionService {
	return &SessionService{
		repo:      repo,
		tokens:    tokens,
		notifier:  notifier,
		events:    events,
		buckets:   buckets,
		threshold: cfg.Security.SuspiciousIPThreshold,
		window:    cfg.Security.ActivityWindow,
	}
}

// Track registers a new session for the subject and appends the activity row.
func (s *SessionService) Track(ctx context.Context, identity *models.Identity, subject models.Subject, req *SessionActivityRequest) error {
	if identity == nil {
		return ErrUnauthorized
	}
	ip, err := validateActivity(subject, req)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	bucket := s.buckets.SubjectBucket(subject)

	session := &models.ActiveSession{
		Bucket:       bucket,
		UserID:       subject.UserID,
		UserType:     subject.UserType,
		SessionToken: req.SessionToken,
		IPAddress:    ip,
		UserAgent:    req.UserAgent,
		CreatedAt:    now,
		LastActivity: now,
		IsActive:     true,
	}
	if err := s.repo.CreateSession(ctx, session); err != nil {
		return err
	}

	return s.appendActivity(ctx, bucket, subject, req, models.SessionTrackActivity, ip, now)
}

// Update refreshes last-activity on an existing active session and appends
// the activity row. A heartbeat against an invalidated or unknown session is
// rejected: the CQL update is an upsert, so the guard has to live here or an
// unknown token would materialize a phantom row.
func (s *SessionService) Update(ctx context.Context, identity *models.Identity, subject models.Subject, req *SessionActivityRequest) error {
	if identity == nil {
		return ErrUnauthorized
	}
	ip, err := validateActivity(subject, req)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	bucket := s.buckets.SubjectBucket(subject)

	sessions, err := s.repo.ListSessions(ctx, bucket, subject.UserID, subject.UserType)
	if err != nil {
		return err
	}
	var current *models.ActiveSession
	for _, existing := range sessions {
		if existing.SessionToken == req.SessionToken {
			current = existing
			break
		}
	}
	if current == nil || !current.IsActive {
		return fmt.Errorf("%w: no active session for token", ErrNotFound)
	}

	session := &models.ActiveSession{
		Bucket:       bucket,
		UserID:       subject.UserID,
		UserType:     subject.UserType,
		SessionToken: req.SessionToken,
		IPAddress:    ip,
		UserAgent:    req.UserAgent,
		LastActivity: now,
	}
	if err := s.repo.TouchSession(ctx, session); err != nil {
		return err
	}

	return s.appendActivity(ctx, bucket, subject, req, models.SessionUpdateActivity, ip, now)
}

// DetectSuspicious counts distinct IPs in the subject's activity window. The
// subject is flagged only when the count strictly exceeds the threshold; at
// exactly the threshold nothing is raised.
func (s *SessionService) DetectSuspicious(ctx context.Context, identity *models.Identity, subject models.Subject) (*SuspiciousActivityResult, error) {
	if identity == nil {
		return nil, ErrUnauthorized
	}
	if !models.ValidUserType(subject.UserType) {
		return nil, fmt.Errorf("%w: unknown user type %q", ErrInvalidInput, subject.UserType)
	}

	bucket := s.buckets.SubjectBucket(subject)
	since := time.Now().UTC().Add(-s.window)

	activities, err := s.repo.ListActivitySince(ctx, bucket, subject.UserID, subject.UserType, since)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	for _, activity := range activities {
		if len(activity.IPAddress) == 0 {
			continue
		}
		seen[activity.IPAddress.String()] = struct{}{}
	}

	ips := make([]string, 0, len(seen))
	for ip := range seen {
		ips = append(ips, ip)
	}

	result := &SuspiciousActivityResult{
		Suspicious:  len(seen) > s.threshold,
		DistinctIPs: len(seen),
		Threshold:   s.threshold,
		IPs:         ips,
		Reasons:     []string{},
	}

	if result.Suspicious {
		result.Reasons = append(result.Reasons,
			fmt.Sprintf("activity from %d distinct IPs in the last %s exceeds threshold %d",
				result.DistinctIPs, s.window, s.threshold))

		util.Warn("Suspicious session activity detected",
			zap.String("user_id", subject.UserID),
			zap.String("user_type", subject.UserType),
			zap.Int("distinct_ips", result.DistinctIPs),
			zap.Int("threshold", s.threshold))

		if s.notifier != nil {
			if err := s.notifier.Notify(ctx, subject, models.NotifySuspiciousSession, models.SeverityHigh,
				"Suspicious session activity",
				fmt.Sprintf("Activity from %d distinct IP addresses in the last %s.", result.DistinctIPs, s.window)); err != nil {
				util.Warn("Failed to notify suspicious activity", zap.Error(err))
			}
		}
		if s.events != nil {
			s.events.Publish(newEvent(models.EventSuspiciousSession, models.SeverityHigh,
				identity.AdminID, "session_activity", subject.UserID,
				fmt.Sprintf("%d distinct IPs", result.DistinctIPs)))
		}
	}

	return result, nil
}

// Invalidate deactivates every session for the subject, purges their cached
// tokens and notifies them of the forced logout.
func (s *SessionService) Invalidate(ctx context.Context, identity *models.Identity, subject models.Subject) (int, error) {
	if identity == nil {
		return 0, ErrUnauthorized
	}
	if !identity.Role.CanManageSecurity() {
		if err := RequireSelfOrSuperAdmin(identity, subject); err != nil {
			return 0, err
		}
	}
	if !models.ValidUserType(subject.UserType) {
		return 0, fmt.Errorf("%w: unknown user type %q", ErrInvalidInput, subject.UserType)
	}

	bucket := s.buckets.SubjectBucket(subject)

	audit := newAudit(s.buckets, identity, models.AuditSessionsInvalidated, "active_session",
		subject.UserID, "", "", "", nil)

	count, err := s.repo.InvalidateAll(ctx, bucket, subject.UserID, subject.UserType, audit)
	if err != nil {
		return 0, err
	}

	if s.tokens != nil {
		if err := s.tokens.InvalidateUserTokens(subject.UserID); err != nil {
			util.Warn("Failed to purge cached tokens after invalidation",
				zap.String("user_id", subject.UserID),
				zap.Error(err))
		}
	}
	if s.notifier != nil {
		if err := s.notifier.Notify(ctx, subject, models.NotifyForcedLogout, models.SeverityHigh,
			"All sessions signed out",
			"Every active session on your account was invalidated by a security action."); err != nil {
			util.Warn("Failed to notify forced logout", zap.Error(err))
		}
	}
	if s.events != nil {
		s.events.Publish(newEvent(models.EventForcedLogout, models.SeverityHigh,
			identity.AdminID, "active_session", subject.UserID,
			fmt.Sprintf("%d sessions invalidated", count)))
	}

	return count, nil
}

func (s *SessionService) ListSessions(ctx context.Context, identity *models.Identity, subject models.Subject) ([]*models.ActiveSession, error) {
	if err := RequireSelfOrSuperAdmin(identity, subject); err != nil {
		return nil, err
	}

	bucket := s.buckets.SubjectBucket(subject)
	return s.repo.ListSessions(ctx, bucket, subject.UserID, subject.UserType)
}

func (s *SessionService) appendActivity(ctx context.Context, bucket int, subject models.Subject, req *SessionActivityRequest, action string, ip net.IP, now time.Time) error {
	return s.repo.RecordActivity(ctx, &models.SessionActivity{
		Bucket:       bucket,
		UserID:       subject.UserID,
		UserType:     subject.UserType,
		ID:           uuid.New().String(),
		SessionToken: req.SessionToken,
		Action:       action,
		IPAddress:    ip,
		UserAgent:    req.UserAgent,
		OccurredAt:   now,
	})
}

func validateActivity(subject models.Subject, req *SessionActivityRequest) (net.IP, error) {
	if !models.ValidUserType(subject.UserType) {
		return nil, fmt.Errorf("%w: unknown user type %q", ErrInvalidInput, subject.UserType)
	}
	if subject.UserID == "" || req.SessionToken == "" {
		return nil, fmt.Errorf("%w: user_id and session_token are required", ErrInvalidInput)
	}
	ip := net.ParseIP(req.IPAddress)
	if ip == nil {
		return nil, fmt.Errorf("%w: unparseable ip_address %q", ErrInvalidInput, req.IPAddress)
	}
	return ip, nil
}
