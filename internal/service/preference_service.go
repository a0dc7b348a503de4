package service

import (
	"context"
	"fmt"
	"time"

	"secops-service/internal/bucketing"
	"secops-service/internal/models"
	"secops-service/internal/repository/scylla"
)

// PreferenceUpdateRequest carries a partial preference update. Nil fields are
// left as they are.
type PreferenceUpdateRequest struct {
	LoginAlerts           *bool `json:"login_alerts,omitempty"`
	SecurityAlerts        *bool `json:"security_alerts,omitempty"`
	SessionTimeoutMinutes *int  `json:"session_timeout_minutes,omitempty"`
}

// PreferenceService manages per-subject security preferences. TwoFactorEnabled
// is not settable through the update surface, it tracks the 2FA lifecycle.
type PreferenceService struct {
	repo    scylla.PreferenceRepository
	buckets *bucketing.BucketingManager
}

func NewPreferenceService(repo scylla.PreferenceRepository, buckets *bucketing.BucketingManager) *PreferenceService {
	return &PreferenceService{repo: repo, buckets: buckets}
}

// Get returns the stored preference or the defaults when the subject has
// never saved one.
func (s *PreferenceService) Get(ctx context.Context, identity *models.Identity, subject models.Subject) (*models.UserSecurityPreference, error) {
	if err := RequireSelfOrSuperAdmin(identity, subject); err != nil {
		return nil, err
	}
	if !models.ValidUserType(subject.UserType) {
		return nil, fmt.Errorf("%w: unknown user type %q", ErrInvalidInput, subject.UserType)
	}

	bucket := s.buckets.SubjectBucket(subject)
	pref, err := s.repo.Get(ctx, bucket, subject.UserID, subject.UserType)
	if err != nil {
		if gocqlNotFound(err) {
			defaults := models.DefaultSecurityPreference(subject)
			defaults.Bucket = bucket
			return defaults, nil
		}
		return nil, err
	}

	return pref, nil
}

func (s *PreferenceService) Update(ctx context.Context, identity *models.Identity, subject models.Subject, req *PreferenceUpdateRequest) (*models.UserSecurityPreference, error) {
	if err := RequireSelfOrSuperAdmin(identity, subject); err != nil {
		return nil, err
	}
	if req.SessionTimeoutMinutes != nil && *req.SessionTimeoutMinutes <= 0 {
		return nil, fmt.Errorf("%w: session timeout must be positive", ErrInvalidInput)
	}

	pref, err := s.Get(ctx, identity, subject)
	if err != nil {
		return nil, err
	}

	if req.LoginAlerts != nil {
		pref.LoginAlerts = *req.LoginAlerts
	}
	if req.SecurityAlerts != nil {
		pref.SecurityAlerts = *req.SecurityAlerts
	}
	if req.SessionTimeoutMinutes != nil {
		pref.SessionTimeoutMinutes = *req.SessionTimeoutMinutes
	}
	pref.UpdatedAt = time.Now().UTC()

	if err := s.repo.Upsert(ctx, pref); err != nil {
		return nil, err
	}

	return pref, nil
}

// SetTwoFactorEnabled is called by the 2FA lifecycle to keep the preference
// row in step with the enrollment state.
func (s *PreferenceService) SetTwoFactorEnabled(ctx context.Context, subject models.Subject, enabled bool) error {
	bucket := s.buckets.SubjectBucket(subject)

	pref, err := s.repo.Get(ctx, bucket, subject.UserID, subject.UserType)
	if err != nil {
		if !gocqlNotFound(err) {
			return err
		}
		pref = models.DefaultSecurityPreference(subject)
		pref.Bucket = bucket
	}

	pref.TwoFactorEnabled = enabled
	pref.UpdatedAt = time.Now().UTC()

	return s.repo.Upsert(ctx, pref)
}
