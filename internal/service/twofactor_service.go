package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"secops-service/internal/bucketing"
	"secops-service/internal/config"
	"secops-service/internal/encryption"
	"secops-service/internal/hashing"
	"secops-service/internal/mfa"
	"secops-service/internal/models"
	"secops-service/internal/repository/scylla"
	"secops-service/internal/util"
)

// Two-factor lifecycle states. Disabled is the absence of an enrollment row.
const (
	TwoFactorDisabled     = "DISABLED"
	TwoFactorPendingSetup = "PENDING_SETUP"
	TwoFactorEnabled      = "ENABLED"
)

// TwoFactorSetupResponse carries the shared secret exactly once, at setup.
type TwoFactorSetupResponse struct {
	Secret        string `json:"secret"`
	EnrollmentURL string `json:"enrollment_url"`
}

// TwoFactorStatusResponse is the lifecycle state of a subject's enrollment.
type TwoFactorStatusResponse struct {
	State             string     `json:"state"`
	Method            string     `json:"method,omitempty"`
	BackupCodesIssued bool       `json:"backup_codes_issued"`
	VerifiedAt        *time.Time `json:"verified_at,omitempty"`
}

// TwoFactorService manages TOTP enrollments. Secrets are envelope-encrypted
// at rest, backup codes stored only as argon2id hashes and consumed on use.
type TwoFactorService struct {
	repo        scylla.TwoFactorRepository
	enc         *encryption.Manager
	hasher      *hashing.Hasher
	prefs       *PreferenceService
	notifier    Notifier
	events      EventPublisher
	buckets     *bucketing.BucketingManager
	issuer      string
	backupCount int
}

func NewTwoFactorService(
	repo scylla.TwoFactorRepository,
	enc *encryption.Manager,
	hasher *hashing.Hasher,
	prefs *PreferenceService,
	notifier Notifier,
	events EventPublisher,
	buckets *bucketing.BucketingManager,
	cfg *config.Config,
) *TwoFactorService {
	return &TwoFactorService{
		repo:        repo,
		enc:         enc,
		hasher:      hasher,
		prefs:       prefs,
		notifier:    notifier,
		events:      events,
		buckets:     buckets,
		issuer:      cfg.Security.TOTPIssuer,
		backupCount: cfg.Security.BackupCodeCount,
	}
}

// Setup starts or restarts enrollment. A fresh secret is generated each call
// until the subject verifies; setting up over an enabled enrollment is a
// conflict, the caller must disable first.
func (s *TwoFactorService) Setup(ctx context.Context, identity *models.Identity, subject models.Subject) (*TwoFactorSetupResponse, error) {
	if err := RequireSelfOrSuperAdmin(identity, subject); err != nil {
		return nil, err
	}
	if !models.ValidUserType(subject.UserType) {
		return nil, fmt.Errorf("%w: unknown user type %q", ErrInvalidInput, subject.UserType)
	}

	bucket := s.buckets.SubjectBucket(subject)

	existing, err := s.repo.Get(ctx, bucket, subject.UserID, subject.UserType)
	if err != nil && !gocqlNotFound(err) {
		return nil, err
	}
	if existing != nil && existing.Verified {
		return nil, fmt.Errorf("%w: two-factor authentication is already enabled", ErrConflict)
	}

	secret, enrollmentURL, err := mfa.GenerateSecret(s.issuer, subject.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to generate TOTP secret: %w", err)
	}

	sealed, err := s.enc.EncryptSecret(ctx, secret)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt TOTP secret: %w", err)
	}

	tfa := &models.TwoFactorAuth{
		Bucket:          bucket,
		UserID:          subject.UserID,
		UserType:        subject.UserType,
		Method:          models.MethodTOTP,
		SecretEncrypted: sealed.Ciphertext,
		SecretDEK:       sealed.EncryptedDEK,
		SecretKeyID:     sealed.KeyID,
		Verified:        false,
		CreatedAt:       time.Now().UTC(),
	}

	if err := s.repo.Create(ctx, tfa); err != nil {
		return nil, err
	}

	return &TwoFactorSetupResponse{
		Secret:        secret,
		EnrollmentURL: enrollmentURL,
	}, nil
}

// Verify proves possession of the secret. The first successful verification
// enables the enrollment and returns the initial backup codes, the only time
// they exist in plaintext. Later verifications succeed with no codes.
func (s *TwoFactorService) Verify(ctx context.Context, identity *models.Identity, subject models.Subject, code string) ([]string, error) {
	if err := RequireSelfOrSuperAdmin(identity, subject); err != nil {
		return nil, err
	}

	bucket := s.buckets.SubjectBucket(subject)

	tfa, err := s.repo.Get(ctx, bucket, subject.UserID, subject.UserType)
	if err != nil {
		if gocqlNotFound(err) {
			return nil, fmt.Errorf("%w: no two-factor enrollment", ErrNotFound)
		}
		return nil, err
	}

	secret, err := s.enc.DecryptSecret(ctx, &encryption.EncryptedSecret{
		Ciphertext:   tfa.SecretEncrypted,
		EncryptedDEK: tfa.SecretDEK,
		KeyID:        tfa.SecretKeyID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt TOTP secret: %w", err)
	}

	if !mfa.ValidateCode(code, secret) {
		return nil, fmt.Errorf("%w: verification code rejected", ErrInvalidInput)
	}

	if tfa.Verified {
		return nil, nil
	}

	now := time.Now().UTC()
	audit := newAudit(s.buckets, identity, models.AuditTwoFactorEnabled, "two_factor_auth",
		subject.UserID, TwoFactorPendingSetup, TwoFactorEnabled, "", nil)

	if err := s.repo.MarkVerified(ctx, bucket, subject.UserID, subject.UserType, now, audit); err != nil {
		return nil, err
	}

	if err := s.prefs.SetTwoFactorEnabled(ctx, subject, true); err != nil {
		util.Warn("Failed to update preference after 2FA enable",
			zap.String("user_id", subject.UserID),
			zap.Error(err))
	}
	if s.notifier != nil {
		if err := s.notifier.Notify(ctx, subject, models.NotifyTwoFactorChange, models.SeverityLow,
			"Two-factor authentication enabled",
			"TOTP two-factor authentication was enabled on your account."); err != nil {
			util.Warn("Failed to notify 2FA enable", zap.Error(err))
		}
	}
	if s.events != nil {
		s.events.Publish(newEvent(models.EventTwoFactorChanged, models.SeverityLow,
			identity.AdminID, "two_factor_auth", subject.UserID, TwoFactorEnabled))
	}

	codes, err := s.issueBackupCodes(ctx, bucket, subject)
	if err != nil {
		// Enrollment is committed; issuance can be retried through
		// GenerateBackupCodes while backup_codes_issued stays false.
		util.Warn("Failed to issue backup codes after verification",
			zap.String("user_id", subject.UserID),
			zap.Error(err))
		return nil, nil
	}
	return codes, nil
}

func (s *TwoFactorService) Status(ctx context.Context, identity *models.Identity, subject models.Subject) (*TwoFactorStatusResponse, error) {
	if err := RequireSelfOrSuperAdmin(identity, subject); err != nil {
		return nil, err
	}

	bucket := s.buckets.SubjectBucket(subject)

	tfa, err := s.repo.Get(ctx, bucket, subject.UserID, subject.UserType)
	if err != nil {
		if gocqlNotFound(err) {
			return &TwoFactorStatusResponse{State: TwoFactorDisabled}, nil
		}
		return nil, err
	}

	state := TwoFactorPendingSetup
	if tfa.Verified {
		state = TwoFactorEnabled
	}
	return &TwoFactorStatusResponse{
		State:             state,
		Method:            tfa.Method,
		BackupCodesIssued: tfa.BackupCodesIssued,
		VerifiedAt:        tfa.VerifiedAt,
	}, nil
}

// GenerateBackupCodes issues the one-time set of single-use codes when the
// initial issuance at verification did not complete. Once a set is issued
// there is no second one without a fresh enrollment.
func (s *TwoFactorService) GenerateBackupCodes(ctx context.Context, identity *models.Identity, subject models.Subject) ([]string, error) {
	if err := RequireSelfOrSuperAdmin(identity, subject); err != nil {
		return nil, err
	}

	bucket := s.buckets.SubjectBucket(subject)

	tfa, err := s.repo.Get(ctx, bucket, subject.UserID, subject.UserType)
	if err != nil {
		if gocqlNotFound(err) {
			return nil, fmt.Errorf("%w: two-factor authentication is not enabled", ErrNotFound)
		}
		return nil, err
	}
	if !tfa.Verified {
		return nil, fmt.Errorf("%w: two-factor setup is not verified yet", ErrConflict)
	}
	if tfa.BackupCodesIssued {
		return nil, fmt.Errorf("%w: backup codes were already issued", ErrConflict)
	}

	return s.issueBackupCodes(ctx, bucket, subject)
}

func (s *TwoFactorService) issueBackupCodes(ctx context.Context, bucket int, subject models.Subject) ([]string, error) {
	codes, err := mfa.GenerateBackupCodes(s.backupCount)
	if err != nil {
		return nil, fmt.Errorf("failed to generate backup codes: %w", err)
	}

	hashes := make([]string, 0, len(codes))
	for _, code := range codes {
		hash, err := s.hasher.HashCode(code)
		if err != nil {
			return nil, fmt.Errorf("failed to hash backup code: %w", err)
		}
		hashes = append(hashes, hash)
	}

	if err := s.repo.UpdateBackupCodes(ctx, bucket, subject.UserID, subject.UserType, hashes, true); err != nil {
		return nil, err
	}

	util.Info("Backup codes issued",
		zap.String("user_id", subject.UserID),
		zap.Int("count", len(codes)))

	return codes, nil
}

// UseBackupCode consumes one code. A matched code is removed from the stored
// set, so it can never be accepted twice.
func (s *TwoFactorService) UseBackupCode(ctx context.Context, identity *models.Identity, subject models.Subject, code string) error {
	if err := RequireSelfOrSuperAdmin(identity, subject); err != nil {
		return err
	}

	bucket := s.buckets.SubjectBucket(subject)

	tfa, err := s.repo.Get(ctx, bucket, subject.UserID, subject.UserType)
	if err != nil {
		if gocqlNotFound(err) {
			return fmt.Errorf("%w: two-factor authentication is not enabled", ErrNotFound)
		}
		return err
	}
	if !tfa.Verified || !tfa.BackupCodesIssued {
		return fmt.Errorf("%w: no backup codes issued", ErrConflict)
	}

	matched := -1
	for i, hash := range tfa.BackupCodeHashes {
		ok, err := s.hasher.VerifyCode(code, hash)
		if err != nil {
			util.Warn("Unreadable backup code hash",
				zap.String("user_id", subject.UserID),
				zap.Error(err))
			continue
		}
		if ok {
			matched = i
			break
		}
	}
	if matched < 0 {
		return fmt.Errorf("%w: backup code rejected", ErrInvalidInput)
	}

	remaining := make([]string, 0, len(tfa.BackupCodeHashes)-1)
	remaining = append(remaining, tfa.BackupCodeHashes[:matched]...)
	remaining = append(remaining, tfa.BackupCodeHashes[matched+1:]...)

	if err := s.repo.UpdateBackupCodes(ctx, bucket, subject.UserID, subject.UserType, remaining, true); err != nil {
		return err
	}

	util.Info("Backup code consumed",
		zap.String("user_id", subject.UserID),
		zap.Int("remaining", len(remaining)))

	return nil
}

// Disable tears down the enrollment. Disabling when nothing is enrolled is a
// no-op success.
func (s *TwoFactorService) Disable(ctx context.Context, identity *models.Identity, subject models.Subject) error {
	if err := RequireSelfOrSuperAdmin(identity, subject); err != nil {
		return err
	}

	bucket := s.buckets.SubjectBucket(subject)

	tfa, err := s.repo.Get(ctx, bucket, subject.UserID, subject.UserType)
	if err != nil {
		if gocqlNotFound(err) {
			return nil
		}
		return err
	}

	before := TwoFactorPendingSetup
	if tfa.Verified {
		before = TwoFactorEnabled
	}
	audit := newAudit(s.buckets, identity, models.AuditTwoFactorDisabled, "two_factor_auth",
		subject.UserID, before, TwoFactorDisabled, "", nil)

	if err := s.repo.Delete(ctx, bucket, subject.UserID, subject.UserType, audit); err != nil {
		return err
	}

	if err := s.prefs.SetTwoFactorEnabled(ctx, subject, false); err != nil {
		util.Warn("Failed to update preference after 2FA disable",
			zap.String("user_id", subject.UserID),
			zap.Error(err))
	}
	if s.notifier != nil {
		if err := s.notifier.Notify(ctx, subject, models.NotifyTwoFactorChange, models.SeverityMedium,
			"Two-factor authentication disabled",
			"TOTP two-factor authentication was disabled on your account."); err != nil {
			util.Warn("Failed to notify 2FA disable", zap.Error(err))
		}
	}
	if s.events != nil {
		s.events.Publish(newEvent(models.EventTwoFactorChanged, models.SeverityMedium,
			identity.AdminID, "two_factor_auth", subject.UserID, TwoFactorDisabled))
	}

	return nil
}
