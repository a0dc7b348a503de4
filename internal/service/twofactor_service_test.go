package service

import (
	"context"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"secops-service/internal/encryption"
	"secops-service/internal/hashing"
	"secops-service/internal/models"
)

func newTwoFactorFixture(t *testing.T) (*TwoFactorService, *fakeTwoFactorRepo, *fakePreferenceRepo, *fakeNotifier, *fakePublisher) {
	t.Helper()

	cfg := testConfig()
	buckets := testBuckets()
	repo := newFakeTwoFactorRepo()
	prefRepo := newFakePreferenceRepo()
	notifier := &fakeNotifier{}
	publisher := &fakePublisher{}

	prefs := NewPreferenceService(prefRepo, buckets)
	svc := NewTwoFactorService(repo, encryption.NewManager(cfg, nil), hashing.NewHasher(cfg),
		prefs, notifier, publisher, buckets, cfg)

	return svc, repo, prefRepo, notifier, publisher
}

func TestTwoFactorLifecycle(t *testing.T) {
	svc, repo, prefRepo, notifier, publisher := newTwoFactorFixture(t)
	ctx := context.Background()
	identity := superAdmin()
	subject := models.Subject{UserID: "admin-root", UserType: models.UserTypeAdmin}

	setup, err := svc.Setup(ctx, identity, subject)
	require.NoError(t, err)
	assert.NotEmpty(t, setup.Secret)
	assert.Contains(t, setup.EnrollmentURL, "otpauth://")

	status, err := svc.Status(ctx, identity, subject)
	require.NoError(t, err)
	assert.Equal(t, TwoFactorPendingSetup, status.State)

	// A second setup before verification regenerates the secret.
	again, err := svc.Setup(ctx, identity, subject)
	require.NoError(t, err)
	assert.NotEqual(t, setup.Secret, again.Secret)

	code, err := totp.GenerateCode(again.Secret, time.Now().UTC())
	require.NoError(t, err)
	codes, err := svc.Verify(ctx, identity, subject, code)
	require.NoError(t, err)
	assert.Len(t, codes, 10)

	status, err = svc.Status(ctx, identity, subject)
	require.NoError(t, err)
	assert.Equal(t, TwoFactorEnabled, status.State)
	assert.NotNil(t, status.VerifiedAt)
	assert.True(t, status.BackupCodesIssued)

	// Re-verifying an enabled enrollment succeeds, with no codes.
	code, err = totp.GenerateCode(again.Secret, time.Now().UTC())
	require.NoError(t, err)
	codes, err = svc.Verify(ctx, identity, subject, code)
	require.NoError(t, err)
	assert.Empty(t, codes)

	// A bad code is still rejected once enabled.
	_, err = svc.Verify(ctx, identity, subject, "000000")
	assert.ErrorIs(t, err, ErrInvalidInput)

	// Preference row tracks the lifecycle.
	pref, err := prefRepo.Get(ctx, 0, subject.UserID, subject.UserType)
	require.NoError(t, err)
	assert.True(t, pref.TwoFactorEnabled)

	require.Len(t, notifier.raised, 1)
	assert.Equal(t, models.NotifyTwoFactorChange, notifier.raised[0].category)
	require.Len(t, publisher.events, 1)
	assert.Equal(t, models.EventTwoFactorChanged, publisher.events[0].EventType)

	// Setting up over an enabled enrollment is a conflict.
	_, err = svc.Setup(ctx, identity, subject)
	assert.ErrorIs(t, err, ErrConflict)

	// Disable tears down and is idempotent.
	require.NoError(t, svc.Disable(ctx, identity, subject))
	status, err = svc.Status(ctx, identity, subject)
	require.NoError(t, err)
	assert.Equal(t, TwoFactorDisabled, status.State)
	require.NoError(t, svc.Disable(ctx, identity, subject))

	pref, err = prefRepo.Get(ctx, 0, subject.UserID, subject.UserType)
	require.NoError(t, err)
	assert.False(t, pref.TwoFactorEnabled)

	assert.NotEmpty(t, repo.audits)
}

func TestVerifyRejectsBadCode(t *testing.T) {
	svc, _, _, _, _ := newTwoFactorFixture(t)
	ctx := context.Background()
	identity := superAdmin()
	subject := models.Subject{UserID: "admin-root", UserType: models.UserTypeAdmin}

	_, err := svc.Setup(ctx, identity, subject)
	require.NoError(t, err)

	_, err = svc.Verify(ctx, identity, subject, "000000")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestVerifyWithoutSetup(t *testing.T) {
	svc, _, _, _, _ := newTwoFactorFixture(t)

	_, err := svc.Verify(context.Background(), superAdmin(),
		models.Subject{UserID: "admin-root", UserType: models.UserTypeAdmin}, "123456")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBackupCodesSingleUse(t *testing.T) {
	svc, repo, _, _, _ := newTwoFactorFixture(t)
	ctx := context.Background()
	identity := superAdmin()
	subject := models.Subject{UserID: "admin-root", UserType: models.UserTypeAdmin}

	setup, err := svc.Setup(ctx, identity, subject)
	require.NoError(t, err)

	// Codes cannot be issued before the enrollment is verified.
	_, err = svc.GenerateBackupCodes(ctx, identity, subject)
	assert.ErrorIs(t, err, ErrConflict)

	code, err := totp.GenerateCode(setup.Secret, time.Now().UTC())
	require.NoError(t, err)
	codes, err := svc.Verify(ctx, identity, subject, code)
	require.NoError(t, err)
	assert.Len(t, codes, 10)

	// The set is issued exactly once per enrollment.
	_, err = svc.GenerateBackupCodes(ctx, identity, subject)
	assert.ErrorIs(t, err, ErrConflict)

	require.NoError(t, svc.UseBackupCode(ctx, identity, subject, codes[3]))

	row, err := repo.Get(ctx, 0, subject.UserID, subject.UserType)
	require.NoError(t, err)
	assert.Len(t, row.BackupCodeHashes, 9)

	// The consumed code is gone for good.
	err = svc.UseBackupCode(ctx, identity, subject, codes[3])
	assert.ErrorIs(t, err, ErrInvalidInput)

	// The rest still work.
	require.NoError(t, svc.UseBackupCode(ctx, identity, subject, codes[0]))
}

func TestUseBackupCodeBeforeVerification(t *testing.T) {
	svc, _, _, _, _ := newTwoFactorFixture(t)
	ctx := context.Background()
	identity := superAdmin()
	subject := models.Subject{UserID: "admin-root", UserType: models.UserTypeAdmin}

	_, err := svc.Setup(ctx, identity, subject)
	require.NoError(t, err)

	err = svc.UseBackupCode(ctx, identity, subject, "whatever")
	assert.ErrorIs(t, err, ErrConflict)
}

func TestTwoFactorGating(t *testing.T) {
	svc, _, _, _, _ := newTwoFactorFixture(t)
	other := models.Subject{UserID: "cust-1", UserType: models.UserTypeCustomer}

	_, err := svc.Setup(context.Background(), manager(), other)
	assert.ErrorIs(t, err, ErrPermissionDenied)

	_, err = svc.Status(context.Background(), nil, other)
	assert.ErrorIs(t, err, ErrUnauthorized)
}
