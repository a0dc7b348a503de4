package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"secops-service/internal/models"
)

func TestPreferenceDefaults(t *testing.T) {
	svc := NewPreferenceService(newFakePreferenceRepo(), testBuckets())
	subject := models.Subject{UserID: "cust-5", UserType: models.UserTypeCustomer}

	pref, err := svc.Get(context.Background(), superAdmin(), subject)
	require.NoError(t, err)
	assert.True(t, pref.LoginAlerts)
	assert.True(t, pref.SecurityAlerts)
	assert.False(t, pref.TwoFactorEnabled)
	assert.Equal(t, 30, pref.SessionTimeoutMinutes)
}

func TestPreferencePartialUpdate(t *testing.T) {
	repo := newFakePreferenceRepo()
	svc := NewPreferenceService(repo, testBuckets())
	ctx := context.Background()
	identity := superAdmin()
	subject := models.Subject{UserID: "cust-5", UserType: models.UserTypeCustomer}

	off := false
	timeout := 120
	updated, err := svc.Update(ctx, identity, subject, &PreferenceUpdateRequest{
		LoginAlerts:           &off,
		SessionTimeoutMinutes: &timeout,
	})
	require.NoError(t, err)
	assert.False(t, updated.LoginAlerts)
	assert.True(t, updated.SecurityAlerts)
	assert.Equal(t, 120, updated.SessionTimeoutMinutes)

	// Untouched fields survive the next partial update.
	on := true
	updated, err = svc.Update(ctx, identity, subject, &PreferenceUpdateRequest{SecurityAlerts: &on})
	require.NoError(t, err)
	assert.False(t, updated.LoginAlerts)
	assert.Equal(t, 120, updated.SessionTimeoutMinutes)

	bad := -5
	_, err = svc.Update(ctx, identity, subject, &PreferenceUpdateRequest{SessionTimeoutMinutes: &bad})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestSetTwoFactorEnabled(t *testing.T) {
	repo := newFakePreferenceRepo()
	svc := NewPreferenceService(repo, testBuckets())
	ctx := context.Background()
	subject := models.Subject{UserID: "cust-5", UserType: models.UserTypeCustomer}

	// Creates the row from defaults when none exists.
	require.NoError(t, svc.SetTwoFactorEnabled(ctx, subject, true))
	pref, err := svc.Get(ctx, superAdmin(), subject)
	require.NoError(t, err)
	assert.True(t, pref.TwoFactorEnabled)

	require.NoError(t, svc.SetTwoFactorEnabled(ctx, subject, false))
	pref, err = svc.Get(ctx, superAdmin(), subject)
	require.NoError(t, err)
	assert.False(t, pref.TwoFactorEnabled)
}

func TestPreferenceGate(t *testing.T) {
	svc := NewPreferenceService(newFakePreferenceRepo(), testBuckets())
	other := models.Subject{UserID: "cust-5", UserType: models.UserTypeCustomer}

	_, err := svc.Get(context.Background(), manager(), other)
	assert.ErrorIs(t, err, ErrPermissionDenied)

	_, err = svc.Update(context.Background(), nil, other, &PreferenceUpdateRequest{})
	assert.ErrorIs(t, err, ErrUnauthorized)
}
