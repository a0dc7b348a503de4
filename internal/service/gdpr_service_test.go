package service

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"secops-service/internal/models"
)

type gdprFixture struct {
	svc       *GDPRService
	repo      *fakeDataRequestRepo
	sessions  *fakeSessionRepo
	twoFactor *fakeTwoFactorRepo
	publisher *fakePublisher
}

func newGDPRFixture() *gdprFixture {
	f := &gdprFixture{
		repo:      newFakeDataRequestRepo(),
		sessions:  &fakeSessionRepo{},
		twoFactor: newFakeTwoFactorRepo(),
		publisher: &fakePublisher{},
	}
	f.svc = NewGDPRService(
		f.repo, f.sessions, f.twoFactor,
		&fakeNotificationRepo{}, newFakePreferenceRepo(),
		f.publisher, testBuckets(), testConfig())
	return f
}

func TestSubmitDataRequest(t *testing.T) {
	f := newGDPRFixture()
	ctx := context.Background()

	request, err := f.svc.Submit(ctx, &DataRequestSubmission{
		Email:       "  Jordan@Example.COM ",
		RequestType: "deletion_request",
	})
	require.NoError(t, err)
	assert.Equal(t, "jordan@example.com", request.Email)
	assert.Equal(t, models.DeletionRequest, request.RequestType)
	assert.Equal(t, models.RequestPending, request.Status)
	assert.Contains(t, f.repo.requests, request.ID)

	_, err = f.svc.Submit(ctx, &DataRequestSubmission{Email: "not-an-email", RequestType: "ACCESS_REQUEST"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.svc.Submit(ctx, &DataRequestSubmission{Email: "a@b.c", RequestType: "SHRED_EVERYTHING"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestProcessAccessRequest(t *testing.T) {
	f := newGDPRFixture()
	ctx := context.Background()
	identity := manager()

	for i, active := range []bool{true, true, false} {
		require.NoError(t, f.sessions.CreateSession(ctx, &models.ActiveSession{
			SessionToken: "tok-" + string(rune('a'+i)),
			UserID:       "cust-9",
			UserType:     models.UserTypeCustomer,
			IsActive:     active,
		}))
	}
	require.NoError(t, f.twoFactor.Create(ctx, &models.TwoFactorAuth{
		UserID:   "cust-9",
		UserType: models.UserTypeCustomer,
		Method:   models.MethodTOTP,
		Verified: true,
	}))

	request, err := f.svc.Submit(ctx, &DataRequestSubmission{
		Email:       "dana@example.com",
		RequestType: "ACCESS_REQUEST",
		Metadata:    map[string]string{"user_id": "cust-9", "user_type": "customer"},
	})
	require.NoError(t, err)

	processed, err := f.svc.Process(ctx, identity, request.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestProcessed, processed.Status)
	assert.Equal(t, identity.AdminID, processed.ProcessedBy)
	require.NotNil(t, processed.ProcessedAt)

	var report accessReport
	require.NoError(t, json.Unmarshal([]byte(processed.ResponseData), &report))
	assert.Equal(t, "dana@example.com", report.Email)
	assert.Equal(t, "cust-9", report.UserID)
	assert.Equal(t, 3, report.SessionCount)
	assert.Equal(t, 2, report.ActiveSessions)
	assert.True(t, report.TwoFactorEnabled)

	require.Len(t, f.repo.audits, 1)
	assert.Equal(t, models.AuditGDPRProcessed, f.repo.audits[0].Action)
	require.Len(t, f.publisher.events, 1)
	assert.Equal(t, models.EventGDPRTransition, f.publisher.events[0].EventType)

	// The transition is single-shot.
	_, err = f.svc.Process(ctx, identity, request.ID)
	assert.ErrorIs(t, err, ErrConflict)
}

func TestProcessDeletionRequest(t *testing.T) {
	f := newGDPRFixture()
	ctx := context.Background()

	for _, token := range []string{"tok-1", "tok-2"} {
		require.NoError(t, f.sessions.CreateSession(ctx, &models.ActiveSession{
			SessionToken: token,
			UserID:       "dana@example.com",
			UserType:     models.UserTypeCustomer,
			IsActive:     true,
			LastActivity: time.Now().UTC(),
		}))
	}
	require.NoError(t, f.twoFactor.Create(ctx, &models.TwoFactorAuth{
		UserID:   "dana@example.com",
		UserType: models.UserTypeCustomer,
		Method:   models.MethodTOTP,
		Verified: true,
	}))

	// No identity metadata: the email stands in as the subject id.
	request, err := f.svc.Submit(ctx, &DataRequestSubmission{
		Email:       "dana@example.com",
		RequestType: "DELETION_REQUEST",
	})
	require.NoError(t, err)

	processed, err := f.svc.Process(ctx, manager(), request.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestProcessed, processed.Status)

	var receipt erasureReceipt
	require.NoError(t, json.Unmarshal([]byte(processed.ResponseData), &receipt))
	assert.Equal(t, 2, receipt.SessionsInvalidated)
	assert.True(t, receipt.TwoFactorRemoved)

	for _, session := range f.sessions.sessions {
		assert.False(t, session.IsActive)
	}
	assert.Empty(t, f.twoFactor.rows)

	// One entry per privileged mutation: sessions, 2FA removal, the
	// request transition itself.
	assert.Len(t, f.sessions.audits, 1)
	assert.Len(t, f.twoFactor.audits, 1)
	require.Len(t, f.repo.audits, 1)
	assert.Equal(t, models.AuditGDPRProcessed, f.repo.audits[0].Action)
}

func TestProcessUnsupportedTypeRejects(t *testing.T) {
	f := newGDPRFixture()
	ctx := context.Background()

	request, err := f.svc.Submit(ctx, &DataRequestSubmission{
		Email:       "dana@example.com",
		RequestType: "PORTABILITY_REQUEST",
	})
	require.NoError(t, err)

	_, err = f.svc.Process(ctx, manager(), request.ID)
	assert.ErrorIs(t, err, ErrNotSupported)

	// The failed dispatch still consumed the transition.
	stored := f.repo.requests[request.ID]
	require.NotNil(t, stored)
	assert.Equal(t, models.RequestRejected, stored.Status)
	assert.Contains(t, stored.ResponseData, "PORTABILITY_REQUEST")
	require.NotNil(t, stored.ProcessedAt)

	require.Len(t, f.repo.audits, 1)
	assert.Equal(t, models.AuditGDPRRejected, f.repo.audits[0].Action)
	assert.NotEmpty(t, f.repo.audits[0].Justification)
	require.Len(t, f.publisher.events, 1)
	assert.Equal(t, models.SeverityHigh, f.publisher.events[0].Severity)

	_, err = f.svc.Process(ctx, manager(), request.ID)
	assert.ErrorIs(t, err, ErrConflict)
}

func TestListDataRequests(t *testing.T) {
	f := newGDPRFixture()
	ctx := context.Background()

	base := time.Date(2026, 7, 1, 8, 0, 0, 0, time.UTC)
	for i := 0; i < 53; i++ {
		status := models.RequestPending
		if i%3 == 0 {
			status = models.RequestProcessed
		}
		id := fmt.Sprintf("req-%02d", i)
		f.repo.requests[id] = &models.DataProcessingRequest{
			ID:          id,
			Email:       "dana@example.com",
			RequestType: models.AccessRequest,
			Status:      status,
			CreatedAt:   base.Add(time.Duration(i) * time.Hour),
		}
	}

	listed, err := f.svc.List(ctx, manager(), DataRequestListFilter{})
	require.NoError(t, err)
	require.Len(t, listed, 50)
	assert.Equal(t, "req-52", listed[0].ID)
	for i := 1; i < len(listed); i++ {
		assert.True(t, listed[i].CreatedAt.Before(listed[i-1].CreatedAt))
	}

	listed, err = f.svc.List(ctx, manager(), DataRequestListFilter{Status: "processed", Limit: 10})
	require.NoError(t, err)
	require.Len(t, listed, 10)
	for _, request := range listed {
		assert.Equal(t, models.RequestProcessed, request.Status)
	}

	_, err = f.svc.List(ctx, manager(), DataRequestListFilter{Status: "stalled"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestGDPRAdminGate(t *testing.T) {
	f := newGDPRFixture()
	ctx := context.Background()

	_, err := f.svc.List(ctx, analyst(), DataRequestListFilter{})
	assert.ErrorIs(t, err, ErrPermissionDenied)

	_, err = f.svc.Process(ctx, nil, "some-id")
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = f.svc.Get(ctx, manager(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}
