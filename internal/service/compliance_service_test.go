package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"secops-service/internal/models"
)

func TestListAuditTrail(t *testing.T) {
	repo := &fakeAuditRepo{}
	buckets := testBuckets()
	svc := NewComplianceService(repo, buckets, testConfig())
	ctx := context.Background()

	today := buckets.Day(time.Now().UTC())
	for i := 0; i < 3; i++ {
		require.NoError(t, repo.Create(ctx, newAudit(buckets, manager(),
			models.AuditThreatCreated, "threat_detection", "t-1", "", "OPEN", "", nil)))
	}
	require.NoError(t, repo.Create(ctx, &models.ComplianceAuditLog{
		Day: "2020-01-01", ID: "old", Action: models.AuditGDPRProcessed,
	}))

	entries, err := svc.ListAuditTrail(ctx, manager(), "", 0)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
	for _, entry := range entries {
		assert.Equal(t, today, entry.Day)
		assert.Equal(t, "admin-ops", entry.ActorID)
		assert.Equal(t, models.UserTypeAdmin, entry.ActorType)
	}

	entries, err = svc.ListAuditTrail(ctx, manager(), "2020-01-01", 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "old", entries[0].ID)

	entries, err = svc.ListAuditTrail(ctx, manager(), "", 2)
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	_, err = svc.ListAuditTrail(ctx, manager(), "January 1st", 0)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.ListAuditTrail(ctx, analyst(), "", 0)
	assert.ErrorIs(t, err, ErrPermissionDenied)
}

func TestNewAuditActorFallsBackToSystem(t *testing.T) {
	entry := newAudit(testBuckets(), nil, models.AuditSessionsInvalidated, "active_session", "cust-1", "", "", "", nil)
	assert.Equal(t, "system", entry.ActorType)
	assert.Empty(t, entry.ActorID)
	assert.NotEmpty(t, entry.ID)
	assert.NotEmpty(t, entry.Day)
}
