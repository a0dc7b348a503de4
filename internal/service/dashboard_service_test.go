package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"secops-service/internal/models"
)

func TestDashboardOverview(t *testing.T) {
	threats := newFakeThreatRepo()
	incidents := newFakeIncidentRepo()
	requests := newFakeDataRequestRepo()
	stats := &fakeStats{
		byType:     map[string]uint64{models.EventThreatDetected: 12},
		bySeverity: map[string]uint64{string(models.SeverityHigh): 7},
	}

	ctx := context.Background()
	now := time.Now().UTC()

	seed := []*models.ThreatDetection{
		{ID: "t-1", Status: models.ThreatOpen, Severity: models.SeverityHigh, FirstDetected: now},
		{ID: "t-2", Status: models.ThreatInvestigating, Severity: models.SeverityHigh, FirstDetected: now},
		{ID: "t-3", Status: models.ThreatMitigated, Severity: models.SeverityLow, FirstDetected: now},
		{ID: "t-4", Status: models.ThreatClosed, Severity: models.SeverityCritical, FirstDetected: now},
	}
	for _, threat := range seed {
		require.NoError(t, threats.Create(ctx, threat, nil))
	}

	require.NoError(t, incidents.Create(ctx, &models.IncidentResponse{ID: "i-1", Status: models.IncidentOpen}, nil))
	require.NoError(t, incidents.Create(ctx, &models.IncidentResponse{ID: "i-2", Status: models.IncidentInProgress}, nil))
	require.NoError(t, incidents.Create(ctx, &models.IncidentResponse{ID: "i-3", Status: models.IncidentResolved}, nil))

	require.NoError(t, requests.Create(ctx, 0, &models.DataProcessingRequest{ID: "r-1", Status: models.RequestPending}))
	require.NoError(t, requests.Create(ctx, 0, &models.DataProcessingRequest{ID: "r-2", Status: models.RequestProcessed}))

	svc := NewDashboardService(threats, incidents, requests, stats, testBuckets(), testConfig())

	overview, err := svc.Overview(ctx, manager())
	require.NoError(t, err)
	assert.Equal(t, 2, overview.OpenThreats)
	assert.Equal(t, map[string]int{string(models.SeverityHigh): 2}, overview.ThreatsBySeverity)
	assert.Equal(t, 2, overview.OpenIncidents)
	assert.Equal(t, 1, overview.PendingDataRequests)
	assert.Equal(t, uint64(12), overview.EventsByType[models.EventThreatDetected])
	assert.Equal(t, uint64(7), overview.EventsBySeverity[string(models.SeverityHigh)])
	assert.Equal(t, 24, overview.WindowHours)
	assert.False(t, overview.GeneratedAt.IsZero())
}

func TestDashboardWithoutAnalytics(t *testing.T) {
	svc := NewDashboardService(newFakeThreatRepo(), newFakeIncidentRepo(), newFakeDataRequestRepo(),
		nil, testBuckets(), testConfig())

	overview, err := svc.Overview(context.Background(), manager())
	require.NoError(t, err)
	assert.Empty(t, overview.EventsByType)
	assert.Empty(t, overview.EventsBySeverity)
}

func TestDashboardGate(t *testing.T) {
	svc := NewDashboardService(newFakeThreatRepo(), newFakeIncidentRepo(), newFakeDataRequestRepo(),
		nil, testBuckets(), testConfig())

	_, err := svc.Overview(context.Background(), analyst())
	assert.ErrorIs(t, err, ErrPermissionDenied)

	_, err = svc.Overview(context.Background(), nil)
	assert.ErrorIs(t, err, ErrUnauthorized)
}
