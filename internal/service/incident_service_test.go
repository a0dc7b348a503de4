package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"secops-service/internal/models"
)

func newIncidentFixture() (*IncidentService, *fakeIncidentRepo, *fakePublisher) {
	repo := newFakeIncidentRepo()
	publisher := &fakePublisher{}
	return NewIncidentService(repo, publisher, testBuckets(), testConfig()), repo, publisher
}

func TestCreateIncident(t *testing.T) {
	svc, repo, publisher := newIncidentFixture()
	ctx := context.Background()

	incident, err := svc.Create(ctx, manager(), &IncidentCreateRequest{
		TriggerEventID: "threat-42",
		ResponseType:   "containment",
		Priority:       "critical",
		Title:          "Contain credential stuffing wave",
		ActionsPlan:    "block source ranges, rotate affected credentials",
	})
	require.NoError(t, err)
	assert.Equal(t, models.IncidentOpen, incident.Status)
	assert.Equal(t, models.PriorityCritical, incident.Priority)

	require.Len(t, repo.audits, 1)
	assert.Equal(t, models.AuditIncidentCreated, repo.audits[0].Action)
	require.Len(t, publisher.events, 1)
	assert.Equal(t, models.EventIncidentOpened, publisher.events[0].EventType)
	assert.Equal(t, models.SeverityCritical, publisher.events[0].Severity)
}

func TestCreateIncidentValidation(t *testing.T) {
	svc, _, _ := newIncidentFixture()
	ctx := context.Background()

	_, err := svc.Create(ctx, manager(), &IncidentCreateRequest{
		ResponseType: "containment", Priority: "whenever", Title: "t",
	})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.Create(ctx, manager(), &IncidentCreateRequest{Priority: "LOW", Title: "t"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.Create(ctx, analyst(), &IncidentCreateRequest{
		ResponseType: "containment", Priority: "LOW", Title: "t",
	})
	assert.ErrorIs(t, err, ErrPermissionDenied)
}

func TestUpdateIncidentStatus(t *testing.T) {
	svc, repo, _ := newIncidentFixture()
	ctx := context.Background()

	incident, err := svc.Create(ctx, manager(), &IncidentCreateRequest{
		ResponseType: "escalation", Priority: "MEDIUM", Title: "Review anomaly report",
	})
	require.NoError(t, err)
	auditsAfterCreate := len(repo.audits)

	updated, err := svc.UpdateStatus(ctx, manager(), incident.ID, "in_progress")
	require.NoError(t, err)
	assert.Equal(t, models.IncidentInProgress, updated.Status)
	require.Len(t, repo.audits, auditsAfterCreate+1)
	assert.Equal(t, models.AuditIncidentStatusSet, repo.audits[auditsAfterCreate].Action)
	assert.Equal(t, string(models.IncidentOpen), repo.audits[auditsAfterCreate].BeforeState)
	assert.Equal(t, string(models.IncidentInProgress), repo.audits[auditsAfterCreate].AfterState)

	// No-op transition writes no audit entry.
	_, err = svc.UpdateStatus(ctx, manager(), incident.ID, "IN_PROGRESS")
	require.NoError(t, err)
	assert.Len(t, repo.audits, auditsAfterCreate+1)

	_, err = svc.UpdateStatus(ctx, manager(), incident.ID, "SOLVED_ITSELF")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.UpdateStatus(ctx, manager(), "no-such-incident", "CLOSED")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListIncidents(t *testing.T) {
	svc, repo, _ := newIncidentFixture()
	ctx := context.Background()

	base := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 55; i++ {
		priority := models.PriorityLow
		if i%3 == 0 {
			priority = models.PriorityHigh
		}
		status := models.IncidentOpen
		if i%4 == 0 {
			status = models.IncidentResolved
		}
		id := fmt.Sprintf("incident-%02d", i)
		repo.incidents[id] = &models.IncidentResponse{
			ID:           id,
			ResponseType: "containment",
			Priority:     priority,
			Status:       status,
			Title:        "seeded",
			CreatedAt:    base.Add(time.Duration(i) * time.Minute),
		}
	}

	listed, err := svc.List(ctx, manager(), IncidentListFilter{})
	require.NoError(t, err)
	require.Len(t, listed, 50)
	assert.Equal(t, "incident-54", listed[0].ID)
	for i := 1; i < len(listed); i++ {
		assert.True(t, listed[i].CreatedAt.Before(listed[i-1].CreatedAt))
	}

	listed, err = svc.List(ctx, manager(), IncidentListFilter{Status: "resolved", Priority: "high", Limit: 5})
	require.NoError(t, err)
	require.NotEmpty(t, listed)
	assert.LessOrEqual(t, len(listed), 5)
	for _, incident := range listed {
		assert.Equal(t, models.IncidentResolved, incident.Status)
		assert.Equal(t, models.PriorityHigh, incident.Priority)
	}

	listed, err = svc.List(ctx, manager(), IncidentListFilter{Limit: 9999})
	require.NoError(t, err)
	assert.Len(t, listed, 50)

	_, err = svc.List(ctx, manager(), IncidentListFilter{Status: "bogus"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.List(ctx, manager(), IncidentListFilter{Priority: "bogus"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestSeverityForPriority(t *testing.T) {
	assert.Equal(t, models.SeverityCritical, severityForPriority(models.PriorityCritical))
	assert.Equal(t, models.SeverityHigh, severityForPriority(models.PriorityHigh))
	assert.Equal(t, models.SeverityMedium, severityForPriority(models.PriorityMedium))
	assert.Equal(t, models.SeverityLow, severityForPriority(models.PriorityLow))
}
