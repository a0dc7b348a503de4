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

func newThreatFixture() (*ThreatService, *fakeThreatRepo, *fakeSearcher, *fakePublisher) {
	repo := newFakeThreatRepo()
	searcher := &fakeSearcher{}
	publisher := &fakePublisher{}
	return NewThreatService(repo, searcher, publisher, testBuckets(), testConfig()), repo, searcher, publisher
}

func TestRecordThreat(t *testing.T) {
	svc, repo, searcher, publisher := newThreatFixture()
	ctx := context.Background()

	threat, err := svc.Record(ctx, manager(), &ThreatCreateRequest{
		ThreatType:  "brute_force",
		Severity:    "high",
		Source:      "auth-gateway",
		Description: "52 failed logins in 90 seconds",
		Indicators:  map[string]string{"ip": "198.51.100.7"},
	})
	require.NoError(t, err)
	assert.Equal(t, models.ThreatOpen, threat.Status)
	assert.Equal(t, models.SeverityHigh, threat.Severity)
	assert.NotEmpty(t, threat.ID)
	assert.False(t, threat.FirstDetected.IsZero())

	require.Len(t, repo.audits, 1)
	assert.Equal(t, models.AuditThreatCreated, repo.audits[0].Action)
	require.Len(t, searcher.indexed, 1)
	require.Len(t, publisher.events, 1)
	assert.Equal(t, models.EventThreatDetected, publisher.events[0].EventType)
}

func TestRecordThreatValidation(t *testing.T) {
	svc, _, _, _ := newThreatFixture()
	ctx := context.Background()

	_, err := svc.Record(ctx, manager(), &ThreatCreateRequest{
		ThreatType: "brute_force", Severity: "catastrophic", Source: "x",
	})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.Record(ctx, manager(), &ThreatCreateRequest{Severity: "LOW", Source: "x"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.Record(ctx, analyst(), &ThreatCreateRequest{
		ThreatType: "brute_force", Severity: "LOW", Source: "x",
	})
	assert.ErrorIs(t, err, ErrPermissionDenied)
}

func TestUpdateThreatStatus(t *testing.T) {
	svc, _, searcher, _ := newThreatFixture()
	ctx := context.Background()

	threat, err := svc.Record(ctx, manager(), &ThreatCreateRequest{
		ThreatType: "credential_stuffing", Severity: "MEDIUM", Source: "waf",
	})
	require.NoError(t, err)
	indexedAfterCreate := len(searcher.indexed)

	updated, err := svc.UpdateStatus(ctx, manager(), threat.ID, "investigating")
	require.NoError(t, err)
	assert.Equal(t, models.ThreatInvestigating, updated.Status)
	assert.Len(t, searcher.indexed, indexedAfterCreate+1)

	// Same-status update is a no-op, no reindex.
	updated, err = svc.UpdateStatus(ctx, manager(), threat.ID, "INVESTIGATING")
	require.NoError(t, err)
	assert.Equal(t, models.ThreatInvestigating, updated.Status)
	assert.Len(t, searcher.indexed, indexedAfterCreate+1)

	_, err = svc.UpdateStatus(ctx, manager(), threat.ID, "ESCALATED_TO_MARS")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.UpdateStatus(ctx, manager(), "no-such-threat", "CLOSED")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListThreats(t *testing.T) {
	svc, repo, _, _ := newThreatFixture()
	ctx := context.Background()

	// Seed more rows than the cap, each a minute apart so ordering is
	// unambiguous. Even-numbered rows are HIGH, every fifth row is CLOSED.
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 60; i++ {
		severity := models.SeverityLow
		if i%2 == 0 {
			severity = models.SeverityHigh
		}
		status := models.ThreatOpen
		if i%5 == 0 {
			status = models.ThreatClosed
		}
		id := fmt.Sprintf("threat-%02d", i)
		repo.threats[id] = &models.ThreatDetection{
			ID:            id,
			ThreatType:    "brute_force",
			Severity:      severity,
			Status:        status,
			FirstDetected: base.Add(time.Duration(i) * time.Minute),
		}
	}

	t.Run("default is capped and newest first", func(t *testing.T) {
		listed, err := svc.List(ctx, manager(), ThreatListFilter{})
		require.NoError(t, err)
		require.Len(t, listed, 50)
		assert.Equal(t, "threat-59", listed[0].ID)
		for i := 1; i < len(listed); i++ {
			assert.True(t, listed[i].FirstDetected.Before(listed[i-1].FirstDetected))
		}
	})

	t.Run("explicit limit", func(t *testing.T) {
		listed, err := svc.List(ctx, manager(), ThreatListFilter{Limit: 3})
		require.NoError(t, err)
		require.Len(t, listed, 3)
		assert.Equal(t, "threat-59", listed[0].ID)
	})

	t.Run("oversized limit falls back to the cap", func(t *testing.T) {
		listed, err := svc.List(ctx, manager(), ThreatListFilter{Limit: 500})
		require.NoError(t, err)
		assert.Len(t, listed, 50)
	})

	t.Run("filters compose", func(t *testing.T) {
		listed, err := svc.List(ctx, manager(), ThreatListFilter{Status: "closed", Severity: "high"})
		require.NoError(t, err)
		require.NotEmpty(t, listed)
		for _, threat := range listed {
			assert.Equal(t, models.ThreatClosed, threat.Status)
			assert.Equal(t, models.SeverityHigh, threat.Severity)
		}
	})

	t.Run("unknown filter values are rejected", func(t *testing.T) {
		_, err := svc.List(ctx, manager(), ThreatListFilter{Status: "bogus"})
		assert.ErrorIs(t, err, ErrInvalidInput)

		_, err = svc.List(ctx, manager(), ThreatListFilter{Severity: "bogus"})
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("analyst cannot list", func(t *testing.T) {
		_, err := svc.List(ctx, analyst(), ThreatListFilter{})
		assert.ErrorIs(t, err, ErrPermissionDenied)
	})
}

func TestSearchThreats(t *testing.T) {
	svc, _, searcher, _ := newThreatFixture()
	ctx := context.Background()

	searcher.results = []*models.ThreatDetection{{ID: "t-1", ThreatType: "brute_force"}}

	results, err := svc.Search(ctx, manager(), "brute", "HIGH", "OPEN")
	require.NoError(t, err)
	require.Len(t, results, 1)

	_, err = svc.Search(ctx, manager(), "brute", "bogus", "")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.Search(ctx, manager(), "brute", "", "bogus")
	assert.ErrorIs(t, err, ErrInvalidInput)

	// Without an index the endpoint is explicitly unsupported.
	bare := NewThreatService(newFakeThreatRepo(), nil, nil, testBuckets(), testConfig())
	_, err = bare.Search(ctx, manager(), "brute", "", "")
	assert.ErrorIs(t, err, ErrNotSupported)
}
