package service

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"secops-service/internal/bucketing"
	"secops-service/internal/config"
	"secops-service/internal/models"
	"secops-service/internal/repository/scylla"
)

// EventStats is the ClickHouse aggregate surface behind the dashboard.
type EventStats interface {
	CountEventsByType(ctx context.Context, since time.Time) (map[string]uint64, error)
	CountEventsBySeverity(ctx context.Context, since time.Time) (map[string]uint64, error)
}

// DashboardOverview is the aggregated security posture for the admin
// dashboard, covering the configured activity window.
type DashboardOverview struct {
	OpenThreats         int               `json:"open_threats"`
	ThreatsBySeverity   map[string]int    `json:"threats_by_severity"`
	OpenIncidents       int               `json:"open_incidents"`
	PendingDataRequests int               `json:"pending_data_requests"`
	EventsByType        map[string]uint64 `json:"events_by_type"`
	EventsBySeverity    map[string]uint64 `json:"events_by_severity"`
	WindowHours         int               `json:"window_hours"`
	GeneratedAt         time.Time         `json:"generated_at"`
}

// DashboardService fans out to the operational stores and the analytics
// store concurrently and assembles the overview.
type DashboardService struct {
	threats   scylla.ThreatRepository
	incidents scylla.IncidentRepository
	requests  scylla.DataRequestRepository
	stats     EventStats
	buckets   *bucketing.BucketingManager
	window    time.Duration
}

func NewDashboardService(
	threats scylla.ThreatRepository,
	incidents scylla.IncidentRepository,
	requests scylla.DataRequestRepository,
	stats EventStats,
	buckets *bucketing.BucketingManager,
	cfg *config.Config,
) *DashboardService {
	return &DashboardService{
		threats:   threats,
		incidents: incidents,
		requests:  requests,
		stats:     stats,
		buckets:   buckets,
		window:    cfg.Security.ActivityWindow,
	}
}

func (s *DashboardService) Overview(ctx context.Context, identity *models.Identity) (*DashboardOverview, error) {
	if err := RequireManager(identity); err != nil {
		return nil, err
	}

	overview := &DashboardOverview{
		ThreatsBySeverity: make(map[string]int),
		EventsByType:      make(map[string]uint64),
		EventsBySeverity:  make(map[string]uint64),
		WindowHours:       int(s.window.Hours()),
		GeneratedAt:       time.Now().UTC(),
	}
	since := overview.GeneratedAt.Add(-s.window)
	buckets := allBuckets(s.buckets.EventBuckets())

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		threats, err := s.threats.List(gctx, buckets)
		if err != nil {
			return err
		}
		open := 0
		severities := make(map[string]int)
		for _, threat := range threats {
			if threat.Status == models.ThreatOpen || threat.Status == models.ThreatInvestigating {
				open++
				severities[string(threat.Severity)]++
			}
		}
		overview.OpenThreats = open
		overview.ThreatsBySeverity = severities
		return nil
	})

	g.Go(func() error {
		incidents, err := s.incidents.List(gctx, buckets)
		if err != nil {
			return err
		}
		open := 0
		for _, incident := range incidents {
			if incident.Status == models.IncidentOpen || incident.Status == models.IncidentInProgress {
				open++
			}
		}
		overview.OpenIncidents = open
		return nil
	})

	g.Go(func() error {
		requests, err := s.requests.List(gctx, buckets)
		if err != nil {
			return err
		}
		pending := 0
		for _, request := range requests {
			if request.Status == models.RequestPending {
				pending++
			}
		}
		overview.PendingDataRequests = pending
		return nil
	})

	if s.stats != nil {
		g.Go(func() error {
			byType, err := s.stats.CountEventsByType(gctx, since)
			if err != nil {
				return err
			}
			overview.EventsByType = byType
			return nil
		})
		g.Go(func() error {
			bySeverity, err := s.stats.CountEventsBySeverity(gctx, since)
			if err != nil {
				return err
			}
			overview.EventsBySeverity = bySeverity
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return overview, nil
}
