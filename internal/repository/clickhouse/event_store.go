package clickhouse

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"secops-service/internal/client"
	"secops-service/internal/models"
	"secops-service/internal/util"
)

// EventStore lands security events in ClickHouse for the dashboard
// aggregates. Writes are best-effort: the operational stores in Scylla stay
// authoritative.
type EventStore struct {
	client *client.ClickHouseClient
}

func NewEventStore(chClient *client.ClickHouseClient) *EventStore {
	return &EventStore{client: chClient}
}

func (s *EventStore) InsertEvent(ctx context.Context, event *models.SecurityEvent) error {
	err := s.client.Exec(ctx, `
        INSERT INTO security_events (
            event_time, event_type, severity, actor_id, resource_type, resource_id, detail
        ) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		event.EventTime, event.EventType, string(event.Severity),
		event.ActorID, event.ResourceType, event.ResourceID, event.Detail)
	if err != nil {
		util.Error("Failed to insert security event",
			zap.String("event_type", event.EventType),
			zap.Error(err))
		return fmt.Errorf("failed to insert security event: %w", err)
	}

	return nil
}

// InsertEvents batches a set of events in one round trip.
func (s *EventStore) InsertEvents(ctx context.Context, events []*models.SecurityEvent) error {
	if len(events) == 0 {
		return nil
	}

	rows := make([][]interface{}, 0, len(events))
	for _, event := range events {
		rows = append(rows, []interface{}{
			event.EventTime, event.EventType, string(event.Severity),
			event.ActorID, event.ResourceType, event.ResourceID, event.Detail,
		})
	}

	err := s.client.BatchInsert(ctx, `
        INSERT INTO security_events (
            event_time, event_type, severity, actor_id, resource_type, resource_id, detail
        )`, rows)
	if err != nil {
		util.Error("Failed to batch insert security events",
			zap.Int("count", len(events)),
			zap.Error(err))
		return fmt.Errorf("failed to batch insert security events: %w", err)
	}

	return nil
}

// CountEventsByType returns event counts grouped by type since the cutoff.
func (s *EventStore) CountEventsByType(ctx context.Context, since time.Time) (map[string]uint64, error) {
	rows, err := s.client.QueryRows(ctx, `
        SELECT event_type, count() AS total
        FROM security_events
        WHERE event_time >= ?
        GROUP BY event_type`, since)
	if err != nil {
		return nil, fmt.Errorf("failed to count events by type: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]uint64)
	for rows.Next() {
		var eventType string
		var total uint64
		if err := rows.Scan(&eventType, &total); err != nil {
			return nil, fmt.Errorf("failed to scan event count: %w", err)
		}
		counts[eventType] = total
	}

	return counts, nil
}

// CountEventsBySeverity returns event counts grouped by severity since the
// cutoff.
func (s *EventStore) CountEventsBySeverity(ctx context.Context, since time.Time) (map[string]uint64, error) {
	rows, err := s.client.QueryRows(ctx, `
        SELECT severity, count() AS total
        FROM security_events
        WHERE event_time >= ?
        GROUP BY severity`, since)
	if err != nil {
		return nil, fmt.Errorf("failed to count events by severity: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]uint64)
	for rows.Next() {
		var severity string
		var total uint64
		if err := rows.Scan(&severity, &total); err != nil {
			return nil, fmt.Errorf("failed to scan severity count: %w", err)
		}
		counts[severity] = total
	}

	return counts, nil
}
