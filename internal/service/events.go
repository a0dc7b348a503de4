package service

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"secops-service/internal/client"
	"secops-service/internal/models"
	"secops-service/internal/repository/clickhouse"
	"secops-service/internal/util"
)

// EventPublisher fans a security event out to the analytics sinks after the
// primary mutation has committed. Implementations must be best-effort: a
// sink failure is logged, never surfaced to the caller.
type EventPublisher interface {
	Publish(event *models.SecurityEvent)
}

// StreamEventPublisher lands events on Kafka and in ClickHouse.
type StreamEventPublisher struct {
	producer *client.KafkaProducer
	store    *clickhouse.EventStore
	timeout  time.Duration
}

func NewStreamEventPublisher(producer *client.KafkaProducer, store *clickhouse.EventStore) *StreamEventPublisher {
	return &StreamEventPublisher{
		producer: producer,
		store:    store,
		timeout:  5 * time.Second,
	}
}

func (p *StreamEventPublisher) Publish(event *models.SecurityEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	if p.producer != nil {
		payload, err := json.Marshal(event)
		if err != nil {
			util.Error("Failed to marshal security event",
				zap.String("event_type", event.EventType),
				zap.Error(err))
			return
		}
		if err := p.producer.Publish(ctx, []byte(event.EventType), payload); err != nil {
			util.Warn("Failed to publish security event to Kafka",
				zap.String("event_type", event.EventType),
				zap.Error(err))
		}
	}

	if p.store != nil {
		if err := p.store.InsertEvent(ctx, event); err != nil {
			util.Warn("Failed to store security event in ClickHouse",
				zap.String("event_type", event.EventType),
				zap.Error(err))
		}
	}
}

func newEvent(eventType string, severity models.ThreatSeverity, actorID, resourceType, resourceID, detail string) *models.SecurityEvent {
	return &models.SecurityEvent{
		EventTime:    time.Now().UTC(),
		EventType:    eventType,
		Severity:     severity,
		ActorID:      actorID,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Detail:       detail,
	}
}
