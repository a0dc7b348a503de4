package models

import "time"

// SecurityEvent is the analytics row fanned out to ClickHouse and Kafka after
// a privileged mutation commits. Best-effort only: the primary store never
// waits on it.
type SecurityEvent struct {
	EventTime    time.Time      `json:"event_time"`
	EventType    string         `json:"event_type"`
	Severity     ThreatSeverity `json:"severity"`
	ActorID      string         `json:"actor_id"`
	ResourceType string         `json:"resource_type"`
	ResourceID   string         `json:"resource_id"`
	Detail       string         `json:"detail"`
}

// Event types published on the security event stream.
const (
	EventThreatDetected    = "threat_detected"
	EventIncidentOpened    = "incident_opened"
	EventGDPRTransition    = "gdpr_transition"
	EventTwoFactorChanged  = "two_factor_changed"
	EventSuspiciousSession = "suspicious_session"
	EventForcedLogout      = "forced_logout"
)
