package models

import (
	"net"
	"time"
)

// ComplianceAuditLog is append-only: entries are never updated or deleted.
// Partitioned by day so compliance review can scan a date range cheaply.
type ComplianceAuditLog struct {
	Day           string    `db:"day"`
	ID            string    `db:"id"`
	ActorID       string    `db:"actor_id"`
	ActorType     string    `db:"actor_type"`
	Action        string    `db:"action"`
	ResourceType  string    `db:"resource_type"`
	ResourceID    string    `db:"resource_id"`
	BeforeState   string    `db:"before_state"`
	AfterState    string    `db:"after_state"`
	Justification string    `db:"justification"`
	IPAddress     net.IP    `db:"ip_address"`
	CreatedAt     time.Time `db:"created_at"`
}

// Audit actions written by the privileged mutation paths.
const (
	AuditThreatCreated       = "threat.created"
	AuditIncidentCreated     = "incident.created"
	AuditIncidentStatusSet   = "incident.status_set"
	AuditGDPRProcessed       = "gdpr.processed"
	AuditGDPRRejected        = "gdpr.rejected"
	AuditTwoFactorEnabled    = "2fa.enabled"
	AuditTwoFactorDisabled   = "2fa.disabled"
	AuditSessionsInvalidated = "sessions.invalidated"
)
