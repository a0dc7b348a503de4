package models

import "time"

type IncidentStatus string

const (
	IncidentOpen       IncidentStatus = "OPEN"
	IncidentInProgress IncidentStatus = "IN_PROGRESS"
	IncidentResolved   IncidentStatus = "RESOLVED"
	IncidentClosed     IncidentStatus = "CLOSED"
)

func (s IncidentStatus) Valid() bool {
	switch s {
	case IncidentOpen, IncidentInProgress, IncidentResolved, IncidentClosed:
		return true
	}
	return false
}

type IncidentPriority string

const (
	PriorityLow      IncidentPriority = "LOW"
	PriorityMedium   IncidentPriority = "MEDIUM"
	PriorityHigh     IncidentPriority = "HIGH"
	PriorityCritical IncidentPriority = "CRITICAL"
)

func (p IncidentPriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

// IncidentResponse tracks the handling of a triggering event.
//
// TriggerEventID is a pointer-by-convention: it usually names a
// ThreatDetection but may reference an analytics event, and it is stored
// verbatim without a referential check against either table.
type IncidentResponse struct {
	Bucket         int              `db:"bucket"`
	ID             string           `db:"id"`
	TriggerEventID string           `db:"trigger_event_id"`
	ResponseType   string           `db:"response_type"`
	Priority       IncidentPriority `db:"priority"`
	Status         IncidentStatus   `db:"status"`
	Title          string           `db:"title"`
	Description    string           `db:"description"`
	ActionsPlan    string           `db:"actions_plan"`
	CreatedAt      time.Time        `db:"created_at"`
}
