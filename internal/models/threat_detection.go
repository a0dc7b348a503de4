package models

import "time"

type ThreatSeverity string

const (
	SeverityLow      ThreatSeverity = "LOW"
	SeverityMedium   ThreatSeverity = "MEDIUM"
	SeverityHigh     ThreatSeverity = "HIGH"
	SeverityCritical ThreatSeverity = "CRITICAL"
)

func (s ThreatSeverity) Valid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

type ThreatStatus string

const (
	ThreatOpen          ThreatStatus = "OPEN"
	ThreatInvestigating ThreatStatus = "INVESTIGATING"
	ThreatMitigated     ThreatStatus = "MITIGATED"
	ThreatClosed        ThreatStatus = "CLOSED"
)

func (s ThreatStatus) Valid() bool {
	switch s {
	case ThreatOpen, ThreatInvestigating, ThreatMitigated, ThreatClosed:
		return true
	}
	return false
}

// ThreatDetection is a recorded threat signal. Duplicate indicator sets are
// allowed to produce duplicate rows: deduplication is an analyst concern,
// not a storage one.
type ThreatDetection struct {
	Bucket        int               `db:"bucket"`
	ID            string            `db:"id"`
	ThreatType    string            `db:"threat_type"`
	Severity      ThreatSeverity    `db:"severity"`
	Source        string            `db:"source"`
	Description   string            `db:"description"`
	Indicators    map[string]string `db:"indicators"`
	Status        ThreatStatus      `db:"status"`
	FirstDetected time.Time         `db:"first_detected"`
}
