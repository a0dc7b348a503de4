package models

import (
	"net"
	"time"
)

// ActiveSession is one tracked session for a subject. Invalidation flips
// IsActive; rows are never deleted.
type ActiveSession struct {
	Bucket       int       `db:"bucket"`
	UserID       string    `db:"user_id"`
	UserType     string    `db:"user_type"`
	SessionToken string    `db:"session_token"`
	IPAddress    net.IP    `db:"ip_address"`
	UserAgent    string    `db:"user_agent"`
	CreatedAt    time.Time `db:"created_at"`
	LastActivity time.Time `db:"last_activity"`
	IsActive     bool      `db:"is_active"`
}

// SessionActivity is the append-only trail behind the heartbeat operations.
type SessionActivity struct {
	Bucket       int       `db:"bucket"`
	UserID       string    `db:"user_id"`
	UserType     string    `db:"user_type"`
	ID           string    `db:"id"`
	SessionToken string    `db:"session_token"`
	Action       string    `db:"action"`
	IPAddress    net.IP    `db:"ip_address"`
	UserAgent    string    `db:"user_agent"`
	OccurredAt   time.Time `db:"occurred_at"`
}

// Session action tags dispatched by POST /security/session.
const (
	SessionTrackActivity      = "track_activity"
	SessionUpdateActivity     = "update_activity"
	SessionDetectSuspicious   = "detect_suspicious"
	SessionInvalidateSessions = "invalidate_sessions"
)
