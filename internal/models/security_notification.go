package models

import "time"

// SecurityNotification is a per-subject notice with read/unread state.
type SecurityNotification struct {
	Bucket    int            `db:"bucket"`
	UserID    string         `db:"user_id"`
	UserType  string         `db:"user_type"`
	ID        string         `db:"id"`
	Category  string         `db:"category"`
	Severity  ThreatSeverity `db:"severity"`
	Title     string         `db:"title"`
	Body      string         `db:"body"`
	IsRead    bool           `db:"is_read"`
	ReadAt    *time.Time     `db:"read_at"`
	CreatedAt time.Time      `db:"created_at"`
}

// Notification categories emitted by the security services.
const (
	NotifySuspiciousSession = "suspicious_session"
	NotifyTwoFactorChange   = "two_factor_change"
	NotifyGDPRRequest       = "gdpr_request"
	NotifyForcedLogout      = "forced_logout"
)
