package models

import "time"

// UserSecurityPreference is upserted, keyed uniquely by (user_id, user_type).
type UserSecurityPreference struct {
	Bucket                int       `db:"bucket"`
	UserID                string    `db:"user_id"`
	UserType              string    `db:"user_type"`
	TwoFactorEnabled      bool      `db:"two_factor_enabled"`
	LoginAlerts           bool      `db:"login_alerts"`
	SecurityAlerts        bool      `db:"security_alerts"`
	SessionTimeoutMinutes int       `db:"session_timeout_minutes"`
	UpdatedAt             time.Time `db:"updated_at"`
}

// DefaultSecurityPreference is what a subject gets before their first upsert.
func DefaultSecurityPreference(subject Subject) *UserSecurityPreference {
	return &UserSecurityPreference{
		UserID:                subject.UserID,
		UserType:              subject.UserType,
		TwoFactorEnabled:      false,
		LoginAlerts:           true,
		SecurityAlerts:        true,
		SessionTimeoutMinutes: 30,
	}
}
