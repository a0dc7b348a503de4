package models

import (
	"net"
	"time"
)

// AdminSession resolves a bearer token to an acting identity. Inactive
// sessions and inactive admins are rejected uniformly with Unauthorized.
type AdminSession struct {
	SessionToken string    `db:"session_token"`
	AdminID      string    `db:"admin_id"`
	Role         Role      `db:"role"`
	IPAddress    net.IP    `db:"ip_address"`
	CreatedAt    time.Time `db:"created_at"`
	LastActivity time.Time `db:"last_activity"`
	ExpiresAt    time.Time `db:"expires_at"`
	IsActive     bool      `db:"is_active"`
}

type AdminUser struct {
	AdminID   string    `db:"admin_id"`
	Username  string    `db:"username"`
	Role      Role      `db:"role"`
	IsActive  bool      `db:"is_active"`
	CreatedAt time.Time `db:"created_at"`
}
