package models

// Role is the privilege level carried by an authenticated admin session.
type Role string

const (
	RoleSuperAdmin Role = "SUPER_ADMIN"
	RoleAdmin      Role = "ADMIN"
	RoleAnalyst    Role = "ANALYST"
	RoleSupport    Role = "SUPPORT"
)

// Identity is the authenticated caller, resolved from a bearer session token
// and threaded explicitly through every service call. There is no ambient
// "current admin" anywhere.
type Identity struct {
	AdminID      string `json:"admin_id"`
	Role         Role   `json:"role"`
	SessionToken string `json:"-"`
}

// Subject is the identity a security record belongs to: an admin or a portal
// customer, keyed by (user_id, user_type).
type Subject struct {
	UserID   string `json:"user_id"`
	UserType string `json:"user_type"`
}

const (
	UserTypeAdmin    = "admin"
	UserTypeCustomer = "customer"
)

// CanManageSecurity reports whether the role passes the admin gate used by
// the threat, incident, GDPR-processing and dashboard surfaces.
func (r Role) CanManageSecurity() bool {
	return r == RoleSuperAdmin || r == RoleAdmin
}

// ValidUserType rejects unknown subject types at the API edge.
func ValidUserType(userType string) bool {
	return userType == UserTypeAdmin || userType == UserTypeCustomer
}
