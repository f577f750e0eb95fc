package models

// Role represents user roles in the system
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleManager  Role = "manager"
	RoleOperator Role = "operator"
	RoleViewer   Role = "viewer"
	// RoleScheduler is carried by tokens issued to cron and other machine callers.
	RoleScheduler Role = "scheduler"
)

// Actions checked by HasPermission.
const (
	ActionRunGeneration   = "run_generation"
	ActionViewReminders   = "view_reminders"
	ActionManageReminders = "manage_reminders"
	ActionManageRules     = "manage_rules"
)

// User is the authenticated principal behind a request. Accounts live in
// the main fleet application; this service only sees token claims.
type User struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	CompanyID string `json:"company_id,omitempty"`
	Role      Role   `json:"role"`
}

// Claims represents JWT claims
type Claims struct {
	UserID    string `json:"user_id"`
	Username  string `json:"username"`
	CompanyID string `json:"company_id,omitempty"`
	Role      Role   `json:"role"`
	Exp       int64  `json:"exp"`
}

// IsValidRole checks if a role is valid
func IsValidRole(role Role) bool {
	switch role {
	case RoleAdmin, RoleManager, RoleOperator, RoleViewer, RoleScheduler:
		return true
	default:
		return false
	}
}

// HasPermission checks if a user has permission for a specific action
func (u *User) HasPermission(action string) bool {
	switch u.Role {
	case RoleAdmin:
		return true
	case RoleManager:
		return action == ActionRunGeneration || action == ActionViewReminders ||
			action == ActionManageReminders || action == ActionManageRules
	case RoleScheduler:
		return action == ActionRunGeneration
	case RoleOperator:
		return action == ActionViewReminders || action == ActionManageReminders
	case RoleViewer:
		return action == ActionViewReminders
	default:
		return false
	}
}
