package model

// Role represents a user's permission level.
type Role int

const (
	RoleBasic Role = iota // Default role, can log in and edit their profile
	RoleStaff             // Can read the secret area and use the DM channel
	RoleAdmin             // Full control: user management, secret info, DM channel
)

func (r Role) String() string {
	switch r {
	case RoleBasic:
		return "basic"
	case RoleStaff:
		return "staff"
	case RoleAdmin:
		return "admin"
	default:
		return "unknown"
	}
}

// ParseRole converts a string to a Role.
func ParseRole(s string) Role {
	switch s {
	case "admin":
		return RoleAdmin
	case "staff":
		return RoleStaff
	default:
		return RoleBasic
	}
}

// Valid returns true if the role is a recognised value (Basic, Staff, or Admin).
func (r Role) Valid() bool {
	return r >= RoleBasic && r <= RoleAdmin
}

// Permission represents a specific action that can be checked against a role.
type Permission int

const (
	PermSendDirectMessage Permission = iota
	PermReadSecretInfo
	PermEditSecretInfo
	PermManageUsers
)
