// Package rbac provides role-based access control checks.
package rbac

import "github.com/pyjavascript-microsoft/BloxStudios/pkg/model"

// permissionMatrix maps roles to their allowed permissions.
var permissionMatrix = map[model.Role]map[model.Permission]bool{
	model.RoleAdmin: {
		model.PermSendDirectMessage: true,
		model.PermReadSecretInfo:    true,
		model.PermEditSecretInfo:    true,
		model.PermManageUsers:       true,
	},
	model.RoleStaff: {
		model.PermSendDirectMessage: true,
		model.PermReadSecretInfo:    true,
	},
	model.RoleBasic: {
		// No special permissions — can only log in and edit their own profile
	},
}

// HasPermission checks if a role has a specific permission.
func HasPermission(role model.Role, perm model.Permission) bool {
	perms, ok := permissionMatrix[role]
	if !ok {
		return false
	}
	return perms[perm]
}

// RequirePermission returns an error message if the role lacks the permission, or empty string if allowed.
func RequirePermission(role model.Role, perm model.Permission) string {
	if HasPermission(role, perm) {
		return ""
	}
	return "permission denied: " + permName(perm) + " requires higher role"
}

func permName(p model.Permission) string {
	switch p {
	case model.PermSendDirectMessage:
		return "send_direct_message"
	case model.PermReadSecretInfo:
		return "read_secret_info"
	case model.PermEditSecretInfo:
		return "edit_secret_info"
	case model.PermManageUsers:
		return "manage_users"
	default:
		return "unknown"
	}
}
