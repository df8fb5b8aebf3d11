// Package policy centralizes the role and tenant authorization rules.
// Handlers ask yes/no questions here instead of comparing roles inline.
package policy

import (
	"github.com/Phantom-bronze/UserModule/internal/apiserver/database"
)

// CanManage reports whether actor may modify target's account. Super
// admins manage everyone. Admins manage plain users of their own
// tenant, never other admins or super admins. Users manage nobody
// through this path; self-service updates go through the profile route.
func CanManage(actor, target *database.User) bool {
	switch actor.Role {
	case database.RoleSuperAdmin:
		return true
	case database.RoleAdmin:
		if target.Role != database.RoleUser {
			return false
		}
		return sameTenant(actor.TenantID, target.TenantID)
	default:
		return false
	}
}

// CanAccessTenant reports whether actor may operate on resources scoped
// to tenantID.
func CanAccessTenant(actor *database.User, tenantID string) bool {
	if actor.Role == database.RoleSuperAdmin {
		return true
	}
	return actor.TenantID != nil && *actor.TenantID == tenantID
}

// CanInvite reports whether actor may issue an invitation for role into
// tenantID. Admins invite plain users into their own tenant; super
// admins invite admins or users into any tenant.
func CanInvite(actor *database.User, role database.UserRole, tenantID string) bool {
	switch actor.Role {
	case database.RoleSuperAdmin:
		return role == database.RoleAdmin || role == database.RoleUser
	case database.RoleAdmin:
		return role == database.RoleUser && CanAccessTenant(actor, tenantID)
	default:
		return false
	}
}

// CanAssignRole reports whether actor may set target's role to newRole.
// Only super admins change roles, and nobody is promoted to super admin
// through the API.
func CanAssignRole(actor *database.User, newRole database.UserRole) bool {
	if newRole == database.RoleSuperAdmin {
		return false
	}
	return actor.Role == database.RoleSuperAdmin
}

// CanManageDevices reports whether actor may register or link devices.
func CanManageDevices(actor *database.User) bool {
	switch actor.Role {
	case database.RoleSuperAdmin, database.RoleAdmin:
		return true
	default:
		return actor.CanAddDevices
	}
}

func sameTenant(a, b *string) bool {
	return a != nil && b != nil && *a == *b
}
