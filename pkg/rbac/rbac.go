package rbac

import (
	"fmt"

	"github.com/nextbite-hq/nextbite-backend/pkg/enums"
)

// Permission is a single capability gated by the role matrix.
type Permission string

const (
	PermissionViewMenu      Permission = "view_menu"
	PermissionCreateOrder   Permission = "create_order"
	PermissionCheckout      Permission = "checkout"
	PermissionCancelOrder   Permission = "cancel_order"
	PermissionUpdatePayment Permission = "update_payment"
	PermissionManageUsers   Permission = "manage_users"
)

var validPermissions = []Permission{
	PermissionViewMenu,
	PermissionCreateOrder,
	PermissionCheckout,
	PermissionCancelOrder,
	PermissionUpdatePayment,
	PermissionManageUsers,
}

// String implements fmt.Stringer.
func (p Permission) String() string {
	return string(p)
}

// IsValid reports whether the value is a known Permission.
func (p Permission) IsValid() bool {
	for _, candidate := range validPermissions {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePermission converts raw input into a Permission.
func ParsePermission(value string) (Permission, error) {
	for _, candidate := range validPermissions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid permission %q", value)
}

// Has reports whether the role carries the permission. The matrix is fixed at
// compile time: team members build carts, managers additionally settle and
// cancel them, administrators hold every capability.
func Has(role enums.Role, permission Permission) bool {
	switch role {
	case enums.RoleAdmin:
		return permission.IsValid()
	case enums.RoleManager:
		switch permission {
		case PermissionViewMenu, PermissionCreateOrder, PermissionCheckout, PermissionCancelOrder:
			return true
		}
		return false
	case enums.RoleTeamMember:
		switch permission {
		case PermissionViewMenu, PermissionCreateOrder:
			return true
		}
		return false
	}
	return false
}

// Permissions returns the full capability set for a role.
func Permissions(role enums.Role) []Permission {
	granted := make([]Permission, 0, len(validPermissions))
	for _, permission := range validPermissions {
		if Has(role, permission) {
			granted = append(granted, permission)
		}
	}
	return granted
}

// CanActForOthers reports whether the role may operate on another user's
// orders and payment instruments.
func CanActForOthers(role enums.Role) bool {
	return role == enums.RoleAdmin || role == enums.RoleManager
}
