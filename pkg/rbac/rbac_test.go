package rbac

import (
	"testing"

	"github.com/nextbite-hq/nextbite-backend/pkg/enums"
)

func TestMatrixIsExactPerRole(t *testing.T) {
	cases := []struct {
		role    enums.Role
		granted []Permission
	}{
		{
			role: enums.RoleTeamMember,
			granted: []Permission{
				PermissionViewMenu,
				PermissionCreateOrder,
			},
		},
		{
			role: enums.RoleManager,
			granted: []Permission{
				PermissionViewMenu,
				PermissionCreateOrder,
				PermissionCheckout,
				PermissionCancelOrder,
			},
		},
		{
			role: enums.RoleAdmin,
			granted: []Permission{
				PermissionViewMenu,
				PermissionCreateOrder,
				PermissionCheckout,
				PermissionCancelOrder,
				PermissionUpdatePayment,
				PermissionManageUsers,
			},
		},
	}

	for _, tc := range cases {
		allowed := map[Permission]bool{}
		for _, p := range tc.granted {
			allowed[p] = true
		}
		for _, p := range validPermissions {
			if Has(tc.role, p) != allowed[p] {
				t.Fatalf("role %s permission %s: expected %v", tc.role, p, allowed[p])
			}
		}
	}
}

func TestHasRejectsUnknownRole(t *testing.T) {
	if Has(enums.Role("courier"), PermissionViewMenu) {
		t.Fatal("unknown role must carry no permissions")
	}
}

func TestPermissionsCountPerRole(t *testing.T) {
	if got := len(Permissions(enums.RoleAdmin)); got != 6 {
		t.Fatalf("admin should hold 6 permissions, got %d", got)
	}
	if got := len(Permissions(enums.RoleManager)); got != 4 {
		t.Fatalf("manager should hold 4 permissions, got %d", got)
	}
	if got := len(Permissions(enums.RoleTeamMember)); got != 2 {
		t.Fatalf("team member should hold 2 permissions, got %d", got)
	}
}

func TestCanActForOthers(t *testing.T) {
	if !CanActForOthers(enums.RoleAdmin) || !CanActForOthers(enums.RoleManager) {
		t.Fatal("admin and manager act on behalf of other users")
	}
	if CanActForOthers(enums.RoleTeamMember) {
		t.Fatal("team member must not act on behalf of other users")
	}
}
