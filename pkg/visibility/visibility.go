package visibility

import (
	"strings"

	"github.com/nextbite-hq/nextbite-backend/pkg/enums"
)

// CountryScopeInput drives the shared country-scoping check applied to
// restaurant and menu reads.
type CountryScopeInput struct {
	Role            enums.Role
	UserCountry     *string
	ResourceCountry *string
}

// CanViewInCountry reports whether the requester may see a resource in the
// given country. Admins see everything; everyone else only resources in their
// own country. A missing country on either side fails closed.
func CanViewInCountry(input CountryScopeInput) bool {
	if input.Role == enums.RoleAdmin {
		return true
	}
	user := normalizeCountry(input.UserCountry)
	resource := normalizeCountry(input.ResourceCountry)
	if user == "" || resource == "" {
		return false
	}
	return user == resource
}

func normalizeCountry(value *string) string {
	if value == nil {
		return ""
	}
	return strings.ToUpper(strings.TrimSpace(*value))
}
