package permissions

import "github.com/crewdeckhq/crewdeck/internal/models"

// Registry lists every company-scoped permission flag the platform understands.
// Flags are stored verbatim on membership records.
func Registry() []string {
	return []string{
		models.PermissionManageMembers,
		"company.manage_settings",
		"company.view_billing",
	}
}

// IsKnown reports whether the permission identifier is registered.
func IsKnown(permission string) bool {
	for _, known := range Registry() {
		if known == permission {
			return true
		}
	}
	return false
}
