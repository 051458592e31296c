package services

import "context"

// PermissionChecker evaluates company-scoped permission flags for a user.
// Satisfied by permissions.Checker.
type PermissionChecker interface {
	Check(ctx context.Context, userID string, companyID uint64, permission string) (bool, error)
}
