// Package access makes authorization decisions over already-loaded entities.
// Decisions are pure: no database access, no side effects. Callers load the
// user with its role and permission set; a snapshot that goes stale within a
// single request is acceptable.
package access

import (
	"docvault/internal/apperr"
	"docvault/internal/models"
)

// Authorize reports whether user may perform the action named by
// permissionType. A disabled account is rejected before any permission
// check. A superuser role bypasses permission rows entirely.
func Authorize(user *models.User, permissionType string) error {
	if user == nil {
		return apperr.New(apperr.Forbidden, "no authenticated user")
	}
	if !user.Status {
		return apperr.New(apperr.Forbidden, "account disabled")
	}
	if user.Role.IsSuperuser {
		return nil
	}
	for _, p := range user.Role.Permissions {
		if p.PermissionType == permissionType && p.IsEnabled {
			return nil
		}
	}
	return apperr.New(apperr.Forbidden, "permission denied: "+permissionType)
}

// CanAccessDocument reports whether user may read doc: superusers, the
// creator, and anyone for public documents.
func CanAccessDocument(user *models.User, doc *models.Document) bool {
	if user == nil || doc == nil {
		return false
	}
	if user.Role.IsSuperuser {
		return true
	}
	if doc.CreatorID == user.ID {
		return true
	}
	return !doc.IsPrivate
}

// CanModifyDocument reports whether user may edit or delete doc. Stricter
// than CanAccessDocument: only the creator and superusers qualify, so a
// non-owner with view rights on a public document may not edit it.
func CanModifyDocument(user *models.User, doc *models.Document) bool {
	if user == nil || doc == nil {
		return false
	}
	return user.Role.IsSuperuser || doc.CreatorID == user.ID
}
