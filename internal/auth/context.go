package auth

import (
	"context"

	"docvault/internal/models"
)

type ctxKey string

const userKey ctxKey = "currentUser"

// WithUser stores the authenticated user, loaded with its role and
// permission set, on the request context.
func WithUser(ctx context.Context, u *models.User) context.Context {
	return context.WithValue(ctx, userKey, u)
}

// FromContext returns the authenticated user or nil.
func FromContext(ctx context.Context) *models.User {
	if v, ok := ctx.Value(userKey).(*models.User); ok {
		return v
	}
	return nil
}
