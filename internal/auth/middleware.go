package auth

import (
	"net/http"
	"strings"

	"gorm.io/gorm"

	"docvault/internal/access"
	"docvault/internal/apperr"
	"docvault/internal/models"
)

// JWTAuth verifies the bearer token and resolves the full user row with its
// role and permission set, so downstream permission checks decide over a
// consistent snapshot loaded once per request.
func JWTAuth(db *gorm.DB, secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := r.Header.Get("Authorization")
			if !strings.HasPrefix(h, "Bearer ") {
				http.Error(w, "missing bearer token", http.StatusUnauthorized)
				return
			}
			sub, err := Verify(secret, strings.TrimPrefix(h, "Bearer "))
			if err != nil {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}
			var u models.User
			if err := db.Preload("Role").Preload("Role.Permissions").
				First(&u, "id = ?", sub).Error; err != nil {
				http.Error(w, "user not found", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), &u)))
		})
	}
}

// RequirePermission gates a route on one permission type, rejecting before
// the handler body runs. The decision itself lives in the access package.
func RequirePermission(permissionType string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := access.Authorize(FromContext(r.Context()), permissionType); err != nil {
				http.Error(w, apperr.Message(err), apperr.HTTPStatus(err))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
