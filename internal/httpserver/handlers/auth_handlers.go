package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"docvault/internal/apperr"
	"docvault/internal/auth"
	"docvault/internal/config"
	"docvault/internal/models"
)

type loginReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func Login(db *gorm.DB, cfg config.Config, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondErr(w, apperr.Wrap(apperr.Validation, "bad request body", err))
			return
		}
		req.Username = strings.TrimSpace(req.Username)
		if req.Username == "" || req.Password == "" {
			respondErr(w, apperr.New(apperr.Validation, "username and password required"))
			return
		}
		var u models.User
		if err := db.Preload("Role").First(&u, "username = ?", req.Username).Error; err != nil {
			respondStatusJSON(w, http.StatusUnauthorized, map[string]string{"message": "invalid credentials"})
			return
		}
		if err := auth.CheckPassword(u.PasswordHash, req.Password); err != nil {
			respondStatusJSON(w, http.StatusUnauthorized, map[string]string{"message": "invalid credentials"})
			return
		}
		if !u.Status {
			respondStatusJSON(w, http.StatusForbidden, map[string]string{"message": "account disabled"})
			return
		}
		tok, err := auth.Sign([]byte(cfg.JWTSecret), cfg.JWTTTL, u.ID)
		if err != nil {
			respondErr(w, err)
			return
		}
		now := time.Now()
		_ = db.Model(&u).Update("last_login_at", now).Error
		lg.Infow("login", "user", u.Username)
		respondJSON(w, map[string]any{
			"token": tok,
			"user": map[string]any{
				"id": u.ID, "username": u.Username, "role": u.Role.Name,
			},
		})
	}
}

// Logout acknowledges the end of a session. Tokens are stateless, so there
// is nothing to revoke server-side; clients discard the token.
func Logout(lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u := auth.FromContext(r.Context())
		lg.Infow("logout", "user", u.Username)
		respondJSON(w, map[string]any{"message": "logged out"})
	}
}

func Me(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u := auth.FromContext(r.Context())
		respondJSON(w, map[string]any{
			"id": u.ID, "username": u.Username, "email": u.Email,
			"role": u.Role, "status": u.Status, "last_login_at": u.LastLoginAt,
		})
	}
}

func ChangePassword(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			OldPassword string `json:"old_password"`
			NewPassword string `json:"new_password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondErr(w, apperr.Wrap(apperr.Validation, "bad request body", err))
			return
		}
		if req.NewPassword == "" {
			respondErr(w, apperr.New(apperr.Validation, "new password required"))
			return
		}
		u := auth.FromContext(r.Context())
		if err := auth.CheckPassword(u.PasswordHash, req.OldPassword); err != nil {
			respondStatusJSON(w, http.StatusUnauthorized, map[string]string{"message": "invalid credentials"})
			return
		}
		hash, err := auth.HashPassword(req.NewPassword)
		if err != nil {
			respondErr(w, err)
			return
		}
		if err := db.Model(u).Update("password_hash", hash).Error; err != nil {
			respondErr(w, err)
			return
		}
		respondJSON(w, map[string]any{"updated": true})
	}
}
