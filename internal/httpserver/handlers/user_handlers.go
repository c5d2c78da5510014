package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"docvault/internal/apperr"
	"docvault/internal/audit"
	"docvault/internal/auth"
	"docvault/internal/models"
)

func ListUsers(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var users []models.User
		_ = db.Preload("Role").Order("created_at desc").Find(&users).Error
		respondJSON(w, users)
	}
}

func CreateUser(db *gorm.DB, recorder *audit.Recorder, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Username string `json:"username"`
			Email    string `json:"email"`
			Password string `json:"password"`
			RoleID   int    `json:"role_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondErr(w, apperr.Wrap(apperr.Validation, "bad request body", err))
			return
		}
		req.Username = strings.TrimSpace(req.Username)
		req.Email = strings.TrimSpace(strings.ToLower(req.Email))
		if req.Username == "" || req.Email == "" || req.Password == "" {
			respondErr(w, apperr.New(apperr.Validation, "username, email and password required"))
			return
		}
		var count int64
		db.Model(&models.User{}).Where("username = ? OR email = ?", req.Username, req.Email).Count(&count)
		if count > 0 {
			respondErr(w, apperr.New(apperr.Conflict, "username or email already exists"))
			return
		}
		var role models.Role
		if err := db.First(&role, "id = ?", req.RoleID).Error; err != nil {
			respondErr(w, apperr.New(apperr.Validation, "role does not exist"))
			return
		}
		hash, err := auth.HashPassword(req.Password)
		if err != nil {
			respondErr(w, err)
			return
		}
		u := models.User{Username: req.Username, Email: req.Email, PasswordHash: hash, RoleID: role.ID, Status: true}
		if err := db.Create(&u).Error; err != nil {
			respondErr(w, err)
			return
		}
		operator := auth.FromContext(r.Context())
		recorder.RecordSystemOperation(operator, "user_create", "created user "+u.Username,
			"user", u.ID, u.Username,
			map[string]any{"role": role.Name}, r.RemoteAddr)
		respondStatusJSON(w, http.StatusCreated, map[string]any{"id": u.ID})
	}
}

func UpdateUser(db *gorm.DB, recorder *audit.Recorder, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		var req struct {
			Email    *string `json:"email"`
			Status   *bool   `json:"status"`
			Password *string `json:"password"`
			RoleID   *int    `json:"role_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondErr(w, apperr.Wrap(apperr.Validation, "bad request body", err))
			return
		}
		var u models.User
		if err := db.Preload("Role").First(&u, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				respondErr(w, apperr.New(apperr.NotFound, "user not found"))
				return
			}
			respondErr(w, err)
			return
		}
		if req.Email != nil {
			email := strings.TrimSpace(strings.ToLower(*req.Email))
			var count int64
			db.Model(&models.User{}).Where("email = ? AND id <> ?", email, u.ID).Count(&count)
			if count > 0 {
				respondErr(w, apperr.New(apperr.Conflict, "email already exists"))
				return
			}
			u.Email = email
		}
		if req.Status != nil {
			u.Status = *req.Status
		}
		if req.Password != nil && *req.Password != "" {
			hash, err := auth.HashPassword(*req.Password)
			if err != nil {
				respondErr(w, err)
				return
			}
			u.PasswordHash = hash
		}
		if req.RoleID != nil {
			var role models.Role
			if err := db.First(&role, "id = ?", *req.RoleID).Error; err != nil {
				respondErr(w, apperr.New(apperr.Validation, "role does not exist"))
				return
			}
			u.RoleID = role.ID
		}
		if err := db.Save(&u).Error; err != nil {
			respondErr(w, err)
			return
		}
		operator := auth.FromContext(r.Context())
		recorder.RecordSystemOperation(operator, "user_update", "updated user "+u.Username,
			"user", u.ID, u.Username, nil, r.RemoteAddr)
		respondJSON(w, map[string]any{"updated": true})
	}
}

func DeleteUser(db *gorm.DB, recorder *audit.Recorder, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		operator := auth.FromContext(r.Context())
		if operator.ID == id {
			respondErr(w, apperr.New(apperr.Validation, "cannot delete own account"))
			return
		}
		var u models.User
		if err := db.First(&u, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				respondErr(w, apperr.New(apperr.NotFound, "user not found"))
				return
			}
			respondErr(w, err)
			return
		}
		if err := db.Delete(&u).Error; err != nil {
			respondErr(w, err)
			return
		}
		recorder.RecordSystemOperation(operator, "user_delete", "deleted user "+u.Username,
			"user", u.ID, u.Username, nil, r.RemoteAddr)
		respondJSON(w, map[string]any{"deleted": true})
	}
}

func ListRoles(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var roles []models.Role
		_ = db.Preload("Permissions").Order("id asc").Find(&roles).Error
		respondJSON(w, roles)
	}
}

// SetPermission grants or revokes one permission type on a role. At most
// one permission row exists per (role, type); toggling updates it in place.
func SetPermission(db *gorm.DB, recorder *audit.Recorder, lg *zap.SugaredLogger) http.HandlerFunc {
	validTypes := map[string]bool{
		models.PermView: true, models.PermUpload: true, models.PermEdit: true,
		models.PermUserManage: true, models.PermCategoryManage: true, models.PermAdmin: true,
	}
	return func(w http.ResponseWriter, r *http.Request) {
		roleID, err := strconv.Atoi(chi.URLParam(r, "id"))
		if err != nil {
			respondErr(w, apperr.New(apperr.Validation, "invalid role id"))
			return
		}
		var req struct {
			PermissionType string `json:"permission_type"`
			IsEnabled      bool   `json:"is_enabled"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondErr(w, apperr.Wrap(apperr.Validation, "bad request body", err))
			return
		}
		if !validTypes[req.PermissionType] {
			respondErr(w, apperr.New(apperr.Validation, "unknown permission type"))
			return
		}
		var role models.Role
		if err := db.First(&role, "id = ?", roleID).Error; err != nil {
			respondErr(w, apperr.New(apperr.NotFound, "role not found"))
			return
		}
		var perm models.Permission
		err = db.First(&perm, "role_id = ? AND permission_type = ?", roleID, req.PermissionType).Error
		switch {
		case err == nil:
			if err := db.Model(&perm).Update("is_enabled", req.IsEnabled).Error; err != nil {
				respondErr(w, err)
				return
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			perm = models.Permission{RoleID: roleID, PermissionType: req.PermissionType, IsEnabled: req.IsEnabled}
			if err := db.Create(&perm).Error; err != nil {
				respondErr(w, apperr.Wrap(apperr.Conflict, "permission already exists", err))
				return
			}
		default:
			respondErr(w, err)
			return
		}
		operator := auth.FromContext(r.Context())
		opType := "auth_grant"
		if !req.IsEnabled {
			opType = "auth_revoke"
		}
		recorder.RecordSystemOperation(operator, opType,
			opType+" "+req.PermissionType+" on role "+role.Name,
			"role", strconv.Itoa(role.ID), role.Name,
			map[string]any{"permission": req.PermissionType, "enabled": req.IsEnabled}, r.RemoteAddr)
		respondJSON(w, perm)
	}
}
