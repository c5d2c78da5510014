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

func ListCategories(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var categories []models.Category
		if err := db.Order("id asc").Find(&categories).Error; err != nil {
			respondErr(w, err)
			return
		}
		respondJSON(w, categories)
	}
}

func CreateCategory(db *gorm.DB, recorder *audit.Recorder, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Name        string `json:"name"`
			ParentID    *int   `json:"parent_id"`
			Description string `json:"description"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondErr(w, apperr.Wrap(apperr.Validation, "bad request body", err))
			return
		}
		req.Name = strings.TrimSpace(req.Name)
		if req.Name == "" {
			respondErr(w, apperr.New(apperr.Validation, "name required"))
			return
		}
		var count int64
		db.Model(&models.Category{}).Where("name = ?", req.Name).Count(&count)
		if count > 0 {
			respondErr(w, apperr.New(apperr.Conflict, "category name already exists"))
			return
		}
		if req.ParentID != nil {
			var parent models.Category
			if err := db.First(&parent, "id = ?", *req.ParentID).Error; err != nil {
				respondErr(w, apperr.New(apperr.Validation, "parent category does not exist"))
				return
			}
		}
		c := models.Category{Name: req.Name, ParentID: req.ParentID, Description: req.Description}
		if err := db.Create(&c).Error; err != nil {
			respondErr(w, err)
			return
		}
		operator := auth.FromContext(r.Context())
		recorder.RecordSystemOperation(operator, "category_manage", "created category "+c.Name,
			"category", strconv.Itoa(c.ID), c.Name,
			map[string]any{"operation": "create", "parent_id": c.ParentID}, r.RemoteAddr)
		respondStatusJSON(w, http.StatusCreated, c)
	}
}

func UpdateCategory(db *gorm.DB, recorder *audit.Recorder, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		var req struct {
			Name        *string `json:"name"`
			ParentID    *int    `json:"parent_id"`
			Description *string `json:"description"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondErr(w, apperr.Wrap(apperr.Validation, "bad request body", err))
			return
		}
		var c models.Category
		if err := db.First(&c, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				respondErr(w, apperr.New(apperr.NotFound, "category not found"))
				return
			}
			respondErr(w, err)
			return
		}
		if req.Name != nil {
			name := strings.TrimSpace(*req.Name)
			if name == "" {
				respondErr(w, apperr.New(apperr.Validation, "name required"))
				return
			}
			var count int64
			db.Model(&models.Category{}).Where("name = ? AND id <> ?", name, c.ID).Count(&count)
			if count > 0 {
				respondErr(w, apperr.New(apperr.Conflict, "category name already exists"))
				return
			}
			c.Name = name
		}
		if req.ParentID != nil {
			c.ParentID = req.ParentID
		}
		if req.Description != nil {
			c.Description = *req.Description
		}
		if err := db.Save(&c).Error; err != nil {
			respondErr(w, err)
			return
		}
		operator := auth.FromContext(r.Context())
		recorder.RecordSystemOperation(operator, "category_manage", "updated category "+c.Name,
			"category", strconv.Itoa(c.ID), c.Name,
			map[string]any{"operation": "update"}, r.RemoteAddr)
		respondJSON(w, c)
	}
}

func DeleteCategory(db *gorm.DB, recorder *audit.Recorder, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		var c models.Category
		if err := db.First(&c, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				respondErr(w, apperr.New(apperr.NotFound, "category not found"))
				return
			}
			respondErr(w, err)
			return
		}
		var docCount int64
		db.Model(&models.Document{}).Where("category_id = ?", c.ID).Count(&docCount)
		if docCount > 0 {
			respondErr(w, apperr.New(apperr.Validation, "category still has documents"))
			return
		}
		var childCount int64
		db.Model(&models.Category{}).Where("parent_id = ?", c.ID).Count(&childCount)
		if childCount > 0 {
			respondErr(w, apperr.New(apperr.Validation, "category still has subcategories"))
			return
		}
		if err := db.Delete(&c).Error; err != nil {
			respondErr(w, err)
			return
		}
		operator := auth.FromContext(r.Context())
		recorder.RecordSystemOperation(operator, "category_manage", "deleted category "+c.Name,
			"category", strconv.Itoa(c.ID), c.Name,
			map[string]any{"operation": "delete"}, r.RemoteAddr)
		respondJSON(w, map[string]any{"deleted": true})
	}
}
