package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"docvault/internal/access"
	"docvault/internal/apperr"
	"docvault/internal/audit"
	"docvault/internal/auth"
	"docvault/internal/documents"
	"docvault/internal/models"
)

var annotationTypes = map[string]bool{
	models.AnnotationText:      true,
	models.AnnotationRectangle: true,
	models.AnnotationCircle:    true,
	models.AnnotationArrow:     true,
}

func ListAnnotations(db *gorm.DB, repo *documents.Repository, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u := auth.FromContext(r.Context())
		docID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			respondErr(w, apperr.New(apperr.Validation, "invalid document id"))
			return
		}
		doc, err := repo.Get(docID)
		if err != nil {
			respondErr(w, err)
			return
		}
		if !access.CanAccessDocument(u, doc) {
			respondErr(w, apperr.New(apperr.Forbidden, "not allowed to access this document"))
			return
		}
		var annotations []models.Annotation
		if err := db.Where("document_id = ?", doc.ID).Order("created_at asc").Find(&annotations).Error; err != nil {
			respondErr(w, err)
			return
		}
		respondJSON(w, annotations)
	}
}

// CreateAnnotation adds a markup to a layout document. Flow documents carry
// editable content instead of annotations.
func CreateAnnotation(db *gorm.DB, repo *documents.Repository,
	recorder *audit.Recorder, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u := auth.FromContext(r.Context())
		docID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			respondErr(w, apperr.New(apperr.Validation, "invalid document id"))
			return
		}
		var req struct {
			Type       string          `json:"type"`
			Content    string          `json:"content"`
			Position   json.RawMessage `json:"position"`
			Style      json.RawMessage `json:"style"`
			PageNumber int             `json:"page_number"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondErr(w, apperr.Wrap(apperr.Validation, "bad request body", err))
			return
		}
		if !annotationTypes[req.Type] {
			respondErr(w, apperr.New(apperr.Validation, "unknown annotation type"))
			return
		}
		doc, err := repo.Get(docID)
		if err != nil {
			respondErr(w, err)
			return
		}
		if !access.CanAccessDocument(u, doc) {
			respondErr(w, apperr.New(apperr.Forbidden, "not allowed to access this document"))
			return
		}
		if doc.FileType != models.FileTypeLayout {
			respondErr(w, apperr.New(apperr.Validation, "only layout documents support annotations"))
			return
		}
		if req.PageNumber < 1 {
			req.PageNumber = 1
		}
		a := models.Annotation{
			DocumentID: doc.ID,
			UserID:     u.ID,
			Type:       req.Type,
			Content:    req.Content,
			Position:   models.JSONB(req.Position),
			Style:      models.JSONB(req.Style),
			PageNumber: req.PageNumber,
		}
		if err := db.Create(&a).Error; err != nil {
			respondErr(w, err)
			return
		}
		recorder.RecordAccess(u.ID, doc.ID, models.ActionAnnotate, r.RemoteAddr, r.UserAgent())
		respondStatusJSON(w, http.StatusCreated, a)
	}
}

func UpdateAnnotation(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u := auth.FromContext(r.Context())
		annotationID := chi.URLParam(r, "annotationID")
		var a models.Annotation
		if err := db.First(&a, "id = ?", annotationID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				respondErr(w, apperr.New(apperr.NotFound, "annotation not found"))
				return
			}
			respondErr(w, err)
			return
		}
		if a.UserID != u.ID && !u.Role.IsSuperuser {
			respondErr(w, apperr.New(apperr.Forbidden, "not allowed to modify this annotation"))
			return
		}
		var req struct {
			Content  *string         `json:"content"`
			Position json.RawMessage `json:"position"`
			Style    json.RawMessage `json:"style"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondErr(w, apperr.Wrap(apperr.Validation, "bad request body", err))
			return
		}
		if req.Content != nil {
			a.Content = *req.Content
		}
		if req.Position != nil {
			a.Position = models.JSONB(req.Position)
		}
		if req.Style != nil {
			a.Style = models.JSONB(req.Style)
		}
		if err := db.Save(&a).Error; err != nil {
			respondErr(w, err)
			return
		}
		respondJSON(w, a)
	}
}

func DeleteAnnotation(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u := auth.FromContext(r.Context())
		annotationID := chi.URLParam(r, "annotationID")
		var a models.Annotation
		if err := db.First(&a, "id = ?", annotationID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				respondErr(w, apperr.New(apperr.NotFound, "annotation not found"))
				return
			}
			respondErr(w, err)
			return
		}
		if a.UserID != u.ID && !u.Role.IsSuperuser {
			respondErr(w, apperr.New(apperr.Forbidden, "not allowed to delete this annotation"))
			return
		}
		if err := db.Delete(&a).Error; err != nil {
			respondErr(w, err)
			return
		}
		respondJSON(w, map[string]any{"deleted": true})
	}
}
