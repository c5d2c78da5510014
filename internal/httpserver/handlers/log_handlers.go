package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"docvault/internal/access"
	"docvault/internal/apperr"
	"docvault/internal/auth"
	"docvault/internal/documents"
	"docvault/internal/models"
)

// ListSystemLogs returns recent privileged-operation records, optionally
// filtered by operation type. Admin-gated in the router.
func ListSystemLogs(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := db.Model(&models.SystemLog{}).Order("created_at desc").Limit(200)
		if t := r.URL.Query().Get("operation_type"); t != "" {
			q = q.Where("operation_type = ?", t)
		}
		var logs []models.SystemLog
		_ = q.Find(&logs).Error
		respondJSON(w, logs)
	}
}

// ListDocumentAccessLogs returns the access trail for one document, visible
// to anyone who can modify it (creator or admin).
func ListDocumentAccessLogs(db *gorm.DB, repo *documents.Repository, lg *zap.SugaredLogger) http.HandlerFunc {
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
		if !access.CanModifyDocument(u, doc) {
			respondErr(w, apperr.New(apperr.Forbidden, "not allowed to view this document's access trail"))
			return
		}
		var logs []models.AccessLog
		_ = db.Where("document_id = ?", doc.ID).Order("created_at desc").Limit(500).Find(&logs).Error
		respondJSON(w, logs)
	}
}
