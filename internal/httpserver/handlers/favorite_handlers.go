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

func ListFavorites(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u := auth.FromContext(r.Context())
		var favorites []models.Favorite
		if err := db.Where("user_id = ?", u.ID).Order("created_at desc").Find(&favorites).Error; err != nil {
			respondErr(w, err)
			return
		}
		respondJSON(w, favorites)
	}
}

func AddFavorite(db *gorm.DB, repo *documents.Repository, lg *zap.SugaredLogger) http.HandlerFunc {
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
		var count int64
		db.Model(&models.Favorite{}).Where("user_id = ? AND document_id = ?", u.ID, doc.ID).Count(&count)
		if count > 0 {
			respondErr(w, apperr.New(apperr.Conflict, "document already favorited"))
			return
		}
		fav := models.Favorite{UserID: u.ID, DocumentID: doc.ID}
		if err := db.Create(&fav).Error; err != nil {
			respondErr(w, apperr.Wrap(apperr.Conflict, "document already favorited", err))
			return
		}
		respondStatusJSON(w, http.StatusCreated, fav)
	}
}

func RemoveFavorite(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u := auth.FromContext(r.Context())
		docID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			respondErr(w, apperr.New(apperr.Validation, "invalid document id"))
			return
		}
		res := db.Where("user_id = ? AND document_id = ?", u.ID, docID).Delete(&models.Favorite{})
		if res.Error != nil {
			respondErr(w, res.Error)
			return
		}
		if res.RowsAffected == 0 {
			respondErr(w, apperr.New(apperr.NotFound, "favorite not found"))
			return
		}
		respondJSON(w, map[string]any{"deleted": true})
	}
}
