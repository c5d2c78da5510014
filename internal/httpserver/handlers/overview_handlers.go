package handlers

import (
	"net/http"
	"strconv"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"docvault/internal/auth"
	"docvault/internal/models"
)

// visibleDocuments scopes a document query to what u may see: everything for
// superusers, own plus public documents for everyone else.
func visibleDocuments(db *gorm.DB, u *models.User) *gorm.DB {
	q := db.Model(&models.Document{})
	if !u.Role.IsSuperuser {
		q = q.Where("creator_id = ? OR is_private = ?", u.ID, false)
	}
	return q
}

// Statistics returns dashboard counts. The user total is reported to
// superusers only.
func Statistics(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u := auth.FromContext(r.Context())
		var totalDocuments, totalCategories int64
		if err := visibleDocuments(db, u).Count(&totalDocuments).Error; err != nil {
			respondErr(w, err)
			return
		}
		if err := db.Model(&models.Category{}).Count(&totalCategories).Error; err != nil {
			respondErr(w, err)
			return
		}
		var totalUsers *int64
		if u.Role.IsSuperuser {
			var n int64
			if err := db.Model(&models.User{}).Count(&n).Error; err != nil {
				respondErr(w, err)
				return
			}
			totalUsers = &n
		}
		respondJSON(w, map[string]any{
			"total_documents":  totalDocuments,
			"total_categories": totalCategories,
			"total_users":      totalUsers,
		})
	}
}

// RecentDocuments returns the newest documents visible to the caller,
// summarized with category and creator names for the dashboard.
func RecentDocuments(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u := auth.FromContext(r.Context())
		limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
		if err != nil || limit < 1 || limit > 50 {
			limit = 5
		}
		var docs []models.Document
		if err := visibleDocuments(db, u).
			Order("created_at desc").Limit(limit).Find(&docs).Error; err != nil {
			respondErr(w, err)
			return
		}

		categoryIDs := make([]int, 0, len(docs))
		creatorIDs := make([]string, 0, len(docs))
		for _, d := range docs {
			categoryIDs = append(categoryIDs, d.CategoryID)
			creatorIDs = append(creatorIDs, d.CreatorID)
		}
		categoryNames := map[int]string{}
		var categories []models.Category
		_ = db.Find(&categories, "id IN ?", categoryIDs).Error
		for _, c := range categories {
			categoryNames[c.ID] = c.Name
		}
		creatorNames := map[string]string{}
		var creators []models.User
		_ = db.Find(&creators, "id IN ?", creatorIDs).Error
		for _, c := range creators {
			creatorNames[c.ID] = c.Username
		}

		summaries := make([]map[string]any, 0, len(docs))
		for _, d := range docs {
			summaries = append(summaries, map[string]any{
				"id":         d.ID,
				"title":      d.Title,
				"category":   categoryNames[d.CategoryID],
				"created_at": d.CreatedAt,
				"username":   creatorNames[d.CreatorID],
				"file_type":  d.FileType,
			})
		}
		respondJSON(w, map[string]any{"documents": summaries})
	}
}
