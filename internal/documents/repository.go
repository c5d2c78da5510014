// Package documents owns the document and version entity graph and
// orchestrates create, update and delete as multi-step sequences kept
// consistent with the file store and the audit trail.
package documents

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"docvault/internal/access"
	"docvault/internal/apperr"
	"docvault/internal/audit"
	"docvault/internal/models"
	"docvault/internal/quota"
	"docvault/internal/storage"
)

type Repository struct {
	db    *gorm.DB
	store *storage.Store
	quota *quota.Guard
	audit *audit.Recorder
	lg    *zap.SugaredLogger
}

func NewRepository(db *gorm.DB, store *storage.Store, guard *quota.Guard,
	recorder *audit.Recorder, lg *zap.SugaredLogger) *Repository {
	return &Repository{db: db, store: store, quota: guard, audit: recorder, lg: lg}
}

type CreateParams struct {
	Title       string
	Description string
	CategoryID  int
	IsPrivate   bool
	FileName    string
	Content     []byte
	IP          string
	UserAgent   string
}

// Create uploads a new document for user. Order matters: authorization,
// quota, classification, file persistence, then the row insert with the size
// read back from disk. A failed insert removes the file it orphaned.
func (r *Repository) Create(user *models.User, p CreateParams) (*models.Document, error) {
	if err := access.Authorize(user, models.PermUpload); err != nil {
		return nil, err
	}
	if !r.quota.CheckAndConsume(user.ID) {
		return nil, apperr.New(apperr.QuotaExceeded, "daily upload limit reached")
	}
	if p.FileName == "" {
		return nil, apperr.New(apperr.Validation, "file name required")
	}
	var category models.Category
	if err := r.db.First(&category, "id = ?", p.CategoryID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.Validation, "category does not exist")
		}
		return nil, fmt.Errorf("load category: %w", err)
	}

	fileType := storage.ClassifyFileType(p.FileName)
	relPath, storedName, err := r.store.Save(p.Content, p.FileName)
	if err != nil {
		return nil, err
	}

	title := p.Title
	if title == "" {
		title = p.FileName
	}
	doc := models.Document{
		Title:       title,
		Description: p.Description,
		CategoryID:  p.CategoryID,
		CreatorID:   user.ID,
		IsPrivate:   p.IsPrivate,
		FilePath:    relPath,
		FileName:    storedName,
		FileType:    fileType,
		FileSize:    r.store.Size(relPath),
		Version:     1,
	}
	if fileType == models.FileTypeFlow {
		doc.Content = string(p.Content)
	}
	if err := r.db.Create(&doc).Error; err != nil {
		r.store.Delete(relPath)
		return nil, fmt.Errorf("insert document: %w", err)
	}

	r.audit.RecordAccess(user.ID, doc.ID, models.ActionUpload, p.IP, p.UserAgent)
	r.lg.Infow("document created", "id", doc.ID, "creator", user.ID, "type", fileType, "size", doc.FileSize)
	return &doc, nil
}

type UpdateParams struct {
	Title              *string
	Description        *string
	CategoryID         *int
	IsPrivate          *bool
	Content            *string
	VersionDescription string
	NewFile            []byte
	NewFileName        string
	IP                 string
	UserAgent          string
}

// Update mutates a document owned by user (or any document for superusers).
// New binary content replaces the stored file before the row transaction;
// a flow content edit snapshots the current content as the next version
// inside the same transaction that overwrites it.
func (r *Repository) Update(user *models.User, documentID int64, p UpdateParams) (*models.Document, error) {
	doc, err := r.Get(documentID)
	if err != nil {
		return nil, err
	}
	if !access.CanModifyDocument(user, doc) {
		return nil, apperr.New(apperr.Forbidden, "not allowed to modify this document")
	}
	if p.CategoryID != nil {
		var category models.Category
		if err := r.db.First(&category, "id = ?", *p.CategoryID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apperr.New(apperr.Validation, "category does not exist")
			}
			return nil, fmt.Errorf("load category: %w", err)
		}
	}

	// The filesystem is not covered by the row transaction; a rollback after
	// this point leaves the new file in place, which is the accepted gap.
	if p.NewFile != nil {
		if p.NewFileName == "" {
			return nil, apperr.New(apperr.Validation, "file name required")
		}
		relPath, storedName, size, err := r.store.Replace(doc.FilePath, p.NewFile, p.NewFileName)
		if err != nil {
			return nil, err
		}
		doc.FilePath = relPath
		doc.FileName = storedName
		doc.FileType = storage.ClassifyFileType(p.NewFileName)
		doc.FileSize = size
	}

	err = r.db.Transaction(func(tx *gorm.DB) error {
		if p.Content != nil && doc.FileType == models.FileTypeFlow {
			snapshot := models.DocumentVersion{
				DocumentID:  doc.ID,
				VersionNum:  doc.Version,
				Content:     doc.Content,
				CreatedBy:   user.ID,
				CreatedAt:   doc.UpdatedAt,
				Description: p.VersionDescription,
			}
			if err := tx.Create(&snapshot).Error; err != nil {
				return fmt.Errorf("insert version snapshot: %w", err)
			}
			doc.Content = *p.Content
			doc.Version++
		}
		if p.Title != nil {
			doc.Title = *p.Title
		}
		if p.Description != nil {
			doc.Description = *p.Description
		}
		if p.CategoryID != nil {
			doc.CategoryID = *p.CategoryID
		}
		if p.IsPrivate != nil {
			doc.IsPrivate = *p.IsPrivate
		}
		doc.UpdatedAt = time.Now()
		if err := tx.Save(doc).Error; err != nil {
			return fmt.Errorf("update document: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	r.audit.RecordAccess(user.ID, doc.ID, models.ActionEdit, p.IP, p.UserAgent)
	r.lg.Infow("document updated", "id", doc.ID, "editor", user.ID, "version", doc.Version)
	return doc, nil
}

// Delete removes a document with everything it owns. Dependent rows go
// first to satisfy referential constraints, all within one transaction; the
// physical file is removed only after the transaction commits.
func (r *Repository) Delete(user *models.User, documentID int64) error {
	doc, err := r.Get(documentID)
	if err != nil {
		return err
	}
	if !access.CanModifyDocument(user, doc) {
		return apperr.New(apperr.Forbidden, "not allowed to delete this document")
	}

	err = r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("document_id = ?", doc.ID).Delete(&models.Annotation{}).Error; err != nil {
			return fmt.Errorf("delete annotations: %w", err)
		}
		if err := tx.Where("document_id = ?", doc.ID).Delete(&models.Favorite{}).Error; err != nil {
			return fmt.Errorf("delete favorites: %w", err)
		}
		if err := tx.Where("document_id = ?", doc.ID).Delete(&models.AccessLog{}).Error; err != nil {
			return fmt.Errorf("delete access logs: %w", err)
		}
		if err := tx.Where("document_id = ?", doc.ID).Delete(&models.DocumentVersion{}).Error; err != nil {
			return fmt.Errorf("delete versions: %w", err)
		}
		if err := tx.Delete(&models.Document{}, "id = ?", doc.ID).Error; err != nil {
			return fmt.Errorf("delete document: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	r.store.Delete(doc.FilePath)
	r.lg.Infow("document deleted", "id", doc.ID, "by", user.ID)
	return nil
}

// Get loads a document by id without any access decision; callers gate on
// access.CanAccessDocument.
func (r *Repository) Get(documentID int64) (*models.Document, error) {
	var doc models.Document
	if err := r.db.First(&doc, "id = ?", documentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.NotFound, "document not found")
		}
		return nil, fmt.Errorf("load document: %w", err)
	}
	return &doc, nil
}

type ListParams struct {
	Keyword    string
	CategoryID *int
	FileType   string
	Mine       bool
	Page       int
	PerPage    int
}

// List returns documents visible to user, newest first. Non-superusers see
// their own documents plus public ones.
func (r *Repository) List(user *models.User, p ListParams) ([]models.Document, int64, error) {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PerPage < 1 || p.PerPage > 100 {
		p.PerPage = 20
	}
	q := r.db.Model(&models.Document{})
	if !user.Role.IsSuperuser {
		q = q.Where("creator_id = ? OR is_private = ?", user.ID, false)
	}
	if p.Mine {
		q = q.Where("creator_id = ?", user.ID)
	}
	if p.Keyword != "" {
		like := "%" + p.Keyword + "%"
		q = q.Where("title LIKE ? OR description LIKE ?", like, like)
	}
	if p.CategoryID != nil {
		q = q.Where("category_id = ?", *p.CategoryID)
	}
	if p.FileType != "" {
		q = q.Where("file_type = ?", p.FileType)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count documents: %w", err)
	}
	var docs []models.Document
	if err := q.Order("created_at DESC").
		Offset((p.Page - 1) * p.PerPage).Limit(p.PerPage).
		Find(&docs).Error; err != nil {
		return nil, 0, fmt.Errorf("list documents: %w", err)
	}
	return docs, total, nil
}

// ListVersions returns the version history of a flow document, newest first.
func (r *Repository) ListVersions(user *models.User, documentID int64) ([]models.DocumentVersion, error) {
	doc, err := r.Get(documentID)
	if err != nil {
		return nil, err
	}
	if !access.CanAccessDocument(user, doc) {
		return nil, apperr.New(apperr.Forbidden, "not allowed to access this document")
	}
	if doc.FileType != models.FileTypeFlow {
		return nil, apperr.New(apperr.Validation, "only flow documents have version history")
	}
	var versions []models.DocumentVersion
	if err := r.db.Where("document_id = ?", documentID).
		Order("version_num DESC").Find(&versions).Error; err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	return versions, nil
}

// GetVersion returns one version snapshot of a document.
func (r *Repository) GetVersion(user *models.User, documentID, versionID int64) (*models.DocumentVersion, error) {
	doc, err := r.Get(documentID)
	if err != nil {
		return nil, err
	}
	if !access.CanAccessDocument(user, doc) {
		return nil, apperr.New(apperr.Forbidden, "not allowed to access this document")
	}
	var version models.DocumentVersion
	if err := r.db.First(&version, "id = ? AND document_id = ?", versionID, documentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.NotFound, "version not found")
		}
		return nil, fmt.Errorf("load version: %w", err)
	}
	return &version, nil
}

// IncrementViews bumps the view counter without loading the row.
func (r *Repository) IncrementViews(documentID int64) {
	if err := r.db.Model(&models.Document{}).Where("id = ?", documentID).
		Update("view_count", gorm.Expr("view_count + 1")).Error; err != nil {
		r.lg.Errorw("view counter update failed", "document_id", documentID, "error", err)
	}
}
