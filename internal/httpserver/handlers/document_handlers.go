package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"docvault/internal/access"
	"docvault/internal/apperr"
	"docvault/internal/audit"
	"docvault/internal/auth"
	"docvault/internal/documents"
	"docvault/internal/models"
	"docvault/internal/quota"
	"docvault/internal/storage"
)

func documentID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

func ListDocuments(repo *documents.Repository, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u := auth.FromContext(r.Context())
		q := r.URL.Query()
		p := documents.ListParams{
			Keyword:  q.Get("keyword"),
			FileType: q.Get("file_type"),
			Mine:     q.Get("mine") == "1" || q.Get("mine") == "true",
		}
		p.Page, _ = strconv.Atoi(q.Get("page"))
		p.PerPage, _ = strconv.Atoi(q.Get("per_page"))
		if s := q.Get("category_id"); s != "" {
			if id, err := strconv.Atoi(s); err == nil {
				p.CategoryID = &id
			}
		}
		docs, total, err := repo.List(u, p)
		if err != nil {
			respondErr(w, err)
			return
		}
		respondJSON(w, map[string]any{"documents": docs, "total": total})
	}
}

func CreateDocument(repo *documents.Repository, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u := auth.FromContext(r.Context())
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			respondErr(w, apperr.Wrap(apperr.Validation, "multipart form expected", err))
			return
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			respondErr(w, apperr.New(apperr.Validation, "file is required"))
			return
		}
		defer file.Close()
		content, err := io.ReadAll(file)
		if err != nil {
			respondErr(w, apperr.Wrap(apperr.Validation, "file read failed", err))
			return
		}
		categoryID, err := strconv.Atoi(r.FormValue("category_id"))
		if err != nil {
			respondErr(w, apperr.New(apperr.Validation, "category_id is required"))
			return
		}
		doc, err := repo.Create(u, documents.CreateParams{
			Title:       r.FormValue("title"),
			Description: r.FormValue("description"),
			CategoryID:  categoryID,
			IsPrivate:   strings.EqualFold(r.FormValue("is_private"), "true"),
			FileName:    header.Filename,
			Content:     content,
			IP:          r.RemoteAddr,
			UserAgent:   r.UserAgent(),
		})
		if err != nil {
			respondErr(w, err)
			return
		}
		respondStatusJSON(w, http.StatusCreated, doc)
	}
}

func GetDocument(repo *documents.Repository, recorder *audit.Recorder, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u := auth.FromContext(r.Context())
		id, err := documentID(r)
		if err != nil {
			respondErr(w, apperr.New(apperr.Validation, "invalid document id"))
			return
		}
		doc, err := repo.Get(id)
		if err != nil {
			respondErr(w, err)
			return
		}
		if !access.CanAccessDocument(u, doc) {
			respondErr(w, apperr.New(apperr.Forbidden, "not allowed to access this document"))
			return
		}
		recorder.RecordAccess(u.ID, doc.ID, models.ActionView, r.RemoteAddr, r.UserAgent())
		respondJSON(w, doc)
	}
}

type updateDocumentReq struct {
	Title              *string `json:"title"`
	Description        *string `json:"description"`
	CategoryID         *int    `json:"category_id"`
	IsPrivate          *bool   `json:"is_private"`
	Content            *string `json:"content"`
	VersionDescription string  `json:"version_description"`
}

func UpdateDocument(repo *documents.Repository, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u := auth.FromContext(r.Context())
		id, err := documentID(r)
		if err != nil {
			respondErr(w, apperr.New(apperr.Validation, "invalid document id"))
			return
		}
		p := documents.UpdateParams{IP: r.RemoteAddr, UserAgent: r.UserAgent()}
		if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
			if err := r.ParseMultipartForm(32 << 20); err != nil {
				respondErr(w, apperr.Wrap(apperr.Validation, "bad multipart form", err))
				return
			}
			if file, header, err := r.FormFile("file"); err == nil {
				content, rerr := io.ReadAll(file)
				file.Close()
				if rerr != nil {
					respondErr(w, apperr.Wrap(apperr.Validation, "file read failed", rerr))
					return
				}
				p.NewFile = content
				p.NewFileName = header.Filename
			}
			if v, ok := formValue(r, "title"); ok {
				p.Title = &v
			}
			if v, ok := formValue(r, "description"); ok {
				p.Description = &v
			}
			if v, ok := formValue(r, "category_id"); ok {
				if id, err := strconv.Atoi(v); err == nil {
					p.CategoryID = &id
				}
			}
			if v, ok := formValue(r, "is_private"); ok {
				b := strings.EqualFold(v, "true")
				p.IsPrivate = &b
			}
			if v, ok := formValue(r, "content"); ok {
				p.Content = &v
			}
			p.VersionDescription = r.FormValue("version_description")
		} else {
			var req updateDocumentReq
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				respondErr(w, apperr.Wrap(apperr.Validation, "bad request body", err))
				return
			}
			p.Title = req.Title
			p.Description = req.Description
			p.CategoryID = req.CategoryID
			p.IsPrivate = req.IsPrivate
			p.Content = req.Content
			p.VersionDescription = req.VersionDescription
		}
		doc, err := repo.Update(u, id, p)
		if err != nil {
			respondErr(w, err)
			return
		}
		respondJSON(w, doc)
	}
}

func formValue(r *http.Request, key string) (string, bool) {
	vs, ok := r.MultipartForm.Value[key]
	if !ok || len(vs) == 0 {
		return "", false
	}
	return vs[0], true
}

func DeleteDocument(repo *documents.Repository, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u := auth.FromContext(r.Context())
		id, err := documentID(r)
		if err != nil {
			respondErr(w, apperr.New(apperr.Validation, "invalid document id"))
			return
		}
		if err := repo.Delete(u, id); err != nil {
			respondErr(w, err)
			return
		}
		respondJSON(w, map[string]any{"deleted": true})
	}
}

func DownloadDocument(repo *documents.Repository, store *storage.Store,
	recorder *audit.Recorder, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u := auth.FromContext(r.Context())
		id, err := documentID(r)
		if err != nil {
			respondErr(w, apperr.New(apperr.Validation, "invalid document id"))
			return
		}
		doc, err := repo.Get(id)
		if err != nil {
			respondErr(w, err)
			return
		}
		if !access.CanAccessDocument(u, doc) {
			respondErr(w, apperr.New(apperr.Forbidden, "not allowed to access this document"))
			return
		}
		recorder.RecordAccess(u.ID, doc.ID, models.ActionDownload, r.RemoteAddr, r.UserAgent())
		w.Header().Set("Content-Disposition", `attachment; filename="`+doc.FileName+`"`)
		http.ServeFile(w, r, store.AbsPath(doc.FilePath))
	}
}

// PreviewDocument returns flow content inline and streams layout files.
func PreviewDocument(repo *documents.Repository, store *storage.Store,
	recorder *audit.Recorder, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u := auth.FromContext(r.Context())
		id, err := documentID(r)
		if err != nil {
			respondErr(w, apperr.New(apperr.Validation, "invalid document id"))
			return
		}
		doc, err := repo.Get(id)
		if err != nil {
			respondErr(w, err)
			return
		}
		if !access.CanAccessDocument(u, doc) {
			respondErr(w, apperr.New(apperr.Forbidden, "not allowed to access this document"))
			return
		}
		recorder.RecordAccess(u.ID, doc.ID, models.ActionPreview, r.RemoteAddr, r.UserAgent())
		repo.IncrementViews(doc.ID)
		if doc.FileType == models.FileTypeFlow {
			respondJSON(w, map[string]any{
				"content": doc.Content, "file_name": doc.FileName, "version": doc.Version,
			})
			return
		}
		http.ServeFile(w, r, store.AbsPath(doc.FilePath))
	}
}

func ListVersions(repo *documents.Repository, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u := auth.FromContext(r.Context())
		id, err := documentID(r)
		if err != nil {
			respondErr(w, apperr.New(apperr.Validation, "invalid document id"))
			return
		}
		versions, err := repo.ListVersions(u, id)
		if err != nil {
			respondErr(w, err)
			return
		}
		summaries := make([]map[string]any, 0, len(versions))
		for _, v := range versions {
			summaries = append(summaries, map[string]any{
				"id": v.ID, "version_num": v.VersionNum,
				"created_by": v.CreatedBy, "created_at": v.CreatedAt,
				"description": v.Description,
			})
		}
		respondJSON(w, map[string]any{"versions": summaries})
	}
}

func GetVersion(repo *documents.Repository, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u := auth.FromContext(r.Context())
		id, err := documentID(r)
		if err != nil {
			respondErr(w, apperr.New(apperr.Validation, "invalid document id"))
			return
		}
		versionID, err := strconv.ParseInt(chi.URLParam(r, "versionID"), 10, 64)
		if err != nil {
			respondErr(w, apperr.New(apperr.Validation, "invalid version id"))
			return
		}
		version, err := repo.GetVersion(u, id, versionID)
		if err != nil {
			respondErr(w, err)
			return
		}
		respondJSON(w, version)
	}
}

func RemainingQuota(guard *quota.Guard) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u := auth.FromContext(r.Context())
		respondJSON(w, map[string]any{"remaining": guard.Remaining(u.ID)})
	}
}
