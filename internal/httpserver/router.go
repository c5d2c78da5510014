package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"docvault/internal/audit"
	"docvault/internal/auth"
	"docvault/internal/config"
	"docvault/internal/documents"
	"docvault/internal/httpserver/handlers"
	"docvault/internal/models"
	"docvault/internal/quota"
	"docvault/internal/storage"
)

type Deps struct {
	DB       *gorm.DB
	Config   config.Config
	Store    *storage.Store
	Repo     *documents.Repository
	Quota    *quota.Guard
	Recorder *audit.Recorder
}

func NewRouter(d Deps, lg *zap.SugaredLogger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer, middleware.Logger)
	r.Post("/v1/auth/login", handlers.Login(d.DB, d.Config, lg))
	r.Group(func(protected chi.Router) {
		protected.Use(auth.JWTAuth(d.DB, []byte(d.Config.JWTSecret)))
		protected.Get("/v1/me", handlers.Me(d.DB, lg))
		protected.Post("/v1/auth/logout", handlers.Logout(lg))
		protected.Post("/v1/auth/password", handlers.ChangePassword(d.DB, lg))
		protected.Get("/v1/quota", handlers.RemainingQuota(d.Quota))
		protected.Get("/v1/overview/statistics", handlers.Statistics(d.DB, lg))
		protected.Get("/v1/overview/recent-documents", handlers.RecentDocuments(d.DB, lg))

		protected.Group(func(viewer chi.Router) {
			viewer.Use(auth.RequirePermission(models.PermView))
			viewer.Get("/v1/documents", handlers.ListDocuments(d.Repo, lg))
			viewer.Get("/v1/documents/{id}", handlers.GetDocument(d.Repo, d.Recorder, lg))
			viewer.Get("/v1/documents/{id}/download", handlers.DownloadDocument(d.Repo, d.Store, d.Recorder, lg))
			viewer.Get("/v1/documents/{id}/preview", handlers.PreviewDocument(d.Repo, d.Store, d.Recorder, lg))
			viewer.Get("/v1/documents/{id}/versions", handlers.ListVersions(d.Repo, lg))
			viewer.Get("/v1/documents/{id}/versions/{versionID}", handlers.GetVersion(d.Repo, lg))
			viewer.Get("/v1/documents/{id}/annotations", handlers.ListAnnotations(d.DB, d.Repo, lg))
			viewer.Post("/v1/documents/{id}/annotations", handlers.CreateAnnotation(d.DB, d.Repo, d.Recorder, lg))
			viewer.Patch("/v1/annotations/{annotationID}", handlers.UpdateAnnotation(d.DB, lg))
			viewer.Delete("/v1/annotations/{annotationID}", handlers.DeleteAnnotation(d.DB, lg))
			viewer.Get("/v1/favorites", handlers.ListFavorites(d.DB, lg))
			viewer.Post("/v1/documents/{id}/favorite", handlers.AddFavorite(d.DB, d.Repo, lg))
			viewer.Delete("/v1/documents/{id}/favorite", handlers.RemoveFavorite(d.DB, lg))
			viewer.Get("/v1/categories", handlers.ListCategories(d.DB, lg))
		})

		// Create authorizes upload inside the repository; update routes gate
		// on the edit permission, with ownership checked against the loaded
		// document. Delete checks ownership only, matching creators deleting
		// their own documents without edit rights.
		protected.Post("/v1/documents", handlers.CreateDocument(d.Repo, lg))
		protected.Group(func(editor chi.Router) {
			editor.Use(auth.RequirePermission(models.PermEdit))
			editor.Put("/v1/documents/{id}", handlers.UpdateDocument(d.Repo, lg))
		})
		protected.Delete("/v1/documents/{id}", handlers.DeleteDocument(d.Repo, lg))
		protected.Get("/v1/documents/{id}/access-logs", handlers.ListDocumentAccessLogs(d.DB, d.Repo, lg))

		protected.Group(func(catAdmin chi.Router) {
			catAdmin.Use(auth.RequirePermission(models.PermCategoryManage))
			catAdmin.Post("/v1/categories", handlers.CreateCategory(d.DB, d.Recorder, lg))
			catAdmin.Patch("/v1/categories/{id}", handlers.UpdateCategory(d.DB, d.Recorder, lg))
			catAdmin.Delete("/v1/categories/{id}", handlers.DeleteCategory(d.DB, d.Recorder, lg))
		})

		protected.Group(func(userAdmin chi.Router) {
			userAdmin.Use(auth.RequirePermission(models.PermUserManage))
			userAdmin.Get("/v1/admin/users", handlers.ListUsers(d.DB, lg))
			userAdmin.Post("/v1/admin/users", handlers.CreateUser(d.DB, d.Recorder, lg))
			userAdmin.Patch("/v1/admin/users/{id}", handlers.UpdateUser(d.DB, d.Recorder, lg))
			userAdmin.Delete("/v1/admin/users/{id}", handlers.DeleteUser(d.DB, d.Recorder, lg))
		})

		protected.Group(func(admin chi.Router) {
			admin.Use(auth.RequirePermission(models.PermAdmin))
			admin.Get("/v1/admin/roles", handlers.ListRoles(d.DB, lg))
			admin.Put("/v1/admin/roles/{id}/permissions", handlers.SetPermission(d.DB, d.Recorder, lg))
			admin.Get("/v1/admin/system-logs", handlers.ListSystemLogs(d.DB, lg))
		})
	})
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	return r
}
