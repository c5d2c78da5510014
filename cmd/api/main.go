package main

import (
	"log"
	"net/http"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"docvault/internal/audit"
	"docvault/internal/auth"
	"docvault/internal/config"
	"docvault/internal/documents"
	"docvault/internal/httpserver"
	"docvault/internal/logger"
	"docvault/internal/models"
	"docvault/internal/quota"
	"docvault/internal/storage"
)

func main() {
	_ = godotenv.Load()
	lg := logger.New()
	defer lg.Sync()
	cfg, err := config.FromEnv()
	if err != nil {
		lg.Fatalw("config invalid", "error", err)
	}
	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
	if err != nil {
		lg.Fatalw("db connect failed", "error", err)
	}
	if err := db.AutoMigrate(
		&models.Role{}, &models.Permission{}, &models.User{}, &models.Category{},
		&models.Document{}, &models.DocumentVersion{}, &models.AccessLog{},
		&models.SystemLog{}, &models.Favorite{}, &models.Annotation{},
	); err != nil {
		lg.Fatalw("automigrate failed", "error", err)
	}
	seedDefaults(db, lg)

	store, err := storage.New(cfg, lg)
	if err != nil {
		lg.Fatalw("storage init failed", "error", err)
	}
	recorder := audit.NewRecorder(db, lg)
	guard := quota.NewGuard(db, cfg.DailyUploadLimit, lg)
	repo := documents.NewRepository(db, store, guard, recorder, lg)

	router := httpserver.NewRouter(httpserver.Deps{
		DB:       db,
		Config:   cfg,
		Store:    store,
		Repo:     repo,
		Quota:    guard,
		Recorder: recorder,
	}, lg)
	lg.Infow("listening", "port", cfg.HTTPPort, "storage_root", cfg.StorageRoot)
	if err := http.ListenAndServe(":"+cfg.HTTPPort, router); err != nil {
		log.Fatal(err)
	}
}

// seedDefaults provisions the built-in roles, their permission rows and the
// initial admin account on first boot.
func seedDefaults(db *gorm.DB, lg *zap.SugaredLogger) {
	adminRole := models.Role{Name: "admin", Description: "full access", IsSuperuser: true}
	if err := db.Where("name = ?", adminRole.Name).FirstOrCreate(&adminRole).Error; err != nil {
		lg.Errorw("seed admin role failed", "error", err)
		return
	}
	userRole := models.Role{Name: "user", Description: "regular user"}
	if err := db.Where("name = ?", userRole.Name).FirstOrCreate(&userRole).Error; err != nil {
		lg.Errorw("seed user role failed", "error", err)
		return
	}
	for _, pt := range []string{models.PermView, models.PermUpload, models.PermEdit} {
		perm := models.Permission{RoleID: userRole.ID, PermissionType: pt, IsEnabled: true}
		_ = db.Where("role_id = ? AND permission_type = ?", userRole.ID, pt).FirstOrCreate(&perm).Error
	}

	var count int64
	db.Model(&models.User{}).Where("username = ?", "admin").Count(&count)
	if count > 0 {
		return
	}
	hash, _ := auth.HashPassword("admin123")
	u := models.User{
		Username:     "admin",
		Email:        "admin@docvault.local",
		PasswordHash: hash,
		RoleID:       adminRole.ID,
		Status:       true,
	}
	if err := db.Create(&u).Error; err != nil {
		lg.Errorw("seed default admin failed", "error", err)
		return
	}
	lg.Infow("seeded default admin", "username", "admin")
}
