package documents

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"docvault/internal/apperr"
	"docvault/internal/audit"
	"docvault/internal/config"
	"docvault/internal/models"
	"docvault/internal/quota"
	"docvault/internal/storage"
)

func newTestRepo(t *testing.T, uploadCeiling int) (*Repository, *gorm.DB, *storage.Store) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Category{}, &models.Document{}, &models.DocumentVersion{},
		&models.AccessLog{}, &models.SystemLog{}, &models.Favorite{}, &models.Annotation{},
	))
	require.NoError(t, db.Create(&models.Category{Name: "general"}).Error)

	lg := zap.NewNop().Sugar()
	store, err := storage.New(config.Config{StorageRoot: t.TempDir(), MaxUploadBytes: 1 << 20}, lg)
	require.NoError(t, err)
	repo := NewRepository(db, store, quota.NewGuard(db, uploadCeiling, lg), audit.NewRecorder(db, lg), lg)
	return repo, db, store
}

func uploader(id string) *models.User {
	return &models.User{
		ID:     id,
		Status: true,
		Role: models.Role{ID: 2, Name: "user", Permissions: []models.Permission{
			{RoleID: 2, PermissionType: models.PermView, IsEnabled: true},
			{RoleID: 2, PermissionType: models.PermUpload, IsEnabled: true},
			{RoleID: 2, PermissionType: models.PermEdit, IsEnabled: true},
		}},
	}
}

func viewer(id string) *models.User {
	return &models.User{
		ID:     id,
		Status: true,
		Role: models.Role{ID: 3, Name: "viewer", Permissions: []models.Permission{
			{RoleID: 3, PermissionType: models.PermView, IsEnabled: true},
		}},
	}
}

func admin() *models.User {
	return &models.User{
		ID:     "3f1c9b2e-0000-4000-8000-0000000000ad",
		Status: true,
		Role:   models.Role{ID: 1, Name: "admin", IsSuperuser: true},
	}
}

var (
	alice = uploader("3f1c9b2e-0000-4000-8000-00000000000a")
	bob   = viewer("3f1c9b2e-0000-4000-8000-00000000000b")
)

func TestCreateFlowDocument(t *testing.T) {
	repo, db, store := newTestRepo(t, 20)
	content := []byte("0123456789")

	doc, err := repo.Create(alice, CreateParams{
		Title:      "meeting notes",
		CategoryID: 1,
		FileName:   "notes.txt",
		Content:    content,
		IP:         "10.0.0.1",
		UserAgent:  "curl/8.0",
	})
	require.NoError(t, err)

	assert.Equal(t, models.FileTypeFlow, doc.FileType)
	assert.Equal(t, 1, doc.Version)
	assert.Equal(t, int64(10), doc.FileSize, "size comes from disk, not the request")
	assert.Equal(t, "0123456789", doc.Content)
	assert.Equal(t, alice.ID, doc.CreatorID)
	assert.True(t, strings.HasPrefix(doc.FilePath, "flow_files"))
	assert.Equal(t, int64(10), store.Size(doc.FilePath))

	var entry models.AccessLog
	require.NoError(t, db.First(&entry, "document_id = ?", doc.ID).Error)
	assert.Equal(t, models.ActionUpload, entry.ActionType)
	assert.Equal(t, alice.ID, entry.UserID)
}

func TestCreateLayoutDocument(t *testing.T) {
	repo, _, _ := newTestRepo(t, 20)

	doc, err := repo.Create(alice, CreateParams{
		CategoryID: 1,
		FileName:   "floorplan.pdf",
		Content:    []byte("%PDF-1.4"),
	})
	require.NoError(t, err)

	assert.Equal(t, models.FileTypeLayout, doc.FileType)
	assert.Empty(t, doc.Content, "layout bytes stay on disk only")
	assert.Equal(t, "floorplan.pdf", doc.Title, "title defaults to the declared filename")
	assert.True(t, strings.HasPrefix(doc.FilePath, "layout_files"))
}

func TestCreateRequiresUploadPermission(t *testing.T) {
	repo, _, _ := newTestRepo(t, 20)
	_, err := repo.Create(bob, CreateParams{CategoryID: 1, FileName: "notes.txt", Content: []byte("x")})
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.Forbidden))
}

func TestCreateRejectsUnknownCategory(t *testing.T) {
	repo, _, _ := newTestRepo(t, 20)
	_, err := repo.Create(alice, CreateParams{CategoryID: 99, FileName: "notes.txt", Content: []byte("x")})
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.Validation))
}

func TestCreateEnforcesDailyCeiling(t *testing.T) {
	repo, _, _ := newTestRepo(t, 2)
	for i := 0; i < 2; i++ {
		_, err := repo.Create(alice, CreateParams{CategoryID: 1, FileName: "notes.txt", Content: []byte("x")})
		require.NoError(t, err)
	}
	_, err := repo.Create(alice, CreateParams{CategoryID: 1, FileName: "notes.txt", Content: []byte("x")})
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.QuotaExceeded))

	// The ceiling is per user.
	_, err = repo.Create(admin(), CreateParams{CategoryID: 1, FileName: "notes.txt", Content: []byte("x")})
	assert.NoError(t, err)
}

func TestUpdateSnapshotsPreviousContent(t *testing.T) {
	repo, db, _ := newTestRepo(t, 20)
	doc, err := repo.Create(alice, CreateParams{CategoryID: 1, FileName: "notes.txt", Content: []byte("0123456789")})
	require.NoError(t, err)

	newContent := "01234567890123456789"
	updated, err := repo.Update(alice, doc.ID, UpdateParams{
		Content:            &newContent,
		VersionDescription: "expanded",
	})
	require.NoError(t, err)

	assert.Equal(t, 2, updated.Version)
	assert.Equal(t, newContent, updated.Content)

	var snapshot models.DocumentVersion
	require.NoError(t, db.First(&snapshot, "document_id = ?", doc.ID).Error)
	assert.Equal(t, 1, snapshot.VersionNum)
	assert.Equal(t, "0123456789", snapshot.Content, "snapshot holds the content the edit replaced")
	assert.Equal(t, alice.ID, snapshot.CreatedBy)
	assert.Equal(t, "expanded", snapshot.Description)
}

func TestEveryEditLeavesAVersion(t *testing.T) {
	repo, _, _ := newTestRepo(t, 20)
	doc, err := repo.Create(alice, CreateParams{CategoryID: 1, FileName: "notes.txt", Content: []byte("v1")})
	require.NoError(t, err)

	for _, content := range []string{"v2", "v3", "v4"} {
		c := content
		_, err := repo.Update(alice, doc.ID, UpdateParams{Content: &c})
		require.NoError(t, err)
	}

	versions, err := repo.ListVersions(alice, doc.ID)
	require.NoError(t, err)
	require.Len(t, versions, 3)
	// Newest first; snapshot N holds the content edit N replaced.
	assert.Equal(t, 3, versions[0].VersionNum)
	assert.Equal(t, "v3", versions[0].Content)
	assert.Equal(t, 1, versions[2].VersionNum)
	assert.Equal(t, "v1", versions[2].Content)

	live, err := repo.Get(doc.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, live.Version)
	assert.Equal(t, "v4", live.Content)
}

func TestUpdateScalarOnlyKeepsVersion(t *testing.T) {
	repo, db, _ := newTestRepo(t, 20)
	doc, err := repo.Create(alice, CreateParams{CategoryID: 1, FileName: "notes.txt", Content: []byte("body")})
	require.NoError(t, err)

	title := "renamed"
	private := true
	updated, err := repo.Update(alice, doc.ID, UpdateParams{Title: &title, IsPrivate: &private})
	require.NoError(t, err)

	assert.Equal(t, "renamed", updated.Title)
	assert.True(t, updated.IsPrivate)
	assert.Equal(t, 1, updated.Version, "metadata edits do not version")

	var count int64
	db.Model(&models.DocumentVersion{}).Where("document_id = ?", doc.ID).Count(&count)
	assert.Zero(t, count)
}

func TestUpdateContentIgnoredForLayout(t *testing.T) {
	repo, db, _ := newTestRepo(t, 20)
	doc, err := repo.Create(alice, CreateParams{CategoryID: 1, FileName: "plan.pdf", Content: []byte("%PDF-1.4")})
	require.NoError(t, err)

	content := "plain text"
	updated, err := repo.Update(alice, doc.ID, UpdateParams{Content: &content})
	require.NoError(t, err)

	assert.Equal(t, 1, updated.Version)
	assert.Empty(t, updated.Content)
	var count int64
	db.Model(&models.DocumentVersion{}).Where("document_id = ?", doc.ID).Count(&count)
	assert.Zero(t, count)
}

func TestUpdateReplacesStoredFile(t *testing.T) {
	repo, _, store := newTestRepo(t, 20)
	doc, err := repo.Create(alice, CreateParams{CategoryID: 1, FileName: "notes.txt", Content: []byte("old")})
	require.NoError(t, err)
	oldPath := doc.FilePath

	updated, err := repo.Update(alice, doc.ID, UpdateParams{
		NewFile:     []byte("%PDF-1.4 replacement"),
		NewFileName: "scan.pdf",
	})
	require.NoError(t, err)

	assert.NotEqual(t, oldPath, updated.FilePath)
	assert.Equal(t, models.FileTypeLayout, updated.FileType)
	assert.Equal(t, int64(20), updated.FileSize)
	_, err = os.Stat(store.AbsPath(oldPath))
	assert.True(t, os.IsNotExist(err), "previous file is removed after the new one is written")
	assert.Equal(t, int64(20), store.Size(updated.FilePath))
}

func TestUpdateOwnershipEnforced(t *testing.T) {
	repo, _, _ := newTestRepo(t, 20)
	doc, err := repo.Create(alice, CreateParams{
		CategoryID: 1, IsPrivate: true, FileName: "notes.txt", Content: []byte("secret"),
	})
	require.NoError(t, err)

	title := "hijacked"
	_, err = repo.Update(bob, doc.ID, UpdateParams{Title: &title})
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.Forbidden))

	// Superusers may edit anyone's document.
	_, err = repo.Update(admin(), doc.ID, UpdateParams{Title: &title})
	assert.NoError(t, err)
}

func TestDeleteCascades(t *testing.T) {
	repo, db, store := newTestRepo(t, 20)
	doc, err := repo.Create(alice, CreateParams{CategoryID: 1, FileName: "notes.txt", Content: []byte("v1")})
	require.NoError(t, err)

	content := "v2"
	_, err = repo.Update(alice, doc.ID, UpdateParams{Content: &content})
	require.NoError(t, err)
	require.NoError(t, db.Create(&models.Favorite{UserID: bob.ID, DocumentID: doc.ID}).Error)
	require.NoError(t, db.Create(&models.Annotation{
		DocumentID: doc.ID, UserID: alice.ID, Type: models.AnnotationText, PageNumber: 1,
	}).Error)
	filePath := mustGet(t, repo, doc.ID).FilePath

	require.NoError(t, repo.Delete(admin(), doc.ID))

	for _, m := range []any{
		&models.DocumentVersion{}, &models.AccessLog{}, &models.Favorite{}, &models.Annotation{},
	} {
		var count int64
		db.Model(m).Where("document_id = ?", doc.ID).Count(&count)
		assert.Zero(t, count, "%T rows must be gone", m)
	}
	_, err = repo.Get(doc.ID)
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.NotFound))
	_, err = os.Stat(store.AbsPath(filePath))
	assert.True(t, os.IsNotExist(err), "stored file is removed after the cascade commits")
}

func TestDeleteOwnershipEnforced(t *testing.T) {
	repo, _, _ := newTestRepo(t, 20)
	doc, err := repo.Create(alice, CreateParams{CategoryID: 1, FileName: "notes.txt", Content: []byte("x")})
	require.NoError(t, err)

	err = repo.Delete(bob, doc.ID)
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.Forbidden))

	assert.NoError(t, repo.Delete(alice, doc.ID))
}

func TestListVisibility(t *testing.T) {
	repo, _, _ := newTestRepo(t, 20)
	_, err := repo.Create(alice, CreateParams{
		Title: "public notes", CategoryID: 1, FileName: "pub.txt", Content: []byte("x"),
	})
	require.NoError(t, err)
	_, err = repo.Create(alice, CreateParams{
		Title: "private notes", CategoryID: 1, IsPrivate: true, FileName: "priv.txt", Content: []byte("x"),
	})
	require.NoError(t, err)

	docs, total, err := repo.List(bob, ListParams{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, docs, 1)
	assert.Equal(t, "public notes", docs[0].Title)

	_, total, err = repo.List(alice, ListParams{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total, "owners see their private documents")

	_, total, err = repo.List(admin(), ListParams{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total, "superusers see everything")

	_, total, err = repo.List(bob, ListParams{Mine: true})
	require.NoError(t, err)
	assert.Zero(t, total)

	_, total, err = repo.List(alice, ListParams{Keyword: "private"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
}

func TestListVersionsOnlyForFlow(t *testing.T) {
	repo, _, _ := newTestRepo(t, 20)
	doc, err := repo.Create(alice, CreateParams{CategoryID: 1, FileName: "plan.pdf", Content: []byte("%PDF-1.4")})
	require.NoError(t, err)

	_, err = repo.ListVersions(alice, doc.ID)
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.Validation))
}

func TestGetVersion(t *testing.T) {
	repo, _, _ := newTestRepo(t, 20)
	doc, err := repo.Create(alice, CreateParams{CategoryID: 1, FileName: "notes.txt", Content: []byte("v1")})
	require.NoError(t, err)
	content := "v2"
	_, err = repo.Update(alice, doc.ID, UpdateParams{Content: &content})
	require.NoError(t, err)

	versions, err := repo.ListVersions(alice, doc.ID)
	require.NoError(t, err)
	require.Len(t, versions, 1)

	got, err := repo.GetVersion(alice, doc.ID, versions[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "v1", got.Content)

	// Private document version history stays with the owner.
	private := true
	_, err = repo.Update(alice, doc.ID, UpdateParams{IsPrivate: &private})
	require.NoError(t, err)
	_, err = repo.GetVersion(bob, doc.ID, versions[0].ID)
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.Forbidden))

	_, err = repo.GetVersion(alice, doc.ID, 9999)
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.NotFound))
}

func TestIncrementViews(t *testing.T) {
	repo, _, _ := newTestRepo(t, 20)
	doc, err := repo.Create(alice, CreateParams{CategoryID: 1, FileName: "notes.txt", Content: []byte("x")})
	require.NoError(t, err)

	repo.IncrementViews(doc.ID)
	repo.IncrementViews(doc.ID)
	got := mustGet(t, repo, doc.ID)
	assert.Equal(t, int64(2), got.ViewCount)
}

func mustGet(t *testing.T, repo *Repository, id int64) *models.Document {
	t.Helper()
	doc, err := repo.Get(id)
	require.NoError(t, err)
	return doc
}
