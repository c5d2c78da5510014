package storage

import (
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"docvault/internal/apperr"
	"docvault/internal/config"
	"docvault/internal/models"
)

var storedNamePattern = regexp.MustCompile(`^\d{8}_\d{6}_[0-9a-f]{8}(\.[a-z0-9]+)?$`)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	cfg := config.Config{StorageRoot: t.TempDir(), MaxUploadBytes: 1 << 20}
	s, err := New(cfg, zap.NewNop().Sugar())
	require.NoError(t, err)
	return s
}

func TestClassifyFileType(t *testing.T) {
	cases := map[string]string{
		"report.pdf":   models.FileTypeLayout,
		"REPORT.PDF":   models.FileTypeLayout,
		"floor.dwg":    models.FileTypeLayout,
		"slides.pptx":  models.FileTypeLayout,
		"draft.docx":   models.FileTypeLayout,
		"notes.txt":    models.FileTypeFlow,
		"readme.md":    models.FileTypeFlow,
		"data.csv":     models.FileTypeFlow,
		"no_extension": models.FileTypeFlow,
		"archive.zip":  models.FileTypeFlow,
	}
	for name, want := range cases {
		assert.Equal(t, want, ClassifyFileType(name), name)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	s := newTestStore(t)
	content := []byte("0123456789")

	relPath, storedName, err := s.Save(content, "notes.txt")
	require.NoError(t, err)

	assert.True(t, storedNamePattern.MatchString(storedName), storedName)
	assert.Equal(t, filepath.Join("flow_files", storedName), relPath)
	assert.Equal(t, int64(len(content)), s.Size(relPath))

	got, err := s.Read(relPath)
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestSaveLayoutBucket(t *testing.T) {
	s := newTestStore(t)
	relPath, storedName, err := s.Save([]byte("%PDF-1.4"), "report.pdf")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("layout_files", storedName), relPath)
	assert.Equal(t, ".pdf", filepath.Ext(storedName))
}

func TestSaveSameNameNoCollision(t *testing.T) {
	s := newTestStore(t)
	p1, _, err := s.Save([]byte("first"), "notes.txt")
	require.NoError(t, err)
	p2, _, err := s.Save([]byte("second"), "notes.txt")
	require.NoError(t, err)

	assert.NotEqual(t, p1, p2)
	b1, err := s.Read(p1)
	require.NoError(t, err)
	b2, err := s.Read(p2)
	require.NoError(t, err)
	assert.Equal(t, "first", string(b1))
	assert.Equal(t, "second", string(b2))
}

func TestSaveRejectsOversize(t *testing.T) {
	cfg := config.Config{StorageRoot: t.TempDir(), MaxUploadBytes: 4}
	s, err := New(cfg, zap.NewNop().Sugar())
	require.NoError(t, err)

	_, _, err = s.Save([]byte("too big"), "notes.txt")
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.Validation))
}

func TestReplaceWritesNewThenDeletesOld(t *testing.T) {
	s := newTestStore(t)
	oldPath, _, err := s.Save([]byte("old content"), "notes.txt")
	require.NoError(t, err)

	newPath, storedName, size, err := s.Replace(oldPath, []byte("%PDF-1.4 new"), "report.pdf")
	require.NoError(t, err)

	assert.NotEqual(t, oldPath, newPath)
	assert.Equal(t, int64(12), size)
	assert.Equal(t, ".pdf", filepath.Ext(storedName))

	_, err = os.Stat(s.AbsPath(oldPath))
	assert.True(t, os.IsNotExist(err), "old file should be gone")
	got, err := s.Read(newPath)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4 new", string(got))
}

func TestReplaceToleratesMissingOldFile(t *testing.T) {
	s := newTestStore(t)
	newPath, _, size, err := s.Replace("flow_files/never_existed.txt", []byte("abc"), "notes.txt")
	require.NoError(t, err)
	assert.Equal(t, int64(3), size)
	assert.Equal(t, int64(3), s.Size(newPath))
}

func TestDeleteAndSizeOnMissing(t *testing.T) {
	s := newTestStore(t)
	relPath, _, err := s.Save([]byte("x"), "notes.txt")
	require.NoError(t, err)

	assert.True(t, s.Delete(relPath))
	assert.False(t, s.Delete(relPath), "second delete reports absence")
	assert.False(t, s.Delete(""))
	assert.Equal(t, int64(0), s.Size(relPath))

	_, err = s.Read(relPath)
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.NotFound))
}
