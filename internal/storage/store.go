// Package storage maps document content to files under a configured root.
// The database only ever sees paths relative to the root, so the root can be
// relocated without a data migration.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"docvault/internal/apperr"
	"docvault/internal/config"
	"docvault/internal/models"
)

// layoutExtensions lists the page-formatted types stored as opaque binaries.
// Anything else is treated as flow content; the classifier never rejects.
var layoutExtensions = map[string]bool{
	".pdf":  true,
	".doc":  true,
	".docx": true,
	".dwg":  true,
	".dxf":  true,
	".psd":  true,
	".ppt":  true,
	".pptx": true,
}

// ClassifyFileType buckets a filename into layout or flow by extension.
func ClassifyFileType(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if layoutExtensions[ext] {
		return models.FileTypeLayout
	}
	return models.FileTypeFlow
}

type Store struct {
	root     string
	maxBytes int64
	lg       *zap.SugaredLogger
}

// New creates the storage root if absent and returns a Store rooted there.
func New(cfg config.Config, lg *zap.SugaredLogger) (*Store, error) {
	if err := os.MkdirAll(cfg.StorageRoot, 0o755); err != nil {
		return nil, apperr.Wrap(apperr.StorageUnavailable, "storage root not creatable", err)
	}
	return &Store{root: cfg.StorageRoot, maxBytes: cfg.MaxUploadBytes, lg: lg}, nil
}

// Save writes content into the bucket for its file type under a
// collision-free name and returns the path relative to the root plus the
// stored filename. Size limits are enforced here because declared
// content-length is unreliable.
func (s *Store) Save(content []byte, declaredName string) (string, string, error) {
	if int64(len(content)) > s.maxBytes {
		return "", "", apperr.New(apperr.Validation,
			fmt.Sprintf("file exceeds maximum size of %d bytes", s.maxBytes))
	}
	fileType := ClassifyFileType(declaredName)
	dir := filepath.Join(s.root, fileType+"_files")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", apperr.Wrap(apperr.StorageUnavailable, "storage directory not creatable", err)
	}
	storedName := uniqueName(declaredName)
	absPath := filepath.Join(dir, storedName)
	if err := os.WriteFile(absPath, content, 0o644); err != nil {
		return "", "", apperr.Wrap(apperr.WriteFailed, "file write failed", err)
	}
	if _, err := os.Stat(absPath); err != nil {
		return "", "", apperr.Wrap(apperr.WriteFailed, "file not persisted", err)
	}
	relPath := filepath.Join(fileType+"_files", storedName)
	s.lg.Debugw("file saved", "path", relPath, "bytes", len(content))
	return relPath, storedName, nil
}

// Replace persists new content and then removes the file at oldRelPath.
// Writing before deleting means a failed write leaves the previous content
// intact; the stale old file after a failed delete is only logged.
func (s *Store) Replace(oldRelPath string, content []byte, declaredName string) (string, string, int64, error) {
	relPath, storedName, err := s.Save(content, declaredName)
	if err != nil {
		return "", "", 0, err
	}
	if oldRelPath != "" && !s.Delete(oldRelPath) {
		s.lg.Warnw("previous file not removed on replace", "path", oldRelPath)
	}
	return relPath, storedName, s.Size(relPath), nil
}

// Delete removes the file at relPath, reporting false when it was absent.
func (s *Store) Delete(relPath string) bool {
	if relPath == "" {
		return false
	}
	err := os.Remove(filepath.Join(s.root, relPath))
	if err != nil {
		if !os.IsNotExist(err) {
			s.lg.Errorw("file delete failed", "path", relPath, "error", err)
		}
		return false
	}
	return true
}

// Size reads the persisted byte count back from disk, never trusting
// request metadata. Missing files report 0.
func (s *Store) Size(relPath string) int64 {
	info, err := os.Stat(filepath.Join(s.root, relPath))
	if err != nil || info.IsDir() {
		return 0
	}
	return info.Size()
}

// AbsPath resolves a stored relative path for readers (download, preview).
func (s *Store) AbsPath(relPath string) string {
	return filepath.Join(s.root, relPath)
}

// Read returns the stored bytes at relPath.
func (s *Store) Read(relPath string) ([]byte, error) {
	b, err := os.ReadFile(filepath.Join(s.root, relPath))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperr.Wrap(apperr.NotFound, "file not found", err)
		}
		return nil, apperr.Wrap(apperr.StorageUnavailable, "file read failed", err)
	}
	return b, nil
}

// uniqueName builds `20060102_150405_<8-hex><ext>`. The random suffix keeps
// identical filenames uploaded within the same second from colliding without
// a central sequence.
func uniqueName(declaredName string) string {
	ext := strings.ToLower(filepath.Ext(declaredName))
	return fmt.Sprintf("%s_%s%s",
		time.Now().Format("20060102_150405"),
		strings.ReplaceAll(uuid.New().String(), "-", "")[:8],
		ext)
}
