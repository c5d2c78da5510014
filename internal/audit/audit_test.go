package audit

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"docvault/internal/models"
)

func newTestRecorder(t *testing.T) (*Recorder, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.AccessLog{}, &models.SystemLog{}))
	return NewRecorder(db, zap.NewNop().Sugar()), db
}

func TestRecordAccess(t *testing.T) {
	rec, db := newTestRecorder(t)
	rec.RecordAccess("3f1c9b2e-0000-4000-8000-00000000000a", 42, models.ActionDownload, "10.0.0.1", "curl/8.0")

	var entry models.AccessLog
	require.NoError(t, db.First(&entry).Error)
	assert.Equal(t, int64(42), entry.DocumentID)
	assert.Equal(t, models.ActionDownload, entry.ActionType)
	assert.Equal(t, "10.0.0.1", entry.IPAddress)
	assert.Equal(t, "curl/8.0", entry.UserAgent)
	assert.False(t, entry.CreatedAt.IsZero())
}

func TestRecordAccessTruncatesUserAgent(t *testing.T) {
	rec, db := newTestRecorder(t)
	rec.RecordAccess("u", 1, models.ActionView, "", strings.Repeat("x", 900))

	var entry models.AccessLog
	require.NoError(t, db.First(&entry).Error)
	assert.Len(t, entry.UserAgent, 500)
}

func TestRecordSystemOperation(t *testing.T) {
	rec, db := newTestRecorder(t)
	operator := &models.User{ID: "3f1c9b2e-0000-4000-8000-00000000000a", Username: "admin"}
	rec.RecordSystemOperation(operator, "user_create", "created user bob",
		"user", "77", "bob", map[string]any{"role_id": 2}, "10.0.0.1")

	var entry models.SystemLog
	require.NoError(t, db.First(&entry).Error)
	assert.Equal(t, "admin", entry.OperatorName)
	assert.Equal(t, "user_create", entry.OperationType)
	assert.Equal(t, "bob", entry.TargetName)
	assert.JSONEq(t, `{"role_id":2}`, string(entry.Details))
}

func TestRecordSystemOperationNilDetails(t *testing.T) {
	rec, db := newTestRecorder(t)
	operator := &models.User{ID: "u", Username: "admin"}
	rec.RecordSystemOperation(operator, "auth_revoke", "revoked edit", "role", "2", "user", nil, "")

	var entry models.SystemLog
	require.NoError(t, db.First(&entry).Error)
	assert.JSONEq(t, `{}`, string(entry.Details))
}

func TestFailedWritesAreSwallowed(t *testing.T) {
	rec, db := newTestRecorder(t)
	require.NoError(t, db.Migrator().DropTable(&models.AccessLog{}, &models.SystemLog{}))

	// Neither call may panic or surface an error to the caller.
	rec.RecordAccess("u", 1, models.ActionView, "", "")
	rec.RecordSystemOperation(&models.User{ID: "u", Username: "admin"},
		"user_delete", "deleted user", "user", "1", "bob", nil, "")
}
