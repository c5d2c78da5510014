// Package quota enforces the per-user daily upload ceiling. The check is
// read-then-insert with no locking: concurrent uploads from one user can
// transiently exceed the ceiling, which callers accept as a soft limit.
package quota

import (
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"docvault/internal/models"
)

type Guard struct {
	db      *gorm.DB
	ceiling int
	lg      *zap.SugaredLogger
	now     func() time.Time
}

func NewGuard(db *gorm.DB, ceiling int, lg *zap.SugaredLogger) *Guard {
	return &Guard{db: db, ceiling: ceiling, lg: lg, now: time.Now}
}

// CheckAndConsume reports whether userID may upload another document today.
// A failed count is logged and allowed through: availability wins over
// strict quota enforcement.
func (g *Guard) CheckAndConsume(userID string) bool {
	count, err := g.countToday(userID)
	if err != nil {
		g.lg.Errorw("upload quota check failed, allowing", "user_id", userID, "error", err)
		return true
	}
	return count < int64(g.ceiling)
}

// Remaining returns how many uploads userID has left today, never negative.
// On a failed count the full ceiling is reported.
func (g *Guard) Remaining(userID string) int {
	count, err := g.countToday(userID)
	if err != nil {
		g.lg.Errorw("upload quota count failed", "user_id", userID, "error", err)
		return g.ceiling
	}
	remaining := g.ceiling - int(count)
	if remaining < 0 {
		return 0
	}
	return remaining
}

func (g *Guard) countToday(userID string) (int64, error) {
	now := g.now()
	startOfToday := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	var count int64
	err := g.db.Model(&models.Document{}).
		Where("creator_id = ? AND created_at >= ?", userID, startOfToday).
		Count(&count).Error
	return count, err
}
