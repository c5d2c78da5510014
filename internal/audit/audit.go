// Package audit appends access and privileged-operation records. Writes are
// best-effort: a failed insert is logged for operators and swallowed so the
// primary operation it is attached to never aborts.
package audit

import (
	"encoding/json"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"docvault/internal/models"
)

type Recorder struct {
	db *gorm.DB
	lg *zap.SugaredLogger
}

func NewRecorder(db *gorm.DB, lg *zap.SugaredLogger) *Recorder {
	return &Recorder{db: db, lg: lg}
}

// RecordAccess appends a document access event.
func (r *Recorder) RecordAccess(userID string, documentID int64, actionType, ip, userAgent string) {
	if len(userAgent) > 500 {
		userAgent = userAgent[:500]
	}
	entry := models.AccessLog{
		UserID:     userID,
		DocumentID: documentID,
		ActionType: actionType,
		IPAddress:  ip,
		UserAgent:  userAgent,
	}
	if err := r.db.Create(&entry).Error; err != nil {
		r.lg.Errorw("access log write failed",
			"user_id", userID, "document_id", documentID, "action", actionType, "error", err)
	}
}

// RecordSystemOperation appends a privileged-operation event (role or
// permission changes, user and category management).
func (r *Recorder) RecordSystemOperation(operator *models.User, operationType, description,
	targetEntity, targetID, targetName string, details map[string]any, ip string) {
	payload := models.JSONB("{}")
	if details != nil {
		b, err := json.Marshal(details)
		if err != nil {
			r.lg.Errorw("system log details not serializable", "operation", operationType, "error", err)
		} else {
			payload = models.JSONB(b)
		}
	}
	entry := models.SystemLog{
		OperatorID:    operator.ID,
		OperatorName:  operator.Username,
		OperationType: operationType,
		OperationDesc: description,
		TargetEntity:  targetEntity,
		TargetID:      targetID,
		TargetName:    targetName,
		Details:       payload,
		IPAddress:     ip,
	}
	if err := r.db.Create(&entry).Error; err != nil {
		r.lg.Errorw("system log write failed",
			"operator", operator.Username, "operation", operationType, "error", err)
	}
}
