package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Permission types toggled per role.
const (
	PermView           = "view"
	PermUpload         = "upload"
	PermEdit           = "edit"
	PermUserManage     = "user_manage"
	PermCategoryManage = "category_manage"
	PermAdmin          = "admin"
)

// Access-log action types.
const (
	ActionView     = "view"
	ActionUpload   = "upload"
	ActionEdit     = "edit"
	ActionDownload = "download"
	ActionPreview  = "preview"
	ActionAnnotate = "annotate"
)

// Document file types. Layout documents are opaque binaries with annotation
// support; flow documents carry editable text content with version history.
const (
	FileTypeLayout = "layout"
	FileTypeFlow   = "flow"
)

// Annotation shapes.
const (
	AnnotationText      = "text"
	AnnotationRectangle = "rectangle"
	AnnotationCircle    = "circle"
	AnnotationArrow     = "arrow"
)

type Role struct {
	ID          int          `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string       `gorm:"uniqueIndex;not null" json:"name"`
	Description string       `json:"description"`
	IsSuperuser bool         `gorm:"not null;default:false" json:"is_superuser"`
	Permissions []Permission `gorm:"foreignKey:RoleID" json:"permissions"`
	CreatedAt   time.Time    `json:"created_at"`
}

type Permission struct {
	ID             int    `gorm:"primaryKey;autoIncrement" json:"id"`
	RoleID         int    `gorm:"not null;uniqueIndex:uniq_role_permission" json:"role_id"`
	PermissionType string `gorm:"not null;size:50;uniqueIndex:uniq_role_permission" json:"permission_type"`
	IsEnabled      bool   `gorm:"not null;default:true" json:"is_enabled"`
}

type User struct {
	ID           string     `gorm:"type:uuid;primaryKey" json:"id"`
	Username     string     `gorm:"uniqueIndex;not null;size:50" json:"username"`
	Email        string     `gorm:"uniqueIndex;not null;size:100" json:"email"`
	PasswordHash string     `gorm:"not null" json:"-"`
	RoleID       int        `gorm:"not null" json:"role_id"`
	Role         Role       `gorm:"foreignKey:RoleID" json:"role"`
	Status       bool       `gorm:"not null;default:true" json:"status"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

type Category struct {
	ID          int       `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string    `gorm:"not null;size:50;uniqueIndex" json:"name"`
	ParentID    *int      `json:"parent_id,omitempty"`
	Description string    `gorm:"size:200" json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Document references its category and creator by id only; it is the sole
// owner of its versions, annotations, favorites and access logs, which are
// removed when the document is deleted.
type Document struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Title       string    `gorm:"not null;size:200" json:"title"`
	Description string    `json:"description"`
	CategoryID  int       `gorm:"not null;index" json:"category_id"`
	CreatorID   string    `gorm:"type:uuid;not null;index" json:"creator_id"`
	IsPrivate   bool      `gorm:"not null;default:false" json:"is_private"`
	FilePath    string    `gorm:"size:500" json:"file_path"`
	FileName    string    `gorm:"not null;size:255" json:"file_name"`
	FileType    string    `gorm:"not null;size:20" json:"file_type"`
	FileSize    int64     `json:"file_size"`
	Content     string    `json:"content,omitempty"`
	Version     int       `gorm:"not null;default:1" json:"version"`
	ViewCount   int64     `gorm:"not null;default:0" json:"view_count"`
	CreatedAt   time.Time `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// DocumentVersion is an immutable snapshot of a flow document's content
// taken just before an edit overwrote it.
type DocumentVersion struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	DocumentID  int64     `gorm:"not null;uniqueIndex:uniq_document_version" json:"document_id"`
	VersionNum  int       `gorm:"not null;uniqueIndex:uniq_document_version" json:"version_num"`
	Content     string    `json:"content"`
	CreatedBy   string    `gorm:"type:uuid;not null" json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
	Description string    `gorm:"size:200" json:"description"`
}

type AccessLog struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID     string    `gorm:"type:uuid;not null;index:idx_user_document_time" json:"user_id"`
	DocumentID int64     `gorm:"not null;index:idx_user_document_time" json:"document_id"`
	ActionType string    `gorm:"not null;size:20" json:"action_type"`
	IPAddress  string    `gorm:"size:50" json:"ip_address"`
	UserAgent  string    `gorm:"size:500" json:"user_agent"`
	CreatedAt  time.Time `gorm:"index:idx_user_document_time" json:"created_at"`
}

type SystemLog struct {
	ID            int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	OperatorID    string    `gorm:"type:uuid;not null;index:idx_operator_time" json:"operator_id"`
	OperatorName  string    `gorm:"not null;size:100" json:"operator_name"`
	OperationType string    `gorm:"not null;size:50;index:idx_type_time" json:"operation_type"`
	OperationDesc string    `gorm:"not null;size:255" json:"operation_desc"`
	TargetEntity  string    `gorm:"size:50" json:"target_entity"`
	TargetID      string    `gorm:"size:64" json:"target_id"`
	TargetName    string    `gorm:"size:100" json:"target_name"`
	Details       JSONB     `gorm:"type:jsonb" json:"details"`
	IPAddress     string    `gorm:"size:50" json:"ip_address"`
	CreatedAt     time.Time `gorm:"index:idx_operator_time;index:idx_type_time" json:"created_at"`
}

type Favorite struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID     string    `gorm:"type:uuid;not null;uniqueIndex:uniq_user_document" json:"user_id"`
	DocumentID int64     `gorm:"not null;uniqueIndex:uniq_user_document" json:"document_id"`
	CreatedAt  time.Time `json:"created_at"`
}

type Annotation struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	DocumentID int64     `gorm:"not null;index" json:"document_id"`
	UserID     string    `gorm:"type:uuid;not null" json:"user_id"`
	Type       string    `gorm:"not null;size:20" json:"type"`
	Content    string    `json:"content"`
	Position   JSONB     `gorm:"type:jsonb" json:"position"`
	Style      JSONB     `gorm:"type:jsonb" json:"style"`
	PageNumber int       `gorm:"not null;default:1" json:"page_number"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
