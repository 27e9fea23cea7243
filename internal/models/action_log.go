package models

import (
	"time"

	"gorm.io/datatypes"
)

type Action string

const (
	ActionAddComment    Action = "add_comment"
	ActionEditComment   Action = "edit_comment"
	ActionDeleteComment Action = "delete_comment"
	ActionLikeComment   Action = "like_comment"
	ActionUnlikeComment Action = "unlike_comment"
)

// ActionLog is the audit trail of user mutations.
type ActionLog struct {
	ID         uint           `gorm:"primaryKey"`
	UserID     *uint          `gorm:"index"`
	Action     Action         `gorm:"size:32;not null;index"`
	TargetID   uint           `gorm:"not null"`
	TargetType string         `gorm:"size:32;not null"`
	Metadata   datatypes.JSON `json:"metadata"`
	Timestamp  time.Time      `gorm:"not null"`
}
