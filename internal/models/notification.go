package models

type NotificationType string

const (
	NotificationTypeMention NotificationType = "mention"
	NotificationTypeReply   NotificationType = "reply"
)

// Notification rows form an append-only log: only Read ever changes.
type Notification struct {
	BaseModel
	UserID    uint             `gorm:"not null;index:idx_notifications_user_read" json:"user_id"`
	Type      NotificationType `gorm:"size:16;not null" json:"type"`
	CommentID *uint            `gorm:"index" json:"comment_id"`
	PostID    uint             `gorm:"not null" json:"post_id"`
	Read      bool             `gorm:"not null;default:false;index:idx_notifications_user_read" json:"read"`

	User    *User    `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Comment *Comment `gorm:"foreignKey:CommentID;constraint:OnDelete:SET NULL" json:"-"`
}
