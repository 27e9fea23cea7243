package dto

import "time"

type NotificationResponse struct {
	ID          uint      `json:"id"`
	UserID      uint      `json:"user_id"`
	Type        string    `json:"type"`
	CommentID   *uint     `json:"comment_id"`
	PostID      uint      `json:"post_id"`
	CreatedAt   time.Time `json:"created_at"`
	Read        bool      `json:"read"`
	CommentBody *string   `json:"comment_body"`
}

// NotificationListQuery is the optional filter of GET /notifications.
type NotificationListQuery struct {
	Type   string `form:"type" json:"type" validate:"omitempty,is-notification-type"`
	Unread bool   `form:"unread" json:"unread"`
}

type MarkNotificationsReadRequest struct {
	IDs []uint `json:"ids" validate:"required,min=1"`
}

type MarkNotificationsReadResponse struct {
	Updated int64 `json:"updated"`
}

type UnreadCountResponse struct {
	Count int64 `json:"count"`
}

type MessageResponse struct {
	Message string `json:"message"`
}
