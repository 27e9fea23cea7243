package models

import (
	"time"
)

// BaseModel is embedded by every table with a surrogate key.
type BaseModel struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
}

// All lists every model for AutoMigrate, in dependency order.
func All() []any {
	return []any{
		&Subreddit{},
		&User{},
		&Moderator{},
		&Post{},
		&Comment{},
		&CommentMention{},
		&CommentLike{},
		&Notification{},
		&PostView{},
		&ActionLog{},
	}
}
