package models

import "time"

type Post struct {
	BaseModel
	Title       string `gorm:"not null" json:"title"`
	Body        string `json:"body"`
	AuthorID    *uint  `gorm:"index" json:"author_id"`
	SubredditID uint   `gorm:"not null;index" json:"subreddit_id"`

	Author    *User      `gorm:"foreignKey:AuthorID;constraint:OnDelete:SET NULL" json:"-"`
	Subreddit *Subreddit `gorm:"foreignKey:SubredditID;constraint:OnDelete:CASCADE" json:"-"`
}

// PostView is the per-user read watermark for a post. There is at most one
// row per (user, post); it is only ever bumped forward.
type PostView struct {
	ID           uint      `gorm:"primaryKey"`
	UserID       uint      `gorm:"not null;uniqueIndex:idx_post_views_user_post"`
	PostID       uint      `gorm:"not null;uniqueIndex:idx_post_views_user_post;index"`
	LastViewedAt time.Time `gorm:"not null"`
}
