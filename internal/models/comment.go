package models

import "time"

// Comment is never hard-deleted. Body and AuthorID both nil marks a
// tombstone that keeps its place in the thread.
type Comment struct {
	BaseModel
	Body            *string   `gorm:"type:text" json:"body"`
	AuthorID        *uint     `gorm:"index" json:"author_id"`
	PostID          uint      `gorm:"not null;index" json:"post_id"`
	ParentCommentID *uint     `gorm:"index" json:"parent_comment_id"`
	UpdatedAt       time.Time `gorm:"not null" json:"updated_at"`

	Author *User `gorm:"foreignKey:AuthorID;constraint:OnDelete:SET NULL" json:"-"`
	Post   *Post `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"-"`
}

func (c *Comment) IsDeleted() bool {
	return c.Body == nil && c.AuthorID == nil
}

// AuthoredBy reports whether userID wrote the (live) comment.
func (c *Comment) AuthoredBy(userID uint) bool {
	return c.AuthorID != nil && *c.AuthorID == userID
}

// CommentMention is the edge "this comment currently mentions this user".
type CommentMention struct {
	CommentID       uint `gorm:"primaryKey;autoIncrement:false"`
	MentionedUserID uint `gorm:"primaryKey;autoIncrement:false;index"`

	Comment *Comment `gorm:"foreignKey:CommentID;constraint:OnDelete:CASCADE"`
	User    *User    `gorm:"foreignKey:MentionedUserID;constraint:OnDelete:CASCADE"`
}

type CommentLike struct {
	UserID    uint      `gorm:"primaryKey;autoIncrement:false"`
	CommentID uint      `gorm:"primaryKey;autoIncrement:false;index"`
	CreatedAt time.Time `gorm:"not null"`

	Comment *Comment `gorm:"foreignKey:CommentID;constraint:OnDelete:CASCADE"`
	User    *User    `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}
