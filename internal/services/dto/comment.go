package dto

import "time"

type CreateCommentRequest struct {
	Body            string `json:"body" validate:"required,notblank,max=10000"`
	PostID          uint   `json:"post_id" validate:"required"`
	ParentCommentID *uint  `json:"parent_comment_id"`
}

type EditCommentRequest struct {
	Body string `json:"body" validate:"required,notblank,max=10000"`
}

// CommentResponse is the comment shape shared by REST and realtime events.
// Body, AuthorID and AuthorName are null for a deleted comment.
type CommentResponse struct {
	ID              uint      `json:"id"`
	Body            *string   `json:"body"`
	AuthorID        *uint     `json:"author_id"`
	AuthorName      *string   `json:"author_name"`
	PostID          uint      `json:"post_id"`
	ParentCommentID *uint     `json:"parent_comment_id"`
	LikeCount       int64     `json:"like_count"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (c *CommentResponse) IsDeleted() bool {
	return c.Body == nil
}

type PostResponse struct {
	ID          uint      `json:"id"`
	Title       string    `json:"title"`
	Body        string    `json:"body"`
	AuthorID    *uint     `json:"author_id"`
	AuthorName  *string   `json:"author_name"`
	SubredditID uint      `json:"subreddit_id"`
	Subreddit   string    `json:"subreddit"`
	CreatedAt   time.Time `json:"created_at"`
}

type PostCommentsResponse struct {
	Post     PostResponse      `json:"post"`
	Comments []CommentResponse `json:"comments"`
}

type CommentLikeResponse struct {
	CommentID uint  `json:"commentId"`
	LikeCount int64 `json:"likeCount"`
}

type UnreadRepliesResponse struct {
	PostID      uint  `json:"postId"`
	UnreadCount int64 `json:"unreadCount"`
}
