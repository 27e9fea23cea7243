package services

import (
	"forum_backend/internal/models"
	"forum_backend/internal/repositories"
	"forum_backend/internal/services/dto"
)

func toCommentResponse(v *repositories.CommentView) dto.CommentResponse {
	resp := dto.CommentResponse{
		ID:              v.ID,
		Body:            v.Body,
		AuthorID:        v.AuthorID,
		AuthorName:      v.AuthorName,
		PostID:          v.PostID,
		ParentCommentID: v.ParentCommentID,
		LikeCount:       v.LikeCount,
		CreatedAt:       v.CreatedAt.UTC(),
		UpdatedAt:       v.UpdatedAt.UTC(),
	}
	if v.Body == nil {
		resp.AuthorID = nil
		resp.AuthorName = nil
	}
	return resp
}

func toNotificationResponse(v *repositories.NotificationView) dto.NotificationResponse {
	return dto.NotificationResponse{
		ID:          v.ID,
		UserID:      v.UserID,
		Type:        string(v.Type),
		CommentID:   v.CommentID,
		PostID:      v.PostID,
		CreatedAt:   v.CreatedAt.UTC(),
		Read:        v.Read,
		CommentBody: v.CommentBody,
	}
}

func toPostResponse(p *models.Post) dto.PostResponse {
	resp := dto.PostResponse{
		ID:          p.ID,
		Title:       p.Title,
		Body:        p.Body,
		AuthorID:    p.AuthorID,
		SubredditID: p.SubredditID,
		Subreddit:   subredditName(p),
		CreatedAt:   p.CreatedAt.UTC(),
	}
	if p.Author != nil {
		name := p.Author.Username
		resp.AuthorName = &name
	}
	return resp
}
