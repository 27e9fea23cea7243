package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"forum_backend/internal/auth"
	"forum_backend/internal/database/dbretry"
	"forum_backend/internal/events"
	"forum_backend/internal/logger"
	"forum_backend/internal/mentions"
	"forum_backend/internal/models"
	"forum_backend/internal/repositories"
	"forum_backend/internal/services/dto"
	"forum_backend/pkg/apperrors"

	"gorm.io/gorm"
)

const targetComment = "comment"

type CommentService interface {
	// Comment operations
	CreateComment(ctx context.Context, db *gorm.DB, userID uint, req *dto.CreateCommentRequest) (*dto.CommentResponse, error)
	EditComment(ctx context.Context, db *gorm.DB, userID, commentID uint, req *dto.EditCommentRequest) (*dto.CommentResponse, error)
	DeleteComment(ctx context.Context, db *gorm.DB, userID, commentID uint) error
	GetPostComments(ctx context.Context, db *gorm.DB, userID, postID uint) (*dto.PostCommentsResponse, error)

	// Like operations
	LikeComment(ctx context.Context, db *gorm.DB, userID, commentID uint) (*dto.CommentLikeResponse, error)
	UnlikeComment(ctx context.Context, db *gorm.DB, userID, commentID uint) (*dto.CommentLikeResponse, error)
}

type commentService struct {
	repos     *Repositories
	publisher events.Publisher
	unread    UnreadService
	opts      options
}

func NewCommentService(repos *Repositories, publisher events.Publisher, unread UnreadService, opts ...Option) CommentService {
	return &commentService{
		repos:     repos,
		publisher: publisher,
		unread:    unread,
		opts:      newOptions(opts),
	}
}

// ---------------- Comment Operations ----------------

func (s *commentService) CreateComment(ctx context.Context, db *gorm.DB, userID uint, req *dto.CreateCommentRequest) (*dto.CommentResponse, error) {
	if err := validateBody(req.Body); err != nil {
		return nil, err
	}

	user, post, err := s.repos.loadAccessiblePost(db.WithContext(ctx), userID, req.PostID)
	if err != nil {
		return nil, err
	}

	var parent *models.Comment
	if req.ParentCommentID != nil {
		parent, err = s.repos.Comments.FindByID(db.WithContext(ctx), *req.ParentCommentID)
		if err != nil {
			if errors.Is(err, repositories.ErrCommentNotFound) {
				return nil, apperrors.ErrParentCommentNotFound
			}
			return nil, apperrors.InternalError(err)
		}
		if parent.PostID != post.ID {
			return nil, apperrors.ErrParentCommentNotFound
		}
	}

	var (
		comment *models.Comment
		created []*models.Notification
	)
	err = dbretry.Transaction(ctx, db, s.opts.retry, "create_comment", func(tx *gorm.DB) error {
		now := s.opts.clock()
		created = nil

		body := req.Body
		comment = &models.Comment{
			BaseModel: models.BaseModel{CreatedAt: now},
			Body:      &body,
			AuthorID:  &user.ID,
			PostID:    post.ID,
			UpdatedAt: now,
		}
		if parent != nil {
			comment.ParentCommentID = &parent.ID
		}
		if err := s.repos.Comments.Create(tx, comment); err != nil {
			return err
		}

		notes, err := s.applyMentions(tx, comment, user.ID, req.Body, nil, now)
		if err != nil {
			return err
		}
		created = append(created, notes...)

		if parent != nil && parent.AuthorID != nil && *parent.AuthorID != user.ID {
			reply := &models.Notification{
				BaseModel: models.BaseModel{CreatedAt: now},
				UserID:    *parent.AuthorID,
				Type:      models.NotificationTypeReply,
				CommentID: &comment.ID,
				PostID:    post.ID,
			}
			if err := s.repos.Notifications.Create(tx, reply); err != nil {
				return err
			}
			created = append(created, reply)
		}

		// The author has seen their own comment.
		if err := s.repos.PostViews.Upsert(tx, user.ID, post.ID, now); err != nil {
			return err
		}

		return s.repos.ActionLogs.Record(tx, user.ID, models.ActionAddComment, targetComment, comment.ID, map[string]any{
			"post_id":       post.ID,
			"parent_id":     comment.ParentCommentID,
			"notifications": len(created),
		}, now)
	})
	if err != nil {
		return nil, asServiceError(err)
	}

	view, err := s.repos.Comments.FindViewByID(db.WithContext(ctx), comment.ID)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	resp := toCommentResponse(view)

	logger.CtxInfo(ctx, "comment created",
		"comment_id", comment.ID, "post_id", post.ID, "notifications", len(created))

	for _, n := range created {
		pushNotification(ctx, db, s.repos, s.unread, s.publisher, n)
	}
	s.publisher.Publish(events.PostAudience(post.ID), events.TypeNewComment, events.CommentPayload{Comment: resp})
	s.unread.PushUnreadReplies(ctx, db, post, user.ID)

	return &resp, nil
}

func (s *commentService) EditComment(ctx context.Context, db *gorm.DB, userID, commentID uint, req *dto.EditCommentRequest) (*dto.CommentResponse, error) {
	if err := validateBody(req.Body); err != nil {
		return nil, err
	}

	user, err := s.repos.loadActor(db.WithContext(ctx), userID)
	if err != nil {
		return nil, err
	}
	comment, err := s.repos.loadLiveComment(db.WithContext(ctx), commentID)
	if err != nil {
		return nil, err
	}
	post, err := s.repos.loadPost(db.WithContext(ctx), comment.PostID)
	if err != nil {
		return nil, err
	}

	isModerator, err := s.repos.Users.IsModerator(db.WithContext(ctx), user.ID, post.SubredditID)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	if !auth.CanEditComment(user.ID, comment, isModerator) {
		return nil, apperrors.ErrNotCommentOwner
	}

	var created []*models.Notification
	err = dbretry.Transaction(ctx, db, s.opts.retry, "edit_comment", func(tx *gorm.DB) error {
		now := s.opts.clock()
		created = nil

		if err := s.repos.Comments.UpdateBody(tx, comment.ID, req.Body, now); err != nil {
			if errors.Is(err, repositories.ErrCommentNotFound) {
				// Deleted between the load and the update.
				return apperrors.ErrCommentDeleted
			}
			return err
		}

		existing, err := s.repos.Mentions.ListUserIDs(tx, comment.ID)
		if err != nil {
			return err
		}

		notes, err := s.applyMentions(tx, comment, user.ID, req.Body, existing, now)
		if err != nil {
			return err
		}
		created = notes

		return s.repos.ActionLogs.Record(tx, user.ID, models.ActionEditComment, targetComment, comment.ID, map[string]any{
			"post_id":       post.ID,
			"notifications": len(created),
		}, now)
	})
	if err != nil {
		return nil, asServiceError(err)
	}

	view, err := s.repos.Comments.FindViewByID(db.WithContext(ctx), comment.ID)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	resp := toCommentResponse(view)

	logger.CtxInfo(ctx, "comment edited", "comment_id", comment.ID, "post_id", post.ID)

	for _, n := range created {
		pushNotification(ctx, db, s.repos, s.unread, s.publisher, n)
	}
	s.publisher.Publish(events.PostAudience(post.ID), events.TypeCommentUpdate, events.CommentPayload{Comment: resp})

	return &resp, nil
}

func (s *commentService) DeleteComment(ctx context.Context, db *gorm.DB, userID, commentID uint) error {
	user, err := s.repos.loadActor(db.WithContext(ctx), userID)
	if err != nil {
		return err
	}
	comment, err := s.repos.loadLiveComment(db.WithContext(ctx), commentID)
	if err != nil {
		return err
	}
	post, err := s.repos.loadPost(db.WithContext(ctx), comment.PostID)
	if err != nil {
		return err
	}

	isModerator, err := s.repos.Users.IsModerator(db.WithContext(ctx), user.ID, post.SubredditID)
	if err != nil {
		return apperrors.InternalError(err)
	}
	if !auth.CanDeleteComment(user, comment, isModerator) {
		return apperrors.ErrNotCommentOwner
	}

	err = dbretry.Transaction(ctx, db, s.opts.retry, "delete_comment", func(tx *gorm.DB) error {
		now := s.opts.clock()

		if err := s.repos.Comments.SoftDelete(tx, comment.ID, now); err != nil {
			if errors.Is(err, repositories.ErrCommentNotFound) {
				// Deleted between the load and the update.
				return apperrors.ErrCommentDeleted
			}
			return err
		}
		if err := s.repos.Mentions.DeleteAll(tx, comment.ID); err != nil {
			return err
		}
		return s.repos.ActionLogs.Record(tx, user.ID, models.ActionDeleteComment, targetComment, comment.ID, map[string]any{
			"post_id":   post.ID,
			"author_id": comment.AuthorID,
		}, now)
	})
	if err != nil {
		return asServiceError(err)
	}

	logger.CtxInfo(ctx, "comment deleted", "comment_id", comment.ID, "post_id", post.ID)

	s.publisher.Publish(events.PostAudience(post.ID), events.TypeCommentDelete, events.CommentDeletePayload{
		CommentID: comment.ID,
	})
	return nil
}

func (s *commentService) GetPostComments(ctx context.Context, db *gorm.DB, userID, postID uint) (*dto.PostCommentsResponse, error) {
	_, post, err := s.repos.loadAccessiblePost(db.WithContext(ctx), userID, postID)
	if err != nil {
		return nil, err
	}

	views, err := s.repos.Comments.ListViewsByPost(db.WithContext(ctx), post.ID)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	comments := make([]dto.CommentResponse, 0, len(views))
	for i := range views {
		comments = append(comments, toCommentResponse(&views[i]))
	}

	return &dto.PostCommentsResponse{
		Post:     toPostResponse(post),
		Comments: comments,
	}, nil
}

// ---------------- Like Operations ----------------

func (s *commentService) LikeComment(ctx context.Context, db *gorm.DB, userID, commentID uint) (*dto.CommentLikeResponse, error) {
	return s.toggleLike(ctx, db, userID, commentID, true)
}

func (s *commentService) UnlikeComment(ctx context.Context, db *gorm.DB, userID, commentID uint) (*dto.CommentLikeResponse, error) {
	return s.toggleLike(ctx, db, userID, commentID, false)
}

func (s *commentService) toggleLike(ctx context.Context, db *gorm.DB, userID, commentID uint, like bool) (*dto.CommentLikeResponse, error) {
	comment, err := s.repos.loadLiveComment(db.WithContext(ctx), commentID)
	if err != nil {
		return nil, err
	}
	user, _, err := s.repos.loadAccessiblePost(db.WithContext(ctx), userID, comment.PostID)
	if err != nil {
		return nil, err
	}

	var (
		changed bool
		count   int64
	)
	operation, action := "like_comment", models.ActionLikeComment
	if !like {
		operation, action = "unlike_comment", models.ActionUnlikeComment
	}

	err = dbretry.Transaction(ctx, db, s.opts.retry, operation, func(tx *gorm.DB) error {
		now := s.opts.clock()

		var err error
		if like {
			changed, err = s.repos.Likes.Like(tx, user.ID, comment.ID, now)
		} else {
			changed, err = s.repos.Likes.Unlike(tx, user.ID, comment.ID)
		}
		if err != nil {
			return err
		}

		count, err = s.repos.Likes.Count(tx, comment.ID)
		if err != nil {
			return err
		}

		if !changed {
			return nil
		}
		return s.repos.ActionLogs.Record(tx, user.ID, action, targetComment, comment.ID, map[string]any{
			"post_id":    comment.PostID,
			"like_count": count,
		}, now)
	})
	if err != nil {
		return nil, asServiceError(err)
	}

	if changed {
		s.publisher.Publish(events.PostAudience(comment.PostID), events.TypeCommentLikeUpdate, events.CommentLikePayload{
			CommentID: comment.ID,
			LikeCount: count,
		})
	}

	return &dto.CommentLikeResponse{CommentID: comment.ID, LikeCount: count}, nil
}

// ---------------- Mentions ----------------

// applyMentions resolves the @usernames in body and inserts an edge and a
// mention notification for each one not already in existing. The actor never
// gets a new edge. Users whose edge is gone from the new body lose it; their
// notifications stay.
func (s *commentService) applyMentions(tx *gorm.DB, comment *models.Comment, actorID uint, body string, existing []uint, now time.Time) ([]*models.Notification, error) {
	tokens := mentions.Unique(mentions.Extract(body))

	var resolved []models.User
	if len(tokens) > 0 {
		var err error
		resolved, err = s.repos.Users.FindByUsernames(tx, tokens)
		if err != nil {
			return nil, err
		}
	}
	byName := make(map[string]uint, len(resolved))
	for _, u := range resolved {
		byName[u.Username] = u.ID
	}

	had := make(map[uint]struct{}, len(existing))
	for _, id := range existing {
		had[id] = struct{}{}
	}

	wanted := make(map[uint]struct{}, len(tokens))
	var created []*models.Notification
	for _, name := range tokens {
		id, ok := byName[name]
		if !ok {
			continue
		}
		if _, dup := wanted[id]; dup {
			continue
		}
		_, hadEdge := had[id]
		if id == actorID && !hadEdge {
			continue
		}
		wanted[id] = struct{}{}

		if hadEdge {
			continue
		}

		inserted, err := s.repos.Mentions.Insert(tx, comment.ID, id)
		if err != nil {
			return nil, err
		}
		if !inserted {
			continue
		}

		n := &models.Notification{
			BaseModel: models.BaseModel{CreatedAt: now},
			UserID:    id,
			Type:      models.NotificationTypeMention,
			CommentID: &comment.ID,
			PostID:    comment.PostID,
		}
		if err := s.repos.Notifications.Create(tx, n); err != nil {
			return nil, err
		}
		created = append(created, n)
	}

	var removed []uint
	for _, id := range existing {
		if _, ok := wanted[id]; !ok {
			removed = append(removed, id)
		}
	}
	if len(removed) > 0 {
		if err := s.repos.Mentions.Delete(tx, comment.ID, removed); err != nil {
			return nil, err
		}
	}

	return created, nil
}

func validateBody(body string) error {
	if strings.TrimSpace(body) == "" {
		return apperrors.ValidationError(map[string]string{"body": "must not be empty"})
	}
	return nil
}
