package services

import (
	"errors"
	"time"

	"forum_backend/internal/auth"
	"forum_backend/internal/database/dbretry"
	"forum_backend/internal/models"
	"forum_backend/internal/repositories"
	"forum_backend/pkg/apperrors"

	"gorm.io/gorm"
)

// Clock returns the current time. Services always store UTC.
type Clock func() time.Time

type options struct {
	now           Clock
	retry         dbretry.Policy
	fanoutWorkers int
}

type Option func(*options)

func WithClock(c Clock) Option {
	return func(o *options) { o.now = c }
}

func WithRetryPolicy(p dbretry.Policy) Option {
	return func(o *options) { o.retry = p }
}

// WithFanoutWorkers bounds how many unread counts are recomputed in parallel
// after a new comment.
func WithFanoutWorkers(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.fanoutWorkers = n
		}
	}
}

func newOptions(opts []Option) options {
	o := options{
		now:           func() time.Time { return time.Now().UTC() },
		retry:         dbretry.DefaultPolicy,
		fanoutWorkers: 4,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (o options) clock() time.Time {
	return o.now().UTC()
}

// epoch is the watermark of a user who never opened a post.
var epoch = time.Unix(0, 0).UTC()

// Repositories bundles every repository the services need.
type Repositories struct {
	Users         repositories.UserRepository
	Posts         repositories.PostRepository
	PostViews     repositories.PostViewRepository
	Comments      repositories.CommentRepository
	Mentions      repositories.MentionRepository
	Likes         repositories.CommentLikeRepository
	Notifications repositories.NotificationRepository
	ActionLogs    repositories.ActionLogRepository
}

func NewRepositories() *Repositories {
	return &Repositories{
		Users:         repositories.NewUserRepository(),
		Posts:         repositories.NewPostRepository(),
		PostViews:     repositories.NewPostViewRepository(),
		Comments:      repositories.NewCommentRepository(),
		Mentions:      repositories.NewMentionRepository(),
		Likes:         repositories.NewCommentLikeRepository(),
		Notifications: repositories.NewNotificationRepository(),
		ActionLogs:    repositories.NewActionLogRepository(),
	}
}

// loadActor resolves the authenticated user. A token for a user that no
// longer exists is treated as unauthenticated.
func (r *Repositories) loadActor(db *gorm.DB, userID uint) (*models.User, error) {
	user, err := r.Users.FindByID(db, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, apperrors.NewUnauthorizedError("User not found")
		}
		return nil, apperrors.InternalError(err)
	}
	return user, nil
}

func (r *Repositories) loadPost(db *gorm.DB, postID uint) (*models.Post, error) {
	post, err := r.Posts.FindByID(db, postID)
	if err != nil {
		if errors.Is(err, repositories.ErrPostNotFound) {
			return nil, apperrors.ErrPostNotFound
		}
		return nil, apperrors.InternalError(err)
	}
	return post, nil
}

// loadAccessiblePost loads the actor and the post and enforces that the post
// lives in the actor's selected subreddit (admins bypass).
func (r *Repositories) loadAccessiblePost(db *gorm.DB, userID, postID uint) (*models.User, *models.Post, error) {
	user, err := r.loadActor(db, userID)
	if err != nil {
		return nil, nil, err
	}
	post, err := r.loadPost(db, postID)
	if err != nil {
		return nil, nil, err
	}
	if !auth.CanAccessSubreddit(user, subredditName(post)) {
		return nil, nil, apperrors.ErrSubredditMismatch
	}
	return user, post, nil
}

func (r *Repositories) loadLiveComment(db *gorm.DB, commentID uint) (*models.Comment, error) {
	comment, err := r.Comments.FindByID(db, commentID)
	if err != nil {
		if errors.Is(err, repositories.ErrCommentNotFound) {
			return nil, apperrors.ErrCommentNotFound
		}
		return nil, apperrors.InternalError(err)
	}
	if comment.IsDeleted() {
		return nil, apperrors.ErrCommentDeleted
	}
	return comment, nil
}

func subredditName(post *models.Post) string {
	if post.Subreddit == nil {
		return ""
	}
	return post.Subreddit.Name
}

// asServiceError passes AppErrors through and wraps anything else as a 500.
func asServiceError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := apperrors.AsAppError(err); ok {
		return err
	}
	return apperrors.InternalError(err)
}
