package services

import (
	"context"

	"forum_backend/internal/database/dbretry"
	"forum_backend/internal/events"
	"forum_backend/internal/logger"
	"forum_backend/internal/models"
	"forum_backend/internal/services/dto"
	"forum_backend/pkg/apperrors"

	"github.com/sourcegraph/conc/pool"
	"gorm.io/gorm"
)

// UnreadService owns the read-side projections. Nothing here is cached:
// every count is recomputed from rows on each call.
type UnreadService interface {
	// UnreadReplies counts live comments on postID created after the user's
	// watermark (the epoch if there is none).
	UnreadReplies(ctx context.Context, db *gorm.DB, userID, postID uint) (int64, error)
	// UnreadNotifications counts the user's notifications with read = false.
	UnreadNotifications(ctx context.Context, db *gorm.DB, userID uint) (int64, error)

	GetPostUnread(ctx context.Context, db *gorm.DB, userID, postID uint) (*dto.UnreadRepliesResponse, error)
	// MarkPostAsViewed bumps the watermark to now and tells the user's other
	// sockets that the post is read.
	MarkPostAsViewed(ctx context.Context, db *gorm.DB, userID, postID uint) (*dto.UnreadRepliesResponse, error)

	// PushUnreadReplies recomputes the unread count of post for every user
	// who can see it (except excludeUserID) and pushes the non-zero ones.
	PushUnreadReplies(ctx context.Context, db *gorm.DB, post *models.Post, excludeUserID uint)
	// PushUnreadNotificationCount recomputes and pushes the user's counter.
	PushUnreadNotificationCount(ctx context.Context, db *gorm.DB, userID uint)
}

type unreadService struct {
	repos     *Repositories
	publisher events.Publisher
	opts      options
}

func NewUnreadService(repos *Repositories, publisher events.Publisher, opts ...Option) UnreadService {
	return &unreadService{
		repos:     repos,
		publisher: publisher,
		opts:      newOptions(opts),
	}
}

func (s *unreadService) UnreadReplies(ctx context.Context, db *gorm.DB, userID, postID uint) (int64, error) {
	db = db.WithContext(ctx)

	since, ok, err := s.repos.PostViews.FindWatermark(db, userID, postID)
	if err != nil {
		return 0, err
	}
	if !ok {
		since = epoch
	}
	return s.repos.Comments.CountLiveSince(db, postID, since)
}

func (s *unreadService) UnreadNotifications(ctx context.Context, db *gorm.DB, userID uint) (int64, error) {
	return s.repos.Notifications.CountUnread(db.WithContext(ctx), userID)
}

func (s *unreadService) GetPostUnread(ctx context.Context, db *gorm.DB, userID, postID uint) (*dto.UnreadRepliesResponse, error) {
	if _, _, err := s.repos.loadAccessiblePost(db.WithContext(ctx), userID, postID); err != nil {
		return nil, err
	}
	count, err := s.UnreadReplies(ctx, db, userID, postID)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	return &dto.UnreadRepliesResponse{PostID: postID, UnreadCount: count}, nil
}

func (s *unreadService) MarkPostAsViewed(ctx context.Context, db *gorm.DB, userID, postID uint) (*dto.UnreadRepliesResponse, error) {
	if _, _, err := s.repos.loadAccessiblePost(db.WithContext(ctx), userID, postID); err != nil {
		return nil, err
	}

	now := s.opts.clock()
	err := dbretry.Transaction(ctx, db, s.opts.retry, "mark_post_viewed", func(tx *gorm.DB) error {
		return s.repos.PostViews.Upsert(tx, userID, postID, now)
	})
	if err != nil {
		return nil, asServiceError(err)
	}

	count, err := s.UnreadReplies(ctx, db, userID, postID)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	s.publisher.Publish(events.UserAudience(userID), events.TypeUnreadRepliesUpdate, events.UnreadRepliesPayload{
		PostID:      postID,
		UnreadCount: count,
	})

	return &dto.UnreadRepliesResponse{PostID: postID, UnreadCount: count}, nil
}

func (s *unreadService) PushUnreadReplies(ctx context.Context, db *gorm.DB, post *models.Post, excludeUserID uint) {
	audience, err := s.repos.Users.FindSubredditAudience(db.WithContext(ctx), subredditName(post), excludeUserID)
	if err != nil {
		logger.CtxWithError(ctx, "failed to resolve unread-replies audience", err, "post_id", post.ID)
		return
	}

	p := pool.New().WithMaxGoroutines(s.opts.fanoutWorkers)
	for _, userID := range audience {
		userID := userID
		p.Go(func() {
			count, err := s.UnreadReplies(ctx, db, userID, post.ID)
			if err != nil {
				logger.CtxWithError(ctx, "failed to recompute unread replies", err,
					"post_id", post.ID, "recipient_id", userID)
				return
			}
			if count == 0 {
				return
			}
			s.publisher.Publish(events.UserAudience(userID), events.TypeUnreadRepliesUpdate, events.UnreadRepliesPayload{
				PostID:      post.ID,
				UnreadCount: count,
			})
		})
	}
	p.Wait()
}

func (s *unreadService) PushUnreadNotificationCount(ctx context.Context, db *gorm.DB, userID uint) {
	count, err := s.UnreadNotifications(ctx, db, userID)
	if err != nil {
		logger.CtxWithError(ctx, "failed to recompute unread notification count", err, "recipient_id", userID)
		return
	}
	s.publisher.Publish(events.UserAudience(userID), events.TypeUnreadNotificationCount, events.UnreadCountPayload{
		Count: count,
	})
}

// pushNotification publishes a freshly committed notification followed by
// the recipient's refreshed unread counter.
func pushNotification(ctx context.Context, db *gorm.DB, repos *Repositories, unread UnreadService, publisher events.Publisher, n *models.Notification) {
	view, err := repos.Notifications.FindViewByID(db.WithContext(ctx), n.UserID, n.ID)
	if err != nil {
		logger.CtxWithError(ctx, "failed to load notification for push", err, "notification_id", n.ID)
		return
	}
	publisher.Publish(events.UserAudience(n.UserID), events.TypeNewNotification, events.NewNotificationPayload{
		Notification: toNotificationResponse(view),
	})
	unread.PushUnreadNotificationCount(ctx, db, n.UserID)
}
