package services

import (
	"context"
	"errors"

	"forum_backend/internal/database/dbretry"
	"forum_backend/internal/events"
	"forum_backend/internal/logger"
	"forum_backend/internal/models"
	"forum_backend/internal/repositories"
	"forum_backend/internal/services/dto"
	"forum_backend/pkg/apperrors"

	"gorm.io/gorm"
)

type NotificationService interface {
	// ListNotifications returns the newest notifications of the user, each
	// with the body of the comment it points to.
	ListNotifications(ctx context.Context, db *gorm.DB, userID uint, query *dto.NotificationListQuery) ([]dto.NotificationResponse, error)
	GetNotification(ctx context.Context, db *gorm.DB, userID, notificationID uint) (*dto.NotificationResponse, error)
	MarkAsRead(ctx context.Context, db *gorm.DB, userID uint, req *dto.MarkNotificationsReadRequest) (*dto.MarkNotificationsReadResponse, error)
	GetUnreadCount(ctx context.Context, db *gorm.DB, userID uint) (*dto.UnreadCountResponse, error)
	DeleteNotification(ctx context.Context, db *gorm.DB, userID, notificationID uint) error
}

type notificationService struct {
	repos     *Repositories
	publisher events.Publisher
	unread    UnreadService
	opts      options
}

func NewNotificationService(repos *Repositories, publisher events.Publisher, unread UnreadService, opts ...Option) NotificationService {
	return &notificationService{
		repos:     repos,
		publisher: publisher,
		unread:    unread,
		opts:      newOptions(opts),
	}
}

func (s *notificationService) ListNotifications(ctx context.Context, db *gorm.DB, userID uint, query *dto.NotificationListQuery) ([]dto.NotificationResponse, error) {
	var filter repositories.NotificationFilter
	if query != nil {
		filter.Type = models.NotificationType(query.Type)
		filter.UnreadOnly = query.Unread
	}

	views, err := s.repos.Notifications.ListViewsForUser(db.WithContext(ctx), userID, filter, repositories.NotificationListLimit)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	out := make([]dto.NotificationResponse, 0, len(views))
	for i := range views {
		out = append(out, toNotificationResponse(&views[i]))
	}
	return out, nil
}

func (s *notificationService) GetNotification(ctx context.Context, db *gorm.DB, userID, notificationID uint) (*dto.NotificationResponse, error) {
	view, err := s.repos.Notifications.FindViewByID(db.WithContext(ctx), userID, notificationID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotificationNotFound) {
			return nil, apperrors.ErrNotificationNotFound
		}
		return nil, apperrors.InternalError(err)
	}
	resp := toNotificationResponse(view)
	return &resp, nil
}

// MarkAsRead flips the given notifications to read. Ids that are already
// read or belong to someone else are ignored, so the call is idempotent.
func (s *notificationService) MarkAsRead(ctx context.Context, db *gorm.DB, userID uint, req *dto.MarkNotificationsReadRequest) (*dto.MarkNotificationsReadResponse, error) {
	if len(req.IDs) == 0 {
		return nil, apperrors.ValidationError(map[string]string{"ids": "must not be empty"})
	}

	var flipped []uint
	err := dbretry.Transaction(ctx, db, s.opts.retry, "mark_notifications_read", func(tx *gorm.DB) error {
		ids, err := s.repos.Notifications.FindUnreadIDs(tx, userID, req.IDs)
		if err != nil {
			return err
		}
		if _, err := s.repos.Notifications.MarkAsRead(tx, userID, ids); err != nil {
			return err
		}
		flipped = ids
		return nil
	})
	if err != nil {
		return nil, asServiceError(err)
	}

	if len(flipped) > 0 {
		read := true
		for _, id := range flipped {
			s.publisher.Publish(events.UserAudience(userID), events.TypeNotificationUpdate, events.NotificationUpdatePayload{
				NotificationID: id,
				Updates:        events.NotificationUpdates{Read: &read},
			})
		}
		s.unread.PushUnreadNotificationCount(ctx, db, userID)
	}

	logger.CtxDebug(ctx, "notifications marked read", "requested", len(req.IDs), "updated", len(flipped))

	return &dto.MarkNotificationsReadResponse{Updated: int64(len(flipped))}, nil
}

func (s *notificationService) GetUnreadCount(ctx context.Context, db *gorm.DB, userID uint) (*dto.UnreadCountResponse, error) {
	count, err := s.unread.UnreadNotifications(ctx, db, userID)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	return &dto.UnreadCountResponse{Count: count}, nil
}

func (s *notificationService) DeleteNotification(ctx context.Context, db *gorm.DB, userID, notificationID uint) error {
	err := s.repos.Notifications.Delete(db.WithContext(ctx), userID, notificationID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotificationNotFound) {
			return apperrors.ErrNotificationNotFound
		}
		return apperrors.InternalError(err)
	}

	s.unread.PushUnreadNotificationCount(ctx, db, userID)
	return nil
}
