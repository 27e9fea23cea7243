package repositories

import (
	"errors"
	"time"

	"forum_backend/internal/models"

	"gorm.io/gorm"
)

var ErrNotificationNotFound = errors.New("notification not found")

// NotificationListLimit caps GET /notifications.
const NotificationListLimit = 50

// NotificationView is a notification joined with the body of the comment it
// points to. CommentBody is nil once the comment is tombstoned.
type NotificationView struct {
	ID          uint
	UserID      uint
	Type        models.NotificationType
	CommentID   *uint
	PostID      uint
	CreatedAt   time.Time
	Read        bool
	CommentBody *string
}

// NotificationFilter narrows a notification listing. The zero value lists
// everything.
type NotificationFilter struct {
	Type       models.NotificationType
	UnreadOnly bool
}

type NotificationRepository interface {
	Create(db *gorm.DB, notification *models.Notification) error
	FindViewByID(db *gorm.DB, userID, id uint) (*NotificationView, error)
	ListViewsForUser(db *gorm.DB, userID uint, filter NotificationFilter, limit int) ([]NotificationView, error)
	// FindUnreadIDs narrows ids to the caller's notifications that are still unread.
	FindUnreadIDs(db *gorm.DB, userID uint, ids []uint) ([]uint, error)
	MarkAsRead(db *gorm.DB, userID uint, ids []uint) (int64, error)
	CountUnread(db *gorm.DB, userID uint) (int64, error)
	Delete(db *gorm.DB, userID, id uint) error
}

type NotificationRepositoryImpl struct{}

func NewNotificationRepository() NotificationRepository {
	return &NotificationRepositoryImpl{}
}

func (r *NotificationRepositoryImpl) Create(db *gorm.DB, notification *models.Notification) error {
	return db.Create(notification).Error
}

func (r *NotificationRepositoryImpl) viewQuery(db *gorm.DB) *gorm.DB {
	return db.Table("notifications AS n").
		Select("n.id, n.user_id, n.type, n.comment_id, n.post_id, n.created_at, n.read, c.body AS comment_body").
		Joins("LEFT JOIN comments c ON c.id = n.comment_id")
}

func (r *NotificationRepositoryImpl) FindViewByID(db *gorm.DB, userID, id uint) (*NotificationView, error) {
	var views []NotificationView
	err := r.viewQuery(db).Where("n.id = ? AND n.user_id = ?", id, userID).Scan(&views).Error
	if err != nil {
		return nil, err
	}
	if len(views) == 0 {
		return nil, ErrNotificationNotFound
	}
	return &views[0], nil
}

func (r *NotificationRepositoryImpl) ListViewsForUser(db *gorm.DB, userID uint, filter NotificationFilter, limit int) ([]NotificationView, error) {
	if limit <= 0 || limit > NotificationListLimit {
		limit = NotificationListLimit
	}
	query := r.viewQuery(db).Where("n.user_id = ?", userID)
	if filter.Type != "" {
		query = query.Where("n.type = ?", filter.Type)
	}
	if filter.UnreadOnly {
		query = query.Where("n.read = ?", false)
	}

	var views []NotificationView
	err := query.
		Order("n.created_at DESC, n.id DESC").
		Limit(limit).
		Scan(&views).Error
	return views, err
}

func (r *NotificationRepositoryImpl) FindUnreadIDs(db *gorm.DB, userID uint, ids []uint) ([]uint, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var unread []uint
	err := db.Model(&models.Notification{}).
		Where("user_id = ? AND id IN ? AND read = ?", userID, ids, false).
		Order("id").
		Pluck("id", &unread).Error
	return unread, err
}

func (r *NotificationRepositoryImpl) MarkAsRead(db *gorm.DB, userID uint, ids []uint) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result := db.Model(&models.Notification{}).
		Where("user_id = ? AND id IN ?", userID, ids).
		Update("read", true)
	return result.RowsAffected, result.Error
}

func (r *NotificationRepositoryImpl) CountUnread(db *gorm.DB, userID uint) (int64, error) {
	var count int64
	err := db.Model(&models.Notification{}).
		Where("user_id = ? AND read = ?", userID, false).
		Count(&count).Error
	return count, err
}

func (r *NotificationRepositoryImpl) Delete(db *gorm.DB, userID, id uint) error {
	result := db.Where("id = ? AND user_id = ?", id, userID).Delete(&models.Notification{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotificationNotFound
	}
	return nil
}
