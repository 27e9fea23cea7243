package repositories

import (
	"errors"
	"time"

	"forum_backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrCommentNotFound = errors.New("comment not found")

// CommentView is a comment joined with its author's username and like count.
type CommentView struct {
	ID              uint
	Body            *string
	AuthorID        *uint
	AuthorName      *string
	PostID          uint
	ParentCommentID *uint
	LikeCount       int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type CommentRepository interface {
	Create(db *gorm.DB, comment *models.Comment) error
	FindByID(db *gorm.DB, id uint) (*models.Comment, error)
	FindViewByID(db *gorm.DB, id uint) (*CommentView, error)
	// ListViewsByPost returns every comment of a post, tombstones included,
	// oldest first.
	ListViewsByPost(db *gorm.DB, postID uint) ([]CommentView, error)
	UpdateBody(db *gorm.DB, id uint, body string, at time.Time) error
	// SoftDelete nulls body and author, leaving the row in place.
	SoftDelete(db *gorm.DB, id uint, at time.Time) error
	// CountLiveSince counts non-deleted comments on a post created strictly
	// after since.
	CountLiveSince(db *gorm.DB, postID uint, since time.Time) (int64, error)
}

type CommentRepositoryImpl struct{}

func NewCommentRepository() CommentRepository {
	return &CommentRepositoryImpl{}
}

func (r *CommentRepositoryImpl) Create(db *gorm.DB, comment *models.Comment) error {
	return db.Create(comment).Error
}

func (r *CommentRepositoryImpl) FindByID(db *gorm.DB, id uint) (*models.Comment, error) {
	var comment models.Comment
	if err := db.First(&comment, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCommentNotFound
		}
		return nil, err
	}
	return &comment, nil
}

func (r *CommentRepositoryImpl) viewQuery(db *gorm.DB) *gorm.DB {
	return db.Table("comments AS c").
		Select(`c.id, c.body, c.author_id, u.username AS author_name, c.post_id,
			c.parent_comment_id, c.created_at, c.updated_at,
			(SELECT COUNT(*) FROM comment_likes cl WHERE cl.comment_id = c.id) AS like_count`).
		Joins("LEFT JOIN users u ON u.id = c.author_id")
}

func (r *CommentRepositoryImpl) FindViewByID(db *gorm.DB, id uint) (*CommentView, error) {
	var views []CommentView
	if err := r.viewQuery(db).Where("c.id = ?", id).Scan(&views).Error; err != nil {
		return nil, err
	}
	if len(views) == 0 {
		return nil, ErrCommentNotFound
	}
	return &views[0], nil
}

func (r *CommentRepositoryImpl) ListViewsByPost(db *gorm.DB, postID uint) ([]CommentView, error) {
	var views []CommentView
	err := r.viewQuery(db).
		Where("c.post_id = ?", postID).
		Order("c.created_at ASC, c.id ASC").
		Scan(&views).Error
	return views, err
}

func (r *CommentRepositoryImpl) UpdateBody(db *gorm.DB, id uint, body string, at time.Time) error {
	result := db.Model(&models.Comment{}).
		Where("id = ? AND body IS NOT NULL", id).
		Updates(map[string]any{"body": body, "updated_at": at})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrCommentNotFound
	}
	return nil
}

// SoftDelete tombstones a live comment. An already tombstoned comment gives
// ErrCommentNotFound.
func (r *CommentRepositoryImpl) SoftDelete(db *gorm.DB, id uint, at time.Time) error {
	result := db.Model(&models.Comment{}).
		Where("id = ? AND body IS NOT NULL", id).
		Updates(map[string]any{
			"body":       gorm.Expr("NULL"),
			"author_id":  gorm.Expr("NULL"),
			"updated_at": at,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrCommentNotFound
	}
	return nil
}

func (r *CommentRepositoryImpl) CountLiveSince(db *gorm.DB, postID uint, since time.Time) (int64, error) {
	var count int64
	err := db.Model(&models.Comment{}).
		Where("post_id = ? AND body IS NOT NULL AND created_at > ?", postID, since).
		Count(&count).Error
	return count, err
}

// ============================================================================
// Mentions
// ============================================================================

type MentionRepository interface {
	// Insert adds the edge and reports whether it was new. An existing edge
	// is not an error.
	Insert(db *gorm.DB, commentID, userID uint) (bool, error)
	ListUserIDs(db *gorm.DB, commentID uint) ([]uint, error)
	Delete(db *gorm.DB, commentID uint, userIDs []uint) error
	DeleteAll(db *gorm.DB, commentID uint) error
}

type MentionRepositoryImpl struct{}

func NewMentionRepository() MentionRepository {
	return &MentionRepositoryImpl{}
}

func (r *MentionRepositoryImpl) Insert(db *gorm.DB, commentID, userID uint) (bool, error) {
	edge := models.CommentMention{CommentID: commentID, MentionedUserID: userID}
	result := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&edge)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *MentionRepositoryImpl) ListUserIDs(db *gorm.DB, commentID uint) ([]uint, error) {
	var ids []uint
	err := db.Model(&models.CommentMention{}).
		Where("comment_id = ?", commentID).
		Order("mentioned_user_id").
		Pluck("mentioned_user_id", &ids).Error
	return ids, err
}

func (r *MentionRepositoryImpl) Delete(db *gorm.DB, commentID uint, userIDs []uint) error {
	if len(userIDs) == 0 {
		return nil
	}
	return db.Where("comment_id = ? AND mentioned_user_id IN ?", commentID, userIDs).
		Delete(&models.CommentMention{}).Error
}

func (r *MentionRepositoryImpl) DeleteAll(db *gorm.DB, commentID uint) error {
	return db.Where("comment_id = ?", commentID).Delete(&models.CommentMention{}).Error
}

// ============================================================================
// Likes
// ============================================================================

type CommentLikeRepository interface {
	// Like reports whether a new like row was created.
	Like(db *gorm.DB, userID, commentID uint, at time.Time) (bool, error)
	// Unlike reports whether a like row was removed.
	Unlike(db *gorm.DB, userID, commentID uint) (bool, error)
	Count(db *gorm.DB, commentID uint) (int64, error)
}

type CommentLikeRepositoryImpl struct{}

func NewCommentLikeRepository() CommentLikeRepository {
	return &CommentLikeRepositoryImpl{}
}

func (r *CommentLikeRepositoryImpl) Like(db *gorm.DB, userID, commentID uint, at time.Time) (bool, error) {
	like := models.CommentLike{UserID: userID, CommentID: commentID, CreatedAt: at}
	result := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&like)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *CommentLikeRepositoryImpl) Unlike(db *gorm.DB, userID, commentID uint) (bool, error) {
	result := db.Where("user_id = ? AND comment_id = ?", userID, commentID).Delete(&models.CommentLike{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *CommentLikeRepositoryImpl) Count(db *gorm.DB, commentID uint) (int64, error) {
	var count int64
	err := db.Model(&models.CommentLike{}).Where("comment_id = ?", commentID).Count(&count).Error
	return count, err
}
