package repositories

import (
	"errors"
	"time"

	"forum_backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrPostNotFound = errors.New("post not found")

type PostRepository interface {
	// FindByID loads the post together with its subreddit.
	FindByID(db *gorm.DB, id uint) (*models.Post, error)
}

type PostRepositoryImpl struct{}

func NewPostRepository() PostRepository {
	return &PostRepositoryImpl{}
}

func (r *PostRepositoryImpl) FindByID(db *gorm.DB, id uint) (*models.Post, error) {
	var post models.Post
	if err := db.Preload("Subreddit").Preload("Author").First(&post, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPostNotFound
		}
		return nil, err
	}
	return &post, nil
}

// ============================================================================
// Watermarks
// ============================================================================

type PostViewRepository interface {
	// Upsert inserts the (user, post) watermark or bumps it to at.
	Upsert(db *gorm.DB, userID, postID uint, at time.Time) error
	// FindWatermark returns the stored watermark, or ok=false if the user
	// never viewed the post.
	FindWatermark(db *gorm.DB, userID, postID uint) (at time.Time, ok bool, err error)
}

type PostViewRepositoryImpl struct{}

func NewPostViewRepository() PostViewRepository {
	return &PostViewRepositoryImpl{}
}

func (r *PostViewRepositoryImpl) Upsert(db *gorm.DB, userID, postID uint, at time.Time) error {
	view := models.PostView{UserID: userID, PostID: postID, LastViewedAt: at}
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "post_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"last_viewed_at"}),
	}).Create(&view).Error
}

func (r *PostViewRepositoryImpl) FindWatermark(db *gorm.DB, userID, postID uint) (time.Time, bool, error) {
	var views []models.PostView
	err := db.Where("user_id = ? AND post_id = ?", userID, postID).Limit(1).Find(&views).Error
	if err != nil {
		return time.Time{}, false, err
	}
	if len(views) == 0 {
		return time.Time{}, false, nil
	}
	return views[0].LastViewedAt, true, nil
}
