package repositories

import (
	"errors"

	"forum_backend/internal/models"

	"gorm.io/gorm"
)

var ErrUserNotFound = errors.New("user not found")

type UserRepository interface {
	FindByID(db *gorm.DB, id uint) (*models.User, error)
	// FindByUsernames resolves usernames to users. Unknown names are simply
	// absent from the result.
	FindByUsernames(db *gorm.DB, usernames []string) ([]models.User, error)
	// FindSubredditAudience returns the ids of users who can read posts in
	// the named subreddit (it is their selected one, or they are admins),
	// excluding excludeUserID.
	FindSubredditAudience(db *gorm.DB, subredditName string, excludeUserID uint) ([]uint, error)
	IsModerator(db *gorm.DB, userID, subredditID uint) (bool, error)
}

type UserRepositoryImpl struct{}

func NewUserRepository() UserRepository {
	return &UserRepositoryImpl{}
}

func (r *UserRepositoryImpl) FindByID(db *gorm.DB, id uint) (*models.User, error) {
	var user models.User
	if err := db.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *UserRepositoryImpl) FindByUsernames(db *gorm.DB, usernames []string) ([]models.User, error) {
	if len(usernames) == 0 {
		return nil, nil
	}
	var users []models.User
	err := db.Where("username IN ?", usernames).Find(&users).Error
	return users, err
}

func (r *UserRepositoryImpl) FindSubredditAudience(db *gorm.DB, subredditName string, excludeUserID uint) ([]uint, error) {
	var ids []uint
	err := db.Model(&models.User{}).
		Where("id <> ?", excludeUserID).
		Where("selected_subreddit = ? OR is_admin = ?", subredditName, true).
		Order("id").
		Pluck("id", &ids).Error
	return ids, err
}

func (r *UserRepositoryImpl) IsModerator(db *gorm.DB, userID, subredditID uint) (bool, error) {
	var count int64
	err := db.Model(&models.Moderator{}).
		Where("user_id = ? AND subreddit_id = ?", userID, subredditID).
		Count(&count).Error
	return count > 0, err
}
