package repositories

import (
	"encoding/json"
	"fmt"
	"time"

	"forum_backend/internal/models"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ActionLogRepository interface {
	Record(db *gorm.DB, userID uint, action models.Action, targetType string, targetID uint, metadata map[string]any, at time.Time) error
	ListByTarget(db *gorm.DB, targetType string, targetID uint) ([]models.ActionLog, error)
	// DeleteBefore removes entries older than cutoff and reports how many.
	DeleteBefore(db *gorm.DB, cutoff time.Time) (int64, error)
}

type ActionLogRepositoryImpl struct{}

func NewActionLogRepository() ActionLogRepository {
	return &ActionLogRepositoryImpl{}
}

func (r *ActionLogRepositoryImpl) Record(db *gorm.DB, userID uint, action models.Action, targetType string, targetID uint, metadata map[string]any, at time.Time) error {
	var meta datatypes.JSON
	if metadata != nil {
		raw, err := json.Marshal(metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal action metadata: %w", err)
		}
		meta = datatypes.JSON(raw)
	}

	entry := models.ActionLog{
		UserID:     &userID,
		Action:     action,
		TargetID:   targetID,
		TargetType: targetType,
		Metadata:   meta,
		Timestamp:  at,
	}
	return db.Create(&entry).Error
}

func (r *ActionLogRepositoryImpl) ListByTarget(db *gorm.DB, targetType string, targetID uint) ([]models.ActionLog, error) {
	var entries []models.ActionLog
	err := db.Where("target_type = ? AND target_id = ?", targetType, targetID).
		Order("timestamp ASC, id ASC").
		Find(&entries).Error
	return entries, err
}

func (r *ActionLogRepositoryImpl) DeleteBefore(db *gorm.DB, cutoff time.Time) (int64, error) {
	result := db.Where("timestamp < ?", cutoff).Delete(&models.ActionLog{})
	return result.RowsAffected, result.Error
}
