package database

import (
	"context"
	"fmt"
	"time"

	"forum_backend/internal/logger"
	"forum_backend/internal/models"

	"github.com/cenkalti/backoff/v4"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Open connects to Postgres, retrying the first ping while the database is
// still starting up.
func Open(ctx context.Context, dsn string, maxRetries int) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to GORM: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get *sql.DB from GORM: %w", err)
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	attempt := 0
	ping := func() error {
		attempt++
		err := sqlDB.PingContext(ctx)
		if err != nil {
			logger.Warn("Database unavailable, retrying", "attempt", attempt, "error", err)
		}
		return err
	}
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(maxRetries)),
		ctx,
	)
	if err := backoff.Retry(ping, policy); err != nil {
		return nil, fmt.Errorf("database unavailable after %d attempts: %w", attempt, err)
	}

	logger.Info("Database connected")
	return db, nil
}

// AutoMigrate creates or updates every table.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	logger.Info("AutoMigrate finished", "models", len(models.All()))
	return nil
}
