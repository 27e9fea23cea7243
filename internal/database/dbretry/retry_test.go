package dbretry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var fastPolicy = Policy{
	MaxRetries:      3,
	InitialInterval: time.Millisecond,
	MaxInterval:     2 * time.Millisecond,
	MaxElapsedTime:  time.Second,
}

func openDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{Logger: gormlogger.Discard})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	return db
}

func TestIsRetryableError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"serialization failure", &pgconn.PgError{Code: "40001"}, true},
		{"deadlock", &pgconn.PgError{Code: "40P01"}, true},
		{"unique violation", &pgconn.PgError{Code: "23505"}, false},
		{"sqlite busy", errors.New("database is locked"), true},
		{"canceled", context.Canceled, false},
		{"plain", errors.New("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryableError(tt.err))
		})
	}
}

func TestTransaction_RetriesTransientErrors(t *testing.T) {
	db := openDB(t)

	calls := 0
	err := Transaction(context.Background(), db, fastPolicy, "test", func(tx *gorm.DB) error {
		calls++
		if calls < 3 {
			return &pgconn.PgError{Code: "40001"}
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestTransaction_StopsOnPermanentError(t *testing.T) {
	db := openDB(t)
	permanent := errors.New("not retryable")

	calls := 0
	err := Transaction(context.Background(), db, fastPolicy, "test", func(tx *gorm.DB) error {
		calls++
		return permanent
	})

	assert.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, calls)
}

func TestTransaction_GivesUpAfterMaxRetries(t *testing.T) {
	db := openDB(t)

	calls := 0
	err := Transaction(context.Background(), db, fastPolicy, "test", func(tx *gorm.DB) error {
		calls++
		return &pgconn.PgError{Code: "40P01"}
	})

	require.Error(t, err)
	assert.Equal(t, int(fastPolicy.MaxRetries)+1, calls)
}

func TestTransaction_RollsBackOnError(t *testing.T) {
	db := openDB(t)
	require.NoError(t, db.Exec("CREATE TABLE items (id INTEGER PRIMARY KEY)").Error)

	err := Transaction(context.Background(), db, fastPolicy, "test", func(tx *gorm.DB) error {
		if err := tx.Exec("INSERT INTO items (id) VALUES (1)").Error; err != nil {
			return err
		}
		return errors.New("abort")
	})
	require.Error(t, err)

	var count int64
	require.NoError(t, db.Raw("SELECT COUNT(*) FROM items").Scan(&count).Error)
	assert.Zero(t, count)
}
