package workers_test

import (
	"context"
	"testing"
	"time"

	"forum_backend/internal/models"
	"forum_backend/internal/repositories"
	"forum_backend/internal/workers"
	"forum_backend/test/helpers"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetentionWorker_Sweep(t *testing.T) {
	db := helpers.NewTestDB(t)
	logs := repositories.NewActionLogRepository()
	now := time.Now().UTC()

	require.NoError(t, logs.Record(db, 1, models.ActionAddComment, "comment", 1, nil, now.Add(-100*24*time.Hour)))
	require.NoError(t, logs.Record(db, 1, models.ActionEditComment, "comment", 1, nil, now.Add(-89*24*time.Hour)))
	require.NoError(t, logs.Record(db, 1, models.ActionLikeComment, "comment", 1, map[string]any{"like_count": 1}, now))

	w := workers.NewRetentionWorker(db, logs, 90*24*time.Hour, time.Hour)
	deleted, err := w.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	left, err := logs.ListByTarget(db, "comment", 1)
	require.NoError(t, err)
	require.Len(t, left, 2)
	assert.Equal(t, models.ActionEditComment, left[0].Action)

	deleted, err = w.Sweep(context.Background())
	require.NoError(t, err)
	assert.Zero(t, deleted, "a second pass finds nothing")
}

func TestRetentionWorker_RunStopsWithContext(t *testing.T) {
	db := helpers.NewTestDB(t)
	w := workers.NewRetentionWorker(db, repositories.NewActionLogRepository(), time.Hour, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}

func TestRetentionWorker_Disabled(t *testing.T) {
	db := helpers.NewTestDB(t)
	w := workers.NewRetentionWorker(db, repositories.NewActionLogRepository(), 0, time.Hour)

	done := make(chan struct{})
	go func() {
		w.Run(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("a disabled worker must return at once")
	}
}
