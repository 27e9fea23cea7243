package helpers

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"forum_backend/internal/auth"
	"forum_backend/internal/models"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// NewTestDB opens a private in-memory SQLite database with every table
// migrated. A single connection keeps the database alive and serialises
// writers the way row locks would in Postgres.
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?_foreign_keys=on"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err, "failed to open test database")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(models.All()...), "failed to migrate test database")

	t.Cleanup(func() { sqlDB.Close() })
	return db
}

// StepClock returns start, start+1s, start+2s... on successive calls, so
// rows created in a test have strictly increasing timestamps.
type StepClock struct {
	mu   sync.Mutex
	next time.Time
	step time.Duration
}

func NewStepClock(start time.Time) *StepClock {
	return &StepClock{next: start.UTC(), step: time.Second}
}

func (c *StepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.next
	c.next = c.next.Add(c.step)
	return now
}

// ---------------- Fixtures ----------------

func CreateSubreddit(t *testing.T, db *gorm.DB, name string) *models.Subreddit {
	t.Helper()
	sub := &models.Subreddit{Name: name}
	require.NoError(t, db.Create(sub).Error, "failed to create subreddit %s", name)
	return sub
}

// CreateUser creates a regular user who has selected the given subreddit.
func CreateUser(t *testing.T, db *gorm.DB, username, selectedSubreddit string) *models.User {
	t.Helper()
	user := &models.User{Username: username, SelectedSubreddit: selectedSubreddit}
	require.NoError(t, db.Create(user).Error, "failed to create user %s", username)
	return user
}

func CreateAdmin(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()
	user := &models.User{Username: username, IsAdmin: true}
	require.NoError(t, db.Create(user).Error, "failed to create admin %s", username)
	return user
}

func MakeModerator(t *testing.T, db *gorm.DB, user *models.User, sub *models.Subreddit) {
	t.Helper()
	require.NoError(t, db.Create(&models.Moderator{UserID: user.ID, SubredditID: sub.ID}).Error)
}

func CreatePost(t *testing.T, db *gorm.DB, author *models.User, sub *models.Subreddit, title string) *models.Post {
	t.Helper()
	post := &models.Post{
		Title:       title,
		Body:        fmt.Sprintf("body of %s", title),
		AuthorID:    &author.ID,
		SubredditID: sub.ID,
	}
	require.NoError(t, db.Create(post).Error, "failed to create post %s", title)
	return post
}

// Token issues an access token for user.
func Token(t *testing.T, tokens *auth.TokenManager, user *models.User) string {
	t.Helper()
	token, err := tokens.GenerateToken(user.ID, user.IsAdmin)
	require.NoError(t, err)
	return token
}
