package services_test

import (
	"context"
	"testing"
	"time"

	"forum_backend/internal/events"
	"forum_backend/internal/events/eventstest"
	"forum_backend/internal/models"
	"forum_backend/internal/services"
	"forum_backend/internal/services/dto"
	"forum_backend/test/helpers"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// forum is a small world shared by the service tests: the "gophers"
// subreddit with five members, an outsider from "rustaceans", an admin and a
// post written by carol.
type forum struct {
	ctx   context.Context
	db    *gorm.DB
	rec   *eventstest.Recorder
	svc   *services.ServiceContainer
	clock *helpers.StepClock

	gophers *models.Subreddit
	rust    *models.Subreddit

	alice, bob, carol, dave, mod, eve, root *models.User

	post *models.Post
}

func newForum(t *testing.T) *forum {
	t.Helper()

	db := helpers.NewTestDB(t)
	rec := &eventstest.Recorder{}
	clock := helpers.NewStepClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))

	f := &forum{
		ctx:   context.Background(),
		db:    db,
		rec:   rec,
		clock: clock,
		svc: services.NewServiceContainer(services.NewRepositories(), rec,
			services.WithClock(clock.Now),
			services.WithFanoutWorkers(2),
		),
	}

	f.gophers = helpers.CreateSubreddit(t, db, "gophers")
	f.rust = helpers.CreateSubreddit(t, db, "rustaceans")

	f.alice = helpers.CreateUser(t, db, "alice", "gophers")
	f.bob = helpers.CreateUser(t, db, "bob", "gophers")
	f.carol = helpers.CreateUser(t, db, "carol", "gophers")
	f.dave = helpers.CreateUser(t, db, "dave", "gophers")
	f.mod = helpers.CreateUser(t, db, "mod", "gophers")
	f.eve = helpers.CreateUser(t, db, "eve", "rustaceans")
	f.root = helpers.CreateAdmin(t, db, "root")
	helpers.MakeModerator(t, db, f.mod, f.gophers)

	f.post = helpers.CreatePost(t, db, f.carol, f.gophers, "Generics in practice")
	return f
}

func (f *forum) comment(t *testing.T, author *models.User, body string) *dto.CommentResponse {
	t.Helper()
	c, err := f.svc.CommentService.CreateComment(f.ctx, f.db, author.ID, &dto.CreateCommentRequest{
		Body:   body,
		PostID: f.post.ID,
	})
	require.NoError(t, err)
	return c
}

func (f *forum) reply(t *testing.T, author *models.User, parentID uint, body string) *dto.CommentResponse {
	t.Helper()
	c, err := f.svc.CommentService.CreateComment(f.ctx, f.db, author.ID, &dto.CreateCommentRequest{
		Body:            body,
		PostID:          f.post.ID,
		ParentCommentID: &parentID,
	})
	require.NoError(t, err)
	return c
}

func (f *forum) mentionedUserIDs(t *testing.T, commentID uint) []uint {
	t.Helper()
	var ids []uint
	require.NoError(t, f.db.Model(&models.CommentMention{}).
		Where("comment_id = ?", commentID).
		Order("mentioned_user_id").
		Pluck("mentioned_user_id", &ids).Error)
	return ids
}

func (f *forum) notificationsOf(t *testing.T, user *models.User, kind models.NotificationType) []models.Notification {
	t.Helper()
	var out []models.Notification
	require.NoError(t, f.db.Where("user_id = ? AND type = ?", user.ID, kind).Order("id").Find(&out).Error)
	return out
}

// loadPost returns the fixture post with its subreddit, as the services
// load it.
func (f *forum) loadPost(t *testing.T) *models.Post {
	t.Helper()
	var post models.Post
	require.NoError(t, f.db.Preload("Subreddit").First(&post, f.post.ID).Error)
	return &post
}

// unreadRecipients maps each user that got an unread-replies-update to the
// last count pushed to them.
func unreadRecipients(rec *eventstest.Recorder) map[events.Audience]int64 {
	out := map[events.Audience]int64{}
	for _, e := range rec.OfType(events.TypeUnreadRepliesUpdate) {
		out[e.Audience] = e.Payload.(events.UnreadRepliesPayload).UnreadCount
	}
	return out
}
