package services_test

import (
	"sync/atomic"
	"testing"

	"forum_backend/internal/events"
	"forum_backend/internal/models"
	"forum_backend/internal/services/dto"
	"forum_backend/pkg/apperrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestCreateComment_MentionFansOut(t *testing.T) {
	f := newForum(t)

	c := f.comment(t, f.bob, "hello @alice")
	require.NotNil(t, c.Body)
	assert.Equal(t, "hello @alice", *c.Body)
	require.NotNil(t, c.AuthorName)
	assert.Equal(t, "bob", *c.AuthorName)
	t.Logf("COMMENT: created %d by bob", c.ID)

	assert.Equal(t, []uint{f.alice.ID}, f.mentionedUserIDs(t, c.ID))
	mentions := f.notificationsOf(t, f.alice, models.NotificationTypeMention)
	require.Len(t, mentions, 1)
	assert.Equal(t, c.ID, *mentions[0].CommentID)
	assert.Equal(t, f.post.ID, mentions[0].PostID)
	assert.False(t, mentions[0].Read)

	// alice hears about it on her own audience, notification first
	aliceEvents := []string{}
	for _, e := range f.rec.All() {
		if e.Audience == events.UserAudience(f.alice.ID) {
			aliceEvents = append(aliceEvents, e.Type)
		}
	}
	require.GreaterOrEqual(t, len(aliceEvents), 2)
	assert.Equal(t, events.TypeNewNotification, aliceEvents[0])
	assert.Equal(t, events.TypeUnreadNotificationCount, aliceEvents[1])

	counts := f.rec.Filter(events.UserAudience(f.alice.ID), events.TypeUnreadNotificationCount)
	require.Len(t, counts, 1)
	assert.Equal(t, int64(1), counts[0].Payload.(events.UnreadCountPayload).Count)

	newComment := f.rec.Filter(events.PostAudience(f.post.ID), events.TypeNewComment)
	require.Len(t, newComment, 1)
	assert.Equal(t, c.ID, newComment[0].Payload.(events.CommentPayload).Comment.ID)

	recipients := unreadRecipients(f.rec)
	assert.Equal(t, map[events.Audience]int64{
		events.UserAudience(f.alice.ID): 1,
		events.UserAudience(f.carol.ID): 1,
		events.UserAudience(f.dave.ID):  1,
		events.UserAudience(f.mod.ID):   1,
		events.UserAudience(f.root.ID):  1,
	}, recipients, "every other member of the subreddit, never the author or outsiders")
	t.Logf("FAN-OUT: unread-replies pushed to %d users", len(recipients))
}

func TestCreateComment_MentionEdgeCases(t *testing.T) {
	f := newForum(t)

	t.Run("duplicate mention gives one edge", func(t *testing.T) {
		c := f.comment(t, f.bob, "@alice @alice are you there, @alice?")
		assert.Equal(t, []uint{f.alice.ID}, f.mentionedUserIDs(t, c.ID))
		assert.Len(t, f.notificationsOf(t, f.alice, models.NotificationTypeMention), 1)
	})

	t.Run("self mention is ignored", func(t *testing.T) {
		c := f.comment(t, f.dave, "note to self @dave")
		assert.Empty(t, f.mentionedUserIDs(t, c.ID))
		assert.Empty(t, f.notificationsOf(t, f.dave, models.NotificationTypeMention))
	})

	t.Run("unknown and malformed mentions are dropped", func(t *testing.T) {
		c := f.comment(t, f.dave, "ping @nobody and mail me at dave@ or @ alone")
		assert.Empty(t, f.mentionedUserIDs(t, c.ID))
	})

	t.Run("mentions are case sensitive", func(t *testing.T) {
		c := f.comment(t, f.dave, "hey @Carol")
		assert.Empty(t, f.mentionedUserIDs(t, c.ID))
	})

	t.Run("several users in one body", func(t *testing.T) {
		c := f.comment(t, f.dave, "@carol and @mod please look")
		assert.ElementsMatch(t, []uint{f.carol.ID, f.mod.ID}, f.mentionedUserIDs(t, c.ID))
	})
}

func TestCreateComment_Reply(t *testing.T) {
	f := newForum(t)

	parent := f.comment(t, f.alice, "what do you think?")
	f.rec.Reset()

	child := f.reply(t, f.bob, parent.ID, "looks fine to me")
	require.NotNil(t, child.ParentCommentID)
	assert.Equal(t, parent.ID, *child.ParentCommentID)

	replies := f.notificationsOf(t, f.alice, models.NotificationTypeReply)
	require.Len(t, replies, 1, "exactly one reply notification")
	assert.Equal(t, child.ID, *replies[0].CommentID)
	assert.Empty(t, f.notificationsOf(t, f.alice, models.NotificationTypeMention))
	assert.Len(t, f.rec.Filter(events.UserAudience(f.alice.ID), events.TypeNewNotification), 1)

	// replying to yourself notifies nobody
	f.reply(t, f.alice, parent.ID, "answering myself")
	assert.Len(t, f.notificationsOf(t, f.alice, models.NotificationTypeReply), 1)
}

func TestCreateComment_Rejections(t *testing.T) {
	f := newForum(t)
	other := f.comment(t, f.alice, "first")

	otherPost := &models.Post{Title: "Another", AuthorID: &f.alice.ID, SubredditID: f.gophers.ID}
	require.NoError(t, f.db.Create(otherPost).Error)

	missing := uint(9999)
	tests := []struct {
		name    string
		userID  uint
		req     dto.CreateCommentRequest
		wantErr error
	}{
		{"unknown post", f.bob.ID, dto.CreateCommentRequest{Body: "x", PostID: 9999}, apperrors.ErrPostNotFound},
		{"other subreddit", f.eve.ID, dto.CreateCommentRequest{Body: "x", PostID: f.post.ID}, apperrors.ErrSubredditMismatch},
		{"missing parent", f.bob.ID, dto.CreateCommentRequest{Body: "x", PostID: f.post.ID, ParentCommentID: &missing}, apperrors.ErrParentCommentNotFound},
		{"parent on another post", f.bob.ID, dto.CreateCommentRequest{Body: "x", PostID: otherPost.ID, ParentCommentID: &other.ID}, apperrors.ErrParentCommentNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.CommentService.CreateComment(f.ctx, f.db, tt.userID, &tt.req)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	t.Run("blank body", func(t *testing.T) {
		_, err := f.svc.CommentService.CreateComment(f.ctx, f.db, f.bob.ID, &dto.CreateCommentRequest{Body: "   ", PostID: f.post.ID})
		appErr, ok := apperrors.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, apperrors.CodeValidationFailed, appErr.Code)
	})

	t.Run("admin may comment anywhere", func(t *testing.T) {
		_, err := f.svc.CommentService.CreateComment(f.ctx, f.db, f.root.ID, &dto.CreateCommentRequest{Body: "admin here", PostID: f.post.ID})
		assert.NoError(t, err)
	})
}

func TestEditComment_MentionDiff(t *testing.T) {
	f := newForum(t)

	c := f.comment(t, f.dave, "hi @bob")
	require.Equal(t, []uint{f.bob.ID}, f.mentionedUserIDs(t, c.ID))
	f.rec.Reset()

	edited, err := f.svc.CommentService.EditComment(f.ctx, f.db, f.dave.ID, c.ID, &dto.EditCommentRequest{Body: "hi @carol"})
	require.NoError(t, err)
	assert.Equal(t, "hi @carol", *edited.Body)
	assert.True(t, edited.UpdatedAt.After(edited.CreatedAt))
	t.Logf("EDIT: comment %d now mentions carol", c.ID)

	assert.Equal(t, []uint{f.carol.ID}, f.mentionedUserIDs(t, c.ID))
	assert.Len(t, f.notificationsOf(t, f.bob, models.NotificationTypeMention), 1, "bob keeps his notification")
	assert.Len(t, f.notificationsOf(t, f.carol, models.NotificationTypeMention), 1)

	updates := f.rec.Filter(events.PostAudience(f.post.ID), events.TypeCommentUpdate)
	require.Len(t, updates, 1)
	assert.Equal(t, "hi @carol", *updates[0].Payload.(events.CommentPayload).Comment.Body)
	assert.Len(t, f.rec.Filter(events.UserAudience(f.carol.ID), events.TypeNewNotification), 1)
	assert.Empty(t, f.rec.Filter(events.UserAudience(f.bob.ID), events.TypeNewNotification))

	// keeping carol and adding alice notifies alice only
	_, err = f.svc.CommentService.EditComment(f.ctx, f.db, f.dave.ID, c.ID, &dto.EditCommentRequest{Body: "hi @carol and @alice"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint{f.carol.ID, f.alice.ID}, f.mentionedUserIDs(t, c.ID))
	assert.Len(t, f.notificationsOf(t, f.carol, models.NotificationTypeMention), 1)
	assert.Len(t, f.notificationsOf(t, f.alice, models.NotificationTypeMention), 1)

	// re-adding bob after removal creates a fresh edge and notification
	_, err = f.svc.CommentService.EditComment(f.ctx, f.db, f.dave.ID, c.ID, &dto.EditCommentRequest{Body: "back to @bob"})
	require.NoError(t, err)
	assert.Equal(t, []uint{f.bob.ID}, f.mentionedUserIDs(t, c.ID))
	assert.Len(t, f.notificationsOf(t, f.bob, models.NotificationTypeMention), 2)
}

func TestEditComment_Permissions(t *testing.T) {
	f := newForum(t)
	c := f.comment(t, f.bob, "original")

	_, err := f.svc.CommentService.EditComment(f.ctx, f.db, f.dave.ID, c.ID, &dto.EditCommentRequest{Body: "hijack"})
	assert.ErrorIs(t, err, apperrors.ErrNotCommentOwner)

	_, err = f.svc.CommentService.EditComment(f.ctx, f.db, f.root.ID, c.ID, &dto.EditCommentRequest{Body: "admin edit"})
	assert.ErrorIs(t, err, apperrors.ErrNotCommentOwner, "admins may delete but not edit")

	edited, err := f.svc.CommentService.EditComment(f.ctx, f.db, f.mod.ID, c.ID, &dto.EditCommentRequest{Body: "moderated"})
	require.NoError(t, err)
	assert.Equal(t, "moderated", *edited.Body)
	assert.Equal(t, "bob", *edited.AuthorName, "authorship does not move to the moderator")

	_, err = f.svc.CommentService.EditComment(f.ctx, f.db, f.bob.ID, 9999, &dto.EditCommentRequest{Body: "x"})
	assert.ErrorIs(t, err, apperrors.ErrCommentNotFound)
}

func TestEditComment_ModeratorSelfMention(t *testing.T) {
	f := newForum(t)
	c := f.comment(t, f.bob, "needs review")

	_, err := f.svc.CommentService.EditComment(f.ctx, f.db, f.mod.ID, c.ID, &dto.EditCommentRequest{Body: "reviewed by @mod"})
	require.NoError(t, err)

	assert.Empty(t, f.mentionedUserIDs(t, c.ID), "the actor gets no edge")
	assert.Empty(t, f.notificationsOf(t, f.mod, models.NotificationTypeMention), "the actor is never notified")
}

func TestEditComment_ModeratorMentionsAuthor(t *testing.T) {
	f := newForum(t)
	c := f.comment(t, f.bob, "needs review")
	f.rec.Reset()

	_, err := f.svc.CommentService.EditComment(f.ctx, f.db, f.mod.ID, c.ID, &dto.EditCommentRequest{Body: "please fix this @bob"})
	require.NoError(t, err)

	assert.Equal(t, []uint{f.bob.ID}, f.mentionedUserIDs(t, c.ID))
	notes := f.notificationsOf(t, f.bob, models.NotificationTypeMention)
	require.Len(t, notes, 1)
	require.NotNil(t, notes[0].CommentID)
	assert.Equal(t, c.ID, *notes[0].CommentID)
	assert.Len(t, f.rec.Filter(events.UserAudience(f.bob.ID), events.TypeNewNotification), 1)
	t.Logf("EDIT: moderator mention reached the author - OK")
}

func TestDeleteComment(t *testing.T) {
	f := newForum(t)

	c := f.comment(t, f.bob, "hey @alice")
	f.rec.Reset()

	err := f.svc.CommentService.DeleteComment(f.ctx, f.db, f.dave.ID, c.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotCommentOwner)

	require.NoError(t, f.svc.CommentService.DeleteComment(f.ctx, f.db, f.bob.ID, c.ID))
	t.Logf("DELETE: comment %d tombstoned", c.ID)

	var stored models.Comment
	require.NoError(t, f.db.First(&stored, c.ID).Error)
	assert.True(t, stored.IsDeleted())
	assert.Empty(t, f.mentionedUserIDs(t, c.ID))
	assert.Len(t, f.notificationsOf(t, f.alice, models.NotificationTypeMention), 1, "notifications survive the delete")

	deletes := f.rec.Filter(events.PostAudience(f.post.ID), events.TypeCommentDelete)
	require.Len(t, deletes, 1)
	assert.Equal(t, c.ID, deletes[0].Payload.(events.CommentDeletePayload).CommentID)

	// a tombstone is terminal
	assert.ErrorIs(t, f.svc.CommentService.DeleteComment(f.ctx, f.db, f.bob.ID, c.ID), apperrors.ErrCommentDeleted)
	_, err = f.svc.CommentService.EditComment(f.ctx, f.db, f.bob.ID, c.ID, &dto.EditCommentRequest{Body: "resurrect"})
	assert.ErrorIs(t, err, apperrors.ErrCommentDeleted)
	_, err = f.svc.CommentService.LikeComment(f.ctx, f.db, f.alice.ID, c.ID)
	assert.ErrorIs(t, err, apperrors.ErrCommentDeleted)

	// the thread keeps its place
	list, err := f.svc.CommentService.GetPostComments(f.ctx, f.db, f.alice.ID, f.post.ID)
	require.NoError(t, err)
	require.Len(t, list.Comments, 1)
	assert.Nil(t, list.Comments[0].Body)
	assert.Nil(t, list.Comments[0].AuthorID)
	assert.Nil(t, list.Comments[0].AuthorName)

	// alice's notification no longer carries a body
	notes, err := f.svc.NotificationService.ListNotifications(f.ctx, f.db, f.alice.ID, nil)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Nil(t, notes[0].CommentBody)
}

func TestDeleteComment_AdminAndModerator(t *testing.T) {
	f := newForum(t)

	first := f.comment(t, f.bob, "one")
	second := f.comment(t, f.bob, "two")

	assert.NoError(t, f.svc.CommentService.DeleteComment(f.ctx, f.db, f.root.ID, first.ID))
	assert.NoError(t, f.svc.CommentService.DeleteComment(f.ctx, f.db, f.mod.ID, second.ID))
}

func TestDeleteComment_ConcurrentDelete(t *testing.T) {
	f := newForum(t)
	c := f.comment(t, f.bob, "going away")
	f.rec.Reset()

	// Another request tombstones the comment right after this one loaded it.
	var armed atomic.Bool
	armed.Store(true)
	require.NoError(t, f.db.Callback().Query().After("gorm:query").Register("test:concurrent_delete", func(tx *gorm.DB) {
		if tx.Statement.Table != "comments" || !armed.CompareAndSwap(true, false) {
			return
		}
		require.NoError(t, f.db.Exec("UPDATE comments SET body = NULL, author_id = NULL WHERE id = ?", c.ID).Error)
	}))

	err := f.svc.CommentService.DeleteComment(f.ctx, f.db, f.bob.ID, c.ID)
	assert.ErrorIs(t, err, apperrors.ErrCommentDeleted)
	assert.False(t, armed.Load())

	assert.Empty(t, f.rec.OfType(events.TypeCommentDelete), "the losing delete publishes nothing")
	var logged int64
	require.NoError(t, f.db.Model(&models.ActionLog{}).Where("action = ?", models.ActionDeleteComment).Count(&logged).Error)
	assert.Zero(t, logged)
	t.Logf("DELETE: second concurrent delete rejected - OK")
}

func TestGetPostComments(t *testing.T) {
	f := newForum(t)

	first := f.comment(t, f.alice, "first")
	second := f.reply(t, f.bob, first.ID, "second")
	third := f.comment(t, f.dave, "third")

	resp, err := f.svc.CommentService.GetPostComments(f.ctx, f.db, f.carol.ID, f.post.ID)
	require.NoError(t, err)

	assert.Equal(t, f.post.ID, resp.Post.ID)
	assert.Equal(t, "gophers", resp.Post.Subreddit)
	require.NotNil(t, resp.Post.AuthorName)
	assert.Equal(t, "carol", *resp.Post.AuthorName)

	ids := []uint{}
	for _, c := range resp.Comments {
		ids = append(ids, c.ID)
	}
	assert.Equal(t, []uint{first.ID, second.ID, third.ID}, ids, "oldest first")

	_, err = f.svc.CommentService.GetPostComments(f.ctx, f.db, f.eve.ID, f.post.ID)
	assert.ErrorIs(t, err, apperrors.ErrSubredditMismatch)

	_, err = f.svc.CommentService.GetPostComments(f.ctx, f.db, f.root.ID, f.post.ID)
	assert.NoError(t, err)
}

func TestLikeComment(t *testing.T) {
	f := newForum(t)
	c := f.comment(t, f.bob, "like me")
	f.rec.Reset()

	resp, err := f.svc.CommentService.LikeComment(f.ctx, f.db, f.alice.ID, c.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), resp.LikeCount)

	resp, err = f.svc.CommentService.LikeComment(f.ctx, f.db, f.alice.ID, c.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), resp.LikeCount, "liking twice counts once")

	resp, err = f.svc.CommentService.LikeComment(f.ctx, f.db, f.carol.ID, c.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), resp.LikeCount)

	likes := f.rec.Filter(events.PostAudience(f.post.ID), events.TypeCommentLikeUpdate)
	require.Len(t, likes, 2, "no event when nothing changed")
	assert.Equal(t, int64(2), likes[1].Payload.(events.CommentLikePayload).LikeCount)

	resp, err = f.svc.CommentService.UnlikeComment(f.ctx, f.db, f.alice.ID, c.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), resp.LikeCount)

	list, err := f.svc.CommentService.GetPostComments(f.ctx, f.db, f.alice.ID, f.post.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), list.Comments[0].LikeCount)

	_, err = f.svc.CommentService.LikeComment(f.ctx, f.db, f.eve.ID, c.ID)
	assert.ErrorIs(t, err, apperrors.ErrSubredditMismatch)
}

func TestCommentActionsAreLogged(t *testing.T) {
	f := newForum(t)

	c := f.comment(t, f.bob, "logged")
	_, err := f.svc.CommentService.EditComment(f.ctx, f.db, f.bob.ID, c.ID, &dto.EditCommentRequest{Body: "logged again"})
	require.NoError(t, err)
	_, err = f.svc.CommentService.LikeComment(f.ctx, f.db, f.alice.ID, c.ID)
	require.NoError(t, err)
	require.NoError(t, f.svc.CommentService.DeleteComment(f.ctx, f.db, f.bob.ID, c.ID))

	var actions []models.Action
	require.NoError(t, f.db.Model(&models.ActionLog{}).
		Where("target_type = ? AND target_id = ?", "comment", c.ID).
		Order("id").
		Pluck("action", &actions).Error)
	assert.Equal(t, []models.Action{
		models.ActionAddComment,
		models.ActionEditComment,
		models.ActionLikeComment,
		models.ActionDeleteComment,
	}, actions)
}
