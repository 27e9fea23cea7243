// Package forumclient is the client side of the realtime protocol: a store
// that folds REST snapshots and pushed events into one view, the socket
// session that feeds it, and a small REST client.
package forumclient

import (
	"fmt"
	"sync"

	"forum_backend/internal/events"
	"forum_backend/internal/services/dto"
)

// Identity is the local user. It is used to drop the echo of our own
// comments, which already arrived through the REST response.
type Identity struct {
	UserID   uint
	Username string
}

// State is a copy of everything the store holds.
type State struct {
	Comments                []dto.CommentResponse
	NewCommentID            *uint
	Notifications           []dto.NotificationResponse
	UnreadNotificationCount int64
	UnreadReplies           map[uint]int64
}

// Store is safe for concurrent use. Every operation is idempotent.
type Store struct {
	mu    sync.Mutex
	self  Identity
	state State
}

func NewStore(self Identity) *Store {
	return &Store{
		self:  self,
		state: State{UnreadReplies: make(map[uint]int64)},
	}
}

// ---------------- Comments ----------------

func (s *Store) SetComments(comments []dto.CommentResponse) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Comments = append([]dto.CommentResponse(nil), comments...)
}

// SubmitCommentSuccess appends the comment the local user just created.
func (s *Store) SubmitCommentSuccess(c dto.CommentResponse) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.indexOfComment(c.ID) < 0 {
		s.state.Comments = append(s.state.Comments, c)
	}
	id := c.ID
	s.state.NewCommentID = &id
}

// AddRealtimeComment inserts a pushed comment. It reports false when the
// comment is our own echo or already present.
func (s *Store) AddRealtimeComment(c dto.CommentResponse) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isOwnEcho(c) || s.indexOfComment(c.ID) >= 0 {
		return false
	}
	s.state.Comments = append(s.state.Comments, c)
	return true
}

// UpdateRealtimeComment merges a pushed comment over the local one. A
// comment deleted locally stays deleted.
func (s *Store) UpdateRealtimeComment(c dto.CommentResponse) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOfComment(c.ID)
	if i < 0 {
		return false
	}
	tombstoned := s.state.Comments[i].IsDeleted()
	s.state.Comments[i] = c
	if tombstoned {
		s.state.Comments[i].Body = nil
		s.state.Comments[i].AuthorID = nil
		s.state.Comments[i].AuthorName = nil
	}
	return true
}

// DeleteRealtimeComment tombstones the comment in place. The row stays so
// that replies keep their parent.
func (s *Store) DeleteRealtimeComment(id uint) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOfComment(id)
	if i < 0 {
		return false
	}
	s.state.Comments[i].Body = nil
	s.state.Comments[i].AuthorID = nil
	s.state.Comments[i].AuthorName = nil
	return true
}

func (s *Store) ClearNewCommentID() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.NewCommentID = nil
}

func (s *Store) UpdateCommentLike(id uint, likeCount int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOfComment(id)
	if i < 0 {
		return false
	}
	s.state.Comments[i].LikeCount = likeCount
	return true
}

// ---------------- Notifications ----------------

func (s *Store) SetNotifications(notifications []dto.NotificationResponse) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Notifications = append([]dto.NotificationResponse(nil), notifications...)
}

// AddRealtimeNotification prepends n unless it is already known.
func (s *Store) AddRealtimeNotification(n dto.NotificationResponse) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.indexOfNotification(n.ID) >= 0 {
		return false
	}
	s.state.Notifications = append([]dto.NotificationResponse{n}, s.state.Notifications...)
	return true
}

func (s *Store) UpdateRealtimeNotification(id uint, updates events.NotificationUpdates) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOfNotification(id)
	if i < 0 {
		return false
	}
	if updates.Read != nil {
		s.state.Notifications[i].Read = *updates.Read
	}
	return true
}

func (s *Store) SetUnreadNotificationCount(count int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.UnreadNotificationCount = count
}

func (s *Store) MarkNotificationsRead(ids []uint) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range ids {
		if i := s.indexOfNotification(id); i >= 0 {
			s.state.Notifications[i].Read = true
		}
	}
}

// ---------------- Unread replies ----------------

func (s *Store) UpdateUnreadReplies(postID uint, count int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.UnreadReplies[postID] = count
}

func (s *Store) MarkPostViewed(postID uint) {
	s.UpdateUnreadReplies(postID, 0)
}

// ---------------- Events ----------------

// Apply routes one pushed event to the matching operation. Unknown event
// types are ignored.
func (s *Store) Apply(frame events.Frame) error {
	switch frame.Type {
	case events.TypeNewComment, events.TypeCommentUpdate:
		var p events.CommentPayload
		if err := frame.Payload(&p); err != nil {
			return fmt.Errorf("decode %s: %w", frame.Type, err)
		}
		if frame.Type == events.TypeNewComment {
			s.AddRealtimeComment(p.Comment)
		} else {
			s.UpdateRealtimeComment(p.Comment)
		}

	case events.TypeCommentDelete:
		var p events.CommentDeletePayload
		if err := frame.Payload(&p); err != nil {
			return fmt.Errorf("decode %s: %w", frame.Type, err)
		}
		s.DeleteRealtimeComment(p.CommentID)

	case events.TypeCommentLikeUpdate:
		var p events.CommentLikePayload
		if err := frame.Payload(&p); err != nil {
			return fmt.Errorf("decode %s: %w", frame.Type, err)
		}
		s.UpdateCommentLike(p.CommentID, p.LikeCount)

	case events.TypeUnreadRepliesUpdate:
		var p events.UnreadRepliesPayload
		if err := frame.Payload(&p); err != nil {
			return fmt.Errorf("decode %s: %w", frame.Type, err)
		}
		s.UpdateUnreadReplies(p.PostID, p.UnreadCount)

	case events.TypeNewNotification:
		var p events.NewNotificationPayload
		if err := frame.Payload(&p); err != nil {
			return fmt.Errorf("decode %s: %w", frame.Type, err)
		}
		s.AddRealtimeNotification(p.Notification)

	case events.TypeNotificationUpdate:
		var p events.NotificationUpdatePayload
		if err := frame.Payload(&p); err != nil {
			return fmt.Errorf("decode %s: %w", frame.Type, err)
		}
		s.UpdateRealtimeNotification(p.NotificationID, p.Updates)

	case events.TypeUnreadNotificationCount:
		var p events.UnreadCountPayload
		if err := frame.Payload(&p); err != nil {
			return fmt.Errorf("decode %s: %w", frame.Type, err)
		}
		s.SetUnreadNotificationCount(p.Count)
	}
	return nil
}

// Snapshot returns a deep copy of the state.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := State{
		Comments:                make([]dto.CommentResponse, len(s.state.Comments)),
		Notifications:           make([]dto.NotificationResponse, len(s.state.Notifications)),
		NewCommentID:            clonePtr(s.state.NewCommentID),
		UnreadNotificationCount: s.state.UnreadNotificationCount,
		UnreadReplies:           make(map[uint]int64, len(s.state.UnreadReplies)),
	}
	for i, c := range s.state.Comments {
		c.Body = clonePtr(c.Body)
		c.AuthorID = clonePtr(c.AuthorID)
		c.AuthorName = clonePtr(c.AuthorName)
		c.ParentCommentID = clonePtr(c.ParentCommentID)
		out.Comments[i] = c
	}
	for i, n := range s.state.Notifications {
		n.CommentID = clonePtr(n.CommentID)
		n.CommentBody = clonePtr(n.CommentBody)
		out.Notifications[i] = n
	}
	for k, v := range s.state.UnreadReplies {
		out.UnreadReplies[k] = v
	}
	return out
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// isOwnEcho compares user ids when both sides have one and falls back to
// the author name otherwise.
func (s *Store) isOwnEcho(c dto.CommentResponse) bool {
	if s.self.UserID != 0 && c.AuthorID != nil {
		return *c.AuthorID == s.self.UserID
	}
	if s.self.Username != "" && c.AuthorName != nil {
		return *c.AuthorName == s.self.Username
	}
	return false
}

func (s *Store) indexOfComment(id uint) int {
	for i := range s.state.Comments {
		if s.state.Comments[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) indexOfNotification(id uint) int {
	for i := range s.state.Notifications {
		if s.state.Notifications[i].ID == id {
			return i
		}
	}
	return -1
}
