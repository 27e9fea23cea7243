// Package events defines the realtime wire contract: audiences, event
// names, payload shapes and the client control messages.
package events

import (
	"encoding/json"
	"errors"
	"fmt"

	"forum_backend/internal/services/dto"
)

// Audience is a broadcast target, either "post:<id>" or "user:<id>".
type Audience string

func PostAudience(postID uint) Audience {
	return Audience(fmt.Sprintf("post:%d", postID))
}

func UserAudience(userID uint) Audience {
	return Audience(fmt.Sprintf("user:%d", userID))
}

func (a Audience) String() string { return string(a) }

const (
	TypeNewComment              = "new-comment"
	TypeCommentUpdate           = "comment-update"
	TypeCommentDelete           = "comment-delete"
	TypeCommentLikeUpdate       = "comment-like-update"
	TypeUnreadRepliesUpdate     = "unread-replies-update"
	TypeNewNotification         = "new-notification"
	TypeNotificationUpdate      = "notification-update"
	TypeUnreadNotificationCount = "unread-notification-count"
)

type CommentPayload struct {
	Comment dto.CommentResponse `json:"comment"`
}

type CommentDeletePayload struct {
	CommentID uint `json:"commentId"`
}

type CommentLikePayload struct {
	CommentID uint  `json:"commentId"`
	LikeCount int64 `json:"likeCount"`
}

type UnreadRepliesPayload struct {
	PostID      uint  `json:"postId"`
	UnreadCount int64 `json:"unreadCount"`
}

type NewNotificationPayload struct {
	Notification dto.NotificationResponse `json:"notification"`
}

// NotificationUpdates lists the fields a notification-update patches.
type NotificationUpdates struct {
	Read *bool `json:"read,omitempty"`
}

type NotificationUpdatePayload struct {
	NotificationID uint                `json:"notificationId"`
	Updates        NotificationUpdates `json:"updates"`
}

type UnreadCountPayload struct {
	Count int64 `json:"count"`
}

// Publisher pushes one event to an audience. Implementations are
// fire-and-forget and must never block the caller on delivery.
type Publisher interface {
	Publish(audience Audience, eventType string, payload any)
}

// NopPublisher discards everything.
type NopPublisher struct{}

func (NopPublisher) Publish(Audience, string, any) {}

// ============================================================================
// Frames
// ============================================================================

// Encode renders payload as a flat JSON object with an added "type" field.
func Encode(eventType string, payload any) ([]byte, error) {
	fields := map[string]json.RawMessage{}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal %s payload: %w", eventType, err)
		}
		if err := json.Unmarshal(raw, &fields); err != nil {
			return nil, fmt.Errorf("%s payload is not a JSON object: %w", eventType, err)
		}
	}
	typ, _ := json.Marshal(eventType)
	fields["type"] = typ
	return json.Marshal(fields)
}

// Frame is a decoded event whose payload is read lazily.
type Frame struct {
	Type string
	raw  []byte
}

var ErrMissingType = errors.New("event frame has no type")

func Decode(data []byte) (Frame, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return Frame{}, fmt.Errorf("failed to decode event frame: %w", err)
	}
	if head.Type == "" {
		return Frame{}, ErrMissingType
	}
	return Frame{Type: head.Type, raw: data}, nil
}

// Payload unmarshals the frame into one of the payload structs.
func (f Frame) Payload(v any) error {
	return json.Unmarshal(f.raw, v)
}

// ============================================================================
// Control messages (client -> server)
// ============================================================================

const (
	ActionJoinPost  = "join-post"
	ActionLeavePost = "leave-post"
)

type ControlMessage struct {
	Action string          `json:"action"`
	Data   json.RawMessage `json:"data"`
}

type PostRoomData struct {
	PostID uint `json:"postId"`
}

func EncodeControl(action string, postID uint) ([]byte, error) {
	data, err := json.Marshal(PostRoomData{PostID: postID})
	if err != nil {
		return nil, err
	}
	return json.Marshal(ControlMessage{Action: action, Data: data})
}
