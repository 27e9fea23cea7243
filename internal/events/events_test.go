package events

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAudiences(t *testing.T) {
	assert.Equal(t, Audience("post:7"), PostAudience(7))
	assert.Equal(t, Audience("user:3"), UserAudience(3))
}

func TestEncode_FlattensPayloadWithType(t *testing.T) {
	frame, err := Encode(TypeUnreadRepliesUpdate, UnreadRepliesPayload{PostID: 5, UnreadCount: 2})
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(frame, &got))
	assert.Equal(t, map[string]any{
		"type":        "unread-replies-update",
		"postId":      float64(5),
		"unreadCount": float64(2),
	}, got)
}

func TestEncode_RejectsNonObjectPayload(t *testing.T) {
	_, err := Encode(TypeCommentDelete, 12)
	assert.Error(t, err)
}

func TestDecode(t *testing.T) {
	frame, err := Encode(TypeCommentDelete, CommentDeletePayload{CommentID: 9})
	require.NoError(t, err)

	decoded, err := Decode(frame)
	require.NoError(t, err)
	assert.Equal(t, TypeCommentDelete, decoded.Type)

	var payload CommentDeletePayload
	require.NoError(t, decoded.Payload(&payload))
	assert.Equal(t, uint(9), payload.CommentID)

	_, err = Decode([]byte(`{"commentId":1}`))
	assert.ErrorIs(t, err, ErrMissingType)
}

func TestEncodeControl(t *testing.T) {
	raw, err := EncodeControl(ActionJoinPost, 4)
	require.NoError(t, err)
	assert.JSONEq(t, `{"action":"join-post","data":{"postId":4}}`, string(raw))
}
