package auth

import (
	"net/http/httptest"
	"testing"
	"time"

	"forum_backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenManager_RoundTrip(t *testing.T) {
	m := NewTokenManager("secret", time.Hour)

	token, err := m.GenerateToken(42, true)
	require.NoError(t, err)

	claims, err := m.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.True(t, claims.IsAdmin)
}

func TestTokenManager_RejectsForeignSignature(t *testing.T) {
	token, err := NewTokenManager("other", time.Hour).GenerateToken(1, false)
	require.NoError(t, err)

	_, err = NewTokenManager("secret", time.Hour).ParseToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenManager_RejectsExpired(t *testing.T) {
	m := NewTokenManager("secret", time.Minute)
	m.now = func() time.Time { return time.Now().Add(-time.Hour) }
	token, err := m.GenerateToken(1, false)
	require.NoError(t, err)

	m.now = time.Now
	_, err = m.ParseToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenFromRequest(t *testing.T) {
	r := httptest.NewRequest("GET", "/ws?token=from-query", nil)
	assert.Equal(t, "from-query", TokenFromRequest(r))

	r.Header.Set("Authorization", "Bearer from-header")
	assert.Equal(t, "from-header", TokenFromRequest(r))

	r = httptest.NewRequest("GET", "/ws", nil)
	assert.Empty(t, TokenFromRequest(r))
}

func TestPermissions(t *testing.T) {
	authorID := uint(1)
	comment := &models.Comment{AuthorID: &authorID}
	author := &models.User{BaseModel: models.BaseModel{ID: 1}, SelectedSubreddit: "golang"}
	stranger := &models.User{BaseModel: models.BaseModel{ID: 2}, SelectedSubreddit: "rust"}
	admin := &models.User{BaseModel: models.BaseModel{ID: 3}, IsAdmin: true}

	assert.True(t, CanAccessSubreddit(author, "golang"))
	assert.False(t, CanAccessSubreddit(stranger, "golang"))
	assert.True(t, CanAccessSubreddit(admin, "golang"))

	assert.True(t, CanEditComment(author.ID, comment, false))
	assert.False(t, CanEditComment(stranger.ID, comment, false))
	assert.True(t, CanEditComment(stranger.ID, comment, true))
	// admins can delete but not edit other people's words
	assert.False(t, CanEditComment(admin.ID, comment, false))

	assert.True(t, CanDeleteComment(author, comment, false))
	assert.False(t, CanDeleteComment(stranger, comment, false))
	assert.True(t, CanDeleteComment(stranger, comment, true))
	assert.True(t, CanDeleteComment(admin, comment, false))
}
