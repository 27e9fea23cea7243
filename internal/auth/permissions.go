package auth

import "forum_backend/internal/models"

// CanAccessSubreddit: a user may act on posts of the subreddit they have
// selected. Admins may act anywhere.
func CanAccessSubreddit(user *models.User, subredditName string) bool {
	if user == nil {
		return false
	}
	return user.IsAdmin || user.SelectedSubreddit == subredditName
}

// CanEditComment: the author, or a moderator of the post's subreddit.
func CanEditComment(userID uint, comment *models.Comment, isModerator bool) bool {
	return comment.AuthoredBy(userID) || isModerator
}

// CanDeleteComment: the author, an admin, or a moderator of the post's subreddit.
func CanDeleteComment(user *models.User, comment *models.Comment, isModerator bool) bool {
	if user == nil {
		return false
	}
	return comment.AuthoredBy(user.ID) || user.IsAdmin || isModerator
}
