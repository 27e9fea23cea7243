package apperrors

import (
	"net/http"
)

// ErrNotFound wraps a repository miss into a 404.
func ErrNotFound(err error) *AppError {
	return Wrap(err, CodeNotFound, "resource", "Resource not found", http.StatusNotFound)
}

// ErrConflict wraps a uniqueness or state conflict into a 409.
func ErrConflict(err error, domain, message string) *AppError {
	return Wrap(err, CodeConflict, domain, message, http.StatusConflict)
}

func ErrInvalidOperation(domain, message string) *AppError {
	return New(CodeInvalidOperation, domain, message, http.StatusBadRequest)
}

// --- Posts ---

var ErrPostNotFound = New(
	CodeNotFound,
	"post",
	"Post not found",
	http.StatusNotFound,
)

// ErrSubredditMismatch is returned when the caller has a different subreddit
// selected than the one the post lives in. Admins bypass the check.
var ErrSubredditMismatch = New(
	CodeUnauthorized,
	"subreddit",
	"You are not authorized to access this subreddit",
	http.StatusUnauthorized,
)

// --- Comments ---

var ErrCommentNotFound = New(
	CodeNotFound,
	"comment",
	"Comment not found",
	http.StatusNotFound,
)

var ErrParentCommentNotFound = New(
	CodeNotFound,
	"comment",
	"Parent comment not found on this post",
	http.StatusNotFound,
)

// ErrCommentDeleted is returned for any mutation of a tombstoned comment.
var ErrCommentDeleted = New(
	CodeConflict,
	"comment",
	"Comment has been deleted",
	http.StatusConflict,
)

var ErrNotCommentOwner = New(
	CodeForbidden,
	"comment",
	"You do not have permission to modify this comment",
	http.StatusForbidden,
)

// --- Notifications ---

var ErrNotificationNotFound = New(
	CodeNotFound,
	"notification",
	"Notification not found",
	http.StatusNotFound,
)

// --- Auth ---

var ErrInvalidToken = New(
	CodeInvalidToken,
	"auth",
	"Invalid or expired token",
	http.StatusUnauthorized,
)

var ErrUserNotFound = New(
	CodeNotFound,
	"user",
	"User not found",
	http.StatusNotFound,
)
