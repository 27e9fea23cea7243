package handlers

import (
	"forum_backend/internal/services"
	"forum_backend/internal/validator"
)

// AppHandlers holds every REST handler of the application.
type AppHandlers struct {
	CommentHandler      *CommentHandler
	NotificationHandler *NotificationHandler
	PostHandler         *PostHandler
}

func NewAppHandlers(container *services.ServiceContainer, v *validator.Validator) *AppHandlers {
	base := NewBaseHandler(v)
	return &AppHandlers{
		CommentHandler:      NewCommentHandler(base, container.CommentService),
		NotificationHandler: NewNotificationHandler(base, container.NotificationService),
		PostHandler:         NewPostHandler(base, container.UnreadService),
	}
}
