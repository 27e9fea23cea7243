package services

import "forum_backend/internal/events"

// ServiceContainer holds every service of the application.
type ServiceContainer struct {
	CommentService      CommentService
	NotificationService NotificationService
	UnreadService       UnreadService
}

// NewServiceContainer wires the services over one set of repositories and a
// single realtime publisher.
func NewServiceContainer(repos *Repositories, publisher events.Publisher, opts ...Option) *ServiceContainer {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	unread := NewUnreadService(repos, publisher, opts...)
	return &ServiceContainer{
		CommentService:      NewCommentService(repos, publisher, unread, opts...),
		NotificationService: NewNotificationService(repos, publisher, unread, opts...),
		UnreadService:       unread,
	}
}
