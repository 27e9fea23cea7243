package handlers

import (
	"net/http"

	"forum_backend/internal/services"

	"github.com/gin-gonic/gin"
)

// PostHandler exposes the per-user read state of a post.
type PostHandler struct {
	*BaseHandler
	unreadService services.UnreadService
}

func NewPostHandler(base *BaseHandler, unreadService services.UnreadService) *PostHandler {
	return &PostHandler{
		BaseHandler:   base,
		unreadService: unreadService,
	}
}

func (h *PostHandler) RegisterRoutes(r *gin.RouterGroup, authMW gin.HandlerFunc) {
	posts := r.Group("/posts")
	posts.Use(authMW)
	{
		posts.POST("/:id/view", h.MarkPostAsViewed)
		posts.GET("/:id/unread", h.GetUnreadReplies)
	}
}

func (h *PostHandler) MarkPostAsViewed(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}
	postID, err := ParseParamUint(c, "id")
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	response, err := h.unreadService.MarkPostAsViewed(c.Request.Context(), h.GetDB(c), userID, postID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

func (h *PostHandler) GetUnreadReplies(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}
	postID, err := ParseParamUint(c, "id")
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	response, err := h.unreadService.GetPostUnread(c.Request.Context(), h.GetDB(c), userID, postID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}
