package handlers

import (
	"context"
	"net/http"

	"forum_backend/internal/services"
	"forum_backend/internal/services/dto"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type CommentHandler struct {
	*BaseHandler
	commentService services.CommentService
}

func NewCommentHandler(base *BaseHandler, commentService services.CommentService) *CommentHandler {
	return &CommentHandler{
		BaseHandler:    base,
		commentService: commentService,
	}
}

// RegisterRoutes mounts the comment endpoints. GET /comments/:id lists the
// comments of post :id; gin needs one wildcard name per path segment.
func (h *CommentHandler) RegisterRoutes(r *gin.RouterGroup, authMW gin.HandlerFunc) {
	comments := r.Group("/comments")
	comments.Use(authMW)
	{
		comments.POST("", h.CreateComment)
		comments.GET("/:id", h.GetPostComments)
		comments.PUT("/:id", h.EditComment)
		comments.DELETE("/:id", h.DeleteComment)
		comments.POST("/:id/like", h.LikeComment)
		comments.DELETE("/:id/like", h.UnlikeComment)
	}
}

func (h *CommentHandler) CreateComment(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	var req dto.CreateCommentRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	comment, err := h.commentService.CreateComment(c.Request.Context(), h.GetDB(c), userID, &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, comment)
}

func (h *CommentHandler) GetPostComments(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}
	postID, err := ParseParamUint(c, "id")
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	response, err := h.commentService.GetPostComments(c.Request.Context(), h.GetDB(c), userID, postID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

func (h *CommentHandler) EditComment(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}
	commentID, err := ParseParamUint(c, "id")
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	var req dto.EditCommentRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	comment, err := h.commentService.EditComment(c.Request.Context(), h.GetDB(c), userID, commentID, &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, comment)
}

func (h *CommentHandler) DeleteComment(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}
	commentID, err := ParseParamUint(c, "id")
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	if err := h.commentService.DeleteComment(c.Request.Context(), h.GetDB(c), userID, commentID); err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.MessageResponse{Message: "Comment deleted"})
}

func (h *CommentHandler) LikeComment(c *gin.Context) {
	h.handleLike(c, h.commentService.LikeComment)
}

func (h *CommentHandler) UnlikeComment(c *gin.Context) {
	h.handleLike(c, h.commentService.UnlikeComment)
}

func (h *CommentHandler) handleLike(c *gin.Context, toggle func(ctx context.Context, db *gorm.DB, userID, commentID uint) (*dto.CommentLikeResponse, error)) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}
	commentID, err := ParseParamUint(c, "id")
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	response, err := toggle(c.Request.Context(), h.GetDB(c), userID, commentID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}
