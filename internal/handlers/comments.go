package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"lumenstage/api/internal/apperr"
	"lumenstage/api/internal/ids"
	"lumenstage/api/internal/models"
	"lumenstage/api/internal/repository"
)

type commentResponse struct {
	ID         string    `json:"id"`
	AuthorName string    `json:"authorName"`
	Body       string    `json:"body"`
	Status     string    `json:"status,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

func (h HandlerSet) ListComments(c *gin.Context) {
	post, err := h.posts.GetBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil || post.PublishedAt == nil {
		h.fail(c, apperr.ErrNotFound)
		return
	}

	comments, err := h.comments.ListByPost(c.Request.Context(), post.ID, models.CommentStatusApproved)
	if err != nil {
		h.fail(c, err)
		return
	}

	items := make([]commentResponse, 0, len(comments))
	for _, comment := range comments {
		items = append(items, commentResponse{
			ID:         comment.ID,
			AuthorName: comment.AuthorName,
			Body:       comment.Body,
			CreatedAt:  comment.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

type createCommentRequest struct {
	AuthorName  string `json:"authorName" binding:"required"`
	AuthorEmail string `json:"authorEmail" binding:"omitempty,email"`
	Body        string `json:"body" binding:"required,max=4000"`
}

// CreateComment accepts an anonymous comment. It lands PENDING and is not
// visible until an editor approves it.
func (h HandlerSet) CreateComment(c *gin.Context) {
	post, err := h.posts.GetBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil || post.PublishedAt == nil {
		h.fail(c, apperr.ErrNotFound)
		return
	}

	var req createCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	comment := models.Comment{
		ID:          ids.New(),
		PostID:      post.ID,
		AuthorName:  req.AuthorName,
		AuthorEmail: req.AuthorEmail,
		Body:        req.Body,
		Status:      models.CommentStatusPending,
	}
	if err := h.comments.Create(c.Request.Context(), comment); err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"message": "comment submitted for review"})
}

func (h HandlerSet) AdminListPendingComments(c *gin.Context) {
	limit, offset := pagination(c)

	comments, err := h.comments.ListPending(c.Request.Context(), limit, offset)
	if err != nil {
		h.fail(c, err)
		return
	}

	items := make([]commentResponse, 0, len(comments))
	for _, comment := range comments {
		items = append(items, commentResponse{
			ID:         comment.ID,
			AuthorName: comment.AuthorName,
			Body:       comment.Body,
			Status:     string(comment.Status),
			CreatedAt:  comment.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

type moderateCommentRequest struct {
	Status string `json:"status" binding:"required,oneof=APPROVED REJECTED"`
}

func (h HandlerSet) AdminModerateComment(c *gin.Context) {
	var req moderateCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := h.comments.UpdateStatus(c.Request.Context(), c.Param("id"), models.CommentStatus(req.Status))
	if err != nil {
		if errors.Is(err, repository.ErrCommentNotFound) {
			h.fail(c, apperr.ErrNotFound)
			return
		}
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "comment updated"})
}
