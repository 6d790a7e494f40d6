package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"lumenstage/api/internal/apperr"
	"lumenstage/api/internal/ids"
	"lumenstage/api/internal/middleware"
	"lumenstage/api/internal/models"
	"lumenstage/api/internal/repository"
)

type postResponse struct {
	ID          string     `json:"id"`
	Slug        string     `json:"slug"`
	Title       string     `json:"title"`
	Excerpt     string     `json:"excerpt"`
	Body        string     `json:"body,omitempty"`
	AuthorID    string     `json:"authorId"`
	PublishedAt *time.Time `json:"publishedAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

func toPostResponse(p models.Post, includeBody bool) postResponse {
	resp := postResponse{
		ID:          p.ID,
		Slug:        p.Slug,
		Title:       p.Title,
		Excerpt:     p.Excerpt,
		AuthorID:    p.AuthorID,
		PublishedAt: p.PublishedAt,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
	if includeBody {
		resp.Body = p.Body
	}
	return resp
}

func (h HandlerSet) ListPosts(c *gin.Context) {
	limit, offset := pagination(c)

	posts, err := h.posts.List(c.Request.Context(), true, limit, offset)
	if err != nil {
		h.fail(c, err)
		return
	}

	items := make([]postResponse, 0, len(posts))
	for _, p := range posts {
		items = append(items, toPostResponse(p, false))
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h HandlerSet) GetPost(c *gin.Context) {
	post, err := h.posts.GetBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil || post.PublishedAt == nil {
		if errors.Is(err, repository.ErrPostNotFound) || err == nil {
			h.fail(c, apperr.ErrNotFound)
			return
		}
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"post": toPostResponse(post, true)})
}

type postRequest struct {
	Slug      string `json:"slug" binding:"required"`
	Title     string `json:"title" binding:"required"`
	Excerpt   string `json:"excerpt"`
	Body      string `json:"body"`
	Published bool   `json:"published"`
}

func (h HandlerSet) AdminCreatePost(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		h.fail(c, apperr.ErrUnauthenticated)
		return
	}

	var req postRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	post := models.Post{
		ID:       ids.New(),
		Slug:     req.Slug,
		Title:    req.Title,
		Excerpt:  req.Excerpt,
		Body:     req.Body,
		AuthorID: user.ID,
	}
	if req.Published {
		now := time.Now().UTC()
		post.PublishedAt = &now
	}

	if err := h.posts.Create(c.Request.Context(), post); err != nil {
		if errors.Is(err, repository.ErrDuplicateSlug) {
			c.JSON(http.StatusConflict, gin.H{"error": "slug already in use"})
			return
		}
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"post": toPostResponse(post, true)})
}

func (h HandlerSet) AdminListPosts(c *gin.Context) {
	limit, offset := pagination(c)

	posts, err := h.posts.List(c.Request.Context(), false, limit, offset)
	if err != nil {
		h.fail(c, err)
		return
	}

	items := make([]postResponse, 0, len(posts))
	for _, p := range posts {
		items = append(items, toPostResponse(p, false))
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h HandlerSet) AdminUpdatePost(c *gin.Context) {
	var req postRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	post, err := h.posts.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrPostNotFound) {
			h.fail(c, apperr.ErrNotFound)
			return
		}
		h.fail(c, err)
		return
	}

	post.Slug = req.Slug
	post.Title = req.Title
	post.Excerpt = req.Excerpt
	post.Body = req.Body
	if req.Published && post.PublishedAt == nil {
		now := time.Now().UTC()
		post.PublishedAt = &now
	} else if !req.Published {
		post.PublishedAt = nil
	}

	if err := h.posts.Update(c.Request.Context(), post); err != nil {
		if errors.Is(err, repository.ErrDuplicateSlug) {
			c.JSON(http.StatusConflict, gin.H{"error": "slug already in use"})
			return
		}
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"post": toPostResponse(post, true)})
}

func (h HandlerSet) AdminDeletePost(c *gin.Context) {
	if err := h.posts.SoftDelete(c.Request.Context(), c.Param("id")); err != nil {
		if errors.Is(err, repository.ErrPostNotFound) {
			h.fail(c, apperr.ErrNotFound)
			return
		}
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
