package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"lumenstage/api/internal/apperr"
	"lumenstage/api/internal/ids"
	"lumenstage/api/internal/models"
	"lumenstage/api/internal/repository"
)

func pagination(c *gin.Context) (limit, offset int) {
	limit = 50
	offset = 0

	if perPage := c.Query("perPage"); perPage != "" {
		if v, err := strconv.Atoi(perPage); err == nil && v > 0 && v <= 200 {
			limit = v
		}
	}
	if page := c.Query("page"); page != "" {
		if v, err := strconv.Atoi(page); err == nil && v > 1 {
			offset = (v - 1) * limit
		}
	}
	return limit, offset
}

type projectResponse struct {
	ID         string     `json:"id"`
	Slug       string     `json:"slug"`
	Title      string     `json:"title"`
	Client     string     `json:"client"`
	Summary    string     `json:"summary"`
	Body       string     `json:"body,omitempty"`
	CoverMedia *string    `json:"coverMedia,omitempty"`
	Published  bool       `json:"published"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

func toProjectResponse(p models.Project, includeBody bool) projectResponse {
	resp := projectResponse{
		ID:         p.ID,
		Slug:       p.Slug,
		Title:      p.Title,
		Client:     p.Client,
		Summary:    p.Summary,
		CoverMedia: p.CoverMedia,
		Published:  p.Published,
		CreatedAt:  p.CreatedAt,
		UpdatedAt:  p.UpdatedAt,
	}
	if includeBody {
		resp.Body = p.Body
	}
	return resp
}

func (h HandlerSet) ListProjects(c *gin.Context) {
	limit, offset := pagination(c)

	projects, err := h.projects.List(c.Request.Context(), true, limit, offset)
	if err != nil {
		h.fail(c, err)
		return
	}

	items := make([]projectResponse, 0, len(projects))
	for _, p := range projects {
		items = append(items, toProjectResponse(p, false))
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h HandlerSet) GetProject(c *gin.Context) {
	project, err := h.projects.GetBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil || !project.Published {
		if errors.Is(err, repository.ErrProjectNotFound) || err == nil {
			h.fail(c, apperr.ErrNotFound)
			return
		}
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"project": toProjectResponse(project, true)})
}

type projectRequest struct {
	Slug       string  `json:"slug" binding:"required"`
	Title      string  `json:"title" binding:"required"`
	Client     string  `json:"client"`
	Summary    string  `json:"summary"`
	Body       string  `json:"body"`
	CoverMedia *string `json:"coverMedia"`
	Published  bool    `json:"published"`
}

func (h HandlerSet) AdminCreateProject(c *gin.Context) {
	var req projectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	project := models.Project{
		ID:         ids.New(),
		Slug:       req.Slug,
		Title:      req.Title,
		Client:     req.Client,
		Summary:    req.Summary,
		Body:       req.Body,
		CoverMedia: req.CoverMedia,
		Published:  req.Published,
	}
	if err := h.projects.Create(c.Request.Context(), project); err != nil {
		if errors.Is(err, repository.ErrDuplicateSlug) {
			c.JSON(http.StatusConflict, gin.H{"error": "slug already in use"})
			return
		}
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"project": toProjectResponse(project, true)})
}

func (h HandlerSet) AdminListProjects(c *gin.Context) {
	limit, offset := pagination(c)

	projects, err := h.projects.List(c.Request.Context(), false, limit, offset)
	if err != nil {
		h.fail(c, err)
		return
	}

	items := make([]projectResponse, 0, len(projects))
	for _, p := range projects {
		items = append(items, toProjectResponse(p, false))
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h HandlerSet) AdminUpdateProject(c *gin.Context) {
	var req projectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	project := models.Project{
		ID:         c.Param("id"),
		Slug:       req.Slug,
		Title:      req.Title,
		Client:     req.Client,
		Summary:    req.Summary,
		Body:       req.Body,
		CoverMedia: req.CoverMedia,
		Published:  req.Published,
	}
	if err := h.projects.Update(c.Request.Context(), project); err != nil {
		if errors.Is(err, repository.ErrProjectNotFound) {
			h.fail(c, apperr.ErrNotFound)
			return
		}
		if errors.Is(err, repository.ErrDuplicateSlug) {
			c.JSON(http.StatusConflict, gin.H{"error": "slug already in use"})
			return
		}
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"project": toProjectResponse(project, true)})
}

func (h HandlerSet) AdminDeleteProject(c *gin.Context) {
	if err := h.projects.SoftDelete(c.Request.Context(), c.Param("id")); err != nil {
		if errors.Is(err, repository.ErrProjectNotFound) {
			h.fail(c, apperr.ErrNotFound)
			return
		}
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
