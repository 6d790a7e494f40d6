package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"lumenstage/api/internal/apperr"
	"lumenstage/api/internal/middleware"
	"lumenstage/api/internal/repository"
)

type mediaResponse struct {
	ID          string    `json:"id"`
	FileName    string    `json:"fileName"`
	ContentType string    `json:"contentType"`
	SizeBytes   int64     `json:"sizeBytes"`
	URL         string    `json:"url"`
	CreatedAt   time.Time `json:"createdAt"`
}

func (h HandlerSet) AdminUploadMedia(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		h.fail(c, apperr.ErrUnauthenticated)
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file field required"})
		return
	}
	defer file.Close()

	result, err := h.media.Upload(c.Request.Context(), user, file, header)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"media": mediaResponse{
		ID:          result.Media.ID,
		FileName:    result.Media.FileName,
		ContentType: result.Media.ContentType,
		SizeBytes:   result.Media.SizeBytes,
		URL:         result.URL,
		CreatedAt:   result.Media.CreatedAt,
	}})
}

func (h HandlerSet) AdminListMedia(c *gin.Context) {
	limit, offset := pagination(c)

	items, err := h.mediaRepo.List(c.Request.Context(), limit, offset)
	if err != nil {
		h.fail(c, err)
		return
	}

	resp := make([]mediaResponse, 0, len(items))
	for _, item := range items {
		resp = append(resp, mediaResponse{
			ID:          item.ID,
			FileName:    item.FileName,
			ContentType: item.ContentType,
			SizeBytes:   item.SizeBytes,
			URL:         h.media.PublicURL(item),
			CreatedAt:   item.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"items": resp})
}

func (h HandlerSet) AdminDeleteMedia(c *gin.Context) {
	if err := h.media.Delete(c.Request.Context(), c.Param("id")); err != nil {
		if errors.Is(err, repository.ErrMediaNotFound) {
			h.fail(c, apperr.ErrNotFound)
			return
		}
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
