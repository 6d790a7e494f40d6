package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type pageViewRequest struct {
	Path     string `json:"path" binding:"required,max=2048"`
	Referrer string `json:"referrer" binding:"max=2048"`
}

func (h HandlerSet) RecordPageView(c *gin.Context) {
	var req pageViewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := h.analytics.Record(c.Request.Context(), req.Path, req.Referrer, c.GetHeader("User-Agent"), c.ClientIP())
	if err != nil {
		h.fail(c, err)
		return
	}

	c.Status(http.StatusAccepted)
}

func (h HandlerSet) AdminAnalyticsSummary(c *gin.Context) {
	to := time.Now().UTC()
	from := to.AddDate(0, 0, -30)

	if v := c.Query("from"); v != "" {
		if parsed, err := time.Parse("2006-01-02", v); err == nil {
			from = parsed
		}
	}
	if v := c.Query("to"); v != "" {
		if parsed, err := time.Parse("2006-01-02", v); err == nil {
			to = parsed
		}
	}

	summary, err := h.analytics.Summary(c.Request.Context(), from, to)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"summary": summary})
}
