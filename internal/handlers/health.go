package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Health reports dependency reachability. It always answers 200; a load
// balancer that only needs liveness can ignore the component fields.
func (h HandlerSet) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	components := gin.H{
		"database": componentStatus(h.db.Ping(ctx)),
		"cache":    componentStatus(h.cache.Ping(ctx).Err()),
	}

	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"environment": h.cfg.Environment,
		"components":  components,
	})
}

func componentStatus(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
