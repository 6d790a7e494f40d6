package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"lumenstage/api/internal/models"
)

func (h HandlerSet) AdminListUsers(c *gin.Context) {
	limit, offset := pagination(c)

	users, err := h.users.List(c.Request.Context(), limit, offset)
	if err != nil {
		h.fail(c, err)
		return
	}

	items := make([]models.PublicUser, 0, len(users))
	for _, user := range users {
		items = append(items, user.Public())
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h HandlerSet) AdminSuspendUser(c *gin.Context) {
	if err := h.auth.Suspend(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "user suspended"})
}

func (h HandlerSet) AdminReactivateUser(c *gin.Context) {
	if err := h.auth.Reactivate(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "user reactivated"})
}

// AdminDeleteUser soft-deletes the account and revokes its sessions; the
// row survives for audit.
func (h HandlerSet) AdminDeleteUser(c *gin.Context) {
	if err := h.auth.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// AdminEraseUser is the GDPR erasure flow: the row is removed for good, not
// soft-deleted.
func (h HandlerSet) AdminEraseUser(c *gin.Context) {
	if err := h.auth.Erase(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
