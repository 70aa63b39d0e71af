package http

import "github.com/gin-gonic/gin"

// Register mounts the role management routes on the admin group.
func (h *Handler) Register(admin *gin.RouterGroup) {
	admin.POST("/roles/grant", h.GrantRole)
	admin.GET("/roles/changes/:uid", h.ListChanges)
}
