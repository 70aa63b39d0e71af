package http

import "github.com/gin-gonic/gin"

// Register mounts order routes: creation and listing for any authenticated
// user, status management for admins.
func (h *Handler) Register(rg, admin *gin.RouterGroup) {
	rg.POST("/orders", h.CreateOrder)
	rg.GET("/orders", h.ListMyOrders)

	admin.GET("/orders/:id", h.GetOrder)
	admin.PATCH("/orders/:id/status", h.UpdateStatus)
}
