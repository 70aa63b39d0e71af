package http

import "github.com/gin-gonic/gin"

// Register mounts the user-facing redemption route on rg and the admin key
// management routes on admin.
func (h *Handler) Register(rg, admin *gin.RouterGroup) {
	rg.POST("/access-keys/redeem", h.RedeemKey)

	admin.POST("/access-keys", h.CreateKey)
	admin.GET("/access-keys", h.ListKeys)
	admin.GET("/access-keys/:key", h.GetKey)
}
