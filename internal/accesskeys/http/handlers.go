package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/quizdeck/quizdeck-backend/internal/accesskeys/service"
	"github.com/quizdeck/quizdeck-backend/internal/apperrors"
	"github.com/quizdeck/quizdeck-backend/internal/auth"
)

type Handler struct {
	keys *service.Service
}

func NewHandler(keys *service.Service) *Handler {
	return &Handler{keys: keys}
}

// CreateKey mints a new access key for an admin.
func (h *Handler) CreateKey(c *gin.Context) {
	uid := auth.UserFirebaseUID(c)
	if uid == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	var body createKeyRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	key, err := h.keys.GenerateKey(c.Request.Context(), service.CreateKeyRequest{
		UnlocksCapability: body.UnlocksCapability,
		CartToUnlock:      body.CartToUnlock,
		OrderID:           body.OrderID,
		CreatedBy:         uid,
	})
	if err != nil {
		status, norm := apperrors.HTTPStatus(err)
		c.JSON(status, gin.H{"error": norm})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"accessKey": key})
}

// RedeemKey consumes a key for the authenticated user.
func (h *Handler) RedeemKey(c *gin.Context) {
	uid := auth.UserFirebaseUID(c)
	if uid == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	var body redeemKeyRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	result, err := h.keys.RedeemKey(c.Request.Context(), body.Key, uid)
	if err != nil {
		status, norm := apperrors.HTTPStatus(err)
		c.JSON(status, gin.H{"error": norm})
		return
	}

	c.JSON(http.StatusOK, gin.H{"redeemed": result})
}

// GetKey returns a single key for the admin dashboard.
func (h *Handler) GetKey(c *gin.Context) {
	key, err := h.keys.GetKey(c.Request.Context(), c.Param("key"))
	if err != nil {
		status, norm := apperrors.HTTPStatus(err)
		c.JSON(status, gin.H{"error": norm})
		return
	}
	c.JSON(http.StatusOK, gin.H{"accessKey": key})
}

// ListKeys returns keys, optionally filtered by ?status=new|redeemed.
func (h *Handler) ListKeys(c *gin.Context) {
	keys, err := h.keys.ListKeys(c.Request.Context(), c.Query("status"))
	if err != nil {
		status, norm := apperrors.HTTPStatus(err)
		c.JSON(status, gin.H{"error": norm})
		return
	}
	c.JSON(http.StatusOK, gin.H{"accessKeys": keys, "count": len(keys)})
}
