package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/quizdeck/quizdeck-backend/internal/apperrors"
	"github.com/quizdeck/quizdeck-backend/internal/auth"
	"github.com/quizdeck/quizdeck-backend/internal/roles/domain"
	"github.com/quizdeck/quizdeck-backend/internal/roles/service"
	usersdomain "github.com/quizdeck/quizdeck-backend/internal/users/domain"
)

type Handler struct {
	roles *service.Service
}

func NewHandler(roles *service.Service) *Handler {
	return &Handler{roles: roles}
}

type grantRoleRequest struct {
	UID       string     `json:"uid" binding:"required"`
	Role      string     `json:"role" binding:"required"`
	Reason    string     `json:"reason,omitempty"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

// GrantRole changes a user's role. Admins cannot change their own role; that
// check lives here, not in the service.
func (h *Handler) GrantRole(c *gin.Context) {
	actor := auth.UserFirebaseUID(c)
	if actor == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	var body grantRoleRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if body.UID == actor {
		status, norm := apperrors.HTTPStatus(domain.ErrSelfGrant)
		c.JSON(status, gin.H{"error": norm})
		return
	}

	change, err := h.roles.GrantRole(c.Request.Context(), service.GrantRoleRequest{
		UID:       body.UID,
		Role:      usersdomain.Role(body.Role),
		GrantedBy: actor,
		Reason:    body.Reason,
		ExpiresAt: body.ExpiresAt,
	})
	if err != nil {
		status, norm := apperrors.HTTPStatus(err)
		c.JSON(status, gin.H{"error": norm})
		return
	}

	c.JSON(http.StatusOK, gin.H{"roleChange": change})
}

// ListChanges returns the role change log for one user.
func (h *Handler) ListChanges(c *gin.Context) {
	uid := c.Param("uid")
	if uid == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "uid is required"})
		return
	}

	changes, err := h.roles.ListChanges(c.Request.Context(), uid)
	if err != nil {
		status, norm := apperrors.HTTPStatus(err)
		c.JSON(status, gin.H{"error": norm})
		return
	}
	c.JSON(http.StatusOK, gin.H{"roleChanges": changes, "count": len(changes)})
}
