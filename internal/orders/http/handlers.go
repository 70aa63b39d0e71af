package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/quizdeck/quizdeck-backend/internal/apperrors"
	"github.com/quizdeck/quizdeck-backend/internal/auth"
	"github.com/quizdeck/quizdeck-backend/internal/orders/domain"
	"github.com/quizdeck/quizdeck-backend/internal/orders/service"
)

type Handler struct {
	orders *service.Service
}

func NewHandler(orders *service.Service) *Handler {
	return &Handler{orders: orders}
}

type createOrderRequest struct {
	Cart          domain.Cart `json:"cart" binding:"required"`
	PaymentMethod string      `json:"paymentMethod"`
	Amount        float64     `json:"amount"`
}

type updateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

func (h *Handler) CreateOrder(c *gin.Context) {
	uid := auth.UserFirebaseUID(c)
	if uid == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	var body createOrderRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	order, err := h.orders.CreateOrder(c.Request.Context(), service.CreateOrderRequest{
		UserID:        uid,
		Cart:          body.Cart,
		PaymentMethod: body.PaymentMethod,
		Amount:        body.Amount,
	})
	if err != nil {
		status, norm := apperrors.HTTPStatus(err)
		c.JSON(status, gin.H{"error": norm})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"order": order})
}

func (h *Handler) ListMyOrders(c *gin.Context) {
	uid := auth.UserFirebaseUID(c)
	if uid == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	orders, err := h.orders.ListByUser(c.Request.Context(), uid)
	if err != nil {
		status, norm := apperrors.HTTPStatus(err)
		c.JSON(status, gin.H{"error": norm})
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders, "count": len(orders)})
}

func (h *Handler) GetOrder(c *gin.Context) {
	order, err := h.orders.GetOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		status, norm := apperrors.HTTPStatus(err)
		c.JSON(status, gin.H{"error": norm})
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order})
}

// UpdateStatus is an admin operation moving an order through its lifecycle.
func (h *Handler) UpdateStatus(c *gin.Context) {
	var body updateStatusRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	order, err := h.orders.UpdateStatus(c.Request.Context(), c.Param("id"), body.Status)
	if err != nil {
		status, norm := apperrors.HTTPStatus(err)
		c.JSON(status, gin.H{"error": norm})
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order})
}
