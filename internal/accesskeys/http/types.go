package http

import "github.com/quizdeck/quizdeck-backend/internal/accesskeys/domain"

type createKeyRequest struct {
	UnlocksCapability string       `json:"unlocksCapability,omitempty"`
	CartToUnlock      *domain.Cart `json:"cartToUnlock,omitempty"`
	OrderID           string       `json:"orderId,omitempty"`
}

type redeemKeyRequest struct {
	Key string `json:"key" binding:"required"`
}
