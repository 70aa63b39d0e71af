package domain

import (
	"errors"
	"time"

	"github.com/quizdeck/quizdeck-backend/internal/store"
)

const Collection = "orders"

const (
	StatusPending   = "pending"
	StatusKeyIssued = "key_issued"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

var (
	ErrOrderNotFound = errors.New("order not found")
	ErrEmptyCart     = errors.New("order cart is empty")
	ErrInvalidStatus = errors.New("invalid order status")
)

type Cart struct {
	Subjects []string `json:"subjects"`
	Courses  []string `json:"courses"`
}

type Order struct {
	ID             string    `json:"id"`
	UserID         string    `json:"userId"`
	Cart           Cart      `json:"cart"`
	PaymentMethod  string    `json:"paymentMethod"`
	Amount         float64   `json:"amount"`
	Status         string    `json:"status"`
	QuizCount      int       `json:"quizCount"`
	EstimatedValue float64   `json:"estimatedValue"`
	AccessKeyID    string    `json:"accessKeyId,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

func ValidStatus(s string) bool {
	switch s {
	case StatusPending, StatusKeyIssued, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// FromDoc decodes a stored order document.
func FromDoc(doc store.Document) Order {
	o := Order{
		ID:             doc.ID,
		UserID:         doc.String("userId"),
		PaymentMethod:  doc.String("paymentMethod"),
		Status:         doc.String("status"),
		AccessKeyID:    doc.String("accessKeyId"),
		Amount:         docFloat(doc, "amount"),
		EstimatedValue: docFloat(doc, "estimatedValue"),
		QuizCount:      int(docFloat(doc, "quizCount")),
	}
	if created, ok := doc.Time("createdAt"); ok {
		o.CreatedAt = created
	}
	if cart := doc.Map("cart"); cart != nil {
		o.Cart = Cart{
			Subjects: store.Document{Data: cart}.Strings("subjects"),
			Courses:  store.Document{Data: cart}.Strings("courses"),
		}
	}
	return o
}

// Firestore hands numbers back as int64 or float64 depending on how they
// were written; accept both.
func docFloat(doc store.Document, field string) float64 {
	switch v := doc.Data[field].(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	case int:
		return float64(v)
	}
	return 0
}
