package service

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/quizdeck/quizdeck-backend/internal/activity"
	"github.com/quizdeck/quizdeck-backend/internal/orders/domain"
	"github.com/quizdeck/quizdeck-backend/internal/store"
)

// Service implements order creation and the admin read paths. An order and
// its audit entry commit in one transaction.
type Service struct {
	store    store.Store
	exec     *store.Executor
	activity *activity.Recorder
}

func NewService(st store.Store, exec *store.Executor, recorder *activity.Recorder) *Service {
	return &Service{store: st, exec: exec, activity: recorder}
}

type CreateOrderRequest struct {
	UserID        string
	Cart          domain.Cart
	PaymentMethod string
	Amount        float64
}

func (s *Service) CreateOrder(ctx context.Context, req CreateOrderRequest) (*domain.Order, error) {
	quizCount := len(req.Cart.Subjects) + len(req.Cart.Courses)
	if quizCount == 0 {
		return nil, domain.ErrEmptyCart
	}

	orderID := uuid.New().String()
	order := domain.Order{
		ID:             orderID,
		UserID:         req.UserID,
		Cart:           req.Cart,
		PaymentMethod:  req.PaymentMethod,
		Amount:         req.Amount,
		Status:         domain.StatusPending,
		QuizCount:      quizCount,
		EstimatedValue: req.Amount,
	}

	err := s.exec.Execute(ctx, func(ctx context.Context, tx store.Tx) error {
		if err := tx.Create(ctx, domain.Collection, orderID, map[string]interface{}{
			"userId": order.UserID,
			"cart": map[string]interface{}{
				"subjects": order.Cart.Subjects,
				"courses":  order.Cart.Courses,
			},
			"paymentMethod":  order.PaymentMethod,
			"amount":         order.Amount,
			"status":         order.Status,
			"quizCount":      order.QuizCount,
			"estimatedValue": order.EstimatedValue,
			"createdAt":      store.ServerTimestamp,
		}); err != nil {
			return err
		}

		return s.activity.RecordTx(ctx, tx, activity.Entry{
			UID:    order.UserID,
			Action: "order_created",
			Details: map[string]interface{}{
				"orderId":   orderID,
				"quizCount": order.QuizCount,
			},
		})
	}, nil)
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (s *Service) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	doc, err := s.store.Get(ctx, domain.Collection, orderID)
	if err != nil {
		return nil, err
	}
	if !doc.Exists {
		return nil, domain.ErrOrderNotFound
	}
	order := domain.FromDoc(doc)
	return &order, nil
}

// ListByUser returns a user's orders, newest first.
func (s *Service) ListByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	docs, err := s.store.List(ctx, domain.Collection)
	if err != nil {
		return nil, err
	}
	orders := make([]domain.Order, 0)
	for _, doc := range docs {
		order := domain.FromDoc(doc)
		if userID != "" && order.UserID != userID {
			continue
		}
		orders = append(orders, order)
	}
	sort.Slice(orders, func(i, j int) bool {
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
	return orders, nil
}

// UpdateStatus moves an order through its lifecycle.
func (s *Service) UpdateStatus(ctx context.Context, orderID, status string) (*domain.Order, error) {
	if !domain.ValidStatus(status) {
		return nil, domain.ErrInvalidStatus
	}

	err := s.exec.Execute(ctx, func(ctx context.Context, tx store.Tx) error {
		doc, err := tx.Get(ctx, domain.Collection, orderID)
		if err != nil {
			return err
		}
		if !doc.Exists {
			return domain.ErrOrderNotFound
		}
		return tx.Update(ctx, domain.Collection, orderID, map[string]interface{}{
			"status":    status,
			"updatedAt": store.ServerTimestamp,
		})
	}, nil)
	if err != nil {
		return nil, err
	}
	return s.GetOrder(ctx, orderID)
}
