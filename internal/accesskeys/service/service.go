package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/quizdeck/quizdeck-backend/internal/accesskeys/domain"
	"github.com/quizdeck/quizdeck-backend/internal/activity"
	ordersdomain "github.com/quizdeck/quizdeck-backend/internal/orders/domain"
	usersdomain "github.com/quizdeck/quizdeck-backend/internal/users/domain"
	"github.com/quizdeck/quizdeck-backend/internal/store"
)

// KeyGenerationAttempts bounds how many candidate keys are tried before the
// operation gives up.
const KeyGenerationAttempts = 5

// errCandidateTaken aborts a create transaction when the candidate id is
// already stored. Callers of the generation loop never see it.
var errCandidateTaken = errors.New("candidate key already exists")

// Service implements the access key operations. Every multi-document write
// happens inside one store transaction run through the executor.
type Service struct {
	store    store.Store
	exec     *store.Executor
	activity *activity.Recorder

	// genKey produces candidate key strings; swapped out in tests to force
	// collisions.
	genKey func() (string, error)
}

func NewService(st store.Store, exec *store.Executor, recorder *activity.Recorder) *Service {
	return &Service{
		store:    st,
		exec:     exec,
		activity: recorder,
		genKey:   domain.NewKey,
	}
}

// CreateKeyRequest carries the metadata for a new access key. Exactly one of
// UnlocksCapability and CartToUnlock must be set.
type CreateKeyRequest struct {
	UnlocksCapability string
	CartToUnlock      *domain.Cart
	OrderID           string
	CreatedBy         string
}

// GenerateKey creates a new unique access key. The existence check and the
// create run in the same transaction, so two concurrent calls landing on the
// same candidate cannot both commit; the loser moves on to a fresh candidate.
// When OrderID is set, linking the order commits atomically with the key.
func (s *Service) GenerateKey(ctx context.Context, req CreateKeyRequest) (*domain.AccessKey, error) {
	hasCapability := req.UnlocksCapability != ""
	hasCart := req.CartToUnlock != nil && len(req.CartToUnlock.QuizIDs()) > 0
	if hasCapability == hasCart {
		return nil, domain.ErrInvalidUnlock
	}

	for attempt := 1; attempt <= KeyGenerationAttempts; attempt++ {
		candidate, err := s.genKey()
		if err != nil {
			return nil, fmt.Errorf("generate candidate key: %w", err)
		}

		err = s.exec.Execute(ctx, func(ctx context.Context, tx store.Tx) error {
			return s.createKeyTx(ctx, tx, candidate, req)
		}, nil)

		if err == nil {
			s.activity.Record(ctx, activity.Entry{
				UID:    req.CreatedBy,
				Action: "access_key_created",
				Details: map[string]interface{}{
					"key":     candidate,
					"orderId": req.OrderID,
				},
			})
			doc, err := s.store.Get(ctx, domain.Collection, candidate)
			if err != nil {
				return nil, err
			}
			key := domain.FromDoc(doc)
			return &key, nil
		}

		// A taken candidate, whether we saw it in the read or lost the create
		// race, just means trying the next candidate.
		if errors.Is(err, errCandidateTaken) || store.IsAlreadyExists(err) {
			log.Printf("[warn] operation=generate_key attempt=%d message=candidate collision", attempt)
			continue
		}
		return nil, err
	}

	return nil, domain.ErrKeyGenerationExhausted
}

func (s *Service) createKeyTx(ctx context.Context, tx store.Tx, candidate string, req CreateKeyRequest) error {
	// All reads precede writes, as the store's transactions require.
	var orderDoc store.Document
	if req.OrderID != "" {
		var err error
		orderDoc, err = tx.Get(ctx, ordersdomain.Collection, req.OrderID)
		if err != nil {
			return err
		}
		if !orderDoc.Exists {
			return ordersdomain.ErrOrderNotFound
		}
	}

	keyDoc, err := tx.Get(ctx, domain.Collection, candidate)
	if err != nil {
		return err
	}
	if keyDoc.Exists {
		return errCandidateTaken
	}

	data := map[string]interface{}{
		"status":    domain.StatusNew,
		"createdAt": store.ServerTimestamp,
		"createdBy": req.CreatedBy,
	}
	if req.UnlocksCapability != "" {
		data["unlocksCapability"] = req.UnlocksCapability
	}
	if req.CartToUnlock != nil {
		data["cartToUnlock"] = map[string]interface{}{
			"subjects": req.CartToUnlock.Subjects,
			"courses":  req.CartToUnlock.Courses,
		}
	}
	if req.OrderID != "" {
		data["orderId"] = req.OrderID
	}

	if err := tx.Create(ctx, domain.Collection, candidate, data); err != nil {
		return err
	}

	if req.OrderID != "" {
		return tx.Update(ctx, ordersdomain.Collection, req.OrderID, map[string]interface{}{
			"accessKeyId": candidate,
			"status":      ordersdomain.StatusKeyIssued,
			"updatedAt":   store.ServerTimestamp,
		})
	}
	return nil
}

// RedeemResult describes the effect of a successful redemption.
type RedeemResult struct {
	Key              string   `json:"key"`
	CanCreateQuizzes bool     `json:"canCreateQuizzes"`
	UnlockedQuizzes  []string `json:"unlockedQuizzes,omitempty"`
}

// RedeemKey consumes an access key for uid. The status check and the state
// transition share one transaction, so concurrent redemptions of the same
// key have exactly one winner; losers observe ErrKeyAlreadyUsed.
func (s *Service) RedeemKey(ctx context.Context, rawKey, uid string) (*RedeemResult, error) {
	key := domain.Normalize(rawKey)
	if key == "" {
		return nil, domain.ErrMissingKey
	}
	if uid == "" {
		return nil, usersdomain.ErrUserNotFound
	}

	var result RedeemResult
	err := s.exec.Execute(ctx, func(ctx context.Context, tx store.Tx) error {
		keyDoc, err := tx.Get(ctx, domain.Collection, key)
		if err != nil {
			return err
		}
		if !keyDoc.Exists {
			return domain.ErrKeyNotFound
		}
		accessKey := domain.FromDoc(keyDoc)
		if accessKey.Status != domain.StatusNew {
			return domain.ErrKeyAlreadyUsed
		}

		userDoc, err := tx.Get(ctx, usersdomain.Collection, uid)
		if err != nil {
			return err
		}
		if !userDoc.Exists {
			return usersdomain.ErrUserNotFound
		}

		result = RedeemResult{Key: key}
		userUpdate := map[string]interface{}{
			"lastAccessKeyUsed": key,
		}
		if accessKey.UnlocksCapability == domain.CapabilityTeacherQuizCreation {
			userUpdate["canCreateQuizzes"] = true
			result.CanCreateQuizzes = true
		}
		if quizIDs := accessKey.CartToUnlock.QuizIDs(); len(quizIDs) > 0 {
			elems := make([]interface{}, len(quizIDs))
			for i, id := range quizIDs {
				elems[i] = id
			}
			userUpdate["unlockedQuizzes"] = store.ArrayUnion(elems...)
			result.UnlockedQuizzes = quizIDs
		}

		if err := tx.Update(ctx, usersdomain.Collection, uid, userUpdate); err != nil {
			return err
		}
		if err := tx.Update(ctx, domain.Collection, key, map[string]interface{}{
			"status": domain.StatusRedeemed,
			"usedBy": uid,
			"usedAt": store.ServerTimestamp,
		}); err != nil {
			return err
		}

		return s.activity.RecordTx(ctx, tx, activity.Entry{
			UID:     uid,
			Action:  "access_key_redeemed",
			Details: map[string]interface{}{"key": key},
		})
	}, nil)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// GetKey fetches one key for the admin dashboard.
func (s *Service) GetKey(ctx context.Context, rawKey string) (*domain.AccessKey, error) {
	key := domain.Normalize(rawKey)
	if key == "" {
		return nil, domain.ErrMissingKey
	}
	doc, err := s.store.Get(ctx, domain.Collection, key)
	if err != nil {
		return nil, err
	}
	if !doc.Exists {
		return nil, domain.ErrKeyNotFound
	}
	accessKey := domain.FromDoc(doc)
	return &accessKey, nil
}

// ListKeys returns all keys, optionally filtered by status.
func (s *Service) ListKeys(ctx context.Context, status string) ([]domain.AccessKey, error) {
	docs, err := s.store.List(ctx, domain.Collection)
	if err != nil {
		return nil, err
	}
	keys := make([]domain.AccessKey, 0, len(docs))
	for _, doc := range docs {
		key := domain.FromDoc(doc)
		if status != "" && key.Status != status {
			continue
		}
		keys = append(keys, key)
	}
	return keys, nil
}
