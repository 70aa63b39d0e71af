package service

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/quizdeck/quizdeck-backend/internal/activity"
	"github.com/quizdeck/quizdeck-backend/internal/cache"
	"github.com/quizdeck/quizdeck-backend/internal/roles/domain"
	"github.com/quizdeck/quizdeck-backend/internal/store"
	usersdomain "github.com/quizdeck/quizdeck-backend/internal/users/domain"
)

// Service implements role grants and the role expiry sweep. Grants are
// read-modify-write on the user document, so they run through the retrying
// executor; contention on the same user resolves by re-running.
type Service struct {
	store    store.Store
	exec     *store.Executor
	activity *activity.Recorder
	roles    *cache.Cache
}

// NewService builds the role service. roles may be nil, in which case role
// lookups always hit the store.
func NewService(st store.Store, exec *store.Executor, recorder *activity.Recorder, roles *cache.Cache) *Service {
	return &Service{
		store:    st,
		exec:     exec,
		activity: recorder,
		roles:    roles,
	}
}

type GrantRoleRequest struct {
	UID       string
	Role      usersdomain.Role
	GrantedBy string
	Reason    string
	ExpiresAt *time.Time
}

// GrantRole updates the target user's role and appends one RoleChange entry
// plus one audit entry, all in the same transaction. When no expiry is
// supplied any previous expiry is cleared.
func (s *Service) GrantRole(ctx context.Context, req GrantRoleRequest) (*domain.RoleChange, error) {
	if !usersdomain.ValidRole(req.Role) {
		return nil, domain.ErrInvalidRole
	}
	if req.UID == "" {
		return nil, usersdomain.ErrUserNotFound
	}

	changeID := uuid.New().String()
	var change domain.RoleChange

	err := s.exec.Execute(ctx, func(ctx context.Context, tx store.Tx) error {
		userDoc, err := tx.Get(ctx, usersdomain.Collection, req.UID)
		if err != nil {
			return err
		}
		if !userDoc.Exists {
			return usersdomain.ErrUserNotFound
		}
		user := usersdomain.FromDoc(userDoc)

		userUpdate := map[string]interface{}{
			"role": string(req.Role),
		}
		if req.ExpiresAt != nil {
			userUpdate["roleExpiresAt"] = *req.ExpiresAt
		} else {
			userUpdate["roleExpiresAt"] = store.DeleteField
		}
		if err := tx.Update(ctx, usersdomain.Collection, req.UID, userUpdate); err != nil {
			return err
		}

		change = domain.RoleChange{
			ID:        changeID,
			UID:       req.UID,
			FromRole:  user.Role,
			ToRole:    req.Role,
			GrantedBy: req.GrantedBy,
			Reason:    req.Reason,
			ExpiresAt: req.ExpiresAt,
		}
		changeData := map[string]interface{}{
			"uid":       change.UID,
			"fromRole":  string(change.FromRole),
			"toRole":    string(change.ToRole),
			"grantedBy": change.GrantedBy,
			"timestamp": store.ServerTimestamp,
		}
		if change.Reason != "" {
			changeData["reason"] = change.Reason
		}
		if change.ExpiresAt != nil {
			changeData["expiresAt"] = *change.ExpiresAt
		}
		if err := tx.Create(ctx, domain.Collection, changeID, changeData); err != nil {
			return err
		}

		return s.activity.RecordTx(ctx, tx, activity.Entry{
			UID:    req.UID,
			Action: "role_granted",
			Details: map[string]interface{}{
				"fromRole":  string(change.FromRole),
				"toRole":    string(change.ToRole),
				"grantedBy": change.GrantedBy,
			},
		})
	}, nil)
	if err != nil {
		return nil, err
	}

	s.invalidateRole(ctx, req.UID)
	return &change, nil
}

// RoleOf resolves a user's current role, consulting the role cache first.
func (s *Service) RoleOf(ctx context.Context, uid string) (usersdomain.Role, error) {
	if s.roles != nil {
		if cached, ok, err := s.roles.Get(ctx, roleCacheKey(uid)); err == nil && ok {
			return usersdomain.Role(cached), nil
		}
	}

	doc, err := s.store.Get(ctx, usersdomain.Collection, uid)
	if err != nil {
		return "", err
	}
	if !doc.Exists {
		return "", usersdomain.ErrUserNotFound
	}
	role := usersdomain.FromDoc(doc).Role

	if s.roles != nil {
		if err := s.roles.Set(ctx, roleCacheKey(uid), string(role)); err != nil {
			log.Printf("[warn] operation=role_cache_set uid=%s error=%v", uid, err)
		}
	}
	return role, nil
}

// ListChanges returns the role change log for one user, newest first.
func (s *Service) ListChanges(ctx context.Context, uid string) ([]domain.RoleChange, error) {
	docs, err := s.store.List(ctx, domain.Collection)
	if err != nil {
		return nil, err
	}
	changes := make([]domain.RoleChange, 0)
	for _, doc := range docs {
		change := domain.FromDoc(doc)
		if uid != "" && change.UID != uid {
			continue
		}
		changes = append(changes, change)
	}
	sort.Slice(changes, func(i, j int) bool {
		return changes[i].Timestamp.After(changes[j].Timestamp)
	})
	return changes, nil
}

// SweepExpired demotes every user whose role expiry has passed back to
// student, recording a RoleChange per demotion. Returns how many users were
// demoted.
func (s *Service) SweepExpired(ctx context.Context, now time.Time) (int, error) {
	docs, err := s.store.List(ctx, usersdomain.Collection)
	if err != nil {
		return 0, fmt.Errorf("list users: %w", err)
	}

	demoted := 0
	for _, doc := range docs {
		user := usersdomain.FromDoc(doc)
		if user.RoleExpiresAt == nil || user.RoleExpiresAt.After(now) {
			continue
		}
		if user.Role == usersdomain.RoleStudent {
			continue
		}

		_, err := s.GrantRole(ctx, GrantRoleRequest{
			UID:       user.UID,
			Role:      usersdomain.RoleStudent,
			GrantedBy: "system",
			Reason:    "role expired",
		})
		if err != nil {
			log.Printf("[warn] operation=role_sweep uid=%s error=%v", user.UID, err)
			continue
		}
		demoted++
	}
	return demoted, nil
}

func (s *Service) invalidateRole(ctx context.Context, uid string) {
	if s.roles == nil {
		return
	}
	if err := s.roles.Invalidate(ctx, roleCacheKey(uid)); err != nil {
		log.Printf("[warn] operation=role_cache_invalidate uid=%s error=%v", uid, err)
	}
}

func roleCacheKey(uid string) string {
	return "role:" + uid
}
