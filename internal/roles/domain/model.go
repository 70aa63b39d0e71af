package domain

import (
	"errors"
	"time"

	usersdomain "github.com/quizdeck/quizdeck-backend/internal/users/domain"
	"github.com/quizdeck/quizdeck-backend/internal/store"
)

// Collection is the append-only role change log, keyed by auto-generated ids.
const Collection = "roleChanges"

var (
	ErrInvalidRole = errors.New("invalid role")
	ErrSelfGrant   = errors.New("cannot grant a role to yourself")
)

// RoleChange records one grant. Entries are never mutated or deleted.
type RoleChange struct {
	ID        string           `json:"id"`
	UID       string           `json:"uid"`
	FromRole  usersdomain.Role `json:"fromRole"`
	ToRole    usersdomain.Role `json:"toRole"`
	GrantedBy string           `json:"grantedBy"`
	Reason    string           `json:"reason,omitempty"`
	ExpiresAt *time.Time       `json:"expiresAt,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
}

func FromDoc(doc store.Document) RoleChange {
	rc := RoleChange{
		ID:        doc.ID,
		UID:       doc.String("uid"),
		FromRole:  usersdomain.Role(doc.String("fromRole")),
		ToRole:    usersdomain.Role(doc.String("toRole")),
		GrantedBy: doc.String("grantedBy"),
		Reason:    doc.String("reason"),
	}
	if ts, ok := doc.Time("timestamp"); ok {
		rc.Timestamp = ts
	}
	if expires, ok := doc.Time("expiresAt"); ok {
		rc.ExpiresAt = &expires
	}
	return rc
}
