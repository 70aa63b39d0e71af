package domain

import (
	"errors"
	"time"

	"github.com/quizdeck/quizdeck-backend/internal/store"
)

// Collection holds user documents keyed by the identity provider's uid.
// Users are never created here; the identity provider owns creation.
const Collection = "users"

type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
	RoleAdmin   Role = "admin"
)

// DefaultRole applies when a user document has no role field yet.
const DefaultRole = RoleStudent

var ErrUserNotFound = errors.New("user not found")

func ValidRole(r Role) bool {
	switch r {
	case RoleStudent, RoleTeacher, RoleAdmin:
		return true
	}
	return false
}

type User struct {
	UID               string     `json:"uid"`
	Role              Role       `json:"role"`
	CanCreateQuizzes  bool       `json:"canCreateQuizzes,omitempty"`
	UnlockedQuizzes   []string   `json:"unlockedQuizzes,omitempty"`
	LastAccessKeyUsed string     `json:"lastAccessKeyUsed,omitempty"`
	RoleExpiresAt     *time.Time `json:"roleExpiresAt,omitempty"`
}

// FromDoc decodes a stored user document, applying the default role.
func FromDoc(doc store.Document) User {
	u := User{
		UID:               doc.ID,
		Role:              Role(doc.String("role")),
		CanCreateQuizzes:  doc.Bool("canCreateQuizzes"),
		UnlockedQuizzes:   doc.Strings("unlockedQuizzes"),
		LastAccessKeyUsed: doc.String("lastAccessKeyUsed"),
	}
	if u.Role == "" {
		u.Role = DefaultRole
	}
	if expires, ok := doc.Time("roleExpiresAt"); ok {
		u.RoleExpiresAt = &expires
	}
	return u
}
