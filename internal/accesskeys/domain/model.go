package domain

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"regexp"
	"strings"
	"time"

	"github.com/quizdeck/quizdeck-backend/internal/store"
)

// Collection is the access key collection; documents are keyed by the
// generated key string itself.
const Collection = "accessKeys"

// Capability strings an access key can carry.
const CapabilityTeacherQuizCreation = "TEACHER_QUIZ_CREATION"

// Key lifecycle: created as new, transitions exactly once to redeemed.
const (
	StatusNew      = "new"
	StatusRedeemed = "redeemed"
)

const keyAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

var keyPattern = regexp.MustCompile(`^[A-Z0-9]{4}-[A-Z0-9]{4}-[A-Z0-9]{4}$`)

// Cart lists the content an access key unlocks when it is not bound to a
// single capability.
type Cart struct {
	Subjects []string `json:"subjects"`
	Courses  []string `json:"courses"`
}

// QuizIDs flattens the cart into the quiz ids unlocked on redemption.
func (c *Cart) QuizIDs() []string {
	if c == nil {
		return nil
	}
	ids := make([]string, 0, len(c.Subjects)+len(c.Courses))
	ids = append(ids, c.Subjects...)
	ids = append(ids, c.Courses...)
	return ids
}

// AccessKey is a single-use credential granting a capability or unlocking
// cart contents. Immutable after redemption.
type AccessKey struct {
	Key               string     `json:"key"`
	Status            string     `json:"status"`
	UnlocksCapability string     `json:"unlocksCapability,omitempty"`
	CartToUnlock      *Cart      `json:"cartToUnlock,omitempty"`
	OrderID           string     `json:"orderId,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
	CreatedBy         string     `json:"createdBy"`
	UsedBy            string     `json:"usedBy,omitempty"`
	UsedAt            *time.Time `json:"usedAt,omitempty"`
}

// NewKey generates a candidate key: 12 random alphanumerics in three
// 4-character blocks, e.g. "AB12-CD34-EF56".
func NewKey() (string, error) {
	chars := make([]byte, 12)
	for i := range chars {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(keyAlphabet))))
		if err != nil {
			return "", err
		}
		chars[i] = keyAlphabet[n.Int64()]
	}
	return fmt.Sprintf("%s-%s-%s", chars[0:4], chars[4:8], chars[8:12]), nil
}

// Normalize maps user-typed input onto the stored key format.
func Normalize(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

// ValidFormat reports whether key matches the generated format.
func ValidFormat(key string) bool {
	return keyPattern.MatchString(key)
}

// FromDoc decodes a stored access key document.
func FromDoc(doc store.Document) AccessKey {
	key := AccessKey{
		Key:               doc.ID,
		Status:            doc.String("status"),
		UnlocksCapability: doc.String("unlocksCapability"),
		OrderID:           doc.String("orderId"),
		CreatedBy:         doc.String("createdBy"),
		UsedBy:            doc.String("usedBy"),
	}
	if created, ok := doc.Time("createdAt"); ok {
		key.CreatedAt = created
	}
	if used, ok := doc.Time("usedAt"); ok {
		key.UsedAt = &used
	}
	if cart := doc.Map("cartToUnlock"); cart != nil {
		key.CartToUnlock = &Cart{
			Subjects: store.Document{Data: cart}.Strings("subjects"),
			Courses:  store.Document{Data: cart}.Strings("courses"),
		}
	}
	return key
}
