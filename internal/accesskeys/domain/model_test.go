package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewKey(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		key, err := NewKey()
		require.NoError(t, err)
		assert.True(t, ValidFormat(key), "generated key %q must be three dash-separated groups of four", key)
		assert.False(t, seen[key], "key %q generated twice in a small sample", key)
		seen[key] = true
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"already canonical", "AB12-CD34-EF56", "AB12-CD34-EF56"},
		{"lowercase input", "ab12-cd34-ef56", "AB12-CD34-EF56"},
		{"surrounding whitespace", "  AB12-CD34-EF56\n", "AB12-CD34-EF56"},
		{"empty", "   ", ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Normalize(tc.in))
		})
	}
}

func TestValidFormat(t *testing.T) {
	valid := []string{"AB12-CD34-EF56", "AAAA-0000-ZZZZ"}
	for _, key := range valid {
		assert.True(t, ValidFormat(key), key)
	}

	invalid := []string{
		"",
		"AB12CD34EF56",
		"AB12-CD34",
		"AB12-CD34-EF56-GH78",
		"ab12-cd34-ef56",
		"AB1!-CD34-EF56",
	}
	for _, key := range invalid {
		assert.False(t, ValidFormat(key), key)
	}
}

func TestCartQuizIDs(t *testing.T) {
	t.Run("nil cart", func(t *testing.T) {
		var cart *Cart
		assert.Nil(t, cart.QuizIDs())
	})

	t.Run("subjects and courses combined", func(t *testing.T) {
		cart := &Cart{Subjects: []string{"s1"}, Courses: []string{"c1", "c2"}}
		assert.ElementsMatch(t, []string{"s1", "c1", "c2"}, cart.QuizIDs())
	})
}
