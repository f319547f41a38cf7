package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRecentEvictsLeastRecentlyUsed(t *testing.T) {
	r := NewRecent(2, time.Hour)
	r.Add("a")
	r.Add("b")
	assert.True(t, r.Contains("a")) // a is now most recent
	r.Add("c")

	assert.True(t, r.Contains("a"))
	assert.False(t, r.Contains("b"))
	assert.True(t, r.Contains("c"))
	assert.Equal(t, 2, r.Len())
}

func TestRecentExpires(t *testing.T) {
	now := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	r := NewRecent(10, time.Minute)
	r.now = func() time.Time { return now }

	r.Add("id")
	assert.True(t, r.Contains("id"))

	now = now.Add(2 * time.Minute)
	assert.False(t, r.Contains("id"))
	assert.Equal(t, 0, r.Len())
}

func TestRecentRemove(t *testing.T) {
	r := NewRecent(0, time.Hour)
	r.Add("id")
	r.Remove("id")
	r.Remove("missing")
	assert.False(t, r.Contains("id"))
}
