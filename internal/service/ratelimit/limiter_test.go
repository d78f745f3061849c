package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLimiterRefills(t *testing.T) {
	now := time.Unix(1700000000, 0)
	l := New(2, 1, WithClock(func() time.Time { return now }))

	assert.True(t, l.Allow("tenant-a"))
	assert.True(t, l.Allow("tenant-a"))
	assert.False(t, l.Allow("tenant-a"))

	// buckets are per key
	assert.True(t, l.Allow("tenant-b"))

	now = now.Add(time.Second)
	assert.True(t, l.Allow("tenant-a"))
	assert.False(t, l.Allow("tenant-a"))

	now = now.Add(time.Hour)
	assert.True(t, l.Allow("tenant-a"))
	assert.True(t, l.Allow("tenant-a"))
	assert.False(t, l.Allow("tenant-a"))
}

func TestLimiterDisabled(t *testing.T) {
	l := New(0, 0)
	for i := 0; i < 100; i++ {
		assert.True(t, l.Allow("tenant-a"))
	}
}
