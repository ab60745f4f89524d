package bot

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiter(t *testing.T) {
	r := NewRateLimiter()

	assert.False(t, r.IsLimited(1, "Buy Server"))
	assert.True(t, r.IsLimited(1, "Buy Server"), "immediate repeat is limited")
	assert.False(t, r.IsLimited(1, "My Servers"), "limits are per command")
	assert.False(t, r.IsLimited(2, "Buy Server"), "limits are per user")
}
