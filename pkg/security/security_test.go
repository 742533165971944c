package security

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiterAllowsWithinBurst(t *testing.T) {
	rl := NewRateLimiter(1, 3)

	for i := 0; i < 3; i++ {
		assert.True(t, rl.Allow("client-a"), "request %d should pass", i)
	}
	assert.False(t, rl.Allow("client-a"), "burst exhausted")
}

func TestRateLimiterIsolatesClients(t *testing.T) {
	rl := NewRateLimiter(1, 2)

	assert.True(t, rl.Allow("client-a"))
	assert.True(t, rl.Allow("client-a"))
	assert.False(t, rl.Allow("client-a"))

	// A different client has its own bucket.
	assert.True(t, rl.Allow("client-b"))
}

func TestRateLimiterGlobalLimit(t *testing.T) {
	// Global burst is 10x per-client burst; spread over many clients.
	rl := NewRateLimiter(1, 1)

	allowed := 0
	for i := 0; i < 20; i++ {
		if rl.Allow(fmt.Sprintf("client-%d", i)) {
			allowed++
		}
	}
	assert.Equal(t, 10, allowed)
}

func TestRateLimiterRetryAfter(t *testing.T) {
	rl := NewRateLimiter(1, 1)

	require.True(t, rl.Allow("client-a"))
	require.False(t, rl.Allow("client-a"))

	assert.Greater(t, rl.RetryAfter("client-a").Milliseconds(), int64(0))
}

func TestRateLimiterConcurrentAccess(t *testing.T) {
	rl := NewRateLimiter(100, 100)

	done := make(chan struct{})
	for i := 0; i < 8; i++ {
		go func(id int) {
			defer func() { done <- struct{}{} }()
			for j := 0; j < 50; j++ {
				rl.Allow(fmt.Sprintf("client-%d", id%3))
			}
		}(i)
	}
	for i := 0; i < 8; i++ {
		<-done
	}
}

func TestInputValidatorMessageLength(t *testing.T) {
	v := NewInputValidator(10, 5)

	assert.NoError(t, v.ValidateMessage("short"))
	assert.Error(t, v.ValidateMessage(strings.Repeat("x", 11)))
}

func TestInputValidatorNullBytes(t *testing.T) {
	v := NewInputValidator(0, 0)

	err := v.ValidateMessage("hello\x00world")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "null bytes")
}

func TestInputValidatorInvalidUTF8(t *testing.T) {
	v := NewInputValidator(0, 0)
	assert.Error(t, v.ValidateMessage(string([]byte{0xff, 0xfe})))
}

func TestInputValidatorTranscriptCount(t *testing.T) {
	v := NewInputValidator(0, 2)

	assert.NoError(t, v.ValidateTranscript([]string{"a", "b"}))
	assert.Error(t, v.ValidateTranscript([]string{"a", "b", "c"}))
}

func TestInputValidatorTranscriptReportsIndex(t *testing.T) {
	v := NewInputValidator(5, 10)

	err := v.ValidateTranscript([]string{"ok", "toolongmessage"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "message 1")
}
