package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type slowCompleter struct {
	delay time.Duration
}

func (s *slowCompleter) Name() string { return "slow" }

func (s *slowCompleter) Complete(ctx context.Context, prompt string, opts ...Option) (string, error) {
	select {
	case <-time.After(s.delay):
		return "done", nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func TestCompleteWithTimeoutPassesThrough(t *testing.T) {
	mock := &MockCompleter{Responses: []string{"hello"}}

	text, err := CompleteWithTimeout(context.Background(), mock, "prompt", time.Second)
	require.NoError(t, err)
	assert.Equal(t, "hello", text)
	assert.Equal(t, []string{"prompt"}, mock.Prompts)
}

func TestCompleteWithTimeoutDeadline(t *testing.T) {
	_, err := CompleteWithTimeout(context.Background(), &slowCompleter{delay: time.Second}, "prompt", 10*time.Millisecond)
	require.Error(t, err)

	var capErr *CapabilityError
	require.ErrorAs(t, err, &capErr)
	assert.Equal(t, CodeTimeout, capErr.Code)
	assert.Equal(t, "slow", capErr.Capability)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestCapabilityErrorRetryable(t *testing.T) {
	retryable := []string{CodeTimeout, CodeRateLimit, CodeServerError}
	for _, code := range retryable {
		assert.True(t, (&CapabilityError{Code: code}).Retryable(), code)
	}
	terminal := []string{CodeAuthentication, CodeEmptyResponse, CodeUnknown}
	for _, code := range terminal {
		assert.False(t, (&CapabilityError{Code: code}).Retryable(), code)
	}
}

func TestMockCompleterScript(t *testing.T) {
	mock := &MockCompleter{Responses: []string{"one", "two"}}
	ctx := context.Background()

	first, err := mock.Complete(ctx, "a")
	require.NoError(t, err)
	second, err := mock.Complete(ctx, "b")
	require.NoError(t, err)
	third, err := mock.Complete(ctx, "c")
	require.NoError(t, err)

	assert.Equal(t, "one", first)
	assert.Equal(t, "two", second)
	assert.Equal(t, "two", third, "last response repeats")
	assert.Equal(t, 3, mock.Calls())
}

func TestOptionsApply(t *testing.T) {
	o := buildOptions([]Option{
		WithSystem("sys"),
		WithTemperature(0.2),
		WithMaxTokens(100),
	})
	assert.Equal(t, "sys", o.System)
	assert.Equal(t, 0.2, o.Temperature)
	assert.Equal(t, 100, o.MaxTokens)
}
