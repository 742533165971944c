// Package llm wraps the external content-generation capability behind a small
// completion interface with explicit timeouts and typed errors.
package llm

import (
	"context"
	"errors"
	"time"
)

// Completer is one named instance of the generation capability. Instances
// differ in latency/quality (a fast model and a higher-quality model) but
// share the same contract: one prompt in, one text out.
type Completer interface {
	// Complete generates text for the given prompt.
	Complete(ctx context.Context, prompt string, opts ...Option) (string, error)

	// Name returns the instance name (e.g. "openai/gpt-4o-mini").
	Name() string
}

// Options holds per-call generation options.
type Options struct {
	System      string
	Temperature float64
	MaxTokens   int
}

// Option is a functional option for a completion call.
type Option func(*Options)

// WithSystem sets the system instruction.
func WithSystem(s string) Option {
	return func(o *Options) { o.System = s }
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) Option {
	return func(o *Options) { o.Temperature = t }
}

// WithMaxTokens caps the generated length.
func WithMaxTokens(n int) Option {
	return func(o *Options) { o.MaxTokens = n }
}

func buildOptions(opts []Option) Options {
	o := Options{Temperature: 0.7}
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

// CompleteWithTimeout runs one completion bounded by timeout. A deadline
// overrun surfaces as a CapabilityError with CodeTimeout; there is no
// cancellation of the underlying call beyond the context deadline.
func CompleteWithTimeout(ctx context.Context, c Completer, prompt string, timeout time.Duration, opts ...Option) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	text, err := c.Complete(ctx, prompt, opts...)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", &CapabilityError{Capability: c.Name(), Code: CodeTimeout, Message: "completion timed out", Err: err}
		}
		return "", err
	}
	return text, nil
}

// Error codes shared by capability adapters.
const (
	CodeTimeout        = "timeout"
	CodeRateLimit      = "rate_limit_exceeded"
	CodeAuthentication = "authentication_error"
	CodeServerError    = "server_error"
	CodeEmptyResponse  = "empty_response"
	CodeUnknown        = "unknown_error"
)

// CapabilityError describes a failed capability call.
type CapabilityError struct {
	Capability string
	Code       string
	Message    string
	Err        error
}

func (e *CapabilityError) Error() string {
	return e.Capability + " error: " + e.Message
}

func (e *CapabilityError) Unwrap() error { return e.Err }

// Retryable reports whether the failure is worth retrying on another call.
func (e *CapabilityError) Retryable() bool {
	switch e.Code {
	case CodeTimeout, CodeRateLimit, CodeServerError:
		return true
	}
	return false
}
