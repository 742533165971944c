package llm

import (
	"context"
	"sync"
)

// MockCompleter is a scripted Completer for tests. Responses are returned in
// order; when the script is exhausted the last response repeats.
type MockCompleter struct {
	InstanceName string
	Responses    []string
	Err          error

	mu      sync.Mutex
	calls   int
	Prompts []string
	Opts    []Options
}

// Name returns the instance name.
func (m *MockCompleter) Name() string {
	if m.InstanceName == "" {
		return "mock"
	}
	return m.InstanceName
}

// Complete returns the next scripted response or the configured error.
func (m *MockCompleter) Complete(ctx context.Context, prompt string, opts ...Option) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.Prompts = append(m.Prompts, prompt)
	m.Opts = append(m.Opts, buildOptions(opts))
	if m.Err != nil {
		return "", m.Err
	}
	if len(m.Responses) == 0 {
		return "", &CapabilityError{Capability: m.Name(), Code: CodeEmptyResponse, Message: "no scripted response"}
	}

	idx := m.calls
	if idx >= len(m.Responses) {
		idx = len(m.Responses) - 1
	}
	m.calls++
	return m.Responses[idx], nil
}

// Calls returns how many completions were requested.
func (m *MockCompleter) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
