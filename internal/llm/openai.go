package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/sashabaranov/go-openai"
)

// OpenAICompleter adapts an OpenAI chat model to the Completer interface.
type OpenAICompleter struct {
	client *openai.Client
	model  string
}

// NewOpenAICompleter creates a completer for one OpenAI model.
func NewOpenAICompleter(apiKey, model string) (*OpenAICompleter, error) {
	if apiKey == "" {
		return nil, errors.New("openai api key is required")
	}
	if model == "" {
		return nil, errors.New("openai model is required")
	}
	return &OpenAICompleter{
		client: openai.NewClient(apiKey),
		model:  model,
	}, nil
}

// Name returns the instance name.
func (c *OpenAICompleter) Name() string {
	return "openai/" + c.model
}

// Complete generates text for the given prompt.
func (c *OpenAICompleter) Complete(ctx context.Context, prompt string, opts ...Option) (string, error) {
	o := buildOptions(opts)

	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if o.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: o.System,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: prompt,
	})

	req := openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: float32(o.Temperature),
	}
	if o.MaxTokens > 0 {
		req.MaxTokens = o.MaxTokens
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", c.wrapError(err)
	}
	if len(resp.Choices) == 0 {
		return "", &CapabilityError{Capability: c.Name(), Code: CodeEmptyResponse, Message: "no choices in response"}
	}
	return resp.Choices[0].Message.Content, nil
}

func (c *OpenAICompleter) wrapError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &CapabilityError{Capability: c.Name(), Code: CodeTimeout, Message: "completion timed out", Err: err}
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		code := CodeUnknown
		switch apiErr.HTTPStatusCode {
		case 401:
			code = CodeAuthentication
		case 429:
			code = CodeRateLimit
		default:
			if apiErr.HTTPStatusCode >= 500 {
				code = CodeServerError
			}
		}
		return &CapabilityError{Capability: c.Name(), Code: code, Message: apiErr.Message, Err: err}
	}

	return &CapabilityError{Capability: c.Name(), Code: CodeUnknown, Message: fmt.Sprintf("completion failed: %v", err), Err: err}
}
