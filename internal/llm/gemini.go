package llm

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

// GeminiCompleter adapts a Gemini model to the Completer interface. It is the
// alternate-vendor instance, used when the deployment prefers Google models.
type GeminiCompleter struct {
	client *genai.Client
	model  string
}

// NewGeminiCompleter creates a completer for one Gemini model.
func NewGeminiCompleter(ctx context.Context, apiKey, model string) (*GeminiCompleter, error) {
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}
	if model == "" {
		return nil, errors.New("gemini model is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	return &GeminiCompleter{client: client, model: model}, nil
}

// Name returns the instance name.
func (c *GeminiCompleter) Name() string {
	return "gemini/" + c.model
}

// Complete generates text for the given prompt.
func (c *GeminiCompleter) Complete(ctx context.Context, prompt string, opts ...Option) (string, error) {
	o := buildOptions(opts)

	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(o.Temperature)),
	}
	if o.MaxTokens > 0 {
		config.MaxOutputTokens = int32(o.MaxTokens)
	}
	if o.System != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: o.System}},
		}
	}

	contents := []*genai.Content{{
		Role:  "user",
		Parts: []*genai.Part{{Text: prompt}},
	}}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, config)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", &CapabilityError{Capability: c.Name(), Code: CodeTimeout, Message: "completion timed out", Err: err}
		}
		return "", &CapabilityError{Capability: c.Name(), Code: CodeUnknown, Message: fmt.Sprintf("completion failed: %v", err), Err: err}
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", &CapabilityError{Capability: c.Name(), Code: CodeEmptyResponse, Message: "no candidates in response"}
	}

	var text string
	for _, part := range resp.Candidates[0].Content.Parts {
		text += part.Text
	}
	if text == "" {
		return "", &CapabilityError{Capability: c.Name(), Code: CodeEmptyResponse, Message: "candidate contained no text"}
	}
	return text, nil
}
