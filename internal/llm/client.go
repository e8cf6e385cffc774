// Package llm defines the inference collaborator boundary. Failures here
// are a normal outcome; the orchestrator falls back to rule-based
// extraction whenever a call errors.
package llm

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

// ErrUnavailable is returned by Unavailable and by clients that cannot
// reach their provider.
var ErrUnavailable = errors.New("llm: provider unavailable")

// Client is the single inference entry point the core depends on.
type Client interface {
	Complete(ctx context.Context, system, user string, maxTokens int, temperature float32) (string, error)
}

// GenAIClient calls the Gemini API through the official SDK.
type GenAIClient struct {
	client *genai.Client
	model  string
}

// NewGenAIClient builds a Gemini-backed client.
func NewGenAIClient(ctx context.Context, apiKey, model string) (*GenAIClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("llm: API key is required")
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("llm: create client: %w", err)
	}

	return &GenAIClient{client: client, model: model}, nil
}

// Complete runs one generation call and returns the reply text.
func (c *GenAIClient) Complete(ctx context.Context, system, user string, maxTokens int, temperature float32) (string, error) {
	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(temperature),
	}
	if maxTokens > 0 {
		cfg.MaxOutputTokens = int32(maxTokens)
	}
	if system != "" {
		cfg.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}

	contents := []*genai.Content{
		genai.NewContentFromText(user, genai.RoleUser),
	}

	result, err := c.client.Models.GenerateContent(ctx, c.model, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("llm: generate: %w", err)
	}
	text := result.Text()
	if text == "" {
		return "", fmt.Errorf("llm: empty response")
	}
	return text, nil
}

// Unavailable is a Client that always fails, forcing the rule-based
// path. Used when no API key is configured and in tests.
type Unavailable struct{}

func (Unavailable) Complete(context.Context, string, string, int, float32) (string, error) {
	return "", ErrUnavailable
}
