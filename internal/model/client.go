// Package model wraps the language-model collaborator behind a small
// interface. The live client speaks to any OpenAI-compatible chat endpoint;
// failures surface as ErrUnavailable so the router can fall back to a
// canned per-language reply.
package model

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// ErrUnavailable is returned when the model call fails or produces no
// candidate reply.
var ErrUnavailable = errors.New("model unavailable")

// Message is one prior conversation turn sent to the model.
type Message struct {
	Role    string // "user" or "assistant"
	Content string
}

// Generator is the contract the router depends on.
type Generator interface {
	Generate(ctx context.Context, systemPrompt string, history []Message) (string, error)
}

// Client calls an OpenAI-compatible chat completion API.
type Client struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
}

// Config carries the endpoint settings, taken from the application config.
type Config struct {
	BaseURL string
	APIKey  string
	Name    string
}

// NewClient constructs a chat client for the configured endpoint.
func NewClient(cfg Config) *Client {
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	return &Client{
		client:      openai.NewClientWithConfig(oc),
		model:       cfg.Name,
		temperature: 0.8,
		maxTokens:   250,
	}
}

// Generate sends the system prompt plus windowed history and returns the
// assistant reply. Any transport error or empty candidate list is reported
// as ErrUnavailable.
func (c *Client) Generate(ctx context.Context, systemPrompt string, history []Message) (string, error) {
	msgs := make([]openai.ChatCompletionMessage, 0, len(history)+1)
	msgs = append(msgs, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: systemPrompt,
	})
	for _, m := range history {
		role := openai.ChatMessageRoleUser
		if m.Role == "assistant" {
			role = openai.ChatMessageRoleAssistant
		}
		msgs = append(msgs, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    msgs,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("%w: empty response", ErrUnavailable)
	}
	return resp.Choices[0].Message.Content, nil
}
