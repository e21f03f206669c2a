// Package llm generates short in-character replies from a chat completion model.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// DefaultModel and DefaultMaxTokens apply when config leaves them unset.
const (
	DefaultModel     = openai.GPT4oMini
	DefaultMaxTokens = 64
)

// DefaultPersona is the system prompt used when none is configured.
const DefaultPersona = "You are a street-wise character in Night City. Use slang like choomba, preem, delta. Be brief."

// Responder sends one system+user exchange per call; no history is kept.
type Responder struct {
	client    *openai.Client
	model     string
	maxTokens int
}

// NewResponder builds a chat responder over an existing client.
func NewResponder(client *openai.Client, model string, maxTokens int) (*Responder, error) {
	if client == nil {
		return nil, errors.New("openai client is nil")
	}
	model = strings.TrimSpace(model)
	if model == "" {
		model = DefaultModel
	}
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	return &Responder{client: client, model: model, maxTokens: maxTokens}, nil
}

// Respond returns the first choice's content, trimmed. An empty choice list
// yields an empty reply rather than an error.
func (r *Responder) Respond(ctx context.Context, system string, user string) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if system = strings.TrimSpace(system); system != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: system})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: user})

	resp, err := r.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     r.model,
		Messages:  messages,
		MaxTokens: r.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// EntityPrompt builds the system prompt for a reply voiced by a named entity.
func EntityPrompt(persona string, entity string) string {
	persona = strings.TrimSpace(persona)
	if persona == "" {
		persona = DefaultPersona
	}
	entity = strings.TrimSpace(entity)
	if entity == "" {
		return persona
	}
	return fmt.Sprintf("%s You are speaking as %s.", persona, entity)
}
