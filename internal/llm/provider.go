// Package llm is a minimal chat-completions client used to score headlines
// with a language model. It speaks the OpenAI wire format, which OpenAI,
// Ollama (/v1) and most local model servers accept.
package llm

import (
	"context"
	"errors"
	"time"
)

// Common errors returned by the client.
var (
	ErrNoAPIKey     = errors.New("llm: API key rejected")
	ErrRateLimit    = errors.New("llm: rate limit exceeded")
	ErrProviderDown = errors.New("llm: provider unavailable")
	ErrInvalidModel = errors.New("llm: invalid model")
	ErrEmptyReply   = errors.New("llm: empty reply")
)

// Role represents the role of a message sender.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single message in a conversation.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// SystemMessage creates a system prompt message.
func SystemMessage(content string) Message { return Message{Role: RoleSystem, Content: content} }

// UserMessage creates a user message.
func UserMessage(content string) Message { return Message{Role: RoleUser, Content: content} }

// ChatOptions configures a single chat request. Zero values use the
// client's defaults.
type ChatOptions struct {
	Model       string
	Temperature float64
	MaxTokens   int
}

// Usage tracks token consumption for a request.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is a complete reply from the model.
type Response struct {
	Content string
	Model   string
	Usage   Usage
	Latency time.Duration
}

// Chatter sends a conversation and returns the model's reply.
type Chatter interface {
	Chat(ctx context.Context, messages []Message, opts *ChatOptions) (*Response, error)
}
